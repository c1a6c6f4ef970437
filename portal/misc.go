package portal

import (
	"context"
	"fmt"
	"net/url"
)

// Stats returns the dashboard issue counters.
func (c *Client) Stats(ctx context.Context) (DashboardStats, error) {
	var s DashboardStats
	if err := c.Get(ctx, "/stats", &s); err != nil {
		return DashboardStats{}, err
	}
	return s, nil
}

// MessAnalytics returns aggregated mess ratings. mess filters by mess
// name ("" for all); scope is "week" or "all".
func (c *Client) MessAnalytics(ctx context.Context, mess, scope string) (MessAnalytics, error) {
	q := url.Values{}
	if mess != "" {
		q.Set("mess", mess)
	}
	if scope != "" {
		q.Set("scope", scope)
	}
	path := "/mess/analytics"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var m MessAnalytics
	if err := c.Get(ctx, path, &m); err != nil {
		return MessAnalytics{}, err
	}
	return m, nil
}

// ListStudents returns all student accounts (officials only).
func (c *Client) ListStudents(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.Get(ctx, "/users/all", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// RequestHostelChange asks the admin to move the student to a new
// hostel.
func (c *Client) RequestHostelChange(ctx context.Context, newHostel string) error {
	body := struct {
		NewHostel string `json:"new_hostel"`
	}{NewHostel: newHostel}
	return c.Post(ctx, "/users/request-hostel", body, nil)
}

// ManageHostelRequest approves or rejects a pending hostel change
// (officials only). action is "approve" or "reject".
func (c *Client) ManageHostelRequest(ctx context.Context, userID int, action string) error {
	body := struct {
		Action string `json:"action"`
	}{Action: action}
	return c.Post(ctx, fmt.Sprintf("/users/%d/manage-hostel", userID), body, nil)
}

// UpdatePushToken registers a device push-notification token.
func (c *Client) UpdatePushToken(ctx context.Context, token string) error {
	body := struct {
		Token string `json:"token"`
	}{Token: token}
	return c.Put(ctx, "/users/fcm-token", body, nil)
}

// Chat sends the conversation so far to the assistant and returns its
// reply.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage) (ChatMessage, error) {
	body := struct {
		Messages []ChatMessage `json:"messages"`
	}{Messages: messages}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := c.Post(ctx, "/chat", body, &out); err != nil {
		return ChatMessage{}, err
	}
	return ChatMessage{Role: "assistant", Content: out.Reply}, nil
}

// Health pings the backend without touching the database.
func (c *Client) Health(ctx context.Context) error {
	return c.Get(ctx, "/health", nil)
}
