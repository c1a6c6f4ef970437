package portal

import (
	"context"
	"fmt"
)

// ListIssues returns every visible issue. Listings are the bulk
// image-bearing endpoint: responses land in the persistent cache as
// lite projections, so a listing served from cold storage has
// image_data nulled and at most a thumbnail per record.
func (c *Client) ListIssues(ctx context.Context) ([]Issue, error) {
	var issues []Issue
	if err := c.Get(ctx, "/issues", &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// CreateIssue files a new maintenance ticket.
func (c *Client) CreateIssue(ctx context.Context, in IssueCreate) (Issue, error) {
	var out Issue
	if err := c.Post(ctx, "/issues", in, &out); err != nil {
		return Issue{}, err
	}
	return out, nil
}

// UpdateIssueStatus moves an issue to a new status (officials only).
func (c *Client) UpdateIssueStatus(ctx context.Context, id int, status string) error {
	body := struct {
		Status string `json:"status"`
	}{Status: status}
	return c.Patch(ctx, fmt.Sprintf("/issues/%d/status", id), body, nil)
}

// DeleteIssue removes an issue.
func (c *Client) DeleteIssue(ctx context.Context, id int) error {
	return c.Delete(ctx, fmt.Sprintf("/issues/%d", id))
}

// AddComment posts a remark on an issue.
func (c *Client) AddComment(ctx context.Context, id int, text string) (Comment, error) {
	body := struct {
		Text string `json:"text"`
	}{Text: text}
	var out Comment
	if err := c.Post(ctx, fmt.Sprintf("/issues/%d/comments", id), body, &out); err != nil {
		return Comment{}, err
	}
	return out, nil
}

// RateIssue records the owner's satisfaction rating after resolution.
func (c *Client) RateIssue(ctx context.Context, id, rating int, review string) error {
	body := struct {
		Rating int     `json:"rating"`
		Review *string `json:"review,omitempty"`
	}{Rating: rating}
	if review != "" {
		body.Review = &review
	}
	return c.Patch(ctx, fmt.Sprintf("/issues/%d/rate", id), body, nil)
}
