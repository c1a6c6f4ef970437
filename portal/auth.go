package portal

import (
	"context"
	"net/url"
)

// TokenResponse is the login reply.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges credentials for a bearer token and activates the
// session with it. Activating the session wipes the persistent
// response cache before Login returns.
func (c *Client) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	form := url.Values{
		"username": {email},
		"password": {password},
	}
	var tok TokenResponse
	if err := c.postForm(ctx, "/login", form, &tok); err != nil {
		return TokenResponse{}, err
	}
	c.session.SetToken(tok.AccessToken)

	// best-effort identity fetch so offline consumers know who is
	// signed in
	if me, err := c.Me(ctx); err == nil {
		c.session.SetUser(me)
	}
	return tok, nil
}

// Register creates a new account. It does not sign in.
func (c *Client) Register(ctx context.Context, in UserRegister) error {
	return c.Post(ctx, "/register", in, nil)
}

// Logout clears the session and the persistent response cache.
func (c *Client) Logout() {
	c.session.Clear()
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	if err := c.Get(ctx, "/users/me", &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// UpdateProfile edits the signed-in user's profile.
func (c *Client) UpdateProfile(ctx context.Context, in UserUpdate) (User, error) {
	var u User
	if err := c.Put(ctx, "/users/me", in, &u); err != nil {
		return User{}, err
	}
	c.session.SetUser(u)
	return u, nil
}
