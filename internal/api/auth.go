package api

import (
	"context"
	"fmt"
	"net/http"
)

// Credentials is the login payload. The identifier may be a username or an
// email address.
type Credentials struct {
	Identifier string `json:"login_identifier"`
	Password   string `json:"password"`
}

// Registration is the sign-up payload.
type Registration struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Username        string `json:"username" validate:"required,min=3"`
	Password        string `json:"password" validate:"required,strong_password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, request{method: http.MethodPost, segments: []string{"login"}, body: creds}, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login response did not contain an access token")
	}
	return resp.AccessToken, nil
}

// Register creates an account. The user still has to log in afterwards.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, request{method: http.MethodPost, segments: []string{"register"}, body: reg}, nil)
}

// Logout invalidates the token server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, request{method: http.MethodPost, segments: []string{"logout"}, token: token}, nil)
}
