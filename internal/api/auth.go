package api

import (
	"context"
	"errors"
	nethttp "net/http"

	"github.com/drivemanager/drivectl/internal/models"
	"github.com/drivemanager/drivectl/internal/session"
)

// ErrNoTokenInResponse is returned when an auth endpoint answers 2xx without a token.
var ErrNoTokenInResponse = errors.New("server did not return a token")

// Login exchanges credentials for a token and stores it in the session.
// A 401 here means bad credentials and is returned as an ApplicationError.
func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	body := models.LoginRequest{Username: username, Password: password}
	return c.authenticate(ctx, "/auth/login", body)
}

// Register creates an account and logs it in when the backend returns a token.
func (c *Client) Register(ctx context.Context, username, email, password string) (*models.AuthResponse, error) {
	body := models.RegisterRequest{Username: username, Email: email, Password: password}
	resp, err := c.authenticate(ctx, "/auth/register", body)
	if errors.Is(err, ErrNoTokenInResponse) {
		// Some deployments only confirm the account; the user logs in afterwards
		return resp, nil
	}
	return resp, err
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.do(ctx, request{method: nethttp.MethodPost, path: path, jsonBody: body, anonymous: true}, &resp)
	if err != nil {
		return nil, err
	}

	resp.Token = session.NormalizeToken(resp.Token)
	if resp.Token == "" {
		return &resp, ErrNoTokenInResponse
	}
	if err := c.session.Login(resp.Token); err != nil {
		return nil, err
	}
	return &resp, nil
}
