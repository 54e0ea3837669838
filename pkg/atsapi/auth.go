package atsapi

import (
	"context"
	"net/http"

	"github.com/garnizeh/ats/pkg/models"
)

// Login exchanges credentials for a token. It never triggers the
// unauthorized hook; a 401 here is a plain error.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.AuthResult, error) {
	r, err := jsonRequest(http.MethodPost, "auth/login/", creds, false)
	if err != nil {
		return models.AuthResult{}, err
	}
	var res models.AuthResult
	err = c.call(ctx, r, &res)
	return res, err
}

func (c *Client) Register(ctx context.Context, reg models.Registration) (models.AuthResult, error) {
	r, err := jsonRequest(http.MethodPost, "auth/register/", reg, false)
	if err != nil {
		return models.AuthResult{}, err
	}
	var res models.AuthResult
	err = c.call(ctx, r, &res)
	return res, err
}

func (c *Client) CurrentUser(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.call(ctx, request{method: http.MethodGet, path: "auth/user/", auth: true}, &u)
	return u, err
}
