package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopadmin/internal/model"
)

type Auth struct {
	api API
}

func NewAuth(api API) *Auth {
	return &Auth{api: api}
}

func (s *Auth) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := s.api.Post(ctx, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	if err := checkAuth(http.MethodPost, "/auth/login", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Auth) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	var resp model.AuthResponse
	if err := s.api.Post(ctx, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	if err := checkAuth(http.MethodPost, "/auth/register", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the account the current token belongs to.
func (s *Auth) Me(ctx context.Context) (*model.User, error) {
	var resp struct {
		User *model.User `json:"user"`
	}
	if err := s.api.Get(ctx, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, missing(http.MethodGet, "/auth/me", "user")
	}
	return resp.User, nil
}

// GoogleSignInURL is where a browser starts federated sign-in. The
// backend redirects back to /auth/callback with a token.
func GoogleSignInURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/auth/google"
}

func checkAuth(method, path string, resp *model.AuthResponse) error {
	if strings.TrimSpace(resp.Token) == "" {
		return missing(method, path, "token")
	}
	if resp.User == nil || resp.User.ID == "" {
		return missing(method, path, "user")
	}
	return nil
}
