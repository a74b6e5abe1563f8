package service

import (
	"context"
	"net/http"

	"github.com/shopadmin/internal/model"
)

// Settings addresses items by key rather than id.
type Settings struct {
	api API
}

func NewSettings(api API) *Settings {
	return &Settings{api: api}
}

func (s *Settings) All(ctx context.Context) ([]model.Setting, error) {
	var resp struct {
		Settings []model.Setting `json:"settings"`
	}
	if err := s.api.Get(ctx, "/settings", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Settings == nil {
		return []model.Setting{}, nil
	}
	return resp.Settings, nil
}

func (s *Settings) List(ctx context.Context, page, limit int) (model.Page[model.Setting], error) {
	all, err := s.All(ctx)
	if err != nil {
		return model.Page[model.Setting]{}, err
	}
	return model.Paginate(all, page, limit), nil
}

// Public returns the key/value pairs visible without signing in.
func (s *Settings) Public(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Settings map[string]string `json:"settings"`
	}
	if err := s.api.Get(ctx, "/settings/public", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Settings == nil {
		return map[string]string{}, nil
	}
	return resp.Settings, nil
}

func (s *Settings) Get(ctx context.Context, key string) (*model.Setting, error) {
	path := resourcePath("/settings", key)
	var resp settingEnvelope
	if err := s.api.Get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodGet, path)
}

func (s *Settings) Create(ctx context.Context, in model.SettingInput) (*model.Setting, error) {
	var resp settingEnvelope
	if err := s.api.Post(ctx, "/settings", in, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodPost, "/settings")
}

func (s *Settings) Update(ctx context.Context, key string, in model.SettingInput) (*model.Setting, error) {
	path := resourcePath("/settings", key)
	in.Key = ""
	in.Type = nil
	var resp settingEnvelope
	if err := s.api.Put(ctx, path, in, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodPut, path)
}

func (s *Settings) Delete(ctx context.Context, key string) error {
	return s.api.Delete(ctx, resourcePath("/settings", key), nil)
}

type settingEnvelope struct {
	Setting *model.Setting `json:"setting"`
	Message string         `json:"message"`
}

func (e *settingEnvelope) unwrap(method, path string) (*model.Setting, error) {
	if e.Setting == nil {
		return nil, missing(method, path, "setting")
	}
	return e.Setting, nil
}
