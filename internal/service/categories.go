package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopadmin/internal/model"
)

// Categories talks to an endpoint that is not consistent about
// envelopes: collections arrive as a bare array or as {"categories": [...]}
// and single items bare or as {"category": {...}}.
type Categories struct {
	api API
}

func NewCategories(api API) *Categories {
	return &Categories{api: api}
}

// All fetches the complete collection. The endpoint does not paginate.
func (s *Categories) All(ctx context.Context) ([]model.Category, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, "/categories", nil, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []model.Category{}, nil
	}

	var list []model.Category
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, undecodable(http.MethodGet, "/categories", err)
		}
		return list, nil
	}
	var wrapped struct {
		Categories []model.Category `json:"categories"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, undecodable(http.MethodGet, "/categories", err)
	}
	if wrapped.Categories == nil {
		return []model.Category{}, nil
	}
	return wrapped.Categories, nil
}

// List pages the complete collection locally.
func (s *Categories) List(ctx context.Context, page, limit int) (model.Page[model.Category], error) {
	all, err := s.All(ctx)
	if err != nil {
		return model.Page[model.Category]{}, err
	}
	return model.Paginate(all, page, limit), nil
}

func (s *Categories) Get(ctx context.Context, id string) (*model.Category, error) {
	path := resourcePath("/categories", id)
	var raw json.RawMessage
	if err := s.api.Get(ctx, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeCategory(http.MethodGet, path, raw)
}

func (s *Categories) Create(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	var raw json.RawMessage
	if err := s.api.Post(ctx, "/categories", in, &raw); err != nil {
		return nil, err
	}
	return decodeCategory(http.MethodPost, "/categories", raw)
}

func (s *Categories) Update(ctx context.Context, id string, in model.CategoryInput) (*model.Category, error) {
	path := resourcePath("/categories", id)
	var raw json.RawMessage
	if err := s.api.Put(ctx, path, in, &raw); err != nil {
		return nil, err
	}
	return decodeCategory(http.MethodPut, path, raw)
}

func (s *Categories) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, resourcePath("/categories", id), nil)
}

func decodeCategory(method, path string, raw json.RawMessage) (*model.Category, error) {
	var wrapped struct {
		Category *model.Category `json:"category"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, undecodable(method, path, err)
	}
	if wrapped.Category != nil {
		return wrapped.Category, nil
	}
	var bare model.Category
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, undecodable(method, path, err)
	}
	if bare.ID == "" {
		return nil, missing(method, path, "category")
	}
	return &bare, nil
}
