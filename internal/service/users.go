package service

import (
	"context"
	"net/http"

	"github.com/shopadmin/internal/model"
)

type Users struct {
	api API
}

func NewUsers(api API) *Users {
	return &Users{api: api}
}

func (s *Users) List(ctx context.Context, page, limit int) (model.Page[model.User], error) {
	page, limit = model.NormalizePaging(page, limit)
	var resp struct {
		Users      []model.User     `json:"users"`
		Pagination model.Pagination `json:"pagination"`
	}
	if err := s.api.Get(ctx, "/users", pageQuery(page, limit), &resp); err != nil {
		return model.Page[model.User]{}, err
	}
	return model.NewPage(resp.Users, resp.Pagination), nil
}

func (s *Users) Get(ctx context.Context, id string) (*model.User, error) {
	path := resourcePath("/users", id)
	var resp struct {
		User *model.User `json:"user"`
	}
	if err := s.api.Get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, missing(http.MethodGet, path, "user")
	}
	return resp.User, nil
}

func (s *Users) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	path := resourcePath("/users", id)
	var resp struct {
		User *model.User `json:"user"`
	}
	if err := s.api.Put(ctx, path, patch, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, missing(http.MethodPut, path, "user")
	}
	return resp.User, nil
}

func (s *Users) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, resourcePath("/users", id), nil)
}
