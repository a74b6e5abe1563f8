package service

import (
	"context"
	"net/http"

	"github.com/shopadmin/internal/model"
)

type Products struct {
	api API
}

func NewProducts(api API) *Products {
	return &Products{api: api}
}

func (s *Products) List(ctx context.Context, page, limit int) (model.Page[model.Product], error) {
	page, limit = model.NormalizePaging(page, limit)
	var resp struct {
		Products   []model.Product  `json:"products"`
		Pagination model.Pagination `json:"pagination"`
	}
	if err := s.api.Get(ctx, "/products", pageQuery(page, limit), &resp); err != nil {
		return model.Page[model.Product]{}, err
	}
	return model.NewPage(resp.Products, resp.Pagination), nil
}

func (s *Products) Get(ctx context.Context, id string) (*model.Product, error) {
	path := resourcePath("/products", id)
	var resp productEnvelope
	if err := s.api.Get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodGet, path)
}

func (s *Products) Create(ctx context.Context, in model.ProductInput) (*model.Product, error) {
	var resp productEnvelope
	if err := s.api.Post(ctx, "/products", in, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodPost, "/products")
}

func (s *Products) Update(ctx context.Context, id string, in model.ProductInput) (*model.Product, error) {
	path := resourcePath("/products", id)
	var resp productEnvelope
	if err := s.api.Put(ctx, path, in, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodPut, path)
}

func (s *Products) Delete(ctx context.Context, id string) error {
	return s.api.Delete(ctx, resourcePath("/products", id), nil)
}

type productEnvelope struct {
	Product *model.Product `json:"product"`
	Message string         `json:"message"`
}

func (e *productEnvelope) unwrap(method, path string) (*model.Product, error) {
	if e.Product == nil {
		return nil, missing(method, path, "product")
	}
	return e.Product, nil
}
