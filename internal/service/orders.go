package service

import (
	"context"
	"net/http"

	"github.com/shopadmin/internal/model"
)

type Orders struct {
	api API
}

func NewOrders(api API) *Orders {
	return &Orders{api: api}
}

// List returns every order for admins and only the caller's own orders
// otherwise; the backend applies the filter.
func (s *Orders) List(ctx context.Context, page, limit int) (model.Page[model.Order], error) {
	page, limit = model.NormalizePaging(page, limit)
	var resp struct {
		Orders     []model.Order    `json:"orders"`
		Pagination model.Pagination `json:"pagination"`
	}
	if err := s.api.Get(ctx, "/orders", pageQuery(page, limit), &resp); err != nil {
		return model.Page[model.Order]{}, err
	}
	return model.NewPage(resp.Orders, resp.Pagination), nil
}

func (s *Orders) Get(ctx context.Context, id string) (*model.Order, error) {
	path := resourcePath("/orders", id)
	var resp orderEnvelope
	if err := s.api.Get(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodGet, path)
}

func (s *Orders) Create(ctx context.Context, in model.OrderInput) (*model.Order, error) {
	var resp orderEnvelope
	if err := s.api.Post(ctx, "/orders", in, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodPost, "/orders")
}

// UpdateStatus sends the status change as is. Callers validate the
// transition first.
func (s *Orders) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	path := resourcePath("/orders", id) + "/status"
	var resp orderEnvelope
	if err := s.api.Put(ctx, path, model.OrderStatusUpdate{Status: status}, &resp); err != nil {
		return nil, err
	}
	return resp.unwrap(http.MethodPut, path)
}

type orderEnvelope struct {
	Order   *model.Order `json:"order"`
	Message string       `json:"message"`
}

func (e *orderEnvelope) unwrap(method, path string) (*model.Order, error) {
	if e.Order == nil {
		return nil, missing(method, path, "order")
	}
	return e.Order, nil
}
