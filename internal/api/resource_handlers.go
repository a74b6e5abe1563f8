package api

import (
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/resource"
)

const recentOrdersLimit = 5

// PageView is a cached page plus the synchronizer's call state.
type PageView[T any] struct {
	model.Page[T]
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
}

func pageView[T any, In any](s *resource.Synchronizer[T, In], p model.Page[T]) PageView[T] {
	return PageView[T]{Page: p, IsLoading: s.IsLoading(), Error: s.Error()}
}

func listPage[T any, In any](h *Handler, s *resource.Synchronizer[T, In], w http.ResponseWriter, r *http.Request, fallback string) {
	page, limit := paging(r)
	p, err := s.List(r.Context(), page, limit)
	if err != nil {
		h.respondFailure(w, err, fallback)
		return
	}
	respondJSON(w, http.StatusOK, pageView(s, p))
}

func getOne[T any, In any](h *Handler, s *resource.Synchronizer[T, In], w http.ResponseWriter, r *http.Request, fallback string) {
	item, err := s.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, fallback)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func createOne[T any, In any](h *Handler, s *resource.Synchronizer[T, In], w http.ResponseWriter, r *http.Request, fallback string) {
	var in In
	if err := decodeBody(r, &in); err != nil {
		h.respondFailure(w, err, "")
		return
	}
	item, err := s.Create(r.Context(), in)
	if err != nil && item == nil {
		h.respondFailure(w, err, fallback)
		return
	}
	if err != nil {
		h.logger.Warn("created item but list refresh failed", "error", err)
	}
	respondJSON(w, http.StatusCreated, item)
}

func updateOne[T any, In any](h *Handler, s *resource.Synchronizer[T, In], w http.ResponseWriter, r *http.Request, fallback string) {
	var in In
	if err := decodeBody(r, &in); err != nil {
		h.respondFailure(w, err, "")
		return
	}
	item, err := s.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.respondFailure(w, err, fallback)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func deleteOne[T any, In any](h *Handler, s *resource.Synchronizer[T, In], w http.ResponseWriter, r *http.Request, fallback string) {
	if err := s.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.respondFailure(w, err, fallback)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProducts godoc
// @Summary List products
// @Tags Products
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} middleware.Denial
// @Router /products [get]
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	listPage(h, h.products, w, r, "Failed to fetch products")
}

// GetProduct godoc
// @Summary Get a product
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} model.Product
// @Failure 404 {object} ErrorResponse
// @Router /products/{id} [get]
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	getOne(h, h.products, w, r, "Failed to fetch product")
}

// CreateProduct godoc
// @Summary Create a product
// @Tags Products
// @Accept json
// @Produce json
// @Param request body model.ProductInput true "Product"
// @Success 201 {object} model.Product
// @Failure 403 {object} middleware.Denial
// @Failure 422 {object} ErrorResponse
// @Router /products [post]
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	createOne(h, h.products, w, r, "Failed to create product")
}

// UpdateProduct godoc
// @Summary Update a product
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body model.ProductInput true "Fields to change"
// @Success 200 {object} model.Product
// @Router /products/{id} [put]
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	updateOne(h, h.products, w, r, "Failed to update product")
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags Products
// @Param id path string true "Product ID"
// @Success 204
// @Router /products/{id} [delete]
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, h.products, w, r, "Failed to delete product")
}

// OrderDetail adds lifecycle and total checks to an order.
type OrderDetail struct {
	model.Order
	ItemsTotal    model.Amount        `json:"itemsTotal"`
	TotalMismatch bool                `json:"totalMismatch"`
	NextStatuses  []model.OrderStatus `json:"nextStatuses"`
}

func detail(o *model.Order) OrderDetail {
	next := o.Status.NextStatuses()
	if next == nil {
		next = []model.OrderStatus{}
	}
	return OrderDetail{
		Order:         *o,
		ItemsTotal:    o.ItemsTotal(),
		TotalMismatch: o.TotalMismatch(),
		NextStatuses:  next,
	}
}

// ListOrders godoc
// @Summary List orders
// @Description Admins see every order, other accounts only their own.
// @Tags Orders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /orders [get]
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	listPage(h, h.orders.Synchronizer, w, r, "Failed to fetch orders")
}

// GetOrder godoc
// @Summary Get an order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} OrderDetail
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id} [get]
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondFailure(w, err, "Failed to fetch order")
		return
	}
	respondJSON(w, http.StatusOK, detail(order))
}

// CreateOrder godoc
// @Summary Place an order
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body model.OrderInput true "Order"
// @Success 201 {object} model.Order
// @Failure 422 {object} ErrorResponse
// @Router /orders [post]
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	createOne(h, h.orders.Synchronizer, w, r, "Failed to create order")
}

// UpdateOrderStatus godoc
// @Summary Move an order along its lifecycle
// @Description The current status is fetched first; illegal transitions are refused without calling the backend.
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body model.OrderStatusUpdate true "New status"
// @Success 200 {object} OrderDetail
// @Failure 422 {object} ErrorResponse
// @Router /orders/{id}/status [put]
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req model.OrderStatusUpdate
	if err := decodeBody(r, &req); err != nil {
		h.respondFailure(w, err, "")
		return
	}

	id := r.PathValue("id")
	current, ok := h.orders.Find(id)
	if !ok {
		fetched, err := h.orders.Get(r.Context(), id)
		if err != nil {
			h.respondFailure(w, err, "Failed to fetch order")
			return
		}
		current = *fetched
	}

	updated, err := h.orders.SetStatus(r.Context(), current, req.Status)
	if err != nil {
		h.respondFailure(w, err, "Failed to update order status")
		return
	}
	respondJSON(w, http.StatusOK, detail(updated))
}

// ListCategories godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} middleware.Denial
// @Router /categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	listPage(h, h.categories, w, r, "Failed to fetch categories")
}

// GetCategory godoc
// @Summary Get a category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} model.Category
// @Router /categories/{id} [get]
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	getOne(h, h.categories, w, r, "Failed to fetch category")
}

// CreateCategory godoc
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param request body model.CategoryInput true "Category"
// @Success 201 {object} model.Category
// @Router /categories [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	createOne(h, h.categories, w, r, "Failed to create category")
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param request body model.CategoryInput true "Fields to change"
// @Success 200 {object} model.Category
// @Router /categories/{id} [put]
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	updateOne(h, h.categories, w, r, "Failed to update category")
}

// DeleteCategory godoc
// @Summary Delete a category
// @Tags Categories
// @Param id path string true "Category ID"
// @Success 204
// @Router /categories/{id} [delete]
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, h.categories, w, r, "Failed to delete category")
}

// ListSettings godoc
// @Summary List settings
// @Tags Settings
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} map[string]interface{}
// @Router /settings [get]
func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	listPage(h, h.settings.Synchronizer, w, r, "Failed to load settings")
}

// PublicSettings godoc
// @Summary Settings visible without signing in
// @Tags Settings
// @Produce json
// @Success 200 {object} map[string]string
// @Router /settings/public [get]
func (h *Handler) PublicSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.settings.Public(r.Context())
	if err != nil {
		h.respondFailure(w, err, "Failed to load settings")
		return
	}
	respondJSON(w, http.StatusOK, values)
}

// GetSetting godoc
// @Summary Get a setting
// @Tags Settings
// @Produce json
// @Param id path string true "Setting key"
// @Success 200 {object} model.Setting
// @Router /settings/{id} [get]
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	getOne(h, h.settings.Synchronizer, w, r, "Failed to fetch setting")
}

// CreateSetting godoc
// @Summary Create a setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body model.SettingInput true "Setting"
// @Success 201 {object} model.Setting
// @Router /settings [post]
func (h *Handler) CreateSetting(w http.ResponseWriter, r *http.Request) {
	var in model.SettingInput
	if err := decodeBody(r, &in); err != nil {
		h.respondFailure(w, err, "")
		return
	}
	if in.Key == "" {
		h.respondFailure(w, apiclient.Validation("Key is required"), "")
		return
	}
	if in.Type != nil && !in.Type.Valid() {
		h.respondFailure(w, apiclient.Validation("Unknown setting type"), "")
		return
	}
	item, err := h.settings.Create(r.Context(), in)
	if err != nil && item == nil {
		h.respondFailure(w, err, "Failed to create setting")
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// UpdateSetting godoc
// @Summary Update a setting
// @Tags Settings
// @Accept json
// @Produce json
// @Param id path string true "Setting key"
// @Param request body model.SettingInput true "Fields to change"
// @Success 200 {object} model.Setting
// @Router /settings/{id} [put]
func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	updateOne(h, h.settings.Synchronizer, w, r, "Failed to update setting")
}

// DeleteSetting godoc
// @Summary Delete a setting
// @Tags Settings
// @Param id path string true "Setting key"
// @Success 204
// @Router /settings/{id} [delete]
func (h *Handler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, h.settings.Synchronizer, w, r, "Failed to delete setting")
}

// ListUsers godoc
// @Summary List accounts
// @Tags Users
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} middleware.Denial
// @Router /users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	listPage(h, h.users, w, r, "Failed to fetch users")
}

// GetUser godoc
// @Summary Get an account
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Router /users/{id} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	getOne(h, h.users, w, r, "Failed to fetch user")
}

// UpdateUser godoc
// @Summary Update an account
// @Tags Users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body model.UserPatch true "Fields to change"
// @Success 200 {object} model.User
// @Router /users/{id} [put]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	updateOne(h, h.users, w, r, "Failed to update user")
}

// DeleteUser godoc
// @Summary Delete an account
// @Tags Users
// @Param id path string true "User ID"
// @Success 204
// @Router /users/{id} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, h.users, w, r, "Failed to delete user")
}

// DashboardView is the landing screen.
type DashboardView struct {
	Stats        *model.DashboardStats `json:"stats,omitempty"`
	RecentOrders []model.Order         `json:"recentOrders"`
	Errors       []string              `json:"errors,omitempty"`
}

// Dashboard godoc
// @Summary Dashboard figures and the latest orders
// @Description Stats and recent orders are fetched concurrently; either may fail on its own.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} DashboardView
// @Router /dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var (
		view             = DashboardView{RecentOrders: []model.Order{}}
		statsErr, recErr error
	)

	// Each half fails on its own, so neither cancels the other.
	ctx := r.Context()
	var g errgroup.Group
	g.Go(func() error {
		view.Stats, statsErr = h.dashboard.Stats(ctx)
		return nil
	})
	g.Go(func() error {
		page, err := h.recent.List(ctx, 1, recentOrdersLimit)
		if err != nil {
			recErr = err
			return nil
		}
		if page.Items != nil {
			view.RecentOrders = page.Items
		}
		return nil
	})
	_ = g.Wait()

	if statsErr != nil {
		view.Errors = append(view.Errors, apiclient.Message(statsErr, "Failed to load dashboard stats"))
	}
	if recErr != nil {
		view.Errors = append(view.Errors, apiclient.Message(recErr, "Failed to load recent orders"))
	}
	if statsErr != nil && recErr != nil {
		h.respondFailure(w, errors.Join(statsErr, recErr), "Failed to load dashboard")
		return
	}
	respondJSON(w, http.StatusOK, view)
}
