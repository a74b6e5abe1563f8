package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/resource"
	"github.com/shopadmin/internal/scheduler"
	"github.com/shopadmin/internal/service"
	"github.com/shopadmin/internal/session"
)

// RecentOrders lists orders without going through the orders cache.
type RecentOrders interface {
	List(ctx context.Context, page, limit int) (model.Page[model.Order], error)
}

// Handler serves the admin console. It holds the process-wide session
// and one synchronizer per collection.
type Handler struct {
	session    *session.Controller
	products   *resource.Products
	orders     *resource.Orders
	categories *resource.Categories
	settings   *resource.Settings
	users      *resource.Users
	dashboard  *service.Dashboard
	recent     RecentOrders
	scheduler  *scheduler.Scheduler
	apiBase    string
	logger     *slog.Logger
}

type Deps struct {
	Session    *session.Controller
	Products   *resource.Products
	Orders     *resource.Orders
	Categories *resource.Categories
	Settings   *resource.Settings
	Users      *resource.Users
	Dashboard  *service.Dashboard
	Recent     RecentOrders
	Scheduler  *scheduler.Scheduler
	APIBase    string
	Logger     *slog.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		session:    d.Session,
		products:   d.Products,
		orders:     d.Orders,
		categories: d.Categories,
		settings:   d.Settings,
		users:      d.Users,
		dashboard:  d.Dashboard,
		recent:     d.Recent,
		scheduler:  d.Scheduler,
		apiBase:    d.APIBase,
		logger:     logger,
	}
}

// ErrorResponse is the body of every failed console call.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Kind   string              `json:"kind,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondFailure maps a failed call back onto an HTTP status.
func (h *Handler) respondFailure(w http.ResponseWriter, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrAuthInProgress):
		status, fallback = http.StatusConflict, ""
	case errors.Is(err, session.ErrNotAuthenticated):
		status, fallback = http.StatusUnauthorized, ""
	case errors.Is(err, resource.ErrUnsupported):
		status, fallback = http.StatusMethodNotAllowed, ""
	}

	resp := ErrorResponse{Error: apiclient.Message(err, fallback)}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		if status == http.StatusInternalServerError {
			status = apiErr.Kind.HTTPStatus()
		}
		resp.Kind = apiErr.Kind.String()
		resp.Fields = apiErr.Fields
	}
	if status >= 500 {
		h.logger.Warn("console call failed", "status", status, "error", err)
	}
	respondJSON(w, status, resp)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apiclient.Validation("invalid request body")
	}
	return nil
}

func paging(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return model.NormalizePaging(page, limit)
}

// Health godoc
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// JobStatus describes one background job.
type JobStatus struct {
	Name    string  `json:"name"`
	NextRun *string `json:"nextRun,omitempty"`
}

// Status godoc
// @Summary Background job status
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"scheduler": false, "jobs": []JobStatus{}}
	if h.scheduler != nil {
		jobs := make([]JobStatus, 0)
		for _, name := range h.scheduler.Jobs() {
			js := JobStatus{Name: name}
			if next := h.scheduler.NextRun(name); next != nil {
				s := next.Format("2006-01-02T15:04:05Z07:00")
				js.NextRun = &s
			}
			jobs = append(jobs, js)
		}
		resp["scheduler"] = h.scheduler.IsRunning()
		resp["jobs"] = jobs
	}
	respondJSON(w, http.StatusOK, resp)
}
