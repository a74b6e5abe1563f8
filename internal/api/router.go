package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/shopadmin/internal/gate"
	"github.com/shopadmin/internal/middleware"
)

// NewRouter creates the console router. Every route is gated with the
// same tiers the screens use.
// allowedOrigins are browser origins besides the console's own that may
// call it.
func NewRouter(h *Handler, gatherer prometheus.Gatherer, logger *slog.Logger, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.Gate(h.session, gate.TierAuthenticated)
	admin := middleware.Gate(h.session, gate.TierAdmin)
	handle := func(pattern string, wrap func(http.Handler) http.Handler, fn http.HandlerFunc) {
		mux.Handle(pattern, wrap(fn))
	}

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Public routes
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/session", h.GetSession)
	mux.HandleFunc("POST /api/v1/session/login", h.Login)
	mux.HandleFunc("POST /api/v1/session/register", h.Register)
	mux.HandleFunc("POST /api/v1/session/logout", h.Logout)
	mux.HandleFunc("DELETE /api/v1/session/error", h.ClearError)
	mux.HandleFunc("GET /api/v1/auth/callback", h.AuthCallback)
	mux.HandleFunc("GET /api/v1/auth/google", h.GoogleSignIn)
	mux.HandleFunc("GET /api/v1/settings/public", h.PublicSettings)

	// Signed-in routes
	handle("GET /api/v1/dashboard", authed, h.Dashboard)
	handle("GET /api/v1/profile", authed, h.GetProfile)
	handle("PUT /api/v1/profile", authed, h.UpdateProfile)
	handle("GET /api/v1/products", authed, h.ListProducts)
	handle("GET /api/v1/products/{id}", authed, h.GetProduct)
	handle("GET /api/v1/orders", authed, h.ListOrders)
	handle("GET /api/v1/orders/{id}", authed, h.GetOrder)
	handle("POST /api/v1/orders", authed, h.CreateOrder)

	// Admin routes
	handle("POST /api/v1/products", admin, h.CreateProduct)
	handle("PUT /api/v1/products/{id}", admin, h.UpdateProduct)
	handle("DELETE /api/v1/products/{id}", admin, h.DeleteProduct)
	handle("PUT /api/v1/orders/{id}/status", admin, h.UpdateOrderStatus)

	handle("GET /api/v1/categories", admin, h.ListCategories)
	handle("POST /api/v1/categories", admin, h.CreateCategory)
	handle("GET /api/v1/categories/{id}", admin, h.GetCategory)
	handle("PUT /api/v1/categories/{id}", admin, h.UpdateCategory)
	handle("DELETE /api/v1/categories/{id}", admin, h.DeleteCategory)

	handle("GET /api/v1/settings", admin, h.ListSettings)
	handle("POST /api/v1/settings", admin, h.CreateSetting)
	handle("GET /api/v1/settings/{id}", admin, h.GetSetting)
	handle("PUT /api/v1/settings/{id}", admin, h.UpdateSetting)
	handle("DELETE /api/v1/settings/{id}", admin, h.DeleteSetting)

	handle("GET /api/v1/users", admin, h.ListUsers)
	handle("GET /api/v1/users/{id}", admin, h.GetUser)
	handle("PUT /api/v1/users/{id}", admin, h.UpdateUser)
	handle("DELETE /api/v1/users/{id}", admin, h.DeleteUser)

	// Apply global middleware
	return middleware.CORS(allowedOrigins)(middleware.RequestID(middleware.JSON(middleware.Logger(logger)(mux))))
}
