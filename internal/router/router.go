package router

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Products  *handler.ProductHandler
	Cart      *handler.CartHandler
	Orders    *handler.OrderHandler
	Addresses *handler.AddressHandler
	Reviews   *handler.ReviewHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	h Handlers,
	db Pinger,
	appMetrics *metrics.AppMetrics,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(appMetrics))

	// Health check endpoint (no authentication required)
	r.HandleFunc("/health", health(db, logger)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Catalogue reads are public.
	api.HandleFunc("/products", h.Products.GetAll).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}", h.Products.GetByID).Methods(http.MethodGet)
	api.HandleFunc("/products/search/{keyword}", h.Products.Search).Methods(http.MethodGet)
	api.Handle("/products/{id:[0-9]+}/reviews",
		middleware.OptionalIdentity(logger)(http.HandlerFunc(h.Reviews.List))).Methods(http.MethodGet)
	api.HandleFunc("/products/{id:[0-9]+}/rating", h.Reviews.Rating).Methods(http.MethodGet)

	user := api.NewRoute().Subrouter()
	user.Use(middleware.Identity(logger))

	user.HandleFunc("/cart", h.Cart.Get).Methods(http.MethodGet)
	user.HandleFunc("/cart", h.Cart.Add).Methods(http.MethodPost)
	user.HandleFunc("/cart/items/{itemId:[0-9]+}", h.Cart.UpdateItem).Methods(http.MethodPut)
	user.HandleFunc("/cart/items/{itemId:[0-9]+}", h.Cart.RemoveItem).Methods(http.MethodDelete)

	user.HandleFunc("/orders", h.Orders.Create).Methods(http.MethodPost)
	user.HandleFunc("/orders", h.Orders.List).Methods(http.MethodGet)
	user.HandleFunc("/orders/{id:[0-9]+}", h.Orders.GetByID).Methods(http.MethodGet)
	user.HandleFunc("/orders/{id:[0-9]+}/cancel", h.Orders.Cancel).Methods(http.MethodPost)

	user.HandleFunc("/addresses", h.Addresses.Create).Methods(http.MethodPost)
	user.HandleFunc("/addresses", h.Addresses.List).Methods(http.MethodGet)
	user.HandleFunc("/addresses/{id:[0-9]+}", h.Addresses.Delete).Methods(http.MethodDelete)

	user.HandleFunc("/products/{id:[0-9]+}/reviews", h.Reviews.Create).Methods(http.MethodPost)
	user.HandleFunc("/reviews/{id:[0-9]+}", h.Reviews.Update).Methods(http.MethodPut)
	user.HandleFunc("/reviews/{id:[0-9]+}", h.Reviews.Delete).Methods(http.MethodDelete)

	user.HandleFunc("/seller/products", h.Products.Create).Methods(http.MethodPost)
	user.HandleFunc("/seller/products/{id:[0-9]+}", h.Products.Delete).Methods(http.MethodDelete)
	user.HandleFunc("/seller/products/{id:[0-9]+}/pricing", h.Products.UpdatePricing).Methods(http.MethodPut)
	user.HandleFunc("/seller/orders", h.Orders.ListSeller).Methods(http.MethodGet)
	user.HandleFunc("/seller/orders/{id:[0-9]+}/status", h.Orders.UpdateStatus).Methods(http.MethodPut)

	// Apply middleware in order: Recovery -> RequestID -> Logging -> CORS -> APIKeyAuth
	var handler http.Handler = r
	handler = middleware.APIKeyAuth(apiKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

func health(db Pinger, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Error().Err(err).Msg("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	}
}
