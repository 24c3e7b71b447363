package api

import (
	"net/http"
	"time"

	"github.com/athebyme/storesync-platform/sync-service/internal/api/handlers"
	"github.com/athebyme/storesync-platform/sync-service/internal/api/middleware"
	"github.com/athebyme/storesync-platform/sync-service/internal/security"
	"github.com/athebyme/storesync-platform/sync-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRouter настраивает маршрутизатор.
// jwtManager может быть nil - тогда маршруты доступны без аутентификации.
func SetupRouter(
	syncHandler *handlers.SyncHandler,
	storeHandler *handlers.StoreHandler,
	logger interfaces.LoggerPort,
	corsAllowedOrigins []string,
	jwtManager *security.JWTManager,
	metricsEnabled bool,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS(corsAllowedOrigins))

	r.Method(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	r.Method(http.MethodHead, "/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if metricsEnabled {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		if jwtManager != nil {
			r.Use(middleware.Auth(jwtManager, logger))
		}

		// Маршруты синхронизации товаров
		r.Route("/products/{id}", func(r chi.Router) {
			r.Post("/sync", syncHandler.SyncProduct)
			r.Delete("/remote", syncHandler.DeleteRemoteCopies)
		})

		// Маршруты для целевых магазинов
		r.Route("/stores", func(r chi.Router) {
			r.Get("/", storeHandler.ListStores)
			r.Post("/", storeHandler.AddStore)
			r.Delete("/{id}", storeHandler.RemoveStore)
		})

		// Маршруты настроек синхронизации
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", storeHandler.GetSettings)
			r.Put("/excluded-fields", storeHandler.SetExcludedFields)
			r.Put("/allowed-statuses", storeHandler.SetAllowedStatuses)
		})
	})

	return r
}
