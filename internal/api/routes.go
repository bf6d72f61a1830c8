package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"solver/internal/api/middleware"
)

// SetupRoutes собирает HTTP маршруты сервисной поверхности
//
// Структура:
//
//	/health              - состояние процесса
//	/metrics             - Prometheus метрики
//	/api/v1/
//	  ├── /stats         - снимок статистики ядра
//	  └── /executions    - история исполнений (если подключена БД)
func SetupRoutes(handlers *Handlers, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))

	router.HandleFunc("/health", handlers.HealthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/stats", handlers.StatsHandler).Methods("GET")
	v1.HandleFunc("/executions", handlers.ExecutionsHandler).Methods("GET")

	return router
}
