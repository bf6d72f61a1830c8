package api

import (
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"solver/internal/monitor"
	"solver/internal/repository"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handlers - HTTP обработчики сервисных endpoint'ов
type Handlers struct {
	monitor *monitor.Monitor
	history *repository.ExecutionRepository // nil = история не ведётся
	logger  *zap.Logger
}

// NewHandlers создаёт обработчики
func NewHandlers(m *monitor.Monitor, history *repository.ExecutionRepository, logger *zap.Logger) *Handlers {
	return &Handlers{
		monitor: m,
		history: history,
		logger:  logger.Named("api"),
	}
}

// HealthHandler - GET /health
//
// healthy/degraded -> 200, unhealthy -> 503.
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := h.monitor.Health()

	code := http.StatusOK
	if health.Status == monitor.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, health)
}

// StatsHandler - GET /api/v1/stats
func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.monitor.Stats())
}

// ExecutionsHandler - GET /api/v1/executions?limit=N
func (h *Handlers) ExecutionsHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, http.StatusNotFound, "execution history is not enabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	records, err := h.history.GetRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load executions", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load executions")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"executions": records})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, map[string]string{"error": message})
}
