package server

import (
	"context"
	"net/http"
	"time"

	"mud-server/internal/engine"
	"mud-server/pkg/logger"

	"github.com/goccy/go-json"
)

const inspectTimeout = 2 * time.Second

// DebugHandler предоставляет доступ к внутреннему состоянию движка.
// Все чтения выполняются внутри игрового цикла через Inspect.
type DebugHandler struct {
	Service *engine.Service
}

func NewDebugHandler(s *engine.Service) *DebugHandler {
	return &DebugHandler{Service: s}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/stats", h.inspect(func() any { return h.Service.DebugStats() }))
	mux.HandleFunc("/debug/objects", h.inspect(func() any { return h.Service.DebugObjects() }))
	mux.HandleFunc("/debug/heartbeats", h.inspect(func() any { return h.Service.DebugHeartbeats() }))
	mux.HandleFunc("/debug/combats", h.inspect(func() any { return h.Service.DebugCombats() }))
}

// inspect строит хендлер, снимающий снимок внутри игрового цикла.
func (h *DebugHandler) inspect(snapshot func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
		defer cancel()

		var data any
		if err := h.Service.Inspect(ctx, func() { data = snapshot() }); err != nil {
			http.Error(w, "engine unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, data)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	// Разрешаем запросы с любого источника (нужно для локального debug-клиента)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")

	// Если data == nil, возвращаем пустой массив [], а не null
	if data == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.WithError(err).Warn("failed to encode debug response")
	}
}
