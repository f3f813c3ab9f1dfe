package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eshaffer321/gst-reconcile/internal/api/dto"
)

// SchemaChecker reports the applied migration version of the store.
type SchemaChecker interface {
	SchemaVersion(ctx context.Context) (int64, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	schema SchemaChecker
}

// NewHealthHandler creates a new health handler. schema may be nil.
func NewHealthHandler(schema SchemaChecker) *HealthHandler {
	return &HealthHandler{schema: schema}
}

// ServeHTTP handles the health check request. The store is unhealthy when
// its schema version cannot be read.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := dto.NewHealthResponse()
	if h.schema != nil {
		version, err := h.schema.SchemaVersion(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(dto.NewAPIError(dto.ErrCodeUnavailable, "database unavailable"))
			return
		}
		response.SchemaVersion = version
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
