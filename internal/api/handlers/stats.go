package handlers

import (
	"net/http"
	"sort"

	"github.com/eshaffer321/gst-reconcile/internal/api/dto"
	"github.com/eshaffer321/gst-reconcile/internal/infrastructure/storage"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{Base: NewBase(repo)}
}

// Get handles GET /api/stats - aggregate result statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	// Map to a slice sorted by mode for a stable response
	modes := make([]dto.ModeStatsResponse, 0, len(stats.ModeStats))
	for mode, ms := range stats.ModeStats {
		modes = append(modes, dto.ModeStatsResponse{
			Mode:         mode,
			Count:        ms.Count,
			MatchedCount: ms.MatchedCount,
			AverageScore: ms.AverageScore,
		})
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].Mode < modes[j].Mode })

	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		TotalResults:    stats.TotalResults,
		MatchedCount:    stats.MatchedCount,
		PerfectCount:    stats.PerfectCount,
		NoMatchCount:    stats.NoMatchCount,
		AverageMaxScore: stats.AverageMaxScore,
		ModeStats:       modes,
	})
}
