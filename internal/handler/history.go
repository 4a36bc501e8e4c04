package handler

import (
	"net/http"
	"strconv"
)

// ListHistory returns delivery log entries, newest first
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := h.history.List(r.Context(), owner, limit)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": logs,
		"total":   len(logs),
	})
}

// HistoryStats returns per-status delivery counts
func (h *Handler) HistoryStats(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	stats, err := h.history.Stats(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to compute history stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
