package handler

import (
	"errors"
	"net/http"

	"github.com/mailpilot/mailpilot/internal/service"
)

// GenerateMessage drafts a confirmation message with the configured model
func (h *Handler) GenerateMessage(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req service.GenerateInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	msg, err := h.messages.Generate(r.Context(), owner, req)
	if errors.Is(err, service.ErrGenerationFailed) {
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"error": map[string]interface{}{
				"code":    "generation_failed",
				"message": generationFailedMessage,
			},
		})
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to generate message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}
