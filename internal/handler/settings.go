package handler

import (
	"errors"
	"net/http"

	"github.com/mailpilot/mailpilot/internal/service"
)

// GetSMTPSettings returns the owner's settings without password material
func (h *Handler) GetSMTPSettings(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	settings, err := h.settings.Get(r.Context(), owner)
	if err != nil {
		if errors.Is(err, service.ErrMissingTransportConfig) {
			writeError(w, http.StatusNotFound, "not_configured", "SMTP settings have not been saved yet")
			return
		}
		h.writeServiceError(w, r, err, "Failed to get SMTP settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// SaveSMTPSettings stores the owner's settings
func (h *Handler) SaveSMTPSettings(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req service.SaveSettingsInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	settings, err := h.settings.Save(r.Context(), owner, req)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to save SMTP settings")
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

type testSettingsRequest struct {
	Password string `json:"password,omitempty"`
}

// TestSMTPSettings sends a test message to the configured user address.
// A failed connection is reported in the body with a 200.
func (h *Handler) TestSMTPSettings(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req testSettingsRequest
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
	}

	res, err := h.settings.Test(r.Context(), owner, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to test SMTP settings")
		return
	}

	writeJSON(w, http.StatusOK, res)
}
