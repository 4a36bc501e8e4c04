package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/service"
)

type confirmRequest struct {
	RecipientIDs []string `json:"recipientIds,omitempty"`
}

// ConfirmSend classifies the selected recipients so the caller can decide
// whether to force a resend.
func (h *Handler) ConfirmSend(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req confirmRequest
	if r.ContentLength != 0 {
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
			return
		}
	}

	counts, err := h.send.Confirm(r.Context(), owner, req.RecipientIDs)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to classify recipients")
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// SendResponse is the body of a completed or cancelled send
type SendResponse struct {
	model.SendSummary
	Cancelled bool `json:"cancelled,omitempty"`
}

// Send runs a batch and returns its summary. The batch is not tied to the
// client connection; use CancelSend to stop it.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req service.SendInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	summary, err := h.send.Send(context.WithoutCancel(r.Context()), owner, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SendResponse{SendSummary: *summary})
	case errors.Is(err, context.Canceled) && summary != nil:
		writeJSON(w, http.StatusOK, SendResponse{SendSummary: *summary, Cancelled: true})
	default:
		if summary != nil {
			h.log.Error().
				Err(err).
				Str("batch_id", summary.BatchID).
				Int("processed", summary.Processed()).
				Msg("batch aborted")
		}
		h.writeServiceError(w, r, err, "Failed to send emails")
	}
}

// SendProgress returns the latest progress snapshot of the owner's batch
func (h *Handler) SendProgress(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	p, err := h.send.Progress(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to load progress")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// CancelSend stops the owner's running batch after the current recipient
func (h *Handler) CancelSend(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := h.send.Cancel(owner); err != nil {
		h.writeServiceError(w, r, err, "Failed to cancel send")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}
