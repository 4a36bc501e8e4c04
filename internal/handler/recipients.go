package handler

import (
	"errors"
	"net/http"

	"github.com/mailpilot/mailpilot/internal/model"
	"github.com/mailpilot/mailpilot/internal/spreadsheet"
)

// --- Import ---

// ImportRecipients replaces the owner's recipients with the rows of the
// uploaded "file" form field.
func (h *Handler) ImportRecipients(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "The uploaded file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "Expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "The file field is required")
		return
	}
	defer file.Close()

	if !spreadsheet.Supported(header.Filename) {
		writeError(w, http.StatusBadRequest, "invalid_file", "Only .xlsx and .csv files are supported")
		return
	}

	res, err := h.recipients.Import(r.Context(), owner, file, header.Filename)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to import recipients")
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// --- List / Get ---

// ListRecipients returns the owner's recipients in import order
func (h *Handler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	recipients, err := h.recipients.List(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list recipients")
		return
	}
	if recipients == nil {
		recipients = []model.Recipient{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipients": recipients,
		"total":      len(recipients),
	})
}

// GetRecipient returns one recipient
func (h *Handler) GetRecipient(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "Recipient ID is required")
		return
	}

	rec, err := h.recipients.Get(r.Context(), owner, id)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to get recipient")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// --- Preview ---

// PreviewRecipient renders the subject and body query parameters for one
// recipient.
func (h *Handler) PreviewRecipient(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	p, err := h.recipients.Preview(r.Context(), owner, r.PathValue("id"), q.Get("subject"), q.Get("body"))
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to render preview")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

type previewRequest struct {
	RecipientID string `json:"recipientId"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// Preview renders templates for an optional recipient. Without one the
// templates are returned unchanged.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req previewRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	p, err := h.recipients.Preview(r.Context(), owner, req.RecipientID, req.Subject, req.Body)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to render preview")
		return
	}

	writeJSON(w, http.StatusOK, p)
}
