package api

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// SaveHandler handles save-analysis requests.
type SaveHandler struct {
	deps Dependencies
}

// NewSaveHandler creates a new save handler.
func NewSaveHandler(deps Dependencies) *SaveHandler {
	return &SaveHandler{deps: deps}
}

type saveRequest struct {
	// Predictions is kept raw so it is archived exactly as sent.
	Predictions json.RawMessage `json:"predictions"`
}

// HandleSave handles POST /api/py/save-analysis.
func (h *SaveHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes())

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, ErrBadJSON.Error()+": "+err.Error())
		return
	}
	if len(req.Predictions) == 0 || bytes.Equal(req.Predictions, []byte("null")) {
		req.Predictions = nil
	}

	if _, err := h.deps.SaveAnalysis(r.Context(), req.Predictions); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "success", Message: "Analysis saved successfully"})
}
