package api

import "net/http"

// CleanupHandler handles memory cleanup requests.
type CleanupHandler struct {
	deps Dependencies
}

// NewCleanupHandler creates a new cleanup handler.
func NewCleanupHandler(deps Dependencies) *CleanupHandler {
	return &CleanupHandler{deps: deps}
}

// HandleCleanup handles POST /api/py/cleanup. It always answers 200; a failed
// cleanup is reported in the status field.
func (h *CleanupHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	report := h.deps.Cleanup(r.Context())
	writeJSON(w, http.StatusOK, statusResponse{Status: report.Status, Message: report.Message})
}
