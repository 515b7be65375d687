package api

import (
	"errors"
	"io"
	"net/http"

	service "github.com/okian/faceattr/internal/app"
	"github.com/okian/faceattr/pkg/logger"
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the file itself.
const multipartOverhead = 1 << 20

// AnalyzeHandler handles face analysis uploads.
type AnalyzeHandler struct {
	deps Dependencies
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps}
}

type analyzeResponse struct {
	Race        string             `json:"race"`
	RaceProbs   map[string]float64 `json:"race_probs"`
	Gender      string             `json:"gender"`
	GenderProb  float64            `json:"gender_prob"`
	GenderProbs map[string]float64 `json:"gender_probs"`
	Age         string             `json:"age"`
	AgeProb     float64            `json:"age_prob"`
	AgeProbs    map[string]float64 `json:"age_probs"`
}

func newAnalyzeResponse(a *service.Analysis) analyzeResponse {
	r := a.Result
	return analyzeResponse{
		Race:        r.Race.Label,
		RaceProbs:   r.Race.Distribution.Map(),
		Gender:      r.Gender.Label,
		GenderProb:  r.Gender.Prob,
		GenderProbs: r.Gender.Distribution.Map(),
		Age:         r.Age.Label,
		AgeProb:     r.Age.Prob,
		AgeProbs:    r.Age.Distribution.Map(),
	}
}

// HandleAnalyze handles POST /api/py/analyze-face with a multipart "file" field.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()
	limit := h.deps.MaxUploadBytes()

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, codeFileTooLarge, service.ErrFileTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, ErrMissingFile.Error())
		return
	}
	defer file.Close()

	// one byte past the limit is enough for the service to reject it
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	logger.Get().Debug(ctx, "upload received",
		logger.String("filename", header.Filename),
		logger.Int("bytes", len(data)))

	analysis, err := h.deps.Analyze(ctx, data)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalyzeResponse(analysis))
}
