// Package api provides the HTTP handlers for training examples, recognition
// and action bindings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// ExampleHandler handles HTTP requests for training example resources.
type ExampleHandler struct {
	recognizer *gesture.Recognizer
}

// NewExampleHandler creates a new ExampleHandler backed by r.
func NewExampleHandler(r *gesture.Recognizer) *ExampleHandler {
	return &ExampleHandler{recognizer: r}
}

// ServeHTTP routes /api/examples and /api/examples/{id}.
func (h *ExampleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/examples")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.get(w, r, path)
}

// motionInput carries a motion in one of three forms. Exactly one must be set.
type motionInput struct {
	Pairs   []gesture.PositionPair `json:"pairs"`
	Path    []detector.Point3D     `json:"path"`
	Symbols []int                  `json:"symbols"`
}

var (
	errNoMotion       = errors.New("one of pairs, path or symbols is required")
	errAmbiguousInput = errors.New("only one of pairs, path or symbols may be given")
)

// symbols quantizes whichever form of motion was supplied.
func (in motionInput) symbols(q *gesture.Quantizer) ([]gesture.Symbol, error) {
	given := 0
	for _, n := range []int{len(in.Pairs), len(in.Path), len(in.Symbols)} {
		if n > 0 {
			given++
		}
	}
	switch {
	case given == 0:
		return nil, errNoMotion
	case given > 1:
		return nil, errAmbiguousInput
	}

	switch {
	case len(in.Pairs) > 0:
		return q.QuantizePairs(in.Pairs), nil
	case len(in.Path) > 0:
		return q.QuantizePath(in.Path), nil
	}

	symbols := make([]gesture.Symbol, len(in.Symbols))
	for i, s := range in.Symbols {
		symbols[i] = gesture.Symbol(s)
	}
	return symbols, nil
}

type createExampleRequest struct {
	motionInput
	Label            string   `json:"label"`
	AcceptanceFactor *float64 `json:"acceptance_factor"`
}

type exampleResponse struct {
	ID                   string   `json:"id"`
	Label                string   `json:"label"`
	Symbols              []int    `json:"symbols"`
	AcceptanceFactor     float64  `json:"acceptance_factor"`
	CalibratedLikelihood *float64 `json:"calibrated_likelihood"`
	CreatedAt            string   `json:"created_at"`
}

type listExamplesResponse struct {
	Examples []exampleResponse `json:"examples"`
}

// trainingFailedResponse reports an example that was stored but could not be
// trained into the classifier.
type trainingFailedResponse struct {
	Error   string          `json:"error"`
	Example exampleResponse `json:"example"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toExampleResponse(e gesture.Example) exampleResponse {
	symbols := make([]int, len(e.Symbols))
	for i, s := range e.Symbols {
		symbols[i] = int(s)
	}

	resp := exampleResponse{
		ID:               e.ID,
		Label:            e.Label,
		Symbols:          symbols,
		AcceptanceFactor: e.AcceptanceFactor,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
	if e.Calibrated {
		ll := e.CalibratedLikelihood
		resp.CalibratedLikelihood = &ll
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/examples.
func (h *ExampleHandler) list(w http.ResponseWriter, r *http.Request) {
	examples := h.recognizer.Examples()

	response := listExamplesResponse{
		Examples: make([]exampleResponse, 0, len(examples)),
	}
	for _, e := range examples {
		response.Examples = append(response.Examples, toExampleResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/examples/{id}.
func (h *ExampleHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	e, err := h.recognizer.Example(id)
	if err != nil {
		if errors.Is(err, gesture.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Example not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get example")
		return
	}

	writeJSON(w, http.StatusOK, toExampleResponse(e))
}

// create handles POST /api/examples. The example is trained immediately; a
// training failure answers 422 with the stored example.
func (h *ExampleHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	symbols, err := req.symbols(h.recognizer.Quantizer())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	factor := h.recognizer.Config().DefaultAcceptanceFactor
	if req.AcceptanceFactor != nil {
		factor = *req.AcceptanceFactor
	}

	// Training outlives a client that hangs up; the example is already stored.
	e, err := h.recognizer.AddSymbols(context.WithoutCancel(r.Context()), req.Label, symbols, factor)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, toExampleResponse(e))
	case errors.Is(err, gesture.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case e.ID != "" && isTrainingError(err):
		writeJSON(w, http.StatusUnprocessableEntity, trainingFailedResponse{
			Error:   err.Error(),
			Example: toExampleResponse(e),
		})
	default:
		writeError(w, http.StatusInternalServerError, "Failed to add example")
	}
}

func isTrainingError(err error) bool {
	return errors.Is(err, gesture.ErrConvergenceFailure) ||
		errors.Is(err, gesture.ErrInsufficientData) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
