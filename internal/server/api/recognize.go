package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
)

// RecognizeHandler handles POST /api/recognize.
type RecognizeHandler struct {
	recognizer *gesture.Recognizer
}

// NewRecognizeHandler creates a new RecognizeHandler backed by r.
func NewRecognizeHandler(r *gesture.Recognizer) *RecognizeHandler {
	return &RecognizeHandler{recognizer: r}
}

type recognizeResponse struct {
	Matched       bool     `json:"matched"`
	Label         string   `json:"label,omitempty"`
	ExampleID     string   `json:"example_id,omitempty"`
	Index         *int     `json:"index,omitempty"`
	LogLikelihood *float64 `json:"log_likelihood,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
	States        []int    `json:"states,omitempty"`
	Symbols       []int    `json:"symbols"`
}

// ServeHTTP recognizes one motion. An unmatched motion is a 200 with
// matched=false, never an error.
func (h *RecognizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in motionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	symbols, err := in.symbols(h.recognizer.Quantizer())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := recognizeResponse{Symbols: make([]int, len(symbols))}
	for i, s := range symbols {
		resp.Symbols[i] = int(s)
	}

	if res, ok := h.recognizer.RecognizeSymbols(symbols); ok {
		resp.Matched = true
		resp.Label = res.Label
		resp.ExampleID = res.ExampleID
		resp.Index = &res.Index
		resp.LogLikelihood = &res.LogLikelihood
		resp.Threshold = &res.Threshold
		resp.States = res.States
	}

	writeJSON(w, http.StatusOK, resp)
}

// RetrainHandler handles POST /api/retrain.
type RetrainHandler struct {
	recognizer *gesture.Recognizer
}

// NewRetrainHandler creates a new RetrainHandler backed by r.
func NewRetrainHandler(r *gesture.Recognizer) *RetrainHandler {
	return &RetrainHandler{recognizer: r}
}

type retrainResponse struct {
	Trained  bool `json:"trained"`
	Examples int  `json:"examples"`
}

// ServeHTTP rebuilds every class model. On failure the previous models stay
// in use and the response is 422.
func (h *RetrainHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.recognizer.Retrain(context.WithoutCancel(r.Context())); err != nil {
		if isTrainingError(err) || errors.Is(err, gesture.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to retrain")
		return
	}

	writeJSON(w, http.StatusOK, retrainResponse{
		Trained:  h.recognizer.Trained(),
		Examples: len(h.recognizer.Examples()),
	})
}
