package app

import (
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// Repository stores the recognizer's training corpus in the SQLite store.
type Repository struct {
	examples *store.ExampleRepository
}

// NewRepository returns a gesture.Repository backed by s.
func NewRepository(s *store.Store) *Repository {
	return &Repository{examples: s.Examples()}
}

var _ gesture.Repository = (*Repository)(nil)

// SaveExample inserts e.
func (r *Repository) SaveExample(e gesture.Example) error {
	return r.examples.Create(toStoreExample(e))
}

// UpdateCalibration records the calibrated likelihood of a trained example.
func (r *Repository) UpdateCalibration(id string, logLikelihood float64) error {
	return r.examples.UpdateCalibration(id, logLikelihood)
}

// ListExamples returns every stored example in insertion order.
func (r *Repository) ListExamples() ([]gesture.Example, error) {
	stored, err := r.examples.List()
	if err != nil {
		return nil, err
	}

	examples := make([]gesture.Example, len(stored))
	for i, e := range stored {
		examples[i] = toGestureExample(e)
	}
	return examples, nil
}

func toStoreExample(e gesture.Example) *store.Example {
	symbols := make([]int, len(e.Symbols))
	for i, s := range e.Symbols {
		symbols[i] = int(s)
	}

	out := &store.Example{
		ID:               e.ID,
		Label:            e.Label,
		Symbols:          symbols,
		AcceptanceFactor: e.AcceptanceFactor,
		CreatedAt:        e.CreatedAt,
	}
	if e.Calibrated {
		ll := e.CalibratedLikelihood
		out.CalibratedLikelihood = &ll
	}
	return out
}

func toGestureExample(e *store.Example) gesture.Example {
	symbols := make([]gesture.Symbol, len(e.Symbols))
	for i, s := range e.Symbols {
		symbols[i] = gesture.Symbol(s)
	}

	out := gesture.Example{
		ID:               e.ID,
		Label:            e.Label,
		Symbols:          symbols,
		AcceptanceFactor: e.AcceptanceFactor,
		CreatedAt:        e.CreatedAt,
	}
	if e.CalibratedLikelihood != nil {
		out.CalibratedLikelihood = *e.CalibratedLikelihood
		out.Calibrated = true
	}
	return out
}
