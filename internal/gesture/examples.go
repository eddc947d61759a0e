package gesture

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Example is one labeled training sequence.
type Example struct {
	ID      string
	Label   string
	Symbols []Symbol

	// AcceptanceFactor scales the calibrated likelihood into the minimum
	// likelihood a recognition must reach. It lies in (0, 1].
	AcceptanceFactor float64

	// CalibratedLikelihood is the log-likelihood of Symbols under the model
	// trained from this example. It is only meaningful when Calibrated is set.
	CalibratedLikelihood float64
	Calibrated           bool

	CreatedAt time.Time
}

// clone returns a copy that shares no memory with e.
func (e *Example) clone() Example {
	c := *e
	c.Symbols = append([]Symbol(nil), e.Symbols...)
	return c
}

// Examples is the ordered, append-only training corpus. Insertion order
// defines the index of each example's class model.
type Examples struct {
	minLength int
	alphabet  int

	mu    sync.RWMutex
	items []*Example
	index map[string]int
}

// NewExamples creates an empty corpus accepting sequences of at least
// minLength symbols drawn from [0, alphabet).
func NewExamples(minLength, alphabet int) *Examples {
	return &Examples{
		minLength: minLength,
		alphabet:  alphabet,
		index:     make(map[string]int),
	}
}

// Add appends a new example and returns its ID.
func (s *Examples) Add(label string, symbols []Symbol, acceptanceFactor float64) (string, error) {
	e, err := s.build(label, symbols, acceptanceFactor)
	if err != nil {
		return "", err
	}
	if err := s.insert(e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// build assigns a fresh ID to a validated example without inserting it.
func (s *Examples) build(label string, symbols []Symbol, acceptanceFactor float64) (Example, error) {
	e := Example{
		ID:               uuid.New().String(),
		Label:            label,
		Symbols:          append([]Symbol(nil), symbols...),
		AcceptanceFactor: acceptanceFactor,
		CreatedAt:        time.Now(),
	}
	if err := s.validate(e); err != nil {
		return Example{}, err
	}
	return e, nil
}

// Restore re-inserts a previously stored example, keeping its ID and
// calibration.
func (s *Examples) Restore(e Example) error {
	if e.ID == "" {
		return fmt.Errorf("%w: example has no id", ErrInvalidInput)
	}
	return s.insert(e)
}

func (s *Examples) insert(e Example) error {
	if err := s.validate(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[e.ID]; exists {
		return fmt.Errorf("%w: duplicate example id %s", ErrInvalidInput, e.ID)
	}

	c := e.clone()
	s.index[c.ID] = len(s.items)
	s.items = append(s.items, &c)
	return nil
}

func (s *Examples) validate(e Example) error {
	if e.Label == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidInput)
	}
	if len(e.Symbols) == 0 {
		return fmt.Errorf("%w: no symbols", ErrInvalidInput)
	}
	if len(e.Symbols) < s.minLength {
		return fmt.Errorf("%w: %d symbols, need at least %d", ErrInvalidInput, len(e.Symbols), s.minLength)
	}
	for i, sym := range e.Symbols {
		if sym < 0 || int(sym) >= s.alphabet {
			return fmt.Errorf("%w: symbol %d at %d outside [0, %d)", ErrInvalidInput, sym, i, s.alphabet)
		}
	}
	if !validFactor(e.AcceptanceFactor) {
		return fmt.Errorf("%w: acceptance factor %v outside (0, 1]", ErrInvalidInput, e.AcceptanceFactor)
	}
	return nil
}

// Get returns a copy of the example with the given ID.
func (s *Examples) Get(id string) (Example, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Example{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.items[i].clone(), nil
}

// All returns a snapshot of every example in insertion order.
func (s *Examples) All() []Example {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Example, len(s.items))
	for i, e := range s.items {
		all[i] = e.clone()
	}
	return all
}

// Len returns the number of examples.
func (s *Examples) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// setCalibratedLikelihood records the self log-likelihood computed by a
// successful training run, overwriting any previous value.
func (s *Examples) setCalibratedLikelihood(id string, logLikelihood float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.items[i].CalibratedLikelihood = logLikelihood
	s.items[i].Calibrated = true
	return nil
}
