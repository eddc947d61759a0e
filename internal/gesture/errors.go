package gesture

import "errors"

var (
	// ErrInvalidInput is returned when a training example is malformed: no
	// label, too few symbols, symbols outside the alphabet or an acceptance
	// factor outside (0, 1].
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a training example does not exist.
	ErrNotFound = errors.New("example not found")

	// ErrInsufficientData is returned when training or classification receives
	// an empty corpus or an empty symbol sequence.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConvergenceFailure is returned when re-estimation produces a
	// non-finite likelihood for any class model.
	ErrConvergenceFailure = errors.New("convergence failure")

	// ErrNotTrained is returned when classifying before any successful training.
	ErrNotTrained = errors.New("classifier not trained")
)
