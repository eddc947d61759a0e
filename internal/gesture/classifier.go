package gesture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/hmm"
)

// Classification is the best-scoring class for a symbol sequence.
type Classification struct {
	// Index is the position of the winning example in the trained corpus.
	Index int
	// LogLikelihood is the log-likelihood of the sequence under the winning model.
	LogLikelihood float64
	// Example is the winning training example as of the training run that
	// produced the model, including its calibrated likelihood.
	Example Example
	// States is the most likely hidden state path of the sequence through the
	// winning model.
	States []int
}

// fitFunc trains one model from one observation sequence.
type fitFunc func(ctx context.Context, obs []float64, states int, opts hmm.FitOptions) (*hmm.FitResult, error)

// modelSet is an immutable, index-aligned set of class models together with
// the calibrated examples they were trained from.
type modelSet struct {
	models   []*hmm.Model
	examples []Example
}

// Classifier trains one ergodic HMM per training example and classifies
// sequences against all of them. The model set is replaced atomically, so
// Classify observes either the complete previous set or the complete new one.
type Classifier struct {
	states int
	opts   hmm.FitOptions
	fit    fitFunc

	trainMu sync.Mutex
	current atomic.Pointer[modelSet]
}

// NewClassifier creates an untrained Classifier configured from cfg.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		states: cfg.ObservationLength,
		opts: hmm.FitOptions{
			Tolerance:     cfg.Tolerance,
			MaxIterations: cfg.MaxIterations,
			VarianceFloor: cfg.VarianceFloor,
		},
		fit: hmm.Fit,
	}
}

// Train fits one model per example and publishes the new set. It returns each
// example's self log-likelihood (its calibrated likelihood), index-aligned with
// examples. On error the previously published set stays in place.
func (c *Classifier) Train(ctx context.Context, examples []Example) ([]float64, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: no training examples", ErrInsufficientData)
	}
	for i, e := range examples {
		if len(e.Symbols) == 0 {
			return nil, fmt.Errorf("%w: example %d (%s) has no symbols", ErrInsufficientData, i, e.Label)
		}
	}

	c.trainMu.Lock()
	defer c.trainMu.Unlock()

	models := make([]*hmm.Model, len(examples))
	calibrated := make([]float64, len(examples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range examples {
		g.Go(func() error {
			obs := observations(examples[i].Symbols)

			res, err := c.fit(gctx, obs, c.states, c.opts)
			if err != nil {
				return fmt.Errorf("fit %q (example %d): %w", examples[i].Label, i, mapFitError(err))
			}

			ll, err := res.Model.LogLikelihood(obs)
			if err != nil {
				return fmt.Errorf("calibrate %q (example %d): %w", examples[i].Label, i, mapFitError(err))
			}
			if math.IsNaN(ll) || math.IsInf(ll, 0) {
				return fmt.Errorf("calibrate %q (example %d): %w", examples[i].Label, i, ErrConvergenceFailure)
			}

			models[i] = res.Model
			calibrated[i] = ll
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &modelSet{
		models:   models,
		examples: make([]Example, len(examples)),
	}
	for i := range examples {
		e := examples[i].clone()
		e.CalibratedLikelihood = calibrated[i]
		e.Calibrated = true
		set.examples[i] = e
	}
	c.current.Store(set)

	return calibrated, nil
}

// Classify returns the model that best explains symbols. Exact ties go to the
// lowest index. Classify only reads the published set and is safe to call
// concurrently with itself and with Train.
func (c *Classifier) Classify(symbols []Symbol) (Classification, error) {
	set := c.current.Load()
	if set == nil {
		return Classification{}, ErrNotTrained
	}
	if len(symbols) == 0 {
		return Classification{}, fmt.Errorf("%w: empty query", ErrInsufficientData)
	}

	obs := observations(symbols)
	scores := make([]float64, len(set.models))
	for i, m := range set.models {
		ll, err := m.LogLikelihood(obs)
		if err != nil || math.IsNaN(ll) {
			ll = math.Inf(-1)
		}
		scores[i] = ll
	}

	best := floats.MaxIdx(scores)
	res := Classification{
		Index:         best,
		LogLikelihood: scores[best],
		Example:       set.examples[best].clone(),
	}
	if path, _, err := set.models[best].Decode(obs); err == nil {
		res.States = path
	}
	return res, nil
}

// Trained reports whether a model set has been published.
func (c *Classifier) Trained() bool {
	return c.current.Load() != nil
}

// Len returns the number of models in the published set.
func (c *Classifier) Len() int {
	set := c.current.Load()
	if set == nil {
		return 0
	}
	return len(set.models)
}

// observations converts symbols into the emission domain of the models.
func observations(symbols []Symbol) []float64 {
	obs := make([]float64, len(symbols))
	for i, s := range symbols {
		obs[i] = float64(s)
	}
	return obs
}

// mapFitError translates hmm failures into the gesture error taxonomy.
func mapFitError(err error) error {
	switch {
	case errors.Is(err, hmm.ErrEmptySequence):
		return fmt.Errorf("%w: %v", ErrInsufficientData, err)
	case errors.Is(err, hmm.ErrNonFiniteLikelihood):
		return fmt.Errorf("%w: %v", ErrConvergenceFailure, err)
	default:
		return err
	}
}
