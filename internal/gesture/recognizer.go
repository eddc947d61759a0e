package gesture

import (
	"context"
	"fmt"
	"log"
	"math"
	"slices"
	"sync"
)

// Repository persists training examples across restarts. Trained models are
// never persisted; they are rebuilt from the examples.
type Repository interface {
	SaveExample(e Example) error
	UpdateCalibration(id string, logLikelihood float64) error
	ListExamples() ([]Example, error)
}

// Result describes an accepted recognition.
type Result struct {
	Label     string
	ExampleID string
	Index     int
	// LogLikelihood is the query's log-likelihood under the winning model.
	LogLikelihood float64
	// Threshold is the log-likelihood the query had to reach:
	// calibrated likelihood + ln(acceptance factor).
	Threshold float64
	// States is the Viterbi state path of the query through the winning model.
	States []int
}

// Recognizer owns the training corpus and the classifier. Adding an example
// retrains every class model from scratch; recognition reads the last
// successfully trained model set without blocking on training.
type Recognizer struct {
	config     Config
	quantizer  *Quantizer
	examples   *Examples
	classifier *Classifier
	repo       Repository

	// mu serializes AddTrainingExample, Retrain and Load.
	mu sync.Mutex
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithRepository writes new examples and refreshed calibrations through to repo.
func WithRepository(repo Repository) Option {
	return func(r *Recognizer) {
		r.repo = repo
	}
}

// NewRecognizer creates an untrained Recognizer.
func NewRecognizer(config Config, opts ...Option) (*Recognizer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	q, err := NewQuantizer(config.BucketWidthDegrees)
	if err != nil {
		return nil, err
	}

	r := &Recognizer{
		config:     config,
		quantizer:  q,
		examples:   NewExamples(config.ObservationLength, q.Alphabet()),
		classifier: NewClassifier(config),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the recognizer configuration.
func (r *Recognizer) Config() Config {
	return r.config
}

// Quantizer returns the feature quantizer used for raw positions.
func (r *Recognizer) Quantizer() *Quantizer {
	return r.quantizer
}

// AddTrainingExample quantizes pairs, stores them as a new example and
// retrains. If training fails the example stays stored, the previous models
// stay in use and the training error is returned alongside the example.
func (r *Recognizer) AddTrainingExample(ctx context.Context, label string, pairs []PositionPair, acceptanceFactor float64) (Example, error) {
	return r.AddSymbols(ctx, label, r.quantizer.QuantizePairs(pairs), acceptanceFactor)
}

// AddSymbols is AddTrainingExample for an already quantized sequence.
func (r *Recognizer) AddSymbols(ctx context.Context, label string, symbols []Symbol, acceptanceFactor float64) (Example, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added, err := r.examples.build(label, symbols, acceptanceFactor)
	if err != nil {
		return Example{}, err
	}
	id := added.ID

	// Persist first so a failed write leaves memory and storage in step.
	if r.repo != nil {
		if err := r.repo.SaveExample(added); err != nil {
			return Example{}, fmt.Errorf("save example %s: %w", id, err)
		}
	}
	if err := r.examples.insert(added); err != nil {
		return Example{}, err
	}

	trainErr := r.retrainLocked(ctx)

	// Re-read so the caller sees the calibration of a successful run.
	added, err = r.examples.Get(id)
	if err != nil {
		return Example{}, err
	}
	return added, trainErr
}

// Retrain rebuilds every class model from the current corpus.
func (r *Recognizer) Retrain(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retrainLocked(ctx)
}

// Load restores the examples held by the repository and trains on them.
// It must be called before any example is added.
func (r *Recognizer) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.repo.ListExamples()
	if err != nil {
		return fmt.Errorf("list examples: %w", err)
	}

	for _, e := range stored {
		if err := r.examples.Restore(e); err != nil {
			log.Printf("Skipping stored example %s (%s): %v", e.ID, e.Label, err)
		}
	}

	log.Printf("Loaded %d training examples", r.examples.Len())
	if r.examples.Len() == 0 {
		return nil
	}
	return r.retrainLocked(ctx)
}

func (r *Recognizer) retrainLocked(ctx context.Context) error {
	all := r.examples.All()

	calibrated, err := r.classifier.Train(ctx, all)
	if err != nil {
		log.Printf("Training %d examples failed: %v", len(all), err)
		return fmt.Errorf("train %d examples: %w", len(all), err)
	}

	for i, e := range all {
		if err := r.examples.setCalibratedLikelihood(e.ID, calibrated[i]); err != nil {
			return err
		}
		if r.repo != nil {
			if err := r.repo.UpdateCalibration(e.ID, calibrated[i]); err != nil {
				log.Printf("Failed to persist calibration for %s: %v", e.ID, err)
			}
		}
	}

	log.Printf("Trained %d gesture models", len(all))
	return nil
}

// Recognize quantizes pairs and returns the best matching label when its
// likelihood reaches the class threshold. Any classification failure and any
// sub-threshold likelihood both report no match.
func (r *Recognizer) Recognize(pairs []PositionPair) (Result, bool) {
	return r.RecognizeSymbols(r.quantizer.QuantizePairs(pairs))
}

// RecognizeSymbols is Recognize for an already quantized sequence.
func (r *Recognizer) RecognizeSymbols(symbols []Symbol) (Result, bool) {
	c, err := r.classifier.Classify(symbols)
	if err != nil {
		return Result{}, false
	}

	// likelihood >= calibrated * factor, in the log domain.
	threshold := c.Example.CalibratedLikelihood + math.Log(c.Example.AcceptanceFactor)
	if !(c.LogLikelihood >= threshold) {
		return Result{}, false
	}

	return Result{
		Label:         c.Example.Label,
		ExampleID:     c.Example.ID,
		Index:         c.Index,
		LogLikelihood: c.LogLikelihood,
		Threshold:     threshold,
		States:        c.States,
	}, true
}

// Label returns the recognized label for pairs, or "" when nothing matches.
func (r *Recognizer) Label(pairs []PositionPair) string {
	res, ok := r.Recognize(pairs)
	if !ok {
		return ""
	}
	return res.Label
}

// Examples returns a snapshot of the training corpus in insertion order.
func (r *Recognizer) Examples() []Example {
	return r.examples.All()
}

// Example returns a single training example.
func (r *Recognizer) Example(id string) (Example, error) {
	return r.examples.Get(id)
}

// Trained reports whether recognition has a model set to work with.
func (r *Recognizer) Trained() bool {
	return r.classifier.Trained()
}

// Labels returns the distinct training labels in the order they were first
// added.
func (r *Recognizer) Labels() []string {
	var labels []string
	seen := make(map[string]bool)
	for _, e := range r.examples.All() {
		if !seen[e.Label] {
			seen[e.Label] = true
			labels = append(labels, e.Label)
		}
	}
	return labels
}

// HasLabel reports whether any training example carries label.
func (r *Recognizer) HasLabel(label string) bool {
	return slices.Contains(r.Labels(), label)
}
