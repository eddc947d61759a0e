package gesture

import (
	"fmt"
	"math"
)

// Config holds the tunables of the recognizer.
type Config struct {
	// BucketWidthDegrees is the angular width of one observation symbol.
	// It must divide 360 evenly (default: 30, giving 12 symbols).
	BucketWidthDegrees float64

	// ObservationLength is both the number of hidden states per class model and
	// the minimum number of symbols a training example must have (default: 6).
	ObservationLength int

	// Tolerance is the relative log-likelihood change that ends re-estimation
	// (default: 1e-4).
	Tolerance float64

	// MaxIterations caps re-estimation. Zero runs until convergence.
	MaxIterations int

	// VarianceFloor is the minimum variance of a state's emission density.
	VarianceFloor float64

	// DefaultAcceptanceFactor is applied by callers that do not supply one.
	DefaultAcceptanceFactor float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		BucketWidthDegrees:      30,
		ObservationLength:       6,
		Tolerance:               1e-4,
		MaxIterations:           0,
		VarianceFloor:           0.1,
		DefaultAcceptanceFactor: 0.5,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.BucketWidthDegrees <= 0 || c.BucketWidthDegrees > 360 {
		return fmt.Errorf("bucket width must be in (0, 360], got %v", c.BucketWidthDegrees)
	}
	if k := 360 / c.BucketWidthDegrees; k != math.Trunc(k) {
		return fmt.Errorf("bucket width %v does not divide 360", c.BucketWidthDegrees)
	}
	if c.ObservationLength <= 0 {
		return fmt.Errorf("observation length must be positive, got %d", c.ObservationLength)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %v", c.Tolerance)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max iterations must not be negative, got %d", c.MaxIterations)
	}
	if c.VarianceFloor <= 0 {
		return fmt.Errorf("variance floor must be positive, got %v", c.VarianceFloor)
	}
	if !validFactor(c.DefaultAcceptanceFactor) {
		return fmt.Errorf("default acceptance factor must be in (0, 1], got %v", c.DefaultAcceptanceFactor)
	}
	return nil
}

// validFactor reports whether f is an acceptance factor in (0, 1].
func validFactor(f float64) bool {
	return f > 0 && f <= 1
}
