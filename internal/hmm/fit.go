package hmm

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Re-estimation defaults.
const (
	// DefaultTolerance is the relative log-likelihood change below which
	// re-estimation is considered converged.
	DefaultTolerance = 1e-4
	// DefaultVarianceFloor is the smallest emission variance a state may have.
	DefaultVarianceFloor = 0.1
)

// FitOptions controls Baum-Welch re-estimation.
type FitOptions struct {
	// Tolerance is the relative log-likelihood improvement that stops
	// re-estimation. Non-positive values use DefaultTolerance.
	Tolerance float64

	// MaxIterations caps the number of re-estimation steps.
	// Zero runs until convergence.
	MaxIterations int

	// VarianceFloor bounds every emission variance from below.
	// Non-positive values use DefaultVarianceFloor.
	VarianceFloor float64
}

// FitResult describes a finished re-estimation run.
type FitResult struct {
	Model *Model
	// LogLikelihood is log P(obs | Model) for the returned model.
	LogLikelihood float64
	Iterations    int
	Converged     bool
}

// Fit estimates an ergodic model with the given number of states from a single
// observation sequence.
//
// Initialization is deterministic: the sequence is cut into contiguous time
// segments, one per state, and state i's emission is fit from segment i;
// initial and transition distributions start uniform. Re-estimation then runs
// Baum-Welch until the relative log-likelihood change drops below the
// tolerance or MaxIterations is reached. The context is checked between
// iterations.
func Fit(ctx context.Context, obs []float64, states int, opts FitOptions) (*FitResult, error) {
	if len(obs) == 0 {
		return nil, ErrEmptySequence
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}
	if opts.VarianceFloor <= 0 {
		opts.VarianceFloor = DefaultVarianceFloor
	}

	m, err := segmentedModel(obs, states, opts.VarianceFloor)
	if err != nil {
		return nil, err
	}

	prev := math.Inf(-1)
	for iter := 0; ; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logPi, logA := m.logParams()
		logB := m.logEmissions(obs)
		alpha, ll := forward(logPi, logA, logB)
		if math.IsNaN(ll) || math.IsInf(ll, 0) {
			return nil, ErrNonFiniteLikelihood
		}

		if iter > 0 && converged(prev, ll, opts.Tolerance) {
			return &FitResult{Model: m, LogLikelihood: ll, Iterations: iter, Converged: true}, nil
		}
		if opts.MaxIterations > 0 && iter >= opts.MaxIterations {
			return &FitResult{Model: m, LogLikelihood: ll, Iterations: iter}, nil
		}

		beta := backward(logA, logB)
		m = m.reestimate(obs, alpha, beta, logA, logB, ll, opts.VarianceFloor)
		prev = ll
	}
}

// segmentedModel builds the starting point for Fit.
func segmentedModel(obs []float64, states int, varianceFloor float64) (*Model, error) {
	m, err := NewErgodic(states)
	if err != nil {
		return nil, err
	}

	steps := len(obs)
	for i := 0; i < states; i++ {
		start := i * steps / states
		end := (i + 1) * steps / states
		if start >= steps {
			start = steps - 1
		}
		if end <= start {
			end = start + 1
		}

		m.Emissions[i] = fitGaussian(obs[start:end], nil, varianceFloor)
	}

	return m, nil
}

// fitGaussian returns the weighted maximum likelihood Gaussian for x, with the
// variance raised to at least floor. A nil weights slice weighs every sample 1.
func fitGaussian(x, weights []float64, floor float64) Gaussian {
	mean := stat.Mean(x, weights)
	variance := stat.MomentAbout(2, x, mean, weights)
	return Gaussian{Mean: mean, Variance: math.Max(variance, floor)}
}

// converged reports whether the relative change from prev to cur is below tol.
func converged(prev, cur, tol float64) bool {
	delta := math.Abs(cur - prev)
	if prev == 0 {
		return delta < tol
	}
	return delta/math.Abs(prev) < tol
}

// reestimate performs one Baum-Welch M-step and returns the updated model.
// Rows or states that received no posterior mass keep their previous values.
func (m *Model) reestimate(obs []float64, alpha, beta, logA, logB [][]float64, ll, varianceFloor float64) *Model {
	n := m.States()
	steps := len(obs)
	next := m.Clone()

	// gamma[i][t] = P(state i at t | obs)
	gamma := make([][]float64, n)
	for i := 0; i < n; i++ {
		gamma[i] = make([]float64, steps)
		for t := 0; t < steps; t++ {
			gamma[i][t] = math.Exp(alpha[t][i] + beta[t][i] - ll)
		}
	}

	initial := make([]float64, n)
	for i := 0; i < n; i++ {
		initial[i] = gamma[i][0]
	}
	if sum := floats.Sum(initial); sum > 0 {
		floats.Scale(1/sum, initial)
		next.Initial = initial
	}

	// Expected transition counts summed over time.
	if steps > 1 {
		row := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				var xi float64
				for t := 0; t < steps-1; t++ {
					xi += math.Exp(alpha[t][i] + logA[i][j] + logB[t+1][j] + beta[t+1][j] - ll)
				}
				row[j] = xi
			}
			sum := floats.Sum(row)
			if sum <= 0 || math.IsNaN(sum) {
				continue
			}
			for j := 0; j < n; j++ {
				next.Transitions.Set(i, j, row[j]/sum)
			}
		}
	}

	for i := 0; i < n; i++ {
		if sum := floats.Sum(gamma[i]); sum <= 0 || math.IsNaN(sum) {
			continue
		}
		g := fitGaussian(obs, gamma[i], varianceFloor)
		if math.IsNaN(g.Mean) || math.IsNaN(g.Variance) {
			continue
		}
		next.Emissions[i] = g
	}

	return next
}
