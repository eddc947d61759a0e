package hmm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogLikelihood returns log P(obs | m) computed with the forward recursion.
// The model is not modified, so concurrent calls are safe.
// A sequence the model cannot produce yields math.Inf(-1).
func (m *Model) LogLikelihood(obs []float64) (float64, error) {
	if len(obs) == 0 {
		return 0, ErrEmptySequence
	}

	logPi, logA := m.logParams()
	_, ll := forward(logPi, logA, m.logEmissions(obs))
	return ll, nil
}

// forward returns the log forward variables alpha[t][i] and the sequence
// log-likelihood.
func forward(logPi []float64, logA, logB [][]float64) ([][]float64, float64) {
	n := len(logPi)
	steps := len(logB)

	alpha := make([][]float64, steps)
	alpha[0] = make([]float64, n)
	for i := 0; i < n; i++ {
		alpha[0][i] = logPi[i] + logB[0][i]
	}

	terms := make([]float64, n)
	for t := 1; t < steps; t++ {
		alpha[t] = make([]float64, n)
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				terms[i] = alpha[t-1][i] + logA[i][j]
			}
			alpha[t][j] = floats.LogSumExp(terms) + logB[t][j]
		}
	}

	return alpha, floats.LogSumExp(alpha[steps-1])
}

// backward returns the log backward variables beta[t][i].
func backward(logA, logB [][]float64) [][]float64 {
	n := len(logA)
	steps := len(logB)

	beta := make([][]float64, steps)
	beta[steps-1] = make([]float64, n)

	terms := make([]float64, n)
	for t := steps - 2; t >= 0; t-- {
		beta[t] = make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				terms[j] = logA[i][j] + logB[t+1][j] + beta[t+1][j]
			}
			beta[t][i] = floats.LogSumExp(terms)
		}
	}

	return beta
}

// Decode returns the most likely hidden state path for obs together with the
// log probability of that path. Ties between predecessor states resolve to the
// lowest state index.
func (m *Model) Decode(obs []float64) ([]int, float64, error) {
	if len(obs) == 0 {
		return nil, 0, ErrEmptySequence
	}

	n := m.States()
	logPi, logA := m.logParams()
	logB := m.logEmissions(obs)

	delta := make([]float64, n)
	for i := 0; i < n; i++ {
		delta[i] = logPi[i] + logB[0][i]
	}

	// backtrack[t][j] is the best predecessor of state j at step t.
	backtrack := make([][]int, len(obs))
	for t := 1; t < len(obs); t++ {
		next := make([]float64, n)
		backtrack[t] = make([]int, n)
		for j := 0; j < n; j++ {
			best, arg := math.Inf(-1), 0
			for i := 0; i < n; i++ {
				if p := delta[i] + logA[i][j]; p > best {
					best, arg = p, i
				}
			}
			next[j] = best + logB[t][j]
			backtrack[t][j] = arg
		}
		delta = next
	}

	last := floats.MaxIdx(delta)
	logProb := delta[last]

	path := make([]int, len(obs))
	path[len(obs)-1] = last
	for t := len(obs) - 1; t > 0; t-- {
		path[t-1] = backtrack[t][path[t]]
	}

	return path, logProb, nil
}
