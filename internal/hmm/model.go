// Package hmm implements hidden Markov models over an ergodic state graph with
// one Gaussian emission density per state.
//
// All probabilities are handled in the log domain. A model is trained from a
// single observation sequence with Baum-Welch re-estimation (see Fit) and
// evaluated with the forward recursion (see LogLikelihood).
package hmm

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrEmptySequence is returned when an operation receives no observations.
	ErrEmptySequence = errors.New("hmm: empty observation sequence")
	// ErrNonFiniteLikelihood is returned when re-estimation degenerates and the
	// sequence likelihood is no longer a finite number.
	ErrNonFiniteLikelihood = errors.New("hmm: non-finite likelihood")
)

// Gaussian is a univariate normal emission density.
type Gaussian struct {
	Mean     float64
	Variance float64
}

// LogProb returns the log density of x.
func (g Gaussian) LogProb(x float64) float64 {
	return distuv.Normal{Mu: g.Mean, Sigma: math.Sqrt(g.Variance)}.LogProb(x)
}

// Model is a hidden Markov model with a fully connected transition graph.
type Model struct {
	// Initial holds the initial state distribution.
	Initial []float64
	// Transitions is the row-stochastic N×N state transition matrix.
	Transitions *mat.Dense
	// Emissions holds the emission density of every state.
	Emissions []Gaussian
}

// NewErgodic creates a model with the given number of states, a uniform
// initial distribution, uniform transitions between every pair of states and
// standard normal emissions.
func NewErgodic(states int) (*Model, error) {
	if states <= 0 {
		return nil, fmt.Errorf("hmm: state count must be positive, got %d", states)
	}

	p := 1 / float64(states)
	initial := make([]float64, states)
	trans := make([]float64, states*states)
	emissions := make([]Gaussian, states)
	for i := range initial {
		initial[i] = p
		emissions[i] = Gaussian{Mean: 0, Variance: 1}
	}
	for i := range trans {
		trans[i] = p
	}

	return &Model{
		Initial:     initial,
		Transitions: mat.NewDense(states, states, trans),
		Emissions:   emissions,
	}, nil
}

// States returns the number of hidden states.
func (m *Model) States() int {
	return len(m.Initial)
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	c := &Model{
		Initial:     append([]float64(nil), m.Initial...),
		Transitions: mat.DenseCopyOf(m.Transitions),
		Emissions:   append([]Gaussian(nil), m.Emissions...),
	}
	return c
}

// logParams returns the log initial distribution and log transition matrix.
func (m *Model) logParams() ([]float64, [][]float64) {
	n := m.States()
	logPi := make([]float64, n)
	logA := make([][]float64, n)
	for i := 0; i < n; i++ {
		logPi[i] = math.Log(m.Initial[i])
		logA[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			logA[i][j] = math.Log(m.Transitions.At(i, j))
		}
	}
	return logPi, logA
}

// logEmissions returns b[t][i], the log density of obs[t] under state i.
func (m *Model) logEmissions(obs []float64) [][]float64 {
	b := make([][]float64, len(obs))
	for t, o := range obs {
		b[t] = make([]float64, m.States())
		for i, e := range m.Emissions {
			b[t][i] = e.LogProb(o)
		}
	}
	return b
}
