// Package gesture turns tracked motion into observation symbols, keeps the
// labeled training corpus, trains one hidden Markov model per example and
// recognizes new motion against those models.
package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// Symbol is a quantized motion direction in [0, Alphabet()).
type Symbol int

// PositionPair holds two consecutive positions of a tracked joint.
type PositionPair struct {
	Start detector.Point3D `json:"start"`
	End   detector.Point3D `json:"end"`
}

// Quantizer maps planar motion bearings onto equally wide angular buckets.
type Quantizer struct {
	width    float64
	alphabet int
}

// NewQuantizer creates a Quantizer whose buckets are widthDegrees wide.
// The width must divide 360 evenly.
func NewQuantizer(widthDegrees float64) (*Quantizer, error) {
	if widthDegrees <= 0 || widthDegrees > 360 {
		return nil, fmt.Errorf("bucket width must be in (0, 360], got %v", widthDegrees)
	}
	k := 360 / widthDegrees
	if k != math.Trunc(k) {
		return nil, fmt.Errorf("bucket width %v does not divide 360", widthDegrees)
	}

	return &Quantizer{width: widthDegrees, alphabet: int(k)}, nil
}

// Alphabet returns the number of distinct symbols.
func (q *Quantizer) Alphabet() int {
	return q.alphabet
}

// Quantize returns the symbol for the motion from start to end. Only the X/Y
// plane is considered; start == end yields bearing 0.
func (q *Quantizer) Quantize(start, end detector.Point3D) Symbol {
	return q.Bucket(Bearing(start, end))
}

// Bucket returns the symbol for a bearing in degrees. Any angle is accepted
// and normalized into [0, 360) first.
func (q *Quantizer) Bucket(degrees float64) Symbol {
	degrees = math.Mod(degrees, 360)
	if degrees < 0 {
		degrees += 360
	}

	s := int(degrees / q.width)
	// -tiny + 360 rounds to 360.
	if s >= q.alphabet {
		s = q.alphabet - 1
	}
	return Symbol(s)
}

// QuantizePairs converts consecutive position pairs into a symbol sequence.
func (q *Quantizer) QuantizePairs(pairs []PositionPair) []Symbol {
	symbols := make([]Symbol, len(pairs))
	for i, p := range pairs {
		symbols[i] = q.Quantize(p.Start, p.End)
	}
	return symbols
}

// QuantizePath converts a path of positions into len(path)-1 symbols.
func (q *Quantizer) QuantizePath(path []detector.Point3D) []Symbol {
	return q.QuantizePairs(PairsFromPath(path))
}

// Bearing returns the planar direction from start to end in degrees,
// normalized to [0, 360).
func Bearing(start, end detector.Point3D) float64 {
	theta := math.Atan2(end.Y-start.Y, end.X-start.X) * 180 / math.Pi
	if theta < 0 {
		theta += 360
	}
	return theta
}

// PairsFromPath splits a path into its consecutive position pairs.
func PairsFromPath(path []detector.Point3D) []PositionPair {
	if len(path) < 2 {
		return nil
	}

	pairs := make([]PositionPair, len(path)-1)
	for i := 1; i < len(path); i++ {
		pairs[i-1] = PositionPair{Start: path[i-1], End: path[i]}
	}
	return pairs
}
