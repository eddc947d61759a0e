// Package detector locates hands (or a marker held in one) in camera frames
// and reports their landmark positions.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks holds one detected hand in the 21-point MediaPipe layout.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Joint returns the position of landmark i, or false when i is not a
// landmark index.
func (h *HandLandmarks) Joint(i int) (Point3D, bool) {
	if h == nil || i < 0 || i >= NumLandmarks {
		return Point3D{}, false
	}
	return h.Points[i], true
}

// Uniform returns landmarks with every joint at p. Detectors that only
// locate a single point, such as a colored marker, report it this way so any
// joint index can be tracked.
func Uniform(p Point3D, score float64) HandLandmarks {
	h := HandLandmarks{Score: score}
	for i := range h.Points {
		h.Points[i] = p
	}
	return h
}
