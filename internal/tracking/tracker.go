// Package tracking follows one hand joint across frames and cuts its path
// into gesture candidates.
package tracking

import (
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// Config controls how a joint path is segmented.
type Config struct {
	// Joint is the landmark index to follow.
	Joint int
	// BufferSize caps the number of positions in one candidate.
	BufferSize int
	// StillFrames is how many consecutive still frames end a movement.
	StillFrames int
	// StillDistance is the largest step between frames that counts as still.
	StillDistance float64
	// MinPathLength is the fewest positions a candidate may have. Shorter
	// movements are discarded as jitter.
	MinPathLength int
	// LostFrames is how many consecutive frames without a hand end a movement.
	LostFrames int
}

// DefaultConfig follows the index fingertip and emits candidates of at least
// seven positions, enough for six observation symbols.
func DefaultConfig() Config {
	return Config{
		Joint:         detector.IndexTip,
		BufferSize:    60,
		StillFrames:   5,
		StillDistance: 0.01,
		MinPathLength: 7,
		LostFrames:    3,
	}
}

// Tracker accumulates positions of a single joint. It is not safe for
// concurrent use; the capture loop owns it.
type Tracker struct {
	config Config
	path   []detector.Point3D
	still  int
	lost   int
}

// New creates a Tracker.
func New(config Config) (*Tracker, error) {
	if config.Joint < 0 || config.Joint >= detector.NumLandmarks {
		return nil, fmt.Errorf("joint %d is not a landmark index", config.Joint)
	}
	if config.MinPathLength < 2 {
		return nil, fmt.Errorf("min path length must be at least 2, got %d", config.MinPathLength)
	}
	if config.BufferSize < config.MinPathLength {
		return nil, fmt.Errorf("buffer size %d is below min path length %d", config.BufferSize, config.MinPathLength)
	}
	if config.StillFrames < 1 || config.LostFrames < 1 {
		return nil, fmt.Errorf("still frames and lost frames must be positive")
	}
	if config.StillDistance < 0 {
		return nil, fmt.Errorf("still distance must not be negative, got %v", config.StillDistance)
	}

	return &Tracker{
		config: config,
		path:   make([]detector.Point3D, 0, config.BufferSize),
	}, nil
}

// Update feeds the detections of one frame. Only the first hand is followed.
// It returns a finished candidate path and true when a movement ended in
// this frame.
func (t *Tracker) Update(hands []detector.HandLandmarks) ([]detector.Point3D, bool) {
	if len(hands) == 0 {
		t.lost++
		if t.lost < t.config.LostFrames {
			return nil, false
		}
		path, ok := t.finish()
		t.path = t.path[:0]
		t.still = 0
		return path, ok
	}
	t.lost = 0

	p, _ := hands[0].Joint(t.config.Joint)
	if len(t.path) == 0 {
		t.path = append(t.path, p)
		return nil, false
	}

	// Still frames are not recorded; a stationary joint has no bearing.
	if detector.Distance(t.path[len(t.path)-1], p) <= t.config.StillDistance {
		t.still++
		if t.still < t.config.StillFrames {
			return nil, false
		}
		path, ok := t.finish()
		t.restart(p)
		return path, ok
	}

	t.still = 0
	t.path = append(t.path, p)
	if len(t.path) < t.config.BufferSize {
		return nil, false
	}
	path, ok := t.finish()
	t.restart(p)
	return path, ok
}

// Reset drops the current path.
func (t *Tracker) Reset() {
	t.path = t.path[:0]
	t.still = 0
	t.lost = 0
}

// Len returns the number of positions in the current path.
func (t *Tracker) Len() int {
	return len(t.path)
}

func (t *Tracker) finish() ([]detector.Point3D, bool) {
	if len(t.path) < t.config.MinPathLength {
		return nil, false
	}
	return append([]detector.Point3D(nil), t.path...), true
}

func (t *Tracker) restart(p detector.Point3D) {
	t.path = append(t.path[:0], p)
	t.still = 0
}
