package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	frames [][]HandLandmarks
	err    error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect once any queued
// frames are used up.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// QueueFrames appends per-frame results that Detect returns one at a time,
// in order, before falling back to the hands set with SetHands.
func (m *MockDetector) QueueFrames(frames ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// Pending returns the number of queued frames not yet returned by Detect.
func (m *MockDetector) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next queued frame, the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.frames) > 0 {
		next := m.frames[0]
		m.frames = m.frames[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// PointingLandmarks returns a right hand pointing with the index finger, the
// fingertip at tip and the rest of the hand below it.
func PointingLandmarks(tip Point3D) HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: tip.X, Y: tip.Y - 0.45, Z: tip.Z}
	for i := ThumbCMC; i <= ThumbTip; i++ {
		h.Points[i] = Point3D{X: tip.X + 0.03*float64(i), Y: tip.Y - 0.40 + 0.02*float64(i), Z: tip.Z}
	}

	// Index finger extended towards the tip.
	h.Points[IndexMCP] = Point3D{X: tip.X, Y: tip.Y - 0.33, Z: tip.Z}
	h.Points[IndexPIP] = Point3D{X: tip.X, Y: tip.Y - 0.20, Z: tip.Z}
	h.Points[IndexDIP] = Point3D{X: tip.X, Y: tip.Y - 0.10, Z: tip.Z}
	h.Points[IndexTip] = tip

	// Remaining fingers curled against the palm.
	for i := MiddleMCP; i <= PinkyTip; i++ {
		finger := float64((i-MiddleMCP)/4 + 1)
		h.Points[i] = Point3D{X: tip.X - 0.05*finger, Y: tip.Y - 0.33, Z: tip.Z - 0.02}
	}

	return h
}

// ArcPath returns steps+1 points on a circle around center, starting at
// startDegrees and sweeping sweepDegrees (positive is counter-clockwise with
// Y up).
func ArcPath(center Point3D, radius, startDegrees, sweepDegrees float64, steps int) []Point3D {
	if steps < 1 {
		return nil
	}
	path := make([]Point3D, steps+1)
	for i := range path {
		theta := (startDegrees + sweepDegrees*float64(i)/float64(steps)) * math.Pi / 180
		path[i] = Point3D{
			X: center.X + radius*math.Cos(theta),
			Y: center.Y + radius*math.Sin(theta),
			Z: center.Z,
		}
	}
	return path
}

// PathFrames turns a fingertip path into per-frame detector results, one
// pointing hand per frame. Each point is repeated hold times.
func PathFrames(path []Point3D, hold int) [][]HandLandmarks {
	if hold < 1 {
		hold = 1
	}
	frames := make([][]HandLandmarks, 0, len(path)*hold)
	for _, p := range path {
		for i := 0; i < hold; i++ {
			frames = append(frames, []HandLandmarks{PointingLandmarks(p)})
		}
	}
	return frames
}
