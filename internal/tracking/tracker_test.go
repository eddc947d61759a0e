package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/detector"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := New(DefaultConfig())
	require.NoError(t, err)
	return tr
}

// feed runs frames through tr and collects every emitted path.
func feed(tr *Tracker, frames [][]detector.HandLandmarks) [][]detector.Point3D {
	var out [][]detector.Point3D
	for _, f := range frames {
		if path, ok := tr.Update(f); ok {
			out = append(out, path)
		}
	}
	return out
}

func stillFrames(p detector.Point3D, n int) [][]detector.HandLandmarks {
	return detector.PathFrames([]detector.Point3D{p}, n)
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"joint out of range", func(c *Config) { c.Joint = detector.NumLandmarks }},
		{"min path too short", func(c *Config) { c.MinPathLength = 1 }},
		{"buffer below min path", func(c *Config) { c.BufferSize = 3 }},
		{"zero still frames", func(c *Config) { c.StillFrames = 0 }},
		{"zero lost frames", func(c *Config) { c.LostFrames = 0 }},
		{"negative still distance", func(c *Config) { c.StillDistance = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestTracker_EmitsPathWhenJointStops(t *testing.T) {
	tr := newTestTracker(t)

	arc := detector.ArcPath(detector.Point3D{X: 0.5, Y: 0.5}, 0.2, 0, 300, 10)
	frames := detector.PathFrames(arc, 1)
	frames = append(frames, stillFrames(arc[len(arc)-1], 5)...)

	paths := feed(tr, frames)
	require.Len(t, paths, 1)
	assert.Equal(t, arc, paths[0])

	// The stop point seeds the next movement.
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_DiscardsJitter(t *testing.T) {
	tr := newTestTracker(t)

	short := []detector.Point3D{{X: 0.1}, {X: 0.2}, {X: 0.3}}
	frames := detector.PathFrames(short, 1)
	frames = append(frames, stillFrames(short[2], 5)...)

	assert.Empty(t, feed(tr, frames))
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_EmitsWhenBufferFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 8
	tr, err := New(cfg)
	require.NoError(t, err)

	line := make([]detector.Point3D, 12)
	for i := range line {
		line[i] = detector.Point3D{X: 0.05 * float64(i)}
	}

	paths := feed(tr, detector.PathFrames(line, 1))
	require.Len(t, paths, 1)
	assert.Equal(t, line[:8], paths[0])
	// The last buffered point starts the next path, followed by four more.
	assert.Equal(t, 5, tr.Len())
}

func TestTracker_HandLost(t *testing.T) {
	tr := newTestTracker(t)

	arc := detector.ArcPath(detector.Point3D{X: 0.5, Y: 0.5}, 0.2, 90, -180, 8)
	frames := detector.PathFrames(arc, 1)
	frames = append(frames, nil, nil)

	assert.Empty(t, feed(tr, frames), "two missing frames should not end the movement")

	path, ok := tr.Update(nil)
	require.True(t, ok)
	assert.Equal(t, arc, path)
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_FollowsConfiguredJoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Joint = detector.Wrist
	tr, err := New(cfg)
	require.NoError(t, err)

	tip := detector.Point3D{X: 0.5, Y: 0.5}
	tr.Update([]detector.HandLandmarks{detector.PointingLandmarks(tip)})
	tr.Update([]detector.HandLandmarks{detector.PointingLandmarks(detector.Point3D{X: 0.6, Y: 0.5})})

	require.Equal(t, 2, tr.Len())
	assert.InDelta(t, 0.05, tr.path[0].Y, 1e-9, "wrist sits below the fingertip")
}

func TestTracker_Reset(t *testing.T) {
	tr := newTestTracker(t)
	feed(tr, detector.PathFrames([]detector.Point3D{{X: 0}, {X: 0.5}}, 1))
	require.Equal(t, 2, tr.Len())

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
}
