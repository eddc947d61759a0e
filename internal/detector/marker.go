package detector

import (
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MarkerDetector locates a single colored marker in each frame and reports
// its centroid as a hand whose joints all sit on the marker.
type MarkerDetector struct {
	config Config
	mu     sync.Mutex
}

// NewMarkerDetector creates a MarkerDetector.
func NewMarkerDetector(config Config) (*MarkerDetector, error) {
	if config.BlurSize < 1 || config.BlurSize%2 == 0 {
		return nil, fmt.Errorf("blur size must be a positive odd number, got %d", config.BlurSize)
	}
	if config.MinArea < 0 || config.MinArea >= 1 {
		return nil, fmt.Errorf("min area must be in [0, 1), got %v", config.MinArea)
	}
	return &MarkerDetector{config: config}, nil
}

// Detect thresholds the frame in HSV space and returns the centroid of the
// marker pixels. Coordinates are normalized to [0, 1] with Y pointing up, so
// a bearing of 90 degrees is upward motion on screen.
func (d *MarkerDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, nil
	}
	if frame.Channels() != 3 {
		return nil, fmt.Errorf("expected a 3-channel BGR frame, got %d channels", frame.Channels())
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(*frame, &blurred, image.Point{X: d.config.BlurSize, Y: d.config.BlurSize}, 0, 0, gocv.BorderDefault)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(blurred, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lo, hi := d.config.LowerHSV, d.config.UpperHSV
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(lo[0], lo[1], lo[2], 0),
		gocv.NewScalar(hi[0], hi[1], hi[2], 0),
		&mask)

	total := float64(mask.Rows() * mask.Cols())
	covered := float64(gocv.CountNonZero(mask))
	if total == 0 || covered/total < d.config.MinArea {
		return nil, nil
	}

	m := gocv.Moments(mask, true)
	if m["m00"] == 0 {
		return nil, nil
	}

	p := Point3D{
		X: m["m10"] / m["m00"] / float64(mask.Cols()),
		Y: 1 - m["m01"]/m["m00"]/float64(mask.Rows()),
	}
	score := math.Min(1, covered/total/(10*math.Max(d.config.MinArea, 1e-9)))

	return []HandLandmarks{Uniform(p, score)}, nil
}

// Close releases the detector. It holds no native resources between frames.
func (d *MarkerDetector) Close() error {
	return nil
}
