package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for marker detection.
type Config struct {
	// LowerHSV and UpperHSV bound the marker color in OpenCV HSV space
	// (H in [0, 180), S and V in [0, 256)).
	LowerHSV [3]float64
	UpperHSV [3]float64

	// MinArea is the smallest marker blob, as a fraction of the frame area,
	// that counts as a detection.
	MinArea float64

	// BlurSize is the Gaussian kernel size applied before thresholding.
	// It must be odd.
	BlurSize int
}

// DefaultConfig returns a Config tuned for a saturated green fingertip marker.
func DefaultConfig() Config {
	return Config{
		LowerHSV: [3]float64{40, 80, 60},
		UpperHSV: [3]float64{85, 255, 255},
		MinArea:  0.0005,
		BlurSize: 11,
	}
}
