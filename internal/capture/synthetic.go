package capture

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// MarkerColor is pure green, inside the default marker detector's HSV range.
var MarkerColor = color.RGBA{G: 255, A: 255}

// MarkerFrame renders a black BGR frame with a filled marker disc centred on
// p. p is in normalized coordinates with Y pointing up, the convention the
// marker detector reports in. The caller closes the returned Mat.
func MarkerFrame(width, height int, p detector.Point3D, radius int) gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	center := image.Pt(
		int(math.Round(p.X*float64(width))),
		int(math.Round((1-p.Y)*float64(height))),
	)
	gocv.Circle(&m, center, radius, MarkerColor, -1)
	return m
}

// MarkerSequence renders one marker frame per path point followed by blank
// frames with no marker, so a tracker sees the motion end.
func MarkerSequence(width, height int, path []detector.Point3D, radius, blank int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, len(path)+blank)
	for _, p := range path {
		m := MarkerFrame(width, height, p, radius)
		frames = append(frames, &m)
	}
	for i := 0; i < blank; i++ {
		m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
		frames = append(frames, &m)
	}
	return frames
}

// CloseFrames closes every frame in frames.
func CloseFrames(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
