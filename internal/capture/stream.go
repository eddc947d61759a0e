package capture

import (
	"context"
	"errors"
	"log"
	"time"

	"gocv.io/x/gocv"
)

// FrameHandler processes one frame. The frame is closed after it returns.
type FrameHandler func(frame *gocv.Mat)

// Stream reads frames from cam at its FPS and passes each to handle until ctx
// is canceled or a recorded source ends. Transient read errors are logged and
// skipped. It returns nil on cancellation and at the end of a recording.
func Stream(ctx context.Context, cam Camera, handle FrameHandler) error {
	if !cam.IsOpen() {
		return ErrCameraNotOpen
	}

	fps := cam.FPS()
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, err := cam.ReadFrame()
		if errors.Is(err, ErrEndOfStream) {
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrCameraNotOpen) {
				return err
			}
			log.Printf("Frame read failed: %v", err)
			continue
		}

		handle(frame)
		frame.Close()
	}
}
