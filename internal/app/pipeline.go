package app

import (
	"context"
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
)

// runPipeline streams frames until ctx is canceled or the source ends.
//
// Per frame:
//  1. Detect hands (skipped while disabled)
//  2. Feed the followed joint to the tracker
//  3. When the tracker closes a motion, quantize and classify it
//  4. Run the action bound to a recognized label
func (a *App) runPipeline(ctx context.Context, cam capture.Camera, done chan struct{}) {
	defer close(done)

	err := capture.Stream(ctx, cam, func(frame *gocv.Mat) {
		a.processFrame(ctx, frame)
	})
	if err != nil {
		log.Printf("Capture stopped: %v", err)
	}
}

func (a *App) processFrame(ctx context.Context, frame *gocv.Mat) {
	if !a.IsEnabled() {
		a.tracker.Reset()
		return
	}

	d := a.Detector()
	if d == nil {
		return
	}

	hands, err := d.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return
	}

	path, ok := a.tracker.Update(hands)
	if !ok {
		return
	}
	a.RecognizePath(ctx, path)
}

// RecognizePath classifies a finished motion, notifies the recognition
// callbacks and starts the action bound to a recognized label.
func (a *App) RecognizePath(ctx context.Context, path []detector.Point3D) Recognition {
	symbols := a.recognizer.Quantizer().QuantizePath(path)
	rec := Recognition{Symbols: symbols, Path: path}

	if res, ok := a.recognizer.RecognizeSymbols(symbols); ok {
		rec.Matched = true
		rec.Result = res
		log.Printf("Gesture recognized: %s (log-likelihood %.3f, threshold %.3f)", res.Label, res.LogLikelihood, res.Threshold)
		a.executeAction(ctx, res)
	} else {
		log.Printf("Motion of %d symbols not recognized", len(symbols))
	}

	a.mu.RLock()
	callbacks := append([]func(Recognition){}, a.onRecognition...)
	a.mu.RUnlock()
	for _, fn := range callbacks {
		fn(rec)
	}

	return rec
}

// executeAction looks up the binding for a recognized label and runs its
// plugin in the background. Stop waits for running actions.
func (a *App) executeAction(ctx context.Context, res gesture.Result) {
	if a.config.Store == nil {
		return
	}

	action, err := a.config.Store.Actions().GetByLabel(res.Label)
	if err != nil {
		log.Printf("Failed to look up action for %s: %v", res.Label, err)
		return
	}
	if action == nil {
		return
	}

	p, err := a.pluginMgr.Resolve(action.PluginName, action.ActionName)
	if err != nil {
		log.Printf("Action for %s: %v", res.Label, err)
		a.notifyAction(ActionResult{Label: res.Label, Plugin: action.PluginName, Action: action.ActionName, Err: err})
		return
	}

	req := &plugin.Request{
		Action:        action.ActionName,
		Label:         res.Label,
		ExampleID:     res.ExampleID,
		LogLikelihood: res.LogLikelihood,
		Config:        action.Config,
	}

	a.actions.Go(func() {
		resp, err := a.pluginExec.Execute(ctx, p, req)
		switch {
		case err != nil:
			log.Printf("Plugin %s/%s failed: %v", p.Manifest.Name, req.Action, err)
		case !resp.Success:
			log.Printf("Plugin %s/%s reported an error: %s", p.Manifest.Name, req.Action, resp.Error)
		default:
			log.Printf("Plugin %s/%s ran for %s", p.Manifest.Name, req.Action, res.Label)
		}
		a.notifyAction(ActionResult{
			Label:    res.Label,
			Plugin:   p.Manifest.Name,
			Action:   req.Action,
			Response: resp,
			Err:      err,
		})
	})
}

func (a *App) notifyAction(r ActionResult) {
	a.mu.RLock()
	callbacks := append([]func(ActionResult){}, a.onAction...)
	a.mu.RUnlock()
	for _, fn := range callbacks {
		fn(r)
	}
}
