// Package app runs the live recognition pipeline: camera frames go through
// the hand detector and the path tracker, finished motions are classified and
// recognized labels trigger their bound plugin actions.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tracking"
)

// Config holds configuration options for the application.
type Config struct {
	// Recognizer classifies finished motions. Required.
	Recognizer *gesture.Recognizer
	// Store holds the action bindings. Without it no actions run.
	Store *store.Store
	// Plugins resolves action bindings. When nil a manager for PluginDir is
	// created; share one with the HTTP API so both see the same manifests.
	Plugins   *plugin.Manager
	PluginDir string
	// CameraSource is a device index ("0") or a video file path.
	CameraSource string
	Detector     detector.Config
	Tracking     tracking.Config
	// PluginTimeout bounds a single plugin run.
	PluginTimeout time.Duration
}

// DefaultConfig returns a Config for the first camera device. Recognizer and
// Store still have to be set.
func DefaultConfig() Config {
	return Config{
		CameraSource:  "0",
		Detector:      detector.DefaultConfig(),
		Tracking:      tracking.DefaultConfig(),
		PluginTimeout: plugin.DefaultTimeout,
	}
}

// Recognition is the outcome of classifying one tracked motion.
type Recognition struct {
	Matched bool
	// Result is only set when Matched is.
	Result  gesture.Result
	Symbols []gesture.Symbol
	Path    []detector.Point3D
}

// ActionResult is the outcome of running a bound plugin action.
type ActionResult struct {
	Label    string
	Plugin   string
	Action   string
	Response *plugin.Response
	Err      error
}

// App is the main application that orchestrates gesture detection and action execution.
type App struct {
	config     Config
	recognizer *gesture.Recognizer
	camera     capture.Camera
	detector   detector.Detector
	tracker    *tracking.Tracker
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	enabled bool
	mu      sync.RWMutex

	onRecognition []func(Recognition)
	onAction      []func(ActionResult)

	cancel  context.CancelFunc
	done    chan struct{}
	actions sync.WaitGroup
}

// New creates a new App. The marker detector is used when its configuration
// is valid; otherwise detection falls back to a mock that never sees a hand.
func New(config Config) (*App, error) {
	if config.Recognizer == nil {
		return nil, errors.New("app: recognizer is required")
	}

	tracker, err := tracking.New(config.Tracking)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:     config,
		recognizer: config.Recognizer,
		camera:     capture.NewCamera(config.CameraSource),
		tracker:    tracker,
		pluginMgr:  config.Plugins,
		pluginExec: plugin.NewExecutor(config.PluginTimeout),
	}

	if a.pluginMgr == nil {
		a.pluginMgr = plugin.NewManager(config.PluginDir)
	}

	if md, err := detector.NewMarkerDetector(config.Detector); err == nil {
		a.detector = md
		log.Println("Using colour marker detection")
	} else {
		log.Printf("Marker detector not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// SetEnabled enables or disables gesture detection.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. It has no effect on a running pipeline.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// OnRecognition registers fn to be called for every classified motion,
// matched or not. Callbacks run on the pipeline goroutine.
func (a *App) OnRecognition(fn func(Recognition)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onRecognition = append(a.onRecognition, fn)
}

// OnAction registers fn to be called after every plugin run.
func (a *App) OnAction(fn func(ActionResult)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onAction = append(a.onAction, fn)
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// Start opens the camera and begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.runPipeline(ctx, a.camera, a.done)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipeline, waits for running actions and releases
// the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	a.actions.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Done is closed when the running pipeline exits, either through Stop or
// because a recorded source ran out of frames. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.done
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Recognizer returns the recognizer motions are classified with.
func (a *App) Recognizer() *gesture.Recognizer {
	return a.recognizer
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
