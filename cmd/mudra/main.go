package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alexflint/go-arg"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

type args struct {
	DB        string `arg:"--db,env:MUDRA_DB" help:"path to the SQLite database (default: ~/.mudra/mudra.db)"`
	Addr      string `arg:"--addr,env:MUDRA_ADDR" default:":8080" help:"HTTP listen address"`
	PluginDir string `arg:"--plugin-dir,env:MUDRA_PLUGIN_DIR" help:"directory holding action plugins (default: ~/.mudra/plugins)"`
	WebDir    string `arg:"--web-dir,env:MUDRA_WEB_DIR" help:"directory of static dashboard files"`
	Camera    string `arg:"--camera,env:MUDRA_CAMERA" default:"0" help:"camera device index or video file"`

	BucketWidth   float64 `arg:"--bucket-width,env:MUDRA_BUCKET_WIDTH" default:"30" help:"degrees per direction symbol; must divide 360"`
	States        int     `arg:"--states,env:MUDRA_STATES" default:"6" help:"hidden states per model and minimum example length"`
	Tolerance     float64 `arg:"--tolerance,env:MUDRA_TOLERANCE" default:"0.0001" help:"relative log-likelihood change that ends training"`
	MaxIterations int     `arg:"--max-iterations,env:MUDRA_MAX_ITERATIONS" default:"0" help:"training iteration cap, 0 for none"`
	VarianceFloor float64 `arg:"--variance-floor,env:MUDRA_VARIANCE_FLOOR" default:"0.1" help:"minimum emission variance"`
	Acceptance    float64 `arg:"--acceptance-factor,env:MUDRA_ACCEPTANCE_FACTOR" default:"0.5" help:"acceptance factor for examples that omit one"`

	NoTray   bool `arg:"--no-tray,env:MUDRA_NO_TRAY" help:"run without the system tray"`
	NoCamera bool `arg:"--no-camera,env:MUDRA_NO_CAMERA" help:"serve the HTTP API only"`
}

func (args) Version() string {
	return "mudra 0.1.0"
}

func (args) Description() string {
	return `mudra learns hand motions from examples and runs plugin actions when it recognizes them`
}

// recognizerConfig maps the training flags onto a gesture.Config.
func (a args) recognizerConfig() gesture.Config {
	cfg := gesture.DefaultConfig()
	cfg.BucketWidthDegrees = a.BucketWidth
	cfg.ObservationLength = a.States
	cfg.Tolerance = a.Tolerance
	cfg.MaxIterations = a.MaxIterations
	cfg.VarianceFloor = a.VarianceFloor
	cfg.DefaultAcceptanceFactor = a.Acceptance
	return cfg
}

func main() {
	var args args
	arg.MustParse(&args)

	fmt.Println("Mudra - Hand Gesture Recognition")

	dir, err := dataDir()
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if args.DB == "" {
		args.DB = filepath.Join(dir, "mudra.db")
	}
	if args.PluginDir == "" {
		args.PluginDir = filepath.Join(dir, "plugins")
	}

	st, err := store.New(args.DB)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	recognizer, err := gesture.NewRecognizer(args.recognizerConfig(), gesture.WithRepository(app.NewRepository(st)))
	if err != nil {
		log.Fatalf("Invalid recognizer settings: %v", err)
	}
	// A corpus that fails to train still serves; the examples are kept and
	// /api/retrain can be retried.
	if err := recognizer.Load(context.Background()); err != nil {
		log.Printf("Initial training failed: %v", err)
	}

	webDir := args.WebDir
	if webDir == "" {
		webDir = findWebDir(dir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	plugins := plugin.NewManager(args.PluginDir)
	if err := plugins.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	hub := server.NewEventHub()
	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Recognizer: recognizer,
		Plugins:    plugins,
		Events:     hub,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", args.Addr)
		if err := srv.ListenAndServe(args.Addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	var t *tray.Tray
	if !args.NoTray {
		t = tray.New()
	}

	var application *app.App
	if !args.NoCamera {
		application, err = startPipeline(args, st, recognizer, plugins, hub, t)
		if err != nil {
			log.Fatalf("Failed to start detection: %v", err)
		}
		defer application.Stop()
	}

	if t == nil {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		return
	}

	t.OnToggle(func(enabled bool) {
		if application != nil {
			application.SetEnabled(enabled)
		}
	})
	t.OnRetrain(func() {
		if err := recognizer.Retrain(context.Background()); err != nil {
			log.Printf("Retrain failed: %v", err)
		}
	})
	t.OnSettings(func() {
		log.Printf("Dashboard: http://localhost%s", args.Addr)
	})
	t.Run()
}

// startPipeline wires the camera pipeline to the event hub and the tray.
func startPipeline(args args, st *store.Store, r *gesture.Recognizer, plugins *plugin.Manager, hub *server.EventHub, t *tray.Tray) (*app.App, error) {
	cfg := app.DefaultConfig()
	cfg.Recognizer = r
	cfg.Store = st
	cfg.Plugins = plugins
	cfg.PluginDir = args.PluginDir
	cfg.CameraSource = args.Camera

	application, err := app.New(cfg)
	if err != nil {
		return nil, err
	}

	application.OnRecognition(func(rec app.Recognition) {
		hub.Publish(recognitionEvent(rec))
		if rec.Matched && t != nil {
			t.SetLastGesture(rec.Result.Label)
		}
	})
	application.OnAction(func(res app.ActionResult) {
		hub.Publish(server.Event{Type: server.EventAction, Label: res.Label})
	})

	application.SetEnabled(true)
	if err := application.Start(); err != nil {
		return nil, err
	}
	return application, nil
}

func recognitionEvent(rec app.Recognition) server.Event {
	symbols := make([]int, len(rec.Symbols))
	for i, s := range rec.Symbols {
		symbols[i] = int(s)
	}

	if !rec.Matched {
		return server.Event{Type: server.EventRejected, Symbols: symbols}
	}
	return server.Event{
		Type:          server.EventRecognized,
		Label:         rec.Result.Label,
		ExampleID:     rec.Result.ExampleID,
		LogLikelihood: rec.Result.LogLikelihood,
		Threshold:     rec.Result.Threshold,
		Symbols:       symbols,
		States:        rec.Result.States,
	}
}

// dataDir returns ~/.mudra, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
