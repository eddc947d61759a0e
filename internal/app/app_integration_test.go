package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// blankFrames returns n small black frames, closed when the test ends.
func blankFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	t.Cleanup(func() {
		for _, f := range frames {
			f.Close()
		}
	})
	return frames
}

// writeRecorderPlugin installs a plugin that copies its request to
// request.json in its own directory.
func writeRecorderPlugin(t *testing.T, pluginDir string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := filepath.Join(pluginDir, "recorder")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}

	manifest, _ := json.Marshal(plugin.Manifest{
		Name:       "recorder",
		Version:    "1.0.0",
		Executable: "run.sh",
		Actions:    []string{"record"},
	})
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), manifest, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	script := "#!/bin/sh\ncat > request.json\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return filepath.Join(dir, "request.json")
}

func TestApp_DetectionPipeline_RecognizesTrackedCircle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	r, err := gesture.NewRecognizer(gesture.DefaultConfig(), gesture.WithRepository(NewRepository(s)))
	if err != nil {
		t.Fatalf("NewRecognizer() error = %v", err)
	}
	if _, err := r.AddTrainingExample(context.Background(), "Circle", gesture.PairsFromPath(circlePath()), 0.5); err != nil {
		t.Fatalf("AddTrainingExample() error = %v", err)
	}

	pluginDir := filepath.Join(tmpDir, "plugins")
	recorded := writeRecorderPlugin(t, pluginDir)
	if err := s.Actions().Create(&store.Action{
		ID:         "a1",
		Label:      "Circle",
		PluginName: "recorder",
		ActionName: "record",
		Config:     json.RawMessage(`{"key":"n"}`),
		Enabled:    true,
	}); err != nil {
		t.Fatalf("Actions().Create() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Recognizer = r
	cfg.Store = s
	cfg.PluginDir = pluginDir
	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := application.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}

	// Seven fingertip positions, then no hand until the tracker gives up.
	mockDetector := detector.NewMockDetector()
	mockDetector.QueueFrames(detector.PathFrames(circlePath(), 1)...)
	application.SetDetector(mockDetector)

	cam := capture.NewMockCamera(blankFrames(t, 12), false)
	cam.SetFPS(200)
	application.SetCamera(cam)

	recognitions := make(chan Recognition, 4)
	application.OnRecognition(func(rec Recognition) { recognitions <- rec })
	actions := make(chan ActionResult, 4)
	application.OnAction(func(res ActionResult) { actions <- res })

	application.SetEnabled(true)
	if err := application.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer application.Stop()

	select {
	case rec := <-recognitions:
		if !rec.Matched || rec.Result.Label != "Circle" {
			t.Fatalf("recognition = %+v, want Circle", rec)
		}
		if len(rec.Path) != 7 {
			t.Errorf("len(path) = %d, want 7", len(rec.Path))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no recognition before timeout")
	}

	select {
	case res := <-actions:
		if res.Err != nil {
			t.Fatalf("action error = %v", res.Err)
		}
		if res.Plugin != "recorder" || res.Action != "record" || !res.Response.Success {
			t.Errorf("unexpected action result %+v", res)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no action before timeout")
	}

	data, err := os.ReadFile(recorded)
	if err != nil {
		t.Fatalf("plugin did not record its request: %v", err)
	}
	var req plugin.Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("recorded request is not JSON: %v", err)
	}
	if req.Label != "Circle" || req.Action != "record" || string(req.Config) != `{"key":"n"}` {
		t.Errorf("unexpected plugin request %+v", req)
	}

	// The recording ends after twelve frames.
	select {
	case <-application.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop at the end of the recording")
	}
}

func TestApp_DisabledPipelineIgnoresMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	r, err := gesture.NewRecognizer(gesture.DefaultConfig())
	if err != nil {
		t.Fatalf("NewRecognizer() error = %v", err)
	}
	if _, err := r.AddTrainingExample(context.Background(), "Circle", gesture.PairsFromPath(circlePath()), 0.5); err != nil {
		t.Fatalf("AddTrainingExample() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.Recognizer = r
	application, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	mockDetector := detector.NewMockDetector()
	mockDetector.QueueFrames(detector.PathFrames(circlePath(), 1)...)
	application.SetDetector(mockDetector)

	cam := capture.NewMockCamera(blankFrames(t, 12), false)
	cam.SetFPS(200)
	application.SetCamera(cam)

	var count int
	application.OnRecognition(func(Recognition) { count++ })

	if err := application.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-application.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop at the end of the recording")
	}
	application.Stop()

	if count != 0 {
		t.Errorf("recognitions while disabled = %d, want 0", count)
	}
	if mockDetector.Pending() != 7 {
		t.Errorf("detector was called while disabled: %d frames pending", mockDetector.Pending())
	}
}
