package tray

import "testing"

func TestTray_DefaultsToEnabled(t *testing.T) {
	if !New().IsEnabled() {
		t.Error("new tray should start enabled")
	}
}

func TestTray_SetLastGestureBeforeMenu(t *testing.T) {
	tr := New()
	if got := tr.LastGesture(); got != "" {
		t.Errorf("LastGesture() = %q, want empty", got)
	}

	tr.SetLastGesture("Right circle")
	if got := tr.LastGesture(); got != "Right circle" {
		t.Errorf("LastGesture() = %q, want %q", got, "Right circle")
	}
}

func TestLastTitle(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"", "Last: none"},
		{"Wave", "Last: Wave"},
	}
	for _, tt := range tests {
		if got := lastTitle(tt.label); got != tt.want {
			t.Errorf("lastTitle(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestTray_RetrainRunsCallback(t *testing.T) {
	tr := New()
	done := make(chan struct{})
	tr.OnRetrain(func() { close(done) })

	tr.handleRetrain()
	<-done
}
