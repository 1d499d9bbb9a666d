package killswitch

import "testing"

func TestNewIsRunning(t *testing.T) {
	t.Parallel()
	ks := New()
	if !ks.IsRunning() || ks.ShouldStop() || ks.IsPaused() {
		t.Fatalf("expected fresh switch to be Running")
	}
}

func TestGracefulShutdown(t *testing.T) {
	t.Parallel()
	ks := New()
	ks.Shutdown("test")
	if !ks.ShouldStop() || ks.State() != ShuttingDown {
		t.Fatalf("expected ShuttingDown")
	}
	if ks.Reason() != "test" {
		t.Fatalf("reason = %q, want %q", ks.Reason(), "test")
	}
}

func TestEmergencyStop(t *testing.T) {
	t.Parallel()
	ks := New()
	ks.EmergencyStop("critical")
	if !ks.ShouldStop() || ks.State() != EmergencyStop {
		t.Fatalf("expected EmergencyStop")
	}
}

func TestPauseResume(t *testing.T) {
	t.Parallel()
	ks := New()
	ks.Pause()
	if !ks.IsPaused() || ks.ShouldStop() {
		t.Fatalf("expected Paused, not stopped")
	}
	ks.Resume()
	if !ks.IsRunning() {
		t.Fatalf("expected Running after Resume")
	}
}

func TestTogglePause(t *testing.T) {
	t.Parallel()
	ks := New()
	ks.TogglePause()
	if !ks.IsPaused() {
		t.Fatalf("expected Paused after toggle")
	}
	ks.TogglePause()
	if !ks.IsRunning() {
		t.Fatalf("expected Running after second toggle")
	}
}

func TestCannotResumeFromShutdown(t *testing.T) {
	t.Parallel()
	ks := New()
	ks.Shutdown("test")
	ks.Resume()
	if !ks.ShouldStop() {
		t.Fatalf("shutdown must be absorbing: resume should have no effect")
	}
}

func TestCannotPauseFromEmergencyStop(t *testing.T) {
	t.Parallel()
	ks := New()
	ks.EmergencyStop("test")
	ks.TogglePause()
	if ks.State() != EmergencyStop {
		t.Fatalf("emergency stop must be absorbing")
	}
}
