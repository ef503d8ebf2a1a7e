package smoother

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestEWMA_FirstStepPassesThrough(t *testing.T) {
	s := New(testLogger(), 3600, 10, "")
	if got := s.Step("BTC", 2.5, time.Unix(1000, 0)); got != 2.5 {
		t.Errorf("first step: expected 2.5, got %v", got)
	}
}

func TestEWMA_HalflifeConverges(t *testing.T) {
	s := New(testLogger(), 3600, 10, "")
	t0 := time.Unix(1000, 0)
	s.Step("BTC", 100, t0)

	// One halflife later the smoothed value sits halfway to the input.
	got := s.Step("BTC", 200, t0.Add(3600*time.Second))
	if math.Abs(got-150) > 1e-9 {
		t.Errorf("after one halflife: expected 150, got %v", got)
	}
}

func TestEWMA_ResetOnLargeJump(t *testing.T) {
	s := New(testLogger(), 3600, 0.1, "")
	t0 := time.Unix(1000, 0)
	s.Step("BTC", 100, t0)

	// 50% jump with a 10% reset threshold: state discarded, value
	// adopted as-is.
	got := s.Step("BTC", 150, t0.Add(time.Second))
	if got != 150 {
		t.Errorf("after reset: expected 150, got %v", got)
	}
}

func TestEWMA_SmallChangeSmoothed(t *testing.T) {
	s := New(testLogger(), 3600, 0.5, "")
	t0 := time.Unix(1000, 0)
	s.Step("BTC", 100, t0)

	got := s.Step("BTC", 110, t0.Add(time.Second))
	if got >= 110 || got <= 100 {
		t.Errorf("small change must smooth between 100 and 110, got %v", got)
	}
}

func TestEWMA_StatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s := New(testLogger(), 3600, 10, path)
	t0 := time.Unix(1000, 0)
	s.Step("BTC", 100, t0)

	s2 := New(testLogger(), 3600, 10, path)
	got := s2.Step("BTC", 200, t0.Add(3600*time.Second))
	if math.Abs(got-150) > 1e-9 {
		t.Errorf("reloaded state: expected 150, got %v", got)
	}
}

func TestEWMA_CorruptStateFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(testLogger(), 3600, 10, path)
	if got := s.Step("BTC", 42, time.Unix(1000, 0)); got != 42 {
		t.Errorf("expected pass-through after corrupt state, got %v", got)
	}
}

func TestNull_PassesThrough(t *testing.T) {
	var n Null
	if got := n.Step("BTC", 7, time.Now()); got != 7 {
		t.Errorf("expected 7, got %v", got)
	}
}
