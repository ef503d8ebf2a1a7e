package watchdog

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func newTestWatchdog() (*Watchdog, *int) {
	exits := 0
	w := &Watchdog{
		log:      slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		monitors: map[string]*monitor{},
		stop:     make(chan struct{}),
	}
	w.exit = func(int) { exits++ }
	return w, &exits
}

func TestWatchdog_StartTimeout(t *testing.T) {
	w, exits := newTestWatchdog()
	w.Register("loop", 10*time.Second, 5*time.Second)

	w.check(time.Now().Add(5 * time.Second))
	if *exits != 0 {
		t.Error("should not exit before start timeout")
	}
	w.check(time.Now().Add(11 * time.Second))
	if *exits != 1 {
		t.Error("should exit after start timeout without a ping")
	}
}

func TestWatchdog_PingKeepsAlive(t *testing.T) {
	w, exits := newTestWatchdog()
	w.Register("loop", 10*time.Second, 5*time.Second)
	w.Ping("loop")

	w.check(time.Now().Add(4 * time.Second))
	if *exits != 0 {
		t.Error("should not exit within ping timeout")
	}
	w.check(time.Now().Add(6 * time.Second))
	if *exits != 1 {
		t.Error("should exit after missed ping")
	}
}

func TestWatchdog_UnknownTagPingIgnored(t *testing.T) {
	w, exits := newTestWatchdog()
	w.Ping("nope") // must not panic
	w.check(time.Now())
	if *exits != 0 {
		t.Error("no monitors, no exits")
	}
}
