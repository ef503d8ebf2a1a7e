// Package watchdog detects a stalled main loop. Components register
// with a start timeout and a ping interval; each completed cycle pings.
// A missed ping terminates the process so external supervision can
// restart it; position truth is rebuilt from the exchange on restart.
package watchdog

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

const checkInterval = 5 * time.Second

type monitor struct {
	startAt      time.Time
	pingAt       time.Time // zero until the first ping
	startTimeout time.Duration
	pingTimeout  time.Duration
}

// Watchdog monitors registered tags for liveness.
type Watchdog struct {
	log  *slog.Logger
	exit func(code int)

	mu       sync.Mutex
	monitors map[string]*monitor
	stop     chan struct{}
}

// New creates a watchdog and starts its check loop.
func New(log *slog.Logger) *Watchdog {
	w := &Watchdog{
		log:      log,
		exit:     os.Exit,
		monitors: map[string]*monitor{},
		stop:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Register starts monitoring a tag. The first ping must arrive within
// startTimeout of registration; each subsequent ping within pingTimeout
// of the previous one.
func (w *Watchdog) Register(tag string, startTimeout, pingTimeout time.Duration) {
	w.log.Debug("watchdog register", "tag", tag, "start_timeout", startTimeout, "ping_timeout", pingTimeout)
	w.mu.Lock()
	w.monitors[tag] = &monitor{
		startAt:      time.Now(),
		startTimeout: startTimeout,
		pingTimeout:  pingTimeout,
	}
	w.mu.Unlock()
}

// Ping records liveness for a tag.
func (w *Watchdog) Ping(tag string) {
	w.mu.Lock()
	if m, ok := w.monitors[tag]; ok {
		m.pingAt = time.Now()
	}
	w.mu.Unlock()
}

// Stop ends the check loop. Used by tests; production watchdogs live as
// long as the process.
func (w *Watchdog) Stop() {
	close(w.stop)
}

func (w *Watchdog) run() {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case now := <-ticker.C:
			w.check(now)
		}
	}
}

func (w *Watchdog) check(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for tag, m := range w.monitors {
		if m.pingAt.IsZero() {
			if now.Sub(m.startAt) > m.startTimeout {
				w.log.Error("start delayed, exiting", "tag", tag)
				w.exit(1)
			}
		} else if now.Sub(m.pingAt) > m.pingTimeout {
			w.log.Error("ping delayed, exiting", "tag", tag)
			w.exit(1)
		}
	}
}
