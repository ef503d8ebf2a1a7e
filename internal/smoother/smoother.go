// Package smoother implements exponential smoothing of keyed float
// series, used to damp the unit-position sizing term
// (collateral / price) so that order sizes do not whipsaw with every
// price tick. State survives restarts via a JSON file written
// atomically (temp file then rename).
package smoother

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"
)

type state struct {
	Value float64 `json:"value"`
	T     float64 `json:"t"` // unix seconds
}

// EWMA smooths values with a configurable halflife. A relative jump
// beyond ResetThreshold discards all smoothing state: a step change in
// collateral (deposit/withdrawal) should be followed immediately, not
// averaged in over hours.
type EWMA struct {
	log            *slog.Logger
	halflife       float64 // seconds
	resetThreshold float64
	savePath       string

	states map[string]*state
}

// New loads an EWMA smoother from savePath. A missing or corrupt state
// file starts empty.
func New(log *slog.Logger, halflife, resetThreshold float64, savePath string) *EWMA {
	s := &EWMA{
		log:            log,
		halflife:       halflife,
		resetThreshold: resetThreshold,
		savePath:       savePath,
		states:         map[string]*state{},
	}

	data, err := os.ReadFile(savePath)
	if err == nil {
		var loaded map[string]*state
		if err := json.Unmarshal(data, &loaded); err == nil && validStates(loaded) {
			s.states = loaded
		} else {
			log.Warn("discarding invalid smoother state file", "path", savePath)
		}
	}
	return s
}

// Step folds value into the smoothed series for key at time t and
// returns the new smoothed value.
func (s *EWMA) Step(key string, value float64, t time.Time) float64 {
	ts := float64(t.Unix())

	if old, ok := s.states[key]; ok {
		if math.Abs(value-old.Value) > s.resetThreshold*old.Value {
			s.log.Info("smoother reset", "key", key, "value", value, "old_value", old.Value)
			s.states = map[string]*state{}
		}
	}

	st, ok := s.states[key]
	if !ok {
		st = &state{Value: value, T: ts}
		s.states[key] = st
	} else {
		elapsed := ts - st.T
		alpha := 1 - math.Pow(0.5, elapsed/s.halflife)
		st.Value = (1-alpha)*st.Value + alpha*value
		st.T = ts
	}

	if s.savePath != "" {
		if err := s.save(); err != nil {
			s.log.Warn("smoother state save failed", "error", err)
		}
	}
	return st.Value
}

func (s *EWMA) save() error {
	data, err := json.MarshalIndent(s.states, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.savePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "smoother-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.savePath)
}

func validStates(states map[string]*state) bool {
	for _, st := range states {
		if st == nil {
			return false
		}
		if math.IsNaN(st.Value) || math.IsNaN(st.T) {
			return false
		}
	}
	return true
}

// Null passes values through unsmoothed.
type Null struct{}

func (Null) Step(_ string, value float64, _ time.Time) float64 {
	return value
}
