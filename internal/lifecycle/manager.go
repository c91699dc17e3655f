// Package lifecycle owns the process-wide classifier reference and its load
// state machine: uninitialized -> loading -> ready, or -> failed with retry on
// a later call. Once ready the engine is never reloaded or swapped.
package lifecycle

import (
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/polaritylab/sentiment-service/internal/engine"
)

// State is the load state of the singleton engine.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// Predictor is the read-only inference surface the façade needs.
type Predictor interface {
	Predict(text string) (engine.Result, error)
}

// LoadFunc constructs the engine. It is invoked at most once per load attempt.
type LoadFunc func() (Predictor, error)

// Manager serializes cold-start loads and hands out the shared engine.
// Concurrent first calls share a single load attempt and observe the same
// outcome; reads after the engine is ready take only an RLock.
type Manager struct {
	load  LoadFunc
	group singleflight.Group

	mu      sync.RWMutex
	engine  Predictor
	state   State
	lastErr error
}

func NewManager(load LoadFunc) *Manager {
	return &Manager{load: load}
}

// Get returns the ready engine, loading it first if necessary. A failed
// attempt leaves the reference unset so a later call retries.
func (m *Manager) Get() (Predictor, error) {
	m.mu.RLock()
	p := m.engine
	m.mu.RUnlock()
	if p != nil {
		return p, nil
	}

	v, err, _ := m.group.Do("load", func() (interface{}, error) {
		// An earlier attempt may have completed while we queued.
		m.mu.RLock()
		p := m.engine
		m.mu.RUnlock()
		if p != nil {
			return p, nil
		}

		m.setState(StateLoading, nil)
		slog.Info("Model load started")

		eng, err := m.load()
		if err != nil {
			m.setState(StateFailed, err)
			slog.Error("Model load failed", "error", err)
			return nil, err
		}

		m.mu.Lock()
		m.engine = eng
		m.state = StateReady
		m.lastErr = nil
		m.mu.Unlock()
		slog.Info("Model load succeeded")
		return eng, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Predictor), nil
}

// State reports the current position in the load state machine.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Ready reports whether the engine has loaded successfully.
func (m *Manager) Ready() bool {
	return m.State() == StateReady
}

// LastError returns the error from the most recent failed attempt, nil once
// ready or before any attempt.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setState(s State, err error) {
	m.mu.Lock()
	m.state = s
	m.lastErr = err
	m.mu.Unlock()
}
