package manager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"mirrorpond/internal/modes"
	"mirrorpond/pkg/types"
)

// Manager is the reflection orchestrator. It exclusively owns the single
// model session and serializes every generation against it.
type Manager struct {
	mu        sync.RWMutex
	state     State
	err       string
	modelPath string

	adapter InferenceAdapter
	// session is only touched by the holder of slot.
	session InferSession

	defaults modes.Sampling
	timeout  time.Duration

	// Queue config
	maxQueueDepth int
	maxWait       time.Duration
	queue         *semaphore.Weighted
	slot          *fifoLock
	// admitMu pairs a queue slot with its place in line.
	admitMu sync.Mutex

	log       zerolog.Logger
	pub       EventPublisher
	startTime time.Time

	requestsTotal  atomic.Uint64
	failuresTotal  atomic.Uint64
	questionsTotal atomic.Uint64
	resetsTotal    atomic.Uint64
}

// Load opens the model session. It must succeed before any request is
// served; callers treat a failure as fatal.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return nil
	}
	start := time.Now()
	sess, err := m.adapter.Load(m.modelPath)
	if err != nil {
		m.state = StateError
		m.err = err.Error()
		m.pub.Publish(Event{Name: EventLoadFailed, Fields: map[string]any{"path": m.modelPath, "error": err.Error()}})
		return fmt.Errorf("load model %s: %w", m.modelPath, err)
	}
	m.session = sess
	m.state = StateReady
	m.err = ""
	m.log.Info().Str("path", m.modelPath).Dur("took", time.Since(start)).Msg("model loaded")
	m.pub.Publish(Event{Name: EventLoaded, Fields: map[string]any{"path": m.modelPath}})
	return nil
}

// Ready reports whether requests can be served.
func (m *Manager) Ready() bool { return m.State() == StateReady }

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Modes lists every persona with its effective sampling (defaults merged in).
func (m *Manager) Modes() []types.ModeInfo {
	all := modes.All()
	out := make([]types.ModeInfo, 0, len(all))
	for _, md := range all {
		eff := m.defaults.Merge(md.Sampling)
		out = append(out, types.ModeInfo{
			Name:                 string(md.Name),
			Title:                md.Title,
			Description:          md.Description,
			Temperature:          *eff.Temperature,
			TopP:                 *eff.TopP,
			MaxTokens:            *eff.MaxTokens,
			EmitsGuidingQuestion: md.EmitsGuidingQuestion,
		})
	}
	return out
}

// Close waits for queued and running work to finish, then frees the session.
func (m *Manager) Close() error { return m.Shutdown(context.Background()) }

// Shutdown is Close bounded by ctx. A runtime call that ignores cancellation
// can hold the session indefinitely; if ctx ends first the manager is closed
// without freeing the session, which is still in use, and ctx's error is
// returned.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil
	}
	m.state = StateDraining
	m.mu.Unlock()

	if err := m.slot.Lock(ctx); err != nil {
		m.mu.Lock()
		m.state = StateClosed
		m.mu.Unlock()
		m.log.Warn().Err(err).Msg("session still busy at shutdown; leaving it open")
		m.pub.Publish(Event{Name: EventClosed, Fields: map[string]any{"abandoned": true}})
		return fmt.Errorf("close model session: %w", err)
	}
	defer m.slot.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateClosed
	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	m.pub.Publish(Event{Name: EventClosed})
	return err
}

// resetSession restores the session after an abandoned or timed out call.
// Must be called by the holder of slot.
func (m *Manager) resetSession(pass string) {
	sessionResetsTotal.Inc()
	m.resetsTotal.Add(1)
	r, ok := m.session.(Resetter)
	if !ok {
		return
	}
	start := time.Now()
	if err := r.Reset(); err != nil {
		m.mu.Lock()
		m.state = StateError
		m.err = "session reset failed: " + err.Error()
		m.mu.Unlock()
		m.log.Error().Err(err).Str("pass", pass).Msg("session reset failed")
		m.pub.Publish(Event{Name: EventResetFailed, Fields: map[string]any{"error": err.Error()}})
		return
	}
	m.log.Warn().Str("pass", pass).Dur("took", time.Since(start)).Msg("session reset after timeout")
	m.pub.Publish(Event{Name: EventReset, Fields: map[string]any{"pass": pass}})
}
