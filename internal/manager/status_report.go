package manager

import (
	"path/filepath"
	"time"

	"mirrorpond/pkg/types"
)

// LlamaBuilt reports whether this binary carries the in-process llama runtime.
func LlamaBuilt() bool { return llamaBuilt }

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, ModelPath: m.modelPath, Err: m.err}
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	snap := m.Snapshot()
	inflight := 0
	if m.slot.Held() {
		inflight = 1
	}
	now := time.Now()
	return types.StatusResponse{
		State:                    string(snap.State),
		Model:                    filepath.Base(snap.ModelPath),
		Error:                    snap.Err,
		QueueLen:                 m.slot.Waiting(),
		Inflight:                 inflight,
		MaxQueueDepth:            m.maxQueueDepth,
		GenerationTimeoutSeconds: int64(m.timeout / time.Second),
		RequestsTotal:            m.requestsTotal.Load(),
		FailuresTotal:            m.failuresTotal.Load(),
		GuidingQuestionsTotal:    m.questionsTotal.Load(),
		SessionResetsTotal:       m.resetsTotal.Load(),
		UptimeSeconds:            int64(now.Sub(m.startTime) / time.Second),
		ServerTimeUnix:           now.Unix(),
		LlamaBuilt:               llamaBuilt,
	}
}
