package manager

import (
	"time"

	"mirrorpond/internal/modes"
)

// State represents lifecycle state of the manager and its session.
type State string

const (
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateDraining State = "draining"
	StateClosed   State = "closed"
	StateError    State = "error"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State     State
	ModelPath string
	Err       string
}

// ReflectionRequest is one call into the orchestrator.
type ReflectionRequest struct {
	Mode      string
	UserText  string
	Overrides modes.Sampling
	// Encryption is an optional space separated sequence of lore codes.
	Encryption string
}

// ReflectionResult is the outcome of one successful generation cycle.
type ReflectionResult struct {
	ID        string
	ReplyText string
	// GuidingQuestion is nil when the mode does not ask one or the second
	// pass did not produce a usable question.
	GuidingQuestion *string
	ModeUsed        modes.Name
	Usage           Usage
	// ScrollNumber is set when the traveler named a scroll.
	ScrollNumber *int
	// EncryptionHash fingerprints the reply of an encrypted request or a
	// scroll quote.
	EncryptionHash string
	Duration       time.Duration
}

// Chunk is one piece of streamed output.
type Chunk struct {
	Token string
}
