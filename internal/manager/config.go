package manager

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"mirrorpond/internal/modes"
	"mirrorpond/internal/prompt"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
// An unset MaxWait is derived from the generation timeout.
const (
	defaultMaxQueueDepth     = 32
	defaultGenerationTimeout = 120 * time.Second
)

// DefaultMaxWait is the admission wait used when none is configured: one
// full reflection, reply and guiding pass, at the generation timeout.
func DefaultMaxWait(timeout time.Duration) time.Duration {
	return 2 * timeout
}

// defaultSampling is the bottom layer of every merge. Config may replace any
// field of it through ManagerConfig.Defaults.
var defaultSampling = modes.Sampling{
	Temperature: modes.Float32(0.7),
	TopP:        modes.Float32(0.95),
	TopK:        modes.Int(40),
	MaxTokens:   modes.Int(256),
	Stop:        prompt.DefaultStop,
}

// LlamaOptions configures model loading and prediction for go-llama.cpp.
type LlamaOptions struct {
	ContextSize int
	BatchSize   int
	Threads     int
	// GPULayers is the number of layers to offload; -1 offloads all of them.
	GPULayers int
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// ModelPath is the resolved .gguf file loaded by Load.
	ModelPath string
	// Adapter is the model runtime. Nil selects the go-llama.cpp adapter
	// configured by Llama.
	Adapter InferenceAdapter
	Llama   LlamaOptions
	// Defaults are the process-wide sampling parameters. Unset fields keep
	// the package defaults.
	Defaults modes.Sampling
	// GenerationTimeout bounds every single generation call.
	GenerationTimeout time.Duration
	MaxQueueDepth     int
	// MaxWait bounds how long a request waits for room when the queue is
	// full. Admitted requests wait for the session without this bound.
	MaxWait   time.Duration
	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig. It does not touch
// the model; call Load before serving requests.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:     StateLoading,
		modelPath: cfg.ModelPath,
		adapter:   cfg.Adapter,
		defaults:  defaultSampling.Merge(cfg.Defaults),
		timeout:   cfg.GenerationTimeout,
		pub:       cfg.Publisher,
		slot:      &fifoLock{},
		startTime: time.Now(),
	}
	if m.adapter == nil {
		m.adapter = NewLlamaAdapter(cfg.Llama)
	}
	if m.timeout <= 0 {
		m.timeout = defaultGenerationTimeout
	}
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = DefaultMaxWait(m.timeout)
	} else {
		m.maxWait = cfg.MaxWait
	}
	m.queue = semaphore.NewWeighted(int64(m.maxQueueDepth))
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	} else {
		m.log = zerolog.Nop()
	}
	if m.pub == nil {
		m.pub = noopPublisher{}
	}
	return m
}
