package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"mirrorpond/internal/modes"
)

// Config holds runtime parameters for the service.
// Sampling fields left unset fall through to the orchestrator defaults.
type Config struct {
	// Model is a .gguf file, or a directory holding exactly one.
	Model string `json:"model" yaml:"model" toml:"model"`
	Addr  string `json:"addr" yaml:"addr" toml:"addr"`

	// GPULayers is the number of layers to offload; -1 offloads all.
	GPULayers   int `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
	ContextSize int `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	BatchSize   int `json:"batch_size" yaml:"batch_size" toml:"batch_size"`
	// Threads is the inference thread count; 0 picks DefaultThreads.
	Threads int `json:"threads" yaml:"threads" toml:"threads"`

	Sampling modes.Sampling `json:"sampling" yaml:"sampling" toml:"sampling"`

	GenerationTimeoutSeconds int `json:"generation_timeout_seconds" yaml:"generation_timeout_seconds" toml:"generation_timeout_seconds"`
	MaxQueueDepth            int `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	// MaxWaitSeconds bounds the wait for room in a full queue; 0 derives it
	// from the generation timeout.
	MaxWaitSeconds int `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`

	LogLevel     string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// Defaults returns the configuration used when nothing else is specified.
func Defaults() Config {
	return Config{
		Addr:                     ":7777",
		GPULayers:                -1,
		ContextSize:              4096,
		BatchSize:                512,
		GenerationTimeoutSeconds: 120,
		MaxQueueDepth:            32,
		LogLevel:                 "info",
		CORSOrigins:              []string{"*"},
		MaxBodyBytes:             1 << 20,
	}
}

// Load reads a configuration file based on its extension, over Defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// GenerationTimeout is the budget for one generation call.
func (c Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutSeconds) * time.Second
}

// MaxWait bounds how long a request may wait for room in a full queue.
// Unset, it covers one reflection: a reply and a guiding pass.
func (c Config) MaxWait() time.Duration {
	if c.MaxWaitSeconds == 0 {
		return 2 * c.GenerationTimeout()
	}
	return time.Duration(c.MaxWaitSeconds) * time.Second
}
