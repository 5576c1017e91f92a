package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Model == "" {
		errs = append(errs, errors.New("model path is required"))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.GPULayers < -1 {
		errs = append(errs, fmt.Errorf("gpu_layers must be -1 (all) or >= 0, got %d", c.GPULayers))
	}
	if c.ContextSize <= 0 {
		errs = append(errs, fmt.Errorf("ctx_size must be positive, got %d", c.ContextSize))
	}
	if c.BatchSize <= 0 || (c.ContextSize > 0 && c.BatchSize > c.ContextSize) {
		errs = append(errs, fmt.Errorf("batch_size must be within [1, ctx_size], got %d", c.BatchSize))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads must not be negative, got %d", c.Threads))
	}
	if t := c.Sampling.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 2], got %g", *t))
	}
	if p := c.Sampling.TopP; p != nil && (*p <= 0 || *p > 1) {
		errs = append(errs, fmt.Errorf("top_p must be within (0, 1], got %g", *p))
	}
	if k := c.Sampling.TopK; k != nil && *k < 0 {
		errs = append(errs, fmt.Errorf("top_k must not be negative, got %d", *k))
	}
	if n := c.Sampling.MaxTokens; n != nil && (*n < 1 || *n > c.ContextSize) {
		errs = append(errs, fmt.Errorf("max_tokens must be within [1, ctx_size], got %d", *n))
	}
	if c.GenerationTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("generation_timeout_seconds must be positive, got %d", c.GenerationTimeoutSeconds))
	}
	if c.MaxQueueDepth <= 0 {
		errs = append(errs, fmt.Errorf("max_queue_depth must be positive, got %d", c.MaxQueueDepth))
	}
	switch {
	case c.MaxWaitSeconds < 0:
		errs = append(errs, fmt.Errorf("max_wait_seconds must not be negative, got %d", c.MaxWaitSeconds))
	case c.MaxWaitSeconds > 0 && c.MaxWaitSeconds < c.GenerationTimeoutSeconds:
		errs = append(errs, fmt.Errorf("max_wait_seconds (%d) must be at least generation_timeout_seconds (%d)",
			c.MaxWaitSeconds, c.GenerationTimeoutSeconds))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes))
	}
	return errors.Join(errs...)
}

// EffectiveThreads returns Threads, or DefaultThreads when it is 0.
func (c Config) EffectiveThreads() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return DefaultThreads()
}

// DefaultThreads is half the physical cores, but never fewer than 4.
func DefaultThreads() int {
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	return max(4, n/2)
}
