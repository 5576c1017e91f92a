package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"mirrorpond/internal/modes"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "MIRROR_"

// ApplyEnv overlays MIRROR_* variables found through lookup onto c.
// A nil lookup reads the process environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	var errs []string
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q: not an integer", EnvPrefix, name, v))
				return
			}
			*dst = n
		}
	}
	setFloat := func(name string, dst **float32) {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 32)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s=%q: not a number", EnvPrefix, name, v))
				return
			}
			*dst = modes.Float32(float32(f))
		}
	}

	if v, ok := get("MODEL"); ok {
		c.Model = v
	}
	if v, ok := get("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("PORT"); ok {
		if _, err := strconv.Atoi(v); err != nil {
			errs = append(errs, fmt.Sprintf("%sPORT=%q: not a port", EnvPrefix, v))
		} else {
			c.Addr = ":" + v
		}
	}
	setInt("GPU_LAYERS", &c.GPULayers)
	setInt("CTX_SIZE", &c.ContextSize)
	setInt("BATCH_SIZE", &c.BatchSize)
	setInt("THREADS", &c.Threads)
	setFloat("TEMPERATURE", &c.Sampling.Temperature)
	setFloat("TOP_P", &c.Sampling.TopP)
	if v, ok := get("MAX_TOKENS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%sMAX_TOKENS=%q: not an integer", EnvPrefix, v))
		} else {
			c.Sampling.MaxTokens = modes.Int(n)
		}
	}
	if v, ok := get("STOP"); ok {
		c.Sampling.Stop = SplitCSV(v)
	}
	setInt("GENERATION_TIMEOUT", &c.GenerationTimeoutSeconds)
	setInt("MAX_QUEUE_DEPTH", &c.MaxQueueDepth)
	setInt("MAX_WAIT", &c.MaxWaitSeconds)
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		c.CORSOrigins = SplitCSV(v)
	}
	if v, ok := get("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%sMAX_BODY_BYTES=%q: not an integer", EnvPrefix, v))
		} else {
			c.MaxBodyBytes = n
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping
// empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
