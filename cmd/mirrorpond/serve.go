package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mirrorpond/internal/config"
	"mirrorpond/internal/httpapi"
	"mirrorpond/internal/manager"
	"mirrorpond/internal/registry"
)

const shutdownGrace = 10 * time.Second

// serve validates cfg, loads and warms the model, then serves HTTP until
// ctx is canceled or SIGINT/SIGTERM arrives. Any failure before the
// listener is up is returned so main exits non-zero. A nil adapter selects
// the llama.cpp runtime.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger, adapter manager.InferenceAdapter) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	mf, err := registry.Resolve(cfg.Model)
	if err != nil {
		return err
	}
	log.Info().Str("model", mf.Path).Str("quant", mf.Quant).Int64("size_bytes", mf.SizeBytes).
		Int("gpu_layers", cfg.GPULayers).Int("threads", cfg.EffectiveThreads()).Msg("loading model")

	evlog := log.With().Str("component", "events").Logger()
	m := manager.NewWithConfig(manager.ManagerConfig{
		ModelPath: mf.Path,
		Adapter:   adapter,
		Llama: manager.LlamaOptions{
			ContextSize: cfg.ContextSize,
			BatchSize:   cfg.BatchSize,
			Threads:     cfg.EffectiveThreads(),
			GPULayers:   cfg.GPULayers,
		},
		Defaults:          cfg.Sampling,
		GenerationTimeout: cfg.GenerationTimeout(),
		MaxQueueDepth:     cfg.MaxQueueDepth,
		MaxWait:           cfg.MaxWait(),
		Logger:            &log,
		Publisher: manager.NewLogPublisher(func(e manager.Event) {
			evlog.Debug().Str("event", e.Name).Str("mode", e.Mode).Fields(e.Fields).Msg("event")
		}),
	})
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := m.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("model session not released")
		}
	}()

	if err := m.Load(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := m.Warmup(ctx); err != nil {
		return err
	}

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetDefaultLogLevel(httpLogLevel(cfg.LogLevel))
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOrigins(cfg.CORSOrigins)
	httpapi.SetBaseContext(ctx)

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(m),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Bool("llama", manager.LlamaBuilt()).Msg("mirrorpond listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// httpLogLevel maps the process log level onto the request logging levels
// of the HTTP layer.
func httpLogLevel(level string) string {
	switch level {
	case "debug", "trace":
		return "debug"
	case "warn", "warning", "error", "fatal", "panic":
		return "error"
	case "disabled", "off":
		return "off"
	default:
		return "info"
	}
}
