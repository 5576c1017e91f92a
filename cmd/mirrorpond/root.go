package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mirrorpond/internal/config"
	"mirrorpond/internal/manager"
	"mirrorpond/internal/modes"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// flagValues holds raw flag values. Only flags the user actually set are
// layered over the file and environment.
type flagValues struct {
	configPath string

	model        string
	addr         string
	port         int
	gpuLayers    int
	ctxSize      int
	batchSize    int
	threads      int
	temperature  float32
	topP         float32
	maxTokens    int
	stop         string
	genTimeout   int
	queueDepth   int
	maxWait      int
	logLevel     string
	corsOrigins  string
	maxBodyBytes int64
}

func newRootCmd() *cobra.Command {
	var fv flagValues
	root := &cobra.Command{
		Use:           "mirrorpond",
		Short:         "Serve the Mirror reflection assistant over one GGUF model",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), &fv, os.LookupEnv)
			if err != nil {
				return err
			}
			log := newLogger(os.Stderr, cfg.LogLevel)
			return serve(cmd.Context(), cfg, log, nil)
		},
	}

	bindFlags(root.PersistentFlags(), &fv)
	root.AddCommand(newModesCmd(&fv), newVersionCmd())
	return root
}

func bindFlags(f *pflag.FlagSet, fv *flagValues) {
	f.StringVar(&fv.configPath, "config", "", "Config file (.yaml, .yml, .json, .toml)")
	f.StringVar(&fv.model, "model", "", "Path to a .gguf model, or a directory holding exactly one")
	f.StringVar(&fv.addr, "addr", "", "HTTP listen address (default :7777)")
	f.IntVar(&fv.port, "port", 0, "HTTP port; shorthand for --addr :PORT")
	f.IntVar(&fv.gpuLayers, "gpu-layers", -1, "Layers to offload to the GPU; -1 offloads all")
	f.IntVar(&fv.ctxSize, "ctx-size", 0, "Context window in tokens (default 4096)")
	f.IntVar(&fv.batchSize, "batch-size", 0, "Prompt batch size (default 512)")
	f.IntVar(&fv.threads, "threads", 0, "Inference threads; 0 picks half the physical cores, at least 4")
	f.Float32Var(&fv.temperature, "temperature", 0, "Default sampling temperature")
	f.Float32Var(&fv.topP, "top-p", 0, "Default nucleus sampling cutoff")
	f.IntVar(&fv.maxTokens, "max-tokens", 0, "Default completion token limit")
	f.StringVar(&fv.stop, "stop", "", "Default stop sequences, comma-separated")
	f.IntVar(&fv.genTimeout, "generation-timeout", 0, "Seconds allowed for one generation call (default 120)")
	f.IntVar(&fv.queueDepth, "max-queue-depth", 0, "Requests allowed to wait for the model (default 32)")
	f.IntVar(&fv.maxWait, "max-wait", 0, "Seconds a request may wait for room in a full queue (default twice the generation timeout)")
	f.StringVar(&fv.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	f.StringVar(&fv.corsOrigins, "cors-origins", "", "Allowed CORS origins, comma-separated")
	f.Int64Var(&fv.maxBodyBytes, "max-body-bytes", 0, "Maximum request body size")
}

// resolveConfig layers defaults, the config file, MIRROR_* variables and
// explicitly set flags, in that order.
func resolveConfig(flags *pflag.FlagSet, fv *flagValues, lookup func(string) (string, bool)) (config.Config, error) {
	cfg := config.Defaults()
	if fv.configPath != "" {
		var err error
		if cfg, err = config.Load(fv.configPath); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}

	set := flags.Changed
	if set("model") {
		cfg.Model = fv.model
	}
	if set("addr") {
		cfg.Addr = fv.addr
	}
	if set("port") {
		cfg.Addr = ":" + strconv.Itoa(fv.port)
	}
	if set("gpu-layers") {
		cfg.GPULayers = fv.gpuLayers
	}
	if set("ctx-size") {
		cfg.ContextSize = fv.ctxSize
	}
	if set("batch-size") {
		cfg.BatchSize = fv.batchSize
	}
	if set("threads") {
		cfg.Threads = fv.threads
	}
	if set("temperature") {
		cfg.Sampling.Temperature = modes.Float32(fv.temperature)
	}
	if set("top-p") {
		cfg.Sampling.TopP = modes.Float32(fv.topP)
	}
	if set("max-tokens") {
		cfg.Sampling.MaxTokens = modes.Int(fv.maxTokens)
	}
	if set("stop") {
		cfg.Sampling.Stop = config.SplitCSV(fv.stop)
		if cfg.Sampling.Stop == nil {
			cfg.Sampling.Stop = []string{}
		}
	}
	if set("generation-timeout") {
		cfg.GenerationTimeoutSeconds = fv.genTimeout
	}
	if set("max-queue-depth") {
		cfg.MaxQueueDepth = fv.queueDepth
	}
	if set("max-wait") {
		cfg.MaxWaitSeconds = fv.maxWait
	}
	if set("log-level") {
		cfg.LogLevel = fv.logLevel
	}
	if set("cors-origins") {
		cfg.CORSOrigins = config.SplitCSV(fv.corsOrigins)
	}
	if set("max-body-bytes") {
		cfg.MaxBodyBytes = fv.maxBodyBytes
	}
	return cfg, nil
}

func newModesCmd(fv *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the reflection modes and their effective sampling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags(), fv, os.LookupEnv)
			if err != nil {
				return err
			}
			// Modes never touches the model, so no Load is needed.
			m := manager.NewWithConfig(manager.ManagerConfig{Defaults: cfg.Sampling})
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODE\tTEMP\tTOP_P\tMAX_TOKENS\tQUESTION\tDESCRIPTION")
			for _, mi := range m.Modes() {
				fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%d\t%t\t%s\n", mi.Name, mi.Temperature, mi.TopP, mi.MaxTokens, mi.EmitsGuidingQuestion, mi.Description)
			}
			return tw.Flush()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and whether llama.cpp is compiled in",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mirrorpond %s (llama=%t)\n", version, manager.LlamaBuilt())
		},
	}
}
