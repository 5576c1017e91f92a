//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// allGPULayers is passed to llama.cpp when every layer should be offloaded;
// it clamps the value to the model's layer count.
const allGPULayers = 999

type llamaAdapter struct {
	opts LlamaOptions
}

// NewLlamaAdapter returns the in-process go-llama.cpp runtime.
func NewLlamaAdapter(opts LlamaOptions) InferenceAdapter {
	return &llamaAdapter{opts: opts}
}

// llamaSession owns the loaded model
type llamaSession struct {
	mu    sync.Mutex
	path  string
	opts  LlamaOptions
	model *llama.LLama
}

func (a *llamaAdapter) Load(modelPath string) (InferSession, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := loadLlama(modelPath, a.opts)
	if err != nil {
		return nil, err
	}
	return &llamaSession{path: modelPath, opts: a.opts, model: m}, nil
}

func loadLlama(path string, opts LlamaOptions) (*llama.LLama, error) {
	gpu := opts.GPULayers
	if gpu < 0 {
		gpu = allGPULayers
	}
	mo := []llama.ModelOption{
		llama.SetContext(zn(opts.ContextSize, 4096)),
		llama.SetNBatch(zn(opts.BatchSize, 512)),
	}
	if gpu > 0 {
		mo = append(mo, llama.SetGPULayers(gpu))
	}
	return llama.New(path, mo...)
}

func (s *llamaSession) Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model == nil {
		return FinalResult{}, errors.New("llama model not initialized")
	}

	completion := 0
	stopped := false
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			stopped = true
			return false
		default:
		}
		completion++
		if err := onToken(tok); err != nil {
			stopped = true
			return false
		}
		return true
	})

	text, err := s.model.Predict(prompt, mapInferParamsToPredictOptions(params, s.opts.Threads)...)
	if ctx.Err() != nil {
		return FinalResult{}, ctx.Err()
	}
	if err != nil {
		return FinalResult{}, err
	}
	usage := Usage{CompletionTokens: completion}
	if n, _, terr := s.model.TokenizeString(prompt); terr == nil {
		usage.PromptTokens = int(n)
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	finish := "stop"
	if stopped {
		finish = "canceled"
	} else if params.MaxTokens > 0 && completion >= params.MaxTokens {
		finish = "length"
	}
	return FinalResult{Content: text, Usage: usage, FinishReason: finish}, nil
}

// Reset reloads the model so an abandoned prediction cannot leak state into
// the next request.
func (s *llamaSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	m, err := loadLlama(s.path, s.opts)
	if err != nil {
		return err
	}
	s.model = m
	return nil
}

func (s *llamaSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// mapInferParamsToPredictOptions converts our adapter params into go-llama.cpp options
func mapInferParamsToPredictOptions(params InferParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
