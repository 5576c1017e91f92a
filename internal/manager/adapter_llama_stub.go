//go:build !llama

package manager

// This file provides a no-CGO stub for the llama adapter. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real adapter lives in adapter_llama.go (tagged 'llama').

const llamaBuilt = false

// llamaAdapter refuses to load anything: a binary built without the runtime
// must fail at startup rather than serve canned replies.
type llamaAdapter struct {
	opts LlamaOptions
}

// NewLlamaAdapter returns the stub runtime.
func NewLlamaAdapter(opts LlamaOptions) InferenceAdapter {
	return &llamaAdapter{opts: opts}
}

func (a *llamaAdapter) Load(modelPath string) (InferSession, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
