package manager

import "context"

// InferenceAdapter abstracts the model runtime used by the Manager.
// Concrete implementations (e.g., llama.cpp) should satisfy this interface.
type InferenceAdapter interface {
	// Load opens the model file and returns the session that will serve
	// every generation for the life of the process.
	Load(modelPath string) (InferSession, error)
}

// InferSession is a loaded model. It is not safe for concurrent use; the
// Manager never calls Generate while another Generate is running.
type InferSession interface {
	// Generate runs one completion. onToken is invoked for each token and may
	// stop generation by returning an error. Implementations should return
	// promptly once ctx is done.
	Generate(ctx context.Context, prompt string, params InferParams, onToken func(string) error) (FinalResult, error)
	// Close releases any resources associated with the session.
	Close() error
}

// Resetter is implemented by sessions that can restore a clean state after a
// generation was abandoned (e.g. by reloading the model).
type Resetter interface {
	Reset() error
}

// InferParams captures generation parameters passed to the adapter.
// All fields are resolved; zero means the runtime default.
type InferParams struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// FinalResult summarizes the generation after streaming.
type FinalResult struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u Usage) add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}
