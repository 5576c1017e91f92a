package modes

// Sampling is a set of optional generation parameters. A nil pointer (or a
// nil Stop slice) means "not set here, fall back to the next layer".
type Sampling struct {
	Temperature *float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	TopK        *int     `json:"top_k,omitempty" yaml:"top_k,omitempty" toml:"top_k,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	Stop        []string `json:"stop,omitempty" yaml:"stop,omitempty" toml:"stop,omitempty"`
}

// Merge returns s with every field that is set in over replaced by over's
// value. Neither input is modified.
func (s Sampling) Merge(over Sampling) Sampling {
	out := s.clone()
	if over.Temperature != nil {
		out.Temperature = Float32(*over.Temperature)
	}
	if over.TopP != nil {
		out.TopP = Float32(*over.TopP)
	}
	if over.TopK != nil {
		out.TopK = Int(*over.TopK)
	}
	if over.MaxTokens != nil {
		out.MaxTokens = Int(*over.MaxTokens)
	}
	if over.Stop != nil {
		out.Stop = cloneStrings(over.Stop)
	}
	return out
}

// Layer merges the layers in increasing priority: later layers win.
func Layer(layers ...Sampling) Sampling {
	var out Sampling
	for _, l := range layers {
		out = out.Merge(l)
	}
	return out
}

func (s Sampling) clone() Sampling {
	out := Sampling{Stop: cloneStrings(s.Stop)}
	if s.Temperature != nil {
		out.Temperature = Float32(*s.Temperature)
	}
	if s.TopP != nil {
		out.TopP = Float32(*s.TopP)
	}
	if s.TopK != nil {
		out.TopK = Int(*s.TopK)
	}
	if s.MaxTokens != nil {
		out.MaxTokens = Int(*s.MaxTokens)
	}
	return out
}

// cloneStrings keeps the nil/empty distinction: an empty, non-nil Stop
// explicitly clears the stop sequences of lower layers.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
