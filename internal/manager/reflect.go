package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mirrorpond/internal/modes"
	"mirrorpond/internal/prompt"
)

// Limits on per-request sampling overrides.
const (
	maxTemperature    = 2.0
	maxTokensPerReply = 4096
)

// plan is everything about a request that can be decided before the model
// is touched.
type plan struct {
	mode   modes.Mode
	text   string
	enc    modes.Encryption
	prompt string
	params InferParams
}

// Reflect runs one reflection and returns the finished result.
func (m *Manager) Reflect(ctx context.Context, req ReflectionRequest) (ReflectionResult, error) {
	return m.run(ctx, req, nil)
}

// Stream runs one reflection, delivering reply tokens to onChunk as they are
// generated. The session stays locked for the whole stream, guiding pass
// included. Returning an error from onChunk stops generation.
func (m *Manager) Stream(ctx context.Context, req ReflectionRequest, onChunk func(Chunk) error) (ReflectionResult, error) {
	var onToken func(string) error
	if onChunk != nil {
		onToken = func(tok string) error { return onChunk(Chunk{Token: tok}) }
	}
	return m.run(ctx, req, onToken)
}

func (m *Manager) run(ctx context.Context, req ReflectionRequest, onToken func(string) error) (ReflectionResult, error) {
	start := time.Now()
	m.requestsTotal.Add(1)

	p, err := m.prepare(req)
	if err != nil {
		return ReflectionResult{}, m.fail(req.Mode, err)
	}
	release, err := m.beginGeneration(ctx)
	if err != nil {
		return ReflectionResult{}, m.fail(req.Mode, err)
	}
	l := &lease{release: release}
	defer m.endLease(l)

	out, err := m.generate(ctx, l, passReply, p.prompt, p.params, onToken)
	if err != nil {
		return ReflectionResult{}, m.fail(req.Mode, err)
	}
	reply := prompt.Clean(p.mode, p.text, out.Content)
	if reply == "" {
		return ReflectionResult{}, m.fail(req.Mode, &GenerationError{Pass: passReply, Err: ErrEmptyOutput})
	}

	res := ReflectionResult{
		ID:        uuid.NewString(),
		ReplyText: reply,
		ModeUsed:  p.mode.Name,
		Usage:     out.Usage,
	}
	if n, ok := prompt.ScrollNumber(p.text); ok {
		res.ScrollNumber = &n
	}
	if !p.enc.IsZero() {
		res.EncryptionHash = modes.EncryptionHash(p.text, reply)
	}
	if p.mode.EmitsGuidingQuestion {
		m.attachQuestion(ctx, l, p, &res)
	}
	res.Duration = time.Since(start)

	tokensTotal.WithLabelValues("prompt").Add(float64(res.Usage.PromptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(res.Usage.CompletionTokens))
	reflectionsTotal.WithLabelValues(string(p.mode.Name), "ok").Inc()
	m.log.Debug().Str("id", res.ID).Str("mode", string(p.mode.Name)).
		Int("completion_tokens", res.Usage.CompletionTokens).
		Bool("guiding_question", res.GuidingQuestion != nil).
		Dur("dur", res.Duration).Msg("reflection complete")
	m.pub.Publish(Event{Name: EventReflected, Mode: string(p.mode.Name), Fields: map[string]any{"id": res.ID}})
	return res, nil
}

// prepare validates the request, composes the prompt and merges sampling:
// request overrides over mode overrides over process defaults.
func (m *Manager) prepare(req ReflectionRequest) (plan, error) {
	text := strings.TrimSpace(req.UserText)
	if text == "" {
		return plan{}, &ValidationError{Msg: "user_text is required"}
	}
	// Text made only of control tokens would reach the model as an empty turn.
	if strings.TrimSpace(prompt.Neutralize(text)) == "" {
		return plan{}, &ValidationError{Msg: "user_text has no content once control tokens are removed"}
	}
	md, err := modes.Resolve(req.Mode)
	if err != nil {
		return plan{}, &ValidationError{Msg: "invalid mode", Err: err}
	}
	enc, err := modes.ParseEncryption(req.Encryption)
	if err != nil {
		return plan{}, &ValidationError{Msg: "invalid encryption", Err: err}
	}
	if err := validateOverrides(req.Overrides); err != nil {
		return plan{}, err
	}
	s := modes.Layer(m.defaults, md.SamplingFor(prompt.HasCJK(text)), req.Overrides)
	return plan{
		mode:   md,
		text:   text,
		enc:    enc,
		prompt: prompt.ComposeEncrypted(md, text, enc),
		params: toParams(s),
	}, nil
}

func validateOverrides(s modes.Sampling) error {
	switch {
	case s.Temperature != nil && (*s.Temperature < 0 || *s.Temperature > maxTemperature):
		return &ValidationError{Msg: fmt.Sprintf("temperature must be within [0, %g]", maxTemperature)}
	case s.TopP != nil && (*s.TopP <= 0 || *s.TopP > 1):
		return &ValidationError{Msg: "top_p must be within (0, 1]"}
	case s.TopK != nil && *s.TopK < 0:
		return &ValidationError{Msg: "top_k must not be negative"}
	case s.MaxTokens != nil && (*s.MaxTokens < 1 || *s.MaxTokens > maxTokensPerReply):
		return &ValidationError{Msg: fmt.Sprintf("max_tokens must be within [1, %d]", maxTokensPerReply)}
	}
	return nil
}

// toParams flattens a fully layered Sampling. Fields still unset map to the
// runtime's own defaults.
func toParams(s modes.Sampling) InferParams {
	var p InferParams
	if s.Temperature != nil {
		p.Temperature = *s.Temperature
	}
	if s.TopP != nil {
		p.TopP = *s.TopP
	}
	if s.TopK != nil {
		p.TopK = *s.TopK
	}
	if s.MaxTokens != nil {
		p.MaxTokens = *s.MaxTokens
	}
	p.Stop = append([]string(nil), s.Stop...)
	return p
}

// fail records a failed request and returns err unchanged.
func (m *Manager) fail(mode string, err error) error {
	m.failuresTotal.Add(1)
	label := "unknown"
	if md, rerr := modes.Resolve(mode); rerr == nil {
		label = string(md.Name)
	}
	class := errorClass(err)
	reflectionsTotal.WithLabelValues(label, class).Inc()

	ev := m.log.Warn()
	if class == "validation" || class == "canceled" {
		ev = m.log.Debug()
	}
	ev.Err(err).Str("mode", label).Str("class", class).Msg("reflection failed")
	m.pub.Publish(Event{Name: EventFailed, Mode: label, Fields: map[string]any{"class": class, "error": err.Error()}})
	return err
}

func errorClass(err error) string {
	switch {
	case IsValidation(err):
		return "validation"
	case IsTimeout(err):
		return "timeout"
	case IsGeneration(err):
		return "generation"
	case IsTooBusy(err):
		return "busy"
	case IsDependencyUnavailable(err):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
