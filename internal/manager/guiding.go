package manager

import (
	"context"
	"errors"
	"fmt"

	"mirrorpond/internal/modes"
	"mirrorpond/internal/prompt"
)

var errNoQuestion = errors.New("no usable guiding question")

// guidingSampling is layered over the process defaults for the second pass.
// Per-request overrides apply to the reply only.
var guidingSampling = modes.Sampling{
	Temperature: modes.Float32(0.6),
	MaxTokens:   modes.Int(48),
	Stop:        append(append([]string(nil), prompt.DefaultStop...), "\n\n"),
}

type guided struct {
	text  string
	usage Usage
}

// bestEffort runs an optional step whose failure must not fail the request.
// An error is handed to onFail and collapses to the zero value with ok false.
func bestEffort[T any](step func() (T, error), onFail func(error)) (v T, ok bool) {
	v, err := step()
	if err != nil {
		if onFail != nil {
			onFail(err)
		}
		var zero T
		return zero, false
	}
	return v, true
}

// attachQuestion runs the guiding question pass for res. Whatever happens,
// res stays a valid result; at worst it has no question.
func (m *Manager) attachQuestion(ctx context.Context, l *lease, p plan, res *ReflectionResult) {
	if !prompt.NonTrivial(res.ReplyText) {
		guidingQuestionsTotal.WithLabelValues("skipped").Inc()
		return
	}
	q, ok := bestEffort(
		func() (guided, error) { return m.guidingQuestion(ctx, l, p, res.ReplyText) },
		func(err error) {
			guidingQuestionsTotal.WithLabelValues("failed").Inc()
			m.log.Warn().Err(err).Str("id", res.ID).Msg("guiding question dropped")
			m.pub.Publish(Event{Name: EventQuestionSkipped, Mode: string(p.mode.Name), Fields: map[string]any{"id": res.ID, "error": err.Error()}})
		},
	)
	if !ok {
		return
	}
	guidingQuestionsTotal.WithLabelValues("emitted").Inc()
	m.questionsTotal.Add(1)
	res.GuidingQuestion = &q.text
	res.Usage = res.Usage.add(q.usage)
}

func (m *Manager) guidingQuestion(ctx context.Context, l *lease, p plan, reply string) (guided, error) {
	params := toParams(modes.Layer(m.defaults, guidingSampling))
	out, err := m.generate(ctx, l, passGuiding, prompt.GuidingQuestion(p.mode, p.text, reply), params, nil)
	if err != nil {
		return guided{}, err
	}
	q := prompt.CleanQuestion(out.Content)
	if q == "" {
		return guided{}, fmt.Errorf("%w in %q", errNoQuestion, preview(out.Content, 80))
	}
	return guided{text: q, usage: out.Usage}, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
