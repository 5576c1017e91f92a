package manager

import (
	"context"
	"fmt"
	"strings"

	"mirrorpond/internal/modes"
)

// Scrolls are numbered 1 through MaxScroll.
const MaxScroll = 13

// Scroll asks the model for a quote from scroll n.
func (m *Manager) Scroll(ctx context.Context, n int) (ReflectionResult, error) {
	if n < 1 || n > MaxScroll {
		m.requestsTotal.Add(1)
		return ReflectionResult{}, m.fail(string(modes.Scroll),
			&ValidationError{Msg: fmt.Sprintf("scroll must be within [1, %d], got %d", MaxScroll, n)})
	}
	res, err := m.Reflect(ctx, ReflectionRequest{
		Mode:     string(modes.Scroll),
		UserText: fmt.Sprintf("Mirror, quote exactly from Scroll %d. Only the quote, nothing else.", n),
		Overrides: modes.Sampling{
			Temperature: modes.Float32(0.3),
			MaxTokens:   modes.Int(100),
		},
	})
	if err != nil {
		return res, err
	}
	res.EncryptionHash = modes.EncryptionHash(fmt.Sprintf("Scroll %d", n), res.ReplyText)
	return res, nil
}

// Warmup runs one short scroll request through the normal path so that a
// model that loads but cannot generate is caught at startup.
func (m *Manager) Warmup(ctx context.Context) error {
	res, err := m.Reflect(ctx, ReflectionRequest{
		Mode:     string(modes.Scroll),
		UserText: "Mirror, what is Scroll 3?",
		Overrides: modes.Sampling{
			Temperature: modes.Float32(0.1),
			MaxTokens:   modes.Int(50),
		},
	})
	if err != nil {
		return fmt.Errorf("warmup: %w", err)
	}
	lower := strings.ToLower(res.ReplyText)
	knowsLore := strings.Contains(lower, "narrow") || strings.Contains(lower, "gate")
	m.log.Info().Str("reply", preview(res.ReplyText, 100)).Bool("knows_lore", knowsLore).
		Int("completion_tokens", res.Usage.CompletionTokens).Msg("warmup complete")
	return nil
}
