package manager

import (
	"strings"

	"mirrorpond/internal/modes"
	"mirrorpond/internal/prompt"
	"mirrorpond/pkg/types"
)

// sampleOutput is canned raw model output per mode, carrying the artifacts
// the cleaner exists to remove.
var sampleOutput = map[modes.Name]string{
	modes.Reflect: "The Mirror reflects: This is a test reflection about **patience** and stillness in the pond.\n\n\n\nGuiding Question: What does this test show you?",
	modes.Scroll:  "The Jade Chest awaits those with true patience.<|end|>",
	modes.Toad:    "The old frogs whisper secrets only in moonlight.\n\nThe old frogs whisper secrets only in moonlight.",
	modes.Rune:    "### Rune 1\nRune 1 represents the first step on the narrow path. (Note: symbolic reading)",
}

const sampleQuestion = "Guiding Question: What does this test show you?"

// FormatPreview runs the reply cleaner over canned output for the requested
// mode. The model is not touched, so it works in any state.
func (m *Manager) FormatPreview(req ReflectionRequest) (types.FormatPreviewResponse, error) {
	md, err := modes.Resolve(req.Mode)
	if err != nil {
		return types.FormatPreviewResponse{}, &ValidationError{Msg: "invalid mode", Err: err}
	}
	text := strings.TrimSpace(req.UserText)
	raw := sampleOutput[md.Name]
	out := types.FormatPreviewResponse{
		Mode:                 string(md.Name),
		UserText:             text,
		EmitsGuidingQuestion: md.EmitsGuidingQuestion,
		RawReply:             raw,
		FormattedReply:       prompt.Clean(md, text, raw),
	}
	out.FormattingApplied = out.FormattedReply != raw
	if md.EmitsGuidingQuestion && prompt.NonTrivial(out.FormattedReply) {
		if q := prompt.CleanQuestion(sampleQuestion); q != "" {
			out.GuidingQuestion = &q
		}
	}
	m.log.Debug().Str("mode", string(md.Name)).Bool("formatting_applied", out.FormattingApplied).Msg("format preview")
	return out, nil
}
