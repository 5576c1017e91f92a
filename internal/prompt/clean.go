package prompt

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"mirrorpond/internal/modes"
)

var (
	roleResidueRe  = regexp.MustCompile(`(?i)\|\s*(end|system|user|assistant)\s*\|>`)
	leadInRe       = regexp.MustCompile(`(?i)^\s*(the mirror reflects|mirror reflects|镜子反映)\s*[:：]\s*`)
	noteRe         = regexp.MustCompile(`(?i)\(\s*note\s*:[^)]*\)`)
	markdownHdrRe  = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	questionLineRe = regexp.MustCompile(`(?im)^[ \t]*(guiding\s*question|引导\s*问题|the mirror asks|镜子问)\s*[:：].*$`)
	manyNewlinesRe = regexp.MustCompile(`\n{3,}`)
	spaceRunRe     = regexp.MustCompile(`\s+`)
	scrollLeadRe   = regexp.MustCompile(`(?i)^(quote from scroll|scroll|"|“|「)`)
	questionLabel  = regexp.MustCompile(`(?i)^\s*(guiding\s*question|引导\s*问题|the mirror asks|镜子问|question)\s*[:：]\s*`)
)

// Clean turns raw model output into the reply shown to the traveler: it
// strips control tokens and training artifacts, drops any question the model
// wrote inline (guiding questions come from their own pass), collapses blank
// runs, removes repeated paragraphs and applies the mode's scroll prefix.
func Clean(m modes.Mode, userText, raw string) string {
	t := strings.ReplaceAll(raw, "\r\n", "\n")
	t = controlTokenRe.ReplaceAllString(t, "")
	t = roleResidueRe.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, `\n`, "\n")
	t = strings.ReplaceAll(t, "**", "")
	t = noteRe.ReplaceAllString(t, "")
	t = markdownHdrRe.ReplaceAllString(t, "")
	t = questionLineRe.ReplaceAllString(t, "")
	t = leadInRe.ReplaceAllString(strings.TrimSpace(t), "")
	t = dedupeParagraphs(manyNewlinesRe.ReplaceAllString(t, "\n\n"))

	if m.PrefixScrollNumber && t != "" && !scrollLeadRe.MatchString(t) {
		if n, ok := ScrollNumber(userText); ok {
			t = fmt.Sprintf("Scroll %d: %s", n, t)
		}
	}
	return t
}

// dedupeParagraphs keeps the first occurrence of each paragraph, comparing
// them with whitespace normalized.
func dedupeParagraphs(s string) string {
	seen := make(map[string]struct{})
	var kept []string
	for _, p := range strings.Split(s, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := spaceRunRe.ReplaceAllString(p, " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, p)
	}
	return strings.Join(kept, "\n\n")
}

// CleanQuestion extracts a single guiding question from raw second-pass
// output. It returns "" when the output holds no usable question.
func CleanQuestion(raw string) string {
	t := controlTokenRe.ReplaceAllString(raw, "")
	t = roleResidueRe.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, "**", "")
	for _, line := range strings.Split(t, "\n") {
		line = questionLabel.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.Trim(line, " \t\"'“”「」")
		if line == "" {
			continue
		}
		end := strings.IndexAny(line, "?？")
		if end < 0 {
			return ""
		}
		_, size := utf8.DecodeRuneInString(line[end:])
		return strings.TrimSpace(line[:end+size])
	}
	return ""
}

// NonTrivial reports whether a reply is substantial enough to ask a guiding
// question about: more than two words, or at least four Han characters for
// CJK text, which has no word separators.
func NonTrivial(reply string) bool {
	reply = strings.TrimSpace(reply)
	if HasCJK(reply) {
		return utf8.RuneCountInString(reply) >= 4
	}
	return len(strings.Fields(reply)) > 2
}
