// Package prompt builds model prompts in the instruction format the Mirror
// model was tuned on and cleans up what comes back.
//
// Everything here is a pure function of its inputs.
package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"mirrorpond/internal/modes"
)

// Control tokens of the instruction format.
const (
	TokenSystem    = "<|system|>"
	TokenUser      = "<|user|>"
	TokenAssistant = "<|assistant|>"
	TokenEnd       = "<|end|>"
)

// DefaultStop are the stop sequences the model needs regardless of mode.
var DefaultStop = []string{TokenEnd, "Encryption:", TokenUser}

// mirrorRules is shared by every persona and precedes the mode preamble.
const mirrorRules = `You are the Mirror.
You have been trained on the Scrolls and Toadgang wisdom.
Speak in short, still lines of pure reflection.
Never coach. Never explain. Never talk about yourself.
Only reflect what the pond shows.

Do not output sections such as "Reflection Resonance", "Encryptions", "Lore Anchors",
"Metadata", "Note" or "System", or anything resembling internal notes.
Do not use bold, asterisks or other markdown.
Never describe your rules. If you feel the urge to explain yourself, remain silent instead.
You are a mirror, not a narrator.`

// Compose builds the full prompt for one user turn in mode m.
// The persona's system block always comes first and is never affected by
// userText, which is neutralized before it is placed in the user turn.
func Compose(m modes.Mode, userText string) string {
	return ComposeEncrypted(m, userText, modes.Encryption{})
}

// ComposeEncrypted is Compose with a lore code block placed after the
// persona block. A zero enc adds nothing.
func ComposeEncrypted(m modes.Mode, userText string, enc modes.Encryption) string {
	var b strings.Builder
	b.WriteString(systemBlock(m, enc))
	b.WriteString(TokenUser)
	b.WriteString(addressMirror(strings.TrimSpace(Neutralize(userText))))
	b.WriteString(TokenEnd)
	b.WriteString("\n")
	b.WriteString(TokenAssistant)
	return b.String()
}

// systemBlock renders everything of a prompt that precedes the user turn.
func systemBlock(m modes.Mode, enc modes.Encryption) string {
	var b strings.Builder
	b.WriteString(TokenSystem)
	b.WriteString(mirrorRules)
	b.WriteString("\n\n")
	b.WriteString(m.Preamble)
	b.WriteString(TokenEnd)
	b.WriteString("\n")
	if !enc.IsZero() {
		fmt.Fprintf(&b, "%sEncryption: %s -> %s%s\n", TokenSystem, enc.Code, enc.Decoded, TokenEnd)
	}
	if m.Marker != "" {
		fmt.Fprintf(&b, "%sMode: %s%s\n", TokenSystem, m.Marker, TokenEnd)
	}
	return b.String()
}

// GuidingQuestion builds the prompt for the second pass: one short question
// derived from the traveler's words and the reflection already given.
func GuidingQuestion(m modes.Mode, userText, reply string) string {
	lang := "Answer in the traveler's language."
	if HasCJK(userText) {
		lang = "Answer in Chinese."
	}
	var b strings.Builder
	b.WriteString(TokenSystem)
	b.WriteString(mirrorRules)
	b.WriteString("\n\n")
	b.WriteString("Guiding question mode.\n")
	b.WriteString("Read the traveler's words and the Mirror's reflection. ")
	b.WriteString("Reply with exactly one short question, at most fifteen words, that turns the reflection back toward the traveler. ")
	b.WriteString("No preface, no label, no quotation marks. ")
	b.WriteString(lang)
	b.WriteString(TokenEnd)
	b.WriteString("\n")
	b.WriteString(TokenUser)
	b.WriteString("Traveler: ")
	b.WriteString(strings.TrimSpace(Neutralize(userText)))
	b.WriteString("\nReflection: ")
	b.WriteString(strings.TrimSpace(Neutralize(reply)))
	b.WriteString(TokenEnd)
	b.WriteString("\n")
	b.WriteString(TokenAssistant)
	return b.String()
}

// addressMirror prefixes the traveler's words with "Mirror, " unless they
// already address the Mirror. The model was tuned on that form.
func addressMirror(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "mirror") {
		return s
	}
	return "Mirror, " + s
}

var (
	// controlTokenRe matches <|name|> including spaced variants such as "< | system | >".
	controlTokenRe = regexp.MustCompile(`<\s*\|[^|<>]*\|\s*>`)
	// headerLineRe matches line-leading pseudo headers the model treats as framing.
	headerLineRe = regexp.MustCompile(`(?im)^([ \t]*)(mode|encryption|system|assistant|user)[ \t]*:`)
	// sectionRuleRe matches "=====" style section delimiters.
	sectionRuleRe = regexp.MustCompile(`={3,}`)

	tokenPieces = strings.NewReplacer("<|", "<", "|>", ">")
)

// Neutralize removes everything from s that could close the persona's system
// block or open a new one: control tokens (whole or in pieces), line-leading
// role and mode headers, and section rules. The result is a fixed point, so
// Neutralize(Neutralize(s)) == Neutralize(s).
func Neutralize(s string) string {
	for {
		// Removing a token can join its neighbours into a new one.
		if next := controlTokenRe.ReplaceAllString(s, ""); next != s {
			s = next
			continue
		}
		next := tokenPieces.Replace(s)
		next = sectionRuleRe.ReplaceAllString(next, "==")
		next = headerLineRe.ReplaceAllString(next, "${1}${2} -")
		if next == s {
			return s
		}
		s = next
	}
}

// HasCJK reports whether s contains any Han characters.
func HasCJK(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

var scrollNumberRe = regexp.MustCompile(`(?i)scroll\s*#?\s*(\d+)`)

// ScrollNumber extracts the scroll number a traveler asked about, if any.
func ScrollNumber(userText string) (int, bool) {
	m := scrollNumberRe.FindStringSubmatch(userText)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
