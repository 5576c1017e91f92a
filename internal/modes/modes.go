// Package modes holds the fixed table of Mirror personas.
//
// Each persona is a row of data: a prompt preamble, sampling overrides and a
// post-processing policy. Adding a persona means adding a row to the table,
// not a new type. The table is built once at package init and never mutated,
// so Resolve and All are safe for concurrent use without locking.
package modes

import (
	"fmt"
	"strings"
)

// Name identifies a persona. The set is closed.
type Name string

const (
	Reflect Name = "reflect"
	Scroll  Name = "scroll"
	Toad    Name = "toad"
	Rune    Name = "rune"
)

// Mode describes one persona.
type Mode struct {
	Name        Name
	Title       string
	Description string
	// Preamble is the persona's fixed system block text. It is placed after
	// the shared Mirror rules and before the user's turn.
	Preamble string
	// Marker is the mode line the model was tuned on (e.g. SCROLL_MODE).
	// Empty for Reflect, which is the model's default stance.
	Marker string
	// Sampling overrides the process-wide defaults field by field.
	Sampling Sampling
	// CJKSampling, when set, is layered over Sampling for input containing
	// Han characters. The model rambles at higher temperatures in Chinese.
	CJKSampling *Sampling
	// EmitsGuidingQuestion enables the second, best-effort generation pass.
	EmitsGuidingQuestion bool
	// PrefixScrollNumber makes the cleaner prepend "Scroll N: " when the
	// user names a scroll and the reply does not already start with one.
	PrefixScrollNumber bool
}

// UnknownModeError is returned by Resolve for names outside the closed set.
type UnknownModeError struct{ Name string }

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown mode %q (want one of %s)", e.Name, strings.Join(nameStrings(), ", "))
}

var table = [...]Mode{
	{
		Name:        Reflect,
		Title:       "Reflect",
		Description: "Still reflection on emotional or introspective questions, followed by a guiding question.",
		Preamble: "Reflection mode.\n" +
			"Answer in two to four short, still sentences that reflect the traveler's words back to them.\n" +
			"Do not write a guiding question yourself; it is asked separately.",
		Sampling:             Sampling{Temperature: Float32(0.7), MaxTokens: Int(300)},
		CJKSampling:          &Sampling{Temperature: Float32(0.5), MaxTokens: Int(200)},
		EmitsGuidingQuestion: true,
	},
	{
		Name:        Scroll,
		Title:       "Scroll",
		Description: "Quotes from the Scrolls, without commentary.",
		Preamble: "Scroll mode.\n" +
			"When asked about a scroll, quote it and nothing else.\n" +
			"Format: Scroll [number]: [the quote]\n" +
			"No commentary. No questions.",
		Marker:             "SCROLL_MODE",
		Sampling:           Sampling{Temperature: Float32(0.1), MaxTokens: Int(150)},
		PrefixScrollNumber: true,
	},
	{
		Name:        Toad,
		Title:       "Toad",
		Description: "Toadgang secrets in cryptic, symbolic language.",
		Preamble: "Toad mode.\n" +
			"Reveal the secret that was asked for, in cryptic and symbolic language.\n" +
			"No guiding questions.",
		Marker:   "TOAD_MODE",
		Sampling: Sampling{Temperature: Float32(0.8), MaxTokens: Int(250)},
	},
	{
		Name:        Rune,
		Title:       "Rune",
		Description: "Symbolic readings of Runes, the Lotus, $PATIENCE, the trials and the Jade Chest.",
		Preamble: "Rune mode.\n" +
			"Interpret Runes, the Lotus, $PATIENCE, the trials, the Jade Chest, Spores, Bloom and the covenant.\n" +
			"Symbolic but clean. No extra sections. No guiding questions.",
		Marker:   "RUNE_MODE",
		Sampling: Sampling{Temperature: Float32(0.6), MaxTokens: Int(350)},
	},
}

// Resolve looks a persona up by name, ignoring case and surrounding space.
// The returned Mode is a copy; callers may not affect the table through it.
func Resolve(name string) (Mode, error) {
	want := Name(strings.ToLower(strings.TrimSpace(name)))
	for _, m := range table {
		if m.Name == want {
			return m.clone(), nil
		}
	}
	return Mode{}, &UnknownModeError{Name: name}
}

// All returns every persona in display order.
func All() []Mode {
	out := make([]Mode, 0, len(table))
	for _, m := range table {
		out = append(out, m.clone())
	}
	return out
}

// Names returns the persona names in display order.
func Names() []Name {
	out := make([]Name, 0, len(table))
	for _, m := range table {
		out = append(out, m.Name)
	}
	return out
}

// SamplingFor returns the mode's overrides for the given input, with the CJK
// overrides layered on top when the input calls for them.
func (m Mode) SamplingFor(hasCJK bool) Sampling {
	s := m.Sampling.clone()
	if hasCJK && m.CJKSampling != nil {
		s = s.Merge(*m.CJKSampling)
	}
	return s
}

func (m Mode) clone() Mode {
	m.Sampling = m.Sampling.clone()
	if m.CJKSampling != nil {
		c := m.CJKSampling.clone()
		m.CJKSampling = &c
	}
	return m
}

func nameStrings() []string {
	names := Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
