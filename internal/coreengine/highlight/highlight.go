// Package highlight tags the tokens of an alignment with their edit kind and
// joins them into markup for one side of a comparison.
package highlight

import (
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"speech-eval-toolkit/internal/coreengine/alignment"
)

// Decorator turns a token into its rendered form.
type Decorator func(token string) string

// Style maps each edit kind to a decorator. A nil decorator leaves the
// token unchanged.
type Style struct {
	Equal        Decorator
	Insertion    Decorator
	Deletion     Decorator
	Substitution Decorator
}

func (s Style) decorate(kind alignment.Kind, token string) string {
	var d Decorator
	switch kind {
	case alignment.Equal:
		d = s.Equal
	case alignment.Insertion:
		d = s.Insertion
	case alignment.Deletion:
		d = s.Deletion
	case alignment.Substitution:
		d = s.Substitution
	}
	if d == nil {
		return token
	}
	return d(token)
}

// Span is one rendered token.
type Span struct {
	Kind  alignment.Kind `json:"kind"`
	Token string         `json:"token"`
	Text  string         `json:"text"`
}

// Rendered holds the two parallel span sequences of a comparison.
type Rendered struct {
	Reference  []Span `json:"reference"`
	Hypothesis []Span `json:"hypothesis"`
}

// ReferenceMarkup joins the reference spans with single spaces.
func (r Rendered) ReferenceMarkup() string { return join(r.Reference) }

// HypothesisMarkup joins the hypothesis spans with single spaces.
func (r Rendered) HypothesisMarkup() string { return join(r.Hypothesis) }

func join(spans []Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.Text
	}
	return strings.Join(parts, " ")
}

// Render walks ops over ref and hyp. Equal and Substitution tokens appear on
// both sides, Deletion only on the reference side and Insertion only on the
// hypothesis side.
func Render(ops []alignment.Operation, ref, hyp []string, style Style) Rendered {
	out := Rendered{Reference: []Span{}, Hypothesis: []Span{}}
	emit := func(dst *[]Span, kind alignment.Kind, tokens []string) {
		for _, tok := range tokens {
			*dst = append(*dst, Span{Kind: kind, Token: tok, Text: style.decorate(kind, tok)})
		}
	}
	for _, op := range ops {
		if op.Kind != alignment.Insertion {
			emit(&out.Reference, op.Kind, ref[op.RefStart:op.RefEnd])
		}
		if op.Kind != alignment.Deletion {
			emit(&out.Hypothesis, op.Kind, hyp[op.HypStart:op.HypEnd])
		}
	}
	return out
}

// Wrap surrounds a token with fixed open and close strings.
func Wrap(open, close string) Decorator {
	return func(token string) string { return open + token + close }
}

// HTMLSpan renders an escaped token inside a span with the given background.
func HTMLSpan(color string) Decorator {
	return func(token string) string {
		return fmt.Sprintf("<span style='background-color:%s'>%s</span>", color, html.EscapeString(token))
	}
}

// Lipgloss renders a token with a terminal style.
func Lipgloss(st lipgloss.Style) Decorator {
	return func(token string) string { return st.Render(token) }
}

// Colours used for HTML highlights.
const (
	ColorEqual        = "yellow"
	ColorDeletion     = "red"
	ColorInsertion    = "green"
	ColorSubstitution = "purple"
)

// HTMLStyle highlights with inline background colours.
func HTMLStyle() Style {
	return Style{
		Equal:        HTMLSpan(ColorEqual),
		Insertion:    HTMLSpan(ColorInsertion),
		Deletion:     HTMLSpan(ColorDeletion),
		Substitution: HTMLSpan(ColorSubstitution),
	}
}

// BracketStyle marks edits with plain-text brackets and leaves equal tokens bare.
func BracketStyle() Style {
	return Style{
		Insertion:    Wrap("{+", "+}"),
		Deletion:     Wrap("[-", "-]"),
		Substitution: Wrap("<~", "~>"),
	}
}

// TerminalStyle colours tokens with ANSI escapes. Output degrades to plain
// text when the terminal has no colour support.
func TerminalStyle() Style {
	return Style{
		Equal:        Lipgloss(lipgloss.NewStyle().Foreground(lipgloss.Color("3"))),
		Insertion:    Lipgloss(lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)),
		Deletion:     Lipgloss(lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Strikethrough(true)),
		Substitution: Lipgloss(lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Underline(true)),
	}
}

// StyleByName resolves "html", "plain" or "terminal".
func StyleByName(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "html":
		return HTMLStyle(), nil
	case "plain", "bracket":
		return BracketStyle(), nil
	case "terminal", "ansi":
		return TerminalStyle(), nil
	default:
		return Style{}, fmt.Errorf("unknown highlight style %q", name)
	}
}
