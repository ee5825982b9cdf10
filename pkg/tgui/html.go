// Package tgui holds small helpers for building Telegram messages:
// HTML-safe text and inline keyboards with structured callback data.
package tgui

import (
	"fmt"
	"html"
	"strings"
)

// H is HTML that is safe to send with ParseMode="HTML".
// Values of type H should be treated as already-escaped.
type H string

func (h H) String() string { return string(h) }

// Esc escapes plain text for Telegram HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

// Raw marks a string as already-safe HTML. Use sparingly.
func Raw(s string) H { return H(s) }

func wrap(tag string, inner H) H { return H("<" + tag + ">" + inner.String() + "</" + tag + ">") }

func B(s string) H    { return wrap("b", Esc(s)) }
func I(s string) H    { return wrap("i", Esc(s)) }
func Code(s string) H { return wrap("code", Esc(s)) }

// Lines joins HTML parts with newlines, skipping empties.
func Lines(parts ...H) H {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p.String()) == "" {
			continue
		}
		out = append(out, p.String())
	}
	return H(strings.Join(out, "\n"))
}

// Hf is fmt.Sprintf over already-safe fragments.
// The format string itself must not need escaping.
func Hf(format string, args ...any) H {
	safe := make([]any, len(args))
	for i, a := range args {
		if h, ok := a.(H); ok {
			safe[i] = h.String()
		} else {
			safe[i] = a
		}
	}
	return H(fmt.Sprintf(format, safe...))
}
