// Package marker wraps field values in delimited spans and later resolves
// those spans into styled runs.
//
// A span is written as RS NAME_START RS value RS NAME_END RS, where RS is the
// ASCII record separator (U+001E). Normalized values never contain RS, so
// product names that happen to read like markers stay plain text.
package marker

import (
	"errors"
	"fmt"
	"strings"

	"labelforge/internal/label/fontsize"
)

const sep = "\x1e"

const (
	startSuffix = "_START"
	endSuffix   = "_END"
)

// ErrUnterminated reports a start marker without its end marker.
var ErrUnterminated = errors.New("unterminated marker span")

// Wrap encloses value in start and end markers for field.
func Wrap(field fontsize.Field, value string) string {
	name := string(field)
	return sep + name + startSuffix + sep + value + sep + name + endSuffix + sep
}

// Contains reports whether text may hold a marker span.
func Contains(text string) bool {
	return strings.Contains(text, sep)
}

type Kind int

const (
	KindText Kind = iota
	KindSpan
)

// Token is a run of plain text or one field span.
type Token struct {
	Kind  Kind
	Field fontsize.Field
	Text  string
}

// Tokenize splits text into plain text and field spans. Separators that do
// not open a well-formed start marker are kept as text. A start marker with
// no matching end marker is an error and no tokens are returned.
func Tokenize(text string) ([]Token, error) {
	var (
		tokens []Token
		plain  strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			tokens = append(tokens, Token{Kind: KindText, Text: plain.String()})
			plain.Reset()
		}
	}

	rest := text
	for rest != "" {
		i := strings.Index(rest, sep)
		if i < 0 {
			plain.WriteString(rest)
			break
		}
		plain.WriteString(rest[:i])
		rest = rest[i:]

		name, ok := startName(rest)
		if !ok {
			plain.WriteString(sep)
			rest = rest[len(sep):]
			continue
		}
		open := sep + name + startSuffix + sep
		closing := sep + name + endSuffix + sep
		body := rest[len(open):]
		j := strings.Index(body, closing)
		if j < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnterminated, name)
		}
		flush()
		tokens = append(tokens, Token{Kind: KindSpan, Field: fontsize.Field(name), Text: body[:j]})
		rest = body[j+len(closing):]
	}
	flush()
	return tokens, nil
}

// startName parses "RS NAME_START RS" at the head of s.
func startName(s string) (string, bool) {
	s = s[len(sep):]
	end := strings.Index(s, sep)
	if end < 0 {
		return "", false
	}
	head := s[:end]
	name, ok := strings.CutSuffix(head, startSuffix)
	if !ok || name == "" {
		return "", false
	}
	for _, r := range name {
		if (r < 'A' || r > 'Z') && r != '_' {
			return "", false
		}
	}
	return name, true
}
