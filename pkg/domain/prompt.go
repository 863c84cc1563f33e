package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxPromptBytes is the prompt size limit used when none is configured.
const DefaultMaxPromptBytes = 4096

// NormalizePrompt validates user input before it is turned into a link.
// Surrounding whitespace is trimmed, control characters other than
// newline, tab and carriage return are removed, and the text is put in
// Unicode NFC form so that the same question always yields the same link.
// A non-positive maxBytes selects DefaultMaxPromptBytes.
func NormalizePrompt(input string, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPromptBytes
	}

	// Reject rather than truncate: a truncated prompt is a different question.
	if len(input) > maxBytes {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrPromptTooLarge, len(input), maxBytes)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	prompt := strings.TrimSpace(norm.NFC.String(stripControl(input)))
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	return prompt, nil
}

func stripControl(input string) string {
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
