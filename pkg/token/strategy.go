package token

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
)

// MaxDecodedSize bounds how many bytes a compressed token may inflate to.
const MaxDecodedSize = 1 << 20

var (
	// ErrTooLarge is returned when a compressed token inflates past MaxDecodedSize.
	ErrTooLarge = errors.New("decoded token exceeds size limit")
	// ErrNotText is returned when a token decodes to bytes that are not UTF-8.
	ErrNotText = errors.New("decoded token is not valid UTF-8")
)

// Strategy is one way of reading a token back into a prompt.
type Strategy interface {
	Name() string
	Decode(token string) (string, error)
}

// Compressed is the current token format: gzip, then unpadded base64url.
// A zero Level selects gzip.BestCompression.
type Compressed struct {
	Level int
}

func (Compressed) Name() string { return "compressed" }

// Encode compresses prompt and returns its base64url form.
// Invalid UTF-8 is replaced with U+FFFD first so the result always decodes as text.
func (c Compressed) Encode(prompt string) (string, error) {
	text := strings.ToValidUTF8(prompt, string(utf8.RuneError))

	level := c.Level
	if level == 0 {
		level = gzip.BestCompression
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return "", fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := zw.Write([]byte(text)); err != nil {
		return "", fmt.Errorf("failed to compress prompt: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to flush gzip stream: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode.
func (Compressed) Decode(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return "", fmt.Errorf("invalid base64: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("invalid gzip header: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, MaxDecodedSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to decompress token: %w", err)
	}
	if len(data) > MaxDecodedSize {
		return "", ErrTooLarge
	}
	if !utf8.Valid(data) {
		return "", ErrNotText
	}
	return string(data), nil
}

// Legacy reads links generated before compression, which carried the
// percent-encoded prompt directly.
type Legacy struct{}

func (Legacy) Name() string { return "legacy" }

// Encode percent-encodes prompt.
func (Legacy) Encode(prompt string) string {
	return EscapeComponent(prompt)
}

// Decode percent-decodes token. '+' is kept literally.
func (Legacy) Decode(token string) (string, error) {
	return url.PathUnescape(token)
}

// Verbatim accepts any token as the prompt itself.
type Verbatim struct{}

func (Verbatim) Name() string { return "verbatim" }

func (Verbatim) Decode(token string) (string, error) {
	return token, nil
}
