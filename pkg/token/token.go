package token

import (
	"net/url"
	"strings"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/klauspost/compress/gzip"
)

// Codec turns prompts into URL-safe tokens and back.
// Decoding walks an ordered list of strategies, so tokens produced before
// compression was introduced keep resolving.
type Codec struct {
	level      int
	strategies []Strategy
}

// Option configures a Codec.
type Option func(*Codec)

// WithLevel sets the gzip compression level used by Encode.
func WithLevel(level int) Option {
	return func(c *Codec) {
		c.level = level
	}
}

// WithStrategies replaces the decode strategy chain.
// The chain is always terminated by Verbatim, so Decode stays total.
func WithStrategies(strategies ...Strategy) Option {
	return func(c *Codec) {
		c.strategies = strategies
	}
}

// New creates a Codec with the compressed and legacy strategies.
func New(opts ...Option) *Codec {
	c := &Codec{
		level: gzip.BestCompression,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.strategies == nil {
		c.strategies = []Strategy{Compressed{Level: c.level}, Legacy{}}
	}
	c.strategies = append(c.strategies, Verbatim{})
	return c
}

var defaultCodec = New()

// Encode encodes prompt with the default Codec.
func Encode(prompt string) string {
	return defaultCodec.Encode(prompt)
}

// Decode decodes token with the default Codec.
func Decode(token string) string {
	return defaultCodec.Decode(token)
}

// Encode returns the URL-safe token for prompt.
// It never fails: if compression breaks, the prompt is percent-encoded instead.
func (c *Codec) Encode(prompt string) string {
	out, err := Compressed{Level: c.level}.Encode(prompt)
	if err != nil {
		return EscapeComponent(prompt)
	}
	return out
}

// Decode returns the prompt carried by token.
func (c *Codec) Decode(token string) string {
	prompt, _ := c.DecodeStrategy(token)
	return prompt
}

// DecodeStrategy returns the prompt and the name of the strategy that produced it.
func (c *Codec) DecodeStrategy(token string) (string, string) {
	for _, s := range c.strategies {
		prompt, err := s.Decode(token)
		if err == nil {
			return prompt, s.Name()
		}
	}
	// Unreachable while Verbatim terminates the chain.
	return token, Verbatim{}.Name()
}

// EscapeComponent percent-encodes s for use as a single URL query value.
// Spaces become %20 rather than '+', so the result survives decoders that
// do not translate '+'.
func EscapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// AssistantURL builds the redirect link that opens the assistant with prompt prefilled.
func AssistantURL(base, prompt string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "q=" + EscapeComponent(prompt)
}

// Link builds the shareable link for an already normalized prompt.
// publicURL is the origin of the link service, without a trailing slash.
func (c *Codec) Link(publicURL, assistantBase, prompt string) domain.Link {
	tok := c.Encode(prompt)
	return domain.Link{
		Prompt:       prompt,
		Token:        tok,
		URL:          publicURL + "/replit?q=" + tok,
		AssistantURL: AssistantURL(assistantBase, prompt),
	}
}
