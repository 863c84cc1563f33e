package domain

import "errors"

// ErrEmptyPrompt is returned when a prompt is blank after trimming.
var ErrEmptyPrompt = errors.New("prompt is empty")

// ErrPromptTooLarge is returned when a prompt exceeds the configured byte limit.
var ErrPromptTooLarge = errors.New("prompt exceeds maximum allowed size")

// ErrInvalidUTF8 is returned when a prompt is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("prompt contains invalid UTF-8 sequences")

// ErrMissingToken is returned when a link carries no token.
var ErrMissingToken = errors.New("missing prompt")

// ErrUnknownEventType is returned when an analytics event type is not recognized.
var ErrUnknownEventType = errors.New("unknown analytics event type")
