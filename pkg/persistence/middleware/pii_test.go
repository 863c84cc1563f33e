package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/lmrtfy/pkg/adapters/memory"
	"github.com/aretw0/lmrtfy/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	// Setup
	underlyingStore := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware(append([]string{`sk-[A-Za-z0-9]+`}, middleware.DefaultPIIPatterns...))
	if err != nil {
		t.Fatal(err)
	}
	secureStore := mw(underlyingStore)
	ctx := context.Background()

	event := testEvent("why does sk-abc123 fail for jdoe@example.com?")
	event.Referer = "https://mail.example.com/?to=jdoe@example.com"

	// 1. Append
	if err := secureStore.Append(ctx, event, 0); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Verify the caller's event is NOT MODIFIED
	if event.Prompt != "why does sk-abc123 fail for jdoe@example.com?" {
		t.Error("Middleware modified the original event!")
	}

	// 2. List (Should be masked)
	stored, err := secureStore.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got := stored[0].Prompt; got != "why does *** fail for ***?" {
		t.Errorf("Unexpected masked prompt: %q", got)
	}
	if got := stored[0].Referer; got != "https://mail.example.com/?to=***" {
		t.Errorf("Unexpected masked referer: %q", got)
	}
	if stored[0].UserAgent != "curl/8.0" {
		t.Error("User agent shouldn't be masked")
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	underlyingStore := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	store := middleware.Chain(underlyingStore, pii, enc)
	ctx := context.Background()

	if err := store.Append(ctx, testEvent("mail me at a@b.io"), 0); err != nil {
		t.Fatal(err)
	}
	events, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if events[0].Prompt != "mail me at ***" {
		t.Errorf("Unexpected prompt: %q", events[0].Prompt)
	}
}
