package summary

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mikey/inbox-digest/internal/core"
	"github.com/mikey/inbox-digest/internal/utils"
	"go.uber.org/zap"
)

type fakeCompletion struct {
	response string
	prompts  []string
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, nil
}

func newTestSummarizer(client core.CompletionClient, perItem bool) *Summarizer {
	text := utils.NewTextProcessor(zap.NewNop())
	return NewSummarizer(client, text, Options{PerItem: perItem, MaxTokens: 500}, zap.NewNop())
}

func sampleEmails() []core.EmailItem {
	return []core.EmailItem{
		{
			ID:         "m1",
			Sender:     "LinkedIn <notify@linkedin.com>",
			Subject:    "You have a new connection request",
			Snippet:    "Jane Doe wants to connect",
			ReceivedAt: time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC),
			Account:    "work@example.com",
		},
		{
			ID:         "m2",
			Sender:     "GitHub <noreply@github.com>",
			Subject:    "Your build failed",
			Snippet:    "Build 42 failed on main",
			ReceivedAt: time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC),
			Account:    "dev@example.com",
		},
	}
}

func TestPerItemDigestLayout(t *testing.T) {
	client := &fakeCompletion{response: "Short summary."}
	s := newTestSummarizer(client, true)

	digest, err := s.Summarize(context.Background(), sampleEmails(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Accounts appear alphabetically, each item summarized individually.
	devIdx := strings.Index(digest, "Email: dev@example.com")
	workIdx := strings.Index(digest, "Email: work@example.com")
	if devIdx < 0 || workIdx < 0 {
		t.Fatalf("missing account headers in digest:\n%s", digest)
	}
	if devIdx > workIdx {
		t.Error("accounts must be ordered alphabetically")
	}
	for _, want := range []string{
		"Sender: LinkedIn",
		"Sender: GitHub",
		"Time: Aug 30, 2026 2:05 PM",
		"Subject: Your build failed",
		"Summary: Short summary.",
	} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
	if len(client.prompts) != 2 {
		t.Errorf("expected one completion per email, got %d", len(client.prompts))
	}
}

func TestBatchDigestSinglePrompt(t *testing.T) {
	client := &fakeCompletion{response: "  aggregated digest  "}
	s := newTestSummarizer(client, false)

	digest, err := s.Summarize(context.Background(), sampleEmails(), []core.FeedItem{
		{ID: "f1", Source: "Hacker News", Title: "Go 1.24 released", PublishedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if digest != "aggregated digest" {
		t.Errorf("digest not trimmed: %q", digest)
	}
	if len(client.prompts) != 1 {
		t.Fatalf("batch mode must use a single prompt, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	for _, want := range []string{
		"=== Account: work@example.com ===",
		"=== Account: dev@example.com ===",
		"=== RSS ===",
		"Go 1.24 released",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestFallbackDigestWhenModelRefuses(t *testing.T) {
	client := &fakeCompletion{response: "No notable updates today."}
	s := newTestSummarizer(client, false)

	feedItems := []core.FeedItem{
		{ID: "f1", Source: "HN", Title: "Some headline", PublishedAt: time.Now()},
	}
	digest, err := s.Summarize(context.Background(), sampleEmails(), feedItems)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"Email from LinkedIn: You have a new connection request",
		"Email from GitHub: Your build failed",
		"RSS HN: Some headline",
	} {
		if !strings.Contains(digest, want) {
			t.Errorf("fallback digest missing %q:\n%s", want, digest)
		}
	}
	if strings.Contains(strings.ToLower(digest), "no notable updates") {
		t.Error("fallback digest must replace the refusal text")
	}
}

func TestSummarizeNothingReturnsEmpty(t *testing.T) {
	client := &fakeCompletion{response: "should not be called"}
	s := newTestSummarizer(client, true)

	digest, err := s.Summarize(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if digest != "" {
		t.Errorf("expected empty digest, got %q", digest)
	}
	if len(client.prompts) != 0 {
		t.Error("no completion calls expected for an empty batch")
	}
}

func TestShortSender(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LinkedIn <notify@linkedin.com>", "LinkedIn"},
		{"notify@linkedin.com", "notify@linkedin.com"},
		{"  Spaced Name  <x@y.com>", "Spaced Name"},
	}
	for _, tt := range tests {
		if got := shortSender(tt.in); got != tt.want {
			t.Errorf("shortSender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
