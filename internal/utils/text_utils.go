package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// SnippetLimit bounds the plain-text excerpt carried for each item.
const SnippetLimit = 600

// MaxLinks bounds how many URLs are extracted per email.
const MaxLinks = 5

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	// Trailing sentence punctuation is excluded so "see https://x.com." does
	// not capture the period.
	urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+[^\s<>"{}|\\^` + "`" + `\[\].,;:!?]`)
)

// TextProcessor provides utilities for processing item text.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor.
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{logger: logger}
}

// PlainText strips HTML tags, decodes entities and normalizes whitespace.
// Plain input passes through the same normalization unchanged in meaning.
func (tp *TextProcessor) PlainText(body string) string {
	// Message bodies arrive straight off the wire and can carry broken
	// encodings.
	text := tp.SanitizeUTF8(body)
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Snippet produces the bounded plain-text excerpt for an item body.
func (tp *TextProcessor) Snippet(body string) string {
	text := tp.PlainText(body)
	if len(text) <= SnippetLimit {
		return text
	}
	truncated := tp.TruncateText(text, SnippetLimit)
	return strings.TrimSpace(truncated) + "..."
}

// ExtractLinks returns up to MaxLinks distinct URLs from text, in order
// of first appearance.
func (tp *TextProcessor) ExtractLinks(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var links []string
	for _, link := range matches {
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
		if len(links) == MaxLinks {
			break
		}
	}
	return links
}

// TruncateText safely truncates text to the specified maximum byte size
// and ensures the result is valid UTF-8.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	if tp.logger != nil {
		tp.logger.Debug("Text truncated",
			zap.Int("original_size", len(text)),
			zap.Int("truncated_size", len(truncated)),
			zap.Int("max_size", maxSize))
	}
	return truncated
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters.
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}
	return string(result)
}
