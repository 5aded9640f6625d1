package filter

import (
	"strings"

	"go.uber.org/zap"
)

// Rules decides whether a fetched email is relevant, based on sender
// substrings and subject keywords. Matching is case-insensitive
// substring containment, any-of within a set. When both sets are
// configured an item passes if EITHER set matches; the permissive OR
// keeps relevant items from being silently dropped.
type Rules struct {
	fromFilters     []string
	subjectKeywords []string
	logger          *zap.Logger
}

// NewRules creates a filter rule set. Entries are trimmed and lowercased;
// empty entries are dropped.
func NewRules(fromFilters, subjectKeywords []string, logger *zap.Logger) *Rules {
	return &Rules{
		fromFilters:     normalize(fromFilters),
		subjectKeywords: normalize(subjectKeywords),
		logger:          logger,
	}
}

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Empty reports whether no filters are configured (pass-through mode).
func (r *Rules) Empty() bool {
	return len(r.fromFilters) == 0 && len(r.subjectKeywords) == 0
}

// Matches applies the filter rules to one email's sender and subject.
func (r *Rules) Matches(sender, subject string) bool {
	if r.Empty() {
		return true
	}

	sender = strings.ToLower(sender)
	subject = strings.ToLower(subject)

	fromMatch := containsAny(sender, r.fromFilters)
	subjectMatch := containsAny(subject, r.subjectKeywords)

	var matched bool
	switch {
	case len(r.fromFilters) > 0 && len(r.subjectKeywords) > 0:
		matched = fromMatch || subjectMatch
	case len(r.fromFilters) > 0:
		matched = fromMatch
	default:
		matched = subjectMatch
	}

	if !matched && r.logger != nil {
		r.logger.Debug("Email filtered out",
			zap.String("sender", sender),
			zap.String("subject", subject))
	}
	return matched
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
