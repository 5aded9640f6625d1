package filter

import (
	"testing"

	"go.uber.org/zap"
)

func TestMatchesWithBothSetsUsesOr(t *testing.T) {
	rules := NewRules(
		[]string{"linkedin.com", "notifications@github.com"},
		[]string{"invitation", "mentioned you"},
		zap.NewNop(),
	)

	tests := []struct {
		name    string
		sender  string
		subject string
		want    bool
	}{
		{"sender match only", "LinkedIn <jobs@linkedin.com>", "weekly jobs roundup", true},
		{"subject match only", "Some Service <noreply@example.com>", "You have a new Invitation", true},
		{"both match", "LinkedIn <invites@linkedin.com>", "Invitation to connect", true},
		{"neither match", "Billing <billing@example.com>", "Your receipt", false},
		{"case insensitive sender", "NOREPLY@LINKEDIN.COM", "unrelated", true},
		{"case insensitive subject", "other@example.com", "Alice MENTIONED YOU in a thread", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rules.Matches(tt.sender, tt.subject); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.sender, tt.subject, got, tt.want)
			}
		})
	}
}

func TestMatchesWithSingleSet(t *testing.T) {
	fromOnly := NewRules([]string{"linkedin.com"}, nil, zap.NewNop())
	if !fromOnly.Matches("x@linkedin.com", "anything") {
		t.Error("expected sender-only rules to match on sender")
	}
	if fromOnly.Matches("x@example.com", "invitation") {
		t.Error("sender-only rules must not match on subject")
	}

	subjectOnly := NewRules(nil, []string{"invitation"}, zap.NewNop())
	if !subjectOnly.Matches("x@example.com", "Invitation to connect") {
		t.Error("expected subject-only rules to match on subject")
	}
	if subjectOnly.Matches("x@linkedin.com", "hello") {
		t.Error("subject-only rules must not match on sender")
	}
}

func TestEmptyRulesPassEverything(t *testing.T) {
	rules := NewRules(nil, []string{"  ", ""}, zap.NewNop())
	if !rules.Empty() {
		t.Error("blank entries should leave the rule set empty")
	}
	if !rules.Matches("anyone@example.com", "any subject") {
		t.Error("empty rules must pass every email")
	}
}
