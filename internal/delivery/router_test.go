package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/mikey/inbox-digest/internal/config"
	"go.uber.org/zap"
)

type fakeSMS struct {
	err    error
	calls  int
	bodies []string
}

func (f *fakeSMS) Send(ctx context.Context, body string) (string, error) {
	f.calls++
	f.bodies = append(f.bodies, body)
	if f.err != nil {
		return "", f.err
	}
	return "SM123", nil
}

type fakeEmail struct {
	err    error
	calls  int
	froms  []string
	bodies []string
}

func (f *fakeEmail) Send(ctx context.Context, from, to, subject, body string) error {
	f.calls++
	f.froms = append(f.froms, from)
	f.bodies = append(f.bodies, body)
	return f.err
}

func accounts() []config.AccountConfig {
	return []config.AccountConfig{
		{Username: "first@example.com"},
		{Username: "me@example.com"},
	}
}

func TestDeliverSMSPrimary(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}
	r := NewRouter(sms, email, config.NotifyConfig{Method: "sms", Email: "me@example.com"}, accounts(), zap.NewNop())

	outcome, err := r.Deliver(context.Background(), "digest body")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Channel != MethodSMS || outcome.MessageID != "SM123" || outcome.FellBack {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if email.calls != 0 {
		t.Error("email must not be used when SMS succeeds")
	}
}

func TestDeliverSMSFailureFallsBackOnce(t *testing.T) {
	sms := &fakeSMS{err: errors.New("carrier unreachable")}
	email := &fakeEmail{}
	r := NewRouter(sms, email, config.NotifyConfig{Method: "sms", Email: "me@example.com"}, accounts(), zap.NewNop())

	outcome, err := r.Deliver(context.Background(), "digest body")
	if err != nil {
		t.Fatalf("fallback should have succeeded: %v", err)
	}
	if outcome.Channel != MethodEmail || !outcome.FellBack {
		t.Errorf("expected email fallback outcome, got %+v", outcome)
	}
	if sms.calls != 1 || email.calls != 1 {
		t.Errorf("expected exactly one attempt per channel, got sms=%d email=%d", sms.calls, email.calls)
	}
	if email.bodies[0] != "digest body" {
		t.Error("fallback must carry the same digest")
	}
}

func TestDeliverSMSFailureNoFallbackWithoutRecipient(t *testing.T) {
	sms := &fakeSMS{err: errors.New("carrier unreachable")}
	email := &fakeEmail{}
	r := NewRouter(sms, email, config.NotifyConfig{Method: "sms"}, accounts(), zap.NewNop())

	if _, err := r.Deliver(context.Background(), "digest body"); err == nil {
		t.Fatal("expected the SMS error to surface when no fallback recipient exists")
	}
	if email.calls != 0 {
		t.Error("no fallback attempt expected without a recipient")
	}
}

func TestDeliverEmailMethodResolvesFrom(t *testing.T) {
	tests := []struct {
		name     string
		notify   config.NotifyConfig
		wantFrom string
	}{
		{
			"explicit send_from",
			config.NotifyConfig{Method: "email", Email: "other@example.com", SendFrom: "me@example.com"},
			"me@example.com",
		},
		{
			"unmonitored send_from falls back to matching account",
			config.NotifyConfig{Method: "email", Email: "me@example.com", SendFrom: "ghost@example.com"},
			"me@example.com",
		},
		{
			"unmonitored send_from falls back to first account",
			config.NotifyConfig{Method: "email", Email: "stranger@example.com", SendFrom: "ghost@example.com"},
			"first@example.com",
		},
		{
			"matching monitored account",
			config.NotifyConfig{Method: "email", Email: "me@example.com"},
			"me@example.com",
		},
		{
			"first account fallback",
			config.NotifyConfig{Method: "email", Email: "stranger@example.com"},
			"first@example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &fakeEmail{}
			r := NewRouter(nil, email, tt.notify, accounts(), zap.NewNop())
			outcome, err := r.Deliver(context.Background(), "digest body")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome.Channel != MethodEmail || outcome.FellBack {
				t.Errorf("unexpected outcome: %+v", outcome)
			}
			if email.froms[0] != tt.wantFrom {
				t.Errorf("from = %q, want %q", email.froms[0], tt.wantFrom)
			}
		})
	}
}

func TestDeliverEmptyDigestIsNoOp(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}
	r := NewRouter(sms, email, config.NotifyConfig{Method: "sms", Email: "me@example.com"}, accounts(), zap.NewNop())

	outcome, err := r.Deliver(context.Background(), "   \n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Channel != "none" {
		t.Errorf("expected no-op outcome, got %+v", outcome)
	}
	if sms.calls != 0 || email.calls != 0 {
		t.Error("no channel should be used for an empty digest")
	}
}
