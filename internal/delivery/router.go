package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

const (
	// MethodSMS delivers the digest as a text message.
	MethodSMS = "sms"
	// MethodEmail delivers the digest as a plain-text email.
	MethodEmail = "email"
)

const emailSubject = "Inbox digest"

// Router picks the delivery channel for a finished digest. SMS is the
// primary channel; when it fails and an email recipient is configured
// the same digest is sent by email exactly once.
type Router struct {
	sms      core.SMSSender
	email    core.EmailSender
	notify   config.NotifyConfig
	accounts []config.AccountConfig
	logger   *zap.Logger
}

// NewRouter creates a delivery router. sms or email may be nil when the
// corresponding channel is not configured.
func NewRouter(sms core.SMSSender, email core.EmailSender, notify config.NotifyConfig, accounts []config.AccountConfig, logger *zap.Logger) *Router {
	return &Router{
		sms:      sms,
		email:    email,
		notify:   notify,
		accounts: accounts,
		logger:   logger,
	}
}

// Deliver sends the digest on the configured channel. An empty digest
// is a delivered no-op so the run still commits its cursor.
func (r *Router) Deliver(ctx context.Context, digest string) (*core.DeliveryOutcome, error) {
	if strings.TrimSpace(digest) == "" {
		r.logger.Info("Empty digest, nothing to deliver")
		return &core.DeliveryOutcome{Channel: "none", DeliveredAt: time.Now().UTC()}, nil
	}

	method := r.notify.Method
	if method == "" {
		method = MethodSMS
	}

	switch method {
	case MethodEmail:
		return r.deliverEmail(ctx, digest, false)
	case MethodSMS:
		outcome, err := r.deliverSMS(ctx, digest)
		if err == nil {
			return outcome, nil
		}
		if !r.canFallBack() {
			return nil, err
		}
		r.logger.Warn("SMS delivery failed, falling back to email", zap.Error(err))
		return r.deliverEmail(ctx, digest, true)
	default:
		return nil, fmt.Errorf("unknown delivery method %q", method)
	}
}

func (r *Router) deliverSMS(ctx context.Context, digest string) (*core.DeliveryOutcome, error) {
	if r.sms == nil {
		return nil, fmt.Errorf("sms delivery requested but no SMS sender configured")
	}
	sid, err := r.sms.Send(ctx, digest)
	if err != nil {
		return nil, err
	}
	return &core.DeliveryOutcome{
		Channel:     MethodSMS,
		MessageID:   sid,
		DeliveredAt: time.Now().UTC(),
	}, nil
}

func (r *Router) deliverEmail(ctx context.Context, digest string, fellBack bool) (*core.DeliveryOutcome, error) {
	if r.email == nil {
		return nil, fmt.Errorf("email delivery requested but no email sender configured")
	}
	to := r.notify.Email
	if to == "" {
		return nil, fmt.Errorf("email delivery requested but notify.email is not set")
	}
	from, err := r.fromAddress()
	if err != nil {
		return nil, err
	}
	if err := r.email.Send(ctx, from, to, emailSubject, digest); err != nil {
		return nil, err
	}
	return &core.DeliveryOutcome{
		Channel:     MethodEmail,
		FellBack:    fellBack,
		DeliveredAt: time.Now().UTC(),
	}, nil
}

// fromAddress resolves the sending account: the explicit send_from
// address when it maps to a monitored account, otherwise the monitored
// account matching the recipient, otherwise the first account. A
// send_from with no matching account falls through; the sender only
// has credentials for monitored accounts.
func (r *Router) fromAddress() (string, error) {
	if len(r.accounts) == 0 {
		return "", fmt.Errorf("no monitored accounts available to send from")
	}
	if r.notify.SendFrom != "" {
		for _, a := range r.accounts {
			if strings.EqualFold(a.Username, r.notify.SendFrom) {
				return a.Username, nil
			}
		}
		r.logger.Warn("notify.send_from does not match a monitored account; falling back",
			zap.String("send_from", r.notify.SendFrom))
	}
	for _, a := range r.accounts {
		if strings.EqualFold(a.Username, r.notify.Email) {
			return a.Username, nil
		}
	}
	return r.accounts[0].Username, nil
}

func (r *Router) canFallBack() bool {
	return r.email != nil && r.notify.Email != "" && len(r.accounts) > 0
}
