package twilio

import (
	"context"
	"errors"
	"fmt"

	twilio "github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

// twilioAuthErrorCode is Twilio's "unable to authenticate" REST error.
const twilioAuthErrorCode = 20003

// SMSSender sends digests as text messages through the Twilio REST API.
type SMSSender struct {
	client *twilio.RestClient
	from   string
	to     string
	logger *zap.Logger
}

// NewSMSSender creates an SMS sender from the Twilio credentials.
func NewSMSSender(cfg config.TwilioConfig, logger *zap.Logger) *SMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMSSender{
		client: client,
		from:   cfg.FromNumber,
		to:     cfg.ToNumber,
		logger: logger,
	}
}

// Send sends body to the configured recipient and returns the provider
// message id. Authentication failures are reported as core.ErrAuth.
func (s *SMSSender) Send(ctx context.Context, body string) (string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetBody(body)
	params.SetFrom(s.from)
	params.SetTo(s.to)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		if isAuthError(err) {
			s.logger.Error("Twilio authentication failed; check account SID and auth token "+
				"against the Twilio console (credentials may have been regenerated, "+
				"or the account may be suspended)",
				zap.Error(err))
			return "", fmt.Errorf("%w: twilio: %v", core.ErrAuth, err)
		}
		return "", fmt.Errorf("failed to send SMS: %w", err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.Info("SMS sent", zap.String("sid", sid))
	return sid, nil
}

func isAuthError(err error) bool {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		return restErr.Code == twilioAuthErrorCode || restErr.Status == 401
	}
	return false
}
