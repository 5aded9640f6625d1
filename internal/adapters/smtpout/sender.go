package smtpout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/inbox-digest/internal/config"
	"github.com/mikey/inbox-digest/internal/core"
	"go.uber.org/zap"
)

const defaultSendTimeout = 30 * time.Second

// Endpoint is an outbound SMTP submission endpoint.
type Endpoint struct {
	Host string
	Port int
	// SSL selects implicit TLS (port 465) instead of STARTTLS.
	SSL bool
}

// Addr returns the host:port dial address.
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// InferSMTPEndpoint guesses the submission endpoint that pairs with an
// IMAP host. The mapping covers the common providers; anything else
// falls back to replacing the imap. prefix.
func InferSMTPEndpoint(imapHost string) Endpoint {
	host := strings.ToLower(strings.TrimSpace(imapHost))
	switch {
	case strings.Contains(host, "secureserver.net"):
		// GoDaddy submission is implicit TLS only. Known to be flaky.
		return Endpoint{Host: "smtpout.secureserver.net", Port: 465, SSL: true}
	case host == "imap.gmail.com":
		return Endpoint{Host: "smtp.gmail.com", Port: 587}
	case host == "outlook.office365.com" || host == "imap-mail.outlook.com":
		return Endpoint{Host: "smtp.office365.com", Port: 587}
	case strings.HasPrefix(host, "imap."):
		return Endpoint{Host: "smtp." + strings.TrimPrefix(host, "imap."), Port: 587}
	default:
		return Endpoint{Host: strings.Replace(host, "imap", "smtp", 1), Port: 587}
	}
}

// Sender delivers digests as plain-text emails over SMTP submission.
// Credentials are reused from the monitored account matching the from
// address.
type Sender struct {
	accounts map[string]config.AccountConfig
	notify   config.NotifyConfig
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSender creates an email sender backed by the configured accounts.
func NewSender(accounts []config.AccountConfig, notify config.NotifyConfig, logger *zap.Logger) *Sender {
	byAddr := make(map[string]config.AccountConfig, len(accounts))
	for _, a := range accounts {
		byAddr[strings.ToLower(a.Username)] = a
	}
	timeout := defaultSendTimeout
	if notify.Timeout != "" {
		if d, err := time.ParseDuration(notify.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}
	return &Sender{
		accounts: byAddr,
		notify:   notify,
		timeout:  timeout,
		logger:   logger,
	}
}

// Send sends a plain-text message from one of the monitored accounts.
func (s *Sender) Send(ctx context.Context, from, to, subject, body string) error {
	account, ok := s.accounts[strings.ToLower(from)]
	if !ok {
		return fmt.Errorf("no monitored account for sender %q", from)
	}

	endpoint := s.endpointFor(account)
	msg := buildMessage(from, to, subject, body)
	auth := sasl.NewPlainClient("", account.Username, account.Password)

	s.logger.Debug("Sending email",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("smtp_host", endpoint.Host),
		zap.Int("smtp_port", endpoint.Port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- send(endpoint, auth, from, to, msg)
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case err := <-errCh:
		if err != nil {
			if isAuthError(err) {
				return fmt.Errorf("%w: smtp %s: %v", core.ErrAuth, endpoint.Host, err)
			}
			return fmt.Errorf("%w: smtp %s: %v", core.ErrConnect, endpoint.Host, err)
		}
		s.logger.Info("Email sent", zap.String("to", to), zap.String("smtp_host", endpoint.Host))
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: smtp %s: send timed out after %s", core.ErrConnect, endpoint.Host, s.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sender) endpointFor(account config.AccountConfig) Endpoint {
	if s.notify.SMTPHost != "" {
		port := s.notify.SMTPPort
		if port == 0 {
			port = 587
		}
		return Endpoint{Host: s.notify.SMTPHost, Port: port, SSL: port == 465}
	}
	return InferSMTPEndpoint(account.Host)
}

func send(endpoint Endpoint, auth sasl.Client, from, to string, msg []byte) error {
	r := strings.NewReader(string(msg))
	if endpoint.SSL {
		return smtp.SendMailTLS(endpoint.Addr(), auth, from, []string{to}, r)
	}
	return smtp.SendMail(endpoint.Addr(), auth, from, []string{to}, r)
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "invalid credentials") ||
		strings.Contains(msg, "username and password not accepted") ||
		strings.Contains(msg, "535")
}
