package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/splax/accounts/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// OTPMessage builds the verification email carrying code.
func OTPMessage(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email",
		Body:    fmt.Sprintf("Your OTP is %s", code),
	}
}

// NewSender selects the delivery backend named by cfg.MailDriver. The returned
// close func releases any connection the sender holds.
func NewSender(ctx context.Context, cfg config.APIConfig, logger *slog.Logger) (Sender, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.MailDriver)) {
	case "", config.MailDriverLog:
		return NewLogSender(logger), noop, nil
	case config.MailDriverSMTP:
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass, cfg.Sender()), noop, nil
	case config.MailDriverRedis:
		outbox, err := DialRedisOutbox(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MailOutboxKey)
		if err != nil {
			return nil, nil, err
		}
		return outbox, outbox.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported mail driver %q", cfg.MailDriver)
	}
}
