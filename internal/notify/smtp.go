package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPSender delivers mail through an authenticated SMTP relay.
type SMTPSender struct {
	addr string
	host string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender constructs a sender for host:port authenticating as user.
func NewSMTPSender(host string, port int, user, pass, from string) *SMTPSender {
	return &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		from: from,
		auth: smtp.PlainAuth("", user, pass, host),
		send: smtp.SendMail,
	}
}

// Send transmits msg. The relay call is abandoned when ctx ends first.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.ContainsAny(msg.To, "\r\n") {
		return fmt.Errorf("invalid recipient %q", msg.To)
	}
	payload := buildMIME(s.from, msg, time.Now())
	done := make(chan error, 1)
	go func() {
		done <- s.send(s.addr, s.auth, s.from, []string{msg.To}, payload)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildMIME(from string, msg Message, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + sanitizeHeader(msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
