package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/accounts/pkg/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	mu       sync.Mutex
	messages []Message
	err      error
	block    bool
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.err
}

func TestOTPMessage(t *testing.T) {
	msg := OTPMessage("a@x.com", "123456")
	assert.Equal(t, "a@x.com", msg.To)
	assert.Equal(t, "Verify your email", msg.Subject)
	assert.Equal(t, "Your OTP is 123456", msg.Body)
}

func TestDispatcherDeliversInBackground(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, newLogger(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, OTPMessage("a@x.com", "111111"))
	cancel()
	d.Wait()

	require.Len(t, sender.messages, 1)
	assert.Equal(t, "a@x.com", sender.messages[0].To)
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	sender := &recordingSender{err: errors.New("relay down")}
	d := NewDispatcher(sender, newLogger(), time.Second)

	d.Dispatch(context.Background(), OTPMessage("a@x.com", "111111"))
	d.Wait()

	assert.Len(t, sender.messages, 1)
}

func TestDispatcherBoundsDelivery(t *testing.T) {
	sender := &recordingSender{block: true}
	d := NewDispatcher(sender, newLogger(), 20*time.Millisecond)

	done := make(chan struct{})
	go func() {
		d.Dispatch(context.Background(), OTPMessage("a@x.com", "111111"))
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was not bounded by the dispatcher timeout")
	}
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "bot@example.com", "pw", "bot@example.com")
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		assert.Equal(t, "bot@example.com", from)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), OTPMessage("a@x.com", "123456")))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"a@x.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Verify your email\r\n")
	assert.Contains(t, gotMsg, "To: a@x.com\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nYour OTP is 123456\r\n"))
}

func TestSMTPSenderRejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "u", "p", "u")
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	require.Error(t, s.Send(context.Background(), Message{To: "a@x.com\r\nBcc: evil@x.com"}))
}

func TestSMTPSenderWrapsRelayError(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "u", "p", "u")
	relayErr := errors.New("535 auth failed")
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return relayErr }

	err := s.Send(context.Background(), OTPMessage("a@x.com", "1"))
	assert.ErrorIs(t, err, relayErr)
}

func TestRedisOutboxPushesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	outbox := NewRedisOutbox(client, "")
	t.Cleanup(func() { _ = outbox.Close() })

	require.NoError(t, outbox.Send(context.Background(), OTPMessage("a@x.com", "123456")))

	items, err := mr.List(DefaultOutboxKey)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], `"to":"a@x.com"`)
	assert.Contains(t, items[0], `"body":"Your OTP is 123456"`)
	assert.Contains(t, items[0], `"queuedAt"`)
}

func TestDialRedisOutboxFailsWhenUnreachable(t *testing.T) {
	_, err := DialRedisOutbox(context.Background(), "127.0.0.1:1", "", 0, "k")
	require.Error(t, err)
}

func TestNewSenderSelectsDriver(t *testing.T) {
	mr := miniredis.RunT(t)

	sender, closeFn, err := NewSender(context.Background(), config.APIConfig{MailDriver: config.MailDriverLog}, newLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, sender)
	require.NoError(t, closeFn())

	sender, closeFn, err = NewSender(context.Background(), config.APIConfig{
		MailDriver: config.MailDriverSMTP,
		SMTPHost:   "smtp.example.com",
		SMTPPort:   587,
		EmailUser:  "bot@example.com",
		EmailPass:  "pw",
	}, newLogger())
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, sender)
	require.NoError(t, closeFn())

	sender, closeFn, err = NewSender(context.Background(), config.APIConfig{
		MailDriver:    config.MailDriverRedis,
		RedisAddr:     mr.Addr(),
		MailOutboxKey: "custom:outbox",
	}, newLogger())
	require.NoError(t, err)
	assert.IsType(t, &RedisOutbox{}, sender)
	require.NoError(t, sender.Send(context.Background(), OTPMessage("a@x.com", "1")))
	assert.True(t, mr.Exists("custom:outbox"))
	require.NoError(t, closeFn())

	_, _, err = NewSender(context.Background(), config.APIConfig{MailDriver: "pigeon"}, newLogger())
	require.Error(t, err)
}
