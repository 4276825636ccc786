package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultDispatchTimeout = 15 * time.Second

// Dispatcher sends messages in the background. Delivery failures are logged
// and never reported to the caller.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher around sender.
func NewDispatcher(sender Sender, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{sender: sender, logger: logger, timeout: timeout}
}

// Dispatch queues msg for delivery and returns immediately. The delivery
// outlives ctx cancellation but is bounded by the dispatcher timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		start := time.Now()
		if err := d.sender.Send(sendCtx, msg); err != nil {
			d.logger.Error("mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
			return
		}
		d.logger.Info("mail delivered", "to", msg.To, "subject", msg.Subject, "duration", time.Since(start))
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
