package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EmailTemplate selects the message body the transport renders
type EmailTemplate string

// TemplateActivateAccount is the account activation email
const TemplateActivateAccount EmailTemplate = "ACTIVATE_ACCOUNT"

// Notification carries everything the email transport needs to render and
// deliver one activation message.
type Notification struct {
	To            string
	FullName      string
	Template      EmailTemplate
	ActivationURL string
	Code          string
	Subject       string
}

// Notifier delivers a notification over some side channel, usually SMTP.
// Implementations are external collaborators; the library only ships the
// logging fallback below.
type Notifier interface {
	Send(ctx context.Context, msg Notification) error
}

// NotificationEnqueuer is the handoff the flows use. Enqueue must not block
// and must never surface delivery failures to the caller.
type NotificationEnqueuer interface {
	Enqueue(msg Notification)
}

type logNotifier struct {
	logger Logger
}

// NewLogNotifier returns a Notifier that prints the message instead of
// sending it. Useful in development and as a wiring default.
func NewLogNotifier(logger Logger) Notifier {
	if logger == nil {
		logger = defLogger{}
	}
	return logNotifier{logger: logger}
}

func (n logNotifier) Send(_ context.Context, msg Notification) error {
	n.logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	n.logger.Info("to: %s subject: %s template: %s", msg.To, msg.Subject, msg.Template)
	n.logger.Info("link: %s", fmt.Sprintf("%s?token=%s", msg.ActivationURL, msg.Code))
	return nil
}

// Dispatcher drains queued notifications on a worker goroutine so delivery
// stays off the request path. Failures are logged, never propagated.
type Dispatcher struct {
	notifier    Notifier
	logger      Logger
	queue       chan Notification
	sendTimeout time.Duration
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// DispatcherOption customizes a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger overrides the dispatcher logger
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithQueueSize sets the queue capacity. When the queue is full Enqueue
// drops the message rather than block the owning flow.
func WithQueueSize(size int) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.queue = make(chan Notification, size)
		}
	}
}

// WithSendTimeout bounds each delivery attempt
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// NewDispatcher creates a dispatcher and starts its worker
func NewDispatcher(notifier Notifier, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		notifier:    notifier,
		logger:      defLogger{},
		queue:       make(chan Notification, 64),
		sendTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	if d.notifier == nil {
		d.notifier = NewLogNotifier(d.logger)
	}

	d.wg.Add(1)
	go d.worker()

	return d
}

// Enqueue hands a notification to the worker without blocking
func (d *Dispatcher) Enqueue(msg Notification) {
	select {
	case d.queue <- msg:
	default:
		d.logger.Warn("notification queue full, dropping message to %s (%s)", msg.To, msg.Template)
	}
}

// Close stops accepting messages and waits for the queue to drain
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.notifier.Send(ctx, msg); err != nil {
		d.logger.Error("notification delivery to %s (%s) failed: %s", msg.To, msg.Template, err)
	}
}

var _ NotificationEnqueuer = (*Dispatcher)(nil)
