package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 20 * time.Second
)

var (
	// ErrClosed is returned by [Broadcaster.Send] after Close.
	ErrClosed = errors.New("notifier closed")

	// ErrQueueFull is returned by [Broadcaster.Send] when the delivery
	// queue is saturated; the message is dropped.
	ErrQueueFull = errors.New("notification queue full")
)

// Notifier delivers a message to whoever needs to hear about it.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// Channel is one delivery transport.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string

	// Send delivers message. It must respect ctx cancellation.
	Send(ctx context.Context, message string) error
}

// ChannelError reports a failed delivery on one channel.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Recorder observes delivery results. err is nil on success.
type Recorder interface {
	NotificationSent(channel string, err error)
}

type nopRecorder struct{}

func (nopRecorder) NotificationSent(string, error) {}

// Option configures a [Broadcaster].
type Option func(*Broadcaster)

// WithRecorder sets the delivery observer.
func WithRecorder(r Recorder) Option {
	return func(b *Broadcaster) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithQueueSize sets the number of messages buffered before Send starts
// dropping. Defaults to 256.
func WithQueueSize(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithSendTimeout bounds each channel delivery. Defaults to 20 seconds.
func WithSendTimeout(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.sendTimeout = d
		}
	}
}

// Broadcaster is a [Notifier] that delivers every message to all of its
// channels, in channel order, from a background goroutine.
//
// Send never blocks on delivery. Close drains the queue.
type Broadcaster struct {
	channels    []Channel
	logger      *slog.Logger
	recorder    Recorder
	queueSize   int
	sendTimeout time.Duration

	queue chan string
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ Notifier = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster and starts its delivery goroutine.
// With no channels, messages are accepted and discarded.
func NewBroadcaster(channels []Channel, logger *slog.Logger, opts ...Option) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{
		channels:    channels,
		logger:      logger,
		recorder:    nopRecorder{},
		queueSize:   defaultQueueSize,
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.queue = make(chan string, b.queueSize)
	b.done = make(chan struct{})
	go b.run()

	return b
}

// Channels returns the names of the configured channels.
func (b *Broadcaster) Channels() []string {
	names := make([]string, len(b.channels))
	for i, ch := range b.channels {
		names[i] = ch.Name()
	}
	return names
}

// Send queues message for delivery on every channel.
func (b *Broadcaster) Send(ctx context.Context, message string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case b.queue <- message:
		return nil
	default:
		b.logger.Error("notification dropped", "reason", "queue full", "message", message)
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits until queued messages are
// delivered or ctx is done. Safe to call more than once.
func (b *Broadcaster) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
	case <-ctx.Done():
		return fmt.Errorf("drain notifications: %w", ctx.Err())
	}

	var errs []error
	for _, ch := range b.channels {
		if f, ok := ch.(interface{ Flush(context.Context) error }); ok {
			if err := f.Flush(ctx); err != nil {
				errs = append(errs, &ChannelError{Channel: ch.Name(), Err: err})
			}
		}
	}
	return errors.Join(errs...)
}

func (b *Broadcaster) run() {
	defer close(b.done)
	for message := range b.queue {
		b.deliver(message)
	}
}

// deliver tries every channel; one channel's failure does not stop the rest.
func (b *Broadcaster) deliver(message string) {
	for _, ch := range b.channels {
		err := b.sendOne(ch, message)
		b.recorder.NotificationSent(ch.Name(), err)
		if err != nil {
			b.logger.Error("notification failed", "channel", ch.Name(), "error", err)
			continue
		}
		b.logger.Debug("notification sent", "channel", ch.Name())
	}
}

func (b *Broadcaster) sendOne(ch Channel, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ChannelError{Channel: ch.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), b.sendTimeout)
	defer cancel()

	if err := ch.Send(ctx, message); err != nil {
		var cerr *ChannelError
		if errors.As(err, &cerr) {
			return err
		}
		return &ChannelError{Channel: ch.Name(), Err: err}
	}
	return nil
}
