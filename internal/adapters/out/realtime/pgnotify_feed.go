package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/ports"
	"ordersync/internal/pkg/errs"

	"github.com/lib/pq"
)

const (
	minReconnectInterval = 2 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
	connectTimeout       = 10 * time.Second
)

// ErrNotificationGap is the cause of a listener subscription that ended
// because its connection was re-established and notifications may be lost.
var ErrNotificationGap = errors.New("notification gap")

// PgNotifyFeed receives order change envelopes as payloads of NOTIFY on one
// channel. pq reconnects on its own; a reconnect ends the subscription so the
// missed window is covered by a reload.
type PgNotifyFeed struct {
	dsn            string
	channel        string
	connectTimeout time.Duration
	logger         *slog.Logger
}

type PgNotifyOption func(*PgNotifyFeed)

// WithConnectTimeout bounds how long Subscribe waits for the first connection.
func WithConnectTimeout(d time.Duration) PgNotifyOption {
	return func(f *PgNotifyFeed) {
		f.connectTimeout = d
	}
}

func NewPgNotifyFeed(dsn, channel string, logger *slog.Logger, opts ...PgNotifyOption) (*PgNotifyFeed, error) {
	var dsnErr, channelErr error
	if dsn == "" {
		dsnErr = errs.NewValueIsRequiredError("pgnotify dsn")
	}
	if channel == "" {
		channelErr = errs.NewValueIsRequiredError("pgnotify channel")
	}
	if err := errors.Join(dsnErr, channelErr); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &PgNotifyFeed{
		dsn:            dsn,
		channel:        channel,
		connectTimeout: connectTimeout,
		logger:         logger.With("component", "PgNotifyFeed"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *PgNotifyFeed) Subscribe(ctx context.Context, scope kernel.Scope) (ports.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.ErrSessionEnded
	}

	listener := pq.NewListener(f.dsn, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				f.logger.Warn("Listener connection event", "event", int(ev), "error", err)
			}
		})

	// Listen blocks until the listener has a connection.
	listening := make(chan error, 1)
	go func() { listening <- listener.Listen(f.channel) }()

	select {
	case err := <-listening:
		if err != nil {
			_ = listener.Close()
			return nil, errs.NewNetworkErrorWithCause("listen for order changes", err)
		}
	case <-time.After(f.connectTimeout):
		_ = listener.Close()
		return nil, errs.NewNetworkErrorWithCause("listen for order changes", errors.New("connect timeout"))
	case <-ctx.Done():
		_ = listener.Close()
		return nil, errs.ErrSessionEnded
	}

	sub, subCtx := newSubscription(ctx)
	go func() {
		err := f.consume(subCtx, listener, scope, sub)
		if closeErr := listener.Close(); closeErr != nil {
			f.logger.Debug("Failed to close listener", "error", closeErr)
		}
		sub.finish(err)
	}()

	f.logger.InfoContext(ctx, "Subscribed to order changes", "channel", f.channel, "scope", scope.String())
	return sub, nil
}

func (f *PgNotifyFeed) consume(ctx context.Context, listener *pq.Listener, scope kernel.Scope, sub *subscription) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-listener.Notify:
			if !ok {
				return errs.NewNetworkErrorWithCause("receive order change", errors.New("listener closed"))
			}
			if n == nil {
				return errs.NewNetworkErrorWithCause("receive order change", ErrNotificationGap)
			}

			ev, err := Decode([]byte(n.Extra))
			if err != nil {
				f.logger.WarnContext(ctx, "Skipping undecodable order change", "error", err)
				continue
			}
			if !inScope(scope, ev) {
				continue
			}
			if !sub.deliver(ctx, ev) {
				return ctx.Err()
			}

		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					f.logger.DebugContext(ctx, "Listener ping failed", "error", err)
				}
			}()
		}
	}
}
