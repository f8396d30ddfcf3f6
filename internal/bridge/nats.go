package bridge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eternisai/notification-bridge/internal/logger"
	"github.com/nats-io/nats.go"
)

// NATS subject suffixes. Content publishes requests and a readiness signal;
// the host publishes responses and events.
const (
	natsRequestsSuffix  = ".requests"
	natsResponsesSuffix = ".responses"
	natsReadySuffix     = ".ready"
)

// natsConn is the subset of *nats.Conn the transport uses.
type natsConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// NATSTransport carries bridge messages over a pair of NATS subjects.
type NATSTransport struct {
	nc     natsConn
	prefix string
	logger *logger.Logger

	subscriptions []*nats.Subscription
}

// NewNATSTransport creates a transport on subjects under prefix.
func NewNATSTransport(nc natsConn, prefix string, logger *logger.Logger) *NATSTransport {
	return &NATSTransport{
		nc:     nc,
		prefix: prefix,
		logger: logger.WithComponent("bridge-nats"),
	}
}

// Send publishes message on the responses subject.
func (t *NATSTransport) Send(ctx context.Context, message []byte) error {
	if err := t.nc.Publish(t.prefix+natsResponsesSuffix, message); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", t.prefix+natsResponsesSuffix, err)
	}
	return nil
}

// Start subscribes endpoint to the requests and ready subjects.
func (t *NATSTransport) Start(ctx context.Context, endpoint Endpoint) error {
	requests, err := t.nc.Subscribe(t.prefix+natsRequestsSuffix, func(msg *nats.Msg) {
		go endpoint.HandleMessage(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", t.prefix+natsRequestsSuffix, err)
	}
	t.subscriptions = append(t.subscriptions, requests)

	ready, err := t.nc.Subscribe(t.prefix+natsReadySuffix, func(msg *nats.Msg) {
		endpoint.MarkReady(ctx)
	})
	if err != nil {
		t.Stop()
		return fmt.Errorf("failed to subscribe to %s: %w", t.prefix+natsReadySuffix, err)
	}
	t.subscriptions = append(t.subscriptions, ready)

	t.logger.Info("nats bridge transport started",
		slog.String("requests", t.prefix+natsRequestsSuffix),
		slog.String("responses", t.prefix+natsResponsesSuffix))
	return nil
}

// Stop drains the subscriptions.
func (t *NATSTransport) Stop() error {
	var firstErr error
	for _, sub := range t.subscriptions {
		if sub == nil {
			continue
		}
		if err := sub.Drain(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to drain subscription: %w", err)
		}
	}
	t.subscriptions = nil
	return firstErr
}
