package bridge

import "context"

// Transport carries opaque messages from the host to embedded content.
type Transport interface {
	Send(ctx context.Context, message []byte) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, message []byte) error

func (f TransportFunc) Send(ctx context.Context, message []byte) error {
	return f(ctx, message)
}

// Endpoint receives what embedded content sends: messages, and the signal
// that it finished loading. Bridge implements it.
type Endpoint interface {
	HandleMessage(ctx context.Context, raw []byte)
	MarkReady(ctx context.Context)
}
