package events

import "context"

// Handler processes one raw message. A non-nil error requeues the delivery.
type Handler func(ctx context.Context, body []byte) error

// Bus is the transport-agnostic subscription port. The production adapter
// wires a real broker; tests register handlers and push messages directly.
type Bus interface {
	Subscribe(topic string, handler Handler) error
}
