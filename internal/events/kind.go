// Package events routes batches of queued event envelopes to typed handlers.
// Each envelope is handled independently; a failing envelope never aborts
// the batch.
package events

// Kind is the closed set of envelope types with a dedicated handler
type Kind string

const (
	KindOrderCreated    Kind = "order_created"
	KindOrderShipped    Kind = "order_shipped"
	KindUserRegistered  Kind = "user_registered"
	KindPaymentReceived Kind = "payment_received"

	// KindUnknown stands for every type without a handler, including a
	// missing discriminator
	KindUnknown Kind = "unknown"
)

// ParseKind maps a type discriminator onto a Kind
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindOrderCreated, KindOrderShipped, KindUserRegistered, KindPaymentReceived:
		return k
	default:
		return KindUnknown
	}
}
