package transport

// Capabilities describes the features supported by a transport backend.
// Use this to introspect what operations are available at runtime.
type Capabilities struct {
	// Name is the human-readable name of the transport.
	Name string

	// Version is the transport/driver version.
	Version string

	// SupportsQueueGroups indicates the broker load-balances delivery
	// among a named group of subscribers.
	SupportsQueueGroups bool

	// SupportsRequestReply indicates the broker natively supports
	// synchronous request/reply round trips.
	SupportsRequestReply bool

	// SupportsHeaders indicates out-of-band key/value metadata can be
	// attached to messages.
	SupportsHeaders bool

	// SupportsDurableStreams indicates a durable stream layer is
	// reachable through the backend's pass-through accessors.
	SupportsDurableStreams bool

	// SupportsOrdering indicates the broker guarantees ordering within a
	// subject. Inherited from the broker, never reimplemented here.
	SupportsOrdering bool

	// MaxMessageSize is the maximum message size in bytes
	// (0 = unlimited/unknown).
	MaxMessageSize int64
}

// NATSCapabilities is the capability set of the NATS Core backend.
var NATSCapabilities = Capabilities{
	Name:                   "nats",
	SupportsQueueGroups:    true,
	SupportsRequestReply:   true,
	SupportsHeaders:        true,
	SupportsDurableStreams: true,
	SupportsOrdering:       true,
}
