// Package transport defines the adapter contract between the smartmessage
// runtime and a pub/sub broker. Each backend lives in its own sub-package
// and registers itself with the transport registry.
package transport

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// Handler processes a single inbound message envelope.
type Handler func(ctx context.Context, env *Envelope) error

// Transport is the uniform adapter surface consumed by the smartmessage
// runtime. Implementations must be safe for concurrent use by application
// goroutines and by the broker client's own delivery goroutines.
type Transport interface {
	// Connect establishes the broker connection. Calling it while already
	// connected is a no-op; calling it after Disconnect returns
	// ErrAdapterClosed.
	Connect(ctx context.Context) error

	// Disconnect tears down every subscription, drains in-flight work
	// bounded by the configured drain timeout, and closes the connection.
	// It never fails and is safe to call repeatedly or before Connect.
	Disconnect()

	// Connected reports whether the broker connection is live. Always
	// false after Disconnect, regardless of the underlying client state.
	Connected() bool

	// Subscribe registers the named handler for a message class and
	// ensures a broker subscription exists for the derived subject.
	// Multiple handlers on one class share a single broker subscription.
	// Subscriptions made before Connect are established on connect.
	Subscribe(class, handlerName string, handler Handler, opts SubscribeOptions) error

	// Unsubscribe removes the named handler. The broker subscription is
	// torn down only when no handlers remain for the class.
	Unsubscribe(class, handlerName string) error

	// Publish sends a serialized payload under the class's derived
	// subject. Fails with PayloadTooLargeError before anything is sent
	// when the payload exceeds the configured maximum.
	Publish(ctx context.Context, class string, payload []byte) error

	// PublishWithReply is Publish with a reply subject set on the
	// envelope for request/reply flows.
	PublishWithReply(ctx context.Context, class string, payload []byte, reply string) error

	// Request performs a synchronous round trip on a raw subject,
	// bounded by timeout.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration, headers Headers) (*Envelope, error)

	// Flush waits for all buffered publishes to reach the broker. A
	// no-op returning false when not connected.
	Flush(timeout time.Duration) (bool, error)

	// ServerInfo returns broker connection details, empty when
	// unconfigured.
	ServerInfo() map[string]any

	// Stats returns broker client counters, empty when unconfigured.
	Stats() map[string]any

	// Capabilities reports the feature set of this backend.
	Capabilities() Capabilities
}

// SubscribeOptions carries per-subscription filter options.
type SubscribeOptions struct {
	// QueueGroup overrides the configured queue group for this
	// subscription. Empty means use the configured one.
	QueueGroup string
}

// Dispatcher is the narrow capability the adapter requires from the
// application-level dispatcher: handler bookkeeping and the receive path.
// The adapter deliberately depends on nothing else of the dispatcher's
// internals.
type Dispatcher interface {
	// Register records a handler for a message class.
	Register(class, name string, handler Handler) error

	// Unregister removes a previously registered handler.
	Unregister(class, name string) error

	// HandlerCount returns the number of handlers currently registered
	// for a class.
	HandlerCount(class string) int

	// Receive hands an inbound payload to the registered handlers.
	Receive(ctx context.Context, class string, env *Envelope) error
}

// Config provides the configuration values needed by transports. The
// interface lets backends access only what they need without depending on
// the full config package.
type Config interface {
	GetServers() []string
	GetUser() string
	GetPassword() string
	GetToken() string
	GetNKeySeed() string
	GetJWT() string
	GetTLSEnabled() bool
	GetTLSCAFile() string
	GetTLSCertFile() string
	GetTLSKeyFile() string
	GetReconnectEnabled() bool
	GetReconnectWait() time.Duration
	GetMaxReconnects() int
	GetConnectTimeout() time.Duration
	GetDrainTimeout() time.Duration
	GetSubjectPrefix() string
	GetQueueGroup() string
	GetMaxPayload() int
	GetVersion() string
}

// Builder is the function signature for creating a transport from config.
// Each backend package provides a Builder that can be registered.
type Builder func(ctx context.Context, cfg Config, dispatcher Dispatcher, logger watermill.LoggerAdapter) (Transport, error)
