package smartmessage

import (
	"context"

	runtimepkg "github.com/smart-message/smartmessage-go/internal/runtime"
	configpkg "github.com/smart-message/smartmessage-go/internal/runtime/config"
	errspkg "github.com/smart-message/smartmessage-go/internal/runtime/errors"
	loggingpkg "github.com/smart-message/smartmessage-go/internal/runtime/logging"
	transportpkg "github.com/smart-message/smartmessage-go/transport"
	natspkg "github.com/smart-message/smartmessage-go/transport/nats"
)

func init() {
	natspkg.Register()
}

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Dispatcher          = runtimepkg.Dispatcher
	Metrics             = runtimepkg.Metrics

	LogFields     = loggingpkg.LogFields
	AdapterLogger = loggingpkg.AdapterLogger

	Transport        = transportpkg.Transport
	TransportBuilder = transportpkg.Builder
	TransportConfig  = transportpkg.Config
	Registry         = transportpkg.Registry
	Capabilities     = transportpkg.Capabilities
	Envelope         = transportpkg.Envelope
	Headers          = transportpkg.Headers
	Handler          = transportpkg.Handler
	SubscribeOptions = transportpkg.SubscribeOptions

	ConnectionError      = errspkg.ConnectionError
	PayloadTooLargeError = errspkg.PayloadTooLargeError
)

// Wire-level header keys.
const (
	HeaderClass       = transportpkg.HeaderClass
	HeaderVersion     = transportpkg.HeaderVersion
	HeaderContentType = transportpkg.HeaderContentType
	HeaderTimestamp   = transportpkg.HeaderTimestamp
	HeaderMessageID   = transportpkg.HeaderMessageID
)

var (
	NewService    = runtimepkg.NewService
	NewDispatcher = runtimepkg.NewDispatcher
	NewMetrics    = runtimepkg.NewMetrics
	ClassOf       = runtimepkg.ClassOf

	ConfigFromEnv = configpkg.FromEnv

	NewSlogLogger      = loggingpkg.NewSlogAdapterLogger
	NewZerologLogger   = loggingpkg.NewZerologAdapterLogger
	NewWatermillLogger = loggingpkg.NewWatermillAdapterLogger
	NopLogger          = loggingpkg.NopLogger

	ErrAdapterClosed = errspkg.ErrAdapterClosed
	ErrNotConnected  = errspkg.ErrNotConnected
)

// TypedHandler adapts a function taking a decoded *T into a raw Handler.
// The payload is decoded with the module's JSON codec before fn runs.
func TypedHandler[T any](fn func(ctx context.Context, msg *T, env *Envelope) error) Handler {
	return runtimepkg.TypedHandler[T](fn)
}
