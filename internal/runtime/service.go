package runtime

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	configpkg "github.com/smart-message/smartmessage-go/internal/runtime/config"
	errspkg "github.com/smart-message/smartmessage-go/internal/runtime/errors"
	"github.com/smart-message/smartmessage-go/internal/runtime/jsoncodec"
	loggingpkg "github.com/smart-message/smartmessage-go/internal/runtime/logging"
	"github.com/smart-message/smartmessage-go/transport"
)

// ServiceDependencies holds the optional collaborators of a Service.
// Leave fields nil/empty for the defaults.
type ServiceDependencies struct {
	// Transport supplies a prebuilt adapter. When nil, one is built from
	// the registry.
	Transport transport.Transport

	// TransportName selects the registry backend when Transport is nil.
	// Defaults to "nats".
	TransportName string

	// Registry overrides the default transport registry.
	Registry *transport.Registry

	// Metrics overrides the default Prometheus collectors. Use
	// NewMetrics to share a registry, or leave nil for the default
	// registerer.
	Metrics *Metrics
}

// Service is the application-facing facade: it wires the configuration,
// logger, dispatcher, metrics, and transport adapter together.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.AdapterLogger

	transport  transport.Transport
	dispatcher *Dispatcher
	metrics    *Metrics
	tracer     trace.Tracer
}

// NewService constructs a Service for the supplied configuration. Call
// Start to connect, then Subscribe/Publish.
func NewService(ctx context.Context, conf *configpkg.Config, log loggingpkg.AdapterLogger, deps ServiceDependencies) (*Service, error) {
	if log == nil {
		log = loggingpkg.NopLogger()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	log.Info("creating smartmessage service", loggingpkg.LogFields{"config": conf})

	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if err := metrics.Register(); err != nil {
		return nil, err
	}

	s := &Service{
		Conf:       conf,
		Logger:     log,
		dispatcher: NewDispatcher(log, metrics),
		metrics:    metrics,
		tracer:     otel.Tracer(tracerName),
	}

	s.transport = deps.Transport
	if s.transport == nil {
		registry := deps.Registry
		if registry == nil {
			registry = transport.DefaultRegistry
		}
		name := deps.TransportName
		if name == "" {
			name = "nats"
		}
		built, err := registry.Build(ctx, name, conf, s.dispatcher, loggingpkg.NewWatermillBridge(log))
		if err != nil {
			return nil, err
		}
		s.transport = built
	}

	return s, nil
}

// Start connects the transport.
func (s *Service) Start(ctx context.Context) error {
	return s.transport.Connect(ctx)
}

// Stop disconnects the transport, tearing down every subscription.
func (s *Service) Stop() {
	s.transport.Disconnect()
}

// Connected reports whether the broker connection is live.
func (s *Service) Connected() bool {
	return s.transport.Connected()
}

// Dispatcher exposes the handler registry, mainly for introspection.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Transport exposes the underlying adapter for backend-specific
// pass-through accessors.
func (s *Service) Transport() transport.Transport {
	return s.transport
}

// Subscribe registers a named handler for a message class.
func (s *Service) Subscribe(class, handlerName string, handler transport.Handler, opts transport.SubscribeOptions) error {
	return s.transport.Subscribe(class, handlerName, handler, opts)
}

// Unsubscribe removes a named handler, tearing down the broker
// subscription when it was the last one for the class.
func (s *Service) Unsubscribe(class, handlerName string) error {
	return s.transport.Unsubscribe(class, handlerName)
}

// Publish serializes msg as JSON and publishes it under its derived
// class name.
func (s *Service) Publish(ctx context.Context, msg any) error {
	if msg == nil {
		return errspkg.ErrClassRequired
	}
	class := ClassOf(msg)

	payload, err := jsoncodec.Marshal(msg)
	if err != nil {
		s.metrics.PublishFailure(class, "encode")
		return err
	}

	return s.PublishRaw(ctx, class, payload)
}

// PublishRaw publishes an already-serialized payload under an explicit
// class name.
func (s *Service) PublishRaw(ctx context.Context, class string, payload []byte) error {
	ctx, span := s.tracer.Start(ctx, "smartmessage.publish", trace.WithAttributes(
		attribute.String("messaging.class", class),
		attribute.Int("messaging.payload_bytes", len(payload)),
	))
	defer span.End()

	if err := s.transport.Publish(ctx, class, payload); err != nil {
		s.metrics.PublishFailure(class, publishFailureReason(err))
		span.RecordError(err)
		return err
	}

	s.metrics.MessagePublished(class)
	return nil
}

func publishFailureReason(err error) string {
	var tooLarge *errspkg.PayloadTooLargeError
	if errors.As(err, &tooLarge) {
		return "payload_too_large"
	}
	return "transport"
}

// Request performs a synchronous round trip on a raw subject.
func (s *Service) Request(ctx context.Context, subject string, data []byte, timeout time.Duration, headers transport.Headers) (*transport.Envelope, error) {
	return s.transport.Request(ctx, subject, data, timeout, headers)
}

// Flush waits for buffered publishes to reach the broker.
func (s *Service) Flush(timeout time.Duration) (bool, error) {
	return s.transport.Flush(timeout)
}

// ServerInfo returns broker connection details.
func (s *Service) ServerInfo() map[string]any {
	return s.transport.ServerInfo()
}

// Stats returns broker client counters.
func (s *Service) Stats() map[string]any {
	return s.transport.Stats()
}
