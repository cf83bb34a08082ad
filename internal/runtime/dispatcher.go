package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/smart-message/smartmessage-go/internal/runtime/errors"
	"github.com/smart-message/smartmessage-go/internal/runtime/jsoncodec"
	loggingpkg "github.com/smart-message/smartmessage-go/internal/runtime/logging"
	"github.com/smart-message/smartmessage-go/transport"
)

const tracerName = "github.com/smart-message/smartmessage-go"

// Dispatcher maps message classes to named handlers and fans inbound
// messages out to them. It implements the transport.Dispatcher capability
// the adapter depends on.
type Dispatcher struct {
	logger  loggingpkg.AdapterLogger
	metrics *Metrics
	tracer  trace.Tracer

	mu       sync.RWMutex
	handlers map[string]map[string]transport.Handler
}

// NewDispatcher creates an empty dispatcher. metrics may be nil.
func NewDispatcher(logger loggingpkg.AdapterLogger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = loggingpkg.NopLogger()
	}
	return &Dispatcher{
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
		handlers: make(map[string]map[string]transport.Handler),
	}
}

// Register records a handler for a message class. Registering the same
// name twice replaces the previous handler.
func (d *Dispatcher) Register(class, name string, handler transport.Handler) error {
	if class == "" {
		return errspkg.ErrClassRequired
	}
	if name == "" {
		return errspkg.ErrHandlerNameRequired
	}
	if handler == nil {
		return errspkg.ErrHandlerRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers[class] == nil {
		d.handlers[class] = make(map[string]transport.Handler)
	}
	d.handlers[class][name] = handler
	return nil
}

// Unregister removes a handler. Unknown classes or names are a no-op.
func (d *Dispatcher) Unregister(class, name string) error {
	if class == "" {
		return errspkg.ErrClassRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if named, ok := d.handlers[class]; ok {
		delete(named, name)
		if len(named) == 0 {
			delete(d.handlers, class)
		}
	}
	return nil
}

// HandlerCount returns the number of handlers registered for a class.
func (d *Dispatcher) HandlerCount(class string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[class])
}

// Classes returns every class with at least one registered handler.
func (d *Dispatcher) Classes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	classes := make([]string, 0, len(d.handlers))
	for class := range d.handlers {
		classes = append(classes, class)
	}
	return classes
}

// Receive fans the envelope out to every handler registered for the
// class. A failing handler does not stop its siblings; all failures are
// collected into the returned error.
func (d *Dispatcher) Receive(ctx context.Context, class string, env *transport.Envelope) error {
	d.mu.RLock()
	snapshot := make(map[string]transport.Handler, len(d.handlers[class]))
	for name, h := range d.handlers[class] {
		snapshot[name] = h
	}
	d.mu.RUnlock()

	d.metrics.MessageReceived(class)

	if len(snapshot) == 0 {
		d.logger.Debug("no handlers registered for class", loggingpkg.LogFields{
			"class":   class,
			"subject": env.Subject,
		})
		return nil
	}

	ctx, span := d.tracer.Start(ctx, "smartmessage.dispatch", trace.WithAttributes(
		attribute.String("messaging.class", class),
		attribute.String("messaging.subject", env.Subject),
		attribute.Int("messaging.payload_bytes", len(env.Payload)),
	))
	defer span.End()

	var failures []error
	for name, handler := range snapshot {
		if err := invokeHandler(ctx, handler, env); err != nil {
			d.metrics.HandlerFailure(class)
			d.logger.Error("handler failed", err, loggingpkg.LogFields{
				"class":   class,
				"handler": name,
				"subject": env.Subject,
			})
			failures = append(failures, fmt.Errorf("handler %s: %w", name, err))
		}
	}

	if len(failures) > 0 {
		err := errors.Join(failures...)
		span.RecordError(err)
		return err
	}
	return nil
}

// invokeHandler converts a handler panic into an error so one misbehaving
// handler cannot take down the delivery goroutine.
func invokeHandler(ctx context.Context, handler transport.Handler, env *transport.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, env)
}

// ClassOf derives the message class name of a Go value: the package-
// qualified type name with pointers stripped, e.g. "orders.OrderConfirmation".
func ClassOf(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return fmt.Sprintf("%T", v)
	}
	return t.String()
}

// TypedHandler adapts a function taking a decoded *T into a raw
// transport.Handler. The payload is decoded with the module's JSON codec.
func TypedHandler[T any](fn func(ctx context.Context, msg *T, env *transport.Envelope) error) transport.Handler {
	return func(ctx context.Context, env *transport.Envelope) error {
		msg := new(T)
		if err := jsoncodec.Unmarshal(env.Payload, msg); err != nil {
			return fmt.Errorf("failed to unmarshal %s payload: %w", ClassOf(msg), err)
		}
		return fn(ctx, msg, env)
	}
}
