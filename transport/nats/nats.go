// Package nats provides the NATS Core transport adapter for smartmessage.
package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsio "github.com/nats-io/nats.go"

	errspkg "github.com/smart-message/smartmessage-go/internal/runtime/errors"
	"github.com/smart-message/smartmessage-go/internal/runtime/ids"
	"github.com/smart-message/smartmessage-go/internal/runtime/jsoncodec"
	loggingpkg "github.com/smart-message/smartmessage-go/internal/runtime/logging"
	"github.com/smart-message/smartmessage-go/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// Conn is the subset of *nats.Conn the adapter uses. It exists so tests
// can substitute the broker client through ConnectFactory.
type Conn interface {
	IsConnected() bool
	PublishMsg(msg *natsio.Msg) error
	QueueSubscribe(subject, queue string, cb natsio.MsgHandler) (*natsio.Subscription, error)
	RequestMsg(msg *natsio.Msg, timeout time.Duration) (*natsio.Msg, error)
	FlushTimeout(timeout time.Duration) error
	Drain() error
	Close()
	Stats() natsio.Statistics
	ConnectedUrl() string
	ConnectedServerId() string
	ConnectedServerName() string
	ConnectedServerVersion() string
	ConnectedClusterName() string
	MaxPayload() int64
	JetStream(opts ...natsio.JSOpt) (natsio.JetStreamContext, error)
}

// ConnectFactory allows overriding the broker connection for testing.
var ConnectFactory = func(servers string, opts ...natsio.Option) (Conn, error) {
	return natsio.Connect(servers, opts...)
}

// Register registers the NATS transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Build creates a new, not yet connected NATS transport.
func Build(_ context.Context, cfg transport.Config, dispatcher transport.Dispatcher, logger watermill.LoggerAdapter) (transport.Transport, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return New(cfg, dispatcher, loggingpkg.NewWatermillAdapterLogger(logger))
}

type connState int

const (
	stateUnconfigured connState = iota
	stateConnected
	stateDisconnected
	stateShutDown
)

// subscriptionEntry pairs a broker subscription handle with the message
// class it was created for. sub is nil while the entry is pending, that
// is, registered before a connection existed.
type subscriptionEntry struct {
	sub   *natsio.Subscription
	class string
	queue string
}

// Transport adapts NATS Core to the smartmessage transport contract. All
// methods are safe for concurrent use by application goroutines and by
// the broker client's delivery goroutines.
type Transport struct {
	cfg        transport.Config
	dispatcher transport.Dispatcher
	logger     loggingpkg.AdapterLogger

	mu            sync.Mutex
	state         connState
	nc            Conn
	subs          map[string]*subscriptionEntry
	eventsStarted bool

	events     chan connEvent
	eventsDone chan struct{}
	// connClosed belongs to the current connection; Configure replaces
	// it on every dial so a stale close signal cannot satisfy the drain
	// wait for a newer client.
	connClosed chan struct{}
}

// New constructs the adapter around the supplied configuration,
// dispatcher, and logger. Call Connect before publishing.
func New(cfg transport.Config, dispatcher transport.Dispatcher, logger loggingpkg.AdapterLogger) (*Transport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nats: config is required")
	}
	if dispatcher == nil {
		return nil, errspkg.ErrDispatcherRequired
	}
	if logger == nil {
		logger = loggingpkg.NopLogger()
	}

	return &Transport{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger.With(loggingpkg.LogFields{"transport": TransportName}),
		subs:       make(map[string]*subscriptionEntry),
		events:     make(chan connEvent, 16),
		eventsDone: make(chan struct{}),
	}, nil
}

// Configure opens the broker connection and registers the lifecycle
// callbacks. Calling it while already connected is a no-op; calling it
// after Disconnect fails with ErrAdapterClosed.
func (t *Transport) Configure(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == stateShutDown {
		return errspkg.ErrAdapterClosed
	}
	if t.nc != nil && t.nc.IsConnected() {
		return t.ensureSubscriptionsLocked()
	}

	closed := make(chan struct{})
	opts, err := t.buildOptions(t.cfg, closed)
	if err != nil {
		return errspkg.NewConnectionError(err)
	}

	nc, err := ConnectFactory(serverList(t.cfg), opts...)
	if err != nil {
		return errspkg.NewConnectionError(err)
	}

	// A dead previous client is closed, not leaked.
	if t.nc != nil {
		t.nc.Close()
	}
	t.nc = nc
	t.connClosed = closed
	t.state = stateConnected
	if !t.eventsStarted {
		t.eventsStarted = true
		go t.handleConnEvents()
	}

	return t.ensureSubscriptionsLocked()
}

// ensureSubscriptionsLocked creates broker subscriptions for entries
// registered before a connection existed. Caller holds t.mu.
func (t *Transport) ensureSubscriptionsLocked() error {
	for subject, entry := range t.subs {
		if entry.sub != nil {
			continue
		}
		sub, err := t.nc.QueueSubscribe(subject, entry.queue, t.inboundHandler(subject, entry.class))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		entry.sub = sub
	}
	return nil
}

// Connect is Configure plus a success log line.
func (t *Transport) Connect(ctx context.Context) error {
	if err := t.Configure(ctx); err != nil {
		return err
	}
	t.logger.Info("connected to NATS", loggingpkg.LogFields{
		"servers":     serverList(t.cfg),
		"queue_group": t.cfg.GetQueueGroup(),
	})
	return nil
}

// Disconnect tears down every subscription, drains the connection bounded
// by the drain timeout, and closes it. Safe to call repeatedly and before
// Connect; it never fails.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	if t.state == stateShutDown {
		t.mu.Unlock()
		return
	}
	// Shut down first so Connected flips false even mid-teardown.
	t.state = stateShutDown
	entries := t.subs
	t.subs = make(map[string]*subscriptionEntry)
	nc := t.nc
	closed := t.connClosed
	started := t.eventsStarted
	t.mu.Unlock()

	for subject, entry := range entries {
		if entry.sub == nil {
			continue
		}
		if err := entry.sub.Unsubscribe(); err != nil {
			t.logger.Debug("unsubscribe during shutdown failed", loggingpkg.LogFields{
				"subject": subject,
				"error":   err.Error(),
			})
		}
	}

	if nc != nil && nc.IsConnected() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		} else {
			select {
			case <-closed:
			case <-time.After(t.cfg.GetDrainTimeout()):
				nc.Close()
			}
		}
	}

	if started {
		close(t.eventsDone)
	}

	t.logger.Info("disconnected from NATS", nil)
}

// Connected reports false whenever the adapter has been shut down,
// regardless of the client's self-reported state.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateShutDown {
		return false
	}
	return t.nc != nil && t.nc.IsConnected()
}

// Subscribe registers the handler with the dispatcher first, then ensures
// exactly one broker subscription exists for the derived subject. Before
// Connect the subscription is recorded as pending and established once
// the connection comes up.
func (t *Transport) Subscribe(class, handlerName string, handler transport.Handler, opts transport.SubscribeOptions) error {
	if class == "" {
		return errspkg.ErrClassRequired
	}
	if handlerName == "" {
		return errspkg.ErrHandlerNameRequired
	}
	if handler == nil {
		return errspkg.ErrHandlerRequired
	}

	// Dispatcher registration happens regardless of broker state.
	if err := t.dispatcher.Register(class, handlerName, handler); err != nil {
		return err
	}

	subject := DeriveSubject(class, t.cfg.GetSubjectPrefix())

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == stateShutDown {
		return errspkg.ErrAdapterClosed
	}
	if _, exists := t.subs[subject]; exists {
		return nil
	}

	queue := t.cfg.GetQueueGroup()
	if opts.QueueGroup != "" {
		queue = opts.QueueGroup
	}

	entry := &subscriptionEntry{class: class, queue: queue}
	if t.nc != nil {
		sub, err := t.nc.QueueSubscribe(subject, queue, t.inboundHandler(subject, class))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		entry.sub = sub
	}
	t.subs[subject] = entry

	t.logger.Debug("subscribed", loggingpkg.LogFields{
		"subject":     subject,
		"class":       class,
		"queue_group": queue,
	})
	return nil
}

// Unsubscribe removes the handler from the dispatcher and tears down the
// broker subscription only when no handlers remain for the class.
func (t *Transport) Unsubscribe(class, handlerName string) error {
	if class == "" {
		return errspkg.ErrClassRequired
	}

	if err := t.dispatcher.Unregister(class, handlerName); err != nil {
		return err
	}

	subject := DeriveSubject(class, t.cfg.GetSubjectPrefix())

	t.mu.Lock()
	// The count is checked under the lock so a Subscribe racing in for
	// the same class cannot be left without its broker subscription.
	if t.dispatcher.HandlerCount(class) > 0 {
		t.mu.Unlock()
		return nil
	}
	entry, ok := t.subs[subject]
	if ok {
		delete(t.subs, subject)
	}
	t.mu.Unlock()

	if !ok {
		return nil
	}
	if entry.sub != nil {
		if err := entry.sub.Unsubscribe(); err != nil {
			t.logger.Debug("broker unsubscribe failed", loggingpkg.LogFields{
				"subject": subject,
				"error":   err.Error(),
			})
		}
	}

	t.logger.Debug("unsubscribed", loggingpkg.LogFields{"subject": subject, "class": class})
	return nil
}

// SubscriptionCount returns the number of live broker subscriptions.
func (t *Transport) SubscriptionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Publish sends payload under the class's derived subject. The payload is
// size-checked before anything is sent; connectivity is not pre-checked,
// the broker client is the single source of truth for connection state.
func (t *Transport) Publish(ctx context.Context, class string, payload []byte) error {
	return t.publish(ctx, class, payload, "")
}

// PublishWithReply is Publish with a reply subject for request/reply
// flows.
func (t *Transport) PublishWithReply(ctx context.Context, class string, payload []byte, reply string) error {
	return t.publish(ctx, class, payload, reply)
}

func (t *Transport) publish(_ context.Context, class string, payload []byte, reply string) error {
	if class == "" {
		return errspkg.ErrClassRequired
	}
	if limit := t.cfg.GetMaxPayload(); len(payload) > limit {
		return &errspkg.PayloadTooLargeError{Size: len(payload), Limit: limit}
	}

	msg := &natsio.Msg{
		Subject: DeriveSubject(class, t.cfg.GetSubjectPrefix()),
		Reply:   reply,
		Data:    payload,
		Header:  t.buildHeader(class),
	}

	t.mu.Lock()
	nc := t.nc
	t.mu.Unlock()
	if nc == nil {
		return errspkg.ErrNotConnected
	}

	return nc.PublishMsg(msg)
}

// Request performs a synchronous round trip on a raw subject, bounded by
// timeout.
func (t *Transport) Request(_ context.Context, subject string, data []byte, timeout time.Duration, headers transport.Headers) (*transport.Envelope, error) {
	if subject == "" {
		return nil, errspkg.ErrSubjectRequired
	}

	t.mu.Lock()
	nc := t.nc
	t.mu.Unlock()
	if nc == nil {
		return nil, errspkg.ErrNotConnected
	}

	msg := &natsio.Msg{
		Subject: subject,
		Data:    data,
		Header:  toNATSHeader(headers),
	}

	reply, err := nc.RequestMsg(msg, timeout)
	if err != nil {
		return nil, fmt.Errorf("request on %s failed: %w", subject, err)
	}
	return envelopeFromMsg(reply), nil
}

// Flush waits for buffered publishes to reach the broker. A no-op
// returning false when not connected.
func (t *Transport) Flush(timeout time.Duration) (bool, error) {
	t.mu.Lock()
	nc := t.nc
	shutdown := t.state == stateShutDown
	t.mu.Unlock()

	if shutdown || nc == nil || !nc.IsConnected() {
		return false, nil
	}
	if err := nc.FlushTimeout(timeout); err != nil {
		return false, err
	}
	return true, nil
}

// ServerInfo returns connection details of the current broker server.
// Empty when unconfigured.
func (t *Transport) ServerInfo() map[string]any {
	t.mu.Lock()
	nc := t.nc
	t.mu.Unlock()
	if nc == nil {
		return map[string]any{}
	}

	return map[string]any{
		"server_id":      nc.ConnectedServerId(),
		"server_name":    nc.ConnectedServerName(),
		"server_version": nc.ConnectedServerVersion(),
		"cluster":        nc.ConnectedClusterName(),
		"url":            nc.ConnectedUrl(),
		"max_payload":    nc.MaxPayload(),
	}
}

// Stats returns the broker client's transfer counters. Empty when
// unconfigured.
func (t *Transport) Stats() map[string]any {
	t.mu.Lock()
	nc := t.nc
	t.mu.Unlock()
	if nc == nil {
		return map[string]any{}
	}

	stats := nc.Stats()
	return map[string]any{
		"in_msgs":    stats.InMsgs,
		"out_msgs":   stats.OutMsgs,
		"in_bytes":   stats.InBytes,
		"out_bytes":  stats.OutBytes,
		"reconnects": stats.Reconnects,
	}
}

// JetStream exposes the broker client's JetStream context. Durable-stream
// and key/value semantics are the broker's own; this is a pass-through.
func (t *Transport) JetStream(opts ...natsio.JSOpt) (natsio.JetStreamContext, error) {
	t.mu.Lock()
	nc := t.nc
	t.mu.Unlock()
	if nc == nil {
		return nil, errspkg.ErrNotConnected
	}
	return nc.JetStream(opts...)
}

// Capabilities returns the capabilities of this transport.
func (t *Transport) Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}

// inboundHandler builds the delivery callback for one subscription. The
// callback runs on the broker client's goroutine; nothing may propagate
// back into the client from here.
func (t *Transport) inboundHandler(subject, class string) natsio.MsgHandler {
	return func(msg *natsio.Msg) {
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("panic while handling message", fmt.Errorf("panic: %v", r), loggingpkg.LogFields{
					"subject":       subject,
					"class":         class,
					"payload_bytes": len(msg.Data),
				})
			}
		}()

		got := msg.Header.Get(transport.HeaderClass)
		if got != class {
			t.logger.Debug("dropping message with unexpected class", loggingpkg.LogFields{
				"subject":  subject,
				"expected": class,
				"got":      got,
			})
			return
		}

		if err := t.dispatcher.Receive(context.Background(), class, envelopeFromMsg(msg)); err != nil {
			t.logger.Error("message dispatch failed", err, loggingpkg.LogFields{
				"subject":       subject,
				"class":         class,
				"payload_bytes": len(msg.Data),
				"headers":       len(msg.Header),
			})
		}
	}
}

// handleConnEvents drains the lifecycle event channel. Logging only; the
// broker client performs reconnection itself.
func (t *Transport) handleConnEvents() {
	for {
		select {
		case <-t.eventsDone:
			return
		case ev := <-t.events:
			switch ev.kind {
			case eventReconnected:
				t.mu.Lock()
				if t.state != stateShutDown {
					t.state = stateConnected
				}
				t.mu.Unlock()
				t.logger.Info("reconnected to NATS", loggingpkg.LogFields{"server": ev.server})
			case eventDisconnected:
				t.mu.Lock()
				if t.state == stateConnected {
					t.state = stateDisconnected
				}
				t.mu.Unlock()
				t.logger.Info("disconnected from NATS server", loggingpkg.LogFields{"error": errString(ev.err)})
			case eventClosed:
				t.logger.Debug("NATS connection closed", nil)
			case eventAsyncError:
				t.logger.Error("NATS async error", ev.err, loggingpkg.LogFields{"subject": ev.subject})
			}
		}
	}
}

// pushEvent forwards a lifecycle event without ever blocking the broker
// client's callback goroutine.
func (t *Transport) pushEvent(ev connEvent) {
	select {
	case t.events <- ev:
	default:
		t.logger.Debug("lifecycle event dropped", loggingpkg.LogFields{"event": ev.kind.String()})
	}
}

func (t *Transport) buildHeader(class string) natsio.Header {
	h := natsio.Header{}
	h.Set(transport.HeaderClass, class)
	h.Set(transport.HeaderVersion, t.cfg.GetVersion())
	h.Set(transport.HeaderContentType, jsoncodec.ContentType)
	h.Set(transport.HeaderTimestamp, time.Now().UTC().Format(time.RFC3339))
	h.Set(transport.HeaderMessageID, ids.NewMessageID())
	return h
}

func toNATSHeader(headers transport.Headers) natsio.Header {
	h := natsio.Header{}
	if headers.Class != "" {
		h.Set(transport.HeaderClass, headers.Class)
	}
	if headers.Version != "" {
		h.Set(transport.HeaderVersion, headers.Version)
	}
	if headers.ContentType != "" {
		h.Set(transport.HeaderContentType, headers.ContentType)
	}
	if !headers.Timestamp.IsZero() {
		h.Set(transport.HeaderTimestamp, headers.Timestamp.UTC().Format(time.RFC3339))
	}
	for key, values := range headers.Extra {
		for _, v := range values {
			h.Add(key, v)
		}
	}
	return h
}

func envelopeFromMsg(msg *natsio.Msg) *transport.Envelope {
	env := &transport.Envelope{
		Subject: msg.Subject,
		Payload: msg.Data,
		Reply:   msg.Reply,
		Headers: transport.Headers{
			Class:       msg.Header.Get(transport.HeaderClass),
			Version:     msg.Header.Get(transport.HeaderVersion),
			ContentType: msg.Header.Get(transport.HeaderContentType),
		},
	}
	if raw := msg.Header.Get(transport.HeaderTimestamp); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			env.Headers.Timestamp = ts
		}
	}
	for key, values := range msg.Header {
		switch key {
		case transport.HeaderClass, transport.HeaderVersion, transport.HeaderContentType, transport.HeaderTimestamp:
			continue
		}
		env.Headers.Extra = appendHeader(env.Headers.Extra, key, values)
	}
	return env
}

func appendHeader(extra map[string][]string, key string, values []string) map[string][]string {
	if extra == nil {
		extra = make(map[string][]string)
	}
	extra[key] = append(extra[key], values...)
	return extra
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
