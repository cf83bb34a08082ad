package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	errspkg "github.com/smart-message/smartmessage-go/internal/runtime/errors"
	"github.com/smart-message/smartmessage-go/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func nopHandler(ctx context.Context, env *transport.Envelope) error { return nil }

func TestDispatcher_Register(t *testing.T) {
	d := NewDispatcher(nil, nil)

	require.NoError(t, d.Register("OrderConfirmation", "audit", nopHandler))
	require.NoError(t, d.Register("OrderConfirmation", "billing", nopHandler))
	assert.Equal(t, 2, d.HandlerCount("OrderConfirmation"))

	// Same name replaces, not duplicates.
	require.NoError(t, d.Register("OrderConfirmation", "audit", nopHandler))
	assert.Equal(t, 2, d.HandlerCount("OrderConfirmation"))
}

func TestDispatcher_RegisterValidation(t *testing.T) {
	d := NewDispatcher(nil, nil)

	assert.ErrorIs(t, d.Register("", "audit", nopHandler), errspkg.ErrClassRequired)
	assert.ErrorIs(t, d.Register("OrderConfirmation", "", nopHandler), errspkg.ErrHandlerNameRequired)
	assert.ErrorIs(t, d.Register("OrderConfirmation", "audit", nil), errspkg.ErrHandlerRequired)
}

func TestDispatcher_Unregister(t *testing.T) {
	d := NewDispatcher(nil, nil)
	require.NoError(t, d.Register("OrderConfirmation", "audit", nopHandler))
	require.NoError(t, d.Register("OrderConfirmation", "billing", nopHandler))

	require.NoError(t, d.Unregister("OrderConfirmation", "audit"))
	assert.Equal(t, 1, d.HandlerCount("OrderConfirmation"))

	require.NoError(t, d.Unregister("OrderConfirmation", "billing"))
	assert.Equal(t, 0, d.HandlerCount("OrderConfirmation"))
	assert.Empty(t, d.Classes())

	// Unknown class and name are no-ops.
	assert.NoError(t, d.Unregister("OrderConfirmation", "billing"))
	assert.NoError(t, d.Unregister("NeverSeen", "x"))
}

func TestDispatcher_Receive(t *testing.T) {
	d := NewDispatcher(nil, nil)

	var calls atomic.Int32
	handler := func(ctx context.Context, env *transport.Envelope) error {
		calls.Add(1)
		return nil
	}
	require.NoError(t, d.Register("OrderConfirmation", "audit", handler))
	require.NoError(t, d.Register("OrderConfirmation", "billing", handler))

	env := &transport.Envelope{Subject: "smart_message.order_confirmation", Payload: []byte("{}")}
	require.NoError(t, d.Receive(context.Background(), "OrderConfirmation", env))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatcher_ReceiveNoHandlers(t *testing.T) {
	d := NewDispatcher(nil, nil)

	env := &transport.Envelope{Subject: "smart_message.order_confirmation"}
	assert.NoError(t, d.Receive(context.Background(), "OrderConfirmation", env))
}

func TestDispatcher_ReceiveCollectsFailures(t *testing.T) {
	d := NewDispatcher(nil, nil)

	var succeeded atomic.Bool
	require.NoError(t, d.Register("OrderConfirmation", "flaky", func(ctx context.Context, env *transport.Envelope) error {
		return errors.New("downstream unavailable")
	}))
	require.NoError(t, d.Register("OrderConfirmation", "steady", func(ctx context.Context, env *transport.Envelope) error {
		succeeded.Store(true)
		return nil
	}))

	err := d.Receive(context.Background(), "OrderConfirmation", &transport.Envelope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flaky")
	assert.Contains(t, err.Error(), "downstream unavailable")
	assert.True(t, succeeded.Load(), "a failing handler must not stop its siblings")
}

func TestDispatcher_ReceiveContainsPanics(t *testing.T) {
	d := NewDispatcher(nil, nil)
	require.NoError(t, d.Register("OrderConfirmation", "explosive", func(ctx context.Context, env *transport.Envelope) error {
		panic("boom")
	}))

	var err error
	assert.NotPanics(t, func() {
		err = d.Receive(context.Background(), "OrderConfirmation", &transport.Envelope{})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: boom")
}

type orderConfirmation struct {
	ID string `json:"id"`
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, "runtime.orderConfirmation", ClassOf(orderConfirmation{}))
	assert.Equal(t, "runtime.orderConfirmation", ClassOf(&orderConfirmation{}))
	assert.Equal(t, "runtime.orderConfirmation", ClassOf((**orderConfirmation)(nil)))
}

func TestTypedHandler(t *testing.T) {
	var got *orderConfirmation
	handler := TypedHandler(func(ctx context.Context, msg *orderConfirmation, env *transport.Envelope) error {
		got = msg
		return nil
	})

	env := &transport.Envelope{Payload: []byte(`{"id":"o-42"}`)}
	require.NoError(t, handler(context.Background(), env))
	require.NotNil(t, got)
	assert.Equal(t, "o-42", got.ID)
}

func TestTypedHandler_BadPayload(t *testing.T) {
	handler := TypedHandler(func(ctx context.Context, msg *orderConfirmation, env *transport.Envelope) error {
		t.Fatal("handler must not run on decode failure")
		return nil
	})

	err := handler(context.Background(), &transport.Envelope{Payload: []byte(`{"id":`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}
