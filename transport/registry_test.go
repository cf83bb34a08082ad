package transport

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	Transport
	name string
}

type stubConfig struct{}

func (stubConfig) GetServers() []string              { return []string{"nats://localhost:4222"} }
func (stubConfig) GetUser() string                   { return "" }
func (stubConfig) GetPassword() string               { return "" }
func (stubConfig) GetToken() string                  { return "" }
func (stubConfig) GetNKeySeed() string               { return "" }
func (stubConfig) GetJWT() string                    { return "" }
func (stubConfig) GetTLSEnabled() bool               { return false }
func (stubConfig) GetTLSCAFile() string              { return "" }
func (stubConfig) GetTLSCertFile() string            { return "" }
func (stubConfig) GetTLSKeyFile() string             { return "" }
func (stubConfig) GetReconnectEnabled() bool         { return true }
func (stubConfig) GetReconnectWait() time.Duration   { return time.Second }
func (stubConfig) GetMaxReconnects() int             { return 10 }
func (stubConfig) GetConnectTimeout() time.Duration  { return time.Second }
func (stubConfig) GetDrainTimeout() time.Duration    { return time.Second }
func (stubConfig) GetSubjectPrefix() string          { return "smart_message" }
func (stubConfig) GetQueueGroup() string             { return "smart_message" }
func (stubConfig) GetMaxPayload() int                { return 1 << 20 }
func (stubConfig) GetVersion() string                { return "1.0.0" }

type stubDispatcher struct{}

func (stubDispatcher) Register(class, name string, handler Handler) error { return nil }
func (stubDispatcher) Unregister(class, name string) error                { return nil }
func (stubDispatcher) HandlerCount(class string) int                      { return 0 }
func (stubDispatcher) Receive(ctx context.Context, class string, env *Envelope) error {
	return nil
}

func stubBuilder(name string) Builder {
	return func(ctx context.Context, cfg Config, dispatcher Dispatcher, logger watermill.LoggerAdapter) (Transport, error) {
		return &stubTransport{name: name}, nil
	}
}

func TestRegistry_Build(t *testing.T) {
	reg := NewRegistry()
	reg.Register("nats", stubBuilder("nats"))

	tr, err := reg.Build(context.Background(), "nats", stubConfig{}, stubDispatcher{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "nats", tr.(*stubTransport).name)
}

func TestRegistry_BuildUnknown(t *testing.T) {
	reg := NewRegistry()
	reg.Register("nats", stubBuilder("nats"))

	_, err := reg.Build(context.Background(), "kafka", stubConfig{}, stubDispatcher{}, watermill.NopLogger{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown transport: "kafka"`)
	assert.Contains(t, err.Error(), "nats")
}

func TestRegistry_BuildRequiresConfigAndDispatcher(t *testing.T) {
	reg := NewRegistry()
	reg.Register("nats", stubBuilder("nats"))

	_, err := reg.Build(context.Background(), "nats", nil, stubDispatcher{}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "config is required")

	_, err = reg.Build(context.Background(), "nats", stubConfig{}, nil, watermill.NopLogger{})
	assert.ErrorContains(t, err, "dispatcher is required")
}

func TestRegistry_Capabilities(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterWithCapabilities("nats", stubBuilder("nats"), NATSCapabilities)

	caps := reg.GetCapabilities("nats")
	assert.Equal(t, "nats", caps.Name)
	assert.True(t, caps.SupportsQueueGroups)

	unknown := reg.GetCapabilities("mqtt")
	assert.Equal(t, "mqtt", unknown.Name)
	assert.False(t, unknown.SupportsQueueGroups)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.Register("b", stubBuilder("b"))
	reg.Register("a", stubBuilder("a"))

	assert.Equal(t, []string{"a", "b"}, reg.Names())
}
