package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNATSCapabilities(t *testing.T) {
	assert.Equal(t, "nats", NATSCapabilities.Name)
	assert.True(t, NATSCapabilities.SupportsQueueGroups)
	assert.True(t, NATSCapabilities.SupportsRequestReply)
	assert.True(t, NATSCapabilities.SupportsHeaders)
	assert.True(t, NATSCapabilities.SupportsDurableStreams)
	assert.Zero(t, NATSCapabilities.MaxMessageSize)
}
