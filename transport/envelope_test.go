package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeaderKeys(t *testing.T) {
	assert.Equal(t, "Smart-Message-Class", HeaderClass)
	assert.Equal(t, "Smart-Message-Version", HeaderVersion)
	assert.Equal(t, "Content-Type", HeaderContentType)
	assert.Equal(t, "Timestamp", HeaderTimestamp)
}

func TestHeaders_Get(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	h := Headers{
		Class:       "MyApp::UserMessage",
		Version:     "1.0.0",
		ContentType: "application/json",
		Timestamp:   ts,
	}

	assert.Equal(t, "MyApp::UserMessage", h.Get(HeaderClass))
	assert.Equal(t, "1.0.0", h.Get(HeaderVersion))
	assert.Equal(t, "application/json", h.Get(HeaderContentType))
	assert.Equal(t, "2026-03-14T09:26:53Z", h.Get(HeaderTimestamp))
	assert.Empty(t, h.Get("Nats-Msg-Id"))
}

func TestHeaders_ZeroTimestamp(t *testing.T) {
	assert.Empty(t, Headers{}.Get(HeaderTimestamp))
}

func TestHeaders_SetExtra(t *testing.T) {
	var h Headers
	h.Set("Nats-Msg-Id", "abc")
	h.Set("Nats-Msg-Id", "def")

	assert.Equal(t, "def", h.Get("Nats-Msg-Id"))
	assert.Equal(t, []string{"def"}, h.Extra["Nats-Msg-Id"])
}
