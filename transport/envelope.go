package transport

import "time"

// Wire-level header keys, case-sensitive. Produced on every publish and
// validated on every receipt.
const (
	HeaderClass       = "Smart-Message-Class"
	HeaderVersion     = "Smart-Message-Version"
	HeaderContentType = "Content-Type"
	HeaderTimestamp   = "Timestamp"

	// HeaderMessageID is an optional extension header carrying a
	// time-sortable correlation id.
	HeaderMessageID = "Smart-Message-ID"
)

// Headers is the fixed header record attached to every message. Broker or
// caller supplied metadata beyond the four known keys lives in Extra.
type Headers struct {
	// Class is the full message class name.
	Class string

	// Version is the framework version string of the publisher.
	Version string

	// ContentType identifies the payload encoding.
	ContentType string

	// Timestamp is the publish time. Serialized as RFC 3339.
	Timestamp time.Time

	// Extra holds extension headers keyed by their wire name.
	Extra map[string][]string
}

// Get returns the first value of an extension header, or the named field
// for one of the four known keys.
func (h Headers) Get(key string) string {
	switch key {
	case HeaderClass:
		return h.Class
	case HeaderVersion:
		return h.Version
	case HeaderContentType:
		return h.ContentType
	case HeaderTimestamp:
		if h.Timestamp.IsZero() {
			return ""
		}
		return h.Timestamp.Format(time.RFC3339)
	}
	if vs := h.Extra[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Set stores an extension header value, replacing any existing values.
func (h *Headers) Set(key, value string) {
	if h.Extra == nil {
		h.Extra = make(map[string][]string)
	}
	h.Extra[key] = []string{value}
}

// Envelope is a message as it crosses the adapter boundary. Outbound
// envelopes are constructed fresh per publish; inbound envelopes are
// read-only and scoped to the delivery callback.
type Envelope struct {
	Subject string
	Payload []byte
	Headers Headers

	// Reply is the reply subject for request/reply flows, if any.
	Reply string
}
