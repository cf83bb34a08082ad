package nats

import (
	"fmt"
	"strings"
	"sync"

	natsio "github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"

	"github.com/smart-message/smartmessage-go/transport"
)

type connEventKind int

const (
	eventReconnected connEventKind = iota
	eventDisconnected
	eventClosed
	eventAsyncError
)

// connEvent is one lifecycle notification from the broker client. All four
// callback variants funnel through a single channel drained by one
// goroutine, which keeps the state transitions under one locking
// discipline.
type connEvent struct {
	kind    connEventKind
	err     error
	subject string
	server  string
}

func (k connEventKind) String() string {
	switch k {
	case eventReconnected:
		return "reconnected"
	case eventDisconnected:
		return "disconnected"
	case eventClosed:
		return "closed"
	case eventAsyncError:
		return "async_error"
	}
	return "unknown"
}

// buildOptions translates the adapter configuration into nats.go connect
// options. Auth fields are only included when non-empty; the server
// decides precedence when several are set. Reconnection is entirely the
// client's responsibility. connClosed is closed when this connection
// terminates for good.
func (t *Transport) buildOptions(cfg transport.Config, connClosed chan struct{}) ([]natsio.Option, error) {
	opts := []natsio.Option{
		natsio.Name("smartmessage"),
		natsio.Timeout(cfg.GetConnectTimeout()),
		natsio.DrainTimeout(cfg.GetDrainTimeout()),
	}

	if user := cfg.GetUser(); user != "" {
		opts = append(opts, natsio.UserInfo(user, cfg.GetPassword()))
	}
	if token := cfg.GetToken(); token != "" {
		opts = append(opts, natsio.Token(token))
	}

	if seed := cfg.GetNKeySeed(); seed != "" {
		kp, err := nkeys.FromSeed([]byte(seed))
		if err != nil {
			return nil, fmt.Errorf("invalid nkey seed: %w", err)
		}
		sign := func(nonce []byte) ([]byte, error) {
			return kp.Sign(nonce)
		}
		if jwt := cfg.GetJWT(); jwt != "" {
			opts = append(opts, natsio.UserJWT(func() (string, error) { return jwt, nil }, sign))
		} else {
			pub, err := kp.PublicKey()
			if err != nil {
				return nil, fmt.Errorf("invalid nkey seed: %w", err)
			}
			opts = append(opts, natsio.Nkey(pub, sign))
		}
	}

	if cfg.GetTLSEnabled() {
		opts = append(opts, natsio.Secure())
		if ca := cfg.GetTLSCAFile(); ca != "" {
			opts = append(opts, natsio.RootCAs(ca))
		}
		if cert, key := cfg.GetTLSCertFile(), cfg.GetTLSKeyFile(); cert != "" && key != "" {
			opts = append(opts, natsio.ClientCert(cert, key))
		}
	}

	if cfg.GetReconnectEnabled() {
		opts = append(opts,
			natsio.ReconnectWait(cfg.GetReconnectWait()),
			natsio.MaxReconnects(cfg.GetMaxReconnects()),
		)
	} else {
		opts = append(opts, natsio.NoReconnect())
	}

	var closeOnce sync.Once
	opts = append(opts,
		natsio.ReconnectHandler(func(nc *natsio.Conn) {
			t.pushEvent(connEvent{kind: eventReconnected, server: nc.ConnectedUrl()})
		}),
		natsio.DisconnectErrHandler(func(_ *natsio.Conn, err error) {
			t.pushEvent(connEvent{kind: eventDisconnected, err: err})
		}),
		natsio.ClosedHandler(func(_ *natsio.Conn) {
			closeOnce.Do(func() { close(connClosed) })
			t.pushEvent(connEvent{kind: eventClosed})
		}),
		natsio.ErrorHandler(func(_ *natsio.Conn, sub *natsio.Subscription, err error) {
			ev := connEvent{kind: eventAsyncError, err: err}
			if sub != nil {
				ev.subject = sub.Subject
			}
			t.pushEvent(ev)
		}),
	)

	return opts, nil
}

func serverList(cfg transport.Config) string {
	return strings.Join(cfg.GetServers(), ",")
}
