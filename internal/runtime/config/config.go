package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables recognised by FromEnv. These names are an external
// contract shared with existing smartmessage deployments.
const (
	EnvServers        = "SMART_MESSAGE_NATS_SERVERS"
	EnvUser           = "SMART_MESSAGE_NATS_USER"
	EnvPassword       = "SMART_MESSAGE_NATS_PASSWORD"
	EnvToken          = "SMART_MESSAGE_NATS_TOKEN"
	EnvNKeySeed       = "SMART_MESSAGE_NATS_NKEY_SEED"
	EnvJWT            = "SMART_MESSAGE_NATS_JWT"
	EnvTLS            = "SMART_MESSAGE_NATS_TLS"
	EnvTLSCAFile      = "SMART_MESSAGE_NATS_TLS_CA_FILE"
	EnvTLSCertFile    = "SMART_MESSAGE_NATS_TLS_CERT_FILE"
	EnvTLSKeyFile     = "SMART_MESSAGE_NATS_TLS_KEY_FILE"
	EnvReconnect      = "SMART_MESSAGE_NATS_RECONNECT"
	EnvReconnectWait  = "SMART_MESSAGE_NATS_RECONNECT_WAIT"
	EnvMaxReconnects  = "SMART_MESSAGE_NATS_MAX_RECONNECTS"
	EnvConnectTimeout = "SMART_MESSAGE_NATS_CONNECT_TIMEOUT"
	EnvDrainTimeout   = "SMART_MESSAGE_NATS_DRAIN_TIMEOUT"
	EnvSubjectPrefix  = "SMART_MESSAGE_SUBJECT_PREFIX"
	EnvQueueGroup     = "SMART_MESSAGE_QUEUE_GROUP"
	EnvMaxPayload     = "SMART_MESSAGE_MAX_PAYLOAD"
)

// Defaults applied by FromEnv when the corresponding variable is unset.
const (
	DefaultServer         = "nats://127.0.0.1:4222"
	DefaultSubjectPrefix  = "smart_message"
	DefaultQueueGroup     = "smart_message"
	DefaultMaxPayload     = 1 << 20
	DefaultReconnectWait  = 2 * time.Second
	DefaultMaxReconnects  = 60
	DefaultConnectTimeout = 5 * time.Second
	DefaultDrainTimeout   = 10 * time.Second
)

// Config holds the adapter settings. Build it once with FromEnv, override
// individual fields, and treat it as immutable afterwards.
type Config struct {
	// Servers is the ordered list of broker URLs to try.
	Servers []string

	// Credentials. All fields may be set at once; the broker decides
	// precedence. Empty fields are omitted from the connect options.
	User     string
	Password string
	Token    string
	// NKeySeed is the seed string of an NKey pair used for challenge
	// signing.
	NKeySeed string
	// JWT is a user JWT; it requires NKeySeed to sign the server nonce.
	JWT string

	// TLS. The sub-options are only consulted when TLSEnabled is true.
	TLSEnabled  bool
	TLSCAFile   string
	TLSCertFile string
	TLSKeyFile  string

	// Reconnection policy, executed by the broker client itself.
	ReconnectEnabled bool
	ReconnectWait    time.Duration
	MaxReconnects    int
	ConnectTimeout   time.Duration

	// DrainTimeout bounds the disconnect drain.
	DrainTimeout time.Duration

	// SubjectPrefix is prepended to every derived subject.
	SubjectPrefix string

	// QueueGroup names the queue group every subscription joins.
	QueueGroup string

	// MaxPayload is the maximum outbound payload size in bytes.
	MaxPayload int

	// Version is the framework version string stamped into the
	// Smart-Message-Version header of every published message.
	Version string
}

// FromEnv builds a Config from the environment, falling back to defaults
// for anything unset. Malformed numeric or duration values fall back to
// their defaults rather than failing; Validate catches genuinely unusable
// configurations.
func FromEnv() Config {
	return Config{
		Servers:          envList(EnvServers, []string{DefaultServer}),
		User:             os.Getenv(EnvUser),
		Password:         os.Getenv(EnvPassword),
		Token:            os.Getenv(EnvToken),
		NKeySeed:         os.Getenv(EnvNKeySeed),
		JWT:              os.Getenv(EnvJWT),
		TLSEnabled:       envBool(EnvTLS, false),
		TLSCAFile:        os.Getenv(EnvTLSCAFile),
		TLSCertFile:      os.Getenv(EnvTLSCertFile),
		TLSKeyFile:       os.Getenv(EnvTLSKeyFile),
		ReconnectEnabled: envBool(EnvReconnect, true),
		ReconnectWait:    envDuration(EnvReconnectWait, DefaultReconnectWait),
		MaxReconnects:    envInt(EnvMaxReconnects, DefaultMaxReconnects),
		ConnectTimeout:   envDuration(EnvConnectTimeout, DefaultConnectTimeout),
		DrainTimeout:     envDuration(EnvDrainTimeout, DefaultDrainTimeout),
		SubjectPrefix:    envString(EnvSubjectPrefix, DefaultSubjectPrefix),
		QueueGroup:       envString(EnvQueueGroup, DefaultQueueGroup),
		MaxPayload:       envInt(EnvMaxPayload, DefaultMaxPayload),
		Version:          "1.0.0",
	}
}

// Getter methods to implement the transport.Config interface.
func (c *Config) GetServers() []string              { return c.Servers }
func (c *Config) GetUser() string                   { return c.User }
func (c *Config) GetPassword() string               { return c.Password }
func (c *Config) GetToken() string                  { return c.Token }
func (c *Config) GetNKeySeed() string               { return c.NKeySeed }
func (c *Config) GetJWT() string                    { return c.JWT }
func (c *Config) GetTLSEnabled() bool               { return c.TLSEnabled }
func (c *Config) GetTLSCAFile() string              { return c.TLSCAFile }
func (c *Config) GetTLSCertFile() string            { return c.TLSCertFile }
func (c *Config) GetTLSKeyFile() string             { return c.TLSKeyFile }
func (c *Config) GetReconnectEnabled() bool         { return c.ReconnectEnabled }
func (c *Config) GetReconnectWait() time.Duration   { return c.ReconnectWait }
func (c *Config) GetMaxReconnects() int             { return c.MaxReconnects }
func (c *Config) GetConnectTimeout() time.Duration  { return c.ConnectTimeout }
func (c *Config) GetDrainTimeout() time.Duration    { return c.DrainTimeout }
func (c *Config) GetSubjectPrefix() string          { return c.SubjectPrefix }
func (c *Config) GetQueueGroup() string             { return c.QueueGroup }
func (c *Config) GetMaxPayload() int                { return c.MaxPayload }
func (c *Config) GetVersion() string                { return c.Version }

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Servers) == 0 {
		errs = append(errs, errors.New("nats: at least one server is required"))
	}
	for _, s := range c.Servers {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, errors.New("nats: server URL cannot be blank"))
			break
		}
	}
	if c.MaxPayload <= 0 {
		errs = append(errs, fmt.Errorf("nats: invalid max payload %d", c.MaxPayload))
	}
	if c.SubjectPrefix == "" {
		errs = append(errs, errors.New("subject prefix is required"))
	}
	if c.JWT != "" && c.NKeySeed == "" {
		errs = append(errs, errors.New("nats: JWT auth requires an nkey seed for nonce signing"))
	}
	if c.TLSEnabled && (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("tls: cert and key files must be provided together"))
	}
	if c.DrainTimeout < 0 || c.ConnectTimeout < 0 || c.ReconnectWait < 0 {
		errs = append(errs, errors.New("timeouts cannot be negative"))
	}

	return errors.Join(errs...)
}

func (c Config) String() string {
	// Copy so secrets in the original stay untouched.
	redacted := c
	if redacted.Password != "" {
		redacted.Password = "***REDACTED***"
	}
	if redacted.Token != "" {
		redacted.Token = "***REDACTED***"
	}
	if redacted.NKeySeed != "" {
		redacted.NKeySeed = "***REDACTED***"
	}
	if redacted.JWT != "" {
		redacted.JWT = "***REDACTED***"
	}
	// Type alias avoids infinite recursion when printing.
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(redacted))
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}
