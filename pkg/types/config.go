package types

import (
	"time"

	"github.com/mesh-intelligence/concepts/internal/errors"
)

// Config holds backend selection and parameters for pkg/storage.Open.
type Config struct {
	Backend     string        `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir     string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	Redis       RedisConfig   `json:"redis" yaml:"redis" mapstructure:"redis"`
	Remote      RemoteConfig  `json:"remote" yaml:"remote" mapstructure:"remote"`
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"http_timeout" mapstructure:"http_timeout"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr   string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// RemoteConfig configures the remote (HTTP) backend.
type RemoteConfig struct {
	URL string `json:"url" yaml:"url" mapstructure:"url"`
}

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendCAS    = "cas"
	BackendRedis  = "redis"
	BackendRemote = "remote"
)

// DefaultHTTPTimeout bounds remote backend, registry and query calls.
const DefaultHTTPTimeout = 10 * time.Second

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDataDirEmpty   = errors.New("data_dir must be set for file backends")
	ErrRedisAddrEmpty = errors.New("redis.addr must be set for the redis backend")
	ErrRemoteURLEmpty = errors.New("remote.url must be set for the remote backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendMemory: true,
	BackendSQLite: true,
	BackendCAS:    true,
	BackendRedis:  true,
	BackendRemote: true,
}

// Validate checks that the Config is well-formed for its backend. It returns
// a sentinel error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return errors.Wrapf(ErrBackendUnknown, "%q", c.Backend)
	}
	switch c.Backend {
	case BackendSQLite, BackendCAS:
		if c.DataDir == "" {
			return ErrDataDirEmpty
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return ErrRedisAddrEmpty
		}
	case BackendRemote:
		if c.Remote.URL == "" {
			return ErrRemoteURLEmpty
		}
	}
	return nil
}

// Timeout returns HTTPTimeout or DefaultHTTPTimeout when unset.
func (c Config) Timeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return DefaultHTTPTimeout
	}
	return c.HTTPTimeout
}
