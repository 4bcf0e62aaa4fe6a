package cli

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/concepts/internal/errors"
	"github.com/mesh-intelligence/concepts/internal/fsutil"
	"github.com/mesh-intelligence/concepts/internal/paths"
	"github.com/mesh-intelligence/concepts/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "CONCEPTS"

	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyRedisAddr   = "redis.addr"
	cfgKeyRedisPrefix = "redis.prefix"
	cfgKeyRemoteURL   = "remote.url"
	cfgKeyRegistryURL = "registry.url"
	cfgKeyServerAddr  = "server.addr"
	cfgKeyEndpoint    = "owner.endpoint"
	cfgKeyLogJSON     = "log.json"
	cfgKeyLogLevel    = "log.level"
	cfgKeyHTTPTimeout = "http.timeout"

	defaultBackend    = types.BackendSQLite
	defaultServerAddr = ":8080"
	defaultPrefix     = "concepts"
)

// envKeys can be overridden with CONCEPTS_<KEY>, dots becoming underscores.
// data_dir is absent: CONCEPTS_DATA_DIR is resolved by internal/paths,
// below the config file value.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyRedisAddr,
	cfgKeyRedisPrefix,
	cfgKeyRemoteURL,
	cfgKeyRegistryURL,
	cfgKeyServerAddr,
	cfgKeyEndpoint,
	cfgKeyLogJSON,
	cfgKeyLogLevel,
	cfgKeyHTTPTimeout,
}

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# concepts configuration

# Storage backend: memory, sqlite, cas, redis or remote.
backend: sqlite

# Data directory for the sqlite and cas backends (overridable by --data-dir).
# data_dir:

redis:
  # addr: localhost:6379
  prefix: concepts

# remote:
#   url: http://localhost:8080

# Registry service; when unset the registry lives in local storage.
# registry:
#   url: http://localhost:8080

server:
  addr: ":8080"

# Endpoint other owners use to reach this node; registered on init.
# owner:
#   endpoint: http://localhost:8080

log:
  json: false
  level: warn

http:
  timeout: 10s
`

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create config dir %s", configDir)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyRedisPrefix, defaultPrefix)
	v.SetDefault(cfgKeyServerAddr, defaultServerAddr)
	v.SetDefault(cfgKeyHTTPTimeout, types.DefaultHTTPTimeout)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "bind env for %s", key)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, errors.Mark(errors.Wrap(err, "read config"), types.ErrInvalidArgument)
	}
	return v, nil
}

func ensureDefaultConfigFile(configDir string) error {
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.Wrap(err, "stat config file")
	}
	return fsutil.WriteFileAtomic(path, []byte(defaultConfigYAML), 0o644)
}

// storageConfig builds the backend configuration from viper and the data
// directory precedence chain.
func (a *app) storageConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.dataDirFlag, a.v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, errors.Wrap(err, "resolve data dir")
	}
	cfg := types.Config{
		Backend: a.v.GetString(cfgKeyBackend),
		DataDir: dataDir,
		Redis: types.RedisConfig{
			Addr:   a.v.GetString(cfgKeyRedisAddr),
			Prefix: a.v.GetString(cfgKeyRedisPrefix),
		},
		Remote:      types.RemoteConfig{URL: a.v.GetString(cfgKeyRemoteURL)},
		HTTPTimeout: a.v.GetDuration(cfgKeyHTTPTimeout),
	}
	return cfg, cfg.Validate()
}
