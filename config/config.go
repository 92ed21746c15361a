// Package config loads the aggregator configuration and builds its logger.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tolelom/headstats/ledger"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

const (
	DefaultLogLevel = "info"
	DefaultRPCAddr  = "127.0.0.1:8000"
	DefaultLocalURL = "ws://127.0.0.1:4001"

	// KeyPasswordEnv names the variable holding the admin keystore password.
	KeyPasswordEnv = "HEADSTATS_KEY_PASSWORD"
)

// ContractConfig identifies the game's script.
type ContractConfig struct {
	ScriptAddress string `mapstructure:"script_address"`
	ScriptCBOR    string `mapstructure:"script_cbor"`
}

// TLSConfig holds PEM paths for connecting to secure heads.
type TLSConfig struct {
	CACert   string `mapstructure:"ca_cert"`
	NodeCert string `mapstructure:"node_cert"`
	NodeKey  string `mapstructure:"node_key"`
}

// NodeConfig describes one watched head.
type NodeConfig struct {
	LocalURL     string `mapstructure:"local_url"`
	RemoteURL    string `mapstructure:"remote_url"`
	MaxPlayers   int    `mapstructure:"max_players"`
	AdminKeyFile string `mapstructure:"admin_key_file"`
	Persisted    bool   `mapstructure:"persisted"`
}

// Config holds all aggregator configuration.
type Config struct {
	LogLevel     string         `mapstructure:"log_level"`
	LogFile      string         `mapstructure:"log_file"`
	RPCAddr      string         `mapstructure:"rpc_addr"`
	RPCAuthToken string         `mapstructure:"rpc_auth_token"`
	TTLMinutes   uint64         `mapstructure:"ttl_minutes"` // 0 → pending entries never expire
	Contract     ContractConfig `mapstructure:"contract"`
	TLS          *TLSConfig     `mapstructure:"tls"`
	Nodes        []NodeConfig   `mapstructure:"nodes"`

	logger *logrus.Logger
}

// DefaultConfig returns a configuration with no nodes.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		RPCAddr:  DefaultRPCAddr,
		Contract: ContractConfig{
			ScriptAddress: DefaultScriptAddress,
			ScriptCBOR:    DefaultScriptCBOR,
		},
	}
}

// Load reads a TOML, YAML or JSON config file into v and decodes the
// result. With an empty path it looks for headstats.{toml,yaml,json} in the
// working directory and tolerates its absence. Values already bound in v,
// such as command line flags, keep viper's precedence.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("headstats")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes v on top of DefaultConfig.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	for i := range cfg.Nodes {
		if cfg.Nodes[i].LocalURL == "" {
			cfg.Nodes[i].LocalURL = DefaultLocalURL
		}
	}
	return cfg, nil
}

// Validate checks the values the aggregator cannot start without.
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return errors.New("config: no nodes configured")
	}
	if _, err := ledger.ParseBech32Address(c.Contract.ScriptAddress); err != nil {
		return fmt.Errorf("config: contract.script_address: %w", err)
	}
	if _, err := hex.DecodeString(c.Contract.ScriptCBOR); err != nil {
		return fmt.Errorf("config: contract.script_cbor: %w", err)
	}
	for i, n := range c.Nodes {
		if n.AdminKeyFile == "" {
			return fmt.Errorf("config: nodes[%d]: admin_key_file is required", i)
		}
		if n.MaxPlayers < 0 {
			return fmt.Errorf("config: nodes[%d]: max_players must not be negative", i)
		}
	}
	return nil
}

// TTL returns how long a pending entry may wait for confirmation.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// KeyPassword returns the admin keystore password from the environment.
func KeyPassword() string {
	return os.Getenv(KeyPasswordEnv)
}

// Logger returns a prefixed entry of the process logger, creating the
// logger on first use. With LogFile set every level is mirrored there.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, l := range logrus.AllLevels {
				pathMap[l] = c.LogFile
			}
			c.logger.Hooks.Add(lfshook.NewHook(pathMap, &logrus.JSONFormatter{}))
		}
	}
	return c.logger.WithField("prefix", "headstats")
}

// LogLevel parses a level name, defaulting to info.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}
