// Package config holds the settings of the irisd service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values
const (
	DefaultAddr           = ":8080"
	DefaultLogLevel       = "info"
	DefaultKeysDir        = "keys"
	DefaultRSAKey         = "issuer"
	DefaultRequestTimeout = 30 * time.Second
)

// Environment variable names
const (
	EnvAddr               = "IRIS_ADDR"
	EnvAllowedOrigins     = "IRIS_ALLOWED_ORIGINS"
	EnvRequestTimeout     = "IRIS_REQUEST_TIMEOUT"
	EnvLogLevel           = "IRIS_LOG_LEVEL"
	EnvKeysDir            = "IRIS_KEYS_DIR"
	EnvRSAKey             = "IRIS_RSA_KEY"
	EnvSecp256k1Key       = "IRIS_SECP256K1_KEY"
	EnvRemoteSignerURL    = "IRIS_REMOTE_SIGNER_URL"
	EnvRemoteSignerAPIKey = "IRIS_REMOTE_SIGNER_API_KEY"
	EnvRemoteSignerPubKey = "IRIS_REMOTE_SIGNER_PUBLIC_KEY"
	EnvVerificationMethod = "IRIS_VERIFICATION_METHOD"
	EnvStrictTerms        = "IRIS_STRICT_TERMS"
)

// Config is the service configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
	Keys      Keys      `yaml:"keys"`
	Processor Processor `yaml:"processor"`
}

type Server struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type Log struct {
	Level string `yaml:"level"`
}

// Keys names the signing material. RSAKey is a key pair name resolved
// under Dir, or a "file:" path. Secp256k1Key is an optional hex private key.
// RemoteSigner replaces Secp256k1Key when the key is held by a signing API.
type Keys struct {
	Dir                string       `yaml:"dir"`
	RSAKey             string       `yaml:"rsa_key"`
	Secp256k1Key       string       `yaml:"secp256k1_key"`
	RemoteSigner       RemoteSigner `yaml:"remote_signer"`
	VerificationMethod string       `yaml:"verification_method"`
}

type RemoteSigner struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	PublicKey string `yaml:"public_key"`
}

// Enabled reports whether a signing API is configured.
func (r RemoteSigner) Enabled() bool { return r.Endpoint != "" }

type Processor struct {
	StrictTerms bool `yaml:"strict_terms"`
}

// New returns the defaults overridden by the environment.
func New() *Config {
	c := defaults()
	applyEnvOverrides(c)
	return c
}

func defaults() *Config {
	return &Config{
		Server: Server{
			Addr:           DefaultAddr,
			RequestTimeout: DefaultRequestTimeout,
		},
		Log:  Log{Level: DefaultLogLevel},
		Keys: Keys{Dir: DefaultKeysDir, RSAKey: DefaultRSAKey},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// IRIS_* environment variables. An empty path only applies the environment.
func Load(path string) (*Config, error) {
	c := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server address cannot be empty")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.Server.RequestTimeout)
	}
	if c.Keys.RSAKey == "" && c.Keys.Secp256k1Key == "" && !c.Keys.RemoteSigner.Enabled() {
		return errors.New("no signing key configured")
	}
	if c.Keys.RemoteSigner.Enabled() {
		if c.Keys.Secp256k1Key != "" {
			return errors.New("secp256k1 key and remote signer are mutually exclusive")
		}
		if c.Keys.RemoteSigner.PublicKey == "" {
			return errors.New("remote signer public key cannot be empty")
		}
	}
	if c.Keys.VerificationMethod == "" {
		return errors.New("verification method cannot be empty")
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	c.Server.Addr = envString(EnvAddr, c.Server.Addr)
	if v := os.Getenv(EnvAllowedOrigins); v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	c.Server.RequestTimeout = envDuration(EnvRequestTimeout, c.Server.RequestTimeout)
	c.Log.Level = envString(EnvLogLevel, c.Log.Level)
	c.Keys.Dir = envString(EnvKeysDir, c.Keys.Dir)
	c.Keys.RSAKey = envString(EnvRSAKey, c.Keys.RSAKey)
	c.Keys.Secp256k1Key = envString(EnvSecp256k1Key, c.Keys.Secp256k1Key)
	c.Keys.RemoteSigner.Endpoint = envString(EnvRemoteSignerURL, c.Keys.RemoteSigner.Endpoint)
	c.Keys.RemoteSigner.APIKey = envString(EnvRemoteSignerAPIKey, c.Keys.RemoteSigner.APIKey)
	c.Keys.RemoteSigner.PublicKey = envString(EnvRemoteSignerPubKey, c.Keys.RemoteSigner.PublicKey)
	c.Keys.VerificationMethod = envString(EnvVerificationMethod, c.Keys.VerificationMethod)
	c.Processor.StrictTerms = envBool(EnvStrictTerms, c.Processor.StrictTerms)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
