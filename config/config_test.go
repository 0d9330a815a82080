package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iris.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultAddr, c.Server.Addr)
	assert.Equal(t, DefaultRequestTimeout, c.Server.RequestTimeout)
	assert.Equal(t, DefaultLogLevel, c.Log.Level)
	assert.Equal(t, DefaultKeysDir, c.Keys.Dir)
	assert.Equal(t, DefaultRSAKey, c.Keys.RSAKey)
	assert.False(t, c.Processor.StrictTerms)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  allowed_origins: ["https://wallet.smartb.city"]
  request_timeout: 5s
keys:
  rsa_key: "file:/etc/iris/issuer"
  verification_method: "did:smartb:issuer#key-1"
processor:
  strict_terms: true
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, []string{"https://wallet.smartb.city"}, c.Server.AllowedOrigins)
	assert.Equal(t, 5*time.Second, c.Server.RequestTimeout)
	assert.Equal(t, "file:/etc/iris/issuer", c.Keys.RSAKey)
	assert.Equal(t, DefaultKeysDir, c.Keys.Dir)
	assert.Equal(t, DefaultLogLevel, c.Log.Level)
	assert.True(t, c.Processor.StrictTerms)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
keys:
  verification_method: "did:smartb:issuer#key-1"
`)
	t.Setenv(EnvAddr, ":7070")
	t.Setenv(EnvAllowedOrigins, "https://a.smartb.city, https://b.smartb.city,")
	t.Setenv(EnvRequestTimeout, "1m")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvSecp256k1Key, "0x01")
	t.Setenv(EnvStrictTerms, "true")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.Server.Addr)
	assert.Equal(t, []string{"https://a.smartb.city", "https://b.smartb.city"}, c.Server.AllowedOrigins)
	assert.Equal(t, time.Minute, c.Server.RequestTimeout)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "0x01", c.Keys.Secp256k1Key)
	assert.True(t, c.Processor.StrictTerms)
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv(EnvVerificationMethod, "did:smartb:issuer#key-1")
	t.Setenv(EnvRequestTimeout, "soon")
	t.Setenv(EnvStrictTerms, "maybe")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRequestTimeout, c.Server.RequestTimeout)
	assert.False(t, c.Processor.StrictTerms)
}

func TestLoadRemoteSigner(t *testing.T) {
	path := writeConfig(t, `
keys:
  rsa_key: ""
  remote_signer:
    endpoint: "https://signer.smartb.city/sign"
    public_key: "02ab"
  verification_method: "did:smartb:issuer#key-1"
`)
	t.Setenv(EnvRemoteSignerAPIKey, "secret")

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Keys.RemoteSigner.Enabled())
	assert.Equal(t, RemoteSigner{
		Endpoint:  "https://signer.smartb.city/sign",
		APIKey:    "secret",
		PublicKey: "02ab",
	}, c.Keys.RemoteSigner)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "server: [addr"},
		{"no verification method", "server:\n  addr: \":1\"\n"},
		{"no key", "keys:\n  rsa_key: \"\"\n  verification_method: \"did:smartb:1#k\"\n"},
		{"zero timeout", "server:\n  request_timeout: 0s\nkeys:\n  verification_method: \"did:smartb:1#k\"\n"},
		{"remote signer and local key", "keys:\n  secp256k1_key: \"01\"\n  remote_signer:\n    endpoint: \"https://signer\"\n    public_key: \"02ab\"\n  verification_method: \"did:smartb:1#k\"\n"},
		{"remote signer without public key", "keys:\n  remote_signer:\n    endpoint: \"https://signer\"\n  verification_method: \"did:smartb:1#k\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
