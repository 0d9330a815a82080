package startcmd

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbcity/iris-go/config"
	"github.com/smartbcity/iris-go/credential/common/crypto"
)

const rsaKeyName = "file:../../../credential/vc/testdata/userAgentUnitTest"

type mockServer struct {
	addr    string
	handler http.Handler
	err     error
}

func (s *mockServer) ListenAndServe(addr string, handler http.Handler) error {
	s.addr = addr
	s.handler = handler
	return s.err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irisd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func algorithms(t *testing.T, h http.Handler) []string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Algorithms []string `json:"algorithms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Algorithms
}

func TestStartCmdContents(t *testing.T) {
	startCmd, err := Cmd(&mockServer{})
	require.NoError(t, err)

	assert.Equal(t, "start", startCmd.Use)
	assert.Equal(t, "Start irisd", startCmd.Short)
	assert.NotNil(t, startCmd.Flags().Lookup(configFlagName))
	assert.NotNil(t, startCmd.Flags().ShorthandLookup(configFlagShorthand))
	assert.NotNil(t, startCmd.Flags().Lookup(logLevelFlagName))

	_, err = Cmd(nil)
	assert.ErrorIs(t, err, errMissingServer)
}

func TestStartCmdWithFlags(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9443"
keys:
  rsa_key: "`+rsaKeyName+`"
  secp256k1_key: "0x`+strings.Repeat("0", 63)+`1"
  verification_method: "did:smartb:issuer#key-1"
processor:
  strict_terms: true
`)
	srv := &mockServer{}
	startCmd, err := Cmd(srv)
	require.NoError(t, err)

	startCmd.SetArgs([]string{"--" + configFlagName, path, "--" + logLevelFlagName, "warn"})
	require.NoError(t, startCmd.Execute())

	assert.Equal(t, ":9443", srv.addr)
	require.NotNil(t, srv.handler)
	assert.Equal(t, []string{crypto.AlgorithmEcdsaSecp256k1Signature2019, crypto.AlgorithmRsaSignature2018}, algorithms(t, srv.handler))
}

func TestStartCmdWithEnv(t *testing.T) {
	t.Setenv(configEnvKey, writeConfig(t, `
keys:
  rsa_key: ""
  verification_method: "did:smartb:issuer#key-1"
`))
	t.Setenv(config.EnvSecp256k1Key, strings.Repeat("0", 63)+"1")
	t.Setenv(config.EnvAddr, ":7000")

	srv := &mockServer{}
	startCmd, err := Cmd(srv)
	require.NoError(t, err)
	startCmd.SetArgs([]string{})
	require.NoError(t, startCmd.Execute())

	assert.Equal(t, ":7000", srv.addr)
	assert.Equal(t, []string{crypto.AlgorithmEcdsaSecp256k1Signature2019}, algorithms(t, srv.handler))
}

func TestStartCmdWithRemoteSigner(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PayloadHex string `json:"payload_hex"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		digest, err := hex.DecodeString(req.PayloadHex)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sig, err := ethcrypto.Sign(digest, key)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"signature_hex": hex.EncodeToString(sig)})
	}))
	defer signer.Close()

	t.Setenv(configEnvKey, "")
	t.Setenv(config.EnvRSAKey, rsaKeyName)
	t.Setenv(config.EnvVerificationMethod, "did:smartb:issuer#key-1")
	t.Setenv(config.EnvRemoteSignerURL, signer.URL)
	t.Setenv(config.EnvRemoteSignerPubKey, hex.EncodeToString(ethcrypto.CompressPubkey(&key.PublicKey)))

	srv := &mockServer{}
	startCmd, err := Cmd(srv)
	require.NoError(t, err)
	startCmd.SetArgs([]string{})
	require.NoError(t, startCmd.Execute())
	assert.Equal(t, []string{crypto.AlgorithmEcdsaSecp256k1Signature2019, crypto.AlgorithmRsaSignature2018}, algorithms(t, srv.handler))

	body := `{"algorithm": "` + crypto.AlgorithmEcdsaSecp256k1Signature2019 + `", "credential": {
		"@context": ["https://www.w3.org/2018/credentials/v1"],
		"id": "urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5",
		"type": ["VerifiableCredential"],
		"issuer": "did:smartb:issuer",
		"issuanceDate": "2020-05-25T11:37:24Z",
		"credentialSubject": {"id": "did:smartb:holder", "name": "smartb"}
	}}`
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials/sign", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec2 := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/v1/credentials/verify", strings.NewReader(rec.Body.String())))
	require.Equal(t, http.StatusOK, rec2.Code, rec2.Body.String())
	var verified struct {
		Verified  bool   `json:"verified"`
		Algorithm string `json:"algorithm"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &verified))
	assert.True(t, verified.Verified)
	assert.Equal(t, crypto.AlgorithmEcdsaSecp256k1Signature2019, verified.Algorithm)
}

func TestStartCmdErrors(t *testing.T) {
	valid := `
keys:
  rsa_key: "` + rsaKeyName + `"
  verification_method: "did:smartb:issuer#key-1"
`
	tests := []struct {
		name   string
		args   func(t *testing.T) []string
		server *mockServer
	}{
		{
			name: "missing config file",
			args: func(t *testing.T) []string {
				return []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}
			},
			server: &mockServer{},
		},
		{
			name: "invalid log level",
			args: func(t *testing.T) []string {
				return []string{"--config", writeConfig(t, valid), "--log-level", "loud"}
			},
			server: &mockServer{},
		},
		{
			name: "missing RSA key",
			args: func(t *testing.T) []string {
				return []string{"--config", writeConfig(t, "keys:\n  rsa_key: \"file:/nonexistent/issuer\"\n  verification_method: \"did:smartb:1#k\"\n")}
			},
			server: &mockServer{},
		},
		{
			name: "malformed secp256k1 key",
			args: func(t *testing.T) []string {
				return []string{"--config", writeConfig(t, "keys:\n  rsa_key: \"\"\n  secp256k1_key: \"zz\"\n  verification_method: \"did:smartb:1#k\"\n")}
			},
			server: &mockServer{},
		},
		{
			name: "server failure",
			args: func(t *testing.T) []string {
				return []string{"--config", writeConfig(t, valid)}
			},
			server: &mockServer{err: errors.New("address in use")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			startCmd, err := Cmd(tt.server)
			require.NoError(t, err)
			startCmd.SetArgs(tt.args(t))
			startCmd.SilenceUsage = true
			startCmd.SilenceErrors = true
			assert.Error(t, startCmd.Execute())
		})
	}
}
