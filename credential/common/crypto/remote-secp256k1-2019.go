package crypto

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/multiformats/go-multibase"

	"github.com/smartbcity/iris-go/credential/common/errs"
)

const (
	remoteSignerTimeout      = 10 * time.Second
	remoteSignerAPIKeyHeader = "x-api-key"
	recoverableSignatureSize = secp256k1SignatureSize + 1
)

// RemoteSecp256k1Signature2019 produces EcdsaSecp256k1Signature2019 proofs
// with a private key held by a remote signing API. The API receives the
// SHA-256 digest of the payload and answers with a 65-byte [R || S || V]
// signature. Signatures are checked against the configured public key
// before they are returned. Verification is local.
type RemoteSecp256k1Signature2019 struct {
	*Secp256k1Signature2019
	endpoint string
	apiKey   string
	client   *http.Client
}

// RemoteOpt configures a RemoteSecp256k1Signature2019.
type RemoteOpt func(*RemoteSecp256k1Signature2019)

// WithAPIKey sends key in the x-api-key header.
func WithAPIKey(key string) RemoteOpt {
	return func(r *RemoteSecp256k1Signature2019) {
		r.apiKey = key
	}
}

// WithHTTPClient replaces the default client, which times out after 10s.
func WithHTTPClient(client *http.Client) RemoteOpt {
	return func(r *RemoteSecp256k1Signature2019) {
		if client != nil {
			r.client = client
		}
	}
}

// NewRemoteSecp256k1Signature2019 returns a provider signing through
// endpoint for the hex encoded public key.
func NewRemoteSecp256k1Signature2019(endpoint, publicKeyHex string, opts ...RemoteOpt) (*RemoteSecp256k1Signature2019, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, keyError(AlgorithmEcdsaSecp256k1Signature2019, "remote signer endpoint is required")
	}
	verifier, err := NewSecp256k1Verifier2019FromHex(publicKeyHex)
	if err != nil {
		return nil, err
	}
	r := &RemoteSecp256k1Signature2019{
		Secp256k1Signature2019: verifier,
		endpoint:               endpoint,
		client:                 &http.Client{Timeout: remoteSignerTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type remoteSignRequest struct {
	PayloadHex string `json:"payload_hex"`
}

type remoteSignResponse struct {
	SignatureHex string `json:"signature_hex"`
}

func (r *RemoteSecp256k1Signature2019) Sign(payload []byte) ([]byte, error) {
	digest := sha256.Sum256(payload)
	sig, err := r.signDigest(context.Background(), digest[:])
	if err != nil {
		return nil, signatureError(AlgorithmEcdsaSecp256k1Signature2019, err, "remote signer failed")
	}
	if !ethcrypto.VerifySignature(r.public, digest[:], sig[:secp256k1SignatureSize]) {
		return nil, errs.New(errs.KindSignature, "remote signature does not match public key %s", r.PublicKeyHex()).
			WithAlgorithm(AlgorithmEcdsaSecp256k1Signature2019)
	}
	encoded, err := multibase.Encode(multibase.Base58BTC, sig[:secp256k1SignatureSize])
	if err != nil {
		return nil, signatureError(AlgorithmEcdsaSecp256k1Signature2019, err, "failed to encode signature")
	}
	return []byte(encoded), nil
}

func (r *RemoteSecp256k1Signature2019) signDigest(ctx context.Context, digest []byte) ([]byte, error) {
	body, err := json.Marshal(remoteSignRequest{PayloadHex: hex.EncodeToString(digest)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set(remoteSignerAPIKeyHeader, r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote signer http %d", resp.StatusCode)
	}

	var out remoteSignResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode remote signer response: %w", err)
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(out.SignatureHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != recoverableSignatureSize {
		return nil, fmt.Errorf("invalid signature length %d", len(sig))
	}
	return sig, nil
}
