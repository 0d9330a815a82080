package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"

	"github.com/smartbcity/iris-go/credential/common/model"
)

const (
	jwsAlgRS256   = "RS256"
	minRSAKeySize = 1024
)

// RSASignature2018 produces RsaSignature2018 proofs: a detached RS256 JWS
// over the canonical payload, stored under "jws".
type RSASignature2018 struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	header  string
}

// NewRSASignature2018 returns a provider that signs and verifies with key.
func NewRSASignature2018(key *rsa.PrivateKey) (*RSASignature2018, error) {
	if key == nil {
		return nil, keyError(AlgorithmRsaSignature2018, "private key is nil")
	}
	if err := key.Validate(); err != nil {
		return nil, wrapKeyError(AlgorithmRsaSignature2018, err, "invalid private key")
	}
	p, err := NewRSAVerifier2018(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	p.private = key
	return p, nil
}

// NewRSAVerifier2018 returns a provider that only verifies.
func NewRSAVerifier2018(key *rsa.PublicKey) (*RSASignature2018, error) {
	if key == nil || key.N == nil {
		return nil, keyError(AlgorithmRsaSignature2018, "public key is nil")
	}
	if key.N.BitLen() < minRSAKeySize {
		return nil, keyError(AlgorithmRsaSignature2018, "key size %d is below %d bits", key.N.BitLen(), minRSAKeySize)
	}
	header, err := CreateDetachedJWSHeader(jwsAlgRS256)
	if err != nil {
		return nil, signatureError(AlgorithmRsaSignature2018, err, "failed to build jws header")
	}
	return &RSASignature2018{public: key, header: header}, nil
}

// NewRSASignature2018FromPEM parses a PKCS#1 or PKCS#8 private key.
func NewRSASignature2018FromPEM(data []byte) (*RSASignature2018, error) {
	key, err := ParseRSAPrivateKeyPEM(data)
	if err != nil {
		return nil, err
	}
	return NewRSASignature2018(key)
}

// NewRSAVerifier2018FromPEM parses a PKIX or PKCS#1 public key, or a certificate.
func NewRSAVerifier2018FromPEM(data []byte) (*RSASignature2018, error) {
	key, err := ParseRSAPublicKeyPEM(data)
	if err != nil {
		return nil, err
	}
	return NewRSAVerifier2018(key)
}

func (p *RSASignature2018) Algorithm() string { return AlgorithmRsaSignature2018 }

func (p *RSASignature2018) ProofField() string { return model.FieldJWS }

// PublicKey returns the verification key.
func (p *RSASignature2018) PublicKey() *rsa.PublicKey { return p.public }

// Sign returns header..signature.
func (p *RSASignature2018) Sign(payload []byte) ([]byte, error) {
	if p.private == nil {
		return nil, keyError(AlgorithmRsaSignature2018, "provider has no private key")
	}
	digest := sha256.Sum256(jwsSigningInput(p.header, payload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, p.private, stdcrypto.SHA256, digest[:])
	if err != nil {
		return nil, signatureError(AlgorithmRsaSignature2018, err, "failed to sign payload")
	}
	return []byte(detachedJWS(p.header, sig)), nil
}

// Verify checks a detached token against payload. The header bytes of the
// token are signed as received.
func (p *RSASignature2018) Verify(payload, signature []byte) (bool, error) {
	header, sig, err := parseDetachedJWS(string(signature), jwsAlgRS256)
	if err != nil {
		return false, encodingError(AlgorithmRsaSignature2018, "%v", err)
	}
	digest := sha256.Sum256(jwsSigningInput(header, payload))
	if err := rsa.VerifyPKCS1v15(p.public, stdcrypto.SHA256, digest[:], sig); err != nil {
		return false, nil
	}
	return true, nil
}
