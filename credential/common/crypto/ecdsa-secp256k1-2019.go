package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/multiformats/go-multibase"

	"github.com/smartbcity/iris-go/credential/common/model"
)

const (
	secp256k1PrivateKeySize = 32
	secp256k1SignatureSize  = 64
)

// Secp256k1Signature2019 produces EcdsaSecp256k1Signature2019 proofs: a
// 64-byte [R || S] signature over SHA-256 of the payload, multibase
// base58btc encoded under "signatureValue".
type Secp256k1Signature2019 struct {
	private *ecdsa.PrivateKey
	public  []byte // compressed
}

// NewSecp256k1Signature2019 returns a provider for the 32-byte private scalar.
func NewSecp256k1Signature2019(privateKey []byte) (*Secp256k1Signature2019, error) {
	if len(privateKey) != secp256k1PrivateKeySize {
		return nil, keyError(AlgorithmEcdsaSecp256k1Signature2019, "private key must be %d bytes, got %d", secp256k1PrivateKeySize, len(privateKey))
	}
	priv, err := ethcrypto.ToECDSA(privateKey)
	if err != nil {
		return nil, wrapKeyError(AlgorithmEcdsaSecp256k1Signature2019, err, "invalid private key")
	}
	return &Secp256k1Signature2019{
		private: priv,
		public:  secp256k1.PrivKeyFromBytes(privateKey).PubKey().SerializeCompressed(),
	}, nil
}

// NewSecp256k1Signature2019FromHex parses a hex private key, with or without 0x.
func NewSecp256k1Signature2019FromHex(key string) (*Secp256k1Signature2019, error) {
	b, err := KeyToBytes(key)
	if err != nil {
		return nil, wrapKeyError(AlgorithmEcdsaSecp256k1Signature2019, err, "invalid private key encoding")
	}
	return NewSecp256k1Signature2019(b)
}

// NewSecp256k1Verifier2019 returns a verify-only provider for a compressed
// or uncompressed public key.
func NewSecp256k1Verifier2019(publicKey []byte) (*Secp256k1Signature2019, error) {
	pub, err := btcec.ParsePubKey(publicKey)
	if err != nil {
		return nil, wrapKeyError(AlgorithmEcdsaSecp256k1Signature2019, err, "invalid public key")
	}
	return &Secp256k1Signature2019{public: pub.SerializeCompressed()}, nil
}

// NewSecp256k1Verifier2019FromHex parses a hex public key, with or without 0x.
func NewSecp256k1Verifier2019FromHex(key string) (*Secp256k1Signature2019, error) {
	b, err := KeyToBytes(key)
	if err != nil {
		return nil, wrapKeyError(AlgorithmEcdsaSecp256k1Signature2019, err, "invalid public key encoding")
	}
	return NewSecp256k1Verifier2019(b)
}

func (p *Secp256k1Signature2019) Algorithm() string { return AlgorithmEcdsaSecp256k1Signature2019 }

func (p *Secp256k1Signature2019) ProofField() string { return model.FieldSignatureValue }

// PublicKeyHex returns the compressed public key, hex encoded.
func (p *Secp256k1Signature2019) PublicKeyHex() string {
	return hex.EncodeToString(p.public)
}

func (p *Secp256k1Signature2019) Sign(payload []byte) ([]byte, error) {
	if p.private == nil {
		return nil, keyError(AlgorithmEcdsaSecp256k1Signature2019, "provider has no private key")
	}
	digest := sha256.Sum256(payload)
	sig, err := ethcrypto.Sign(digest[:], p.private)
	if err != nil {
		return nil, signatureError(AlgorithmEcdsaSecp256k1Signature2019, err, "failed to sign payload")
	}
	// drop the recovery byte
	encoded, err := multibase.Encode(multibase.Base58BTC, sig[:secp256k1SignatureSize])
	if err != nil {
		return nil, signatureError(AlgorithmEcdsaSecp256k1Signature2019, err, "failed to encode signature")
	}
	return []byte(encoded), nil
}

func (p *Secp256k1Signature2019) Verify(payload, signature []byte) (bool, error) {
	enc, sig, err := multibase.Decode(string(signature))
	if err != nil {
		return false, encodingError(AlgorithmEcdsaSecp256k1Signature2019, "invalid multibase signature: %v", err)
	}
	if enc != multibase.Base58BTC {
		return false, encodingError(AlgorithmEcdsaSecp256k1Signature2019, "signature must be base58btc encoded")
	}
	switch len(sig) {
	case secp256k1SignatureSize:
	case secp256k1SignatureSize + 1:
		sig = sig[:secp256k1SignatureSize]
	default:
		return false, encodingError(AlgorithmEcdsaSecp256k1Signature2019, "invalid signature length %d", len(sig))
	}

	digest := sha256.Sum256(payload)
	return ethcrypto.VerifySignature(p.public, digest[:], sig), nil
}
