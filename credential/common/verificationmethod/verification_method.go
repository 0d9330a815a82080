// Package verificationmethod resolves the verification method named by a
// proof against DID documents held locally, and turns the public key entry
// it finds into a verifying signature provider.
package verificationmethod

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-jose/go-jose/v3"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/model"
)

// Resolver looks verification methods up in a set of DID documents.
type Resolver struct {
	mu        sync.RWMutex
	documents map[string]*jsonmap.Document
}

// NewResolver returns a resolver holding docs.
func NewResolver(docs ...*jsonmap.Document) (*Resolver, error) {
	r := &Resolver{documents: make(map[string]*jsonmap.Document, len(docs))}
	for _, doc := range docs {
		if err := r.Add(doc); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers doc under its id, replacing any earlier document.
func (r *Resolver) Add(doc *jsonmap.Document) error {
	id, err := doc.GetString(model.FieldID)
	if err != nil {
		return fmt.Errorf("failed to add DID document: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[id] = doc.Clone()
	return nil
}

// ResolveToDoc returns the DID document registered for did.
func (r *Resolver) ResolveToDoc(did string) (*jsonmap.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[did]
	if !ok {
		return nil, fmt.Errorf("DID '%s' is not known", did)
	}
	return doc.Clone(), nil
}

// GetDIDFromVerificationMethod extracts the DID from a verification method URL.
func GetDIDFromVerificationMethod(verificationMethod string) (string, error) {
	if verificationMethod == "" {
		return "", fmt.Errorf("verification method is empty")
	}
	didPart, _, found := strings.Cut(verificationMethod, "#")
	if !found || didPart == "" {
		return "", fmt.Errorf("invalid verification method URL, could not extract DID: %s", verificationMethod)
	}
	if !strings.HasPrefix(didPart, "did:") {
		return "", fmt.Errorf("extracted DID '%s' is invalid, must start with 'did:'", didPart)
	}
	return didPart, nil
}

// PublicKey returns the public key entry with the given id. Entries are
// searched in publicKey, then among inline authentication keys; ids may be
// written relative to the document ("#key-1").
func (r *Resolver) PublicKey(verificationMethod string) (*jsonmap.Document, error) {
	did, err := GetDIDFromVerificationMethod(verificationMethod)
	if err != nil {
		return nil, err
	}
	doc, err := r.ResolveToDoc(did)
	if err != nil {
		return nil, err
	}

	fragment := strings.TrimPrefix(verificationMethod, did)
	for _, field := range []string{model.FieldPublicKey, model.FieldAuthentication} {
		entries, err := doc.GetList(field)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			key, err := entry.AsDocument()
			if err != nil {
				continue
			}
			if id, _ := key.GetString(model.FieldID); id == verificationMethod || id == fragment {
				return key, nil
			}
		}
	}
	return nil, fmt.Errorf("verification method '%s' not found in DID document", verificationMethod)
}

// Resolve returns a verify-only provider for algorithm built from the key
// verificationMethod points to.
func (r *Resolver) Resolve(verificationMethod, algorithm string) (crypto.SignatureProvider, error) {
	key, err := r.PublicKey(verificationMethod)
	if err != nil {
		return nil, err
	}
	return ProviderFor(key, algorithm)
}

// ProviderFor builds a verify-only provider from a public key entry carrying
// publicKeyPem, publicKeyJwk or publicKeyHex.
func ProviderFor(key *jsonmap.Document, algorithm string) (crypto.SignatureProvider, error) {
	switch algorithm {
	case crypto.AlgorithmRsaSignature2018:
		if pemKey, err := key.GetString(model.FieldPublicKeyPem); err == nil {
			return crypto.NewRSAVerifier2018FromPEM([]byte(pemKey))
		}
		if jwk, ok := key.Get(model.FieldPublicKeyJwk); ok {
			pub, err := rsaFromJWK(jwk)
			if err != nil {
				return nil, err
			}
			return crypto.NewRSAVerifier2018(pub)
		}
	case crypto.AlgorithmEcdsaSecp256k1Signature2019:
		if hexKey, err := key.GetString(model.FieldPublicKeyHex); err == nil {
			return crypto.NewSecp256k1Verifier2019FromHex(hexKey)
		}
		if jwk, ok := key.Get(model.FieldPublicKeyJwk); ok {
			pub, err := secp256k1FromJWK(jwk)
			if err != nil {
				return nil, err
			}
			return crypto.NewSecp256k1Verifier2019(pub)
		}
	default:
		return nil, errs.New(errs.KindVerification, "unsupported proof type %q", algorithm).WithAlgorithm(algorithm)
	}
	return nil, errs.New(errs.KindInvalidKey, "public key carries no material usable by %s", algorithm).WithAlgorithm(algorithm)
}

func rsaFromJWK(v jsonmap.Value) (*rsa.PublicKey, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, err, "malformed JWK").WithField(model.FieldPublicKeyJwk)
	}
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, err, "malformed JWK").WithField(model.FieldPublicKeyJwk)
	}
	pub, ok := jwk.Key.(*rsa.PublicKey)
	if !ok {
		return nil, errs.New(errs.KindInvalidKey, "JWK holds %T, not an RSA public key", jwk.Key).WithField(model.FieldPublicKeyJwk)
	}
	return pub, nil
}

type ecJWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// secp256k1FromJWK returns the uncompressed point of an EC JWK on secp256k1,
// a curve go-jose does not parse.
func secp256k1FromJWK(v jsonmap.Value) ([]byte, error) {
	doc, err := v.AsDocument()
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, err, "malformed JWK").WithField(model.FieldPublicKeyJwk)
	}
	var jwk ecJWK
	if err := doc.DecodeInto(&jwk); err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, err, "malformed JWK").WithField(model.FieldPublicKeyJwk)
	}
	if jwk.Kty != "EC" || jwk.Crv != "secp256k1" {
		return nil, errs.New(errs.KindInvalidKey, "JWK %s/%s is not a secp256k1 key", jwk.Kty, jwk.Crv).WithField(model.FieldPublicKeyJwk)
	}
	x, errX := base64.RawURLEncoding.DecodeString(jwk.X)
	y, errY := base64.RawURLEncoding.DecodeString(jwk.Y)
	if errX != nil || errY != nil || len(x) != 32 || len(y) != 32 {
		return nil, errs.New(errs.KindInvalidKey, "JWK coordinates are not 32-byte base64url values").WithField(model.FieldPublicKeyJwk)
	}
	return append(append([]byte{0x04}, x...), y...), nil
}
