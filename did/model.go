package did

import (
	"crypto/rsa"
	"encoding/json"
	"net/url"

	"github.com/go-jose/go-jose/v3"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/model"
)

// PublicKey is a verification key listed in a DID document. Exactly one of
// PublicKeyPem, PublicKeyJwk and PublicKeyHex carries the key material.
type PublicKey struct {
	ID           string
	Type         string
	Controller   string
	PublicKeyPem string
	PublicKeyJwk *jose.JSONWebKey
	PublicKeyHex string
}

// NewRSAPublicKey describes key as a PEM encoded RsaVerificationKey2018.
func NewRSAPublicKey(id, controller string, key *rsa.PublicKey) (PublicKey, error) {
	pemKey, err := crypto.EncodeRSAPublicKeyPEM(key)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{ID: id, Type: model.KeyTypeRsaVerification2018, Controller: controller, PublicKeyPem: pemKey}, nil
}

// NewJWKPublicKey describes key as a JsonWebKey2020.
func NewJWKPublicKey(id, controller string, key interface{}) PublicKey {
	return PublicKey{
		ID:           id,
		Type:         model.KeyTypeJSONWebKey2020,
		Controller:   controller,
		PublicKeyJwk: &jose.JSONWebKey{Key: key},
	}
}

// NewSecp256k1PublicKey describes a hex encoded secp256k1 public key.
func NewSecp256k1PublicKey(id, controller, publicKeyHex string) PublicKey {
	return PublicKey{ID: id, Type: model.KeyTypeEcdsaSecp256k1Verification, Controller: controller, PublicKeyHex: publicKeyHex}
}

func (k PublicKey) value() (jsonmap.Value, error) {
	if k.ID == "" {
		return jsonmap.Value{}, errs.New(errs.KindTypeMismatch, "public key has no id").WithField(model.FieldID)
	}
	doc := jsonmap.New(
		jsonmap.Field(model.FieldID, jsonmap.String(k.ID)),
		jsonmap.Field(model.FieldType, jsonmap.String(k.Type)),
	)
	if k.Controller != "" {
		doc.Set(model.FieldController, jsonmap.String(k.Controller))
	}

	switch {
	case k.PublicKeyPem != "":
		doc.Set(model.FieldPublicKeyPem, jsonmap.String(k.PublicKeyPem))
	case k.PublicKeyJwk != nil:
		raw, err := k.PublicKeyJwk.MarshalJSON()
		if err != nil {
			return jsonmap.Value{}, errs.Wrap(errs.KindInvalidKey, err, "failed to encode JWK %s", k.ID).WithField(model.FieldPublicKeyJwk)
		}
		jwk, err := jsonmap.ParseValue(raw)
		if err != nil {
			return jsonmap.Value{}, err
		}
		doc.Set(model.FieldPublicKeyJwk, jwk)
	case k.PublicKeyHex != "":
		doc.Set(model.FieldPublicKeyHex, jsonmap.String(k.PublicKeyHex))
	default:
		return jsonmap.Value{}, errs.New(errs.KindInvalidKey, "public key %s has no key material", k.ID)
	}
	return jsonmap.Object(doc), nil
}

func parsePublicKey(v jsonmap.Value) (PublicKey, error) {
	doc, err := v.AsDocument()
	if err != nil {
		return PublicKey{}, err
	}
	var k PublicKey
	if k.ID, err = doc.GetString(model.FieldID); err != nil {
		return PublicKey{}, err
	}
	k.Type, _ = doc.GetString(model.FieldType)
	k.Controller, _ = doc.GetString(model.FieldController)
	k.PublicKeyPem, _ = doc.GetString(model.FieldPublicKeyPem)
	k.PublicKeyHex, _ = doc.GetString(model.FieldPublicKeyHex)
	if jwk, ok := doc.Get(model.FieldPublicKeyJwk); ok {
		raw, err := json.Marshal(jwk)
		if err != nil {
			return PublicKey{}, err
		}
		k.PublicKeyJwk = &jose.JSONWebKey{}
		if err := k.PublicKeyJwk.UnmarshalJSON(raw); err != nil {
			return PublicKey{}, errs.Wrap(errs.KindInvalidKey, err, "malformed JWK in %s", k.ID).WithField(model.FieldPublicKeyJwk)
		}
	}
	return k, nil
}

// Authentication is either a reference to a public key by id or an inline key.
type Authentication struct {
	reference string
	key       *PublicKey
}

// AuthenticationReference refers to a key listed under publicKey.
func AuthenticationReference(keyID string) Authentication {
	return Authentication{reference: keyID}
}

// AuthenticationKey embeds key.
func AuthenticationKey(key PublicKey) Authentication {
	return Authentication{key: &key}
}

// IsReference reports whether the authentication only names a key.
func (a Authentication) IsReference() bool { return a.key == nil }

// PublicKey returns the inline key.
func (a Authentication) PublicKey() (PublicKey, bool) {
	if a.key == nil {
		return PublicKey{}, false
	}
	return *a.key, true
}

// PublicKeyID returns the id of the referenced or embedded key.
func (a Authentication) PublicKeyID() string {
	if a.key != nil {
		return a.key.ID
	}
	return a.reference
}

func (a Authentication) value() (jsonmap.Value, error) {
	if a.key != nil {
		return a.key.value()
	}
	if a.reference == "" {
		return jsonmap.Value{}, errs.New(errs.KindTypeMismatch, "authentication is empty").WithField(model.FieldAuthentication)
	}
	return jsonmap.String(a.reference), nil
}

func parseAuthentication(v jsonmap.Value) (Authentication, error) {
	if ref, err := v.AsString(); err == nil {
		return AuthenticationReference(ref), nil
	}
	key, err := parsePublicKey(v)
	if err != nil {
		return Authentication{}, err
	}
	return AuthenticationKey(key), nil
}

// Service is an endpoint advertised by the DID subject.
type Service struct {
	ID              string
	Type            string
	ServiceEndpoint string
}

func (s Service) value() (jsonmap.Value, error) {
	if s.ID == "" {
		return jsonmap.Value{}, errs.New(errs.KindTypeMismatch, "service has no id").WithField(model.FieldID)
	}
	if u, err := url.Parse(s.ServiceEndpoint); err != nil || u.Scheme == "" {
		return jsonmap.Value{}, errs.New(errs.KindTypeMismatch, "service %s endpoint %q is not an absolute URI", s.ID, s.ServiceEndpoint).
			WithField(model.FieldServiceEndpoint)
	}
	return jsonmap.Object(jsonmap.New(
		jsonmap.Field(model.FieldID, jsonmap.String(s.ID)),
		jsonmap.Field(model.FieldType, jsonmap.String(s.Type)),
		jsonmap.Field(model.FieldServiceEndpoint, jsonmap.String(s.ServiceEndpoint)),
	)), nil
}

func parseService(v jsonmap.Value) (Service, error) {
	doc, err := v.AsDocument()
	if err != nil {
		return Service{}, err
	}
	var s Service
	if s.ID, err = doc.GetString(model.FieldID); err != nil {
		return Service{}, err
	}
	s.Type, _ = doc.GetString(model.FieldType)
	if s.ServiceEndpoint, err = doc.GetString(model.FieldServiceEndpoint); err != nil {
		return Service{}, err
	}
	return s, nil
}
