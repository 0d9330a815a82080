package verificationmethod

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/model"
)

type fixture struct {
	rsaKey   *rsa.PrivateKey
	secpSign *crypto.Secp256k1Signature2019
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemKey, err := crypto.EncodeRSAPublicKeyPEM(&rsaKey.PublicKey)
	require.NoError(t, err)
	jwk, err := jose.JSONWebKey{Key: &rsaKey.PublicKey}.MarshalJSON()
	require.NoError(t, err)
	jwkValue, err := jsonmap.ParseValue(jwk)
	require.NoError(t, err)

	ecKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	secp, err := crypto.NewSecp256k1Signature2019(ethcrypto.FromECDSA(ecKey))
	require.NoError(t, err)
	point := ethcrypto.FromECDSAPub(&ecKey.PublicKey)
	ecJWK := jsonmap.New(
		jsonmap.Field("kty", jsonmap.String("EC")),
		jsonmap.Field("crv", jsonmap.String("secp256k1")),
		jsonmap.Field("x", jsonmap.String(base64.RawURLEncoding.EncodeToString(point[1:33]))),
		jsonmap.Field("y", jsonmap.String(base64.RawURLEncoding.EncodeToString(point[33:]))),
	)

	key := func(id, typ, field string, material jsonmap.Value) jsonmap.Value {
		return jsonmap.Object(jsonmap.New(
			jsonmap.Field(model.FieldID, jsonmap.String(id)),
			jsonmap.Field(model.FieldType, jsonmap.String(typ)),
			jsonmap.Field(model.FieldController, jsonmap.String("did:smartb:1")),
			jsonmap.Field(field, material),
		))
	}

	doc := jsonmap.New(
		jsonmap.Field(model.FieldContext, jsonmap.String(model.ContextDIDV1)),
		jsonmap.Field(model.FieldID, jsonmap.String("did:smartb:1")),
		jsonmap.Field(model.FieldPublicKey, jsonmap.List(
			key("did:smartb:1#pem", model.KeyTypeRsaVerification2018, model.FieldPublicKeyPem, jsonmap.String(pemKey)),
			key("#jwk", model.KeyTypeJSONWebKey2020, model.FieldPublicKeyJwk, jwkValue),
			key("did:smartb:1#hex", model.KeyTypeEcdsaSecp256k1Verification, model.FieldPublicKeyHex, jsonmap.String(secp.PublicKeyHex())),
			key("did:smartb:1#ec-jwk", model.KeyTypeJSONWebKey2020, model.FieldPublicKeyJwk, jsonmap.Object(ecJWK)),
		)),
		jsonmap.Field(model.FieldAuthentication, jsonmap.List(
			jsonmap.String("did:smartb:1#pem"),
			key("did:smartb:1#auth", model.KeyTypeRsaVerification2018, model.FieldPublicKeyPem, jsonmap.String(pemKey)),
		)),
	)

	resolver, err := NewResolver(doc)
	require.NoError(t, err)
	return &fixture{rsaKey: rsaKey, secpSign: secp, resolver: resolver}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	rsaSigner, err := crypto.NewRSASignature2018(f.rsaKey)
	require.NoError(t, err)

	tests := []struct {
		method string
		signer crypto.SignatureProvider
	}{
		{"did:smartb:1#pem", rsaSigner},
		{"did:smartb:1#jwk", rsaSigner},
		{"did:smartb:1#auth", rsaSigner},
		{"did:smartb:1#hex", f.secpSign},
		{"did:smartb:1#ec-jwk", f.secpSign},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			verifier, err := f.resolver.Resolve(tt.method, tt.signer.Algorithm())
			require.NoError(t, err)

			payload := []byte("payload")
			sig, err := tt.signer.Sign(payload)
			require.NoError(t, err)
			ok, err := verifier.Verify(payload, sig)
			require.NoError(t, err)
			assert.True(t, ok)

			_, err = verifier.Sign(payload)
			assert.True(t, errs.IsKind(err, errs.KindInvalidKey))
		})
	}
}

func TestResolveErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name      string
		method    string
		algorithm string
		kind      errs.Kind
	}{
		{"no fragment", "did:smartb:1", crypto.AlgorithmRsaSignature2018, ""},
		{"not a DID", "https://example.com#key", crypto.AlgorithmRsaSignature2018, ""},
		{"unknown DID", "did:smartb:2#pem", crypto.AlgorithmRsaSignature2018, ""},
		{"unknown key", "did:smartb:1#nope", crypto.AlgorithmRsaSignature2018, ""},
		{"unsupported algorithm", "did:smartb:1#pem", "Ed25519Signature2018", errs.KindVerification},
		{"no usable material", "did:smartb:1#hex", crypto.AlgorithmRsaSignature2018, errs.KindInvalidKey},
		{"rsa jwk for secp", "did:smartb:1#jwk", crypto.AlgorithmEcdsaSecp256k1Signature2019, errs.KindInvalidKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.resolver.Resolve(tt.method, tt.algorithm)
			require.Error(t, err)
			if tt.kind != "" {
				assert.True(t, errs.IsKind(err, tt.kind), err.Error())
			}
		})
	}
}

func TestAddRequiresID(t *testing.T) {
	r, err := NewResolver()
	require.NoError(t, err)
	err = r.Add(jsonmap.New())
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindTypeMismatch))

	_, err = NewResolver(jsonmap.New())
	assert.Error(t, err)
}

func TestResolveToDocReturnsCopy(t *testing.T) {
	f := newFixture(t)
	doc, err := f.resolver.ResolveToDoc("did:smartb:1")
	require.NoError(t, err)
	doc.Remove(model.FieldPublicKey)

	_, err = f.resolver.PublicKey("did:smartb:1#pem")
	assert.NoError(t, err)
}

func TestRSAFromJWKRejectsECKeys(t *testing.T) {
	ecKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	raw, err := json.Marshal(map[string]string{
		"kty": "EC", "crv": "secp256k1",
		"x": base64.RawURLEncoding.EncodeToString(ethcrypto.FromECDSAPub(&ecKey.PublicKey)[1:33]),
		"y": hex.EncodeToString([]byte{1}),
	})
	require.NoError(t, err)
	v, err := jsonmap.ParseValue(raw)
	require.NoError(t, err)

	_, err = rsaFromJWK(v)
	assert.True(t, errs.IsKind(err, errs.KindInvalidKey))

	_, err = secp256k1FromJWK(v)
	assert.True(t, errs.IsKind(err, errs.KindInvalidKey))
}
