package processor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/model"
)

const sampleCredential = `{
	"@context": ["https://www.w3.org/2018/credentials/v1"],
	"id": "http://example.edu/credentials/1872",
	"type": ["VerifiableCredential"],
	"issuer": "did:smartb:issuer",
	"issuanceDate": "2010-01-01T19:23:24Z",
	"credentialSubject": {"name": "smartb", "age": 3}
}`

const reorderedCredential = `{
	"credentialSubject": {"age": 3, "name": "smartb"},
	"issuanceDate": "2010-01-01T19:23:24Z",
	"issuer": "did:smartb:issuer",
	"type": "VerifiableCredential",
	"id": "http://example.edu/credentials/1872",
	"@context": "https://www.w3.org/2018/credentials/v1"
}`

func parse(t *testing.T, raw string) *jsonmap.Document {
	t.Helper()
	doc, err := jsonmap.Parse([]byte(raw))
	require.NoError(t, err)
	return doc
}

func canonical(t *testing.T, p *Processor, doc *jsonmap.Document) string {
	t.Helper()
	c, err := p.CanonicalizeDocument(doc)
	require.NoError(t, err)
	return c
}

func TestCanonicalizeDocument(t *testing.T) {
	p := New()
	c := canonical(t, p, parse(t, sampleCredential))

	assert.Contains(t, c, `<http://example.edu/credentials/1872> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <https://www.w3.org/2018/credentials#VerifiableCredential> .`)
	assert.Contains(t, c, `<http://example.edu/credentials/1872> <https://www.w3.org/2018/credentials#issuer> <did:smartb:issuer> .`)
	assert.Contains(t, c, `<http://example.edu/credentials/1872> <https://www.w3.org/2018/credentials#issuanceDate> "2010-01-01T19:23:24Z"^^<http://www.w3.org/2001/XMLSchema#dateTime> .`)
	assert.Contains(t, c, `<urn:iris:term:name> "smartb" .`)
	assert.Contains(t, c, `<urn:iris:term:age> "3"^^<http://www.w3.org/2001/XMLSchema#integer> .`)
	assert.Contains(t, c, `_:c14n0`)
}

func TestExpand(t *testing.T) {
	expanded, err := New().Expand(parse(t, sampleCredential))
	require.NoError(t, err)
	require.Len(t, expanded, 1)

	node, ok := expanded[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "http://example.edu/credentials/1872", node["@id"])
	assert.Equal(t, []interface{}{"https://www.w3.org/2018/credentials#VerifiableCredential"}, node["@type"])
}

func TestCanonicalizeIsOrderIndependent(t *testing.T) {
	p := New()
	assert.Equal(t,
		canonical(t, p, parse(t, sampleCredential)),
		canonical(t, p, parse(t, reorderedCredential)))
}

func TestCanonicalizeEquivalentContexts(t *testing.T) {
	p := New()
	base := parse(t, sampleCredential)
	want := canonical(t, p, base)

	contexts := []jsonmap.Value{
		jsonmap.String(model.ContextCredentialsV1),
		jsonmap.Strings(model.ContextCredentialsV1, model.ContextCredentialsV1),
		jsonmap.List(jsonmap.Strings(model.ContextCredentialsV1), jsonmap.String(model.ContextCredentialsV1)),
	}
	for _, ctx := range contexts {
		doc := base.Clone()
		doc.Set(model.FieldContext, ctx)
		assert.Equal(t, want, canonical(t, p, doc))
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	p := New()
	c := canonical(t, p, parse(t, sampleCredential))

	again, err := p.Renormalize(c)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestCanonicalizeExcludesProof(t *testing.T) {
	p := New()
	doc := parse(t, sampleCredential)
	want := canonical(t, p, doc)

	doc.Set(model.FieldProof, jsonmap.Object(jsonmap.New(
		jsonmap.Field(model.FieldType, jsonmap.String("RsaSignature2018")),
		jsonmap.Field(model.FieldJWS, jsonmap.String("abc..def")),
	)))
	assert.Equal(t, want, canonical(t, p, doc))
}

func TestCanonicalizeDetectsTampering(t *testing.T) {
	p := New()
	doc := parse(t, sampleCredential)
	want := canonical(t, p, doc)

	subject, err := doc.GetDocument(model.FieldCredentialSubject)
	require.NoError(t, err)
	subject.Set("name", jsonmap.String("smartc"))

	assert.NotEqual(t, want, canonical(t, p, doc))
}

func TestTimestampAndStringCanonicalizeAlike(t *testing.T) {
	p := New()
	asString := parse(t, sampleCredential)
	asTime := asString.Clone()
	asTime.Set(model.FieldIssuanceDate, jsonmap.Timestamp(time.Date(2010, 1, 1, 19, 23, 24, 0, time.UTC)))

	assert.Equal(t, canonical(t, p, asString), canonical(t, p, asTime))
}

func TestSetsAndLists(t *testing.T) {
	p := New()
	chain := jsonmap.Object(jsonmap.New(
		jsonmap.Field("chain", jsonmap.Object(jsonmap.New(
			jsonmap.Field("@id", jsonmap.String("https://smartb.city/ns#chain")),
			jsonmap.Field("@type", jsonmap.String("@id")),
			jsonmap.Field("@container", jsonmap.String("@list")),
		))),
	))
	doc := func(auth, keys, links []string) *jsonmap.Document {
		return jsonmap.New(
			jsonmap.Field(model.FieldContext, jsonmap.List(jsonmap.String(model.ContextDIDV1), chain)),
			jsonmap.Field(model.FieldID, jsonmap.String("did:smartb:1")),
			jsonmap.Field(model.FieldPublicKey, jsonmap.Strings(keys...)),
			jsonmap.Field(model.FieldAuthentication, jsonmap.Strings(auth...)),
			jsonmap.Field("chain", jsonmap.Strings(links...)),
		)
	}
	a, b := "did:smartb:1#a", "did:smartb:1#b"

	base := canonical(t, p, doc([]string{a, b}, []string{a, b}, []string{a, b}))
	assert.Equal(t, base, canonical(t, p, doc([]string{b, a}, []string{b, a}, []string{a, b})))
	assert.Contains(t, base, `<did:smartb:1> <https://w3id.org/security#authenticationMethod> <did:smartb:1#a> .`)

	swapped := canonical(t, p, doc([]string{a, b}, []string{a, b}, []string{b, a}))
	assert.NotEqual(t, base, swapped)
	assert.Contains(t, base, "<http://www.w3.org/1999/02/22-rdf-syntax-ns#first> <did:smartb:1#a>")
}

func TestCanonicalizeWithProof(t *testing.T) {
	p := New()
	doc := parse(t, sampleCredential)
	options := jsonmap.New(
		jsonmap.Field(model.FieldType, jsonmap.String("EcdsaSecp256k1Signature2019")),
		jsonmap.Field(model.FieldCreated, jsonmap.String("2020-05-25T11:37:24.293Z")),
		jsonmap.Field(model.FieldProofPurpose, jsonmap.String(model.PurposeAssertionMethod)),
		jsonmap.Field(model.FieldVerificationMethod, jsonmap.String("did:smartb:issuer#key-1")),
	)

	unsigned, err := p.CanonicalizeWithProof(doc, options)
	require.NoError(t, err)
	assert.Contains(t, unsigned, `<https://w3id.org/security#proofPurpose> <https://w3id.org/security#assertionMethod> .`)
	assert.Contains(t, unsigned, `<https://w3id.org/security#verificationMethod> <did:smartb:issuer#key-1> .`)
	assert.Contains(t, unsigned, `<http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <https://w3id.org/security#EcdsaSecp256k1Signature2019> .`)
	assert.Contains(t, unsigned, `<http://purl.org/dc/terms/created> "2020-05-25T11:37:24.293Z"^^<http://www.w3.org/2001/XMLSchema#dateTime> .`)
	docQuads, err := p.CanonicalizeDocument(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(unsigned, docQuads))

	signed := options.Clone()
	signed.Set(model.FieldJWS, jsonmap.String("header..signature"))
	withSignature, err := p.CanonicalizeWithProof(doc, signed)
	require.NoError(t, err)
	assert.Equal(t, unsigned, withSignature)

	other := options.Clone()
	other.Set(model.FieldDomain, jsonmap.String("smartb.city"))
	withDomain, err := p.CanonicalizeWithProof(doc, other)
	require.NoError(t, err)
	assert.NotEqual(t, unsigned, withDomain)
}

func TestCanonicalizationErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		opts []Opt
	}{
		{
			name: "unknown context",
			raw:  `{"@context": "https://example.org/unknown", "id": "urn:1"}`,
		},
		{
			name: "malformed context",
			raw:  `{"@context": 12, "id": "urn:1"}`,
		},
		{
			name: "ambiguous keys",
			raw:  `{"@context": "https://www.w3.org/2018/credentials/v1", "name": "a", "urn:iris:term:name": "b"}`,
		},
		{
			name: "protected term redefined",
			raw:  `{"@context": ["https://www.w3.org/2018/credentials/v1", {"proof": "https://example.org/proof"}], "id": "urn:1"}`,
		},
		{
			name: "security context after credentials context",
			raw:  `{"@context": ["https://www.w3.org/2018/credentials/v1", "https://w3id.org/security/v2"], "id": "urn:1"}`,
		},
		{
			name: "invalid vocabulary mapping",
			raw:  `{"@context": {"@vocab": 5}, "id": "urn:1"}`,
		},
		{
			name: "undefined term without default vocabulary",
			raw:  sampleCredential,
			opts: []Opt{WithDefaultVocab("")},
		},
		{
			name: "undefined term in strict mode",
			raw:  sampleCredential,
			opts: []Opt{WithStrictTerms()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...).CanonicalizeDocument(parse(t, tt.raw))
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindCanonicalization), err.Error())
		})
	}
}

func TestInlineContextAndRelativeIdentifiers(t *testing.T) {
	p := New()
	doc := parse(t, `{
		"@context": {"@vocab": "https://example.org/vocab#", "ex": "https://example.org/ns#"},
		"id": "1",
		"name": "smartb",
		"ex:role": "issuer"
	}`)

	c := canonical(t, p, doc)
	assert.Contains(t, c, `<https://iris.invalid/1> <https://example.org/vocab#name> "smartb" .`)
	assert.Contains(t, c, `<https://iris.invalid/1> <https://example.org/ns#role> "issuer" .`)

	c = canonical(t, New(WithBaseIRI("https://smartb.city/")), doc)
	assert.Contains(t, c, `<https://smartb.city/1> <https://example.org/vocab#name> "smartb" .`)
}

func TestCustomRegistryAndDefaultVocab(t *testing.T) {
	registry := NewContextRegistry()
	require.NoError(t, registry.RegisterDocument("https://smartb.city/context/v1", jsonmap.New(
		jsonmap.Field(KeywordContext, jsonmap.Object(jsonmap.New(
			jsonmap.Field("role", jsonmap.String("https://smartb.city/ns#role")),
		))),
	)))

	require.NoError(t, registry.Register("https://smartb.city/context/v2", []byte(`{"level": {"@id": "https://smartb.city/ns#level", "@type": "https://smartb.city/ns#Level"}}`)))
	assert.True(t, registry.Has("https://smartb.city/context/v2"))
	assert.False(t, registry.Has("https://smartb.city/context/v3"))
	assert.Error(t, registry.Register("https://smartb.city/context/v3", []byte(`[]`)))

	p := New(WithContextRegistry(registry), WithDefaultVocab("https://smartb.city/undefined#"))
	doc := parse(t, `{"@context": ["https://smartb.city/context/v1", "https://smartb.city/context/v2"], "id": "urn:1", "role": "a", "other": "b", "level": 3}`)

	c := canonical(t, p, doc)
	assert.Contains(t, c, `<urn:1> <https://smartb.city/ns#role> "a" .`)
	assert.Contains(t, c, `<urn:1> <https://smartb.city/undefined#other> "b" .`)
	assert.Contains(t, c, `<urn:1> <https://smartb.city/ns#level> "3"^^<https://smartb.city/ns#Level> .`)
}

func TestJSONLiteral(t *testing.T) {
	p := New()
	doc := func(jwk string) *jsonmap.Document {
		return parse(t, `{
			"@context": ["https://www.w3.org/ns/did/v1", {"publicKeyJwk": {"@id": "https://w3id.org/security#publicKeyJwk", "@type": "@json"}}],
			"id": "did:smartb:1",
			"publicKey": [{"id": "did:smartb:1#k", "type": "JsonWebKey2020", "controller": "did:smartb:1", "publicKeyJwk": `+jwk+`}]
		}`)
	}

	a := canonical(t, p, doc(`{"kty":"RSA","n":"abc","e":"AQAB"}`))
	b := canonical(t, p, doc(`{"e":"AQAB","n":"abc","kty":"RSA"}`))
	assert.Equal(t, a, b)
	assert.Contains(t, a, `^^<http://www.w3.org/1999/02/22-rdf-syntax-ns#JSON>`)
	assert.NotEqual(t, a, canonical(t, p, doc(`{"kty":"RSA","n":"abd","e":"AQAB"}`)))
}

func TestNumbersCanonicalizeExactly(t *testing.T) {
	p := New()
	withSerial := func(n string) string {
		return canonical(t, p, parse(t, `{"@context": "https://www.w3.org/2018/credentials/v1", "id": "urn:1", "serial": `+n+`}`))
	}

	assert.NotEqual(t, withSerial("9007199254740992"), withSerial("9007199254740993"))
	assert.Contains(t, withSerial("9007199254740993"), `"9007199254740993"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	assert.Contains(t, withSerial("12345678901234567891"), `"12345678901234567891"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	assert.Contains(t, withSerial("1.5"), `"1.5E0"^^<http://www.w3.org/2001/XMLSchema#double>`)
	assert.Contains(t, withSerial("2.0"), `"2"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	assert.Contains(t, withSerial("0.1"), `"0.1"^^<http://www.w3.org/2001/XMLSchema#decimal>`)
	assert.Contains(t, withSerial("1.00000000000000000001e3"), `"1.00000000000000000001e3"^^<http://www.w3.org/2001/XMLSchema#double>`)
	assert.NotEqual(t, withSerial("0.1"), withSerial("0.10000000000000001"))
}

func TestNormalizeContexts(t *testing.T) {
	names := func(v jsonmap.Value) []string {
		items, err := v.AsList()
		require.NoError(t, err)
		var out []string
		for _, item := range items {
			s, err := item.AsString()
			require.NoError(t, err)
			out = append(out, s)
		}
		return out
	}

	assert.Equal(t,
		[]string{model.ContextCredentialsV1, model.ContextDIDV1},
		names(NormalizeContexts(jsonmap.Strings(model.ContextCredentialsV1, model.ContextDIDV1, model.ContextCredentialsV1))))
	assert.Equal(t,
		[]string{model.ContextDIDV1, model.ContextSignature},
		names(NormalizeContexts(jsonmap.String(model.ContextDIDV1))))
	assert.Equal(t,
		[]string{model.ContextSecurityV1, model.ContextSignature},
		names(NormalizeContexts(jsonmap.Strings(model.ContextSecurityV1, model.ContextSignature))))

	doc := WithSignatureContext(jsonmap.New())
	items, err := doc.GetList(model.FieldContext)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
