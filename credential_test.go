package iris

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/model"
)

const unsigned = `{
	"@context": ["https://www.w3.org/2018/credentials/v1"],
	"id": "urn:uuid:9d7c7f6e-4a1f-4a7e-9d0a-3f2b1c0e5a11",
	"type": ["VerifiableCredential"],
	"issuer": "did:smartb:issuer",
	"issuanceDate": "2020-05-25T11:37:24.293",
	"credentialSubject": {"name": "smartb"}
}`

func providers(t *testing.T) (*crypto.RSASignature2018, *crypto.Secp256k1Signature2019) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rsaP, err := crypto.NewRSASignature2018(key)
	require.NoError(t, err)
	secp, err := crypto.NewSecp256k1Signature2019FromHex(strings.Repeat("0", 63) + "1")
	require.NoError(t, err)
	return rsaP, secp
}

func sign(t *testing.T, provider crypto.SignatureProvider) *jsonmap.Document {
	t.Helper()
	doc, err := jsonmap.Parse([]byte(unsigned))
	require.NoError(t, err)
	proof := ldproof.NewBuilder().
		WithProofPurpose(model.PurposeAssertionMethod).
		WithVerificationMethod("did:smartb:issuer#key-1")
	signed, err := ldsign.SignDocument(doc, proof, provider)
	require.NoError(t, err)
	return signed.Document()
}

func TestRegistry(t *testing.T) {
	rsaP, secp := providers(t)
	r, err := NewRegistry(rsaP)
	require.NoError(t, err)

	require.NoError(t, r.Register(secp))
	assert.Equal(t, []string{crypto.AlgorithmEcdsaSecp256k1Signature2019, crypto.AlgorithmRsaSignature2018}, r.Algorithms())

	p, ok := r.Provider(crypto.AlgorithmRsaSignature2018)
	require.True(t, ok)
	assert.Same(t, rsaP, p)

	require.NoError(t, r.Remove(crypto.AlgorithmRsaSignature2018))
	_, ok = r.Provider(crypto.AlgorithmRsaSignature2018)
	assert.False(t, ok)
	assert.ErrorIs(t, r.Remove(crypto.AlgorithmRsaSignature2018), ErrProviderNotFound)
}

func TestRegistryRejectsInvalidProviders(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)

	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, r.Register(nil))
	assert.Empty(t, r.Algorithms())
}

func TestRegistryVerify(t *testing.T) {
	rsaP, secp := providers(t)
	r, err := NewRegistry(rsaP, secp)
	require.NoError(t, err)

	for _, p := range []crypto.SignatureProvider{rsaP, secp} {
		t.Run(p.Algorithm(), func(t *testing.T) {
			doc := sign(t, p)
			ok, err := r.Verify(doc)
			require.NoError(t, err)
			assert.True(t, ok)

			doc.Set(model.FieldIssuer, jsonmap.String("did:smartb:other"))
			ok, err = r.Verify(doc)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	doc := sign(t, rsaP)
	require.NoError(t, r.Remove(crypto.AlgorithmRsaSignature2018))
	_, err = r.Verify(doc)
	assert.True(t, errs.IsKind(err, errs.KindVerification))
}

func TestRegistryConcurrentUse(t *testing.T) {
	rsaP, secp := providers(t)
	r, err := NewRegistry(rsaP)
	require.NoError(t, err)
	doc := sign(t, rsaP)

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			ok, err := r.Verify(doc)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("proof rejected")
			}
			return nil
		})
		g.Go(func() error {
			return r.Register(secp)
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, r.Algorithms(), 2)
}
