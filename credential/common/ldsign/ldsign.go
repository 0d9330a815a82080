// Package ldsign signs semantic documents with an embedded Linked Data Proof
// and verifies them again.
package ldsign

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/model"
	"github.com/smartbcity/iris-go/credential/common/processor"
)

// DocumentBuilder is implemented by the credential and DID builders.
type DocumentBuilder interface {
	Document() *jsonmap.Document
}

// Registry finds the provider able to verify a proof type.
type Registry interface {
	Provider(algorithm string) (crypto.SignatureProvider, bool)
}

// Resolver builds a verifying provider for the verification method a proof names.
type Resolver interface {
	Resolve(verificationMethod, algorithm string) (crypto.SignatureProvider, error)
}

// SignedDocument is a document together with the proof embedded in it.
type SignedDocument struct {
	doc   *jsonmap.Document
	proof *ldproof.Proof
}

// Document returns a copy of the signed document, proof included.
func (s *SignedDocument) Document() *jsonmap.Document { return s.doc.Clone() }

// Proof returns the embedded proof.
func (s *SignedDocument) Proof() *ldproof.Proof { return s.proof }

func (s *SignedDocument) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.doc)
}

type staticDocument struct{ doc *jsonmap.Document }

func (s staticDocument) Document() *jsonmap.Document { return s.doc.Clone() }

// Sign assembles the document of builder, appends the signature context,
// signs it and embeds the proof under "proof". Every failure is a
// SigningError wrapping its cause.
func Sign(builder DocumentBuilder, proofBuilder ldproof.Builder, provider crypto.SignatureProvider, opts ...Opt) (*SignedDocument, error) {
	o := newOptions(opts)
	if provider == nil {
		return nil, errs.New(errs.KindSigning, "signature provider is required")
	}
	fail := func(err error, stage string) error {
		o.logger.Debug("signing failed", zap.String("stage", stage), zap.String("algorithm", provider.Algorithm()), zap.Error(err))
		return errs.Wrap(errs.KindSigning, err, "failed to %s", stage).WithAlgorithm(provider.Algorithm())
	}

	if builder == nil {
		return nil, fail(errs.New(errs.KindTypeMismatch, "document is missing"), "assemble document")
	}
	doc := builder.Document()
	if doc == nil {
		return nil, fail(errs.New(errs.KindTypeMismatch, "document is missing"), "assemble document")
	}
	doc = processor.WithSignatureContext(doc.Without(model.FieldProof))

	canonicalized, err := proofBuilder.Canonicalize(o.processor, doc, provider)
	if err != nil {
		return nil, fail(err, "canonicalize document")
	}
	proof, err := canonicalized.Sign(provider)
	if err != nil {
		return nil, fail(err, "sign document")
	}
	doc.Set(model.FieldProof, jsonmap.Object(proof.Document()))

	o.logger.Debug("document signed",
		zap.String("algorithm", proof.Type()),
		zap.String("verificationMethod", proof.VerificationMethod()))
	return &SignedDocument{doc: doc, proof: proof}, nil
}

// SignDocument signs an already assembled document.
func SignDocument(doc *jsonmap.Document, proofBuilder ldproof.Builder, provider crypto.SignatureProvider, opts ...Opt) (*SignedDocument, error) {
	if doc == nil {
		return Sign(nil, proofBuilder, provider, opts...)
	}
	return Sign(staticDocument{doc: doc}, proofBuilder, provider, opts...)
}

// ProofOf extracts and parses the proof embedded in doc.
func ProofOf(doc *jsonmap.Document) (*ldproof.Proof, error) {
	if doc == nil {
		return nil, errs.New(errs.KindVerification, "document is missing")
	}
	v, ok := doc.Get(model.FieldProof)
	if !ok {
		return nil, errs.New(errs.KindVerification, "proof is missing").WithField(model.FieldProof)
	}
	proofDoc, err := v.AsDocument()
	if err != nil {
		return nil, errs.Wrap(errs.KindVerification, err, "malformed proof").WithField(model.FieldProof)
	}
	return ldproof.Parse(proofDoc)
}

// Verify checks the proof embedded in doc with provider. A signature that
// does not match yields false; a missing or malformed proof, a proof type
// the provider does not implement or a malformed signature is a
// VerificationError.
func Verify(doc *jsonmap.Document, provider crypto.SignatureProvider, opts ...Opt) (bool, error) {
	o := newOptions(opts)
	if provider == nil {
		return false, errs.New(errs.KindVerification, "signature provider is required")
	}
	proof, err := ProofOf(doc)
	if err != nil {
		return false, err
	}
	return verify(o, doc, proof, provider)
}

func verify(o *options, doc *jsonmap.Document, proof *ldproof.Proof, provider crypto.SignatureProvider) (bool, error) {
	if proof.Type() != provider.Algorithm() {
		return false, errs.New(errs.KindVerification, "unsupported proof type %q", proof.Type()).
			WithField(model.FieldType).WithAlgorithm(provider.Algorithm())
	}
	if proof.SignatureField() != provider.ProofField() {
		return false, errs.New(errs.KindVerification, "%s proofs carry %s", proof.Type(), provider.ProofField()).
			WithField(proof.SignatureField()).WithAlgorithm(proof.Type())
	}

	canonicalized, err := ldproof.FromProof(proof).Canonicalize(o.processor, doc.Without(model.FieldProof), provider)
	if err != nil {
		return false, err
	}
	ok, err := canonicalized.Verify(provider, []byte(proof.Signature()))
	if err != nil {
		return false, err
	}

	o.logger.Debug("proof checked",
		zap.String("algorithm", proof.Type()),
		zap.String("verificationMethod", proof.VerificationMethod()),
		zap.Bool("valid", ok))
	return ok, nil
}

// VerifyWithRegistry selects the provider by the proof type.
func VerifyWithRegistry(doc *jsonmap.Document, registry Registry, opts ...Opt) (bool, error) {
	o := newOptions(opts)
	proof, err := ProofOf(doc)
	if err != nil {
		return false, err
	}
	provider, ok := registry.Provider(proof.Type())
	if !ok {
		return false, errs.New(errs.KindVerification, "no provider registered for %q", proof.Type()).
			WithField(model.FieldType).WithAlgorithm(proof.Type())
	}
	return verify(o, doc, proof, provider)
}

// VerifyWithResolver builds the provider from the proof's verification method.
func VerifyWithResolver(doc *jsonmap.Document, resolver Resolver, opts ...Opt) (bool, error) {
	o := newOptions(opts)
	proof, err := ProofOf(doc)
	if err != nil {
		return false, err
	}
	provider, err := resolver.Resolve(proof.VerificationMethod(), proof.Type())
	if err != nil {
		return false, errs.Wrap(errs.KindVerification, err, "failed to resolve %s", proof.VerificationMethod()).
			WithField(model.FieldVerificationMethod).WithAlgorithm(proof.Type())
	}
	return verify(o, doc, proof, provider)
}
