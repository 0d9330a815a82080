package vp

import (
	"github.com/google/uuid"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/model"
	"github.com/smartbcity/iris-go/credential/vc"
)

// Builder assembles a presentation. Every With method returns a new builder.
type Builder struct {
	doc *jsonmap.Document
	err error
}

// NewBuilder returns a builder typed VerifiablePresentation.
func NewBuilder() Builder {
	return Builder{doc: jsonmap.New(
		jsonmap.Field(model.FieldType, jsonmap.Strings(model.TypeVerifiablePresentation)),
	)}
}

func (b Builder) with(key string, v jsonmap.Value) Builder {
	doc := b.doc.Clone()
	doc.Set(key, v)
	return Builder{doc: doc, err: b.err}
}

func (b Builder) fail(err error) Builder {
	if b.err != nil {
		return b
	}
	return Builder{doc: b.doc.Clone(), err: err}
}

// WithContextDefault sets @context to the credentials v1 context.
func (b Builder) WithContextDefault() Builder {
	return b.with(model.FieldContext, jsonmap.Strings(model.ContextCredentialsV1))
}

func (b Builder) WithContext(contexts ...jsonmap.Value) Builder {
	return b.with(model.FieldContext, jsonmap.List(contexts...))
}

func (b Builder) WithID(id string) Builder {
	return b.with(model.FieldID, jsonmap.String(id))
}

// WithGeneratedID sets a random urn:uuid id.
func (b Builder) WithGeneratedID() Builder {
	return b.WithID("urn:uuid:" + uuid.NewString())
}

// WithTypes sets type to VerifiablePresentation followed by types.
func (b Builder) WithTypes(types ...string) Builder {
	all := []string{model.TypeVerifiablePresentation}
	for _, t := range types {
		if t != model.TypeVerifiablePresentation {
			all = append(all, t)
		}
	}
	return b.with(model.FieldType, jsonmap.Strings(all...))
}

func (b Builder) WithHolder(holder string) Builder {
	return b.with(model.FieldHolder, jsonmap.String(holder))
}

// WithCredentials embeds creds, proofs included, in the given order.
func (b Builder) WithCredentials(creds ...*vc.Credential) Builder {
	values := make([]jsonmap.Value, 0, len(creds))
	for i, c := range creds {
		if c == nil {
			return b.fail(errs.New(errs.KindTypeMismatch, "credential %d is missing", i).WithField(model.FieldVerifiableCredential))
		}
		values = append(values, jsonmap.Object(c.Document()))
	}
	return b.with(model.FieldVerifiableCredential, jsonmap.List(values...))
}

// With sets an arbitrary field.
func (b Builder) With(key string, v jsonmap.Value) Builder {
	return b.with(key, v)
}

func (b Builder) Err() error { return b.err }

// Document returns a copy of the assembled document.
func (b Builder) Document() *jsonmap.Document {
	return b.doc.Clone()
}

// WithProof returns the presentation with proof embedded.
func (b Builder) WithProof(proof *ldproof.Proof) (*Presentation, error) {
	if b.err != nil {
		return nil, b.err
	}
	if proof == nil {
		return nil, errs.New(errs.KindTypeMismatch, "proof is missing").WithField(model.FieldProof)
	}
	doc := b.Document()
	doc.Set(model.FieldProof, jsonmap.Object(proof.Document()))
	return ParseDocument(doc)
}

// Sign signs the presentation assembled by b. Holders usually sign with the
// authentication purpose and the verifier's challenge and domain.
func Sign(b Builder, proofBuilder ldproof.Builder, provider crypto.SignatureProvider, opts ...ldsign.Opt) (*Presentation, error) {
	if b.err != nil {
		return nil, errs.Wrap(errs.KindSigning, b.err, "failed to assemble presentation")
	}
	if err := validate(b.doc.Without(model.FieldProof)); err != nil {
		return nil, errs.Wrap(errs.KindSigning, err, "failed to assemble presentation")
	}
	signed, err := ldsign.Sign(b, proofBuilder, provider, opts...)
	if err != nil {
		return nil, err
	}
	return &Presentation{doc: signed.Document()}, nil
}

// Verify checks the presentation proof of p with provider. Embedded
// credentials are checked by VerifyCredentials.
func Verify(p *Presentation, provider crypto.SignatureProvider, opts ...ldsign.Opt) (bool, error) {
	if p == nil {
		return false, errs.New(errs.KindVerification, "presentation is missing")
	}
	return ldsign.Verify(p.doc, provider, opts...)
}

// VerifyWithRegistry checks the presentation proof of p with the provider
// registered for its type.
func VerifyWithRegistry(p *Presentation, registry ldsign.Registry, opts ...ldsign.Opt) (bool, error) {
	if p == nil {
		return false, errs.New(errs.KindVerification, "presentation is missing")
	}
	return ldsign.VerifyWithRegistry(p.doc, registry, opts...)
}
