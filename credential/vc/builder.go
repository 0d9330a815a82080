package vc

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/model"
)

// Subject is a credential subject: an optional id plus claims.
type Subject struct {
	ID           string
	CustomFields map[string]interface{}
}

func (s Subject) document() (*jsonmap.Document, error) {
	doc, err := jsonmap.FromMap(s.CustomFields)
	if err != nil {
		return nil, err
	}
	if s.ID != "" {
		doc.Set(model.FieldID, jsonmap.String(s.ID))
	}
	return doc, nil
}

// Builder assembles a credential. Every With method returns a new builder.
type Builder struct {
	doc *jsonmap.Document
	err error
}

// NewBuilder returns an empty builder.
func NewBuilder() Builder {
	return Builder{doc: jsonmap.New()}
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

// WithContext sets @context. Context IRIs and inline context objects are accepted.
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

// WithTypes sets type to VerifiableCredential followed by types.
func (b Builder) WithTypes(types ...string) Builder {
	all := []string{model.TypeVerifiableCredential}
	for _, t := range types {
		if t != model.TypeVerifiableCredential {
			all = append(all, t)
		}
	}
	return b.with(model.FieldType, jsonmap.Strings(all...))
}

func (b Builder) WithIssuer(issuer string) Builder {
	return b.with(model.FieldIssuer, jsonmap.String(issuer))
}

// WithIssuanceDate stores date as written. It must parse as a timestamp.
func (b Builder) WithIssuanceDate(date string) Builder {
	if _, err := jsonmap.ParseTime(date); err != nil {
		return b.fail(errs.Wrap(errs.KindTypeMismatch, err, "invalid issuance date").WithField(model.FieldIssuanceDate))
	}
	return b.with(model.FieldIssuanceDate, jsonmap.String(date))
}

func (b Builder) WithIssuanceTime(t time.Time) Builder {
	return b.with(model.FieldIssuanceDate, jsonmap.Timestamp(t))
}

func (b Builder) WithExpirationDate(t time.Time) Builder {
	return b.with(model.FieldExpirationDate, jsonmap.Timestamp(t))
}

// WithCredentialSubject sets the claims of a single subject.
func (b Builder) WithCredentialSubject(claims *jsonmap.Document) Builder {
	return b.with(model.FieldCredentialSubject, jsonmap.Object(claims.Clone()))
}

// WithSubjects sets one or more subjects built from Go values.
func (b Builder) WithSubjects(subjects ...Subject) Builder {
	values := make([]jsonmap.Value, 0, len(subjects))
	for _, s := range subjects {
		doc, err := s.document()
		if err != nil {
			return b.fail(err)
		}
		values = append(values, jsonmap.Object(doc))
	}
	if len(values) == 1 {
		return b.with(model.FieldCredentialSubject, values[0])
	}
	return b.with(model.FieldCredentialSubject, jsonmap.List(values...))
}

// With sets an arbitrary field.
func (b Builder) With(key string, v jsonmap.Value) Builder {
	return b.with(key, v)
}

// Err reports the first invalid value given to the builder.
func (b Builder) Err() error { return b.err }

// Document returns a copy of the assembled document.
func (b Builder) Document() *jsonmap.Document {
	return b.doc.Clone()
}

// FromCredential returns a builder holding c without its proof, so that c
// can be signed again.
func FromCredential(c *Credential) Builder {
	if c == nil {
		return Builder{doc: jsonmap.New(), err: errs.New(errs.KindTypeMismatch, "credential is missing")}
	}
	return Builder{doc: c.doc.Without(model.FieldProof)}
}

// WithProof returns the credential with proof embedded.
func (b Builder) WithProof(proof *ldproof.Proof) (*Credential, error) {
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

// Sign signs the credential assembled by b.
func Sign(b Builder, proofBuilder ldproof.Builder, provider crypto.SignatureProvider, opts ...ldsign.Opt) (*Credential, error) {
	if b.err != nil {
		return nil, errs.Wrap(errs.KindSigning, b.err, "failed to assemble credential")
	}
	if err := validate(b.doc.Without(model.FieldProof)); err != nil {
		return nil, errs.Wrap(errs.KindSigning, err, "failed to assemble credential")
	}
	signed, err := ldsign.Sign(b, proofBuilder, provider, opts...)
	if err != nil {
		return nil, err
	}
	return &Credential{doc: signed.Document()}, nil
}

// Verify checks the proof of c with provider.
func Verify(c *Credential, provider crypto.SignatureProvider, opts ...ldsign.Opt) (bool, error) {
	if c == nil {
		return false, errs.New(errs.KindVerification, "credential is missing")
	}
	return ldsign.Verify(c.doc, provider, opts...)
}

// VerifyWithRegistry checks the proof of c with the provider registered for its type.
func VerifyWithRegistry(c *Credential, registry ldsign.Registry, opts ...ldsign.Opt) (bool, error) {
	if c == nil {
		return false, errs.New(errs.KindVerification, "credential is missing")
	}
	return ldsign.VerifyWithRegistry(c.doc, registry, opts...)
}
