// Package did builds, signs and verifies DID documents.
package did

import (
	"golang.org/x/sync/errgroup"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/model"
	"github.com/smartbcity/iris-go/credential/common/verificationmethod"
)

// Builder assembles a DID document. Every With method returns a new builder;
// the first invalid element is kept and reported by Err, Sign and WithProof.
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

func (b Builder) withList(key string, values []jsonmap.Value, err error) Builder {
	if err != nil {
		if b.err != nil {
			return b
		}
		return Builder{doc: b.doc.Clone(), err: errs.Wrap(errs.KindTypeMismatch, err, "invalid %s entry", key).WithField(key)}
	}
	return b.with(key, jsonmap.List(values...))
}

// mapOrdered serializes items concurrently; results keep the order of items.
func mapOrdered[T any](items []T, serialize func(T) (jsonmap.Value, error)) ([]jsonmap.Value, error) {
	out := make([]jsonmap.Value, len(items))
	var g errgroup.Group
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			v, err := serialize(item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// WithContextDefault sets @context to the DID v1 context.
func (b Builder) WithContextDefault() Builder {
	return b.with(model.FieldContext, jsonmap.Strings(model.ContextDIDV1))
}

// WithContext sets @context.
func (b Builder) WithContext(contexts ...jsonmap.Value) Builder {
	return b.with(model.FieldContext, jsonmap.List(contexts...))
}

func (b Builder) WithID(id string) Builder {
	return b.with(model.FieldID, jsonmap.String(id))
}

func (b Builder) WithPublicKeys(keys ...PublicKey) Builder {
	values, err := mapOrdered(keys, PublicKey.value)
	return b.withList(model.FieldPublicKey, values, err)
}

// WithPublicKey sets publicKey to the single key.
func (b Builder) WithPublicKey(key PublicKey) Builder {
	return b.WithPublicKeys(key)
}

func (b Builder) WithServices(services ...Service) Builder {
	values, err := mapOrdered(services, Service.value)
	return b.withList(model.FieldService, values, err)
}

// WithService sets service to the single service.
func (b Builder) WithService(service Service) Builder {
	return b.WithServices(service)
}

func (b Builder) WithAuthentications(authentications ...Authentication) Builder {
	values, err := mapOrdered(authentications, Authentication.value)
	return b.withList(model.FieldAuthentication, values, err)
}

// WithAuthentication sets authentication to the single entry.
func (b Builder) WithAuthentication(authentication Authentication) Builder {
	return b.WithAuthentications(authentication)
}

// With sets an arbitrary field.
func (b Builder) With(key string, v jsonmap.Value) Builder {
	return b.with(key, v)
}

// Err reports the first invalid element given to the builder.
func (b Builder) Err() error { return b.err }

// Document returns a copy of the assembled document.
func (b Builder) Document() *jsonmap.Document {
	return b.doc.Clone()
}

// Authentications returns the authentication entries set so far.
func (b Builder) Authentications() ([]Authentication, error) {
	return authenticationsOf(b.doc)
}

// WithProof returns the DID document with proof embedded.
func (b Builder) WithProof(proof *ldproof.Proof) (*Document, error) {
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

// Sign signs the DID document assembled by b.
func Sign(b Builder, proofBuilder ldproof.Builder, provider crypto.SignatureProvider, opts ...ldsign.Opt) (*Document, error) {
	if b.err != nil {
		return nil, errs.Wrap(errs.KindSigning, b.err, "failed to assemble DID document")
	}
	if _, err := ParseDocument(b.doc.Without(model.FieldProof)); err != nil {
		return nil, errs.Wrap(errs.KindSigning, err, "failed to assemble DID document")
	}
	signed, err := ldsign.Sign(b, proofBuilder, provider, opts...)
	if err != nil {
		return nil, err
	}
	return &Document{doc: signed.Document()}, nil
}

// Verify checks the proof of d with provider.
func Verify(d *Document, provider crypto.SignatureProvider, opts ...ldsign.Opt) (bool, error) {
	if d == nil {
		return false, errs.New(errs.KindVerification, "DID document is missing")
	}
	return ldsign.Verify(d.doc, provider, opts...)
}

// VerifySelf checks the proof of d against the key d itself lists under
// the proof's verification method.
func VerifySelf(d *Document, opts ...ldsign.Opt) (bool, error) {
	if d == nil {
		return false, errs.New(errs.KindVerification, "DID document is missing")
	}
	resolver, err := verificationmethod.NewResolver(d.doc)
	if err != nil {
		return false, errs.Wrap(errs.KindVerification, err, "invalid DID document")
	}
	return ldsign.VerifyWithResolver(d.doc, resolver, opts...)
}
