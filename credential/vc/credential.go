// Package vc builds, signs and verifies W3C Verifiable Credentials secured
// with an embedded Linked Data Proof.
package vc

import (
	"time"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/model"
)

// Credential is a read-only view over a credential document.
type Credential struct {
	doc *jsonmap.Document
}

// CredentialOpt configures credential parsing.
type CredentialOpt func(*credentialOptions)

type credentialOptions struct {
	verifier crypto.SignatureProvider
	signOpts []ldsign.Opt
}

// WithVerifyProof makes parsing fail unless the embedded proof verifies with provider.
func WithVerifyProof(provider crypto.SignatureProvider, opts ...ldsign.Opt) CredentialOpt {
	return func(c *credentialOptions) {
		c.verifier = provider
		c.signOpts = opts
	}
}

// Parse decodes a credential from JSON.
func Parse(raw []byte, opts ...CredentialOpt) (*Credential, error) {
	doc, err := jsonmap.Parse(raw)
	if err != nil {
		return nil, err
	}
	return ParseDocument(doc, opts...)
}

// ParseDocument checks the required fields of doc and wraps it.
func ParseDocument(doc *jsonmap.Document, opts ...CredentialOpt) (*Credential, error) {
	options := &credentialOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if err := validate(doc); err != nil {
		return nil, err
	}
	c := &Credential{doc: doc.Clone()}

	if options.verifier != nil {
		ok, err := Verify(c, options.verifier, options.signOpts...)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.New(errs.KindVerification, "invalid proof").WithAlgorithm(options.verifier.Algorithm())
		}
	}
	return c, nil
}

func validate(doc *jsonmap.Document) error {
	if doc == nil {
		return errs.New(errs.KindTypeMismatch, "credential is missing")
	}
	if _, err := doc.GetString(model.FieldID); err != nil {
		return err
	}
	if _, err := issuerOf(doc); err != nil {
		return err
	}
	if _, err := doc.GetTimestamp(model.FieldIssuanceDate); err != nil {
		return err
	}
	if _, err := doc.GetDocument(model.FieldCredentialSubject); err != nil {
		if _, listErr := doc.GetList(model.FieldCredentialSubject); listErr != nil {
			return err
		}
	}
	if doc.Has(model.FieldExpirationDate) {
		if _, err := doc.GetTimestamp(model.FieldExpirationDate); err != nil {
			return err
		}
	}
	return nil
}

// issuerOf accepts both an issuer IRI and an issuer object carrying an id.
func issuerOf(doc *jsonmap.Document) (string, error) {
	if issuer, err := doc.GetString(model.FieldIssuer); err == nil {
		return issuer, nil
	}
	obj, err := doc.GetDocument(model.FieldIssuer)
	if err != nil {
		return "", err
	}
	id, err := obj.GetString(model.FieldID)
	if err != nil {
		return "", errs.Wrap(errs.KindTypeMismatch, err, "issuer has no id").WithField(model.FieldIssuer)
	}
	return id, nil
}

// Document returns a copy of the credential document.
func (c *Credential) Document() *jsonmap.Document { return c.doc.Clone() }

func (c *Credential) ID() string {
	id, _ := c.doc.GetString(model.FieldID)
	return id
}

func (c *Credential) Issuer() string {
	issuer, _ := issuerOf(c.doc)
	return issuer
}

// Types returns the credential types, which may be absent.
func (c *Credential) Types() []string {
	v, ok := c.doc.Get(model.FieldType)
	if !ok {
		return nil
	}
	if s, err := v.AsString(); err == nil {
		return []string{s}
	}
	items, _ := v.AsList()
	types := make([]string, 0, len(items))
	for _, item := range items {
		if s, err := item.AsString(); err == nil {
			types = append(types, s)
		}
	}
	return types
}

func (c *Credential) IssuanceDate() time.Time {
	t, _ := c.doc.GetTimestamp(model.FieldIssuanceDate)
	return t
}

// ExpirationDate reports the expiration date when the credential has one.
func (c *Credential) ExpirationDate() (time.Time, bool) {
	t, err := c.doc.GetTimestamp(model.FieldExpirationDate)
	return t, err == nil
}

// CredentialSubject returns a copy of the first credential subject.
func (c *Credential) CredentialSubject() *jsonmap.Document {
	if subject, err := c.doc.GetDocument(model.FieldCredentialSubject); err == nil {
		return subject.Clone()
	}
	items, _ := c.doc.GetList(model.FieldCredentialSubject)
	for _, item := range items {
		if subject, err := item.AsDocument(); err == nil {
			return subject.Clone()
		}
	}
	return nil
}

// Get returns an arbitrary field, extension fields included.
func (c *Credential) Get(key string) (jsonmap.Value, bool) {
	v, ok := c.doc.Get(key)
	return v.Clone(), ok
}

// Proof parses the embedded proof.
func (c *Credential) Proof() (*ldproof.Proof, error) {
	return ldsign.ProofOf(c.doc)
}

func (c *Credential) MarshalJSON() ([]byte, error) {
	return c.doc.MarshalJSON()
}
