// Package vp builds, signs and verifies Verifiable Presentations: a holder's
// Linked Data Proof over a set of embedded credentials.
package vp

import (
	"golang.org/x/sync/errgroup"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/model"
	"github.com/smartbcity/iris-go/credential/vc"
)

// Presentation is a read-only view over a presentation document.
type Presentation struct {
	doc *jsonmap.Document
}

// PresentationOpt configures presentation parsing.
type PresentationOpt func(*presentationOptions)

type presentationOptions struct {
	verifier crypto.SignatureProvider
	registry ldsign.Registry
	signOpts []ldsign.Opt
}

// WithVerifyProof makes parsing fail unless the presentation proof verifies
// with provider.
func WithVerifyProof(provider crypto.SignatureProvider, opts ...ldsign.Opt) PresentationOpt {
	return func(p *presentationOptions) {
		p.verifier = provider
		p.signOpts = append(p.signOpts, opts...)
	}
}

// WithVCValidation makes parsing fail unless every embedded credential
// verifies with the provider registered for its proof type.
func WithVCValidation(registry ldsign.Registry, opts ...ldsign.Opt) PresentationOpt {
	return func(p *presentationOptions) {
		p.registry = registry
		p.signOpts = append(p.signOpts, opts...)
	}
}

// ParsePresentation decodes a presentation from JSON.
func ParsePresentation(raw []byte, opts ...PresentationOpt) (*Presentation, error) {
	if len(raw) == 0 {
		return nil, errs.New(errs.KindTypeMismatch, "presentation is empty")
	}
	doc, err := jsonmap.Parse(raw)
	if err != nil {
		return nil, err
	}
	return ParseDocument(doc, opts...)
}

// ParseDocument checks the structure of doc, including every embedded
// credential, and wraps it.
func ParseDocument(doc *jsonmap.Document, opts ...PresentationOpt) (*Presentation, error) {
	options := &presentationOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if err := validate(doc); err != nil {
		return nil, err
	}
	p := &Presentation{doc: doc.Clone()}

	if options.verifier != nil {
		ok, err := Verify(p, options.verifier, options.signOpts...)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.New(errs.KindVerification, "invalid proof").WithAlgorithm(options.verifier.Algorithm())
		}
	}
	if options.registry != nil {
		ok, err := VerifyCredentials(p, options.registry, options.signOpts...)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.New(errs.KindVerification, "invalid credential proof").WithField(model.FieldVerifiableCredential)
		}
	}
	return p, nil
}

func validate(doc *jsonmap.Document) error {
	if doc == nil {
		return errs.New(errs.KindTypeMismatch, "presentation is missing")
	}
	if !hasType(typesOf(doc), model.TypeVerifiablePresentation) {
		return errs.New(errs.KindTypeMismatch, "type must include %s", model.TypeVerifiablePresentation).WithField(model.FieldType)
	}
	if doc.Has(model.FieldHolder) {
		if _, err := doc.GetString(model.FieldHolder); err != nil {
			return err
		}
	}
	_, err := credentialsOf(doc)
	return err
}

func typesOf(doc *jsonmap.Document) []string {
	v, ok := doc.Get(model.FieldType)
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

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// credentialsOf accepts a single embedded credential or a list of them.
func credentialsOf(doc *jsonmap.Document) ([]*vc.Credential, error) {
	v, ok := doc.Get(model.FieldVerifiableCredential)
	if !ok {
		return nil, nil
	}
	items, err := v.AsList()
	if err != nil {
		items = []jsonmap.Value{v}
	}

	creds := make([]*vc.Credential, 0, len(items))
	for i, item := range items {
		credDoc, err := item.AsDocument()
		if err != nil {
			return nil, errs.Wrap(errs.KindTypeMismatch, err, "credential %d is not an object", i).WithField(model.FieldVerifiableCredential)
		}
		cred, err := vc.ParseDocument(credDoc)
		if err != nil {
			return nil, errs.Wrap(errs.KindTypeMismatch, err, "invalid credential %d", i).WithField(model.FieldVerifiableCredential)
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

func (p *Presentation) ID() string {
	id, _ := p.doc.GetString(model.FieldID)
	return id
}

func (p *Presentation) Holder() string {
	holder, _ := p.doc.GetString(model.FieldHolder)
	return holder
}

func (p *Presentation) Types() []string { return typesOf(p.doc) }

// Credentials returns the embedded credentials in declared order.
func (p *Presentation) Credentials() []*vc.Credential {
	creds, _ := credentialsOf(p.doc)
	return creds
}

// Proof parses the presentation proof.
func (p *Presentation) Proof() (*ldproof.Proof, error) {
	return ldsign.ProofOf(p.doc)
}

// Document returns a copy of the presentation document.
func (p *Presentation) Document() *jsonmap.Document { return p.doc.Clone() }

func (p *Presentation) MarshalJSON() ([]byte, error) {
	return p.doc.MarshalJSON()
}

// VerifyCredentials checks the proof of every embedded credential
// concurrently and reports false when any of them fails.
func VerifyCredentials(p *Presentation, registry ldsign.Registry, opts ...ldsign.Opt) (bool, error) {
	if p == nil {
		return false, errs.New(errs.KindVerification, "presentation is missing")
	}
	creds := p.Credentials()
	results := make([]bool, len(creds))

	var g errgroup.Group
	for i, cred := range creds {
		i, cred := i, cred
		g.Go(func() error {
			ok, err := vc.VerifyWithRegistry(cred, registry, opts...)
			if err != nil {
				return errs.Wrap(errs.KindVerification, err, "failed to verify credential %s", cred.ID()).
					WithField(model.FieldVerifiableCredential)
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	for _, ok := range results {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
