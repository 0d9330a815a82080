// Package ldproof models Linked Data Proofs and the builder that produces
// them: options are accumulated, canonicalized together with the document,
// then signed exactly once.
package ldproof

import (
	"encoding/json"
	"time"

	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/model"
	"github.com/smartbcity/iris-go/credential/common/schema"
)

// Proof is an immutable, signed Linked Data Proof.
type Proof struct {
	doc *jsonmap.Document

	proofType          string
	created            time.Time
	verificationMethod string
	proofPurpose       string
	challenge          string
	domain             string
	signatureField     string
	signature          string
}

// Parse reads a persisted proof. Structural problems are VerificationErrors.
func Parse(doc *jsonmap.Document) (*Proof, error) {
	if err := schema.ValidateProof(doc); err != nil {
		return nil, err
	}

	p := &Proof{doc: doc.Clone()}
	p.proofType, _ = doc.GetString(model.FieldType)
	p.verificationMethod, _ = doc.GetString(model.FieldVerificationMethod)
	p.proofPurpose, _ = doc.GetString(model.FieldProofPurpose)
	p.challenge, _ = doc.GetString(model.FieldChallenge)
	p.domain, _ = doc.GetString(model.FieldDomain)

	created, err := doc.GetTimestamp(model.FieldCreated)
	if err != nil {
		return nil, errs.Wrap(errs.KindVerification, err, "malformed proof").WithField(model.FieldCreated)
	}
	p.created = created

	for _, field := range model.SignatureFields {
		if s, err := doc.GetString(field); err == nil {
			p.signatureField, p.signature = field, s
		}
	}
	return p, nil
}

// ParseJSON decodes and parses a persisted proof.
func ParseJSON(raw []byte) (*Proof, error) {
	doc, err := jsonmap.Parse(raw)
	if err != nil {
		return nil, errs.Wrap(errs.KindVerification, err, "malformed proof")
	}
	return Parse(doc)
}

func (p *Proof) Type() string               { return p.proofType }
func (p *Proof) Created() time.Time         { return p.created }
func (p *Proof) VerificationMethod() string { return p.verificationMethod }
func (p *Proof) ProofPurpose() string       { return p.proofPurpose }
func (p *Proof) Challenge() string          { return p.challenge }
func (p *Proof) Domain() string             { return p.domain }

// SignatureField returns the key the signature is stored under.
func (p *Proof) SignatureField() string { return p.signatureField }

// Signature returns the encoded signature.
func (p *Proof) Signature() string { return p.signature }

// JWS returns the detached JWS, or "" when the proof carries another signature field.
func (p *Proof) JWS() string { return p.signatureOf(model.FieldJWS) }

// SignatureValue returns the signatureValue, or "".
func (p *Proof) SignatureValue() string { return p.signatureOf(model.FieldSignatureValue) }

func (p *Proof) signatureOf(field string) string {
	if p.signatureField != field {
		return ""
	}
	return p.signature
}

// Document returns a copy of the persisted form of the proof.
func (p *Proof) Document() *jsonmap.Document {
	return p.doc.Clone()
}

// Options returns the persisted proof without its signature.
func (p *Proof) Options() *jsonmap.Document {
	return p.doc.Without(model.SignatureFields...)
}

func (p *Proof) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.doc)
}
