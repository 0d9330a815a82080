package ldproof

import (
	"sync"
	"time"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/model"
	"github.com/smartbcity/iris-go/credential/common/processor"
)

// Builder accumulates proof options. Every With method returns a new
// builder; the receiver is left untouched.
type Builder struct {
	opts *jsonmap.Document
}

// NewBuilder returns an empty builder.
func NewBuilder() Builder {
	return Builder{opts: jsonmap.New()}
}

// FromProof returns a builder holding the options of p, without its
// signature, so the pre-signature canonical form can be rebuilt.
func FromProof(p *Proof) Builder {
	return Builder{opts: p.Options()}
}

func (b Builder) with(key string, v jsonmap.Value) Builder {
	opts := b.opts.Clone()
	opts.Set(key, v)
	return Builder{opts: opts}
}

func (b Builder) WithProofPurpose(purpose string) Builder {
	return b.with(model.FieldProofPurpose, jsonmap.String(purpose))
}

func (b Builder) WithCreated(created time.Time) Builder {
	return b.with(model.FieldCreated, jsonmap.Timestamp(created))
}

func (b Builder) WithVerificationMethod(method string) Builder {
	return b.with(model.FieldVerificationMethod, jsonmap.String(method))
}

func (b Builder) WithChallenge(challenge string) Builder {
	return b.with(model.FieldChallenge, jsonmap.String(challenge))
}

func (b Builder) WithDomain(domain string) Builder {
	return b.with(model.FieldDomain, jsonmap.String(domain))
}

// With sets an arbitrary option.
func (b Builder) With(key string, v jsonmap.Value) Builder {
	return b.with(key, v)
}

// Options returns a copy of the accumulated options.
func (b Builder) Options() *jsonmap.Document {
	return b.opts.Clone()
}

// Build attaches signature under field and returns the proof.
func (b Builder) Build(field, signature string) (*Proof, error) {
	if signature == "" {
		return nil, errs.New(errs.KindSignature, "signature is empty").WithField(field)
	}
	doc := b.opts.Clone()
	doc.Set(field, jsonmap.String(signature))
	return Parse(doc)
}

// Canonicalize freezes the options, typed with the provider's algorithm, and
// computes the payload to sign over doc. created defaults to now.
func (b Builder) Canonicalize(proc *processor.Processor, doc *jsonmap.Document, provider crypto.SignatureProvider) (*Canonicalized, error) {
	opts := b.opts.Without(model.SignatureFields...)
	opts.Set(model.FieldType, jsonmap.String(provider.Algorithm()))
	if !opts.Has(model.FieldCreated) {
		opts.Set(model.FieldCreated, jsonmap.Timestamp(time.Now().UTC()))
	}
	for _, field := range []string{model.FieldProofPurpose, model.FieldVerificationMethod} {
		if _, err := opts.GetString(field); err != nil {
			return nil, err
		}
	}

	payload, err := proc.CanonicalizeWithProof(doc, opts)
	if err != nil {
		return nil, err
	}
	return &Canonicalized{
		builder:   Builder{opts: opts},
		algorithm: provider.Algorithm(),
		payload:   payload,
	}, nil
}

// Canonicalized holds frozen options and their payload. It signs at most once.
type Canonicalized struct {
	builder   Builder
	algorithm string
	payload   string

	mu     sync.Mutex
	signed bool
}

// Payload returns the canonical string the signature covers.
func (c *Canonicalized) Payload() string { return c.payload }

// Options returns a copy of the frozen options.
func (c *Canonicalized) Options() *jsonmap.Document { return c.builder.Options() }

// Sign signs the payload and returns the proof.
func (c *Canonicalized) Sign(provider crypto.SignatureProvider) (*Proof, error) {
	if provider.Algorithm() != c.algorithm {
		return nil, errs.New(errs.KindSigning, "payload was canonicalized for %s", c.algorithm).WithAlgorithm(provider.Algorithm())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.signed {
		return nil, errs.New(errs.KindSigning, "payload is already signed").WithAlgorithm(c.algorithm)
	}

	sig, err := provider.Sign([]byte(c.payload))
	if err != nil {
		return nil, err
	}
	p, err := c.builder.Build(provider.ProofField(), string(sig))
	if err != nil {
		return nil, err
	}
	c.signed = true
	return p, nil
}

// Verify checks signature against the payload.
func (c *Canonicalized) Verify(provider crypto.SignatureProvider, signature []byte) (bool, error) {
	if provider.Algorithm() != c.algorithm {
		return false, errs.New(errs.KindVerification, "payload was canonicalized for %s", c.algorithm).WithAlgorithm(provider.Algorithm())
	}
	return provider.Verify([]byte(c.payload), signature)
}
