// Package iris signs and verifies W3C Verifiable Credentials and DID
// documents with Linked Data Proofs.
package iris

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
)

// ErrProviderNotFound is returned by Remove for an unknown proof type.
var ErrProviderNotFound = errors.New("signature provider not found")

// Registry holds signature providers keyed by proof type and is safe for
// concurrent use.
type Registry struct {
	providers map[string]crypto.SignatureProvider
	mu        sync.RWMutex
}

// NewRegistry returns a registry holding providers.
func NewRegistry(providers ...crypto.SignatureProvider) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]crypto.SignatureProvider, len(providers)),
	}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds provider, replacing any provider with the same proof type.
func (r *Registry) Register(provider crypto.SignatureProvider) error {
	if provider == nil {
		return errors.New("signature provider cannot be nil")
	}
	alg := provider.Algorithm()
	if alg == "" {
		return errors.New("signature provider has no proof type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[alg] = provider
	return nil
}

// Provider returns the provider registered for alg.
func (r *Registry) Provider(alg string) (crypto.SignatureProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[alg]
	return p, ok
}

// Remove drops the provider registered for alg.
func (r *Registry) Remove(alg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[alg]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, alg)
	}
	delete(r.providers, alg)
	return nil
}

// Algorithms lists the registered proof types in sorted order.
func (r *Registry) Algorithms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.providers))
	for alg := range r.providers {
		out = append(out, alg)
	}
	slices.Sort(out)
	return out
}

// Verify checks the proof of doc with the provider registered for its type.
func (r *Registry) Verify(doc *jsonmap.Document, opts ...ldsign.Opt) (bool, error) {
	return ldsign.VerifyWithRegistry(doc, r, opts...)
}
