package processor

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/piprate/json-gold/ld"
	"golang.org/x/exp/slices"

	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/model"
)

// JSON-LD keywords the engine inspects.
const (
	KeywordContext = "@context"
	KeywordValue   = "@value"
	KeywordType    = "@type"
	KeywordVocab   = "@vocab"
	KeywordJSON    = "@json"
)

//go:embed contexts/*.jsonld
var embedded embed.FS

// builtinContexts maps the published context IRIs to their embedded copy.
var builtinContexts = map[string]string{
	model.ContextCredentialsV1: "contexts/credentials-v1.jsonld",
	model.ContextDIDV1:         "contexts/did-v1.jsonld",
	model.ContextSecurityV1:    "contexts/security-v1.jsonld",
	model.ContextSecurityV2:    "contexts/security-v2.jsonld",
}

// offlineLoader refuses every document the registry does not hold.
type offlineLoader struct{}

func (offlineLoader) LoadDocument(u string) (*ld.RemoteDocument, error) {
	return nil, ld.NewJsonLdError(ld.LoadingDocumentFailed, fmt.Sprintf("unknown context %s", u))
}

// ContextRegistry is the document loader contexts are resolved with. It
// never goes to the network: only preloaded and registered contexts resolve.
type ContextRegistry struct {
	mu     sync.RWMutex
	loader *ld.CachingDocumentLoader
}

// NewContextRegistry returns a registry preloaded with the credentials v1,
// DID v1 and security v1/v2 contexts.
func NewContextRegistry() *ContextRegistry {
	r := &ContextRegistry{loader: ld.NewCachingDocumentLoader(offlineLoader{})}
	for iri, name := range builtinContexts {
		raw, err := embedded.ReadFile(name)
		if err != nil {
			panic(fmt.Sprintf("embedded context %s: %v", name, err))
		}
		if err := r.Register(iri, raw); err != nil {
			panic(fmt.Sprintf("embedded context %s: %v", name, err))
		}
	}
	return r
}

// Register adds or replaces the context document published at iri.
func (r *ContextRegistry) Register(iri string, document []byte) error {
	doc, err := ld.DocumentFromReader(bytes.NewReader(document))
	if err != nil {
		return fmt.Errorf("failed to read context %s: %w", iri, err)
	}
	m, ok := doc.(map[string]interface{})
	if !ok {
		return fmt.Errorf("context %s is not a JSON object", iri)
	}
	if _, ok := m[KeywordContext]; !ok {
		m = map[string]interface{}{KeywordContext: m}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loader.AddDocument(iri, m)
	return nil
}

// RegisterDocument registers a context document, either {"@context": ...}
// or the bare context object, under iri.
func (r *ContextRegistry) RegisterDocument(iri string, doc *jsonmap.Document) error {
	raw, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode context %s: %w", iri, err)
	}
	return r.Register(iri, raw)
}

// Has reports whether iri resolves.
func (r *ContextRegistry) Has(iri string) bool {
	_, err := r.LoadDocument(iri)
	return err == nil
}

// LoadDocument implements ld.DocumentLoader.
func (r *ContextRegistry) LoadDocument(u string) (*ld.RemoteDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loader.LoadDocument(u)
}

// NormalizeContexts folds context declarations into an ordered set: lists
// are flattened and duplicates dropped keeping the first occurrence. The
// signature context is appended last unless a declared context already
// carries the proof vocabulary.
func NormalizeContexts(contexts ...jsonmap.Value) jsonmap.Value {
	var out []jsonmap.Value
	var add func(v jsonmap.Value)
	add = func(v jsonmap.Value) {
		if items, err := v.AsList(); err == nil {
			for _, item := range items {
				add(item)
			}
			return
		}
		if !v.IsValid() || slices.ContainsFunc(out, v.Equal) {
			return
		}
		out = append(out, v)
	}
	for _, c := range contexts {
		add(c)
	}
	if !slices.ContainsFunc(out, carriesProofVocabulary) {
		out = append(out, jsonmap.String(model.ContextSignature))
	}
	return jsonmap.List(out...)
}

func carriesProofVocabulary(v jsonmap.Value) bool {
	s, err := v.AsString()
	return err == nil && slices.Contains(model.ProofContexts, s)
}

// WithSignatureContext returns a copy of doc whose @context went through
// NormalizeContexts.
func WithSignatureContext(doc *jsonmap.Document) *jsonmap.Document {
	out := doc.Clone()
	v, _ := out.Get(model.FieldContext)
	out.Set(model.FieldContext, NormalizeContexts(v))
	return out
}
