package processor

import "github.com/piprate/json-gold/ld"

// Defaults applied by New.
const (
	// DefaultVocab prefixes terms no context defines.
	DefaultVocab = "urn:iris:term:"
	// DefaultBaseIRI resolves relative identifiers. It must be hierarchical.
	DefaultBaseIRI = "https://iris.invalid/"
)

// Opt configures a Processor.
type Opt func(*Options)

// Options holds the canonicalization settings.
type Options struct {
	registry     *ContextRegistry
	defaultVocab string
	baseIRI      string
	strictTerms  bool
	algorithm    string
}

// WithContextRegistry sets the document loader context IRIs are resolved with.
func WithContextRegistry(r *ContextRegistry) Opt {
	return func(o *Options) {
		o.registry = r
	}
}

// WithDefaultVocab sets the IRI prefix of undefined terms.
func WithDefaultVocab(iri string) Opt {
	return func(o *Options) {
		o.defaultVocab = iri
	}
}

// WithBaseIRI sets the IRI relative identifiers are resolved against.
func WithBaseIRI(iri string) Opt {
	return func(o *Options) {
		o.baseIRI = iri
	}
}

// WithStrictTerms makes undefined terms a canonicalization error.
func WithStrictTerms() Opt {
	return func(o *Options) {
		o.strictTerms = true
	}
}

// WithAlgorithm sets the RDF dataset normalization algorithm.
func WithAlgorithm(alg string) Opt {
	return func(o *Options) {
		o.algorithm = alg
	}
}

func defaultOptions() *Options {
	return &Options{
		defaultVocab: DefaultVocab,
		baseIRI:      DefaultBaseIRI,
		algorithm:    ld.AlgorithmURDNA2015,
	}
}
