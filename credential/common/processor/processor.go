// Package processor implements the canonicalization engine: a semantic
// document is expanded with json-gold against offline JSON-LD contexts and
// normalized to sorted N-Quads with URDNA2015, so documents with the same
// meaning yield the same bytes.
package processor

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/piprate/json-gold/ld"

	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/model"
)

const formatNQuads = "application/n-quads"

// Processor canonicalizes semantic documents. It is safe for concurrent use.
type Processor struct {
	opts *Options
	ld   *ld.JsonLdProcessor
}

// New returns a processor using the built-in contexts unless a registry is given.
func New(opts ...Opt) *Processor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = NewContextRegistry()
	}
	return &Processor{opts: o, ld: ld.NewJsonLdProcessor()}
}

// strict reports whether undefined terms are rejected instead of being
// mapped into the default vocabulary.
func (p *Processor) strict() bool {
	return p.opts.strictTerms || p.opts.defaultVocab == ""
}

func (p *Processor) ldOptions() *ld.JsonLdOptions {
	opts := ld.NewJsonLdOptions(p.opts.baseIRI)
	opts.Format = formatNQuads
	opts.Algorithm = p.opts.algorithm
	opts.ProcessingMode = ld.JsonLd_1_1
	opts.DocumentLoader = p.opts.registry
	opts.SafeMode = p.strict()
	return opts
}

// Expand returns the expanded JSON-LD form of doc, after the signature
// context has been appended to its @context. Numbers are typed literals
// holding their exact lexical form.
func (p *Processor) Expand(doc *jsonmap.Document) ([]interface{}, error) {
	if doc == nil {
		return nil, errs.New(errs.KindCanonicalization, "document is nil")
	}
	doc = WithSignatureContext(doc)
	if !p.strict() {
		if err := checkAmbiguousKeys(doc, p.opts.defaultVocab); err != nil {
			return nil, err
		}
	}

	input := toLD(doc, false)
	if !p.strict() {
		ctx := input[KeywordContext].([]interface{})
		input[KeywordContext] = append([]interface{}{
			map[string]interface{}{KeywordVocab: p.opts.defaultVocab},
		}, ctx...)
	}

	expanded, err := p.ld.Expand(input, p.ldOptions())
	if err != nil {
		return nil, errs.Wrap(errs.KindCanonicalization, err, "failed to expand document")
	}
	for i, item := range expanded {
		expanded[i] = numberLiterals(item)
	}
	return expanded, nil
}

// CanonicalizeDocument returns the canonical N-Quads of doc. The top-level
// proof is never part of the result.
func (p *Processor) CanonicalizeDocument(doc *jsonmap.Document) (string, error) {
	if doc == nil {
		return "", errs.New(errs.KindCanonicalization, "document is nil")
	}
	return p.canonicalize(doc.Without(model.FieldProof))
}

// CanonicalizeWithProof returns the canonical N-Quads of the proof options
// followed by those of doc. Signature fields are removed from the options,
// which are read with the context of doc when they declare none.
func (p *Processor) CanonicalizeWithProof(doc, proofOptions *jsonmap.Document) (string, error) {
	if doc == nil || proofOptions == nil {
		return "", errs.New(errs.KindCanonicalization, "document and proof options are required")
	}

	options := proofOptions.Without(model.SignatureFields...)
	if !options.Has(model.FieldContext) {
		if ctx, ok := doc.Get(model.FieldContext); ok {
			options.Set(model.FieldContext, ctx.Clone())
		}
	}

	optionsQuads, err := p.canonicalize(options)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize proof options: %w", err)
	}
	docQuads, err := p.CanonicalizeDocument(doc)
	if err != nil {
		return "", err
	}
	return optionsQuads + docQuads, nil
}

func (p *Processor) canonicalize(doc *jsonmap.Document) (string, error) {
	expanded, err := p.Expand(doc)
	if err != nil {
		return "", err
	}
	normalized, err := p.ld.Normalize(expanded, p.ldOptions())
	if err != nil {
		return "", errs.Wrap(errs.KindCanonicalization, err, "failed to normalize document")
	}
	s, ok := normalized.(string)
	if !ok {
		return "", errs.New(errs.KindCanonicalization, "unexpected normalization result %T", normalized)
	}
	return s, nil
}

// Renormalize rebuilds JSON-LD from canonical N-Quads and normalizes it again.
func (p *Processor) Renormalize(nquads string) (string, error) {
	opts := p.ldOptions()
	rebuilt, err := p.ld.FromRDF(nquads, opts)
	if err != nil {
		return "", errs.Wrap(errs.KindCanonicalization, err, "failed to parse n-quads")
	}
	normalized, err := p.ld.Normalize(rebuilt, opts)
	if err != nil {
		return "", errs.Wrap(errs.KindCanonicalization, err, "failed to normalize n-quads")
	}
	s, ok := normalized.(string)
	if !ok {
		return "", errs.New(errs.KindCanonicalization, "unexpected normalization result %T", normalized)
	}
	return s, nil
}

// checkAmbiguousKeys rejects nodes holding both a term and its default
// vocabulary expansion, since both would land on the same predicate.
func checkAmbiguousKeys(doc *jsonmap.Document, vocab string) error {
	for _, e := range doc.Entries() {
		if e.Key == KeywordContext {
			continue
		}
		if !strings.HasPrefix(e.Key, "@") && !strings.Contains(e.Key, ":") && doc.Has(vocab+e.Key) {
			return errs.New(errs.KindCanonicalization, "ambiguous key: %q and %q both expand to %s",
				e.Key, vocab+e.Key, vocab+e.Key).WithField(e.Key)
		}
		if err := checkAmbiguousValue(e.Value, vocab); err != nil {
			return err
		}
	}
	return nil
}

func checkAmbiguousValue(v jsonmap.Value, vocab string) error {
	switch v.Kind() {
	case jsonmap.KindDocument:
		nested, _ := v.AsDocument()
		return checkAmbiguousKeys(nested, vocab)
	case jsonmap.KindList:
		items, _ := v.AsList()
		for _, item := range items {
			if err := checkAmbiguousValue(item, vocab); err != nil {
				return err
			}
		}
	}
	return nil
}

// toLD converts doc to the generic form json-gold reads. Numbers travel as
// json.Number so no digit is lost, except inside contexts where json-gold
// expects float64 (@version).
func toLD(doc *jsonmap.Document, inContext bool) map[string]interface{} {
	out := make(map[string]interface{}, doc.Len())
	for _, e := range doc.Entries() {
		out[e.Key] = valueToLD(e.Value, inContext || e.Key == KeywordContext)
	}
	return out
}

func valueToLD(v jsonmap.Value, inContext bool) interface{} {
	switch v.Kind() {
	case jsonmap.KindDocument:
		doc, _ := v.AsDocument()
		return toLD(doc, inContext)
	case jsonmap.KindList:
		items, _ := v.AsList()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = valueToLD(item, inContext)
		}
		return out
	case jsonmap.KindNumber:
		n, _ := v.AsJSONNumber()
		if inContext {
			f, _ := n.Float64()
			return f
		}
		return n
	default:
		return v.Interface()
	}
}

// numberLiterals rewrites value objects holding a json.Number into typed
// literals carrying the exact digits. JSON literals are left to json-gold.
func numberLiterals(x interface{}) interface{} {
	switch t := x.(type) {
	case []interface{}:
		for i, item := range t {
			t[i] = numberLiterals(item)
		}
	case map[string]interface{}:
		if value, ok := t[KeywordValue]; ok {
			if t[KeywordType] == KeywordJSON {
				return t
			}
			if n, ok := value.(json.Number); ok {
				lexical, datatype := numberLiteral(n)
				t[KeywordValue] = lexical
				if _, typed := t[KeywordType]; !typed {
					t[KeywordType] = datatype
				}
			}
			return t
		}
		for k, v := range t {
			t[k] = numberLiterals(v)
		}
	}
	return x
}

// numberLiteral returns the lexical form and XSD datatype of n. Numbers a
// float64 holds exactly get the same literal json-gold would produce; the
// others keep their digits as xsd:integer, xsd:decimal or xsd:double.
func numberLiteral(n json.Number) (string, string) {
	text := n.String()
	if i, ok := new(big.Int).SetString(text, 10); ok {
		return i.String(), ld.XSDInteger
	}

	exact, ok := new(big.Rat).SetString(text)
	if f, err := strconv.ParseFloat(text, 64); ok && err == nil {
		if r := new(big.Rat).SetFloat64(f); r != nil && r.Cmp(exact) == 0 {
			if f == float64(int64(f)) {
				return strconv.FormatInt(int64(f), 10), ld.XSDInteger
			}
			return ld.GetCanonicalDouble(f), ld.XSDDouble
		}
	}
	if strings.ContainsAny(text, "eE") {
		return text, ld.XSDDouble
	}
	return text, ld.XSDDecimal
}
