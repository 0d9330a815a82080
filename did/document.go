package did

import (
	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/model"
)

// Document is a read-only view over a DID document.
type Document struct {
	doc *jsonmap.Document
}

// Parse decodes a DID document from JSON.
func Parse(raw []byte) (*Document, error) {
	doc, err := jsonmap.Parse(raw)
	if err != nil {
		return nil, err
	}
	return ParseDocument(doc)
}

// ParseDocument checks that doc has an id and well formed key, service and
// authentication lists.
func ParseDocument(doc *jsonmap.Document) (*Document, error) {
	if doc == nil {
		return nil, errs.New(errs.KindTypeMismatch, "DID document is missing")
	}
	if _, err := doc.GetString(model.FieldID); err != nil {
		return nil, err
	}
	d := &Document{doc: doc.Clone()}
	if _, err := d.PublicKeys(); err != nil {
		return nil, err
	}
	if _, err := d.Services(); err != nil {
		return nil, err
	}
	if _, err := d.Authentications(); err != nil {
		return nil, err
	}
	return d, nil
}

func listOf[T any](doc *jsonmap.Document, key string, parse func(jsonmap.Value) (T, error)) ([]T, error) {
	if !doc.Has(key) {
		return nil, nil
	}
	items, err := doc.GetList(key)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := parse(item)
		if err != nil {
			return nil, errs.Wrap(errs.KindTypeMismatch, err, "invalid %s entry", key).WithField(key)
		}
		out = append(out, v)
	}
	return out, nil
}

func authenticationsOf(doc *jsonmap.Document) ([]Authentication, error) {
	return listOf(doc, model.FieldAuthentication, parseAuthentication)
}

func (d *Document) ID() string {
	id, _ := d.doc.GetString(model.FieldID)
	return id
}

func (d *Document) PublicKeys() ([]PublicKey, error) {
	return listOf(d.doc, model.FieldPublicKey, parsePublicKey)
}

func (d *Document) Services() ([]Service, error) {
	return listOf(d.doc, model.FieldService, parseService)
}

// Authentications returns the authentication entries in declared order.
func (d *Document) Authentications() ([]Authentication, error) {
	return authenticationsOf(d.doc)
}

// PublicKey returns the key with the given id, looking at inline
// authentication keys too.
func (d *Document) PublicKey(id string) (PublicKey, bool) {
	keys, _ := d.PublicKeys()
	for _, k := range keys {
		if k.ID == id {
			return k, true
		}
	}
	auths, _ := d.Authentications()
	for _, a := range auths {
		if k, ok := a.PublicKey(); ok && k.ID == id {
			return k, true
		}
	}
	return PublicKey{}, false
}

// Document returns a copy of the underlying document.
func (d *Document) Document() *jsonmap.Document { return d.doc.Clone() }

// Proof parses the embedded proof.
func (d *Document) Proof() (*ldproof.Proof, error) {
	return ldsign.ProofOf(d.doc)
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return d.doc.MarshalJSON()
}
