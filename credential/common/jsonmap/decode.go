package jsonmap

import (
	"github.com/mitchellh/mapstructure"

	"github.com/smartbcity/iris-go/credential/common/errs"
)

func decode(input interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: false,
		DecodeHook:       mapstructure.StringToTimeHookFunc(TimeFormat),
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Decode maps the nested document stored under key onto out, a pointer to a
// struct or map. Struct fields are matched by their json tag.
func (d *Document) Decode(key string, out interface{}) error {
	doc, err := d.GetDocument(key)
	if err != nil {
		return err
	}
	if err := decode(doc.ToMap(), out); err != nil {
		return errs.Wrap(errs.KindTypeMismatch, err, "cannot decode object").WithField(key)
	}
	return nil
}

// DecodeList maps the list stored under key onto out, a pointer to a slice.
func (d *Document) DecodeList(key string, out interface{}) error {
	v, err := d.lookup(key)
	if err != nil {
		return err
	}
	if v.Kind() != KindList {
		return errs.TypeMismatch(key, KindList.String(), v.Kind().String())
	}
	if err := decode(v.Interface(), out); err != nil {
		return errs.Wrap(errs.KindTypeMismatch, err, "cannot decode list").WithField(key)
	}
	return nil
}

// DecodeInto maps the whole document onto out.
func (d *Document) DecodeInto(out interface{}) error {
	if err := decode(d.ToMap(), out); err != nil {
		return errs.Wrap(errs.KindTypeMismatch, err, "cannot decode document")
	}
	return nil
}
