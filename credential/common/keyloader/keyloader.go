// Package keyloader reads RSA key material by logical name, either from an
// embedded resource tree or, with the "file:" prefix, from the file system.
package keyloader

import (
	"crypto/rsa"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/errs"
)

// FilePrefix marks a name as a file system path rather than a resource.
const FilePrefix = "file:"

// Extensions appended to a key pair name.
const (
	PrivateKeyExt = ".key"
	PublicKeyExt  = ".pub"
)

// KeyPair is an RSA key pair loaded by name.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// Loader resolves key names.
type Loader struct {
	resources fs.FS
}

// New returns a loader reading resource names from resources, which may be
// nil when only "file:" names are used.
func New(resources fs.FS) *Loader {
	return &Loader{resources: resources}
}

// Read returns the bytes behind name.
func (l *Loader) Read(name string) ([]byte, error) {
	if strings.HasPrefix(name, FilePrefix) {
		path, err := filePath(name)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidKey, err, "failed to read %s", name)
		}
		return data, nil
	}

	if l.resources == nil {
		return nil, errs.New(errs.KindInvalidKey, "no resources to read %s from", name)
	}
	data, err := fs.ReadFile(l.resources, name)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, err, "failed to read resource %s", name)
	}
	return data, nil
}

// filePath accepts both file:/abs/path and file:///abs/path.
func filePath(name string) (string, error) {
	if !strings.HasPrefix(name, FilePrefix+"//") {
		return strings.TrimPrefix(name, FilePrefix), nil
	}
	u, err := url.Parse(name)
	if err != nil {
		return "", errs.Wrap(errs.KindInvalidKey, err, "invalid file URL %s", name)
	}
	return u.Path, nil
}

// LoadPrivateKey reads and parses the PEM private key stored under name.
func (l *Loader) LoadPrivateKey(name string) (*rsa.PrivateKey, error) {
	data, err := l.Read(name)
	if err != nil {
		return nil, err
	}
	return crypto.ParseRSAPrivateKeyPEM(data)
}

// LoadPublicKey reads and parses the PEM public key stored under name.
func (l *Loader) LoadPublicKey(name string) (*rsa.PublicKey, error) {
	data, err := l.Read(name)
	if err != nil {
		return nil, err
	}
	return crypto.ParseRSAPublicKeyPEM(data)
}

// LoadKeyPair loads name.key and, when present, name.pub, which must match
// the private key. Without name.pub the public key is derived.
func (l *Loader) LoadKeyPair(name string) (*KeyPair, error) {
	private, err := l.LoadPrivateKey(name + PrivateKeyExt)
	if err != nil {
		return nil, err
	}

	public, err := l.LoadPublicKey(name + PublicKeyExt)
	switch {
	case err == nil:
		if !private.PublicKey.Equal(public) {
			return nil, errs.New(errs.KindInvalidKey, "public key %s does not match the private key", name+PublicKeyExt)
		}
	case errors.Is(err, fs.ErrNotExist):
		public = &private.PublicKey
	default:
		return nil, err
	}
	return &KeyPair{Private: private, Public: public}, nil
}
