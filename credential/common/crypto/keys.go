package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"strings"

	"github.com/smartbcity/iris-go/credential/common/errs"
)

// KeyToBytes decodes a hex key; the 0x prefix is optional.
func KeyToBytes(key string) ([]byte, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "0x")
	if key == "" {
		return nil, errors.New("key is empty")
	}
	return hex.DecodeString(key)
}

func decodePEM(data []byte) (*pem.Block, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errs.New(errs.KindInvalidKey, "no PEM block found")
	}
	return block, nil
}

// ParseRSAPrivateKeyPEM parses a PKCS#1 or PKCS#8 RSA private key.
func ParseRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidKey, err, "failed to parse PKCS#1 private key")
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidKey, err, "failed to parse PKCS#8 private key")
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errs.New(errs.KindInvalidKey, "expected an RSA private key, got %T", key)
		}
		return rsaKey, nil
	default:
		return nil, errs.New(errs.KindInvalidKey, "unsupported PEM block %q for a private key", block.Type)
	}
}

// ParseRSAPublicKeyPEM parses a PKIX or PKCS#1 RSA public key, or the key of
// an X.509 certificate.
func ParseRSAPublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, err := decodePEM(data)
	if err != nil {
		return nil, err
	}

	var key interface{}
	switch block.Type {
	case "PUBLIC KEY":
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		if cert, err = x509.ParseCertificate(block.Bytes); err == nil {
			key = cert.PublicKey
		}
	default:
		return nil, errs.New(errs.KindInvalidKey, "unsupported PEM block %q for a public key", block.Type)
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, err, "failed to parse %s", strings.ToLower(block.Type))
	}

	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errs.New(errs.KindInvalidKey, "expected an RSA public key, got %T", key)
	}
	return rsaKey, nil
}

// EncodeRSAPublicKeyPEM renders key as a PKIX "PUBLIC KEY" block.
func EncodeRSAPublicKeyPEM(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", errs.Wrap(errs.KindInvalidKey, err, "failed to marshal public key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
