// Package crypto holds the signature providers a Linked Data Proof is
// produced and checked with.
package crypto

import (
	"github.com/smartbcity/iris-go/credential/common/errs"
)

// Proof type labels of the built-in providers.
const (
	AlgorithmRsaSignature2018            = "RsaSignature2018"
	AlgorithmEcdsaSecp256k1Signature2019 = "EcdsaSecp256k1Signature2019"
)

// SignatureProvider signs and verifies canonical payloads for one proof type.
//
// Sign returns the encoded signature exactly as it is stored in the proof,
// under ProofField. Verify reports false when the signature does not match
// and returns an error only when the signature cannot be decoded.
// Implementations are immutable and safe for concurrent use.
type SignatureProvider interface {
	Algorithm() string
	ProofField() string
	Sign(payload []byte) ([]byte, error)
	Verify(payload, signature []byte) (bool, error)
}

func keyError(alg, format string, args ...interface{}) *errs.Error {
	return errs.New(errs.KindInvalidKey, format, args...).WithAlgorithm(alg)
}

func wrapKeyError(alg string, cause error, format string, args ...interface{}) *errs.Error {
	return errs.Wrap(errs.KindInvalidKey, cause, format, args...).WithAlgorithm(alg)
}

func signatureError(alg string, cause error, format string, args ...interface{}) *errs.Error {
	return errs.Wrap(errs.KindSignature, cause, format, args...).WithAlgorithm(alg)
}

func encodingError(alg, format string, args ...interface{}) *errs.Error {
	return errs.New(errs.KindVerification, format, args...).WithAlgorithm(alg)
}
