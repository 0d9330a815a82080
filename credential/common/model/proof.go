package model

// JSON keys of a Linked Data Proof.
const (
	FieldType               = "type"
	FieldCreated            = "created"
	FieldVerificationMethod = "verificationMethod"
	FieldProofPurpose       = "proofPurpose"
	FieldChallenge          = "challenge"
	FieldDomain             = "domain"
	FieldJWS                = "jws"
	FieldSignatureValue     = "signatureValue"
	FieldProofValue         = "proofValue"
)

// SignatureFields lists every key that carries a signature value. They are
// stripped from the proof options before canonicalization.
var SignatureFields = []string{FieldJWS, FieldSignatureValue, FieldProofValue}

// Proof purposes.
const (
	PurposeAssertionMethod = "assertionMethod"
	PurposeAuthentication  = "authentication"
)
