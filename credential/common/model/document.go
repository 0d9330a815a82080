// Package model is the single schema of field names and well-known IRIs shared
// by the document, proof, canonicalization and builder packages.
package model

// Keys common to every semantic document.
const (
	FieldContext = "@context"
	FieldID      = "id"
	FieldProof   = "proof"
)

// JSON keys of Verifiable Credentials.
const (
	FieldIssuer            = "issuer"
	FieldIssuanceDate      = "issuanceDate"
	FieldExpirationDate    = "expirationDate"
	FieldCredentialSubject = "credentialSubject"
)

// JSON keys of Verifiable Presentations.
const (
	FieldHolder               = "holder"
	FieldVerifiableCredential = "verifiableCredential"
)

// Well-known context IRIs.
const (
	ContextCredentialsV1 = "https://www.w3.org/2018/credentials/v1"
	ContextDIDV1         = "https://www.w3.org/ns/did/v1"
	ContextSecurityV1    = "https://w3id.org/security/v1"
	ContextSecurityV2    = "https://w3id.org/security/v2"

	// ContextSignature is appended to signed documents whose contexts do
	// not define the proof vocabulary.
	ContextSignature = ContextSecurityV2
)

// ProofContexts define the proof vocabulary. The credentials context
// protects its signature suite terms, so the signature context is never
// appended after it.
var ProofContexts = []string{ContextCredentialsV1, ContextSecurityV2}

// Base types of credentials and presentations.
const (
	TypeVerifiableCredential   = "VerifiableCredential"
	TypeVerifiablePresentation = "VerifiablePresentation"
)
