package model

// JSON keys of DID documents.
const (
	FieldPublicKey       = "publicKey"
	FieldService         = "service"
	FieldAuthentication  = "authentication"
	FieldController      = "controller"
	FieldPublicKeyPem    = "publicKeyPem"
	FieldPublicKeyJwk    = "publicKeyJwk"
	FieldPublicKeyHex    = "publicKeyHex"
	FieldServiceEndpoint = "serviceEndpoint"
)

// Public key types.
const (
	KeyTypeRsaVerification2018        = "RsaVerificationKey2018"
	KeyTypeEcdsaSecp256k1Verification = "EcdsaSecp256k1VerificationKey2019"
	KeyTypeJSONWebKey2020             = "JsonWebKey2020"
)
