package did

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/model"
)

// DefaultKeyFragment names the first key of a generated DID.
const DefaultKeyFragment = "key-1"

// KeyPair is a generated secp256k1 wallet and the DID derived from it.
type KeyPair struct {
	Address    string `json:"address"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
	Identifier string `json:"identifier"`
}

// DID is a generated identifier with its secret and signed document.
type DID struct {
	DID      string    `json:"did"`
	Secret   Secret    `json:"secret"`
	Document *Document `json:"document"`
}

type Secret struct {
	PrivateKeyHex string `json:"privateKeyHex"`
}

// DIDGenerator creates self-signed did:<method>:<address> documents.
type DIDGenerator struct {
	didMethod string
}

// NewDIDGenerator returns a generator for method, e.g. "did:smartb".
func NewDIDGenerator(method string) *DIDGenerator {
	return &DIDGenerator{didMethod: method}
}

// GenerateDID creates a key pair and a DID document listing its public key
// under key-1, signed with that key.
func (d *DIDGenerator) GenerateDID(opts ...ldsign.Opt) (*DID, error) {
	kp, signer, err := d.generateECDSADID()
	if err != nil {
		return nil, err
	}

	keyID := kp.Identifier + "#" + DefaultKeyFragment
	builder := NewBuilder().
		WithContextDefault().
		WithID(kp.Identifier).
		WithPublicKey(NewSecp256k1PublicKey(keyID, kp.Identifier, kp.PublicKey)).
		WithAuthentication(AuthenticationReference(keyID)).
		With(model.FieldController, jsonmap.String(kp.Identifier))

	proof := ldproof.NewBuilder().
		WithProofPurpose(model.PurposeAuthentication).
		WithVerificationMethod(keyID)
	doc, err := Sign(builder, proof, signer, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to sign DID document: %w", err)
	}

	return &DID{
		DID:      kp.Identifier,
		Secret:   Secret{PrivateKeyHex: kp.PrivateKey},
		Document: doc,
	}, nil
}

func (d *DIDGenerator) generateECDSADID() (*KeyPair, *crypto.Secp256k1Signature2019, error) {
	privateKey, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("failed to cast public key to ECDSA")
	}

	signer, err := crypto.NewSecp256k1Signature2019(ethcrypto.FromECDSA(privateKey))
	if err != nil {
		return nil, nil, err
	}

	address := strings.ToLower(ethcrypto.PubkeyToAddress(*publicKeyECDSA).Hex())
	return &KeyPair{
		Address:    address,
		PublicKey:  "0x" + signer.PublicKeyHex(),
		PrivateKey: fmt.Sprintf("0x%x", ethcrypto.FromECDSA(privateKey)),
		Identifier: strings.ToLower(fmt.Sprintf("%s:%s", d.didMethod, address)),
	}, signer, nil
}
