package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"golang.org/x/exp/slices"
)

const (
	jwsPartsNumber   = 3
	jwsHeaderPart    = 0
	jwsPayloadPart   = 1
	jwsSignaturePart = 2
)

type jwsHeader struct {
	Alg  string   `json:"alg"`
	B64  *bool    `json:"b64,omitempty"`
	Crit []string `json:"crit,omitempty"`
}

// CreateDetachedJWSHeader returns the base64url encoded, JCS serialized
// header of an unencoded-payload JWS (RFC 7797).
func CreateDetachedJWSHeader(alg string) (string, error) {
	b64 := false
	raw, err := json.Marshal(jwsHeader{Alg: alg, B64: &b64, Crit: []string{"b64"}})
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize jws header: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(canonical), nil
}

// jwsSigningInput is the header, a dot and the raw payload.
func jwsSigningInput(header string, payload []byte) []byte {
	input := make([]byte, 0, len(header)+1+len(payload))
	input = append(input, header...)
	input = append(input, '.')
	return append(input, payload...)
}

// detachedJWS builds header..signature.
func detachedJWS(header string, signature []byte) string {
	return header + ".." + base64.RawURLEncoding.EncodeToString(signature)
}

// parseDetachedJWS splits a detached token and checks its header announces
// alg with an unencoded payload.
func parseDetachedJWS(token, alg string) (string, []byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != jwsPartsNumber {
		return "", nil, fmt.Errorf("invalid jws: expected %d parts, got %d", jwsPartsNumber, len(parts))
	}
	if parts[jwsPayloadPart] != "" {
		return "", nil, fmt.Errorf("invalid jws: payload is not detached")
	}

	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[jwsHeaderPart])
	if err != nil {
		return "", nil, fmt.Errorf("invalid jws header encoding: %w", err)
	}
	var header jwsHeader
	if err := json.Unmarshal(rawHeader, &header); err != nil {
		return "", nil, fmt.Errorf("invalid jws header: %w", err)
	}
	if header.Alg != alg {
		return "", nil, fmt.Errorf("invalid jws header: alg %q, expected %q", header.Alg, alg)
	}
	if header.B64 == nil || *header.B64 || !slices.Contains(header.Crit, "b64") {
		return "", nil, fmt.Errorf("invalid jws header: payload must be unencoded")
	}

	if parts[jwsSignaturePart] == "" {
		return "", nil, fmt.Errorf("invalid jws: empty signature")
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[jwsSignaturePart])
	if err != nil {
		return "", nil, fmt.Errorf("invalid jws signature encoding: %w", err)
	}
	return parts[jwsHeaderPart], signature, nil
}
