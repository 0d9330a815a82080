// Package schema checks the structure of persisted proofs before they are
// trusted by the verification path.
package schema

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/jsonmap"
)

// ProofSchema describes a Linked Data Proof carrying exactly one signature field.
const ProofSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["type", "created", "proofPurpose", "verificationMethod"],
	"properties": {
		"type": {"type": "string", "minLength": 1},
		"created": {"type": "string", "minLength": 1},
		"proofPurpose": {"type": "string", "minLength": 1},
		"verificationMethod": {"type": "string", "minLength": 1},
		"challenge": {"type": "string"},
		"domain": {"type": "string"},
		"jws": {"type": "string", "minLength": 1},
		"signatureValue": {"type": "string", "minLength": 1},
		"proofValue": {"type": "string", "minLength": 1}
	},
	"oneOf": [
		{"required": ["jws"], "not": {"anyOf": [{"required": ["signatureValue"]}, {"required": ["proofValue"]}]}},
		{"required": ["signatureValue"], "not": {"anyOf": [{"required": ["jws"]}, {"required": ["proofValue"]}]}},
		{"required": ["proofValue"], "not": {"anyOf": [{"required": ["jws"]}, {"required": ["signatureValue"]}]}}
	]
}`

var proofSchema = mustCompile(ProofSchema)

func mustCompile(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return schema
}

// ValidateProof reports a VerificationError describing every structural
// problem of proof.
func ValidateProof(proof *jsonmap.Document) error {
	if proof == nil {
		return errs.New(errs.KindVerification, "proof is missing")
	}

	result, err := proofSchema.Validate(gojsonschema.NewGoLoader(proof.ToMap()))
	if err != nil {
		return errs.Wrap(errs.KindVerification, err, "failed to validate proof")
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	vErr := errs.New(errs.KindVerification, "malformed proof: %s", strings.Join(problems, "; "))
	if field := result.Errors()[0].Field(); field != "(root)" {
		vErr = vErr.WithField(field)
	}
	return vErr
}
