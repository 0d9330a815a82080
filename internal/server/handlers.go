package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/smartbcity/iris-go/credential/common/errs"
	"github.com/smartbcity/iris-go/credential/common/ldproof"
	"github.com/smartbcity/iris-go/credential/common/model"
	"github.com/smartbcity/iris-go/credential/vc"
	"github.com/smartbcity/iris-go/did"
)

type signRequest struct {
	Credential   json.RawMessage `json:"credential"`
	Algorithm    string          `json:"algorithm,omitempty"`
	ProofPurpose string          `json:"proofPurpose,omitempty"`
	Challenge    string          `json:"challenge,omitempty"`
	Domain       string          `json:"domain,omitempty"`
}

type verifyResponse struct {
	Verified  bool   `json:"verified"`
	Algorithm string `json:"algorithm"`
}

// didCheckResponse reports whether a DID document is signed by a key it
// lists itself. That shows the document was not altered after signing. It
// does not show the signer controls the DID: anyone can publish a document
// for any id signed with a freshly generated key.
type didCheckResponse struct {
	SelfSigned         bool   `json:"selfSigned"`
	Algorithm          string `json:"algorithm"`
	VerificationMethod string `json:"verificationMethod"`
}

type healthResponse struct {
	Status     string   `json:"status"`
	Algorithms []string `json:"algorithms"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Field     string `json:"field,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
}

func (s *Server) signCredential(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	var req signRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("failed to decode sign request: %w", err))
		return
	}
	if len(req.Credential) == 0 {
		s.fail(w, r, http.StatusBadRequest, errs.New(errs.KindTypeMismatch, "credential is missing").WithField("credential"))
		return
	}

	cred, err := vc.Parse(req.Credential)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	alg := req.Algorithm
	if alg == "" {
		alg = s.defaultAlgorithm
	}
	provider, ok := s.registry.Provider(alg)
	if !ok {
		s.fail(w, r, http.StatusBadRequest, errs.New(errs.KindSigning, "unsupported proof type").WithAlgorithm(alg))
		return
	}

	purpose := req.ProofPurpose
	if purpose == "" {
		purpose = model.PurposeAssertionMethod
	}
	proof := ldproof.NewBuilder().
		WithProofPurpose(purpose).
		WithVerificationMethod(s.verificationMethod)
	if req.Challenge != "" {
		proof = proof.WithChallenge(req.Challenge)
	}
	if req.Domain != "" {
		proof = proof.WithDomain(req.Domain)
	}

	signed, err := vc.Sign(vc.FromCredential(cred), proof, provider, s.signOpts...)
	if err != nil {
		s.fail(w, r, signStatus(err), err)
		return
	}
	Logger(r.Context()).Debug("credential signed", zap.String("id", signed.ID()), zap.String("algorithm", alg))
	writeJSON(w, http.StatusOK, signed)
}

func (s *Server) verifyCredential(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	cred, err := vc.Parse(body)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	proof, err := cred.Proof()
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	ok, err := vc.VerifyWithRegistry(cred, s.registry, s.signOpts...)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Verified: ok, Algorithm: proof.Type()})
}

// checkDID serves CheckDIDPath. See didCheckResponse for what the result
// does and does not establish.
func (s *Server) checkDID(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	doc, err := did.Parse(body)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	proof, err := doc.Proof()
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	ok, err := did.VerifySelf(doc, s.signOpts...)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, didCheckResponse{
		SelfSigned:         ok,
		Algorithm:          proof.Type(),
		VerificationMethod: proof.VerificationMethod(),
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Algorithms: s.registry.Algorithms()})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

// signStatus separates rejected input from failures of the signing key.
func signStatus(err error) int {
	if errs.IsKind(err, errs.KindSignature) || errs.IsKind(err, errs.KindInvalidKey) {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	var e *errs.Error
	if errors.As(err, &e) {
		resp.Kind = string(e.Kind)
		resp.Field = e.Field
		resp.Algorithm = e.Algorithm
	}

	logger := Logger(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Error(err))
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
