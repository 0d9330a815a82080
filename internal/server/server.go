// Package server exposes credential signing and proof verification over
// HTTP.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	iris "github.com/smartbcity/iris-go"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
)

// Routes served by the handler.
const (
	SignCredentialPath   = "/v1/credentials/sign"
	VerifyCredentialPath = "/v1/credentials/verify"
	CheckDIDPath         = "/v1/dids/check"
	HealthPath           = "/healthz"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxBodyBytes          = 1 << 20
)

// Server signs with, and verifies against, the providers of a registry.
type Server struct {
	registry           *iris.Registry
	verificationMethod string
	defaultAlgorithm   string
	allowedOrigins     []string
	requestTimeout     time.Duration
	signOpts           []ldsign.Opt
	logger             *zap.Logger
}

// Opt configures a Server.
type Opt func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Opt {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins restricts CORS to origins. All origins are allowed by default.
func WithAllowedOrigins(origins ...string) Opt {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithRequestTimeout(d time.Duration) Opt {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// WithDefaultAlgorithm sets the proof type used when a sign request names none.
func WithDefaultAlgorithm(alg string) Opt {
	return func(s *Server) {
		s.defaultAlgorithm = alg
	}
}

// WithSignOpts sets the options passed to every sign and verify call.
func WithSignOpts(opts ...ldsign.Opt) Opt {
	return func(s *Server) {
		s.signOpts = opts
	}
}

// New returns a server issuing proofs under verificationMethod.
func New(registry *iris.Registry, verificationMethod string, opts ...Opt) (*Server, error) {
	if registry == nil || len(registry.Algorithms()) == 0 {
		return nil, errors.New("at least one signature provider is required")
	}
	if verificationMethod == "" {
		return nil, errors.New("verification method cannot be empty")
	}

	s := &Server{
		registry:           registry,
		verificationMethod: verificationMethod,
		requestTimeout:     defaultRequestTimeout,
		logger:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.defaultAlgorithm == "" {
		s.defaultAlgorithm = registry.Algorithms()[0]
	}
	if _, ok := registry.Provider(s.defaultAlgorithm); !ok {
		return nil, errors.New("no provider registered for default algorithm " + s.defaultAlgorithm)
	}
	return s, nil
}

// Router returns the API routes without middleware.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc(SignCredentialPath, s.signCredential).Methods(http.MethodPost)
	router.HandleFunc(VerifyCredentialPath, s.verifyCredential).Methods(http.MethodPost)
	router.HandleFunc(CheckDIDPath, s.checkDID).Methods(http.MethodPost)
	router.HandleFunc(HealthPath, s.health).Methods(http.MethodGet)
	return router
}

// Handler returns the router wrapped with correlation ids, request
// timeouts, CORS and OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.Router()
	handler = s.correlate(handler)
	handler = http.TimeoutHandler(handler, s.requestTimeout, `{"error":"request timed out"}`)
	handler = cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", HeaderTraceID},
		ExposedHeaders: []string{HeaderTraceID},
	}).Handler(handler)
	return otelhttp.NewHandler(handler, "irisd")
}
