// Package startcmd implements the irisd start command.
package startcmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	iris "github.com/smartbcity/iris-go"
	"github.com/smartbcity/iris-go/config"
	"github.com/smartbcity/iris-go/credential/common/crypto"
	"github.com/smartbcity/iris-go/credential/common/keyloader"
	"github.com/smartbcity/iris-go/credential/common/ldsign"
	"github.com/smartbcity/iris-go/credential/common/processor"
	irisserver "github.com/smartbcity/iris-go/internal/server"
)

const (
	configFlagName      = "config"
	configFlagShorthand = "c"
	configEnvKey        = "IRIS_CONFIG"
	configFlagUsage     = "Path to the YAML configuration file." +
		" Alternatively, this can be set with the following environment variable: " + configEnvKey

	logLevelFlagName  = "log-level"
	logLevelFlagUsage = "Log level (debug, info, warn, error). Overrides the configuration file." +
		" Alternatively, this can be set with the following environment variable: " + config.EnvLogLevel

	readHeaderTimeout = 10 * time.Second
)

var errMissingServer = errors.New("server cannot be nil")

type server interface {
	ListenAndServe(addr string, handler http.Handler) error
}

// HTTPServer serves with net/http.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return srv.ListenAndServe()
}

// Cmd returns the start command.
func Cmd(srv server) (*cobra.Command, error) {
	if srv == nil {
		return nil, errMissingServer
	}
	startCmd := createStartCMD(srv)
	createFlags(startCmd)
	return startCmd, nil
}

func createStartCMD(srv server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start irisd",
		Long:  "Start the credential signing and verification service",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := getUserSetVar(cmd, configFlagName, configEnvKey)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			level, err := getUserSetVar(cmd, logLevelFlagName, config.EnvLogLevel)
			if err != nil {
				return err
			}
			if level != "" {
				cfg.Log.Level = level
			}

			logger, err := newLogger(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			handler, err := newHandler(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info("starting irisd", zap.String("addr", cfg.Server.Addr))
			if err := srv.ListenAndServe(cfg.Server.Addr, handler); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to start irisd on [%s], cause: %w", cfg.Server.Addr, err)
			}
			return nil
		},
	}
}

func createFlags(startCmd *cobra.Command) {
	startCmd.Flags().StringP(configFlagName, configFlagShorthand, "", configFlagUsage)
	startCmd.Flags().String(logLevelFlagName, "", logLevelFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %w", err)
		}
		return value, nil
	}
	return os.Getenv(envKey), nil
}

// newLogger builds a production logger writing JSON to stdout.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.Level = lvl
	return cfg.Build()
}

func newHandler(cfg *config.Config, logger *zap.Logger) (http.Handler, error) {
	registry, defaultAlg, err := loadProviders(cfg.Keys)
	if err != nil {
		return nil, err
	}

	var procOpts []processor.Opt
	if cfg.Processor.StrictTerms {
		procOpts = append(procOpts, processor.WithStrictTerms())
	}

	s, err := irisserver.New(registry, cfg.Keys.VerificationMethod,
		irisserver.WithLogger(logger),
		irisserver.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		irisserver.WithRequestTimeout(cfg.Server.RequestTimeout),
		irisserver.WithDefaultAlgorithm(defaultAlg),
		irisserver.WithSignOpts(
			ldsign.WithLogger(logger),
			ldsign.WithProcessor(processor.New(procOpts...)),
		),
	)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// loadProviders registers the configured keys. RSA is the default proof
// type when both are present.
func loadProviders(keys config.Keys) (*iris.Registry, string, error) {
	registry, err := iris.NewRegistry()
	if err != nil {
		return nil, "", err
	}

	var defaultAlg string
	secp, err := secp256k1Provider(keys)
	if err != nil {
		return nil, "", err
	}
	if secp != nil {
		if err := registry.Register(secp); err != nil {
			return nil, "", err
		}
		defaultAlg = secp.Algorithm()
	}
	if keys.RSAKey != "" {
		pair, err := keyloader.New(os.DirFS(keys.Dir)).LoadKeyPair(keys.RSAKey)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load RSA key %s: %w", keys.RSAKey, err)
		}
		p, err := crypto.NewRSASignature2018(pair.Private)
		if err != nil {
			return nil, "", err
		}
		if err := registry.Register(p); err != nil {
			return nil, "", err
		}
		defaultAlg = p.Algorithm()
	}
	return registry, defaultAlg, nil
}

func secp256k1Provider(keys config.Keys) (crypto.SignatureProvider, error) {
	switch {
	case keys.RemoteSigner.Enabled():
		p, err := crypto.NewRemoteSecp256k1Signature2019(keys.RemoteSigner.Endpoint, keys.RemoteSigner.PublicKey,
			crypto.WithAPIKey(keys.RemoteSigner.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to configure remote signer: %w", err)
		}
		return p, nil
	case keys.Secp256k1Key != "":
		p, err := crypto.NewSecp256k1Signature2019FromHex(keys.Secp256k1Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load secp256k1 key: %w", err)
		}
		return p, nil
	}
	return nil, nil
}
