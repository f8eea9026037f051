// Package server exposes the relayer over HTTP. Byte fields cross the boundary as
// 0x-prefixed hex and addresses as EIP-55 checksummed strings.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/stakewise/relayer-example/pkg/logger"
	"github.com/stakewise/relayer-example/pkg/relayer"
	"github.com/stakewise/relayer-example/pkg/relayerErrors"
	"github.com/stakewise/relayer-example/pkg/util"
	"go.uber.org/zap"
)

const (
	DefaultMaxValidatorsPerRequest = 100

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// IRelayer is the signing core served by the HTTP layer.
type IRelayer interface {
	Register(ctx context.Context, req *relayer.RegisterRequest) (*relayer.RegisterResponse, error)
	Fund(ctx context.Context, req *relayer.FundRequest) (*relayer.FundResponse, error)
	Withdraw(ctx context.Context, req *relayer.WithdrawRequest) (*relayer.SignatureResponse, error)
	Consolidate(ctx context.Context, req *relayer.ConsolidateRequest) (*relayer.SignatureResponse, error)
}

type Config struct {
	Host                    string
	Port                    int
	Network                 string
	MaxValidatorsPerRequest int
	// AllowedOrigins are the CORS origins; empty allows any origin
	AllowedOrigins []string
}

type Server struct {
	config  *Config
	relayer IRelayer
	router  *mux.Router
	logger  *zap.Logger
}

func NewServer(cfg *Config, r IRelayer, l *zap.Logger) *Server {
	if cfg.MaxValidatorsPerRequest <= 0 {
		cfg.MaxValidatorsPerRequest = DefaultMaxValidatorsPerRequest
	}
	s := &Server{
		config:  cfg,
		relayer: r,
		router:  mux.NewRouter(),
		logger:  l,
	}
	s.router.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/fund", s.handleFund).Methods(http.MethodPost)
	s.router.HandleFunc("/withdraw", s.handleWithdraw).Methods(http.MethodPost)
	s.router.HandleFunc("/consolidate", s.handleConsolidate).Methods(http.MethodPost)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return s
}

// Handler is the router wrapped in CORS and request logging.
// Cross-origin requests never carry credentials.
func (s *Server) Handler() http.Handler {
	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return logger.HttpLoggerMiddleware(c.Handler(s.router), s.logger)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Sugar().Infow("Starting relayer server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("relayer server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("Existing connections terminated")
			return nil
		}
		return fmt.Errorf("failed to shut down relayer server: %w", err)
	}
	s.logger.Info("Relayer server stopped")
	return nil
}

// statusFor maps an error kind to its HTTP status. Errors without a kind come
// from the execution client.
func statusFor(err error) int {
	switch {
	case errors.Is(err, relayerErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, relayerErrors.ErrLookup):
		return http.StatusNotFound
	case errors.Is(err, relayerErrors.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, relayerErrors.ErrConfiguration):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Sugar().Errorw("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Sugar().Errorw("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	s.writeJSON(w, status, &errorJSON{Message: err.Error(), Code: status})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return relayerErrors.Validation(op, "no data submitted")
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return relayerErrors.Validation(op, "could not decode request body: %v", err)
	}
	return nil
}

func (s *Server) checkBatch(op string, n int) error {
	if n > s.config.MaxValidatorsPerRequest {
		return relayerErrors.Validation(op, "%d items exceed the limit of %d per request", n, s.config.MaxValidatorsPerRequest)
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "register"
	body := &registerRequestJSON{}
	if err := s.decode(w, r, op, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	vault, err := parseVault(body.Vault)
	if err != nil {
		s.writeError(w, r, relayerErrors.Validation(op, "%v", err))
		return
	}
	if err := s.checkBatch(op, len(body.Amounts)); err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.relayer.Register(r.Context(), &relayer.RegisterRequest{
		Vault:         vault,
		StartIndex:    body.ValidatorsStartIndex,
		Amounts:       body.Amounts,
		ValidatorType: body.ValidatorType,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &validatorsResponseJSON{
		Validators:                 util.Map(resp.Validators, toValidatorJSON),
		ValidatorsManagerSignature: hexutil.Encode(resp.ValidatorsManagerSignature),
	})
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	const op = "fund"
	body := &fundRequestJSON{}
	if err := s.decode(w, r, op, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	vault, err := parseVault(body.Vault)
	if err != nil {
		s.writeError(w, r, relayerErrors.Validation(op, "%v", err))
		return
	}
	if err := s.checkBatch(op, len(body.PublicKeys)); err != nil {
		s.writeError(w, r, err)
		return
	}
	keys, err := parsePublicKeys(body.PublicKeys)
	if err != nil {
		s.writeError(w, r, relayerErrors.Validation(op, "%v", err))
		return
	}

	resp, err := s.relayer.Fund(r.Context(), &relayer.FundRequest{
		Vault:      vault,
		PublicKeys: keys,
		Amounts:    body.Amounts,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &validatorsResponseJSON{
		Validators:                 util.Map(resp.Validators, toValidatorJSON),
		ValidatorsManagerSignature: hexutil.Encode(resp.ValidatorsManagerSignature),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	const op = "withdraw"
	body := &withdrawRequestJSON{}
	if err := s.decode(w, r, op, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	vault, err := parseVault(body.Vault)
	if err != nil {
		s.writeError(w, r, relayerErrors.Validation(op, "%v", err))
		return
	}
	if err := s.checkBatch(op, len(body.PublicKeys)); err != nil {
		s.writeError(w, r, err)
		return
	}
	keys, err := parsePublicKeys(body.PublicKeys)
	if err != nil {
		s.writeError(w, r, relayerErrors.Validation(op, "%v", err))
		return
	}

	resp, err := s.relayer.Withdraw(r.Context(), &relayer.WithdrawRequest{
		Vault:      vault,
		PublicKeys: keys,
		Amounts:    body.Amounts,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &signatureResponseJSON{
		ValidatorsManagerSignature: hexutil.Encode(resp.ValidatorsManagerSignature),
	})
}

func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	const op = "consolidate"
	body := &consolidateRequestJSON{}
	if err := s.decode(w, r, op, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	vault, err := parseVault(body.Vault)
	if err != nil {
		s.writeError(w, r, relayerErrors.Validation(op, "%v", err))
		return
	}
	if err := s.checkBatch(op, len(body.SourcePublicKeys)); err != nil {
		s.writeError(w, r, err)
		return
	}
	sources, err := parsePublicKeys(body.SourcePublicKeys)
	if err != nil {
		s.writeError(w, r, relayerErrors.Validation(op, "source: %v", err))
		return
	}
	targets, err := parsePublicKeys(body.TargetPublicKeys)
	if err != nil {
		s.writeError(w, r, relayerErrors.Validation(op, "target: %v", err))
		return
	}

	resp, err := s.relayer.Consolidate(r.Context(), &relayer.ConsolidateRequest{
		Vault:            vault,
		SourcePublicKeys: sources,
		TargetPublicKeys: targets,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, &signatureResponseJSON{
		ValidatorsManagerSignature: hexutil.Encode(resp.ValidatorsManagerSignature),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, &infoResponseJSON{Network: s.config.Network})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
