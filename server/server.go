// Package server exposes the token service over HTTP: login, refresh,
// logout, JWKS and a bearer-token middleware for protected routes.
package server

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-token-service/credentials"
	"github.com/jrsteele09/go-token-service/internal/config"
	"github.com/jrsteele09/go-token-service/token"
	"github.com/jrsteele09/go-token-service/token/refresh"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	verifier  *credentials.Verifier
	issuer    *token.Issuer
	validator *token.Validator
	keyring   *token.Keyring
	refresher *refresh.Manager
}

func New(
	cfg config.Config,
	verifier *credentials.Verifier,
	issuer *token.Issuer,
	validator *token.Validator,
	keyring *token.Keyring,
	refresher *refresh.Manager,
) (*Server, error) {
	if verifier == nil || issuer == nil || validator == nil || keyring == nil || refresher == nil {
		return nil, errors.New("[Server New] all service dependencies are required")
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    cfg,
		verifier:  verifier,
		issuer:    issuer,
		validator: validator,
		keyring:   keyring,
		refresher: refresher,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			log.Info().Str("path", parts[0]).Msg("route registered")
		}
	}
}
