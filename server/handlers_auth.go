package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	autherrors "github.com/jrsteele09/go-token-service/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// LoginHandler verifies credentials and issues a fresh token pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" || req.Secret == "" {
			writeJSONError(w, "invalid_request", http.StatusBadRequest)
			return
		}

		identity, err := s.verifier.Verify(r.Context(), req.Identifier, req.Secret)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		pair, err := s.issuer.Issue(r.Context(), identity)
		if err != nil {
			log.Error().Err(err).Msg("login token issuance failed")
			writeAuthError(w, err)
			return
		}

		writeTokenPair(w, pair)
	}
}

// RefreshHandler rotates a refresh token. A reused token has already
// triggered family revocation by the time the 401 goes out.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeJSONError(w, "invalid_request", http.StatusBadRequest)
			return
		}

		pair, err := s.refresher.Rotate(r.Context(), req.RefreshToken)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		writeTokenPair(w, pair)
	}
}

// LogoutHandler revokes the refresh token's family and, when a bearer
// token accompanies the request, blacklists that access token too.
// Idempotent: repeated calls with the same token return 204.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			writeJSONError(w, "invalid_request", http.StatusBadRequest)
			return
		}

		if err := s.refresher.Logout(r.Context(), req.RefreshToken); err != nil {
			log.Error().Err(err).Msg("logout failed")
			writeAuthError(w, err)
			return
		}

		if raw := bearerToken(r); raw != "" {
			if err := s.refresher.BlacklistAccess(r.Context(), s.validator, raw); err != nil {
				log.Warn().Err(err).Msg("access token blacklisting failed")
			}
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler is the reference protected endpoint: it echoes the identity
// the middleware resolved from the bearer token.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil {
			writeJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(identity)
	}
}

// JWKSHandler serves the public keys of the keyring for asymmetric
// signing setups.
func (s *Server) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.keyring.JWKS()
		if err != nil {
			log.Error().Err(err).Msg("jwks generation failed")
			writeJSONError(w, "internal_error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(jwks)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func writeTokenPair(w http.ResponseWriter, pair interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	_ = json.NewEncoder(w).Encode(pair)
}

// writeAuthError maps an error to the uniform boundary response: auth
// failures become 401 with only the kind, store outages become 503, and
// everything else is an opaque 500.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case autherrors.IsAuthFailure(err):
		writeJSONError(w, autherrors.Kind(err), http.StatusUnauthorized)
	case autherrors.Is(err, autherrors.ErrUnavailable):
		w.Header().Set("Retry-After", "1")
		writeJSONError(w, autherrors.Kind(err), http.StatusServiceUnavailable)
	default:
		writeJSONError(w, "internal_error", http.StatusInternalServerError)
	}
}

func writeJSONError(w http.ResponseWriter, kind string, status int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: kind})
}
