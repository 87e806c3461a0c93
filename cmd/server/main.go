package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-token-service/credentials"
	"github.com/jrsteele09/go-token-service/internal/config"
	"github.com/jrsteele09/go-token-service/revocation"
	"github.com/jrsteele09/go-token-service/server"
	"github.com/jrsteele09/go-token-service/token"
	"github.com/jrsteele09/go-token-service/token/refresh"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	srv, store, err := buildServer(c)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go cleanupLoop(cleanupCtx, store, c.GetCleanupInterval())

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	return shutdown(httpServer)
}

func buildServer(c config.Config) (*server.Server, revocation.Store, error) {
	keyring, err := buildKeyring(c)
	if err != nil {
		return nil, nil, err
	}

	var (
		store   revocation.Store
		tracker credentials.AttemptTracker
	)
	if addr := c.GetRedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		store = revocation.NewRedisStore(client, revocation.WithRedisTimeout(c.GetStoreTimeout()))
		tracker = credentials.NewRedisAttemptTracker(client, c.GetLockoutWindow())
		log.Info().Str("addr", addr).Msg("using redis revocation store")
	} else {
		store = revocation.NewInMemoryStore()
		tracker = credentials.NewInMemoryAttemptTracker(c.GetLockoutWindow())
		log.Info().Msg("using in-memory revocation store")
	}

	repo := credentials.NewInMemoryRepo()
	if err := seedBootstrapCredential(c, repo); err != nil {
		return nil, nil, err
	}

	verifier, err := credentials.NewVerifier(repo, tracker, credentials.LockoutPolicy{
		MaxAttempts: c.GetMaxLoginAttempts(),
		Window:      c.GetLockoutWindow(),
	})
	if err != nil {
		return nil, nil, err
	}

	issuer := token.NewIssuer(keyring, store,
		token.WithIssuer(c.GetIssuer()),
		token.WithAudience(c.GetAudience()),
		token.WithTokenExpiry(c.GetAccessTokenTTL(), c.GetRefreshTokenTTL()),
	)
	validator := token.NewValidator(keyring, store,
		token.WithExpectedIssuer(c.GetIssuer()),
		token.WithExpectedAudience(c.GetAudience()),
	)
	refresher := refresh.New(issuer, store)

	srv, err := server.New(c, verifier, issuer, validator, keyring, refresher)
	if err != nil {
		return nil, nil, err
	}
	return srv, store, nil
}

// buildKeyring signs with the configured HMAC secret when one is set,
// otherwise with an RSA key generated at startup whose public half is
// served via JWKS.
func buildKeyring(c config.Config) (*token.Keyring, error) {
	grace := token.WithGracePeriod(c.GetKeyGracePeriod())

	if secret := c.GetSigningSecret(); secret != "" {
		return token.NewKeyring(token.NewHMACSigner(c.GetSigningKeyID(), secret), grace), nil
	}

	keyPair, err := token.GenerateRSAKeyPair(c.GetSigningKeyID(), 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	log.Info().Str("key_id", keyPair.KeyID).Msg("generated RSA signing key")
	return token.NewKeyring(token.NewKeyPairSigner(keyPair), grace), nil
}

// seedBootstrapCredential stores the configured bootstrap account so an
// empty credential store has one account to log in with.
func seedBootstrapCredential(c config.Config, repo credentials.Repo) error {
	identifier := c.GetBootstrapIdentifier()
	secret := c.GetBootstrapSecret()
	if identifier == "" || secret == "" {
		log.Warn().Msg("no bootstrap credential configured, logins will fail until one is added")
		return nil
	}

	hash, err := credentials.HashSecret(secret)
	if err != nil {
		return fmt.Errorf("hash bootstrap secret: %w", err)
	}
	if err := repo.Upsert(context.Background(), &credentials.Credential{
		Identifier: identifier,
		SecretHash: hash,
		Roles:      []string{"admin"},
	}); err != nil {
		return fmt.Errorf("seed bootstrap credential: %w", err)
	}
	log.Info().Str("identifier", identifier).Msg("seeded bootstrap credential")
	return nil
}

func cleanupLoop(ctx context.Context, store revocation.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx); err != nil {
				log.Warn().Err(err).Msg("revocation store cleanup failed")
			}
		}
	}
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
