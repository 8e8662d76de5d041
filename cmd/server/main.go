package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/social-auth/auth"
	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/clients/gormrepo"
	clientmemrepo "github.com/jrsteele09/social-auth/clients/memrepo"
	"github.com/jrsteele09/social-auth/grants"
	"github.com/jrsteele09/social-auth/internal/config"
	"github.com/jrsteele09/social-auth/kv"
	"github.com/jrsteele09/social-auth/kv/boltstore"
	"github.com/jrsteele09/social-auth/kv/memstore"
	"github.com/jrsteele09/social-auth/kv/redisstore"
	"github.com/jrsteele09/social-auth/server"
	"github.com/jrsteele09/social-auth/sessions"
	"github.com/jrsteele09/social-auth/token"
	usermemrepo "github.com/jrsteele09/social-auth/users/memrepo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx := context.Background()
	backend, err := openBackend(ctx, c)
	if err != nil {
		return err
	}
	defer backend.Close()

	clientRepo, err := openClientRepo(ctx, c)
	if err != nil {
		return err
	}
	userRepo := usermemrepo.NewUserRepo()
	if _, err := server.Bootstrap(ctx, c, clientRepo, userRepo); err != nil {
		return err
	}

	signer, err := token.NewSigner(c.GetSigningAlgorithm(), c.GetSigningSecret())
	if err != nil {
		return errors.Wrap(err, "token.NewSigner")
	}
	tokens := token.New(signer,
		token.WithIssuer(c.GetBaseURL()),
		token.WithAudience(c.GetTokenAudience()),
		token.WithTokenExpiry(c.GetAccessTokenTTL(), c.GetAuthCodeTTL()),
	)

	handler, err := server.New(c, auth.Repos{
		Users:    userRepo,
		Sessions: sessions.NewKVRepo(backend),
		Clients:  clientRepo,
		Grants:   grants.NewStore(backend, grants.NewMapper(clientRepo), grants.WithKeyPrefix(c.GetStoreKeyPrefix())),
	}, tokens, backend)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() { serverErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serverErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openBackend connects the key-value store holding grants and pending authorization requests.
func openBackend(ctx context.Context, c config.Config) (kv.Store, error) {
	switch backend := c.GetStoreBackend(); backend {
	case config.StoreBackendMemory:
		log.Warn().Msg("grants are kept in memory and are lost on restart")
		return memstore.New(), nil
	case config.StoreBackendRedis:
		store, err := redisstore.New(ctx, redisstore.Config{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "redisstore.New")
		}
		log.Info().Str("addr", c.GetRedisAddr()).Int("db", c.GetRedisDB()).Msg("using redis grant store")
		return store, nil
	case config.StoreBackendBolt:
		if err := os.MkdirAll(filepath.Dir(c.GetBoltPath()), 0o700); err != nil {
			return nil, errors.Wrap(err, "create bolt directory")
		}
		store, err := boltstore.New(c.GetBoltPath())
		if err != nil {
			return nil, errors.Wrap(err, "boltstore.New")
		}
		log.Info().Str("path", c.GetBoltPath()).Msg("using bolt grant store")
		return store, nil
	default:
		return nil, errors.Errorf("unknown STORE_BACKEND %q", backend)
	}
}

// openClientRepo returns the Postgres client directory when DATABASE_URL is set.
func openClientRepo(ctx context.Context, c config.Config) (clients.Repo, error) {
	dsn := c.GetDatabaseURL()
	if dsn == "" {
		if c.GetStoreBackend() != config.StoreBackendMemory {
			log.Warn().Str("backend", c.GetStoreBackend()).
				Msg("client directory is in memory: seeded clients keep their ids across restarts but get new secrets")
		}
		return clientmemrepo.NewClientRepo(), nil
	}
	repo, err := gormrepo.Connect(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "gormrepo.Connect")
	}
	log.Info().Msg("using postgres client directory")
	return repo, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server.ListenAndServe")
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
