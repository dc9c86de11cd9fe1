package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"github.com/xaitan80/X-Cricket/internal/auth"
	"github.com/xaitan80/X-Cricket/internal/backend"
	"github.com/xaitan80/X-Cricket/internal/config"
	dbpkg "github.com/xaitan80/X-Cricket/internal/db"
	"github.com/xaitan80/X-Cricket/internal/matches"
	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

func main() {
	envFile, loaded := config.LoadDotenv()
	cfg, err := config.FromEnv()

	log := hclog.New(&hclog.LoggerOptions{
		Name:       "x-cricket",
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: cfg.LogJSON,
	})
	if err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}
	if loaded {
		log.Debug("loaded env file", "path", envFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Öppna DB (drafts + submission attempts), migrerar via goose
	gdb, err := dbpkg.Open(ctx, cfg.DBPath, log.Named("db"))
	if err != nil {
		log.Error("open db", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer dbpkg.Close(gdb)

	verifier := auth.NewVerifier(auth.VerifierOptions{
		Secret:  cfg.AuthJWTSecret,
		JWKSURL: cfg.AuthJWKSURL,
	}, log.Named("auth"))
	gate := auth.NewGate(verifier, cfg.AuthCookieName)

	var be backend.Backend
	switch cfg.BackendMode {
	case config.BackendPostgres:
		if !verifier.Enabled() {
			log.Warn("no AUTH_JWT_SECRET or AUTH_JWKS_URL; every caller is treated as signed out")
		}
		be, err = backend.OpenPostgres(ctx, cfg.DatabaseURL, verifier, log.Named("postgres"))
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
	default:
		be = backend.NewREST(cfg.BackendURL, cfg.BackendAnonKey, log.Named("rest"))
	}
	defer be.Close()

	submitter := scorecard.NewSubmitter(
		scorecard.Options{StrictChecks: cfg.StrictChecks},
		scorecard.Timeouts{Ping: cfg.PingTimeout, MatchData: cfg.MatchDataTimeout, Scorecard: cfg.ScorecardTimeout},
		log.Named("submit"),
	)
	hub := matches.NewHub(log.Named("events"))
	submitter.OnEvent(hub.Publish)

	// HTTP
	r := gin.Default()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error("trusted proxies", "error", err)
		os.Exit(1)
	}

	// Mutating draft routes only demand a verified token when AUTH_REQUIRED is set.
	// Otherwise the submit flow's own session check decides.
	var protect gin.HandlerFunc
	if cfg.AuthRequired {
		protect = gate.AuthRequired()
	}

	userID := func(c *gin.Context) string {
		u, ok := gate.CurrentUser(c)
		if !ok {
			return ""
		}
		return u.ID
	}

	auth.RegisterRoutes(r, gate)
	matches.RegisterRoutes(r, matches.Deps{
		Repo:      matches.NewRepo(gdb),
		Backend:   be,
		Submitter: submitter,
		Hub:       hub,
		Options:   scorecard.Options{StrictChecks: cfg.StrictChecks},
		Token:     gate.Token,
		UserID:    userID,
		Log:       log.Named("http"),
	}, protect)

	srv := &http.Server{Addr: cfg.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("listening", "addr", cfg.Addr, "backend", cfg.BackendMode, "strict_checks", cfg.StrictChecks)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "error", err)
	}
	log.Info("stopped")
}
