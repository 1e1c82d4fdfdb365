package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"loadtracker.app/internal/auth"
	"loadtracker.app/internal/config"
	"loadtracker.app/internal/httpapi"
	"loadtracker.app/internal/inventory"
	"loadtracker.app/internal/mail"
	"loadtracker.app/internal/migrate"
	"loadtracker.app/internal/obs"
	"loadtracker.app/internal/project"
	"loadtracker.app/internal/store/pg"
	"loadtracker.app/internal/upload"
)

var version = "1.3.0"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	var (
		authStore auth.Store
		invStore  inventory.Store
		projStore project.Store
		probe     httpapi.ReadyProbe
		pgStore   *pg.Store
		runner    *migrate.Runner
	)
	if cfg.DatabaseDSN != "" {
		pgStore, err = pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		runner = migrate.NewRunner(pgStore.DB(), cfg.MigrationsDir, cfg.SeedsDir)
		if _, err := runner.Up(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		authStore = pgStore
		invStore = pgStore
		projStore = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		// No DSN means local development against in-memory state.
		log.Printf("LOADTRACKER_PG_DSN not set, using in-memory stores")
		authStore = auth.NewMemoryStore()
		invStore = inventory.NewMemoryStore()
		projStore = project.NewMemoryStore()
	}

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		Issuer:        cfg.TokenIssuer,
		Audience:      cfg.TokenAudience,
		AccessTTL:     cfg.AccessTTL,
		RememberTTL:   cfg.RememberMeTTL,
		RefreshTTL:    cfg.RefreshTTL,
		ResetTTL:      cfg.ResetTokenTTL,
	}, nil)
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	opts := []auth.ServiceOption{
		auth.WithResetURL(strings.TrimRight(cfg.PublicURL, "/") + "/reset-password"),
	}
	if cfg.SMTPAddr != "" {
		mailer, err := mail.New(mail.Config{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		}, nil)
		if err != nil {
			log.Fatalf("mail: %v", err)
		}
		opts = append(opts, auth.WithMailer(mailer))
	}

	authSvc, err := auth.NewService(authStore, issuer, opts...)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	if err := authSvc.EnsureBuiltins(ctx); err != nil {
		log.Fatalf("ensure permissions: %v", err)
	}
	// Seeds run after the permission catalog exists, so seed files may
	// reference permissions by key.
	if runner != nil {
		if _, err := runner.Seed(ctx); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	invSvc, err := inventory.NewService(invStore)
	if err != nil {
		log.Fatalf("inventory service: %v", err)
	}
	projSvc, err := project.NewService(projStore)
	if err != nil {
		log.Fatalf("project service: %v", err)
	}

	uploadBase := cfg.UploadBaseURL
	if strings.HasPrefix(uploadBase, "/") {
		uploadBase = strings.TrimRight(cfg.PublicURL, "/") + uploadBase
	}
	uploadSvc, err := upload.NewService(cfg.UploadDir, uploadBase)
	if err != nil {
		log.Fatalf("upload service: %v", err)
	}

	api := httpapi.New(probe, version, authSvc, invSvc, projSvc, uploadSvc)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	mux := http.NewServeMux()
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	mux.Handle("/", api.Handler())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting loadtracker-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
