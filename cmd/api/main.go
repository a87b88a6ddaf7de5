package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"docuvault.org/internal/audit"
	"docuvault.org/internal/auth"
	"docuvault.org/internal/config"
	"docuvault.org/internal/docs"
	"docuvault.org/internal/httpapi"
	"docuvault.org/internal/obs"
)

var version = "0.3.0"

func main() {
	obs.Init()
	cfg := config.Load()

	secret := cfg.TokenSecret
	if secret == "" {
		if cfg.Env != "development" {
			log.Fatal("DOCUVAULT_TOKEN_SECRET is required outside development")
		}
		secret = "dev-secret-change-me"
	}

	var (
		db           *sql.DB
		accountStore auth.AccountStore
		documentDB   docs.Store
		auditStore   audit.Store
	)
	if cfg.PGDSN != "" {
		var err error
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		accountStore = auth.NewPGStore(db)
		documentDB = docs.NewPGStore(db)
		auditStore = audit.NewPGStore(db)
	} else {
		log.Println("no DSN configured, using in-memory stores")
		accountStore = auth.NewMemoryStore()
		documentDB = docs.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}

	tokens, err := auth.NewTokenService(secret,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	recorder := audit.NewRecorder(auditStore)
	authSvc := auth.NewService(accountStore, tokens, recorder)
	authz := auth.NewAuthorizer(recorder)
	docSvc := docs.NewService(documentDB)

	if cfg.Env == "development" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := auth.SeedAccounts(ctx, accountStore, auth.DefaultSeeds()); err != nil {
			log.Fatalf("seed accounts: %v", err)
		}
		if admin, err := accountStore.FindByUsernameOrEmail(ctx, "admin"); err == nil {
			if err := docs.SeedDocuments(ctx, documentDB, admin.ID); err != nil {
				log.Fatalf("seed documents: %v", err)
			}
		}
		cancel()
	}

	api := httpapi.New(httpapi.Options{
		Auth:       authSvc,
		Authz:      authz,
		Docs:       docSvc,
		Recorder:   recorder,
		AuditLog:   auditStore,
		Ready:      httpapi.ReadyProbe{DB: db},
		Version:    version,
		RateBurst:  cfg.RateBurst,
		RatePerSec: cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting docuvault-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	api.Close()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
