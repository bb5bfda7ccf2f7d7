package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walley/internal/auth"
	"walley/internal/config"
	"walley/internal/handlers"
	"walley/internal/ledger"
	"walley/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := auth.NewRegistry(cfg.SessionTTL)
	defer sessions.Clear()
	gateway := auth.NewGateway(db, sessions)

	if err := seedAdmin(ctx, db, gateway, cfg.Admin); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if cfg.SessionTTL > 0 {
		go sweepSessions(ctx, sessions, sweepInterval(cfg.SessionTTL))
	}

	h := handlers.NewHandlers(db, gateway, ledger.NewReconciler(db))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (driver=%s, session ttl=%s)", srv.Addr, db.Driver(), cfg.SessionTTL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupRouter(h *handlers.Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	h.Routes(r)
	return r
}

// seedAdmin creates the configured admin account when the database has no users yet.
func seedAdmin(ctx context.Context, db *storage.DB, gateway *auth.Gateway, admin config.AdminConfig) error {
	if !admin.Enabled() {
		return nil
	}
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	user, err := gateway.Register(ctx, admin.Email, admin.Password, admin.Name)
	if err != nil {
		return err
	}
	log.Printf("Seeded admin user %s with ID %d", user.Email, user.ID)
	return nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	return interval
}

// sweepSessions drops expired sessions until ctx is done.
func sweepSessions(ctx context.Context, sessions *auth.Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				log.Printf("Dropped %d expired sessions", n)
			}
		}
	}
}
