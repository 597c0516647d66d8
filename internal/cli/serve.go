package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kihaltung/attitude/internal/api"
	"github.com/kihaltung/attitude/internal/middleware"
	"github.com/kihaltung/attitude/internal/services"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = 10 * time.Minute
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd)
		},
	}
}

// buildHandler wires services and middleware for a loaded app.
func buildHandler(a *app, limiter services.Limiter) http.Handler {
	cfg := a.cfg
	if cfg.Auth.TokenSecret == "" {
		a.log.Warn("auth.token_secret is empty, using the development secret")
	}
	router := api.NewRouter(api.Options{
		Store:          a.store,
		Tokens:         middleware.NewTokenSigner(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL),
		Limiter:        limiter,
		Hasher:         services.NewDeviceHasher(cfg.Challenges.DeviceSalt),
		PageSize:       cfg.DB.PageSize,
		AllowRegister:  cfg.Auth.AllowRegister,
		AutoApprove:    cfg.Challenges.AutoApprove,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		Log:            a.log,
		Commit:         Version,
		BuildTime:      BuildTime,
	})
	var static http.Handler
	if cfg.StaticDir != "" {
		static = http.FileServer(http.Dir(cfg.StaticDir))
	}
	return router.Handler(static)
}

func runServe(ctx context.Context, opts *rootOptions, cmd *cobra.Command) error {
	a, err := loadApp(ctx, opts, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			a.log.Warn("close store: %v", err)
		}
	}()

	limiter := services.NewKeyedLimiter(a.cfg.Submissions.PerHour, a.cfg.Submissions.Burst)
	go limiter.PruneEvery(ctx, pruneInterval)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           buildHandler(a, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("attitude server listening on %s (driver %s)", a.cfg.Addr, a.cfg.DB.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
