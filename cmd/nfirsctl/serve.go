package main

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
	"go.uber.org/zap"

	"nfirscore/internal/adapters/incidents"
	"nfirscore/internal/blob"
	"nfirscore/internal/config"
	"nfirscore/internal/core"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the incident API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.HTTP.ListenAddr = listen
			}
			logger, err := buildLogger(cfg.Log.Level, cfg.Log.Development, a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override http.listen_addr")
	return cmd
}

// buildService wires the configured stores, authorizer and observers.
func buildService(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*core.Service, *core.PrometheusMetricsRecorder, func(), error) {
	store, err := core.OpenIncidentStore(ctx, core.StorageOptions{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open incident store: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.BlobStoreConfig())
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, fmt.Errorf("open blob store: %w", err)
	}
	policy, err := config.LoadPolicy(cfg.Policy.Path)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	if len(policy.Unknown) > 0 {
		logger.Warn("policy names unknown fields", zap.Strings("keys", policy.Unknown))
	}
	authz, err := core.NewCasbinAuthorizer(cfg.ElevatedRoles()...)
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	grants := cfg.RoleGrants()
	for _, member := range cfg.DepartmentRoles() {
		if err := authz.GrantRole(member, grants[member]); err != nil {
			_ = store.Close()
			return nil, nil, nil, err
		}
	}
	metrics := core.NewPrometheusMetricsRecorder("")
	workflow := core.NewWorkflow(authz, core.WithClassificationTable(cfg.ClassificationTable()))
	svc := core.NewService(store, workflow,
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithAuditRecorder(core.NewZapAuditRecorder(logger)),
		core.WithBlobStore(blobs),
		core.WithFieldPolicy(policy.Fields),
	)
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("close incident store", zap.Error(err))
		}
	}
	return svc, metrics, cleanup, nil
}

func (a *app) serve(ctx context.Context, cfg config.AppConfig) error {
	svc, metrics, cleanup, err := buildService(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr: cfg.HTTP.ListenAddr,
		Handler: incidents.NewHandler(svc, incidents.Options{
			Logger:         a.logger.Named("http"),
			Metrics:        metrics.Handler(),
			MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
			Roles:          cfg.DepartmentRoles(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver), zap.String("blob", cfg.Blob.Driver))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
