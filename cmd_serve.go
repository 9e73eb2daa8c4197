package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"auto_linkedin_post_publisher/logging"
	"auto_linkedin_post_publisher/metrics"
	"auto_linkedin_post_publisher/scheduler"
	"auto_linkedin_post_publisher/server"
)

var (
	serveAddr      string
	serveCron      bool
	serveRateLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve /api/cron, /approve, /metrics and /healthz",
	Long: `Starts the HTTP service. An external scheduler triggers runs through
/api/cron (Authorization: Bearer <cron secret>). With --cron the service also
schedules runs itself using cron.schedule from the config.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config server_addr)")
	serveCmd.Flags().BoolVar(&serveCron, "cron", false, "run the built-in scheduler")
	serveCmd.Flags().IntVar(&serveRateLimit, "approve-rate", 10, "approval requests per minute per client IP (0 disables)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New("serve")
	m := metrics.New()

	orch, err := buildOrchestrator(cfg, m, false)
	if err != nil {
		return err
	}
	exec, err := buildExecutor(cfg)
	if err != nil {
		return err
	}
	if cfg.Cron.Secret == "" {
		logger.Warn("cron.secret is empty; /api/cron will reject every request")
	}
	srv, err := server.New(orch, exec, server.Options{
		CronSecret:           cfg.Cron.Secret,
		ApproveRatePerMinute: serveRateLimit,
		TrustProxy:           cfg.TrustProxy,
		Metrics:              m,
		Logger:               logging.New("server"),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveCron {
		sched, err := scheduler.New(cfg.Cron.Schedule, orch, logging.New("scheduler"))
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	listen := cfg.ServerAddr
	if serveAddr != "" {
		listen = serveAddr
	}
	if listen == "" {
		listen = ":8080"
	}
	// WriteTimeout covers a full synchronous run behind /api/cron.
	hs := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RunTimeout() + 30*time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting web server", "addr", listen, "cron", serveCron)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
