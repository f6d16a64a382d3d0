package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medloom/internal/api"
	"github.com/KaramelBytes/medloom/internal/kb"
	"github.com/KaramelBytes/medloom/internal/metrics"
)

var (
	serveAddr     string
	serveProvider string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge base, dashboard and chat endpoint over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := kb.NewStore(kbPath())
		if err := store.Load(); err != nil {
			log.WithError(err).Warn("knowledge base not loaded; POST /admin/reload after running the pipeline")
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)

		r, err := newResponder(cfg, store, m, serveProvider, "")
		if err != nil {
			return err
		}

		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := &http.Server{
			Addr: addr,
			Handler: api.New(api.Config{
				Store:          store,
				Responder:      r,
				CleanedDir:     cfg.CleanedDir,
				Logger:         log,
				Metrics:        m,
				MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				ChatRate:       cfg.ChatRateLimit,
				ChatBurst:      cfg.ChatBurst,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", addr).Info("listening")
			errCh <- srv.ListenAndServe()
		}()
		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-ctx.Done():
		}
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config listen_addr)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "external model provider: gemini, openrouter, ollama or none (overrides config)")
}
