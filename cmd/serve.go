package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bashir0609/surfe-toolkit/internal/resilience"
	"github.com/bashir0609/surfe-toolkit/internal/server"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long:  "Serves the enrichment and search pipelines over HTTP. Clients create a session with their API key, then run enrichments, paged searches and lookalike queries against it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store := server.NewSessionStore(sessionClientFactory)
		srv := server.New(store,
			server.WithPollSettings(cfg.Poll.Interval(), cfg.Poll.Timeout()),
			server.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		hs := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			hs.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// sessionClientFactory builds one API client per dashboard session, honoring
// the session's requested request spacing.
func sessionClientFactory(apiKey string, delaySecs float64) surfe.Client {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Surfe.MaxRetries
	retry.InitialBackoff = time.Duration(cfg.Surfe.BackoffMSecs) * time.Millisecond

	opts := []surfe.Option{
		surfe.WithBaseURL(cfg.Surfe.BaseURL),
		surfe.WithTimeout(time.Duration(cfg.Surfe.TimeoutSecs) * time.Second),
		surfe.WithRetry(retry),
	}
	if delaySecs >= 0.1 && delaySecs <= 5.0 {
		opts = append(opts, surfe.WithRequestDelay(time.Duration(delaySecs*float64(time.Second))))
	} else {
		opts = append(opts, surfe.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Surfe.RatePerSec), cfg.Surfe.Burst)))
	}
	return surfe.NewClient(apiKey, opts...)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
