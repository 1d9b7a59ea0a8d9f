package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bashir0609/surfe-toolkit/internal/config"
	"github.com/bashir0609/surfe-toolkit/internal/resilience"
	"github.com/bashir0609/surfe-toolkit/pkg/surfe"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "surfe-toolkit",
	Short: "Company and people data enrichment toolkit",
	Long:  "Enriches CSV lists of companies and people via the Surfe API, searches companies with paged continuation, and finds lookalike organizations.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newSurfeClient builds an API client from config plus the global --api-key
// and --delay overrides.
func newSurfeClient() (surfe.Client, error) {
	key := apiKeyFlag
	if key == "" {
		key = cfg.Surfe.Key
	}
	if key == "" {
		return nil, fmt.Errorf("no API key: set --api-key or SURFE_SURFE_KEY")
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Surfe.MaxRetries
	retry.InitialBackoff = time.Duration(cfg.Surfe.BackoffMSecs) * time.Millisecond

	opts := []surfe.Option{
		surfe.WithBaseURL(cfg.Surfe.BaseURL),
		surfe.WithTimeout(time.Duration(cfg.Surfe.TimeoutSecs) * time.Second),
		surfe.WithRetry(retry),
	}

	delay := delayFlag
	if delay == 0 {
		delay = cfg.Surfe.DelaySecs
	}
	if delay != 0 {
		if delay < 0.1 || delay > 5.0 {
			return nil, fmt.Errorf("--delay must be between 0.1 and 5.0 seconds, got %g", delay)
		}
		opts = append(opts, surfe.WithRequestDelay(time.Duration(delay*float64(time.Second))))
	} else {
		opts = append(opts, surfe.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Surfe.RatePerSec), cfg.Surfe.Burst)))
	}

	return surfe.NewClient(key, opts...), nil
}

var (
	apiKeyFlag string
	delayFlag  float64
)

func main() {
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "Surfe API key (overrides config and environment)")
	rootCmd.PersistentFlags().Float64Var(&delayFlag, "delay", 0, "seconds between API requests, 0.1-5.0 (0 uses the default rate limit)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
