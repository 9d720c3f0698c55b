// bazaar serves NSE market data: index snapshots, movers, sector
// performance, instrument profiles and price charts.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/bazaar/internal/config"
	"github.com/seenimoa/bazaar/internal/datasource"
	"github.com/seenimoa/bazaar/internal/engine"
	"github.com/seenimoa/bazaar/internal/infra"
	"github.com/seenimoa/bazaar/internal/logging"
	"github.com/seenimoa/bazaar/internal/refcache"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global state built in PersistentPreRunE.
var (
	cfg *config.Config
	log *logging.Log
	eng *engine.Engine
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bazaar",
	Short: "NSE market data aggregator",
	Long: `bazaar aggregates live NSE quotes with Yahoo Finance history and
fundamentals into market snapshots, top movers, sector performance,
instrument profiles and chart series. Run "bazaar serve" for the
HTTP/WebSocket API or use the subcommands for one-off lookups.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		log = newLogger(cfg)
		eng = newEngine(cfg, log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(vixCmd)
	rootCmd.AddCommand(moversCmd)
	rootCmd.AddCommand(sectorsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(trendingCmd)
	rootCmd.AddCommand(constituentsCmd)
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) *logging.Log {
	return logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

// newEngine wires both adapters, the constituent cache and the engine.
func newEngine(cfg *config.Config, log *logging.Log) *engine.Engine {
	nse := datasource.NewNSE(
		cfg.NSE.BaseURL,
		time.Duration(cfg.NSE.CookieTTLSec)*time.Second,
		datasource.WithRateLimit(cfg.NSE.RateLimit),
		datasource.WithTimeout(time.Duration(cfg.NSE.TimeoutSec)*time.Second),
		datasource.WithLogger(log),
	)
	yf := datasource.NewYFinance(
		datasource.YFEndpoints{
			ChartURL:   cfg.YFinance.ChartURL,
			SummaryURL: cfg.YFinance.SummaryURL,
			ProfileURL: cfg.YFinance.ProfileURL,
		},
		datasource.WithRateLimit(cfg.YFinance.RateLimit),
		datasource.WithTimeout(time.Duration(cfg.YFinance.TimeoutSec)*time.Second),
		datasource.WithLogger(log),
	)
	refs := refcache.New(nse, cfg.Cache.ConstituentTTL(), infra.SystemClock, log)

	return engine.New(nse, yf, refs,
		engine.WithPolicy(engine.Policy{
			BatchWidth:   cfg.Movers.BatchWidth,
			BatchPause:   cfg.Movers.BatchPause(),
			CallTimeout:  cfg.Movers.CallTimeout(),
			DefaultLimit: cfg.Movers.DefaultLimit,
		}),
		engine.WithLogger(log),
	)
}

// wantJSON reports whether --json was given.
func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bazaar %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}
