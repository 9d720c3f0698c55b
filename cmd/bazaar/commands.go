package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/bazaar/api"
	"github.com/seenimoa/bazaar/internal/config"
	"github.com/seenimoa/bazaar/internal/engine"
	"github.com/seenimoa/bazaar/internal/render"
	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

func periodFlag(cmd *cobra.Command) (models.Period, error) {
	raw, _ := cmd.Flags().GetString("period")
	return models.ParsePeriod(raw)
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		srv := api.NewServer(cfg, eng, api.WithLogger(log), api.WithVersion(version))
		fmt.Fprintf(cmd.OutOrStdout(), "🌐 Starting bazaar API server on %s\n", cfg.API.Addr())
		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		now := utils.NowIST()
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintln(out, "  bazaar: System Status")
		fmt.Fprintln(out, "═══════════════════════════════════════")
		fmt.Fprintf(out, "  Version:       %s (%s)\n", version, commit)
		fmt.Fprintf(out, "  Market Status: %s\n", utils.MarketSessionAt(now))
		fmt.Fprintf(out, "  Session:       %s %s to %s IST\n", utils.FormatDateIST(now),
			utils.MarketOpenTime(now).Format("15:04"), utils.MarketCloseTime(now).Format("15:04"))
		fmt.Fprintf(out, "  Time (IST):    %s\n", utils.FormatDateTimeIST(now))
		fmt.Fprintln(out)

		p := eng.Policy()
		fmt.Fprintln(out, "  Configuration:")
		fmt.Fprintf(out, "    API Server:    %s\n", cfg.API.Addr())
		fmt.Fprintf(out, "    NSE:           %s (%d req/s)\n", cfg.NSE.BaseURL, cfg.NSE.RateLimit)
		fmt.Fprintf(out, "    Yahoo Finance: %d req/s\n", cfg.YFinance.RateLimit)
		fmt.Fprintf(out, "    Batching:      %d per batch, %s pause, %s per call\n", p.BatchWidth, p.BatchPause, p.CallTimeout)
		fmt.Fprintf(out, "    Constituents:  cached for %s\n", cfg.Cache.ConstituentTTL())
		fmt.Fprintf(out, "    Stream:        enabled=%t every %s\n", cfg.Stream.Enabled, cfg.Stream.Interval())
		fmt.Fprintln(out)

		fmt.Fprintln(out, "  Environment overrides:")
		overrides := config.EnvOverrides()
		if len(overrides) == 0 {
			fmt.Fprintln(out, "    (none)")
		}
		for _, o := range overrides {
			fmt.Fprintf(out, "    %-32s %s\n", o.Name, o.Value)
		}
		fmt.Fprintln(out, "═══════════════════════════════════════")
		return nil
	},
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

// --- Snapshot Command ---

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Show the tracked indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := eng.GetMarketSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd, snap)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📊 Market %s as of %s\n\n", snap.MarketStatus, utils.FormatDateTimeIST(snap.AsOf))
		keys := make([]string, 0, len(snap.Indices))
		for k := range snap.Indices {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			printIndexQuote(out, snap.Indices[k])
		}
		return nil
	},
}

// --- VIX Command ---

var vixCmd = &cobra.Command{
	Use:   "vix",
	Short: "Show the India VIX volatility index",
	RunE: func(cmd *cobra.Command, args []string) error {
		vix, err := eng.GetVix(cmd.Context())
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd, vix)
		}
		printIndexQuote(cmd.OutOrStdout(), *vix)
		return nil
	},
}

func printIndexQuote(out io.Writer, q models.IndexQuote) {
	fmt.Fprintf(out, "  %-18s %14s  %10s  %s\n", q.Name, utils.FormatINR(q.Price), fmt.Sprintf("%+.2f", q.Change), utils.FormatPct(q.ChangePct))
}

// --- Movers Command ---

var moversCmd = &cobra.Command{
	Use:   "movers [index]",
	Short: "Show top gainers and losers of an index",
	Long:  "Show top gainers and losers of NIFTY50, BANKNIFTY, MIDCAP100 or SMALLCAP250.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index := api.DefaultMoversIndex
		if len(args) == 1 {
			index = args[0]
		}
		period, err := periodFlag(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		m, err := eng.GetMovers(cmd.Context(), index, period, limit)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd, m)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🚀 %s movers (%s)\n", m.Index, m.Period)
		if m.Degraded {
			fmt.Fprintln(out, "   ⚠️  no usable quotes returned")
		}
		fmt.Fprintln(out, "\n  Gainers:")
		printMovers(out, m.Gainers)
		fmt.Fprintln(out, "\n  Losers:")
		printMovers(out, m.Losers)
		return nil
	},
}

func init() {
	moversCmd.Flags().String("period", "intraday", "intraday, week, month, 6months or year")
	moversCmd.Flags().Int("limit", 0, "records per side (default from config)")
}

func printMovers(out io.Writer, records []models.MoverRecord) {
	for i, r := range records {
		fmt.Fprintf(out, "  %2d. %-14s %14s  %s\n", i+1, r.Symbol, utils.FormatINR(r.Price), utils.FormatPct(r.ChangePct))
	}
}

// --- Sectors Command ---

var sectorsCmd = &cobra.Command{
	Use:   "sectors",
	Short: "Show sector index performance",
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := periodFlag(cmd)
		if err != nil {
			return err
		}
		perf, err := eng.GetSectorPerformance(cmd.Context(), period)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd, perf)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🏭 Sector performance (%s)\n\n", perf.Period)
		for _, r := range perf.Sectors {
			fmt.Fprintf(out, "  %-20s %14s  %s\n", r.Sector, utils.FormatINR(r.Price), utils.FormatPct(r.ChangePct))
		}
		if perf.Degraded {
			fmt.Fprintf(out, "\n  ⚠️  %d of %d sectors unavailable\n", len(engine.Sectors)-len(perf.Sectors), len(engine.Sectors))
		}
		return nil
	},
}

func init() {
	sectorsCmd.Flags().String("period", "intraday", "intraday, week, month, 6months or year")
}

// --- Profile Command ---

var profileCmd = &cobra.Command{
	Use:   "profile [ticker]",
	Short: "Show an instrument profile with fundamentals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := eng.GetProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd, p)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📈 %s: %s\n", p.Symbol, p.CompanyName)
		fmt.Fprintf(out, "   %s / %s  (ISIN %s)\n\n", p.Sector, p.Industry, p.ISIN)
		fmt.Fprintf(out, "  Price:          %s (%s)\n", utils.FormatINR(p.CurrentPrice), utils.FormatPct(p.ChangePct))
		fmt.Fprintf(out, "  Day range:      %s to %s\n", utils.FormatINR(p.Low), utils.FormatINR(p.High))
		fmt.Fprintf(out, "  52-week range:  %s to %s\n", utils.FormatOptional(p.Week52Low, utils.FormatINR), utils.FormatOptional(p.Week52High, utils.FormatINR))
		fmt.Fprintf(out, "  Volume:         %s\n", utils.FormatVolume(p.Volume))
		fmt.Fprintf(out, "  Market cap:     %s\n", utils.FormatOptional(p.MarketCap, utils.FormatINRCompact))
		fmt.Fprintf(out, "  P/E:            %s\n", utils.FormatOptional(p.PERatio, utils.FormatRatio))
		fmt.Fprintf(out, "  P/B:            %s\n", utils.FormatOptional(p.PBRatio, utils.FormatRatio))
		fmt.Fprintf(out, "  EPS:            %s\n", utils.FormatOptional(p.EPS, utils.FormatINR))
		fmt.Fprintf(out, "  ROE:            %s\n", utils.FormatOptional(p.ROE, utils.FormatPct))
		fmt.Fprintf(out, "  ROA:            %s\n", utils.FormatOptional(p.ROA, utils.FormatPct))
		fmt.Fprintf(out, "  Debt/Equity:    %s\n", utils.FormatOptional(p.DebtToEquity, utils.FormatRatio))
		fmt.Fprintf(out, "  Dividend yield: %s\n", utils.FormatOptional(p.DividendYield, utils.FormatPct))
		fmt.Fprintf(out, "  Beta:           %s\n", utils.FormatOptional(p.Beta, utils.FormatRatio))
		fmt.Fprintf(out, "  Revenue:        %s\n", utils.FormatOptional(p.Revenue, utils.FormatINRCompact))
		fmt.Fprintf(out, "  Net profit:     %s\n", utils.FormatOptional(p.NetProfit, utils.FormatINRCompact))
		if p.Description != "" {
			fmt.Fprintf(out, "\n%s\n", p.Description)
		}
		if p.Degraded {
			fmt.Fprintf(out, "\n  ⚠️  unavailable: %s\n", strings.Join(p.Unavailable, ", "))
		}
		return nil
	},
}

// --- Quote Command ---

var quoteCmd = &cobra.Command{
	Use:   "quote [ticker...]",
	Short: "Show watchlist quotes over a period",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := periodFlag(cmd)
		if err != nil {
			return err
		}
		quotes := make([]*models.WatchQuote, 0, len(args))
		for _, sym := range args {
			q, err := eng.GetQuote(cmd.Context(), sym, period)
			if err != nil {
				return err
			}
			quotes = append(quotes, q)
		}
		if wantJSON(cmd) {
			return printJSON(cmd, quotes)
		}
		for _, q := range quotes {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-14s %14s  %s\n", q.Symbol, utils.FormatINR(q.Price), utils.FormatPct(q.ChangePct))
		}
		return nil
	},
}

func init() {
	quoteCmd.Flags().String("period", "intraday", "intraday, week, month, 6months or year")
}

// --- Chart Command ---

var chartCmd = &cobra.Command{
	Use:   "chart [ticker]",
	Short: "Print a price series or render it as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := periodFlag(cmd)
		if err != nil {
			return err
		}
		series, err := eng.GetChartSeries(cmd.Context(), args[0], period)
		if err != nil {
			return err
		}

		if path, _ := cmd.Flags().GetString("png"); path != "" {
			img, err := render.ChartPNG(series, render.DefaultWidth, render.DefaultHeight)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, img, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🖼️  wrote %s (%d points)\n", path, series.Len())
			return nil
		}
		if wantJSON(cmd) {
			return printJSON(cmd, series)
		}
		out := cmd.OutOrStdout()
		for _, p := range series.Points() {
			fmt.Fprintf(out, "  %-10s %14s  %s\n", p.Label, utils.FormatINR(p.Price), utils.FormatVolume(p.Volume))
		}
		return nil
	},
}

func init() {
	chartCmd.Flags().String("period", "intraday", "intraday, week, month, 6months or year")
	chartCmd.Flags().String("png", "", "write the chart to this PNG file")
}

// --- Search Command ---

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search listed symbols by symbol or company name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := eng.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResults(cmd, results)
	},
}

// --- Trending Command ---

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Show the most traded symbols",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		results, err := eng.Trending(cmd.Context(), limit)
		if err != nil {
			return err
		}
		return printResults(cmd, results)
	},
}

func init() {
	trendingCmd.Flags().Int("limit", 0, "number of symbols (default 5)")
}

func printResults(cmd *cobra.Command, results []models.SearchResult) error {
	if wantJSON(cmd) {
		return printJSON(cmd, results)
	}
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "  no matches")
	}
	for _, r := range results {
		fmt.Fprintf(out, "  %-14s %-36s %12s  %s\n", r.Symbol, r.CompanyName, utils.FormatINR(r.LastPrice), utils.FormatPct(r.ChangePct))
	}
	return nil
}

// --- Constituents Command ---

var constituentsCmd = &cobra.Command{
	Use:   "constituents [index]",
	Short: "List the member symbols of a tracked index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := eng.Constituents(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(cmd, set)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d symbols, fetched %s)\n%s\n",
			set.IndexKey, len(set.Symbols), utils.FormatDateTimeIST(set.FetchedAt), strings.Join(set.Symbols, " "))
		return nil
	},
}
