// graintel — daily grain market intelligence
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/graintel/api"
	"github.com/seenimoa/graintel/internal/analysis/engine"
	"github.com/seenimoa/graintel/internal/backtest"
	"github.com/seenimoa/graintel/internal/config"
	"github.com/seenimoa/graintel/internal/datasource"
	"github.com/seenimoa/graintel/internal/llm"
	"github.com/seenimoa/graintel/internal/logging"
	"github.com/seenimoa/graintel/internal/pipeline"
	"github.com/seenimoa/graintel/internal/report"
	"github.com/seenimoa/graintel/internal/storage"
	"github.com/seenimoa/graintel/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "graintel",
	Short: "graintel — daily grain market intelligence",
	Long: `graintel scrapes agricultural and macro news, enriches it with an LLM,
scores early-warning alerts, a macro-grains indicator and price impact
ranges for wheat, corn and soy, and writes a daily report.`,
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
		logging.Setup(cfg.Logging, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(backtestCmd)
	rootCmd.AddCommand(serveCmd)
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("graintel %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Daily Command ---

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the daily pipeline: fetch, enrich, score, save and report",
	Long: `Run the daily pipeline once, or on a cron schedule with --schedule.
The spec comes from pipeline.schedule unless --cron is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pdf, _ := cmd.Flags().GetBool("pdf"); pdf {
			cfg.Pipeline.ExportPDF = true
		}

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		if scheduled, _ := cmd.Flags().GetBool("schedule"); scheduled {
			spec := cfg.Pipeline.Schedule
			if c, _ := cmd.Flags().GetString("cron"); c != "" {
				spec = c
			}
			fmt.Printf("⏰ Daily pipeline scheduled (%s), Ctrl+C to stop\n", spec)
			return pipeline.Schedule(ctx, spec, func(ctx context.Context) {
				_, _ = p.Run(ctx) // outcome is logged and counted by Run
			})
		}

		res, err := p.Run(ctx)
		if errors.Is(err, pipeline.ErrNoArticles) {
			fmt.Println("ℹ️  No recent article found, nothing to report.")
			return nil
		}
		if err != nil {
			return err
		}
		printRun(res)
		return nil
	},
}

func init() {
	dailyCmd.Flags().Bool("schedule", false, "keep running on the pipeline.schedule cron spec")
	dailyCmd.Flags().String("cron", "", "cron spec overriding pipeline.schedule (with --schedule)")
	dailyCmd.Flags().Bool("pdf", false, "also export the report as PDF")
}

func printRun(res pipeline.Result) {
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  Daily run %s (%s)\n", res.Date, res.RunID)
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  Sources:      %d (%d failed)\n", res.Sources, len(res.Failed))
	fmt.Printf("  Articles:     %d fetched, %d recent\n", res.Fetched, res.Recent)
	fmt.Printf("  Enrichment:   %d by LLM, %d offline fallbacks\n", res.Enrich.Enriched, res.Enrich.Fallbacks)
	fmt.Printf("  Macro score:  %d\n", res.Indicators.Macro.FinalMacroScore)
	fmt.Printf("  Alerts:       %d watch or critical\n", len(res.Indicators.AlertRows(models.SeverityWatch)))
	fmt.Printf("  Signals:      %s\n", res.SignalsPath)
	fmt.Printf("  Report:       %s\n", res.Report.Markdown)
	if res.Report.PDF != "" {
		fmt.Printf("  PDF:          %s\n", res.Report.PDF)
	}
	fmt.Printf("  Duration:     %s\n", res.Duration.Round(time.Millisecond))
}

// --- Score Command ---

var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Score enriched articles and print the indicators as JSON",
	Long: `Score a batch of enriched articles. The input is a JSON document, either
{"articles": [...]} or a bare array, read from file or from stdin when the
argument is "-" or missing. With --csv the input is a signals CSV file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asCSV, _ := cmd.Flags().GetBool("csv")

		var records []models.ArticleRecord
		var err error
		switch {
		case asCSV:
			if len(args) == 0 {
				return fmt.Errorf("--csv needs a signals file argument")
			}
			records, err = storage.LoadSignals(args[0])
		case len(args) == 0 || args[0] == "-":
			records, err = readScoreInput(os.Stdin)
		default:
			f, openErr := os.Open(args[0])
			if openErr != nil {
				return openErr
			}
			defer f.Close()
			records, err = readScoreInput(f)
		}
		if err != nil {
			return err
		}

		ind, err := engine.Compute(cmd.Context(), records, engine.Options{Workers: cfg.Pipeline.ScoreWorkers})
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(ind)
	},
}

func init() {
	scoreCmd.Flags().Bool("csv", false, "read a signals CSV instead of JSON")
}

// readScoreInput decodes {"articles": [...]} or a bare JSON array of
// loosely typed articles.
func readScoreInput(r io.Reader) ([]models.ArticleRecord, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding articles: %w", err)
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		var doc struct {
			Articles []map[string]any `json:"articles"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decoding articles: expected an array or {\"articles\": [...]}")
		}
		items = doc.Articles
	}

	records := make([]models.ArticleRecord, 0, len(items))
	for _, m := range items {
		records = append(records, models.ArticleFromMap(m))
	}
	return records, nil
}

// --- Report Command ---

var reportCmd = &cobra.Command{
	Use:   "report [signals.csv]",
	Short: "Generate the daily report from a signals file (newest by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			latest, err := storage.LatestSignals(cfg.Pipeline.DataDir)
			if err != nil {
				return err
			}
			path = latest.Path
		}
		pdf, _ := cmd.Flags().GetBool("pdf")

		res, err := report.GenerateFromFile(cmd.Context(), path, report.Options{
			Config:      report.Config{ForwardDays: cfg.Backtest.ForwardDays},
			OutDir:      cfg.Pipeline.ReportDir,
			FigureDir:   cfg.Pipeline.FigureDir,
			SummaryPath: cfg.Backtest.SummaryPath,
			PDF:         pdf || cfg.Pipeline.ExportPDF,
		})
		if err != nil {
			return err
		}
		fmt.Printf("📝 Report written: %s\n", res.Markdown)
		fmt.Printf("   HTML:   %s\n", res.HTML)
		if res.PDF != "" {
			fmt.Printf("   PDF:    %s\n", res.PDF)
		}
		fmt.Printf("   Charts: %d in %s\n", len(res.Charts), cfg.Pipeline.FigureDir)
		return nil
	},
}

func init() {
	reportCmd.Flags().Bool("pdf", false, "also export the report as PDF")
}

// --- Backtest Command ---

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the daily sentiment signals against futures forward returns",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("forward-days")
		if days <= 0 {
			days = cfg.Backtest.ForwardDays
		}

		ctx, stop := signalContext()
		defer stop()

		eng := backtest.NewEngine(datasource.NewYFinance(), backtest.Config{ForwardDays: days})
		summary, err := eng.Run(ctx, cfg.Pipeline.DataDir)
		if err != nil {
			return err
		}
		if err := storage.SaveSummary(cfg.Backtest.SummaryPath, summary); err != nil {
			return err
		}
		printSummary(summary)
		fmt.Printf("\n💾 Summary saved: %s\n", cfg.Backtest.SummaryPath)
		return nil
	},
}

func init() {
	backtestCmd.Flags().Int("forward-days", 0, "forward return horizon in days (default: backtest.forward_days)")
}

func printSummary(s models.BacktestSummary) {
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("  Backtest %s → %s (%d-day forward returns)\n", s.From, s.To, s.ForwardDays)
	fmt.Println("═══════════════════════════════════════")
	if s.IsEmpty() {
		fmt.Println("  Not enough signal history matched with prices yet.")
		return
	}

	printStats("Global", *s.Global)
	if rate, n := backtest.HitRate(s.Signals); n > 0 {
		fmt.Printf("    hit rate:  %.0f%% over %d directional signals\n", rate*100, n)
	}
	for _, c := range models.Grains() {
		if st, ok := s.ByCommodity[c]; ok && st.NSignals > 0 {
			printStats(c.Title()+" ("+c.FuturesTicker()+")", st)
		}
	}
}

func printStats(name string, st models.BacktestStats) {
	fmt.Printf("\n  %s: %d signals, mean %+.2f%%\n", name, st.NSignals, st.MeanFwdReturn*100)
	if st.BullishMean != nil {
		fmt.Printf("    bullish:   %d, mean %+.2f%%\n", st.BullishN, *st.BullishMean*100)
	}
	if st.BearishMean != nil {
		fmt.Printf("    bearish:   %d, mean %+.2f%%\n", st.BearishN, *st.BearishMean*100)
	}
	if st.NeutralMean != nil {
		fmt.Printf("    neutral:   %d, mean %+.2f%%\n", st.NeutralN, *st.NeutralMean*100)
	}
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}

		srv, err := api.NewServer(cfg, api.WithVersion(version))
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting graintel API server on %s\n", addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default: api.port)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  graintel — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time (UTC):    %s\n", time.Now().UTC().Format("2006-01-02 15:04"))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Primary, cfg.LLM.Model)
		fmt.Printf("    Sources:       %s (groups: %v, max %d)\n", cfg.Sources.Catalog, cfg.Sources.Groups, cfg.Sources.MaxSources)
		fmt.Printf("    Schedule:      %s\n", cfg.Pipeline.Schedule)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    PDF engine:    %s\n", report.DetectPDFEngine())
		fmt.Println()

		// Data summary
		fmt.Println("  Data:")
		files, err := storage.ListSignalFiles(cfg.Pipeline.DataDir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Printf("    Signals:       none in %s\n", cfg.Pipeline.DataDir)
		} else {
			fmt.Printf("    Signals:       %d files, %s → %s\n", len(files),
				files[0].Date.Format(storage.DateLayout), files[len(files)-1].Date.Format(storage.DateLayout))
		}
		if s, err := storage.LoadSummary(cfg.Backtest.SummaryPath); err == nil && !s.IsEmpty() {
			fmt.Printf("    Backtest:      %d signals (%s → %s)\n", s.Global.NSignals, s.From, s.To)
		} else {
			fmt.Println("    Backtest:      not run yet")
		}
		fmt.Println()

		fmt.Println("  LLM Providers:")
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		printProviderHealth(ctx, os.Stdout, cfg.LLM)
		cancel()
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set (offline enrichment)"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// printProviderHealth pings every configured LLM provider, primary first.
func printProviderHealth(ctx context.Context, w io.Writer, llmCfg config.LLMConfig) {
	router, err := llm.NewRouterFromConfig(llmCfg)
	if errors.Is(err, llm.ErrNoProviders) {
		fmt.Fprintln(w, "    none configured (offline enrichment)")
		return
	}
	if err != nil {
		fmt.Fprintf(w, "    ❌ %v\n", err)
		return
	}

	health := router.HealthCheck(ctx)
	names := router.ProviderNames()
	sort.Slice(names, func(i, j int) bool {
		if (names[i] == llmCfg.Primary) != (names[j] == llmCfg.Primary) {
			return names[i] == llmCfg.Primary
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		role := "fallback"
		if name == llmCfg.Primary {
			role = "primary"
		}
		if err := health[name]; err != nil {
			fmt.Fprintf(w, "    %-10s %-9s ❌ %v\n", name, role, err)
			continue
		}
		fmt.Fprintf(w, "    %-10s %-9s ✅ reachable\n", name, role)
	}
}
