package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/reelsmith/internal/config"
	"github.com/jonathan/reelsmith/internal/db"
	"github.com/jonathan/reelsmith/internal/observability"
	"github.com/jonathan/reelsmith/internal/pipeline"
	"github.com/jonathan/reelsmith/internal/types"
	"github.com/spf13/cobra"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Generate a reel from a prompt end-to-end",
	Long: `Runs the full generation pipeline for a single prompt: planning -> refinement -> video generation -> audio generation -> synchronization -> export -> quality review, with automatic reloops when review fails.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath string
	runPrompt     string
	runPlatform   string
	runMode       string
	runDuration   int
	runBudget     float64
	runThreshold  float64
	runAPIKey     string
	runFalAPIKey  string
	runVerbose    bool
	runDBURL      string
	runBatchFile  string
)

// batchConcurrency caps parallel runs in batch mode. Runs share the
// budget tracker and selector history but are otherwise independent.
const batchConcurrency = 3

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runPrompt, "prompt", "p", "", "Text prompt describing the reel to generate")
	runCommand.Flags().StringVar(&runBatchFile, "batch", "", "Path to a file with one prompt per line; runs them in parallel (mutually exclusive with --prompt)")
	runCommand.Flags().StringVar(&runPlatform, "platform", "", "Target platform (instagram, tiktok, facebook)")
	runCommand.Flags().StringVarP(&runMode, "mode", "m", "", "Content mode (music, narration, hybrid)")
	runCommand.Flags().IntVarP(&runDuration, "duration", "d", 0, "Requested duration in seconds (5-60)")
	runCommand.Flags().Float64VarP(&runBudget, "budget", "b", 0, "Spend ceiling for this run in USD")
	runCommand.Flags().Float64Var(&runThreshold, "pass-threshold", 0, "Composite score required to pass quality review")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print storyboard, quality reports, and reloop decisions")

	// API keys can be passed as flags, or read from env vars
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().StringVar(&runFalAPIKey, "fal-api-key", "", "FAL generation API key (optional, defaults to FAL_KEY env var)")

	// Database URL for run archival
	runCommand.Flags().StringVar(&runDBURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Load config file if provided
	var cfg config.Config
	if runConfigPath != "" {
		loadedCfg, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = *loadedCfg
	}

	// Step 2: Apply CLI overrides. Only override if the flag was explicitly
	// set, so config file values survive unset flags.
	if cmd.Flags().Changed("platform") {
		cfg.Platform = runPlatform
	}
	if cmd.Flags().Changed("mode") {
		cfg.ContentMode = runMode
	}
	if cmd.Flags().Changed("duration") {
		cfg.Duration = runDuration
	}
	if cmd.Flags().Changed("budget") {
		cfg.BudgetUSD = runBudget
	}
	if cmd.Flags().Changed("pass-threshold") {
		cfg.PassThreshold = runThreshold
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = runAPIKey
	}
	if cmd.Flags().Changed("fal-api-key") {
		cfg.FalAPIKey = runFalAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDBURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}

	// Step 3: Fill remaining gaps from built-in defaults and environment
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.FalAPIKey == "" {
		cfg.FalAPIKey = os.Getenv("FAL_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if runPrompt == "" && runBatchFile == "" {
		return fmt.Errorf("--prompt is required")
	}
	if runPrompt != "" && runBatchFile != "" {
		return fmt.Errorf("--prompt and --batch are mutually exclusive")
	}

	// Step 4: Optional archival database
	var archiver pipeline.Archiver
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure database schema: %w", err)
		}
		archiver = database
	}

	printer := observability.NewPrinter(os.Stdout)
	onProgress := func(event pipeline.ProgressEvent) {
		fmt.Printf("[%.8s %s] %s\n", event.RunID, event.Phase, event.Message)
	}

	ctrl, err := buildController(ctx, cfg, archiver, onProgress)
	if err != nil {
		return err
	}

	if runBatchFile != "" {
		return runBatch(ctx, ctrl, printer, cfg)
	}
	return executeRun(ctx, ctrl, printer, cfg, runPrompt)
}

// startAndDrive creates one run and advances it to a terminal state.
func startAndDrive(ctx context.Context, ctrl *pipeline.Controller, cfg config.Config, prompt string) (*types.PipelineRun, error) {
	req := types.RunRequest{
		Prompt:          prompt,
		DurationSeconds: cfg.Duration,
		ContentMode:     types.ContentMode(cfg.ContentMode),
		Platform:        types.Platform(cfg.Platform),
		BudgetUSD:       cfg.BudgetUSD,
	}

	runID, err := ctrl.StartRun(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	fmt.Printf("Started run %s\n", runID)

	run, err := ctrl.Run(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("pipeline failed: %w", err)
	}
	return run, nil
}

func executeRun(ctx context.Context, ctrl *pipeline.Controller, printer *observability.Printer, cfg config.Config, prompt string) error {
	run, err := startAndDrive(ctx, ctrl, cfg, prompt)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		if run.Artifacts.Storyboard != nil {
			printer.PrintStoryboard(run.Artifacts.Storyboard)
		}
		if run.LastReport != nil {
			printer.PrintQualityReport(run.LastReport)
		}
		for i := range run.Decisions {
			printer.PrintDecision(&run.Decisions[i])
		}
	}
	printer.PrintRunSummary(run)

	if run.Status == types.StatusAborted {
		return fmt.Errorf("run aborted: %s", run.AbortReason)
	}
	return nil
}

type batchResult struct {
	prompt string
	run    *types.PipelineRun
	err    error
}

// runBatch drives one run per prompt line, a few at a time. Failures do
// not cancel sibling runs; summaries are printed once everything settles.
func runBatch(ctx context.Context, ctrl *pipeline.Controller, printer *observability.Printer, cfg config.Config) error {
	data, err := os.ReadFile(runBatchFile)
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}

	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			prompts = append(prompts, line)
		}
	}
	if len(prompts) == 0 {
		return fmt.Errorf("batch file %s contains no prompts", runBatchFile)
	}

	results := make([]batchResult, len(prompts))
	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, prompt := range prompts {
		g.Go(func() error {
			run, rerr := startAndDrive(ctx, ctrl, cfg, prompt)
			results[i] = batchResult{prompt: prompt, run: run, err: rerr}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			fmt.Printf("FAILED %q: %v\n", res.prompt, res.err)
			continue
		}
		printer.PrintRunSummary(res.run)
		if res.run.Status == types.StatusAborted {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d batch runs did not complete", failed, len(prompts))
	}
	return nil
}
