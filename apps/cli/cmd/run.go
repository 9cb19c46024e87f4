package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/hncheck/packages/core/config"
	"github.com/abdul-hamid-achik/hncheck/packages/core/env"
	"github.com/abdul-hamid-achik/hncheck/packages/core/runner"
	"github.com/abdul-hamid-achik/hncheck/packages/fixture"
	"github.com/abdul-hamid-achik/hncheck/packages/history"
	"github.com/abdul-hamid-achik/hncheck/packages/output"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the contract scenarios against the item API",
	Long: `Run the contract scenarios against the Hacker News item API.

Configuration is layered: defaults, then the config file, then HNCHECK_*
environment variables (a .env file is loaded first and overrides the process
environment), then flags.

Examples:
  hncheck run
  hncheck run --base-url http://localhost:3000/v0
  hncheck run --tags edge
  hncheck run --name "hn-0*" -o console,junit --output-dir reports
  hncheck run --history .hncheck/history.db
  hncheck run --watch`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	configFlag         string
	envFileFlag        string
	baseURLFlag        string
	nameFlag           string
	tagsFlag           string
	bailFlag           bool
	timeoutFlag        string
	maxStoriesFlag     int
	prefetchFlag       int
	rateLimitFlag      float64
	noColorFlag        bool
	outputFlag         string
	outputDirFlag      string
	parallelFlag       bool
	concurrencyFlag    int
	watchFlag          bool
	proxyFlag          string
	insecureFlag       bool
	fixturesDirFlag    string
	updateFixturesFlag bool
	historyFlag        string
)

func init() {
	runCmd.Flags().StringVar(&configFlag, "config", "", "Path to config file (env: HNCHECK_CONFIG)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", "", "Path to .env file (default: .env.local or .env in the working directory)")
	runCmd.Flags().StringVar(&baseURLFlag, "base-url", "", "Upstream base URL (env: HNCHECK_BASE_URL or BASE_URL)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only scenarios whose id or name matches the pattern")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", "", "Run only scenarios with any of these tags (comma-separated)")

	runCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output (env: HNCHECK_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Reporters: console, json, junit, tap (comma-separated) (env: HNCHECK_REPORTERS)")
	runCmd.Flags().StringVar(&outputDirFlag, "output-dir", "", "Write non-console reports to this directory (env: HNCHECK_OUTPUT_DIR)")

	runCmd.Flags().BoolVar(&bailFlag, "bail", false, "Stop on first failure (env: HNCHECK_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", "", "Request timeout, e.g. 30s (env: HNCHECK_TIMEOUT, in ms)")
	runCmd.Flags().IntVar(&maxStoriesFlag, "max-stories", 0, "Top stories scanned when looking for a comment (env: HNCHECK_MAX_STORIES)")
	runCmd.Flags().IntVar(&prefetchFlag, "prefetch", 0, "Stories fetched ahead while scanning (env: HNCHECK_PREFETCH)")
	runCmd.Flags().Float64Var(&rateLimitFlag, "rate-limit", 0, "Maximum upstream requests per second (env: HNCHECK_RATE_LIMIT)")
	runCmd.Flags().BoolVarP(&parallelFlag, "parallel", "p", false, "Run scenarios in parallel (env: HNCHECK_PARALLEL)")
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Concurrent scenarios in parallel mode (env: HNCHECK_CONCURRENCY)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-run when the config or .env file changes")

	runCmd.Flags().StringVar(&proxyFlag, "proxy", "", "Proxy URL for HTTP requests (env: HNCHECK_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", false, "Disable SSL certificate validation")

	runCmd.Flags().StringVar(&fixturesDirFlag, "fixtures-dir", "", "Directory holding __fixtures__ (env: HNCHECK_FIXTURES_DIR)")
	runCmd.Flags().BoolVar(&updateFixturesFlag, "update-fixtures", false, "Record fixtures instead of comparing against them")
	runCmd.Flags().StringVar(&historyFlag, "history", "", "SQLite run history file (env: HNCHECK_HISTORY)")
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nReceived interrupt, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg, sources, err := loadRunConfig(cmd)
	if err != nil {
		return withCode(ExitConfigError, err)
	}

	result, err := runOnce(ctx, cmd, cfg)
	if err != nil {
		return err
	}

	if !watchFlag {
		if code := resultCode(result); code != ExitSuccess {
			return &ExitError{Code: code}
		}
		return nil
	}

	return watch(ctx, cmd, sources)
}

// loadRunConfig layers defaults, config file, environment and flags. It also
// returns the files the configuration was read from, for watch mode.
func loadRunConfig(cmd *cobra.Command) (*config.Config, []string, error) {
	var sources []string

	dotenv := envFileFlag
	if dotenv == "" {
		dotenv = env.FindDotEnv(".")
	}
	if dotenv != "" {
		if _, err := env.LoadAndExportDotEnv(dotenv, true); err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
		sources = append(sources, dotenv)
	}

	configPath := configFlag
	if configPath == "" {
		if v, ok := env.Lookup(env.Prefix + "CONFIG"); ok {
			configPath = v
		}
	}
	if configPath == "" {
		configPath = config.FindConfigFile(".")
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		cfg = fileCfg
		sources = append(sources, configPath)
	}

	envCfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	cfg = cfg.Merge(envCfg)

	flagCfg, err := flagConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg = cfg.Merge(flagCfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, sources, nil
}

// flagConfig holds only the flags set on the command line.
func flagConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := &config.Config{}

	if flags.Changed("base-url") {
		cfg.BaseURL = baseURLFlag
	}
	if flags.Changed("timeout") {
		timeout, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		cfg.Timeout = int(timeout.Milliseconds())
	}
	if flags.Changed("max-stories") {
		cfg.MaxStories = maxStoriesFlag
	}
	if flags.Changed("prefetch") {
		cfg.Prefetch = prefetchFlag
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit = rateLimitFlag
	}
	if flags.Changed("proxy") {
		cfg.Proxy = proxyFlag
	}
	if flags.Changed("insecure") {
		cfg.ValidateSSL = config.BoolPtr(!insecureFlag)
	}
	if flags.Changed("parallel") {
		cfg.Parallel = config.BoolPtr(parallelFlag)
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrencyFlag
	}
	if flags.Changed("bail") {
		cfg.Bail = config.BoolPtr(bailFlag)
	}
	if flags.Changed("no-color") {
		cfg.NoColor = config.BoolPtr(noColorFlag)
	}
	if verboseFlag > 0 {
		cfg.Verbose = config.BoolPtr(true)
	}
	if flags.Changed("output") {
		cfg.Reporters = splitList(outputFlag)
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = outputDirFlag
	}
	if flags.Changed("fixtures-dir") {
		cfg.FixturesDir = fixturesDirFlag
	}
	if flags.Changed("history") {
		cfg.HistoryPath = historyFlag
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// runOnce executes the catalog once and reports the result. Reporter and
// configuration problems are returned as errors; contract failures are not.
func runOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (*runner.RunResult, error) {
	scenarioEnv, err := runner.NewEnv(cfg, logger)
	if err != nil {
		return nil, withCode(ExitConfigError, err)
	}
	if cfg.FixturesDir != "" {
		scenarioEnv.WithFixtures(fixture.NewStore(cfg.FixturesDir, updateFixturesFlag))
	}

	formatters, closeAll, err := buildFormatters(cmd, cfg)
	if err != nil {
		return nil, withCode(ExitConfigError, err)
	}
	defer closeAll()

	for _, f := range formatters {
		f.FormatHeader(version)
	}

	r := runner.NewRunner(scenarioEnv, &runner.Config{
		NameFilter:  nameFlag,
		TagsFilter:  splitList(tagsFlag),
		Parallel:    cfg.GetParallel(),
		Concurrency: cfg.Concurrency,
		Bail:        cfg.GetBail(),
	})
	result := r.Run(ctx)
	logger.Info("run finished",
		"base_url", scenarioEnv.Gateway.BaseURL(),
		"passed", result.Passed,
		"failed", result.Failed,
		"errored", result.Errored,
		"duration", result.Duration)

	for _, f := range formatters {
		f.FormatResult(result)
		if flushable, ok := f.(output.Flushable); ok {
			if err := flushable.Flush(result.Duration); err != nil {
				return nil, fmt.Errorf("error writing output: %w", err)
			}
		}
	}

	if cfg.HistoryPath != "" {
		note, err := recordHistory(ctx, cfg, scenarioEnv.Gateway.BaseURL(), result)
		if err != nil {
			logger.Warn("history not recorded", "path", cfg.HistoryPath, "error", err)
		} else {
			for _, f := range formatters {
				if console, ok := f.(*output.ConsoleFormatter); ok {
					console.FormatNote(note)
				}
			}
		}
	}

	return result, nil
}

// buildFormatters creates one formatter per reporter. The console reporter
// always writes to stdout; the others write to OutputDir when it is set.
func buildFormatters(cmd *cobra.Command, cfg *config.Config) ([]output.Formatter, func(), error) {
	reporters := cfg.Reporters
	if len(reporters) == 0 {
		reporters = []string{"console"}
	}

	var (
		formatters []output.Formatter
		files      []*os.File
	)
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, name := range reporters {
		var w io.Writer = cmd.OutOrStdout()
		if name != "console" && cfg.OutputDir != "" {
			if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("cannot create output directory: %w", err)
			}
			path := filepath.Join(cfg.OutputDir, "hncheck"+output.Extension(name))
			file, err := os.Create(path)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("cannot create output file: %w", err)
			}
			files = append(files, file)
			w = file
		}

		f, err := output.New(name, w, cfg.GetVerbose(), cfg.GetNoColor())
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		formatters = append(formatters, f)
	}
	return formatters, closeAll, nil
}

func recordHistory(ctx context.Context, cfg *config.Config, baseURL string, result *runner.RunResult) (string, error) {
	if dir := filepath.Dir(cfg.HistoryPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return "", err
	}
	defer store.Close()

	prev, err := store.LastRun(ctx)
	if err != nil && !errors.Is(err, history.ErrNoRuns) {
		return "", err
	}

	run := history.NewRun(result, baseURL)
	if err := store.SaveRun(ctx, run); err != nil {
		return "", err
	}

	trend := history.Compare(prev, run)
	if prev == nil {
		return fmt.Sprintf("History: %s run recorded (%s)", trend, run.ID), nil
	}
	return fmt.Sprintf("History: %s since %s", trend, prev.StartedAt.Format(time.RFC3339)), nil
}

// watch re-runs the catalog whenever one of sources changes. With no source
// files the working directory is watched for a config or .env file appearing.
func watch(ctx context.Context, cmd *cobra.Command, sources []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	names := make(map[string]bool)
	for _, name := range config.ConfigFilenames {
		names[name] = true
	}
	for _, name := range env.DotEnvFiles {
		names[name] = true
	}
	dirs := []string{"."}
	for _, src := range sources {
		names[filepath.Base(src)] = true
		dirs = append(dirs, filepath.Dir(src))
	}
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil || watched[abs] {
			continue
		}
		if err := watcher.Add(abs); err != nil {
			logger.Warn("cannot watch directory", "dir", abs, "error", err)
			continue
		}
		watched[abs] = true
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	rerun := make(chan string, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !names[filepath.Base(event.Name)] {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- name:
				default:
				}
			})

		case name := <-rerun:
			fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running scenarios...\n\n", name)
			cfg, _, err := loadRunConfig(cmd)
			if err != nil {
				logger.Error("invalid configuration", "error", err)
			} else if _, err := runOnce(ctx, cmd, cfg); err != nil {
				logger.Error("run failed", "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
