package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/schaermu/hooksync/internal/config"
	"github.com/schaermu/hooksync/internal/gitrepo"
	"github.com/schaermu/hooksync/internal/perm"
	"github.com/schaermu/hooksync/internal/sync"
)

// ErrOutdated is returned by the check command when hooks need deploying
var ErrOutdated = errors.New("git hooks are missing or outdated")

// userConfigPath is searched for in the XDG config directories
const userConfigPath = "hooksync/config.yaml"

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Sync flags
	sourceDir  string
	destDir    string
	permMode   string
	dryRun     bool
	noRepoRoot bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hooksync",
	Short: "Deploy versioned git hooks into a repository",
	Long: `hooksync copies the hook scripts kept in a repository (./hooks by default)
into the directory git runs them from (./.git/hooks by default).

Copies are skipped when every deployed hook already matches its source, so it is
cheap to run as a step of every build. On Linux, macOS and other Unix-like
systems deployed hooks are marked executable.`,
	SilenceUsage: true,
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Copy hooks into the git hooks directory if any are missing or outdated",
	Long: `Deploy compares every file in the source directory with its counterpart in the
destination directory. If any differ, all source hooks are copied over,
overwriting existing copies, and marked executable.

Files in the destination that have no source counterpart are left untouched.`,
	RunE: runDeploy,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether deployed hooks match their sources without changing anything",
	Long: `Check compares the source and destination directories and exits non-zero if
any hook is missing or outdated. It never writes to the destination.`,
	RunE: runCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hooksync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/hooksync/config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&sourceDir, "source", "", "directory holding the hook scripts (default ./hooks)")
	rootCmd.PersistentFlags().StringVar(&destDir, "dest", "", "directory git runs hooks from (default ./.git/hooks)")
	rootCmd.PersistentFlags().BoolVar(&noRepoRoot, "no-repo-root", false, "resolve relative paths against the working directory instead of the repository root")

	// Deploy command flags
	deployCmd.Flags().StringVar(&permMode, "permissions", "", "how to mark hooks executable (native, command, none)")
	deployCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")

	// Add commands
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	override, cfg, err := resolveConfig(logger)
	if err != nil {
		return err
	}

	marker, err := perm.New(cfg.Permissions.Mode)
	if err != nil {
		return err
	}

	engine := sync.NewEngine(osfs.Default, marker, logger, sync.WithDryRun(dryRun))

	logger.Debug("deploying git hooks",
		"source", cfg.Source,
		"destination", cfg.Destination,
		"permissions", cfg.Permissions.Mode,
		"dry_run", dryRun)

	if err := engine.Deploy(ctx, override); err != nil {
		logger.Error("deploy failed", "error", err)
		return err
	}

	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	_, cfg, err := resolveConfig(logger)
	if err != nil {
		return err
	}

	engine := sync.NewEngine(osfs.Default, perm.NopMarker{}, logger)

	plan, err := engine.Plan(cfg)
	if err != nil {
		return err
	}

	if plan.UpToDate() {
		logger.Info("all git hooks are up to date", "destination", cfg.Destination)
		return nil
	}

	if plan.DestinationMissing {
		logger.Info("destination directory does not exist", "destination", cfg.Destination)
	}
	for _, op := range plan.Ops {
		logger.Info("hook needs deploying", "hook", op.Name, "reason", op.Reason)
	}

	return fmt.Errorf("%w: run `hooksync deploy`", ErrOutdated)
}

// resolveConfig builds the override applied to the default configuration:
// config file first, then flags, then anchoring at the repository root. It
// returns the override together with the effective, validated configuration.
func resolveConfig(logger *slog.Logger) (config.Override, config.Config, error) {
	loaded, err := loadConfig(logger)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	root := ""
	if !noRepoRoot {
		root = repoRoot(logger)
	}

	override := config.Chain(
		config.FromFile(loaded),
		flagOverride,
		func(c config.Config) config.Config { return c.Anchor(root) },
	)

	cfg := override(config.Default())
	if err := cfg.Validate(); err != nil {
		return nil, config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return override, cfg, nil
}

// flagOverride applies command line flags on top of c
func flagOverride(c config.Config) config.Config {
	if sourceDir != "" {
		c.Source = sourceDir
	}
	if destDir != "" {
		c.Destination = destDir
	}
	if permMode != "" {
		c.Permissions.Mode = config.PermissionMode(permMode)
	}
	return c
}

// repoRoot returns the enclosing repository's work tree root, or "" when the
// working directory is not inside a repository
func repoRoot(logger *slog.Logger) string {
	repo, err := gitrepo.Open(".")
	if err != nil {
		if errors.Is(err, gitrepo.ErrNotRepository) {
			logger.Debug("not inside a git repository, using paths relative to the working directory")
		} else {
			logger.Warn("failed to open git repository, using paths relative to the working directory", "error", err)
		}
		return ""
	}

	if hooksPath, err := repo.HooksPath(); err != nil {
		logger.Warn("failed to read core.hooksPath", "error", err)
	} else if hooksPath != "" {
		logger.Warn("core.hooksPath is set, git may not run hooks from the destination directory",
			"hooks_path", hooksPath)
	}

	logger.Debug("resolved repository root", "root", repo.Root())
	return repo.Root()
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// loadConfig reads the config file named by --config, falling back to the
// user config file. It returns nil when no file is configured or found.
func loadConfig(logger *slog.Logger) (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		found, err := xdg.SearchConfigFile(userConfigPath)
		if err != nil {
			logger.Debug("no config file found, using defaults")
			return nil, nil
		}
		configPath = found
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"source", cfg.Source,
		"destination", cfg.Destination,
		"permissions", cfg.Permissions.Mode)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
