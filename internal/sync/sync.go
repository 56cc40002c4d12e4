package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/schaermu/hooksync/internal/config"
	"github.com/schaermu/hooksync/internal/hooks"
	"github.com/schaermu/hooksync/internal/perm"
)

var (
	// ErrMissingSource is returned when the hooks source directory does not exist
	ErrMissingSource = errors.New("git hooks source files not found")
	// ErrMarkExecutable is returned when a deployed hook cannot be made executable
	ErrMarkExecutable = errors.New("failed to mark hook as executable")
)

// Engine deploys hook scripts from a source directory into a destination
// directory
type Engine struct {
	fs     hooks.Filesystem
	marker perm.Marker
	logger *slog.Logger
	goos   string
	dryRun bool
}

// Option configures an Engine
type Option func(*Engine)

// WithGOOS overrides the platform used to decide whether hooks are marked
// executable
func WithGOOS(goos string) Option {
	return func(e *Engine) { e.goos = goos }
}

// WithDryRun makes Run report the plan instead of applying it
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// NewEngine creates a new sync engine
func NewEngine(fs hooks.Filesystem, marker perm.Marker, logger *slog.Logger, opts ...Option) *Engine {
	if marker == nil {
		marker = perm.NopMarker{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{
		fs:     fs,
		marker: marker,
		logger: logger,
		goos:   runtime.GOOS,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deploy applies override to the default configuration and runs the sync.
// A nil override deploys with the defaults unchanged.
func (e *Engine) Deploy(ctx context.Context, override config.Override) error {
	cfg := config.Default()
	if override != nil {
		cfg = override(cfg)
	}
	return e.Run(ctx, cfg)
}

// Run deploys the hooks if any are missing or outdated
func (e *Engine) Run(ctx context.Context, cfg config.Config) error {
	if e.dryRun {
		return e.dryRunPlan(cfg)
	}

	upToDate, err := e.CheckUpToDate(cfg)
	if err != nil {
		return err
	}

	if upToDate {
		e.logger.Info("all git hooks are up to date", "destination", cfg.Destination)
		return nil
	}

	e.logger.Info("one or more git hooks are missing or outdated, deploying latest versions",
		"source", cfg.Source,
		"destination", cfg.Destination)

	return e.Synchronize(ctx, cfg)
}

// dryRunPlan logs what Run would do without touching the destination
func (e *Engine) dryRunPlan(cfg config.Config) error {
	plan, err := e.Plan(cfg)
	if err != nil {
		return err
	}

	if plan.UpToDate() {
		e.logger.Info("all git hooks are up to date", "destination", cfg.Destination)
		return nil
	}

	if plan.DestinationMissing {
		e.logger.Info("[dry-run] would create destination directory", "destination", cfg.Destination)
	}
	for _, op := range plan.Ops {
		e.logger.Info("[dry-run] would copy", "hook", op.Name, "reason", op.Reason, "dest", op.DestPath)
	}
	e.logger.Info("dry-run complete, no changes applied")
	return nil
}

// CheckUpToDate reports whether every source hook matches its deployed copy.
//
// Unlike UpToDate it creates the destination directory when missing, and in
// that case reports false without comparing any files.
func (e *Engine) CheckUpToDate(cfg config.Config) (bool, error) {
	created, err := e.EnsureDestination(cfg)
	if err != nil {
		return false, err
	}
	if created {
		return false, nil
	}
	return e.UpToDate(cfg)
}

// UpToDate reports whether every file in the source directory has identical
// content in the destination directory. It never writes.
func (e *Engine) UpToDate(cfg config.Config) (bool, error) {
	if err := e.requireSource(cfg); err != nil {
		return false, err
	}

	destExists, err := hooks.DirExists(e.fs, cfg.Destination)
	if err != nil {
		return false, fmt.Errorf("failed to stat destination directory: %w", err)
	}
	if !destExists {
		return false, nil
	}

	files, err := hooks.Discover(e.fs, cfg.Source)
	if err != nil {
		return false, fmt.Errorf("failed to list source hooks: %w", err)
	}

	for _, f := range files {
		reason, err := e.compare(f, e.fs.Join(cfg.Destination, f.Name))
		if err != nil {
			return false, err
		}
		if reason != "" {
			e.logger.Debug("hook is outdated", "hook", f.Name, "reason", reason)
			return false, nil
		}
	}

	return true, nil
}

// Plan lists every source hook whose deployed copy is missing or differs
func (e *Engine) Plan(cfg config.Config) (*Plan, error) {
	if err := e.requireSource(cfg); err != nil {
		return nil, err
	}

	destExists, err := hooks.DirExists(e.fs, cfg.Destination)
	if err != nil {
		return nil, fmt.Errorf("failed to stat destination directory: %w", err)
	}

	files, err := hooks.Discover(e.fs, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to list source hooks: %w", err)
	}

	plan := &Plan{
		DestinationMissing: !destExists,
		Ops:                make([]FileOp, 0),
	}

	for _, f := range files {
		destPath := e.fs.Join(cfg.Destination, f.Name)

		reason := ReasonMissing
		if destExists {
			reason, err = e.compare(f, destPath)
			if err != nil {
				return nil, err
			}
		}
		if reason == "" {
			continue
		}

		plan.Ops = append(plan.Ops, FileOp{
			Name:       f.Name,
			SourcePath: f.Path,
			DestPath:   destPath,
			Reason:     reason,
		})
	}

	return plan, nil
}

// EnsureDestination creates the destination directory if it does not exist
// and reports whether it had to be created
func (e *Engine) EnsureDestination(cfg config.Config) (bool, error) {
	if err := e.requireSource(cfg); err != nil {
		return false, err
	}

	exists, err := hooks.DirExists(e.fs, cfg.Destination)
	if err != nil {
		return false, fmt.Errorf("failed to stat destination directory: %w", err)
	}
	if exists {
		return false, nil
	}

	if err := e.fs.MkdirAll(cfg.Destination, 0755); err != nil {
		return false, fmt.Errorf("failed to create destination directory: %w", err)
	}
	e.logger.Debug("created destination directory", "destination", cfg.Destination)
	return true, nil
}

// Synchronize copies every source hook into the destination, overwriting
// existing files, and marks the copies executable on POSIX platforms.
// Destination files without a source counterpart are left alone.
func (e *Engine) Synchronize(ctx context.Context, cfg config.Config) error {
	if _, err := e.EnsureDestination(cfg); err != nil {
		return err
	}

	files, err := hooks.Discover(e.fs, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to list source hooks: %w", err)
	}

	markExecutable := perm.IsPOSIX(e.goos)

	for _, f := range files {
		destPath := e.fs.Join(cfg.Destination, f.Name)

		if !hooks.IsKnownHook(f.Name) {
			e.logger.Debug("file is not a recognized git hook name, copying anyway", "hook", f.Name)
		}

		if err := e.copyFile(f.Path, destPath); err != nil {
			return fmt.Errorf("failed to copy hook %s: %w", f.Name, err)
		}

		if err := e.marker.Normalize(destPath); err != nil {
			return fmt.Errorf("failed to reset attributes of %s: %w", destPath, err)
		}

		if !markExecutable {
			continue
		}

		e.logger.Info("marking hook as executable", "hook", f.Name)
		if err := e.marker.MarkExecutable(ctx, destPath); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMarkExecutable, f.Name, err)
		}
	}

	return nil
}

// requireSource fails with ErrMissingSource unless the source directory exists
func (e *Engine) requireSource(cfg config.Config) error {
	exists, err := hooks.DirExists(e.fs, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w at the specified path: %s", ErrMissingSource, cfg.Source)
	}
	return nil
}

// compare returns the reason f needs deploying to destPath, or "" when the
// deployed copy is identical
func (e *Engine) compare(f hooks.File, destPath string) (Reason, error) {
	expected, err := hooks.ReadContent(e.fs, f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read source hook %s: %w", f.Name, err)
	}

	actual, err := hooks.ReadContent(e.fs, destPath)
	if err != nil {
		return "", fmt.Errorf("failed to read deployed hook %s: %w", f.Name, err)
	}

	switch {
	case bytes.Equal(expected, actual):
		return "", nil
	case actual == nil:
		return ReasonMissing, nil
	default:
		return ReasonChanged, nil
	}
}

// copyFile copies src to dst with an atomic write, replacing dst if present
func (e *Engine) copyFile(src, dst string) error {
	srcFile, err := e.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	// Create temp file in destination directory
	tmpFile, err := e.fs.TempFile(filepath.Dir(dst), ".hooksync-tmp-")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = e.fs.Remove(tmpPath)
		}
	}() // cleanup on error

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename
	if err := e.fs.Rename(tmpPath, dst); err != nil {
		return err
	}
	renamed = true

	return nil
}
