package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"

	"github.com/schaermu/hooksync/internal/config"
)

// resetFlags restores flag globals after a test
func resetFlags(t *testing.T) {
	t.Helper()
	origCfgFile, origSource, origDest, origPerm := cfgFile, sourceDir, destDir, permMode
	origDryRun, origNoRepoRoot := dryRun, noRepoRoot
	origLevel, origFormat := logLevel, logFormat
	t.Cleanup(func() {
		cfgFile, sourceDir, destDir, permMode = origCfgFile, origSource, origDest, origPerm
		dryRun, noRepoRoot = origDryRun, origNoRepoRoot
		logLevel, logFormat = origLevel, origFormat
	})
	logLevel = "error"
}

// isolateUserConfig points the XDG config search at an empty directory
func isolateUserConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	// Registered first so it runs after the env vars are restored.
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CONFIG_DIRS", dir)
	xdg.Reload()
	return dir
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeHooks(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSetupLogger(t *testing.T) {
	resetFlags(t)

	for _, tc := range []struct {
		name      string
		logLevel  string
		logFormat string
	}{
		{name: "debug/text", logLevel: "debug", logFormat: "text"},
		{name: "info/json", logLevel: "info", logFormat: "json"},
		{name: "warn/text", logLevel: "warn", logFormat: "text"},
		{name: "error/text", logLevel: "error", logFormat: "text"},
		{name: "unknown/text", logLevel: "unknown", logFormat: "text"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			logLevel = tc.logLevel
			logFormat = tc.logFormat

			logger := setupLogger()
			if logger == nil {
				t.Fatal("setupLogger returned nil")
			}
		})
	}
}

func TestLoadConfig_WithExplicitPath(t *testing.T) {
	resetFlags(t)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	content := []byte("source: \"" + filepath.Join(tmpDir, "hooks") + "\"\npermissions:\n  mode: command\n")
	if err := os.WriteFile(cfgPath, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfgFile = cfgPath
	cfg, err := loadConfig(testLogger())
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg == nil {
		t.Fatal("loadConfig returned nil config")
	}
	if cfg.Permissions.Mode != config.PermissionsCommand {
		t.Errorf("permissions mode = %s, want command", cfg.Permissions.Mode)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	resetFlags(t)

	cfgFile = filepath.Join(t.TempDir(), "nonexistent.yaml")
	if _, err := loadConfig(testLogger()); err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestLoadConfig_NoUserConfig(t *testing.T) {
	resetFlags(t)
	isolateUserConfig(t)
	cfgFile = ""

	cfg, err := loadConfig(testLogger())
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config without a config file, got %+v", cfg)
	}
}

func TestLoadConfig_UserConfig(t *testing.T) {
	resetFlags(t)
	dir := isolateUserConfig(t)
	cfgFile = ""

	writeHooks(t, filepath.Join(dir, "hooksync"), map[string]string{
		"config.yaml": "destination: /srv/repo/.git/hooks\n",
	})

	cfg, err := loadConfig(testLogger())
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg == nil || cfg.Destination != "/srv/repo/.git/hooks" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	resetFlags(t)
	isolateUserConfig(t)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	content := []byte("source: /from/file\ndestination: /from/file/dest\n")
	if err := os.WriteFile(cfgPath, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfgFile = cfgPath
	destDir = "/from/flag"
	permMode = "none"
	noRepoRoot = true

	_, cfg, err := resolveConfig(testLogger())
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if cfg.Source != "/from/file" {
		t.Errorf("Source = %s, want value from file", cfg.Source)
	}
	if cfg.Destination != "/from/flag" {
		t.Errorf("Destination = %s, want value from flag", cfg.Destination)
	}
	if cfg.Permissions.Mode != config.PermissionsNone {
		t.Errorf("Permissions.Mode = %s, want none", cfg.Permissions.Mode)
	}
}

func TestResolveConfig_InvalidPermissions(t *testing.T) {
	resetFlags(t)
	isolateUserConfig(t)
	noRepoRoot = true
	permMode = "setgid"

	if _, _, err := resolveConfig(testLogger()); err == nil {
		t.Fatal("expected validation error for unknown permissions mode")
	}
}

func TestRunDeployAndCheck(t *testing.T) {
	resetFlags(t)
	isolateUserConfig(t)

	root := t.TempDir()
	sourceDir = filepath.Join(root, "hooks")
	destDir = filepath.Join(root, ".git", "hooks")
	noRepoRoot = true
	permMode = "none"

	writeHooks(t, sourceDir, map[string]string{"pre-commit": "echo hi", "pre-push": "echo bye"})

	err := runCheck(checkCmd, nil)
	if !errors.Is(err, ErrOutdated) {
		t.Fatalf("check before deploy: expected ErrOutdated, got %v", err)
	}
	if _, err := os.Stat(destDir); !os.IsNotExist(err) {
		t.Fatal("check must not create the destination directory")
	}

	dryRun = true
	if err := runDeploy(deployCmd, nil); err != nil {
		t.Fatalf("dry-run deploy: %v", err)
	}
	if _, err := os.Stat(destDir); !os.IsNotExist(err) {
		t.Fatal("dry-run must not create the destination directory")
	}

	dryRun = false
	if err := runDeploy(deployCmd, nil); err != nil {
		t.Fatalf("deploy: %v", err)
	}

	for name, want := range map[string]string{"pre-commit": "echo hi", "pre-push": "echo bye"} {
		got, err := os.ReadFile(filepath.Join(destDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}

	if err := runCheck(checkCmd, nil); err != nil {
		t.Errorf("check after deploy: %v", err)
	}
}

func TestRunDeploy_MissingSource(t *testing.T) {
	resetFlags(t)
	isolateUserConfig(t)

	root := t.TempDir()
	sourceDir = filepath.Join(root, "hooks")
	destDir = filepath.Join(root, ".git", "hooks")
	noRepoRoot = true

	if err := runDeploy(deployCmd, nil); err == nil {
		t.Fatal("expected error for missing source directory")
	}
	if _, err := os.Stat(destDir); !os.IsNotExist(err) {
		t.Error("destination created despite missing source")
	}
}

func TestSetupSignalHandler(t *testing.T) {
	ctx, cancel := setupSignalHandler()
	if ctx == nil {
		t.Fatal("setupSignalHandler returned nil context")
	}

	cancel()

	<-ctx.Done()
	if err := ctx.Err(); err == nil {
		t.Fatal("expected context error after cancel, got nil")
	}
}

func TestVersionCmd(t *testing.T) {
	t.Helper()
	// versionCmd.Run simply prints version info; should not panic.
	versionCmd.Run(versionCmd, []string{})
}
