package perm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/schaermu/hooksync/internal/config"
)

// PlainMode is the mode a deployed hook is reset to before marking
const PlainMode os.FileMode = 0644

// executableBits are the bits `chmod +x` adds
const executableBits os.FileMode = 0111

// posixPlatforms are the GOOS values that honor the executable bit
var posixPlatforms = map[string]bool{
	"linux":     true,
	"darwin":    true,
	"freebsd":   true,
	"openbsd":   true,
	"netbsd":    true,
	"dragonfly": true,
	"solaris":   true,
	"illumos":   true,
	"aix":       true,
	"android":   true,
}

// IsPOSIX returns true if goos is a Unix-like platform where hooks need the
// executable bit to run
func IsPOSIX(goos string) bool {
	return posixPlatforms[goos]
}

// Marker adjusts the permissions of deployed hook files
type Marker interface {
	// Normalize resets path to a plain, writable, non-executable file
	Normalize(path string) error
	// MarkExecutable makes path executable, the equivalent of chmod +x
	MarkExecutable(ctx context.Context, path string) error
}

// New returns the Marker for the configured permission mode
func New(mode config.PermissionMode) (Marker, error) {
	switch mode {
	case config.PermissionsNative, "":
		return NewNativeMarker(), nil
	case config.PermissionsCommand:
		return NewCommandMarker(), nil
	case config.PermissionsNone:
		return NewPlainMarker(), nil
	default:
		return nil, fmt.Errorf("unknown permissions mode: %s", mode)
	}
}

// NativeMarker implements Marker with os.Chmod
type NativeMarker struct{}

// NewNativeMarker creates a marker that changes modes through the OS file API
func NewNativeMarker() *NativeMarker {
	return &NativeMarker{}
}

// Normalize sets path to PlainMode, clearing read-only and special bits
func (m *NativeMarker) Normalize(path string) error {
	if err := os.Chmod(path, PlainMode); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

// MarkExecutable adds the executable bits to the current mode of path
func (m *NativeMarker) MarkExecutable(_ context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.Chmod(path, info.Mode().Perm()|executableBits); err != nil {
		return fmt.Errorf("chmod +x %s: %w", path, err)
	}
	return nil
}

// CommandMarker implements Marker by shelling out to chmod for the
// executable bit
type CommandMarker struct {
	native  *NativeMarker
	program string
}

// NewCommandMarker creates a marker that runs `chmod +x <path>`
func NewCommandMarker() *CommandMarker {
	return &CommandMarker{native: NewNativeMarker(), program: "chmod"}
}

// Normalize resets the mode natively; only marking goes through chmod
func (m *CommandMarker) Normalize(path string) error {
	return m.native.Normalize(path)
}

// MarkExecutable runs chmod +x against path
func (m *CommandMarker) MarkExecutable(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, m.program, "+x", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s +x %s failed: %w: %s", m.program, path, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// PlainMarker resets deployed hooks to PlainMode but never marks them
// executable
type PlainMarker struct {
	native *NativeMarker
}

// NewPlainMarker creates a marker for the none permissions mode
func NewPlainMarker() *PlainMarker {
	return &PlainMarker{native: NewNativeMarker()}
}

// Normalize sets path to PlainMode
func (m *PlainMarker) Normalize(path string) error {
	return m.native.Normalize(path)
}

// MarkExecutable does nothing
func (m *PlainMarker) MarkExecutable(context.Context, string) error { return nil }

// NopMarker leaves permissions untouched
type NopMarker struct{}

// Normalize does nothing
func (NopMarker) Normalize(string) error { return nil }

// MarkExecutable does nothing
func (NopMarker) MarkExecutable(context.Context, string) error { return nil }
