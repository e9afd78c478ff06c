package installer

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/claudekit-labs/claudekit/internal/manifest"
)

// ToolProber checks that an external tool is available on the host.
type ToolProber interface {
	// Probe returns the tool's version, or an empty string when the tool is
	// present but its version cannot be read.
	Probe(ctx context.Context, tool string) (string, error)
}

// probeTimeout bounds a single --version call.
const probeTimeout = 10 * time.Second

var versionPattern = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.-]+)?`)

// ExecProber locates tools on PATH and runs them with --version.
type ExecProber struct{}

// Probe implements ToolProber.
func (ExecProber) Probe(ctx context.Context, tool string) (string, error) {
	bin := manifest.ToolBinary(tool)
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", bin, err)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return "", nil
	}
	return parseToolVersion(out), nil
}

// parseToolVersion extracts the first semantic version in out, normalized.
// Output without a recognizable version yields "".
func parseToolVersion(out []byte) string {
	match := versionPattern.Find(out)
	if match == nil {
		return ""
	}
	v, err := semver.NewVersion(string(match))
	if err != nil {
		return ""
	}
	return v.String()
}
