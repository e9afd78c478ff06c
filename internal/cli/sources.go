package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/claudekit-labs/claudekit/internal/config"
)

// componentsDir is the directory holding commands/, hooks/, and agents/.
const componentsDir = "components"

// resolveSource picks the component source root. Candidates are tried in
// order: the --source flag, the source config key (or its env var), a
// components directory next to the executable, then ~/.claudekit/components.
// Explicit choices must exist; the fallbacks are skipped when missing.
func resolveSource(flagValue, configValue string) (string, error) {
	for _, explicit := range []string{flagValue, configValue} {
		if explicit == "" {
			continue
		}
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("resolving source %s: %w", explicit, err)
		}
		if !isDir(abs) {
			return "", fmt.Errorf("source directory %s does not exist", abs)
		}
		return abs, nil
	}

	for _, candidate := range fallbackSources() {
		if isDir(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no component source found; pass --source or run `%s config set %s <dir>`",
		rootCmd.Name(), config.KeySource)
}

func fallbackSources() []string {
	var out []string
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		out = append(out, filepath.Join(filepath.Dir(exe), "..", componentsDir))
	}
	out = append(out, filepath.Join(config.Dir(), componentsDir))
	return out
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
