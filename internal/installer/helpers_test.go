package installer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/claudekit-labs/claudekit/internal/project"
	"github.com/claudekit-labs/claudekit/internal/registry"
)

var fixedNow = time.Date(2026, 10, 19, 12, 30, 45, 123_000_000, time.UTC)

type fakeProber struct {
	missing map[string]bool
	probed  []string
}

func (f *fakeProber) Probe(_ context.Context, tool string) (string, error) {
	f.probed = append(f.probed, tool)
	if f.missing[tool] {
		return "", fmt.Errorf("%s not found", tool)
	}
	return "1.0.0", nil
}

func newTestExecutor(prober ToolProber) *Executor {
	e := NewExecutor(nil)
	e.SetClock(func() time.Time { return fixedNow })
	if prober != nil {
		e.SetProber(prober)
	}
	return e
}

func newTestPlanner(reg *registry.Registry) *Planner {
	p := NewPlanner(reg, nil)
	p.SetSignals(&project.Signals{})
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// fileComponent writes a source file and returns a component backed by it.
func fileComponent(t *testing.T, srcRoot string, typ manifest.Type, id string, deps ...string) *manifest.Component {
	t.Helper()
	c := &manifest.Component{
		ID:           id,
		Type:         typ,
		Name:         id,
		Dependencies: deps,
		Platforms:    []string{manifest.PlatformAll},
		Category:     manifest.CategoryUtility,
		Enabled:      true,
		Config:       map[string]any{},
	}
	c.SourcePath = filepath.Join(srcRoot, typ.Dir(), filepath.FromSlash(c.RelPath()))
	writeFile(t, c.SourcePath, "source of "+id+"\n")
	return c
}

// snapshot captures every path under root with its mode and content.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entry := info.Mode().String()
		if !d.IsDir() {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			entry += ":" + string(data)
		}
		out[path] = entry
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func scenarioInstallation(projectRoot string) Installation {
	return Installation{
		Target:      TargetProject,
		ProjectRoot: projectRoot,
		Components:  []string{"typecheck-changed", "lint-changed", "create-checkpoint"},
	}
}
