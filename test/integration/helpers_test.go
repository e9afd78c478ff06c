//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir    string // HOME, receives ~/.claude on user installs
	SourceDir  string // component source tree
	ProjectDir string // a mock TypeScript project
}

// setupTestEnv creates isolated temp directories and points HOME at one of
// them so user-target installs stay sandboxed.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:    t.TempDir(),
		SourceDir:  t.TempDir(),
		ProjectDir: t.TempDir(),
	}
	t.Setenv("HOME", env.HomeDir)
	t.Setenv("CLAUDEKIT_SOURCE", env.SourceDir)

	return env
}

// setupSource writes a component tree with commands, agents, and a hook that
// overrides a built-in one.
func setupSource(t *testing.T, sourceDir string) {
	t.Helper()

	writeFile(t, filepath.Join(sourceDir, "commands", "git", "status.md"), `---
name: status
description: Summarize the working tree
category: git
allowed-tools: Bash(git status:*)
---
Show the current git status.
`)
	writeFile(t, filepath.Join(sourceDir, "commands", "git", "commit.md"), `---
name: commit
description: Create a git commit following project conventions
category: git
allowed-tools: Bash(git status:*), Bash(git commit:*), Read
version: v1.2
---
Review the staged changes first with /git:status, then commit.
`)
	writeFile(t, filepath.Join(sourceDir, "commands", "checkpoint", "create.md"), `---
name: create
description: Stash a checkpoint of the working tree
dependencies: git:status
optional-dependencies: git:commit
---
Create a checkpoint.
`)
	writeFile(t, filepath.Join(sourceDir, "agents", "typescript", "expert.md"), `---
name: typescript-expert
description: TypeScript specialist
category: development
dependencies: typescript
tools: [Read, Grep]
---
You are a TypeScript expert.
`)
	writeFile(t, filepath.Join(sourceDir, "hooks", "lint-changed.sh"), `#!/usr/bin/env bash
# name: lint-changed
# description: Run eslint on changed files
# category: validation
# dependencies: eslint
# event: PostToolUse
# matcher: Write|Edit
# timeout: 45

set -euo pipefail
npx eslint "$@"
`)
	writeFile(t, filepath.Join(sourceDir, "commands", "README.md"), "# Commands\n")
}

// setupTypeScriptProject marks ProjectDir as a git TypeScript project linted
// with eslint.
func setupTypeScriptProject(t *testing.T, projectDir string) {
	t.Helper()
	writeFile(t, filepath.Join(projectDir, "package.json"), `{
  "name": "demo",
  "devDependencies": {"typescript": "^5.6.0", "eslint": "^9.0.0"}
}
`)
	writeFile(t, filepath.Join(projectDir, "tsconfig.json"), "{}\n")
	writeFile(t, filepath.Join(projectDir, "eslint.config.js"), "export default [];\n")
	if err := os.MkdirAll(filepath.Join(projectDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
}

// writeFile creates a file at the given path with the given content.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}

// assertFileContains fails if the file doesn't exist or doesn't contain substr.
func assertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("reading %s: %v", path, err)
		return
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}
