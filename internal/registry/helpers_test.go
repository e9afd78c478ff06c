package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// newSourceTree creates a small source root with commands, agents, a hook,
// and one malformed file.
func newSourceTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "commands", "git", "commit.md"),
		"---\ndescription: Commit staged changes\ncategory: git\nallowed-tools: Bash(git commit:*)\n---\nRun /git:status first.\n")
	writeFile(t, filepath.Join(root, "commands", "git", "status.md"),
		"---\ndescription: Show status\ncategory: git\n---\nbody\n")
	writeFile(t, filepath.Join(root, "commands", "validate.md"),
		"---\ndescription: Validate the project\n---\nRun lint and typecheck.\n")
	writeFile(t, filepath.Join(root, "commands", "README.md"), "# Commands\n")
	writeFile(t, filepath.Join(root, "commands", "broken.md"),
		"---\ncategory: not-a-category\n---\n")
	writeFile(t, filepath.Join(root, "commands", "draft.md"),
		"---\ndescription: Work in progress\nenabled: false\n---\n")
	writeFile(t, filepath.Join(root, "agents", "typescript", "expert.md"),
		"---\ndescription: TypeScript expert\ncategory: development\ndependencies: typescript\n---\nbody\n")
	writeFile(t, filepath.Join(root, "hooks", "notify.sh"),
		"#!/bin/sh\n# description: Send a desktop notification\n# event: Notification\n\nnotify-send done\n")

	return root
}
