package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/claudekit-labs/claudekit/internal/manifest"
)

// embeddedHook describes a built-in hook that ships inside the binary.
type embeddedHook struct {
	id          string
	description string
	category    manifest.Category
	deps        []string
	event       string
	matcher     string
	timeout     int
}

var embeddedHooks = []embeddedHook{
	{
		id:          "typecheck-changed",
		description: "Run the TypeScript compiler on files changed by the last edit",
		category:    manifest.CategoryValidation,
		deps:        []string{"typescript"},
		event:       "PostToolUse",
		matcher:     "Write|Edit|MultiEdit",
		timeout:     60,
	},
	{
		id:          "lint-changed",
		description: "Run the project linter on files changed by the last edit",
		category:    manifest.CategoryValidation,
		deps:        []string{"eslint"},
		event:       "PostToolUse",
		matcher:     "Write|Edit|MultiEdit",
		timeout:     30,
	},
	{
		id:          "test-changed",
		description: "Run tests related to files changed by the last edit",
		category:    manifest.CategoryTesting,
		deps:        []string{"npm"},
		event:       "PostToolUse",
		matcher:     "Write|Edit|MultiEdit",
		timeout:     120,
	},
	{
		id:          "check-any-changed",
		description: "Reject 'any' types introduced in changed TypeScript files",
		category:    manifest.CategoryValidation,
		event:       "PostToolUse",
		matcher:     "Write|Edit|MultiEdit",
		timeout:     10,
	},
	{
		id:          "check-comment-replacement",
		description: "Detect code replaced by placeholder comments",
		category:    manifest.CategoryValidation,
		event:       "PostToolUse",
		matcher:     "Edit|MultiEdit",
		timeout:     10,
	},
	{
		id:          "create-checkpoint",
		description: "Save a git stash checkpoint when the agent stops",
		category:    manifest.CategoryGit,
		deps:        []string{"git"},
		event:       "Stop",
		timeout:     15,
	},
	{
		id:          "check-todos",
		description: "Block stopping while todo items remain open",
		category:    manifest.CategoryValidation,
		event:       "Stop",
		timeout:     10,
	},
	{
		id:          "self-review",
		description: "Ask the agent to review its own changes before stopping",
		category:    manifest.CategoryDevelopment,
		deps:        []string{"git"},
		event:       "Stop",
		timeout:     10,
	},
}

// hookRunner is the executable embedded hook shims delegate to.
const hookRunner = "claudekit-hooks"

// EmbeddedComponents returns fresh Component records for the built-in hook
// table. They have no source path; their content is a shim script.
func EmbeddedComponents() []*manifest.Component {
	out := make([]*manifest.Component, 0, len(embeddedHooks))
	for _, h := range embeddedHooks {
		content := hookShim(h)
		sum := sha256.Sum256(content)

		cfg := map[string]any{
			"event":   h.event,
			"timeout": h.timeout,
		}
		if h.matcher != "" {
			cfg["matcher"] = h.matcher
		}

		out = append(out, &manifest.Component{
			ID:           h.id,
			Type:         manifest.TypeHook,
			Name:         h.id,
			Description:  h.description,
			Dependencies: append([]string(nil), h.deps...),
			Platforms:    []string{manifest.PlatformAll},
			Category:     h.category,
			Enabled:      true,
			Config:       cfg,
			ContentHash:  hex.EncodeToString(sum[:]),
			Content:      content,
		})
	}
	return out
}

func hookShim(h embeddedHook) []byte {
	var b strings.Builder
	fmt.Fprintln(&b, "#!/usr/bin/env bash")
	fmt.Fprintf(&b, "# name: %s\n", h.id)
	fmt.Fprintf(&b, "# description: %s\n", h.description)
	fmt.Fprintf(&b, "# event: %s\n", h.event)
	if len(h.deps) > 0 {
		fmt.Fprintf(&b, "# dependencies: %s\n", strings.Join(h.deps, ", "))
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "set -euo pipefail")
	fmt.Fprintf(&b, "exec %s run %s \"$@\"\n", hookRunner, h.id)
	return []byte(b.String())
}
