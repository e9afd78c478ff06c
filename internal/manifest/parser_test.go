package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const testdataDir = "testdata"

func testPath(name string) string {
	return filepath.Join(testdataDir, name)
}

func TestExtract_CommandFrontmatter(t *testing.T) {
	c, err := Extract(testPath("git-commit.md"), TypeCommand, "git:commit")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if c.ID != "git:commit" {
		t.Errorf("ID = %q, want %q", c.ID, "git:commit")
	}
	if c.Name != "commit" {
		t.Errorf("Name = %q, want %q", c.Name, "commit")
	}
	if c.Category != CategoryGit {
		t.Errorf("Category = %q, want %q", c.Category, CategoryGit)
	}
	if c.Version != "1.2.0" {
		t.Errorf("Version = %q, want normalized %q", c.Version, "1.2.0")
	}
	if !slices.Equal(c.Dependencies, []string{"git:status"}) {
		t.Errorf("Dependencies = %v, want [git:status]", c.Dependencies)
	}
	if !slices.Equal(c.DetectedDependencies, []string{"git:status", "git"}) {
		t.Errorf("DetectedDependencies = %v, want [git:status git]", c.DetectedDependencies)
	}
	if got := c.AllowedTools(); len(got) != 3 {
		t.Errorf("AllowedTools = %v, want 3 entries", got)
	}
	if c.ConfigString("argument-hint") != "[message]" {
		t.Errorf("argument-hint = %q", c.ConfigString("argument-hint"))
	}
	if !c.Enabled {
		t.Error("component should default to enabled")
	}
	if c.ContentHash == "" || len(c.ContentHash) != 64 {
		t.Errorf("ContentHash = %q, want sha256 hex", c.ContentHash)
	}
	if c.Embedded() {
		t.Error("file-backed component reported as embedded")
	}
}

func TestExtract_AgentListFields(t *testing.T) {
	c, err := Extract(testPath("typescript-expert.md"), TypeAgent, "typescript-expert")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if !slices.Equal(c.Dependencies, []string{"typescript", "oracle"}) {
		t.Errorf("Dependencies = %v", c.Dependencies)
	}
	if !slices.Equal(c.Platforms, []string{"linux", "darwin"}) {
		t.Errorf("Platforms = %v, want [linux darwin]", c.Platforms)
	}
	if c.SupportsPlatform("windows") {
		t.Error("windows should not be supported")
	}
	if !c.SupportsPlatform("darwin") {
		t.Error("darwin should be supported")
	}
	// No explicit category: inferred from "tsc" in the body.
	if c.Category != CategoryValidation {
		t.Errorf("Category = %q, want inferred %q", c.Category, CategoryValidation)
	}
}

func TestExtract_HookCommentHeader(t *testing.T) {
	c, err := Extract(testPath("lint-changed.sh"), TypeHook, "lint-changed")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if c.Name != "lint-changed" {
		t.Errorf("Name = %q", c.Name)
	}
	if !slices.Equal(c.Dependencies, []string{"eslint", "npx"}) {
		t.Errorf("Dependencies = %v, want [eslint npx]", c.Dependencies)
	}
	if c.ConfigString("event") != "PostToolUse" {
		t.Errorf("event = %q", c.ConfigString("event"))
	}
	if c.ConfigString("matcher") != "Write|Edit|MultiEdit" {
		t.Errorf("matcher = %q", c.ConfigString("matcher"))
	}
	if c.Config["timeout"] != 30 {
		t.Errorf("timeout = %v, want 30", c.Config["timeout"])
	}
}

func TestExtract_InvalidCategory(t *testing.T) {
	c, err := Extract(testPath("bad-category.md"), TypeCommand, "broken")
	if err == nil {
		t.Fatalf("expected error, got component %+v", c)
	}
	if c != nil {
		t.Error("a failed extraction must not return a partial component")
	}

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	found := false
	for _, issue := range pe.Issues {
		if issue.Path == "/category" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an issue at /category, got %+v", pe.Issues)
	}
}

func TestExtract_UnclosedFrontmatter(t *testing.T) {
	_, err := Extract(testPath("unclosed.md"), TypeCommand, "unclosed")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestExtract_FileNotFound(t *testing.T) {
	_, err := Extract(testPath("nonexistent.md"), TypeCommand, "x")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestExtractBytes_NoHeader(t *testing.T) {
	c, err := ExtractBytes([]byte("# Refactor helper\n\nRefactor the selected code.\n"), "x.md", TypeCommand, "refactor")
	if err != nil {
		t.Fatalf("ExtractBytes error: %v", err)
	}
	if c.Name != "refactor" {
		t.Errorf("Name = %q, want id fallback", c.Name)
	}
	if c.Category != CategoryDevelopment {
		t.Errorf("Category = %q, want %q", c.Category, CategoryDevelopment)
	}
	if !slices.Equal(c.Platforms, []string{PlatformAll}) {
		t.Errorf("Platforms = %v, want [all]", c.Platforms)
	}
}

func TestExtractBytes_LenientFrontmatter(t *testing.T) {
	// Unquoted colon in the description is not strict YAML.
	data := []byte("---\nname: audit\ndescription: Audit a module: thoroughly\nenabled: false\n---\nbody\n")
	c, err := ExtractBytes(data, "audit.md", TypeCommand, "docs:audit")
	if err != nil {
		t.Fatalf("ExtractBytes error: %v", err)
	}
	if c.Description != "Audit a module: thoroughly" {
		t.Errorf("Description = %q", c.Description)
	}
	if c.Enabled {
		t.Error("enabled: false should disable the component")
	}
}

func TestExtractBytes_HookBadEnabled(t *testing.T) {
	data := []byte("#!/bin/sh\n# name: flaky\n# enabled: sometimes\n\necho hi\n")
	if _, err := ExtractBytes(data, "flaky.sh", TypeHook, "flaky"); err == nil {
		t.Fatal("expected schema error for non-boolean enabled")
	}
}

func TestExtractBytes_VersionKeptWhenNotSemver(t *testing.T) {
	data := []byte("---\nversion: nightly\n---\n")
	c, err := ExtractBytes(data, "n.md", TypeCommand, "n")
	if err != nil {
		t.Fatalf("ExtractBytes error: %v", err)
	}
	if c.Version != "nightly" {
		t.Errorf("Version = %q, want verbatim", c.Version)
	}
}

func TestExtractBytes_VersionKeepsScalarText(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"version: 1.10", "1.10.0"},
		{"version: 2", "2.0.0"},
		{"version: v1.2.3", "1.2.3"},
		{"version: \"0.10\"", "0.10.0"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			data := []byte("---\nname: x\n" + tt.header + "\n---\nbody\n")
			c, err := ExtractBytes(data, "x.md", TypeCommand, "x")
			if err != nil {
				t.Fatalf("ExtractBytes error: %v", err)
			}
			if c.Version != tt.want {
				t.Errorf("Version = %q, want %q", c.Version, tt.want)
			}
		})
	}
}

func TestExtractBytes_EmptyFrontmatter(t *testing.T) {
	c, err := ExtractBytes([]byte("---\n---\n# Title\nbody\n"), "x.md", TypeCommand, "x")
	if err != nil {
		t.Fatalf("ExtractBytes error: %v", err)
	}
	if c.Name != "x" {
		t.Errorf("Name = %q, want id fallback", c.Name)
	}
	if !c.Enabled {
		t.Error("component should be enabled by default")
	}
}

func TestSplitHeader_ClosingMarker(t *testing.T) {
	tests := []struct {
		desc   string
		input  string
		body   string
		closed bool
	}{
		{"empty block", "---\n---\nbody\n", "body\n", true},
		{"marker at end of file", "---\nname: a\n---", "", true},
		{"trailing spaces on marker", "---\nname: a\n---  \nbody", "body", true},
		{"longer rule is not a marker", "---\nname: a\n-----\nbody\n", "", false},
		{"marker with suffix is not a marker", "---\nname: a\n---x\n", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, body, err := splitHeader([]byte(tt.input), false)
			if !tt.closed {
				if err == nil {
					t.Fatal("expected unclosed frontmatter error")
				}
				return
			}
			if err != nil {
				t.Fatalf("splitHeader error: %v", err)
			}
			if string(body) != tt.body {
				t.Errorf("body = %q, want %q", body, tt.body)
			}
		})
	}
}

func TestExtractBytes_ContentHashTracksContent(t *testing.T) {
	a, err := ExtractBytes([]byte("---\nname: a\n---\none\n"), "a.md", TypeCommand, "a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ExtractBytes([]byte("---\nname: a\n---\ntwo\n"), "a.md", TypeCommand, "a")
	if err != nil {
		t.Fatal(err)
	}
	if a.ContentHash == b.ContentHash {
		t.Error("different content should hash differently")
	}
}

func TestIDFromPath(t *testing.T) {
	tests := []struct {
		typ  Type
		rel  string
		want string
	}{
		{TypeCommand, "git/commit.md", "git:commit"},
		{TypeCommand, "validate.md", "validate"},
		{TypeAgent, "typescript/expert.md", "typescript-expert"},
		{TypeAgent, "oracle.md", "oracle"},
		{TypeHook, "lint-changed.sh", "lint-changed"},
		{TypeHook, "nested/dir/check.sh", "check"},
	}
	for _, tt := range tests {
		if got := IDFromPath(tt.typ, tt.rel); got != tt.want {
			t.Errorf("IDFromPath(%s, %q) = %q, want %q", tt.typ, tt.rel, got, tt.want)
		}
	}
}

func TestAllDependencies(t *testing.T) {
	c := &Component{
		ID:                   "a",
		Dependencies:         []string{"b", "a", "c"},
		DetectedDependencies: []string{"c", "d"},
		OptionalDependencies: []string{"e"},
	}
	if got := c.AllDependencies(false); !slices.Equal(got, []string{"b", "c", "d"}) {
		t.Errorf("AllDependencies(false) = %v", got)
	}
	if got := c.AllDependencies(true); !slices.Equal(got, []string{"b", "c", "d", "e"}) {
		t.Errorf("AllDependencies(true) = %v", got)
	}
}

func TestRelPath(t *testing.T) {
	tests := []struct {
		c    Component
		want string
	}{
		{Component{ID: "git:commit", Type: TypeCommand}, "git/commit.md"},
		{Component{ID: "validate", Type: TypeCommand}, "validate.md"},
		{Component{ID: "typescript-expert", Type: TypeAgent}, "typescript-expert.md"},
		{Component{ID: "lint-changed", Type: TypeHook}, "lint-changed.sh"},
	}
	for _, tt := range tests {
		if got := tt.c.RelPath(); got != tt.want {
			t.Errorf("RelPath(%s) = %q, want %q", tt.c.ID, got, tt.want)
		}
	}
}
