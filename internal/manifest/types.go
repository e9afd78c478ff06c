package manifest

import (
	"runtime"
	"slices"
	"strings"
)

// Type is the kind of installable component.
type Type string

// Component type constants.
const (
	TypeCommand Type = "command"
	TypeHook    Type = "hook"
	TypeAgent   Type = "agent"
)

// ValidTypes contains all valid component types.
var ValidTypes = []Type{TypeCommand, TypeHook, TypeAgent}

// Dir returns the subdirectory name components of this type live under,
// both in the source tree and in an install target.
func (t Type) Dir() string {
	switch t {
	case TypeCommand:
		return "commands"
	case TypeHook:
		return "hooks"
	case TypeAgent:
		return "agents"
	default:
		return string(t) + "s"
	}
}

// Category groups components for listing and recommendation.
type Category string

// Category constants.
const (
	CategoryGit         Category = "git"
	CategoryValidation  Category = "validation"
	CategoryDevelopment Category = "development"
	CategoryTesting     Category = "testing"
	CategoryClaudeSetup Category = "claude-setup"
	CategoryUtility     Category = "utility"
)

// ValidCategories contains all valid categories.
var ValidCategories = []Category{
	CategoryGit,
	CategoryValidation,
	CategoryDevelopment,
	CategoryTesting,
	CategoryClaudeSetup,
	CategoryUtility,
}

// PlatformAll marks a component as supported everywhere.
const PlatformAll = "all"

// Component is an installable unit (command, hook, or agent) with its
// declared metadata. Components are created by Extract or the embedded
// table and are treated as read-only afterwards.
type Component struct {
	ID                   string
	Type                 Type
	Name                 string
	Description          string
	SourcePath           string // empty for embedded components
	Dependencies         []string
	DetectedDependencies []string
	OptionalDependencies []string
	Platforms            []string
	Category             Category
	Version              string
	Author               string
	Enabled              bool
	Config               map[string]any
	ContentHash          string

	// Content holds the file body of embedded components.
	Content []byte
}

// Embedded reports whether the component has no on-disk file.
func (c *Component) Embedded() bool {
	return c.SourcePath == ""
}

// AllDependencies returns declared then detected dependencies, deduplicated,
// in first-seen order. Optional dependencies are appended when withOptional
// is set.
func (c *Component) AllDependencies(withOptional bool) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(ids []string) {
		for _, id := range ids {
			if id == "" || id == c.ID || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	add(c.Dependencies)
	add(c.DetectedDependencies)
	if withOptional {
		add(c.OptionalDependencies)
	}
	return out
}

// SupportsPlatform reports whether the component targets the given GOOS.
// An empty goos means the running platform.
func (c *Component) SupportsPlatform(goos string) bool {
	if goos == "" {
		goos = runtime.GOOS
	}
	if len(c.Platforms) == 0 {
		return true
	}
	return slices.Contains(c.Platforms, PlatformAll) || slices.Contains(c.Platforms, goos)
}

// ConfigString returns a string value from the config bag, or "".
func (c *Component) ConfigString(key string) string {
	if c.Config == nil {
		return ""
	}
	if s, ok := c.Config[key].(string); ok {
		return s
	}
	return ""
}

// RelPath returns the slash-separated path the component is installed under,
// relative to its type directory. Command namespaces become subdirectories.
func (c *Component) RelPath() string {
	switch c.Type {
	case TypeHook:
		return c.ID + ".sh"
	case TypeCommand:
		return strings.ReplaceAll(c.ID, ":", "/") + ".md"
	default:
		return c.ID + ".md"
	}
}
