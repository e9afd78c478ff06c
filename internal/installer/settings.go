package installer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/claudekit-labs/claudekit/internal/manifest"
)

// SettingsFile is the settings file written under each target root.
const SettingsFile = "settings.json"

const (
	defaultHookEvent = "PostToolUse"
	anyToolMatcher   = "*"
)

// toolEvents take a tool-name matcher.
var toolEvents = map[string]bool{
	"PreToolUse":  true,
	"PostToolUse": true,
}

// HookCommand is one command registered for an event.
type HookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// MatcherGroup is the commands run for events matching one tool pattern.
type MatcherGroup struct {
	Matcher string        `json:"matcher,omitempty"`
	Hooks   []HookCommand `json:"hooks"`
}

// HooksConfig maps an event name to its matcher groups.
type HooksConfig map[string][]MatcherGroup

// Commands returns every command registered for event.
func (h HooksConfig) Commands(event string) []string {
	var out []string
	for _, g := range h[event] {
		for _, hc := range g.Hooks {
			out = append(out, hc.Command)
		}
	}
	return out
}

// BuildHooksConfig registers each hook installed under root. Hooks sharing an
// event and matcher are grouped in install order.
func BuildHooksConfig(root string, hooks []*manifest.Component) HooksConfig {
	cfg := HooksConfig{}
	for _, c := range hooks {
		if c.Type != manifest.TypeHook {
			continue
		}
		event := c.ConfigString("event")
		if event == "" {
			event = defaultHookEvent
		}
		matcher := c.ConfigString("matcher")
		if matcher == "" && toolEvents[event] {
			matcher = anyToolMatcher
		}

		cmd := HookCommand{
			Type:    "command",
			Command: filepath.Join(root, manifest.TypeHook.Dir(), filepath.FromSlash(c.RelPath())),
			Timeout: configInt(c.Config, "timeout"),
		}
		cfg.add(event, matcher, cmd)
	}
	return cfg
}

func (h HooksConfig) add(event, matcher string, cmd HookCommand) {
	groups := h[event]
	for i := range groups {
		if groups[i].Matcher != matcher {
			continue
		}
		if !slices.ContainsFunc(groups[i].Hooks, func(existing HookCommand) bool {
			return existing.Command == cmd.Command
		}) {
			groups[i].Hooks = append(groups[i].Hooks, cmd)
		}
		return
	}
	h[event] = append(groups, MatcherGroup{Matcher: matcher, Hooks: []HookCommand{cmd}})
}

func configInt(cfg map[string]any, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// MergeSettings merges hooks into existing settings JSON and returns the
// encoded result. Keys other than "hooks" are preserved. Commands already
// registered under the same event and matcher are not duplicated. Empty
// existing input starts from an empty object.
func MergeSettings(existing []byte, hooks HooksConfig) ([]byte, error) {
	doc := map[string]json.RawMessage{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &doc); err != nil {
			return nil, fmt.Errorf("parsing existing settings: %w", err)
		}
	}

	merged := HooksConfig{}
	if raw, ok := doc["hooks"]; ok {
		if err := json.Unmarshal(raw, &merged); err != nil {
			return nil, fmt.Errorf("parsing existing hooks: %w", err)
		}
	}

	events := make([]string, 0, len(hooks))
	for event := range hooks {
		events = append(events, event)
	}
	slices.Sort(events)
	for _, event := range events {
		for _, g := range hooks[event] {
			for _, cmd := range g.Hooks {
				merged.add(event, g.Matcher, cmd)
			}
		}
	}

	rawHooks, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	doc["hooks"] = rawHooks

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
