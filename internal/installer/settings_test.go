package installer

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"testing"

	"github.com/claudekit-labs/claudekit/internal/manifest"
)

func hookComponent(id, event, matcher string) *manifest.Component {
	cfg := map[string]any{}
	if event != "" {
		cfg["event"] = event
	}
	if matcher != "" {
		cfg["matcher"] = matcher
	}
	return &manifest.Component{ID: id, Type: manifest.TypeHook, Config: cfg}
}

func TestBuildHooksConfig(t *testing.T) {
	root := filepath.Join("/tmp", "proj", ".claude")
	cfg := BuildHooksConfig(root, []*manifest.Component{
		hookComponent("fmt", "", ""),
		hookComponent("lint", "PostToolUse", "Edit"),
		hookComponent("types", "PostToolUse", "Edit"),
		hookComponent("done", "Stop", ""),
		{ID: "not-a-hook", Type: manifest.TypeCommand},
	})

	post := cfg["PostToolUse"]
	if len(post) != 2 {
		t.Fatalf("PostToolUse groups = %+v, want 2", post)
	}
	if post[0].Matcher != "*" || len(post[0].Hooks) != 1 {
		t.Errorf("default group = %+v", post[0])
	}
	if post[1].Matcher != "Edit" || len(post[1].Hooks) != 2 {
		t.Errorf("Edit group = %+v", post[1])
	}
	if got := cfg["Stop"]; len(got) != 1 || got[0].Matcher != "" {
		t.Errorf("Stop = %+v", got)
	}
	if want := filepath.Join(root, "hooks", "done.sh"); cfg.Commands("Stop")[0] != want {
		t.Errorf("Stop command = %s, want %s", cfg.Commands("Stop")[0], want)
	}
	if len(cfg) != 2 {
		t.Errorf("events = %d, want 2", len(cfg))
	}
}

func TestMergeSettings_PreservesOtherKeys(t *testing.T) {
	existing := []byte(`{
  "permissions": {"allow": ["Bash(git status)"]},
  "hooks": {
    "PostToolUse": [{"matcher": "Edit", "hooks": [{"type": "command", "command": "/old.sh"}]}]
  }
}`)
	hooks := HooksConfig{
		"PostToolUse": {{Matcher: "Edit", Hooks: []HookCommand{{Type: "command", Command: "/new.sh"}}}},
		"Stop":        {{Hooks: []HookCommand{{Type: "command", Command: "/stop.sh"}}}},
	}

	out, err := MergeSettings(existing, hooks)
	if err != nil {
		t.Fatalf("MergeSettings error: %v", err)
	}

	var doc struct {
		Permissions struct {
			Allow []string `json:"allow"`
		} `json:"permissions"`
		Hooks HooksConfig `json:"hooks"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !slices.Equal(doc.Permissions.Allow, []string{"Bash(git status)"}) {
		t.Errorf("permissions lost: %+v", doc.Permissions)
	}
	if got := doc.Hooks.Commands("PostToolUse"); !slices.Equal(got, []string{"/old.sh", "/new.sh"}) {
		t.Errorf("PostToolUse = %v", got)
	}
	if got := doc.Hooks.Commands("Stop"); !slices.Equal(got, []string{"/stop.sh"}) {
		t.Errorf("Stop = %v", got)
	}
}

func TestMergeSettings_Idempotent(t *testing.T) {
	hooks := HooksConfig{
		"PostToolUse": {{Matcher: "*", Hooks: []HookCommand{{Type: "command", Command: "/a.sh"}}}},
	}
	once, err := MergeSettings(nil, hooks)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := MergeSettings(once, hooks)
	if err != nil {
		t.Fatal(err)
	}
	if string(once) != string(twice) {
		t.Errorf("second merge changed output:\n%s\n%s", once, twice)
	}
}

func TestMergeSettings_Malformed(t *testing.T) {
	if _, err := MergeSettings([]byte("{"), HooksConfig{}); err == nil {
		t.Error("expected error for malformed settings")
	}
	if _, err := MergeSettings([]byte(`{"hooks": []}`), HooksConfig{}); err == nil {
		t.Error("expected error for malformed hooks block")
	}
}
