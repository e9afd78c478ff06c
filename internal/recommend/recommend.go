package recommend

import (
	goruntime "runtime"
	"slices"
	"strings"

	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/claudekit-labs/claudekit/internal/project"
	"github.com/claudekit-labs/claudekit/internal/registry"
)

// DefaultMinScore is the score at which a component is worth installing
// without being asked for.
const DefaultMinScore = 5

// Recommendation is a scored component.
type Recommendation struct {
	ID      string   `json:"id"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// rule adds score to a specific component when its signal matches.
type rule struct {
	id     string
	score  int
	reason string
	match  func(*project.Signals) bool
}

var rules = []rule{
	{"typecheck-changed", 10, "TypeScript project", hasLang(project.LangTypeScript)},
	{"check-any-changed", 6, "TypeScript project", hasLang(project.LangTypeScript)},
	{"lint-changed", 10, "ESLint configured", hasLinter(project.LinterESLint)},
	{"lint-changed", 10, "Biome configured", hasLinter(project.LinterBiome)},
	{"test-changed", 10, "JavaScript test runner configured", (*project.Signals).JavaScriptTests},
	{"create-checkpoint", 8, "git repository", isGit},
	{"self-review", 4, "git repository", isGit},
	{"check-todos", 2, "useful in every project", always},
	{"check-comment-replacement", 2, "useful in every project", always},
}

// categoryRule adds score to every component of a category.
type categoryRule struct {
	category manifest.Category
	score    int
	reason   string
	match    func(*project.Signals) bool
}

var categoryRules = []categoryRule{
	{manifest.CategoryGit, 3, "git workflow", isGit},
	{manifest.CategoryTesting, 3, "project has tests", (*project.Signals).HasTests},
	{manifest.CategoryValidation, 2, "project has static checks", func(s *project.Signals) bool {
		return len(s.Linters) > 0 || s.HasLanguage(project.LangTypeScript)
	}},
	{manifest.CategoryClaudeSetup, 1, "Claude Code setup", always},
}

// toolSignals maps an external tool dependency to the signal that shows the
// project uses it.
var toolSignals = map[string]func(*project.Signals) bool{
	"typescript": hasLang(project.LangTypeScript),
	"tsc":        hasLang(project.LangTypeScript),
	"node":       hasLang(project.LangJavaScript),
	"npm":        hasLang(project.LangJavaScript),
	"npx":        hasLang(project.LangJavaScript),
	"eslint":     hasLinter(project.LinterESLint),
	"biome":      hasLinter(project.LinterBiome),
	"jest":       hasTests(project.TestJest),
	"vitest":     hasTests(project.TestVitest),
	"mocha":      hasTests(project.TestMocha),
	"pytest":     hasTests(project.TestPytest),
	"python":     hasLang(project.LangPython),
	"go":         hasLang(project.LangGo),
	"git":        isGit,
}

// toolScore is added once per dependency matched by a signal.
const toolScore = 2

func hasLang(lang string) func(*project.Signals) bool {
	return func(s *project.Signals) bool { return s.HasLanguage(lang) }
}

func hasLinter(linter string) func(*project.Signals) bool {
	return func(s *project.Signals) bool { return s.HasLinter(linter) }
}

func hasTests(framework string) func(*project.Signals) bool {
	return func(s *project.Signals) bool { return s.HasTestFramework(framework) }
}

func isGit(s *project.Signals) bool { return s.Git }

func always(*project.Signals) bool { return true }

// Recommend scores every enabled component that supports the host platform
// and returns those with a positive score, highest first, ties by id.
func Recommend(reg *registry.Registry, signals *project.Signals) []Recommendation {
	return recommendFor(reg, signals, goruntime.GOOS)
}

func recommendFor(reg *registry.Registry, signals *project.Signals, goos string) []Recommendation {
	if signals == nil {
		signals = &project.Signals{}
	}

	var recs []Recommendation
	for _, c := range reg.All() {
		if !c.Enabled || !c.SupportsPlatform(goos) {
			continue
		}
		if rec, ok := score(c, signals); ok {
			recs = append(recs, rec)
		}
	}

	slices.SortFunc(recs, func(a, b Recommendation) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(a.ID, b.ID)
	})
	return recs
}

func score(c *manifest.Component, s *project.Signals) (Recommendation, bool) {
	rec := Recommendation{ID: c.ID}
	add := func(points int, reason string) {
		rec.Score += points
		if !slices.Contains(rec.Reasons, reason) {
			rec.Reasons = append(rec.Reasons, reason)
		}
	}

	for _, r := range rules {
		if r.id == c.ID && r.match(s) {
			add(r.score, r.reason)
		}
	}
	for _, r := range categoryRules {
		if r.category == c.Category && r.match(s) {
			add(r.score, r.reason)
		}
	}
	for _, dep := range c.AllDependencies(false) {
		if match, ok := toolSignals[dep]; ok && match(s) {
			add(toolScore, "uses "+dep)
		}
	}

	return rec, rec.Score > 0
}

// IDs returns the ids of recs scoring at least minScore, in rank order.
func IDs(recs []Recommendation, minScore int) []string {
	var out []string
	for _, r := range recs {
		if r.Score >= minScore {
			out = append(out, r.ID)
		}
	}
	return out
}

// Missing returns the ids in recs scoring at least minScore that are absent from
// selected. The planner reports these as detected-but-unselected.
func Missing(recs []Recommendation, minScore int, selected []string) []Recommendation {
	var out []Recommendation
	for _, r := range recs {
		if r.Score >= minScore && !slices.Contains(selected, r.ID) {
			out = append(out, r)
		}
	}
	return out
}
