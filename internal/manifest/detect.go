package manifest

import (
	"regexp"
	"strings"
)

// categoryRule maps content keywords onto a category. Rules are checked in
// order and the first match wins; an explicit category field always
// overrides inference.
type categoryRule struct {
	category Category
	keywords []string
}

var categoryRules = []categoryRule{
	{CategoryGit, []string{"git commit", "git status", "git push", "checkpoint", "git stash"}},
	{CategoryTesting, []string{"test suite", "run tests", "jest", "vitest", "pytest", "test-changed"}},
	{CategoryValidation, []string{"lint", "typecheck", "type check", "validate", "eslint", "tsc "}},
	{CategoryClaudeSetup, []string{"claude.md", "agents.md", "settings.json", "subagent", ".claude/"}},
	{CategoryDevelopment, []string{"refactor", "code review", "debug", "implement", "design"}},
}

// InferCategory guesses a category from the id and body text. It is a
// best-effort default and returns CategoryUtility when nothing matches.
func InferCategory(id, body string) Category {
	if strings.HasPrefix(id, "git:") || strings.HasPrefix(id, "git-") {
		return CategoryGit
	}
	text := strings.ToLower(id + "\n" + body)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return CategoryUtility
}

var (
	// slashRefPattern matches "/namespace:command" references in prose.
	slashRefPattern = regexp.MustCompile("(?:^|[\\s`(])/([a-z0-9][a-z0-9-]*:[a-z0-9][a-z0-9-]*)")
	// bashToolPattern matches allow-list entries like "Bash(git status:*)".
	bashToolPattern = regexp.MustCompile(`^Bash\(([A-Za-z0-9_.-]+)`)
)

// DetectDependencies finds dependencies implied by content: slash-command
// references to other commands and known tools granted in allowed-tools.
// The component's own id is never returned.
func DetectDependencies(id, body string, allowedTools []string) []string {
	var deps []string
	seen := map[string]bool{id: true}

	for _, m := range slashRefPattern.FindAllStringSubmatch(body, -1) {
		ref := m[1]
		if !seen[ref] {
			seen[ref] = true
			deps = append(deps, ref)
		}
	}

	for _, tool := range allowedTools {
		m := bashToolPattern.FindStringSubmatch(strings.TrimSpace(tool))
		if m == nil {
			continue
		}
		name := m[1]
		if IsKnownTool(name) && !seen[name] {
			seen[name] = true
			deps = append(deps, name)
		}
	}

	return deps
}
