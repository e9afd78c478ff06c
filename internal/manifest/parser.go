package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"
)

// ParseError reports a component file that could not be turned into a
// Component. Callers skip the file; nothing partial is ever returned.
type ParseError struct {
	Path   string
	Reason string
	Issues []ValidationIssue
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parsing component %s: %s", e.Path, e.Reason)
	for _, issue := range e.Issues {
		if issue.Path != "" {
			fmt.Fprintf(&b, "; %s: %s", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(&b, "; %s", issue.Message)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// header holds the typed fields decoded from a frontmatter or
// header-comment block.
type header struct {
	Name                 string     `yaml:"name"`
	Description          string     `yaml:"description"`
	Category             string     `yaml:"category"`
	Version              string     `yaml:"version"`
	Author               string     `yaml:"author"`
	Enabled              *bool      `yaml:"enabled"`
	Dependencies         stringList `yaml:"dependencies"`
	OptionalDependencies stringList `yaml:"optional-dependencies"`
	Platforms            stringList `yaml:"platforms"`
}

// coreKeys are consumed into Component fields; every other header key is
// kept in the config bag.
var coreKeys = map[string]bool{
	"name":                  true,
	"description":           true,
	"category":              true,
	"version":               true,
	"author":                true,
	"enabled":               true,
	"dependencies":          true,
	"optional-dependencies": true,
	"platforms":             true,
}

// listKeys are normalized to []string in the config bag.
var listKeys = map[string]bool{
	"allowed-tools": true,
	"tools":         true,
}

// stringList accepts either a YAML sequence or a comma-separated scalar.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*l = splitList(value.Value)
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = cleanList(items)
		return nil
	default:
		return fmt.Errorf("expected a list or comma-separated string")
	}
}

var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Extract reads a component file and returns its typed metadata.
func Extract(path string, typ Type, id string) (*Component, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "reading file", Err: err}
	}
	return ExtractBytes(data, path, typ, id)
}

// ExtractBytes parses component content. path is recorded as the source
// path and used in error messages.
func ExtractBytes(data []byte, path string, typ Type, id string) (*Component, error) {
	raw, body, err := splitHeader(data, typ == TypeHook)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "malformed header", Err: err}
	}

	result, err := ValidateHeader(raw)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "loading schema", Err: err}
	}
	if !result.Valid {
		return nil, &ParseError{Path: path, Reason: "header does not match schema", Issues: result.Issues}
	}

	h, err := decodeHeader(raw)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "decoding header", Err: err}
	}

	sum := sha256.Sum256(data)
	c := &Component{
		ID:                   id,
		Type:                 typ,
		Name:                 h.Name,
		Description:          h.Description,
		SourcePath:           path,
		Dependencies:         []string(h.Dependencies),
		OptionalDependencies: []string(h.OptionalDependencies),
		Platforms:            normalizePlatforms(h.Platforms),
		Version:              normalizeVersion(h.Version),
		Author:               h.Author,
		Enabled:              h.Enabled == nil || *h.Enabled,
		Config:               configBag(raw),
		ContentHash:          hex.EncodeToString(sum[:]),
	}
	if c.Name == "" {
		c.Name = id
	}
	if h.Category != "" {
		c.Category = Category(h.Category)
	} else {
		c.Category = InferCategory(id, string(body))
	}
	c.DetectedDependencies = DetectDependencies(id, string(body), c.stringListConfig("allowed-tools"))

	return c, nil
}

// splitHeader returns the header key/value map and the remaining body.
// A file with no recognizable header yields an empty map. Comment headers
// are only honored for scripts, where a leading "#" is not a markdown title.
func splitHeader(data []byte, commentHeader bool) (map[string]any, []byte, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	if strings.HasPrefix(text, "---\n") {
		rest := text[len("---\n"):]
		end, next, ok := closingMarker(rest)
		if !ok {
			return nil, nil, fmt.Errorf("frontmatter block is not closed")
		}
		block := rest[:end]
		body := rest[next:]

		raw := make(map[string]any)
		if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
			// Frontmatter in the wild is often not strict YAML (unquoted
			// colons in descriptions). Fall back to line-based key: value.
			raw = parseKeyValueLines(strings.Split(block, "\n"))
		} else if v, ok := scalarText([]byte(block), "version"); ok {
			raw["version"] = v
		}
		return raw, []byte(body), nil
	}

	if commentHeader && strings.HasPrefix(text, "#") {
		return parseCommentHeader(text), []byte(text), nil
	}

	return map[string]any{}, data, nil
}

// closingMarker finds the first line of rest that is exactly "---" and
// returns its offset and the offset of the line after it.
func closingMarker(rest string) (end, next int, ok bool) {
	for off := 0; off < len(rest); off = next {
		line := rest[off:]
		next = len(rest)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
			next = off + i + 1
		}
		if strings.TrimRight(line, " \t") == "---" {
			return off, next, true
		}
	}
	return 0, 0, false
}

// scalarText returns the source text of a top-level scalar, so values like
// "version: 1.10" are not reduced to the float 1.1.
func scalarText(block []byte, key string) (string, bool) {
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil || len(doc.Content) == 0 {
		return "", false
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key && m.Content[i+1].Kind == yaml.ScalarNode && m.Content[i+1].Tag != "!!null" {
			return m.Content[i+1].Value, true
		}
	}
	return "", false
}

// parseCommentHeader reads "# key: value" lines from the top of a script,
// skipping a shebang, until the first non-comment line.
func parseCommentHeader(text string) map[string]any {
	var lines []string
	for i, line := range strings.Split(text, "\n") {
		if i == 0 && strings.HasPrefix(line, "#!") {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(lines) > 0 {
				break
			}
			continue
		}
		if !strings.HasPrefix(trimmed, "#") {
			break
		}
		lines = append(lines, strings.TrimLeft(trimmed, "# "))
	}
	return parseKeyValueLines(lines)
}

// parseKeyValueLines parses "key: value" lines into typed scalars.
func parseKeyValueLines(lines []string) map[string]any {
	raw := make(map[string]any)
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if !keyPattern.MatchString(key) {
			continue
		}
		raw[key] = scalarValue(strings.TrimSpace(value))
	}
	return raw
}

func scalarValue(s string) any {
	s = strings.Trim(s, `"'`)
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return splitList(strings.Trim(s, "[]"))
	}
	return s
}

// decodeHeader re-encodes the raw map and decodes it into the typed header,
// so YAML and comment headers share one decode path.
func decodeHeader(raw map[string]any) (*header, error) {
	if v, ok := raw["version"]; ok {
		if _, isString := v.(string); !isString {
			raw["version"] = fmt.Sprint(v)
		}
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var h header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func configBag(raw map[string]any) map[string]any {
	cfg := make(map[string]any)
	for k, v := range raw {
		if coreKeys[k] {
			continue
		}
		if listKeys[k] {
			cfg[k] = anyToList(v)
			continue
		}
		cfg[k] = v
	}
	return cfg
}

func (c *Component) stringListConfig(key string) []string {
	if c.Config == nil {
		return nil
	}
	if l, ok := c.Config[key].([]string); ok {
		return l
	}
	return nil
}

// AllowedTools returns the tool allow-list from the config bag.
func (c *Component) AllowedTools() []string {
	return c.stringListConfig("allowed-tools")
}

func anyToList(v any) []string {
	switch val := v.(type) {
	case string:
		return splitList(val)
	case []string:
		return cleanList(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
		return cleanList(items)
	default:
		return nil
	}
}

func splitList(s string) []string {
	return cleanList(strings.Split(s, ","))
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizePlatforms(in []string) []string {
	if len(in) == 0 {
		return []string{PlatformAll}
	}
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.ToLower(p)
		if p == "macos" {
			p = "darwin"
		}
		out = append(out, p)
	}
	return out
}

// normalizeVersion canonicalizes versions that parse as semver and keeps
// anything else verbatim.
func normalizeVersion(v string) string {
	if v == "" {
		return ""
	}
	parsed, err := semver.NewVersion(strings.TrimPrefix(v, "v"))
	if err != nil {
		return v
	}
	return parsed.String()
}

// IDFromPath derives a component id from its path relative to the type's
// subtree: "git/commit.md" → "git:commit" for commands, "typescript/expert.md"
// → "typescript-expert" for agents, and the bare file name otherwise.
func IDFromPath(typ Type, rel string) string {
	rel = filepath.ToSlash(rel)
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	parent := filepath.Base(filepath.Dir(rel))
	if parent == "." || parent == "/" || typ == TypeHook {
		return base
	}
	switch typ {
	case TypeCommand:
		return parent + ":" + base
	case TypeAgent:
		return parent + "-" + base
	default:
		return base
	}
}
