package project

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/logging"
	toml "github.com/pelletier/go-toml/v2"
)

// Languages.
const (
	LangTypeScript = "typescript"
	LangJavaScript = "javascript"
	LangGo         = "go"
	LangPython     = "python"
)

// Linters.
const (
	LinterESLint = "eslint"
	LinterBiome  = "biome"
)

// Test frameworks.
const (
	TestJest   = "jest"
	TestVitest = "vitest"
	TestMocha  = "mocha"
	TestPytest = "pytest"
	TestGo     = "go"
)

// Signals describes what a project directory contains.
type Signals struct {
	Root           string   `json:"root"`
	Languages      []string `json:"languages"`
	Linters        []string `json:"linters"`
	TestFrameworks []string `json:"test_frameworks"`
	PackageManager string   `json:"package_manager,omitempty"` // npm, yarn, pnpm, bun, or empty
	Git            bool     `json:"git"`
}

// HasLanguage reports whether lang was detected.
func (s *Signals) HasLanguage(lang string) bool {
	return s != nil && slices.Contains(s.Languages, lang)
}

// HasLinter reports whether linter was detected.
func (s *Signals) HasLinter(linter string) bool {
	return s != nil && slices.Contains(s.Linters, linter)
}

// HasTestFramework reports whether framework was detected.
func (s *Signals) HasTestFramework(framework string) bool {
	return s != nil && slices.Contains(s.TestFrameworks, framework)
}

// HasTests reports whether any test framework was detected.
func (s *Signals) HasTests() bool {
	return s != nil && len(s.TestFrameworks) > 0
}

// JavaScriptTests reports whether a JavaScript test runner was detected.
func (s *Signals) JavaScriptTests() bool {
	return s.HasTestFramework(TestJest) || s.HasTestFramework(TestVitest) || s.HasTestFramework(TestMocha)
}

var (
	eslintConfigs = []string{
		".eslintrc", ".eslintrc.js", ".eslintrc.cjs", ".eslintrc.json",
		".eslintrc.yml", ".eslintrc.yaml",
		"eslint.config.js", "eslint.config.mjs", "eslint.config.cjs", "eslint.config.ts",
	}
	biomeConfigs  = []string{"biome.json", "biome.jsonc"}
	jestConfigs   = []string{"jest.config.js", "jest.config.ts", "jest.config.cjs", "jest.config.mjs"}
	vitestConfigs = []string{"vitest.config.ts", "vitest.config.js", "vitest.config.mts"}
	lockfiles     = []struct{ file, manager string }{
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"bun.lockb", "bun"},
		{"bun.lock", "bun"},
		{"package-lock.json", "npm"},
	}
)

// packageJSON holds the package.json fields detection reads.
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Scripts         map[string]string `json:"scripts"`
}

func (p *packageJSON) has(name string) bool {
	if _, ok := p.Dependencies[name]; ok {
		return true
	}
	_, ok := p.DevDependencies[name]
	return ok
}

// Detect inspects root. A nil logger discards output.
func Detect(root string, logger *log.Logger) *Signals {
	logger = logging.OrDiscard(logger)
	s := &Signals{Root: root}
	d := detector{root: root, logger: logger, signals: s}

	d.node()
	d.golang()
	d.python()

	if d.exists(".git") {
		s.Git = true
	}

	logger.Debug("detected project signals",
		"root", root,
		"languages", s.Languages,
		"linters", s.Linters,
		"tests", s.TestFrameworks,
		"git", s.Git)
	return s
}

type detector struct {
	root    string
	logger  *log.Logger
	signals *Signals
}

func (d *detector) exists(name string) bool {
	_, err := os.Stat(filepath.Join(d.root, name))
	return err == nil
}

func (d *detector) anyExists(names []string) bool {
	return slices.ContainsFunc(names, d.exists)
}

func (d *detector) read(name string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(d.root, name))
	if err != nil {
		return nil, false
	}
	return data, true
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func (d *detector) addLanguage(v string) { d.signals.Languages = appendUnique(d.signals.Languages, v) }
func (d *detector) addLinter(v string)   { d.signals.Linters = appendUnique(d.signals.Linters, v) }
func (d *detector) addTests(v string) {
	d.signals.TestFrameworks = appendUnique(d.signals.TestFrameworks, v)
}

func (d *detector) node() {
	var pkg packageJSON
	if data, ok := d.read("package.json"); ok {
		d.addLanguage(LangJavaScript)
		if err := json.Unmarshal(data, &pkg); err != nil {
			d.logger.Debug("ignoring malformed package.json", "err", err)
		}
		d.signals.PackageManager = "npm"
		for _, lf := range lockfiles {
			if d.exists(lf.file) {
				d.signals.PackageManager = lf.manager
				break
			}
		}
	}

	if d.exists("tsconfig.json") || pkg.has("typescript") {
		d.addLanguage(LangTypeScript)
	}
	if d.anyExists(eslintConfigs) || pkg.has("eslint") {
		d.addLinter(LinterESLint)
	}
	if d.anyExists(biomeConfigs) || pkg.has("@biomejs/biome") {
		d.addLinter(LinterBiome)
	}
	if d.anyExists(jestConfigs) || pkg.has("jest") {
		d.addTests(TestJest)
	}
	if d.anyExists(vitestConfigs) || pkg.has("vitest") {
		d.addTests(TestVitest)
	}
	if d.exists(".mocharc.json") || d.exists(".mocharc.yml") || pkg.has("mocha") {
		d.addTests(TestMocha)
	}
}

func (d *detector) golang() {
	if !d.exists("go.mod") {
		return
	}
	d.addLanguage(LangGo)
	d.addTests(TestGo)
}

// pyproject holds the pyproject.toml tables detection reads.
type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	Tool map[string]any `toml:"tool"`
}

func (d *detector) python() {
	data, hasPyproject := d.read("pyproject.toml")
	reqs, hasReqs := d.read("requirements.txt")
	if !hasPyproject && !hasReqs {
		return
	}
	d.addLanguage(LangPython)

	if hasPyproject {
		var py pyproject
		if err := toml.Unmarshal(data, &py); err != nil {
			d.logger.Debug("ignoring malformed pyproject.toml", "err", err)
		} else if pyprojectUsesPytest(&py) {
			d.addTests(TestPytest)
		}
	}
	if hasReqs && requirementsUsePytest(reqs) {
		d.addTests(TestPytest)
	}
	if d.exists("pytest.ini") || d.exists("conftest.py") {
		d.addTests(TestPytest)
	}
}

func pyprojectUsesPytest(py *pyproject) bool {
	if _, ok := py.Tool["pytest"]; ok {
		return true
	}
	deps := slices.Clone(py.Project.Dependencies)
	for _, group := range py.Project.OptionalDependencies {
		deps = append(deps, group...)
	}
	return slices.ContainsFunc(deps, isPytestRequirement)
}

func requirementsUsePytest(data []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if isPytestRequirement(strings.TrimSpace(sc.Text())) {
			return true
		}
	}
	return false
}

// isPytestRequirement matches "pytest", "pytest>=8", "pytest[extra]" but not
// plugins such as "pytest-cov".
func isPytestRequirement(req string) bool {
	rest, ok := strings.CutPrefix(req, "pytest")
	if !ok {
		return false
	}
	return rest == "" || strings.ContainsAny(rest[:1], "<>=!~[; ")
}
