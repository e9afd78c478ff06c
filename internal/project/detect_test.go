package project

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDetect_TypeScriptProject(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json":     `{"devDependencies": {"typescript": "^5.4.0", "vitest": "^1.0.0"}}`,
		"tsconfig.json":    `{}`,
		"eslint.config.js": `export default [];`,
		"pnpm-lock.yaml":   "lockfileVersion: '9.0'\n",
		".git/HEAD":        "ref: refs/heads/main\n",
	})

	s := Detect(root, nil)

	if !slices.Equal(s.Languages, []string{LangJavaScript, LangTypeScript}) {
		t.Errorf("Languages = %v", s.Languages)
	}
	if !s.HasLinter(LinterESLint) || s.HasLinter(LinterBiome) {
		t.Errorf("Linters = %v, want [eslint]", s.Linters)
	}
	if !s.HasTestFramework(TestVitest) || s.HasTestFramework(TestJest) {
		t.Errorf("TestFrameworks = %v, want [vitest]", s.TestFrameworks)
	}
	if !s.JavaScriptTests() {
		t.Error("JavaScriptTests should be true")
	}
	if s.PackageManager != "pnpm" {
		t.Errorf("PackageManager = %q, want pnpm", s.PackageManager)
	}
	if !s.Git {
		t.Error("Git should be detected")
	}
}

func TestDetect_LinterFromPackageJSON(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"package.json": `{"devDependencies": {"eslint": "^9.0.0", "jest": "^29.0.0"}}`,
	})

	s := Detect(root, nil)
	if !s.HasLinter(LinterESLint) {
		t.Errorf("Linters = %v", s.Linters)
	}
	if !s.HasTestFramework(TestJest) {
		t.Errorf("TestFrameworks = %v", s.TestFrameworks)
	}
	if s.HasLanguage(LangTypeScript) {
		t.Error("TypeScript should not be detected")
	}
	if s.PackageManager != "npm" {
		t.Errorf("PackageManager = %q, want npm default", s.PackageManager)
	}
}

func TestDetect_GoProject(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"go.mod": "module example.com/x\n\ngo 1.25\n"})

	s := Detect(root, nil)
	if !slices.Equal(s.Languages, []string{LangGo}) {
		t.Errorf("Languages = %v", s.Languages)
	}
	if !slices.Equal(s.TestFrameworks, []string{TestGo}) {
		t.Errorf("TestFrameworks = %v", s.TestFrameworks)
	}
	if s.Git {
		t.Error("Git should not be detected")
	}
}

func TestDetect_Python(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  bool
	}{
		{
			name:  "pyproject tool table",
			files: map[string]string{"pyproject.toml": "[tool.pytest.ini_options]\naddopts = \"-q\"\n"},
			want:  true,
		},
		{
			name:  "pyproject optional dependency",
			files: map[string]string{"pyproject.toml": "[project]\nname = \"x\"\n\n[project.optional-dependencies]\ntest = [\"pytest>=8\"]\n"},
			want:  true,
		},
		{
			name:  "requirements",
			files: map[string]string{"requirements.txt": "requests\npytest==8.1.0\n"},
			want:  true,
		},
		{
			name:  "plugin only",
			files: map[string]string{"requirements.txt": "pytest-cov\n"},
			want:  false,
		},
		{
			name:  "malformed pyproject",
			files: map[string]string{"pyproject.toml": "[project\n"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFiles(t, root, tt.files)

			s := Detect(root, nil)
			if !s.HasLanguage(LangPython) {
				t.Errorf("Languages = %v, want python", s.Languages)
			}
			if got := s.HasTestFramework(TestPytest); got != tt.want {
				t.Errorf("pytest detected = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetect_EmptyDir(t *testing.T) {
	s := Detect(t.TempDir(), nil)
	if len(s.Languages) != 0 || len(s.Linters) != 0 || s.HasTests() || s.Git || s.PackageManager != "" {
		t.Errorf("empty dir produced signals %+v", s)
	}
}

func TestNilSignals(t *testing.T) {
	var s *Signals
	if s.HasLanguage(LangGo) || s.HasTests() || s.JavaScriptTests() {
		t.Error("nil signals should report nothing")
	}
}
