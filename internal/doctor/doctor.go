package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/depgraph"
	"github.com/claudekit-labs/claudekit/internal/installer"
	"github.com/claudekit-labs/claudekit/internal/logging"
	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/claudekit-labs/claudekit/internal/platform"
	"github.com/claudekit-labs/claudekit/internal/registry"
)

// Status is the outcome of one check.
type Status string

const (
	StatusOK    Status = " OK "
	StatusMiss  Status = "MISS"
	StatusWarn  Status = "WARN"
	StatusFail  Status = "FAIL"
	StatusFixed Status = "FIX "
)

// Check is one line of the report.
type Check struct {
	Section string `json:"section"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Report collects check results in the order they ran.
type Report struct {
	Checks []Check `json:"checks"`
}

func (r *Report) add(section string, status Status, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Section: section, Status: status, Message: fmt.Sprintf(format, args...)})
}

// Failed reports whether any check failed.
func (r *Report) Failed() bool {
	return slices.ContainsFunc(r.Checks, func(c Check) bool { return c.Status == StatusFail })
}

// Count returns the number of checks with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, c := range r.Checks {
		if c.Status == s {
			n++
		}
	}
	return n
}

// Write prints the report grouped by section.
func (r *Report) Write(w io.Writer) {
	section := ""
	for _, c := range r.Checks {
		if c.Section != section {
			if section != "" {
				fmt.Fprintln(w)
			}
			section = c.Section
			fmt.Fprintf(w, "%s check:\n", section)
		}
		fmt.Fprintf(w, "  [%s] %s\n", c.Status, c.Message)
	}
}

// Options selects what Run inspects.
type Options struct {
	ConfigDir string
	Source    string
	Registry  *registry.Registry // nil when the source could not be resolved
	Roots     []string           // install target roots
	Prober    installer.ToolProber
	Fix       bool // create missing directories
}

// Run performs every check. Only Fix mutates the filesystem.
func Run(ctx context.Context, opts Options, logger *log.Logger) *Report {
	logger = logging.OrDiscard(logger)
	r := &Report{}

	checkConfigDir(r, opts.ConfigDir, opts.Fix)
	checkSource(r, opts.Source, opts.Registry)
	if opts.Registry != nil {
		graph := depgraph.Build(opts.Registry)
		checkGraph(r, graph)
		if opts.Prober != nil {
			checkTools(ctx, r, graph, opts.Prober, logger)
		}
	}
	for _, root := range opts.Roots {
		checkTarget(r, root)
	}
	return r
}

func checkConfigDir(r *Report, dir string, fix bool) {
	const section = "Config"
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		r.add(section, StatusMiss, "%s does not exist", dir)
		if fix {
			if mkErr := os.MkdirAll(dir, 0755); mkErr != nil {
				r.add(section, StatusFail, "could not create %s: %v", dir, mkErr)
				return
			}
			r.add(section, StatusFixed, "created %s", dir)
		}
	case err != nil:
		r.add(section, StatusFail, "%s: %v", dir, err)
	case !info.IsDir():
		r.add(section, StatusFail, "%s exists but is not a directory", dir)
	default:
		r.add(section, StatusOK, "%s exists", dir)
	}
}

func checkSource(r *Report, source string, reg *registry.Registry) {
	const section = "Source"
	if source == "" || reg == nil {
		r.add(section, StatusFail, "no component source found")
		return
	}
	r.add(section, StatusOK, "%s", source)

	var counts []string
	for _, t := range manifest.ValidTypes {
		counts = append(counts, fmt.Sprintf("%d %s(s)", len(reg.ByType(t)), t))
	}
	r.add(section, StatusOK, "%d components: %s", reg.Len(), strings.Join(counts, ", "))

	for _, s := range reg.Skipped {
		r.add(section, StatusWarn, "skipped %s: %s", s.Path, s.Reason)
	}
}

func checkGraph(r *Report, graph *depgraph.Graph) {
	const section = "Dependencies"

	for _, cycle := range graph.Cycles {
		r.add(section, StatusFail, "cycle %s", strings.Join(cycle, " -> "))
	}

	for _, id := range graph.IDs() {
		n := graph.Nodes[id]
		if !n.IsExternal || n.Known {
			continue
		}
		r.add(section, StatusWarn, "%s is required by %s but is neither a component nor a known tool",
			id, strings.Join(graph.Dependents(id), ", "))
	}

	if len(graph.Cycles) == 0 {
		r.add(section, StatusOK, "no dependency cycles")
	}
}

func checkTools(ctx context.Context, r *Report, graph *depgraph.Graph, prober installer.ToolProber, logger *log.Logger) {
	const section = "Tools"
	for _, tool := range graph.Externals() {
		if !graph.Nodes[tool].Known {
			continue
		}
		version, err := prober.Probe(ctx, tool)
		if err != nil {
			logger.Debug("tool probe failed", "tool", tool, "err", err)
			r.add(section, StatusWarn, "%s not found (needed by %s)", tool, strings.Join(graph.Dependents(tool), ", "))
			continue
		}
		if version == "" {
			version = "version unknown"
		}
		r.add(section, StatusOK, "%s (%s)", tool, version)
	}
}

func checkTarget(r *Report, root string) {
	const section = "Targets"
	dir := root
	for !platform.Exists(dir) {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if !platform.IsWritable(dir) {
		r.add(section, StatusFail, "%s is not writable (checked %s)", root, dir)
		return
	}
	r.add(section, StatusOK, "%s is writable", root)

	settings := filepath.Join(root, installer.SettingsFile)
	data, err := os.ReadFile(settings)
	if err != nil {
		return
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		r.add(section, StatusFail, "%s is not valid JSON: %v", settings, err)
		return
	}
	var hooks installer.HooksConfig
	if raw, ok := doc["hooks"]; ok {
		if err := json.Unmarshal(raw, &hooks); err != nil {
			r.add(section, StatusFail, "%s has a malformed hooks block: %v", settings, err)
			return
		}
	}
	n := 0
	for event := range hooks {
		n += len(hooks.Commands(event))
	}
	r.add(section, StatusOK, "%s registers %d hook command(s)", settings, n)
}
