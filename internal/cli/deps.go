package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/claudekit-labs/claudekit/internal/depgraph"
	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/claudekit-labs/claudekit/internal/registry"
	"github.com/spf13/cobra"
)

var (
	depsIncludeOptional bool
	depsMaxDepth        int
	depsJSON            bool
)

var depsCmd = &cobra.Command{
	Use:   "deps <id>...",
	Short: "Show the dependency closure of components",
	Long: `Resolve the given components and their transitive dependencies and print
them in install order, with each component's depth in the dependency graph.
External tools the closure needs and any dependency cycles are listed after
the order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().BoolVar(&depsIncludeOptional, "include-optional", false, "Follow optional dependencies")
	depsCmd.Flags().IntVar(&depsMaxDepth, "max-depth", depgraph.DefaultMaxDepth, "Maximum transitive dependency depth")
	depsCmd.Flags().BoolVar(&depsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(depsCmd)
}

// depsReport is the resolved view of a request.
type depsReport struct {
	Requested []string    `json:"requested"`
	Order     []depsEntry `json:"order"`
	Externals []string    `json:"externals,omitempty"`
	Cycles    [][]string  `json:"cycles,omitempty"`
	Warnings  []string    `json:"warnings,omitempty"`
}

type depsEntry struct {
	ID           string   `json:"id"`
	Type         string   `json:"type,omitempty"`
	Depth        int      `json:"depth"`
	Dependencies []string `json:"dependencies,omitempty"`
	Missing      bool     `json:"missing,omitempty"`
}

func runDeps(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	reg, err := s.discover(cmd, registry.DiscoverOptions{IncludeDisabled: true})
	if err != nil {
		return fmt.Errorf("discovering components: %w", err)
	}

	report, err := buildDepsReport(reg, s, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if depsJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	printTitle(out, "Install order")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTYPE\tDEPTH\tDEPENDS ON")
	for i, e := range report.Order {
		typ := e.Type
		if e.Missing {
			typ = "missing"
		}
		deps := strings.Join(e.Dependencies, ", ")
		if deps == "" {
			deps = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", i+1, e.ID, typ, e.Depth, deps)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.Externals) > 0 {
		fmt.Fprintln(out)
		printTitle(out, "External tools")
		for _, tool := range report.Externals {
			fmt.Fprintln(out, "  "+HighlightStyle.Render(tool))
		}
	}
	if len(report.Cycles) > 0 {
		fmt.Fprintln(out)
		printTitle(out, "Cycles")
		for _, cycle := range report.Cycles {
			fmt.Fprintln(out, "  "+ErrorStyle.Render(strings.Join(cycle, " -> ")))
		}
	}
	printWarnings(cmd.ErrOrStderr(), report.Warnings)
	return nil
}

// buildDepsReport resolves ids and annotates the order with graph data. A
// cycle does not fail the report; its partial order is shown and the cyclic
// ids are appended.
func buildDepsReport(reg *registry.Registry, s *session, ids []string) (*depsReport, error) {
	resolver := depgraph.NewResolver(reg, s.logger)
	res := resolver.ResolveAll(ids, depgraph.ResolveOptions{
		IncludeOptional: depsIncludeOptional,
		MaxDepth:        depsMaxDepth,
	})

	report := &depsReport{Requested: ids, Warnings: res.Warnings}

	order, err := resolver.Order(res.IDs)
	if err != nil {
		var cycleErr *depgraph.CircularDependencyError
		if !errors.As(err, &cycleErr) {
			return nil, err
		}
		report.Cycles = cycleErr.Cycles
		report.Warnings = append(report.Warnings, cycleErr.Error())
		for _, id := range res.IDs {
			if !slices.Contains(order, id) {
				order = append(order, id)
			}
		}
	}

	graph := depgraph.Build(reg)
	for _, id := range order {
		entry := depsEntry{ID: id}
		c, ok := reg.Get(id)
		if !ok {
			entry.Missing = true
			report.Order = append(report.Order, entry)
			continue
		}
		entry.Type = string(c.Type)
		entry.Dependencies = graph.Dependencies(id)
		if n := graph.Nodes[id]; n != nil {
			entry.Depth = n.Depth
		}
		report.Order = append(report.Order, entry)

		for _, dep := range entry.Dependencies {
			if manifest.IsKnownTool(dep) && !slices.Contains(report.Externals, dep) {
				report.Externals = append(report.Externals, dep)
			}
		}
	}
	return report, nil
}
