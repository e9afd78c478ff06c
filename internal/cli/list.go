package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/claudekit-labs/claudekit/internal/registry"
	"github.com/spf13/cobra"
)

var (
	listTypeFilter     []string
	listCategoryFilter []string
	listAll            bool
	listJSON           bool
	listWatch          bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available components",
	Long: `List the commands, hooks, and agents found in the component source,
together with the built-in hooks. Disabled components are hidden unless --all
is given. With --watch the list is reprinted whenever the source changes.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringSliceVar(&listTypeFilter, "type", nil, "Filter by type (command, hook, agent)")
	listCmd.Flags().StringSliceVar(&listCategoryFilter, "category", nil, "Filter by category")
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include disabled components")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listWatch, "watch", false, "Reprint the list when the source changes")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents a component for display.
type listEntry struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Category     string   `json:"category"`
	Description  string   `json:"description,omitempty"`
	Version      string   `json:"version,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Enabled      bool     `json:"enabled"`
	Builtin      bool     `json:"builtin"`
	Path         string   `json:"path,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	opts, err := listOptions()
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	if err := printList(cmd, s, opts); err != nil {
		return err
	}
	if !listWatch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.ErrOrStderr(), MutedStyle.Render("watching "+s.source+" (ctrl-c to stop)"))
	return s.discoverer.Cache().Watch(ctx, s.source, s.logger, func() {
		if err := printList(cmd, s, opts); err != nil {
			s.logger.Error("listing components", "err", err)
		}
	})
}

// listOptions turns the filter flags into discovery options.
func listOptions() (registry.DiscoverOptions, error) {
	opts := registry.DiscoverOptions{IncludeDisabled: listAll}
	for _, v := range listTypeFilter {
		t := manifest.Type(strings.ToLower(strings.TrimSpace(v)))
		if !slices.Contains(manifest.ValidTypes, t) {
			return opts, fmt.Errorf("unknown type %q (valid: command, hook, agent)", v)
		}
		opts.Types = append(opts.Types, t)
	}
	for _, v := range listCategoryFilter {
		c := manifest.Category(strings.ToLower(strings.TrimSpace(v)))
		if !slices.Contains(manifest.ValidCategories, c) {
			return opts, fmt.Errorf("unknown category %q", v)
		}
		opts.Categories = append(opts.Categories, c)
	}
	return opts, nil
}

func printList(cmd *cobra.Command, s *session, opts registry.DiscoverOptions) error {
	reg, err := s.discover(cmd, opts)
	if err != nil {
		return fmt.Errorf("discovering components: %w", err)
	}

	entries := make([]listEntry, 0, reg.Len())
	for _, c := range reg.All() {
		entries = append(entries, listEntry{
			ID:           c.ID,
			Type:         string(c.Type),
			Category:     string(c.Category),
			Description:  c.Description,
			Version:      c.Version,
			Dependencies: c.Dependencies,
			Enabled:      c.Enabled,
			Builtin:      c.Embedded(),
			Path:         c.SourcePath,
		})
	}

	out := cmd.OutOrStdout()
	if listJSON {
		return printListJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No components found in "+s.source)
		return nil
	}
	return printListTable(out, entries)
}

func printListTable(w io.Writer, entries []listEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCATEGORY\tVERSION\tDESCRIPTION")
	for _, e := range entries {
		version := e.Version
		if version == "" {
			version = "-"
		}
		desc := e.Description
		if !e.Enabled {
			desc = "(disabled) " + desc
		}
		if e.Builtin {
			desc = "(built-in) " + desc
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Type, e.Category, version, desc)
	}
	return tw.Flush()
}

func printListJSON(w io.Writer, entries []listEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
