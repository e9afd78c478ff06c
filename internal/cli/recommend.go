package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/claudekit-labs/claudekit/internal/project"
	"github.com/claudekit-labs/claudekit/internal/recommend"
	"github.com/claudekit-labs/claudekit/internal/registry"
	"github.com/spf13/cobra"
)

var (
	recommendProject  string
	recommendMinScore int
	recommendJSON     bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest components for a project",
	Long: `Inspect a project (languages, linters, test frameworks, git) and score
every available component against it. Components scoring at least --min are
what "install --recommended" would select.`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().StringVar(&recommendProject, "project", "", "Project root to inspect (defaults to the working directory)")
	recommendCmd.Flags().IntVar(&recommendMinScore, "min", recommend.DefaultMinScore, "Minimum score to list")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	reg, err := s.discover(cmd, registry.DiscoverOptions{})
	if err != nil {
		return fmt.Errorf("discovering components: %w", err)
	}

	root, err := projectRoot(recommendProject)
	if err != nil {
		return err
	}
	signals := project.Detect(root, s.logger)

	var recs []recommend.Recommendation
	for _, r := range recommend.Recommend(reg, signals) {
		if r.Score >= recommendMinScore {
			recs = append(recs, r)
		}
	}

	out := cmd.OutOrStdout()
	if recommendJSON {
		data, err := json.MarshalIndent(struct {
			Project         string                     `json:"project"`
			Signals         *project.Signals           `json:"signals"`
			Recommendations []recommend.Recommendation `json:"recommendations"`
		}{root, signals, recs}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	printTitle(out, "Project "+root)
	fmt.Fprintln(out, MutedStyle.Render(describeSignals(signals)))
	fmt.Fprintln(out)

	if len(recs) == 0 {
		fmt.Fprintf(out, "No components score %d or more for this project.\n", recommendMinScore)
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tREASONS")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.ID, r.Score, strings.Join(r.Reasons, "; "))
	}
	return tw.Flush()
}

// projectRoot returns dir as an absolute path, defaulting to the working
// directory.
func projectRoot(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving project root: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving project root: %w", err)
	}
	return abs, nil
}

func describeSignals(s *project.Signals) string {
	var parts []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			parts = append(parts, label+": "+strings.Join(values, ", "))
		}
	}
	add("languages", s.Languages)
	add("linters", s.Linters)
	add("tests", s.TestFrameworks)
	if s.PackageManager != "" {
		parts = append(parts, "package manager: "+s.PackageManager)
	}
	if s.Git {
		parts = append(parts, "git")
	}
	if len(parts) == 0 {
		return "no project signals detected"
	}
	return strings.Join(parts, " | ")
}
