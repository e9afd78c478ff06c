package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/claudekit-labs/claudekit/internal/branding"
	"github.com/claudekit-labs/claudekit/internal/config"
	"github.com/claudekit-labs/claudekit/internal/doctor"
	"github.com/claudekit-labs/claudekit/internal/installer"
	"github.com/claudekit-labs/claudekit/internal/logging"
	"github.com/claudekit-labs/claudekit/internal/registry"
	"github.com/spf13/cobra"
)

var (
	doctorFix     bool
	doctorProject string
	doctorJSON    bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the component source and install targets",
	Long: `Verify the config directory, the component source and its dependency graph,
the host tools components depend on, and that ~/.claude and the project's
.claude directory are writable. Use --fix to create missing directories.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Create missing directories")
	doctorCmd.Flags().StringVar(&doctorProject, "project", "", "Project root to check (defaults to the working directory)")
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(doctorCmd)
}

var errDoctorFailed = errors.New("doctor found problems")

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg := config.Current()
	logger := logging.New(cmd.ErrOrStderr(), branding.CLIName(), verboseFlag || cfg.Verbose)

	opts := doctor.Options{
		ConfigDir: config.Dir(),
		Prober:    installer.ExecProber{},
		Fix:       doctorFix,
	}

	if s, err := newSession(cmd); err != nil {
		logger.Debug("no component source", "err", err)
	} else {
		reg, err := s.discover(cmd, registry.DiscoverOptions{IncludeDisabled: true})
		if err != nil {
			return fmt.Errorf("discovering components: %w", err)
		}
		opts.Source = s.source
		opts.Registry = reg
	}

	if home, err := os.UserHomeDir(); err == nil {
		opts.Roots = append(opts.Roots, filepath.Join(home, branding.TargetDir()))
	}
	root, err := projectRoot(doctorProject)
	if err != nil {
		return err
	}
	opts.Roots = append(opts.Roots, filepath.Join(root, branding.TargetDir()))

	report := doctor.Run(cmd.Context(), opts, logger)

	out := cmd.OutOrStdout()
	if doctorJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		report.Write(out)
		fmt.Fprintln(out)
		if report.Failed() {
			fmt.Fprintln(out, ErrorStyle.Render(fmt.Sprintf("✗ %d check(s) failed", report.Count(doctor.StatusFail))))
		} else {
			fmt.Fprintln(out, SuccessStyle.Render("✓ All checks passed"))
		}
	}

	if report.Failed() {
		return errDoctorFailed
	}
	return nil
}
