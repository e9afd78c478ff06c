package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/claudekit-labs/claudekit/internal/installer"
	"github.com/claudekit-labs/claudekit/internal/project"
	"github.com/claudekit-labs/claudekit/internal/recommend"
	"github.com/claudekit-labs/claudekit/internal/registry"
	"github.com/spf13/cobra"
)

var (
	installTarget          string
	installPath            string
	installProject         string
	installDryRun          bool
	installForce           bool
	installNoBackup        bool
	installWithDeps        bool
	installIncludeOptional bool
	installAllowCycles     bool
	installRecommended     bool
	installSkipSettings    bool
	installYes             bool
	installJSON            bool
)

var installCmd = &cobra.Command{
	Use:   "install [id]...",
	Short: "Install components and their dependencies",
	Long: `Install commands, hooks, and agents into ~/.claude (--target user), the
project's .claude directory (--target project), both, or a custom path.
Dependencies are resolved and installed first. Hooks are registered in
settings.json. Existing files are backed up unless --no-backup is given, and
every change is rolled back if a step fails.`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVarP(&installTarget, "target", "t", string(installer.TargetProject), "Install target (user, project, both, custom)")
	installCmd.Flags().StringVar(&installPath, "path", "", "Custom install directory (implies --target custom when no target is given)")
	installCmd.Flags().StringVar(&installProject, "project", "", "Project root (defaults to the working directory)")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Show what would be done without changing anything")
	installCmd.Flags().BoolVar(&installForce, "force", false, "Skip pre-install validation")
	installCmd.Flags().BoolVar(&installNoBackup, "no-backup", false, "Overwrite existing files without backing them up")
	installCmd.Flags().BoolVar(&installWithDeps, "with-deps", false, "Verify external tools the components need")
	installCmd.Flags().BoolVar(&installIncludeOptional, "include-optional", false, "Also install optional dependencies")
	installCmd.Flags().BoolVar(&installAllowCycles, "allow-cycles", false, "Install components involved in dependency cycles")
	installCmd.Flags().BoolVar(&installRecommended, "recommended", false, "Add the components recommended for the project")
	installCmd.Flags().BoolVar(&installSkipSettings, "skip-settings", false, "Do not register hooks in settings.json")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompt")
	installCmd.Flags().BoolVar(&installJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !installRecommended {
		return errors.New("no components given; pass component ids or --recommended")
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	reg, err := s.discover(cmd, registry.DiscoverOptions{IncludeDisabled: true})
	if err != nil {
		return fmt.Errorf("discovering components: %w", err)
	}

	root, err := projectRoot(installProject)
	if err != nil {
		return err
	}
	inst := installationFromFlags(cmd, args, root)
	signals := project.Detect(root, s.logger)
	if installRecommended {
		for _, id := range recommend.IDs(recommend.Recommend(reg, signals), recommend.DefaultMinScore) {
			if !slices.Contains(inst.Components, id) {
				inst.Components = append(inst.Components, id)
			}
		}
		if len(inst.Components) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing recommended for this project.")
			return nil
		}
	}

	opts := installer.Options{
		DryRun:              installDryRun,
		Backup:              s.cfg.Backup && !installNoBackup,
		Force:               installForce,
		InstallDependencies: installWithDeps || s.cfg.InstallDependencies,
		IncludeOptional:     installIncludeOptional,
		AllowCycles:         installAllowCycles,
		SkipSettings:        installSkipSettings,
	}

	planner := installer.NewPlanner(reg, s.logger)
	planner.SetSignals(signals)
	plan, err := planner.CreatePlan(cmd.Context(), inst, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(plan.Components) == 0 {
		printWarnings(cmd.ErrOrStderr(), plan.Warnings)
		fmt.Fprintln(out, "Nothing to install.")
		return nil
	}

	if !installJSON {
		printPlan(out, plan)
	}

	executor := installer.NewExecutor(s.logger)
	if opts.DryRun {
		res := executor.Simulate(cmd.Context(), plan, opts)
		return printResult(cmd, res)
	}

	if !installYes && !installJSON {
		if !confirm(cmd.InOrStdin(), out, "Proceed with installation?") {
			fmt.Fprintln(out, "Installation cancelled.")
			return nil
		}
	}

	res, execErr := executor.Execute(cmd.Context(), plan, opts)
	if err := printResult(cmd, res); err != nil {
		return err
	}
	return execErr
}

// installationFromFlags builds the request from args and target flags.
func installationFromFlags(cmd *cobra.Command, args []string, root string) installer.Installation {
	target := installer.Target(strings.ToLower(installTarget))
	if installPath != "" && !cmd.Flags().Changed("target") {
		target = installer.TargetCustom
	}

	inst := installer.Installation{
		Target:     target,
		CustomPath: installPath,
		Components: slices.Clone(args),
	}
	if target == installer.TargetProject || target == installer.TargetBoth {
		inst.ProjectRoot = root
	}
	return inst
}

func printPlan(w io.Writer, plan *installer.Plan) {
	printTitle(w, fmt.Sprintf("Installing %d component(s) into %s", len(plan.Components), strings.Join(plan.Roots, ", ")))
	for _, c := range plan.Components {
		fmt.Fprintf(w, "  %s %s\n", HighlightStyle.Render(c.ID), MutedStyle.Render("("+string(c.Type)+")"))
	}
	if len(plan.Backups) > 0 {
		fmt.Fprintln(w, MutedStyle.Render(fmt.Sprintf("  %d existing file(s) will be backed up", len(plan.Backups))))
	}
	fmt.Fprintln(w)
}

func printResult(cmd *cobra.Command, res *installer.Result) error {
	out := cmd.OutOrStdout()
	if installJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	verb := "Wrote"
	if res.DryRun {
		verb = "Would write"
	}
	for _, path := range res.ModifiedFiles {
		fmt.Fprintf(out, "  %s %s\n", verb, path)
	}
	for _, path := range res.BackupFiles {
		fmt.Fprintf(out, "  %s\n", MutedStyle.Render("backup "+path))
	}
	for _, path := range res.RolledBack {
		fmt.Fprintf(out, "  %s\n", WarningStyle.Render("rolled back "+path))
	}
	fmt.Fprintln(out)

	switch {
	case !res.Success:
		fmt.Fprintln(out, ErrorStyle.Render(fmt.Sprintf("✗ Installation failed (transaction %s)", res.TransactionID)))
	case res.DryRun:
		fmt.Fprintln(out, SuccessStyle.Render(fmt.Sprintf("✓ Dry run: %d component(s) would be installed.", len(res.Installed))))
	default:
		fmt.Fprintln(out, SuccessStyle.Render(fmt.Sprintf("✓ Installed %d component(s) in %s.", len(res.Installed), res.Duration.Round(time.Millisecond))))
	}
	printWarnings(cmd.ErrOrStderr(), res.Warnings)
	return nil
}

// confirm asks a yes/no question; an empty answer means yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "? %s (Y/n) ", question)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return true
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}
