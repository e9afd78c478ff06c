package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/branding"
	"github.com/claudekit-labs/claudekit/internal/depgraph"
	"github.com/claudekit-labs/claudekit/internal/logging"
	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/claudekit-labs/claudekit/internal/platform"
	"github.com/claudekit-labs/claudekit/internal/project"
	"github.com/claudekit-labs/claudekit/internal/recommend"
	"github.com/claudekit-labs/claudekit/internal/registry"
)

// Planner builds install plans against one registry snapshot.
type Planner struct {
	reg     *registry.Registry
	logger  *log.Logger
	signals *project.Signals
	goos    string
}

// NewPlanner returns a Planner over reg. A nil logger discards output.
func NewPlanner(reg *registry.Registry, logger *log.Logger) *Planner {
	return &Planner{
		reg:    reg,
		logger: logging.OrDiscard(logger),
		goos:   goruntime.GOOS,
	}
}

// SetSignals supplies project signals instead of detecting them from the
// installation's project root.
func (p *Planner) SetSignals(s *project.Signals) {
	p.signals = s
}

// CreatePlan resolves the requested components and lays out the steps for
// every target root. Planning only reads the filesystem. A circular
// dependency among the resolved components is returned as a
// *depgraph.CircularDependencyError unless opts.AllowCycles is set.
func (p *Planner) CreatePlan(ctx context.Context, inst Installation, opts Options) (*Plan, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	roots, err := targetRoots(&inst, opts)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Installation: inst, Roots: roots}

	ids, err := p.resolve(inst.Components, opts, plan)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		c, ok := p.reg.Get(id)
		if !ok {
			if !manifest.IsKnownTool(id) {
				plan.warn("component %q not found, skipping", id)
			}
			continue
		}
		if !c.SupportsPlatform(p.goos) {
			plan.warn("component %q does not support %s, skipping", id, p.goos)
			continue
		}
		if !c.Enabled {
			plan.warn("component %q is disabled", id)
		}
		plan.Components = append(plan.Components, c)
	}

	graph := depgraph.Build(p.reg)
	p.cycleWarnings(graph, plan)

	if opts.InstallDependencies {
		for _, tool := range externalTools(graph, plan.Components) {
			plan.Steps = append(plan.Steps, Step{
				Type:        StepInstallDependency,
				Description: fmt.Sprintf("verify %s is installed", tool),
				Tool:        tool,
			})
		}
	}

	for _, root := range roots {
		p.planRoot(root, opts, plan)
	}

	p.frameworkWarnings(inst, plan)

	p.logger.Debug("install plan created",
		"components", len(plan.Components),
		"steps", len(plan.Steps),
		"roots", roots,
		"warnings", len(plan.Warnings))
	return plan, nil
}

// resolve expands and orders the request.
func (p *Planner) resolve(requested []string, opts Options, plan *Plan) ([]string, error) {
	resolver := depgraph.NewResolver(p.reg, p.logger)
	res := resolver.ResolveAll(requested, depgraph.ResolveOptions{
		IncludeOptional: opts.IncludeOptional,
		MaxDepth:        opts.MaxDepth,
	})
	plan.Warnings = append(plan.Warnings, res.Warnings...)

	order, err := resolver.Order(res.IDs)
	if err == nil {
		return order, nil
	}

	var cycleErr *depgraph.CircularDependencyError
	if !errors.As(err, &cycleErr) || !opts.AllowCycles {
		return nil, err
	}

	plan.warn("%v; installing cyclic components in resolution order", cycleErr)
	for _, id := range res.IDs {
		if !slices.Contains(order, id) {
			order = append(order, id)
		}
	}
	return order, nil
}

// planRoot appends the create-dir, copy-file, set-permission, and configure
// steps for one target root.
func (p *Planner) planRoot(root string, opts Options, plan *Plan) {
	for _, t := range []manifest.Type{manifest.TypeCommand, manifest.TypeHook, manifest.TypeAgent} {
		if !slices.ContainsFunc(plan.Components, func(c *manifest.Component) bool { return c.Type == t }) {
			continue
		}
		dir := filepath.Join(root, t.Dir())
		if slices.Contains(plan.Directories, dir) {
			continue
		}
		plan.Directories = append(plan.Directories, dir)
		plan.Steps = append(plan.Steps, Step{
			Type:        StepCreateDir,
			Description: fmt.Sprintf("create %s", dir),
			Root:        root,
			Path:        dir,
		})
	}

	var hooks []*manifest.Component
	for _, c := range plan.Components {
		dest := filepath.Join(root, c.Type.Dir(), filepath.FromSlash(c.RelPath()))
		p.noteBackup(dest, opts, plan)

		desc := fmt.Sprintf("copy %s %s to %s", c.Type, c.ID, dest)
		if c.Embedded() {
			desc = fmt.Sprintf("write built-in %s %s to %s", c.Type, c.ID, dest)
		}
		plan.Steps = append(plan.Steps, Step{
			Type:        StepCopyFile,
			Description: desc,
			Root:        root,
			Path:        dest,
			Source:      c.SourcePath,
			Component:   c,
		})

		if c.Type == manifest.TypeHook {
			hooks = append(hooks, c)
			plan.Steps = append(plan.Steps, Step{
				Type:        StepSetPermission,
				Description: fmt.Sprintf("make %s executable", dest),
				Root:        root,
				Path:        dest,
				Component:   c,
			})
		}
	}

	if len(hooks) == 0 || opts.SkipSettings {
		return
	}
	settings := filepath.Join(root, SettingsFile)
	p.noteBackup(settings, opts, plan)
	plan.Steps = append(plan.Steps, Step{
		Type:        StepConfigure,
		Description: fmt.Sprintf("register %d hook(s) in %s", len(hooks), settings),
		Root:        root,
		Path:        settings,
		Hooks:       BuildHooksConfig(root, hooks),
	})
}

func (p *Planner) noteBackup(path string, opts Options, plan *Plan) {
	if opts.Backup && platform.Exists(path) && !slices.Contains(plan.Backups, path) {
		plan.Backups = append(plan.Backups, path)
	}
}

// cycleWarnings reports graph cycles that touch a planned component.
func (p *Planner) cycleWarnings(graph *depgraph.Graph, plan *Plan) {
	planned := plan.ComponentIDs()
	for _, cycle := range graph.Cycles {
		if slices.ContainsFunc(cycle, func(id string) bool { return slices.Contains(planned, id) }) {
			plan.warn("dependency cycle: %s", strings.Join(cycle, " -> "))
		}
	}
}

// frameworkWarnings reports hooks the project signals call for that are not
// part of the plan.
func (p *Planner) frameworkWarnings(inst Installation, plan *Plan) {
	signals := p.signals
	if signals == nil {
		root := inst.ProjectRoot
		if root == "" {
			return
		}
		signals = project.Detect(root, p.logger)
	}

	recs := recommend.Recommend(p.reg, signals)
	for _, rec := range recommend.Missing(recs, recommend.DefaultMinScore, plan.ComponentIDs()) {
		c, ok := p.reg.Get(rec.ID)
		if !ok || c.Type != manifest.TypeHook {
			continue
		}
		plan.warn("hook %q is recommended for this project (%s) but not selected",
			rec.ID, strings.Join(rec.Reasons, ", "))
	}
}

// externalTools returns the distinct known host tools the components depend
// on, in first-seen order.
func externalTools(graph *depgraph.Graph, components []*manifest.Component) []string {
	var tools []string
	for _, c := range components {
		for _, dep := range graph.Dependencies(c.ID) {
			n := graph.Nodes[dep]
			if n != nil && n.IsExternal && n.Known && !slices.Contains(tools, dep) {
				tools = append(tools, dep)
			}
		}
	}
	return tools
}

// targetRoots resolves the directories components are installed under. A
// custom path is added to user and project targets when given. An empty
// project root defaults to the working directory and is written back to inst.
func targetRoots(inst *Installation, opts Options) ([]string, error) {
	var roots []string

	if inst.Target == TargetUser || inst.Target == TargetBoth {
		home := opts.HomeDir
		if home == "" {
			h, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("resolving home directory: %w", err)
			}
			home = h
		}
		roots = append(roots, filepath.Join(home, branding.TargetDir()))
	}

	if inst.Target == TargetProject || inst.Target == TargetBoth {
		if inst.ProjectRoot == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("resolving project root: %w", err)
			}
			inst.ProjectRoot = wd
		}
		abs, err := filepath.Abs(inst.ProjectRoot)
		if err != nil {
			return nil, fmt.Errorf("resolving project root: %w", err)
		}
		inst.ProjectRoot = abs
		roots = append(roots, filepath.Join(abs, branding.TargetDir()))
	}

	if inst.CustomPath != "" {
		abs, err := filepath.Abs(inst.CustomPath)
		if err != nil {
			return nil, fmt.Errorf("resolving custom path: %w", err)
		}
		if !slices.Contains(roots, abs) {
			roots = append(roots, abs)
		}
	}

	return roots, nil
}

func (p *Plan) warn(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}
