package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/claudekit-labs/claudekit/internal/logging"
	"github.com/claudekit-labs/claudekit/internal/platform"
)

// fileMode is the mode of installed component files before set-permission.
const fileMode os.FileMode = 0644

// dirMode is the mode of created target directories.
const dirMode os.FileMode = 0755

// Executor runs or simulates plans.
type Executor struct {
	logger *log.Logger
	prober ToolProber
	now    func() time.Time
}

// NewExecutor returns an Executor that probes tools with ExecProber. A nil
// logger discards output.
func NewExecutor(logger *log.Logger) *Executor {
	return &Executor{
		logger: logging.OrDiscard(logger),
		prober: ExecProber{},
		now:    time.Now,
	}
}

// SetProber replaces the tool prober.
func (e *Executor) SetProber(p ToolProber) {
	e.prober = p
}

// SetClock replaces the clock used for backup names and durations.
func (e *Executor) SetClock(now func() time.Time) {
	e.now = now
}

// Simulate walks the plan and reports what Execute would do. It performs
// only stat and access checks and never fails on filesystem grounds;
// problems a real run would hit are reported as warnings.
func (e *Executor) Simulate(ctx context.Context, plan *Plan, opts Options) *Result {
	start := e.now()
	res := &Result{
		DryRun:        true,
		TransactionID: newTransaction().id,
		Warnings:      slices.Clone(plan.Warnings),
		Installed:     plan.ComponentIDs(),
	}

	res.Warnings = append(res.Warnings, validatePlan(plan)...)

	stamp := backupStamp(e.now())
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, err.Error())
			break
		}
		e.logger.Info("would "+step.Description, "step", i+1, "type", step.Type)

		switch step.Type {
		case StepCreateDir:
			if !isDir(step.Path) {
				res.CreatedDirectories = append(res.CreatedDirectories, step.Path)
			}
		case StepCopyFile, StepConfigure:
			if parent := filepath.Dir(step.Path); !isDir(parent) && !slices.Contains(res.CreatedDirectories, parent) {
				res.CreatedDirectories = append(res.CreatedDirectories, parent)
			}
			if opts.Backup && platform.Exists(step.Path) {
				res.BackupFiles = append(res.BackupFiles, step.Path+".backup-"+stamp)
			}
			res.ModifiedFiles = append(res.ModifiedFiles, step.Path)
		case StepInstallDependency:
			e.logger.Debug("dependency probe skipped in dry run", "tool", step.Tool)
		}
	}

	res.Success = len(res.Errors) == 0
	res.Duration = e.now().Sub(start)
	return res
}

// Execute runs the plan inside a transaction. Unless opts.Force is set, the
// plan is validated first and a *ValidationError is returned with nothing
// changed. The first failing step stops execution and rolls back every
// recorded side effect; the step's error is returned as a *StepError and
// rollback problems are added to the result as warnings.
func (e *Executor) Execute(ctx context.Context, plan *Plan, opts Options) (*Result, error) {
	start := e.now()
	tx := newTransaction()
	res := &Result{
		TransactionID: tx.id,
		Warnings:      slices.Clone(plan.Warnings),
	}
	finish := func() {
		res.ModifiedFiles = tx.modified()
		res.CreatedDirectories = slices.Clone(tx.dirs)
		res.BackupFiles = tx.backupFiles()
		res.Duration = e.now().Sub(start)
	}

	if !opts.Force {
		if issues := validatePlan(plan); len(issues) > 0 {
			verr := &ValidationError{Issues: issues}
			res.Errors = append(res.Errors, verr.Error())
			finish()
			return res, verr
		}
	}

	e.logger.Info("starting installation", "tx", tx.id, "steps", len(plan.Steps), "roots", plan.Roots)

	for i, step := range plan.Steps {
		err := ctx.Err()
		if err == nil {
			err = e.runStep(ctx, tx, step, opts)
		}
		if err != nil {
			stepErr := &StepError{Index: i, Step: step, Err: err}
			e.logger.Error("installation step failed, rolling back", "tx", tx.id, "err", stepErr)
			res.Errors = append(res.Errors, stepErr.Error())

			finish()
			touched, rbErrs := tx.rollback(e.logger)
			res.RolledBack = touched
			for _, rbErr := range rbErrs {
				e.logger.Warn("rollback problem", "tx", tx.id, "err", rbErr)
				res.Warnings = append(res.Warnings, "rollback: "+rbErr.Error())
			}
			res.Duration = e.now().Sub(start)
			return res, stepErr
		}
		tx.completed++
		e.logger.Debug("step done", "tx", tx.id, "step", i+1, "type", step.Type, "path", step.Path)
	}

	res.Success = true
	res.Installed = plan.ComponentIDs()
	finish()
	e.logger.Info("installation complete", "tx", tx.id, "components", len(res.Installed), "duration", res.Duration)
	return res, nil
}

func (e *Executor) runStep(ctx context.Context, tx *transaction, step Step, opts Options) error {
	switch step.Type {
	case StepCreateDir:
		return e.createDir(tx, step.Path)
	case StepCopyFile:
		return e.copyFile(tx, step, opts)
	case StepSetPermission:
		return platform.MakeExecutable(step.Path)
	case StepInstallDependency:
		version, err := e.prober.Probe(ctx, step.Tool)
		if err != nil {
			return fmt.Errorf("required tool %s is not available: %w", step.Tool, err)
		}
		e.logger.Info("found dependency", "tool", step.Tool, "version", version)
		return nil
	case StepConfigure:
		return e.configure(tx, step, opts)
	default:
		return fmt.Errorf("unknown step type %q", step.Type)
	}
}

// createDir creates path and records each directory that did not exist.
func (e *Executor) createDir(tx *transaction, path string) error {
	if isDir(path) {
		return nil
	}
	if platform.Exists(path) {
		return fmt.Errorf("%s exists and is not a directory", path)
	}

	var missing []string
	for dir := path; !platform.Exists(dir); dir = filepath.Dir(dir) {
		missing = append(missing, dir)
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	if err := os.MkdirAll(path, dirMode); err != nil {
		return err
	}
	slices.Reverse(missing)
	tx.dirs = append(tx.dirs, missing...)
	return nil
}

func (e *Executor) copyFile(tx *transaction, step Step, opts Options) error {
	if err := e.createDir(tx, filepath.Dir(step.Path)); err != nil {
		return err
	}
	if err := e.prepareDestination(tx, step.Path, opts); err != nil {
		return err
	}

	c := step.Component
	var err error
	if c != nil && c.Embedded() {
		err = platform.WriteFile(step.Path, c.Content, fileMode)
	} else {
		err = platform.CopyFile(step.Source, step.Path, fileMode)
	}
	if err != nil {
		return err
	}
	tx.recordFile(step.Path)
	return nil
}

func (e *Executor) configure(tx *transaction, step Step, opts Options) error {
	existing, err := os.ReadFile(step.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", step.Path, err)
	}

	data, err := MergeSettings(existing, step.Hooks)
	if err != nil {
		return err
	}

	if err := e.createDir(tx, filepath.Dir(step.Path)); err != nil {
		return err
	}
	if err := e.prepareDestination(tx, step.Path, opts); err != nil {
		return err
	}
	if err := platform.WriteFile(step.Path, data, fileMode); err != nil {
		return err
	}
	tx.recordFile(step.Path)
	return nil
}

// prepareDestination moves an existing file aside when backups are enabled.
// Without backups the file is marked as overwritten and will be replaced in
// place.
func (e *Executor) prepareDestination(tx *transaction, path string, opts Options) error {
	if !platform.Exists(path) || slices.Contains(tx.files, path) || slices.Contains(tx.overwritten, path) {
		return nil
	}
	if !opts.Backup {
		tx.overwritten = append(tx.overwritten, path)
		return nil
	}

	backupPath := path + ".backup-" + backupStamp(e.now())
	for n := 1; platform.Exists(backupPath); n++ {
		backupPath = fmt.Sprintf("%s.backup-%s-%d", path, backupStamp(e.now()), n)
	}
	if err := os.Rename(path, backupPath); err != nil {
		return fmt.Errorf("backing up %s: %w", path, err)
	}
	tx.backups = append(tx.backups, backup{original: path, path: backupPath})
	e.logger.Info("backed up existing file", "tx", tx.id, "path", path, "backup", backupPath)
	return nil
}

// backupStamp formats t as an ISO 8601 UTC timestamp with the colons and
// fraction separator replaced by dashes.
func backupStamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s-%03dZ", t.Format("2006-01-02T15-04-05"), t.Nanosecond()/int(time.Millisecond))
}

// validatePlan returns the problems that would make execution fail before it
// starts: an unwritable target location or a missing source file.
func validatePlan(plan *Plan) []string {
	var issues []string

	for _, root := range plan.Roots {
		dir := nearestExisting(root)
		if !isDir(dir) {
			issues = append(issues, fmt.Sprintf("%s is not a directory", dir))
			continue
		}
		if !platform.IsWritable(dir) {
			issues = append(issues, fmt.Sprintf("no write permission for %s", dir))
		}
	}

	for _, step := range plan.Steps {
		if step.Type != StepCopyFile || step.Source == "" {
			continue
		}
		if _, err := os.Stat(step.Source); err != nil {
			issues = append(issues, fmt.Sprintf("source file %s for %s is missing", step.Source, step.Component.ID))
		}
	}

	return issues
}

// nearestExisting returns path or its closest existing ancestor.
func nearestExisting(path string) string {
	for !platform.Exists(path) {
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}
	return path
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
