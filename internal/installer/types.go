package installer

import (
	"fmt"
	"time"

	"github.com/claudekit-labs/claudekit/internal/manifest"
	"github.com/go-playground/validator/v10"
)

// Target selects where components are installed.
type Target string

const (
	TargetUser    Target = "user"
	TargetProject Target = "project"
	TargetBoth    Target = "both"
	TargetCustom  Target = "custom"
)

// Installation is an install request.
type Installation struct {
	Target      Target   `json:"target" validate:"required,oneof=user project both custom"`
	ProjectRoot string   `json:"project_root,omitempty"`
	CustomPath  string   `json:"custom_path,omitempty" validate:"required_if=Target custom"`
	Components  []string `json:"components" validate:"required,min=1,dive,required"`
}

var installValidate = validator.New()

// Validate checks the request shape. Problems are returned as a
// *ValidationError.
func (i Installation) Validate() error {
	err := installValidate.Struct(i)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	issues := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, describeFieldError(fe))
	}
	return &ValidationError{Issues: issues}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_if":
		return fmt.Sprintf("%s is required for target %q", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", fe.Field(), fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must list at least %s entry", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Options controls planning and execution.
type Options struct {
	DryRun              bool
	Backup              bool
	Force               bool // skip pre-execution validation
	InstallDependencies bool
	IncludeOptional     bool
	AllowCycles         bool
	SkipSettings        bool
	MaxDepth            int    // 0 uses the resolver default
	HomeDir             string // overrides the user home directory
}

// StepType names a plan step.
type StepType string

const (
	StepCreateDir         StepType = "create-dir"
	StepCopyFile          StepType = "copy-file"
	StepSetPermission     StepType = "set-permission"
	StepInstallDependency StepType = "install-dependency"
	StepConfigure         StepType = "configure"
)

// Step is one filesystem operation in a plan.
type Step struct {
	Type        StepType
	Description string
	Root        string // target root the step writes under
	Path        string // directory, destination file, or settings file
	Source      string // copy-file source; empty for embedded components
	Tool        string // install-dependency tool id
	Component   *manifest.Component
	Hooks       HooksConfig // configure: hook registrations to merge
}

// Plan is the ordered work for one installation.
type Plan struct {
	Installation Installation
	Roots        []string
	Components   []*manifest.Component // install order
	Steps        []Step
	Directories  []string
	Backups      []string // existing paths that will be backed up
	Warnings     []string
}

// Count returns the number of steps of type t.
func (p *Plan) Count(t StepType) int {
	n := 0
	for _, s := range p.Steps {
		if s.Type == t {
			n++
		}
	}
	return n
}

// ComponentIDs returns the planned component ids in install order.
func (p *Plan) ComponentIDs() []string {
	ids := make([]string, 0, len(p.Components))
	for _, c := range p.Components {
		ids = append(ids, c.ID)
	}
	return ids
}

// Result is the outcome of a simulated or real execution. Both modes fill the
// same fields.
type Result struct {
	Success            bool          `json:"success"`
	DryRun             bool          `json:"dry_run"`
	TransactionID      string        `json:"transaction_id"`
	Installed          []string      `json:"installed"`
	ModifiedFiles      []string      `json:"modified_files"`
	CreatedDirectories []string      `json:"created_directories"`
	BackupFiles        []string      `json:"backup_files"`
	Warnings           []string      `json:"warnings"`
	Errors             []string      `json:"errors"`
	RolledBack         []string      `json:"rolled_back,omitempty"`
	Duration           time.Duration `json:"duration"`
}
