// Package cli defines the Cobra command tree for the claudekit CLI. Each file
// in this package registers one top-level command (list, deps, recommend,
// install, config, version) with the root command. Command implementations
// delegate to internal packages for discovery, resolution, planning, and
// execution, and only handle flag parsing, I/O formatting, and confirmation.
package cli
