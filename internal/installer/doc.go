// Package installer plans and executes component installations.
//
// A Planner turns a validated Installation request into a Plan: an ordered
// list of filesystem steps over one or more target roots, plus the files that
// will be backed up and any warnings. An Executor either simulates a plan
// without touching the filesystem or runs it inside a transaction that is
// rolled back on the first failing step.
package installer
