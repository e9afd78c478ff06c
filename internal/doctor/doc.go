// Package doctor checks that the install pipeline can run: the config
// directory, the component source and its registry, the dependency graph,
// host tools, and every install target.
package doctor
