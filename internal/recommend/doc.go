// Package recommend scores catalog components against detected project
// signals to propose an install set. It reads the registry only; the ids it
// returns are expanded and ordered by depgraph like any user request.
package recommend
