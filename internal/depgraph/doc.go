// Package depgraph builds the dependency graph over a component registry and
// resolves requested component sets into an installation order.
//
// Graph construction adds an edge for every declared, detected, and
// overridden dependency. Ids outside the registry become external leaf
// nodes. Cycle detection, depth computation, and ordering all walk the graph
// with an explicit stack and a per-node visit state, so termination does
// not depend on recursion limits and cycles are attributed to the exact
// nodes on the stack when the back edge is found.
package depgraph
