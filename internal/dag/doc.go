// Package dag provides a generic directed acyclic graph keyed by string IDs.
// It backs both the parameter-file include resolver (which must reject
// circular `_includes` chains) and the workflow planner (which must order
// jobs by their declared dependencies).
package dag
