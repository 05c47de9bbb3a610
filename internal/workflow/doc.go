// Package workflow models a planned experiment workflow: a DAG of jobs,
// each addressed by a hierarchical locator and carrying a parameter payload
// and a cluster resource request. A validated Plan can be described as
// YAML, executed locally, or submitted to a cluster scheduler.
package workflow
