// Package graph defines the design graph for dfmcheck models.
// The design graph is an immutable DAG of primitives, drilled holes,
// placements and groups produced by evaluating a model script.
package graph
