// Package types defines the shared data structures exchanged between agents,
// the flow engine, and external collaborators (tools, providers, CLI).
//
// The types package is the lowest-level package with no internal dependencies,
// so placing the common contracts here avoids circular imports.
package types
