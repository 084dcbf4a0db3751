// Package task defines the workflow state record threaded through the
// pipeline and the SQLite-backed registry that persists it.
//
// A State is owned by exactly one orchestrator run at a time; pollers read
// snapshots through the registry. Status transitions are monotonic within a
// run except for the bounded executing-to-executing retry loop, and progress
// never decreases. The Errors list is always present and append-only.
package task
