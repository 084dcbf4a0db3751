// Package daemon coordinates the long-running deep-vision process.
//
// It wires configuration, the task registry, and the engine into a single
// lifecycle with flock-based locking to prevent multiple instances, and hosts
// the HTTP API used by the CLI to submit and inspect tasks.
//
// Keep orchestration logic here: individual pipeline stages should live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
