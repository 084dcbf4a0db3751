// Package config loads, normalizes, and validates the TOML configuration
// consumed by the daemon and CLI. Loading applies repository defaults first,
// then overlays the user's file, expands tilde paths, and rejects
// configurations the pipeline cannot run with (unknown operations, chains
// referencing undefined endpoints, missing LLM credentials).
package config
