// Package config loads, validates, and defaults the photomaton TOML
// configuration shared by the daemon and the CLI.
package config
