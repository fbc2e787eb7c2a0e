// Package config loads, normalizes, and validates batchscribe configuration.
//
// Configuration is TOML, read from an explicit --config path, then
// ~/.config/batchscribe/config.toml, then ./batchscribe.toml. Missing files
// are not an error: Default() supplies every value. Command line flags are
// layered on top by the CLI after Load returns.
package config
