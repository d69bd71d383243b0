// Package config loads and validates the reelay TOML configuration.
//
// Configuration is resolved from an explicit --config path,
// ~/.config/reelay/config.toml, or ./reelay.toml in that order. All path
// fields are expanded and absolute after Load.
package config
