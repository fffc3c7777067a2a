// Package config loads, normalizes, and validates jsonpress configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from ~/.config/jsonpress/config.toml or a
// project-local jsonpress.toml. The Config type centralizes every knob the
// daemon and CLI need: input/output directories, job store location, flatten
// policies, retry budgets, notification and API settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical formats, and clear validation errors.
package config
