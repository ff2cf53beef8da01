// Package config loads, normalizes, and validates airtrack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AIRTRACK_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need: staging/log directories, the traffic backend connection, the
// presence channel endpoint and reconnect policy, and capture stream settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
