// Package prefs persists small per-user settings such as the preferred
// capture device.
//
// Preferences live in a JSON file at a configurable path (default:
// ~/.config/airtrack/prefs.json). The file is human-readable and safe to
// edit by hand. With no path configured the store silently ignores reads and
// writes, so callers never need to special-case a disabled store.
package prefs
