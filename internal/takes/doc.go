// Package takes persists the local view of recorded voice takes.
//
// The backend owns take state; this package keeps a read-only mirror that is
// refreshed after every mutating API call, plus a registry of staged
// recordings whose audio stays on disk until an upload succeeds. Both live in
// a single SQLite database under the log directory.
package takes
