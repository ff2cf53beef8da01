// Package daemon coordinates the long-running Airtrack process and system
// integration points.
//
// It wires configuration, take storage, the recording orchestrator, the
// upload retry worker, the presence channel, and the sound-device monitor
// into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon also serves a small read-only HTTP API for
// dashboards.
//
// Keep orchestration logic here: recording and upload mechanics live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
