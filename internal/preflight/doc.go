// Package preflight provides readiness checks for the traffic backend and
// filesystem paths that Airtrack depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll before starting a recording session.
//     If any check fails, the session is refused to avoid losing a take
//     to a full disk or a dead backend mid-capture.
//   - The CLI "airtrack status" command uses individual check functions
//     to display service health.
package preflight
