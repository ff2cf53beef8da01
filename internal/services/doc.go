// Package services defines the shared error taxonomy for airtrack components
// and hosts clients for external systems in subpackages.
//
// Sentinel errors classify failures the way the rest of the system reacts to
// them: permission problems surface to the user, device loss forces a
// re-pick, invalid trim ranges are rejected before mutation, upload failures
// keep staged audio for retry, and connection loss drives reconnect policy.
package services
