// Package media defines the PCM audio types shared by capture, trimming, and
// upload, plus the RIFF/WAVE codec used when audio crosses a process or
// network boundary.
//
// Audio values are immutable by convention: every transformation returns a
// new value so callers can discard a derived result and fall back to the
// original.
package media
