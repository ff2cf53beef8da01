// Package trim derives bounded audio objects from finalized recordings.
//
// Trimming is non-destructive and composable: a trim of a trim behaves like
// a single trim of the original with the combined range.
package trim
