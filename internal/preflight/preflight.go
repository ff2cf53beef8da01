package preflight

import (
	"context"

	"airtrack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Staging directory (always checked)
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDiskSpace("Staging free space", cfg.Paths.StagingDir, cfg.Capture.MinFreeBytes))

	// Traffic API
	results = append(results, CheckTrafficAPI(ctx, cfg.Traffic.BaseURL, cfg.Traffic.APIToken))

	return results
}
