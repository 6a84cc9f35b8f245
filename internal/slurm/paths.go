package slurm

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveLogPath expands a stdout/stderr filename pattern the way the
// scheduler does: %j and %A become the job id, %a the array task index
// (the dashboard tracks non-array jobs, so index 0), %x the job name.
// Relative results are joined to the job's working directory.
func ResolveLogPath(pattern, workDir string, id JobID, jobName string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return ""
	}

	pattern = strings.ReplaceAll(pattern, "%j", id.String())
	pattern = strings.ReplaceAll(pattern, "%A", id.String())
	pattern = strings.ReplaceAll(pattern, "%a", "0")
	if jobName != "" {
		pattern = strings.ReplaceAll(pattern, "%x", jobName)
	}

	if !filepath.IsAbs(pattern) && workDir != "" {
		pattern = filepath.Join(workDir, pattern)
	}
	return pattern
}

// DefaultLogPath is the scheduler's fallback output filename for a job
// submitted without --output.
func DefaultLogPath(workDir string, id JobID) string {
	return filepath.Join(workDir, fmt.Sprintf("slurm-%d.out", id))
}

// ArrayLogPath is the _0 variant the scheduler writes for array tasks.
func ArrayLogPath(workDir string, id JobID) string {
	return filepath.Join(workDir, fmt.Sprintf("slurm-%d_0.out", id))
}
