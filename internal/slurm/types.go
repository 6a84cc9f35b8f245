package slurm

import (
	"strconv"
	"strings"
)

// JobID is a SLURM job id as reported by sbatch/squeue.
type JobID int

func (id JobID) String() string {
	return strconv.Itoa(int(id))
}

// ParseJobID parses a numeric job id string.
func ParseJobID(s string) (JobID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return JobID(n), nil
}

// Status is the coarse job state the dashboard cares about.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusUnknown   Status = "UNKNOWN"
)

// Terminal reports whether the job will not change state anymore.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobInfo carries the accounting fields used by the dashboard.
type JobInfo struct {
	Name       string
	State      string
	Elapsed    string
	WorkDir    string
	StdoutPath string
	StderrPath string
}

// Stream identifies one of a job's two output files.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// StreamKey identifies one output file of one job. It is the key type
// for log buffers, scroll state and tail registrations.
type StreamKey struct {
	Job    JobID
	Stream Stream
}

func (k StreamKey) String() string {
	return k.Job.String() + "/" + string(k.Stream)
}

// JobRow is one line of squeue output for the current user.
type JobRow struct {
	ID      JobID
	Name    string
	State   string
	Elapsed string
}

var rawStateMap = map[string]Status{
	"PENDING":       StatusQueued,
	"CONFIGURING":   StatusQueued,
	"RUNNING":       StatusRunning,
	"COMPLETING":    StatusRunning,
	"COMPLETED":     StatusCompleted,
	"FAILED":        StatusFailed,
	"CANCELLED":     StatusFailed,
	"TIMEOUT":       StatusFailed,
	"NODE_FAIL":     StatusFailed,
	"OUT_OF_MEMORY": StatusFailed,
}

// MapState converts a raw scheduler state string to a Status.
// Handles trailing annotations ("CANCELLED by 4840", "RUNNING+").
func MapState(raw string) Status {
	text := normalizeState(raw)
	if text == "" {
		return StatusUnknown
	}
	if s, ok := rawStateMap[text]; ok {
		return s
	}
	if fields := strings.Fields(text); len(fields) > 1 {
		if s, ok := rawStateMap[fields[0]]; ok {
			return s
		}
	}
	return StatusUnknown
}

func normalizeState(raw string) string {
	text := strings.ToUpper(strings.TrimSpace(raw))
	return strings.TrimRight(text, "*+")
}
