package slurm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"slurm-watch/internal/logging"
)

// ErrNoSuchJob is returned when neither squeue nor sacct know the job.
var ErrNoSuchJob = errors.New("job not known to scheduler")

// Runner executes a scheduler command and returns its stdout.
// Injected so parsers and client methods are testable without SLURM.
type Runner func(ctx context.Context, args ...string) (string, error)

// Client wraps the SLURM command line tools.
type Client struct {
	run     Runner
	timeout time.Duration
	log     zerolog.Logger
}

// NewClient builds a client that shells out to the real SLURM binaries.
// timeout bounds every command; zero means 30s.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		run:     execRunner,
		timeout: timeout,
		log:     logging.Component("slurm"),
	}
}

// NewClientWithRunner builds a client on a custom runner. Used in tests.
func NewClientWithRunner(run Runner, timeout time.Duration) *Client {
	c := NewClient(timeout)
	c.run = run
	return c
}

func execRunner(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("%s timed out: %v, stderr: %s", args[0], err, stderr.String())
	}
	if err != nil {
		return "", fmt.Errorf("%s failed: %v, stderr: %s", args[0], err, stderr.String())
	}
	return stdout.String(), nil
}

func (c *Client) runCommand(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.run(ctx, args...)
}

var submittedRe = regexp.MustCompile(`Submitted batch job (\d+)`)

// SubmitOptions are the sbatch flags the submit command exposes.
type SubmitOptions struct {
	JobName   string
	Partition string
	TimeLimit string
	Nodes     int
	CPUs      int
	Gres      string
	ExtraArgs []string
}

// Submit runs sbatch on a script and returns the new job id.
func (c *Client) Submit(ctx context.Context, script string, opts SubmitOptions) (JobID, error) {
	args := []string{"sbatch"}
	if opts.JobName != "" {
		args = append(args, "--job-name", opts.JobName)
	}
	if opts.Partition != "" {
		args = append(args, "--partition", opts.Partition)
	}
	if opts.TimeLimit != "" {
		args = append(args, "--time", opts.TimeLimit)
	}
	if opts.Nodes > 0 {
		args = append(args, fmt.Sprintf("--nodes=%d", opts.Nodes))
	}
	if opts.CPUs > 0 {
		args = append(args, fmt.Sprintf("--cpus-per-task=%d", opts.CPUs))
	}
	if opts.Gres != "" {
		args = append(args, "--gres", opts.Gres)
	}
	args = append(args, opts.ExtraArgs...)
	args = append(args, script)

	out, err := c.runCommand(ctx, args...)
	if err != nil {
		return 0, fmt.Errorf("submit %s: %w", script, err)
	}
	id, err := ParseSubmitOutput(out)
	if err != nil {
		return 0, err
	}
	c.log.Info().Int("job_id", int(id)).Str("script", script).Msg("job submitted")
	return id, nil
}

// ParseSubmitOutput extracts the job id from sbatch output.
func ParseSubmitOutput(out string) (JobID, error) {
	m := submittedRe.FindStringSubmatch(out)
	if len(m) < 2 {
		return 0, fmt.Errorf("unexpected sbatch output: %q", strings.TrimSpace(out))
	}
	return ParseJobID(m[1])
}

// Status fetches the current state of a job. squeue covers queued and
// running jobs; finished jobs fall back to sacct.
func (c *Client) Status(ctx context.Context, id JobID) (Status, error) {
	out, err := c.runCommand(ctx, "squeue", "-j", id.String(), "-h", "-o", "%T")
	if err == nil {
		if raw := strings.TrimSpace(out); raw != "" {
			return MapState(firstLine(raw)), nil
		}
	}

	out, sacctErr := c.runCommand(ctx, "sacct", "-j", id.String(), "-n", "-X", "--parsable2", "-o", "State")
	if sacctErr != nil {
		if err != nil {
			return StatusUnknown, fmt.Errorf("status of job %d: %w", id, err)
		}
		return StatusUnknown, fmt.Errorf("status of job %d: %w", id, sacctErr)
	}
	raw := strings.TrimSpace(out)
	if raw == "" {
		return StatusUnknown, fmt.Errorf("status of job %d: %w", id, ErrNoSuchJob)
	}
	return MapState(firstLine(raw)), nil
}

var infoFields = "JobID,JobName,State,Start,End,Elapsed,WorkDir,StdOut,StdErr"

// Info fetches accounting details for a job. Stdout/stderr paths have
// filename patterns substituted and relative paths joined to WorkDir.
func (c *Client) Info(ctx context.Context, id JobID) (JobInfo, error) {
	out, err := c.runCommand(ctx, "sacct", "-j", id.String(), "-n", "-X", "--parsable2", "--format", infoFields)
	if err != nil {
		return JobInfo{}, fmt.Errorf("info for job %d: %w", id, err)
	}
	info, ok := ParseSacctInfo(out, id)
	if !ok {
		return JobInfo{}, fmt.Errorf("info for job %d: %w", id, ErrNoSuchJob)
	}
	return info, nil
}

// ParseSacctInfo parses one `sacct --parsable2` row in infoFields order.
// Step entries (34989208.batch etc.) are skipped.
func ParseSacctInfo(out string, id JobID) (JobInfo, bool) {
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 9 || strings.Contains(parts[0], ".") {
			continue
		}
		info := JobInfo{
			Name:    strings.TrimSpace(parts[1]),
			State:   strings.TrimSpace(parts[2]),
			Elapsed: strings.TrimSpace(parts[5]),
			WorkDir: strings.TrimSpace(parts[6]),
		}
		info.StdoutPath = ResolveLogPath(strings.TrimSpace(parts[7]), info.WorkDir, id, info.Name)
		info.StderrPath = ResolveLogPath(strings.TrimSpace(parts[8]), info.WorkDir, id, info.Name)
		return info, true
	}
	return JobInfo{}, false
}

var (
	scontrolStdoutRe = regexp.MustCompile(`StdOut=(\S+)`)
	scontrolStderrRe = regexp.MustCompile(`StdErr=(\S+)`)
)

// LogPaths resolves the stdout and stderr file paths for a job.
// scontrol has exact paths while the job is in slurmctld memory; sacct
// covers finished jobs; the slurm-<id>.out convention is the last
// resort. A missing stderr path falls back to stdout (merged output).
func (c *Client) LogPaths(ctx context.Context, id JobID) (string, string, error) {
	if out, err := c.runCommand(ctx, "scontrol", "show", "job", id.String()); err == nil {
		stdout, stderr := ParseScontrolLogPaths(out)
		if stdout != "" || stderr != "" {
			return mergedPaths(stdout, stderr), mergedPaths(stderr, stdout), nil
		}
	}

	info, err := c.Info(ctx, id)
	if err == nil {
		stdout, stderr := info.StdoutPath, info.StderrPath
		if stdout == "" && info.WorkDir != "" {
			stdout = DefaultLogPath(info.WorkDir, id)
		}
		if stdout != "" || stderr != "" {
			return mergedPaths(stdout, stderr), mergedPaths(stderr, stdout), nil
		}
	}

	return "", "", fmt.Errorf("resolve log paths for job %d: %w", id, ErrNoSuchJob)
}

// ParseScontrolLogPaths pulls StdOut=/StdErr= out of scontrol show job.
func ParseScontrolLogPaths(out string) (string, string) {
	stdout, stderr := "", ""
	if m := scontrolStdoutRe.FindStringSubmatch(out); len(m) > 1 {
		stdout = m[1]
	}
	if m := scontrolStderrRe.FindStringSubmatch(out); len(m) > 1 {
		stderr = m[1]
	}
	return stdout, stderr
}

// VisibleJobs lists the current user's jobs as squeue reports them.
func (c *Client) VisibleJobs(ctx context.Context) ([]JobRow, error) {
	out, err := c.runCommand(ctx, "squeue", "-u", currentUser(), "-h", "-o", "%i|%j|%T|%M")
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return ParseSqueueRows(out), nil
}

// ParseSqueueRows parses `squeue -h -o %i|%j|%T|%M` output.
func ParseSqueueRows(out string) []JobRow {
	var rows []JobRow
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 4 {
			continue
		}
		id, err := ParseJobID(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		rows = append(rows, JobRow{
			ID:      id,
			Name:    strings.TrimSpace(parts[1]),
			State:   strings.TrimSpace(parts[2]),
			Elapsed: strings.TrimSpace(parts[3]),
		})
	}
	return rows
}

// Cancel asks the scheduler to cancel a job.
func (c *Client) Cancel(ctx context.Context, id JobID) error {
	if _, err := c.runCommand(ctx, "scancel", id.String()); err != nil {
		return fmt.Errorf("cancel job %d: %w", id, err)
	}
	c.log.Info().Int("job_id", int(id)).Msg("job cancelled")
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func mergedPaths(primary, other string) string {
	if primary != "" {
		return primary
	}
	return other
}
