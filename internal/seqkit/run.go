package seqkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/pipeline"
)

// waitDelay bounds how long Wait blocks on output pipes after the child is
// killed.
const waitDelay = 2 * time.Second

const defaultTimeout = 60 * time.Second

// Invocation is one seqkit run.
type Invocation struct {
	Command string
	Args    []string
	Input   string
	Format  pipeline.Format
	Timeout time.Duration
}

// Result is the captured outcome of a run.
type Result struct {
	ID        string        `json:"id"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	ExitCode  int           `json:"exit_code"`
	Duration  time.Duration `json:"duration"`
	Truncated bool          `json:"truncated,omitempty"`
}

// inputName is the file the content is written to; seqkit sniffs the
// format from content, the extension only helps humans reading logs.
func inputName(f pipeline.Format) string {
	if f == pipeline.FormatFASTQ {
		return "input.fastq"
	}
	return "input.fasta"
}

// writeInput creates dir/<input file> world-readable so a container user can
// read it.
func writeInput(dir string, inv Invocation) (string, error) {
	path := filepath.Join(dir, inputName(inv.Format))
	if err := os.WriteFile(path, []byte(inv.Input), 0600); err != nil {
		return "", err
	}
	if err := os.Chmod(path, 0444); err != nil { // #nosec G302 -- read-only input for the nobody user
		return "", err
	}
	return path, nil
}

// process describes a child to run for one invocation.
type process struct {
	execID    string
	command   string // seqkit subcommand, for errors
	name      string
	args      []string
	env       []string
	timeout   time.Duration
	maxOutput int
	onAbort   func() // called when the run is cut short by timeout or cancellation
}

// runProcess executes p, teeing output into stdout/stderr when non-nil.
func runProcess(ctx context.Context, p process, stdout, stderr io.Writer) (*Result, error) {
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, p.name, p.args...) // #nosec G204 -- args checked against the command registry
	cmd.WaitDelay = waitDelay
	if len(p.env) > 0 {
		cmd.Env = append(os.Environ(), p.env...)
	}

	outBuf := &cappedBuffer{max: p.maxOutput}
	errBuf := &cappedBuffer{max: p.maxOutput}
	cmd.Stdout = tee(outBuf, stdout)
	cmd.Stderr = tee(errBuf, stderr)

	start := time.Now()
	err := cmd.Run()
	res := &Result{
		ID:        p.execID,
		Stdout:    outBuf.String(),
		Stderr:    errBuf.String(),
		Duration:  time.Since(start),
		Truncated: outBuf.truncated || errBuf.truncated,
	}
	if err == nil {
		return res, nil
	}

	if execCtx.Err() != nil {
		if p.onAbort != nil {
			p.onAbort()
		}
		res.ExitCode = -1
		if ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, &ExecutionError{ExecID: p.execID, Op: p.command,
				Err: fmt.Errorf("%w after %s", ErrTimeout, p.timeout)}
		}
		return res, &ExecutionError{ExecID: p.execID, Op: p.command, Err: ctx.Err()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ToolError{Command: p.command, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return nil, fmt.Errorf("%w: %s could not be started: %v", ErrUnavailable, p.name, err)
	}
	return nil, &ExecutionError{ExecID: p.execID, Op: "start", Err: err}
}

func tee(buf *cappedBuffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// cappedBuffer keeps the first max bytes written and discards the rest
// while still reporting full writes, so the child never blocks on a full
// pipe.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.max <= 0 {
		return c.buf.Write(p)
	}
	room := c.max - c.buf.Len()
	if room <= 0 {
		c.truncated = c.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string {
	return c.buf.String()
}

// withTempDir runs fn inside a fresh directory that is removed afterwards,
// whatever fn returns.
func withTempDir(execID string, fn func(dir string) (*Result, error)) (*Result, error) {
	dir, err := os.MkdirTemp("", "fastx-seqkit-"+execID+"-*")
	if err != nil {
		return nil, &ExecutionError{ExecID: execID, Op: "create_temp_dir", Err: err}
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("exec_id", execID).Msg("failed to remove seqkit temp dir")
		}
	}()
	return fn(dir)
}

// acquire takes a concurrency slot or gives up when ctx ends.
func acquire(ctx context.Context, sem chan struct{}, execID string) (func(), error) {
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w waiting for a free slot", ErrTimeout)
		}
		return nil, &ExecutionError{ExecID: execID, Op: "acquire_slot", Err: err}
	}
}
