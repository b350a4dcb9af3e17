package seqkit

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/config"
)

const versionTimeout = 10 * time.Second

// LocalRunner runs the seqkit binary found at the configured path.
type LocalRunner struct {
	path      string
	maxOutput int
	sem       chan struct{}
	active    atomic.Int64
	wg        sync.WaitGroup
}

func NewLocalRunner(cfg config.SeqkitConfig) *LocalRunner {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 16
	}
	return &LocalRunner{
		path:      cfg.Path,
		maxOutput: cfg.MaxOutputBytes,
		sem:       make(chan struct{}, maxConcurrent),
	}
}

func (l *LocalRunner) Name() string { return "local" }

func (l *LocalRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	return l.run(ctx, inv, nil, nil)
}

func (l *LocalRunner) RunStreaming(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (*Result, error) {
	return l.run(ctx, inv, stdout, stderr)
}

func (l *LocalRunner) run(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (*Result, error) {
	execID := uuid.New().String()
	logger := log.With().
		Str("exec_id", execID).
		Str("command", inv.Command).
		Logger()

	release, err := acquire(ctx, l.sem, execID)
	if err != nil {
		return nil, err
	}
	defer release()

	l.wg.Add(1)
	defer l.wg.Done()
	l.active.Add(1)
	defer l.active.Add(-1)

	return withTempDir(execID, func(dir string) (*Result, error) {
		input, err := writeInput(dir, inv)
		if err != nil {
			return nil, &ExecutionError{ExecID: execID, Op: "write_input", Err: err}
		}

		args := make([]string, 0, len(inv.Args)+2)
		args = append(args, inv.Command)
		args = append(args, inv.Args...)
		args = append(args, input)

		logger.Debug().Strs("args", inv.Args).Msg("starting seqkit")
		res, err := runProcess(ctx, process{
			execID:    execID,
			command:   inv.Command,
			name:      l.path,
			args:      args,
			timeout:   inv.Timeout,
			maxOutput: l.maxOutput,
		}, stdout, stderr)
		if res != nil {
			logger.Debug().
				Int("exit_code", res.ExitCode).
				Dur("duration", res.Duration).
				Msg("seqkit finished")
		}
		return res, err
	})
}

func (l *LocalRunner) Version(ctx context.Context) (string, error) {
	res, err := runProcess(ctx, process{
		execID:    "version",
		command:   "version",
		name:      l.path,
		args:      []string{"version"},
		timeout:   versionTimeout,
		maxOutput: 4096,
	}, nil, nil)
	if err != nil {
		return "", err
	}
	return parseVersion(res.Stdout), nil
}

// ActiveCount reports runs currently executing.
func (l *LocalRunner) ActiveCount() int64 {
	return l.active.Load()
}

// Close waits up to 30s for active runs to finish.
func (l *LocalRunner) Close() error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn().Int64("active", l.active.Load()).Msg("timed out waiting for seqkit runs to drain")
	}
	return nil
}
