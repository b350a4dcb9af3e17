package seqkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fastx-gateway/internal/config"
	"fastx-gateway/internal/pipeline"
)

// Client is what handlers use: allow-list checks, per-kind timeouts and a
// cached version probe on top of a Backend.
type Client struct {
	backend        Backend
	registry       *Registry
	statsTimeout   time.Duration
	commandTimeout time.Duration
	versionTTL     time.Duration

	group      singleflight.Group
	mu         sync.Mutex
	version    string
	versionErr error
	checkedAt  time.Time
	now        func() time.Time
}

func NewClient(backend Backend, registry *Registry, cfg config.SeqkitConfig) *Client {
	return &Client{
		backend:        backend,
		registry:       registry,
		statsTimeout:   cfg.StatsTimeout,
		commandTimeout: cfg.CommandTimeout,
		versionTTL:     cfg.VersionCache,
		now:            time.Now,
	}
}

func (c *Client) Registry() *Registry { return c.registry }

func (c *Client) BackendName() string { return c.backend.Name() }

// BreakerState reports the circuit breaker state of the backend, or
// "disabled" when it is not guarded.
func (c *Client) BreakerState() string {
	if g, ok := c.backend.(interface{ State() string }); ok {
		return g.State()
	}
	return "disabled"
}

// Version returns the seqkit version. Concurrent probes share one run and
// the answer, success or failure, is cached for the configured TTL.
func (c *Client) Version(ctx context.Context) (string, error) {
	c.mu.Lock()
	if !c.checkedAt.IsZero() && c.now().Sub(c.checkedAt) < c.versionTTL {
		v, err := c.version, c.versionErr
		c.mu.Unlock()
		return v, err
	}
	c.mu.Unlock()

	ch := c.group.DoChan("version", func() (interface{}, error) {
		v, err := c.backend.Version(context.WithoutCancel(ctx))
		c.mu.Lock()
		c.version, c.versionErr, c.checkedAt = v, err, c.now()
		c.mu.Unlock()
		return v, err
	})

	select {
	case r := <-ch:
		v, _ := r.Val.(string)
		return v, r.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Available returns nil when seqkit can be run, otherwise an error wrapping
// ErrUnavailable.
func (c *Client) Available(ctx context.Context) error {
	_, err := c.Version(ctx)
	if err == nil || IsUnavailable(err) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: version probe failed: %v", ErrUnavailable, err)
}

// ActiveRuns reports seqkit runs currently executing.
func (c *Client) ActiveRuns() int64 {
	if ac, ok := c.backend.(activeCounter); ok {
		return ac.ActiveCount()
	}
	return 0
}

// Check validates command and args against the allow-list.
func (c *Client) Check(command string, args []string) error {
	return c.registry.Check(command, args)
}

// CheckTabular reports whether command and args print a table that can be
// returned as JSON rows.
func (c *Client) CheckTabular(command string, args []string) error {
	return c.registry.CheckTabular(command, args)
}

// Stats runs `seqkit stats -T` on input.
func (c *Client) Stats(ctx context.Context, input string, format pipeline.Format) (*Result, error) {
	return c.backend.Run(ctx, Invocation{
		Command: "stats",
		Args:    []string{"-T"},
		Input:   input,
		Format:  format,
		Timeout: c.statsTimeout,
	})
}

// Run executes an allow-listed command on input.
func (c *Client) Run(ctx context.Context, command string, args []string, input string, format pipeline.Format) (*Result, error) {
	inv, err := c.invocation(command, args, input, format)
	if err != nil {
		return nil, err
	}
	return c.backend.Run(ctx, inv)
}

// RunStreaming is Run with output copied to stdout and stderr as it arrives.
func (c *Client) RunStreaming(ctx context.Context, command string, args []string, input string, format pipeline.Format, stdout, stderr io.Writer) (*Result, error) {
	inv, err := c.invocation(command, args, input, format)
	if err != nil {
		return nil, err
	}
	return c.backend.RunStreaming(ctx, inv, stdout, stderr)
}

func (c *Client) invocation(command string, args []string, input string, format pipeline.Format) (Invocation, error) {
	if err := c.Check(command, args); err != nil {
		return Invocation{}, err
	}
	return Invocation{
		Command: command,
		Args:    append([]string(nil), args...),
		Input:   input,
		Format:  format,
		Timeout: c.commandTimeout,
	}, nil
}

func (c *Client) Close() error {
	return c.backend.Close()
}
