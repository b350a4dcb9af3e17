package seqkit

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"

	"fastx-gateway/internal/config"
	"fastx-gateway/internal/monitor"
)

const breakerName = "seqkit"

// Guarded decorates a Backend with a circuit breaker, metrics and spans.
// Only timeouts and unavailability count as failures; a run that exits
// non-zero on bad input leaves the breaker alone.
type Guarded struct {
	next    Backend
	cb      *gobreaker.CircuitBreaker
	metrics *monitor.Metrics
	tracer  *monitor.Tracer
}

// NewGuarded wraps next. metrics may be nil; a disabled breaker config
// leaves only metrics and spans.
func NewGuarded(next Backend, cfg config.BreakerConfig, metrics *monitor.Metrics, tracer *monitor.Tracer) *Guarded {
	g := &Guarded{next: next, metrics: metrics, tracer: tracer}
	if !cfg.Enabled {
		return g
	}

	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
			if metrics != nil {
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	if metrics != nil {
		metrics.BreakerState.WithLabelValues(breakerName).Set(float64(gobreaker.StateClosed))
	}
	return g
}

func (g *Guarded) Name() string { return g.next.Name() }

// State reports the breaker state, "disabled" when there is none.
func (g *Guarded) State() string {
	if g.cb == nil {
		return "disabled"
	}
	return g.cb.State().String()
}

func (g *Guarded) Run(ctx context.Context, inv Invocation) (*Result, error) {
	return g.run(ctx, inv, func(ctx context.Context) (*Result, error) {
		return g.next.Run(ctx, inv)
	})
}

func (g *Guarded) RunStreaming(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (*Result, error) {
	return g.run(ctx, inv, func(ctx context.Context) (*Result, error) {
		return g.next.RunStreaming(ctx, inv, stdout, stderr)
	})
}

func (g *Guarded) run(ctx context.Context, inv Invocation, call func(context.Context) (*Result, error)) (res *Result, err error) {
	if g.tracer != nil {
		var span trace.Span
		ctx, span = g.tracer.StartSpan(ctx, "seqkit."+inv.Command,
			monitor.AttrCommand.String(inv.Command),
			monitor.AttrBackend.String(g.next.Name()),
			monitor.AttrContentLength.Int(len(inv.Input)),
		)
		defer func() {
			if res != nil {
				span.SetAttributes(monitor.AttrExitCode.Int(res.ExitCode))
			}
			monitor.EndSpan(span, err)
		}()
	}

	if g.metrics != nil {
		g.metrics.ActiveToolRuns.Inc()
		defer g.metrics.ActiveToolRuns.Dec()
	}

	if g.cb == nil {
		res, err = call(ctx)
	} else {
		var v interface{}
		v, err = g.cb.Execute(func() (interface{}, error) {
			return call(ctx)
		})
		res, _ = v.(*Result)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: circuit breaker %s after repeated failures", ErrUnavailable, g.cb.State())
		}
	}

	if g.metrics != nil {
		var secs float64
		if res != nil {
			secs = res.Duration.Seconds()
		}
		g.metrics.RecordToolRun(inv.Command, outcome(err), secs)
	}
	return res, err
}

func (g *Guarded) Version(ctx context.Context) (string, error) {
	return g.next.Version(ctx)
}

// ActiveCount reports runs in flight in the wrapped backend, or 0 when it
// does not track them.
func (g *Guarded) ActiveCount() int64 {
	if c, ok := g.next.(activeCounter); ok {
		return c.ActiveCount()
	}
	return 0
}

func (g *Guarded) Close() error {
	return g.next.Close()
}

func outcome(err error) string {
	var toolErr *ToolError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &toolErr):
		return "tool_error"
	case IsTimeout(err):
		return "timeout"
	case IsUnavailable(err):
		return "unavailable"
	default:
		return "error"
	}
}
