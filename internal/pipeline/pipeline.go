// Package pipeline runs the request lifecycle shared by every endpoint:
// decode, validate, dispatch to an adapter, audit, and hand the outcome to
// the response builder.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/audit"
	"fastx-gateway/internal/monitor"
)

// Call describes one operation. Content-free calls (log queries) leave
// Format empty and skip decoding checks.
type Call struct {
	Operation   string
	Endpoint    string
	RequestID   string
	Content     string
	InputFormat InputFormat
	Format      Format
	Params      map[string]any

	// Precheck runs after validation and before Run, for dependencies such
	// as the seqkit binary.
	Precheck func(ctx context.Context) error
	// Validate runs operation-specific checks on the decoded text.
	Validate func(text string, format Format) error
	// Run performs the operation. It must not be nil.
	Run func(ctx context.Context, text string, format Format) (*Result, error)
}

// Result is what a successful Run reports back for auditing.
type Result struct {
	Summary     map[string]any
	OutputBytes int
	Warnings    []string
}

// Outcome is the single result of Execute. Exactly one of Result and Err is
// non-nil.
type Outcome struct {
	Result   *Result
	Err      error
	Kind     Kind
	Duration time.Duration
	Record   audit.Record
}

// ExecutionTimeMS is the duration rounded to two decimals.
func (o Outcome) ExecutionTimeMS() float64 {
	return roundMS(o.Duration)
}

// Pipeline executes calls and audits each of them exactly once.
type Pipeline struct {
	log     *audit.Log
	limits  Limits
	metrics *monitor.Metrics
	tracer  *monitor.Tracer
}

// New creates a pipeline. metrics may be nil.
func New(auditLog *audit.Log, limits Limits, metrics *monitor.Metrics) *Pipeline {
	return &Pipeline{
		log:     auditLog,
		limits:  limits,
		metrics: metrics,
		tracer:  monitor.NewTracer(),
	}
}

// Log returns the audit log the pipeline writes to.
func (p *Pipeline) Log() *audit.Log {
	return p.log
}

// Execute runs call to completion. Panics inside any stage are recovered
// and reported as internal errors.
func (p *Pipeline) Execute(ctx context.Context, call Call) (out Outcome) {
	start := time.Now()
	var warnings []string

	ctx, span := p.tracer.StartSpan(ctx, "operation",
		monitor.AttrOperation.String(call.Operation),
		monitor.AttrRequestID.String(call.RequestID),
		monitor.AttrContentLength.Int(len(call.Content)),
	)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("operation", call.Operation).
				Str("request_id", call.RequestID).
				Msg("panic recovered in pipeline")
			out.Result = nil
			out.Err = fmt.Errorf("%w: panic: %v", ErrInternal, rec)
		}
		out.Duration = time.Since(start)
		out.Kind = Classify(out.Err)
		if out.Result != nil {
			warnings = append(warnings, out.Result.Warnings...)
		}
		out.Record = p.audit(call, out, warnings)
		p.observe(call, out)
		monitor.EndSpan(span, out.Err)
	}()

	res, err := p.run(ctx, call, &warnings)
	if err != nil {
		return Outcome{Err: err}
	}
	if res == nil {
		res = &Result{}
	}
	return Outcome{Result: res}
}

// Fail records a call that could not be executed at all, such as a request
// body that is not valid JSON.
func (p *Pipeline) Fail(call Call, err error) Outcome {
	out := Outcome{Err: err, Kind: Classify(err)}
	out.Record = p.audit(call, out, nil)
	p.observe(call, out)
	return out
}

func (p *Pipeline) run(ctx context.Context, call Call, warnings *[]string) (*Result, error) {
	if call.Run == nil {
		return nil, fmt.Errorf("%w: no handler for operation %q", ErrInternal, call.Operation)
	}

	_, span := p.tracer.StartSpan(ctx, "pipeline.decode")
	text, err := Decode(call.Content, call.InputFormat)
	monitor.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	_, span = p.tracer.StartSpan(ctx, "pipeline.validate", monitor.AttrFormat.String(string(call.Format)))
	format, err := p.validate(text, call, warnings)
	monitor.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	if call.Precheck != nil {
		if err := call.Precheck(ctx); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: request cancelled: %w", ErrInternal, err)
	}

	dctx, span := p.tracer.StartSpan(ctx, "pipeline.dispatch")
	res, err := call.Run(dctx, text, format)
	monitor.EndSpan(span, err)
	return res, err
}

func (p *Pipeline) validate(text string, call Call, warnings *[]string) (Format, error) {
	if call.Format != FormatNone {
		if p.metrics != nil {
			p.metrics.ContentSizeBytes.Observe(float64(len(text)))
		}
		warning, err := p.limits.CheckSize(text)
		if err != nil {
			return FormatNone, err
		}
		if warning != "" {
			log.Warn().
				Str("operation", call.Operation).
				Str("request_id", call.RequestID).
				Int("content_bytes", len(text)).
				Msg("content exceeds size limit, processing anyway")
			*warnings = append(*warnings, warning)
		}
	}

	format, err := ValidateFormat(text, call.Format)
	if err != nil {
		return FormatNone, err
	}
	if call.Validate != nil {
		if err := call.Validate(text, format); err != nil {
			return FormatNone, err
		}
	}
	return format, nil
}

func (p *Pipeline) audit(call Call, out Outcome, warnings []string) audit.Record {
	params := audit.SanitizeParameters(call.Params)
	if call.Format != FormatNone {
		inputFormat := call.InputFormat
		if inputFormat == "" {
			inputFormat = InputString
		}
		params["input_format"] = string(inputFormat)
		params["content_length"] = len(call.Content)
	}

	rec := audit.Record{
		Operation:       call.Operation,
		Endpoint:        call.Endpoint,
		Parameters:      params,
		Success:         out.Err == nil,
		ExecutionTimeMS: roundMS(out.Duration),
		ResultSummary:   map[string]any{},
		Warnings:        warnings,
		RequestID:       call.RequestID,
	}
	if out.Err != nil {
		rec.ErrorMessage = out.Err.Error()
	} else if out.Result != nil && out.Result.Summary != nil {
		rec.ResultSummary = out.Result.Summary
	}

	stored := p.log.Record(rec)
	if p.metrics != nil {
		p.metrics.AuditRecords.Set(float64(p.log.Len()))
	}
	return stored
}

func (p *Pipeline) observe(call Call, out Outcome) {
	logger := log.With().
		Str("operation", call.Operation).
		Str("request_id", call.RequestID).
		Dur("duration", out.Duration).
		Logger()

	status := "success"
	switch {
	case out.Err == nil:
		logger.Info().Msg("operation completed")
	case out.Kind == KindInternal:
		status = out.Kind.String()
		logger.Error().Err(out.Err).Str("kind", status).Msg("operation failed")
	default:
		status = out.Kind.String()
		logger.Warn().Err(out.Err).Str("kind", status).Msg("operation failed")
	}

	if p.metrics == nil {
		return
	}
	p.metrics.RecordOperation(call.Operation, status, out.Duration.Seconds())
	if out.Err != nil {
		p.metrics.RecordError(status)
	} else if out.Result != nil && out.Result.OutputBytes > 0 {
		p.metrics.OutputSizeBytes.Observe(float64(out.Result.OutputBytes))
	}
}

func roundMS(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000
	return float64(int64(ms*100+0.5)) / 100
}
