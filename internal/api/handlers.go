package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/biogo/biogo/seq/linear"

	"fastx-gateway/internal/config"
	"fastx-gateway/internal/monitor"
	"fastx-gateway/internal/pipeline"
	"fastx-gateway/internal/seqio"
	"fastx-gateway/internal/seqkit"
)

// HealthChecker reports whether an optional dependency is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

type Handlers struct {
	pipe      *pipeline.Pipeline
	seqkit    *seqkit.Client
	db        HealthChecker
	metrics   *monitor.Metrics
	tools     *toolRegistry
	cfg       *config.Config
	startTime time.Time
}

// NewHandlers wires the endpoint handlers. db may be nil when no archive
// database is configured.
func NewHandlers(cfg *config.Config, pipe *pipeline.Pipeline, client *seqkit.Client, db HealthChecker, metrics *monitor.Metrics) (*Handlers, error) {
	tools, err := newToolRegistry()
	if err != nil {
		return nil, err
	}
	return &Handlers{
		pipe:      pipe,
		seqkit:    client,
		db:        db,
		metrics:   metrics,
		tools:     tools,
		cfg:       cfg,
		startTime: time.Now(),
	}, nil
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return pipeline.Invalidf("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return pipeline.Invalidf("request body exceeds %d bytes", maxErr.Limit)
		}
		return pipeline.Invalidf("invalid JSON body: %v", err)
	}
	return nil
}

// fail audits a call that never reached the pipeline and renders the error.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, call pipeline.Call, err error) {
	writeFailure(w, r, h.pipe.Fail(call, err))
}

func (h *Handlers) HandleGenBankToFasta(w http.ResponseWriter, r *http.Request) {
	call := pipeline.Call{
		Operation: "genbank_to_fasta_conversion",
		Endpoint:  "/convert/genbank-to-fasta",
		RequestID: RequestIDFromContext(r.Context()),
		Format:    pipeline.FormatGenBank,
	}

	var req GenBankToFastaRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, call, err)
		return
	}
	call.Content = req.Content
	call.InputFormat = req.InputFormat
	call.Params = map[string]any{"include_summary": req.IncludeSummary}

	var resp GenBankToFastaResponse
	call.Run = func(ctx context.Context, text string, _ pipeline.Format) (*pipeline.Result, error) {
		seqs, err := seqio.ReadGenBank(text)
		if err != nil {
			return nil, pipeline.Processing(err)
		}
		fasta, err := seqio.WriteFASTA(seqs)
		if err != nil {
			return nil, pipeline.Processing(err)
		}
		resp.FastaContent = fasta

		summary := map[string]any{"output_length": len(fasta)}
		if req.IncludeSummary {
			s := seqio.Summarize(seqs)
			resp.ConversionSummary = &ConversionSummary{
				RecordCount: s.RecordCount,
				TotalLength: s.TotalLength,
				RecordIDs:   s.IDs(),
			}
			summary["conversion_summary"] = resp.ConversionSummary
		}
		return &pipeline.Result{Summary: summary, OutputBytes: len(fasta)}, nil
	}

	out := h.pipe.Execute(r.Context(), call)
	if out.Err != nil {
		writeFailure(w, r, out)
		return
	}
	resp.Success = true
	resp.ExecutionTimeMS = out.ExecutionTimeMS()
	resp.Timestamp = unixNow()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleReverseComplement(w http.ResponseWriter, r *http.Request) {
	call := pipeline.Call{
		Operation: "reverse_complement",
		Endpoint:  "/manipulate/reverse-complement",
		RequestID: RequestIDFromContext(r.Context()),
		Format:    pipeline.FormatFASTA,
	}

	var req ReverseComplementRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, call, err)
		return
	}
	call.Content = req.Content
	call.InputFormat = req.InputFormat
	call.Params = map[string]any{"include_summary": req.IncludeSummary}

	var resp ReverseComplementResponse
	call.Run = func(ctx context.Context, text string, _ pipeline.Format) (*pipeline.Result, error) {
		seqs, err := seqio.ReadFASTA(text)
		if err != nil {
			return nil, pipeline.Processing(err)
		}
		fasta, err := seqio.WriteFASTA(seqio.ReverseComplement(seqs))
		if err != nil {
			return nil, pipeline.Processing(err)
		}
		resp.FastaContent = fasta

		summary := map[string]any{"output_length": len(fasta)}
		if req.IncludeSummary {
			s := seqio.Summarize(seqs)
			resp.ManipulationSummary = &s
			summary["manipulation_summary"] = resp.ManipulationSummary
		}
		return &pipeline.Result{Summary: summary, OutputBytes: len(fasta)}, nil
	}

	out := h.pipe.Execute(r.Context(), call)
	if out.Err != nil {
		writeFailure(w, r, out)
		return
	}
	resp.Success = true
	resp.ExecutionTimeMS = out.ExecutionTimeMS()
	resp.Timestamp = unixNow()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleExtractSubsequence(w http.ResponseWriter, r *http.Request) {
	call := pipeline.Call{
		Operation: "extract_subsequence",
		Endpoint:  "/manipulate/extract-subsequence",
		RequestID: RequestIDFromContext(r.Context()),
		Format:    pipeline.FormatFASTA,
	}

	var req SubsequenceRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, call, err)
		return
	}
	call.Content = req.Content
	call.InputFormat = req.InputFormat
	call.Params = map[string]any{
		"sequence_id": req.SequenceID,
		"start":       req.Start,
		"end":         req.End,
	}

	var id string
	call.Validate = func(string, pipeline.Format) error {
		var err error
		if id, err = pipeline.ValidateSequenceID(req.SequenceID); err != nil {
			return err
		}
		return pipeline.ValidateCoordinates(req.Start, req.End, -1)
	}

	var resp SubsequenceResponse
	call.Run = func(ctx context.Context, text string, _ pipeline.Format) (*pipeline.Result, error) {
		seqs, err := seqio.ReadFASTA(text)
		if err != nil {
			return nil, pipeline.Processing(err)
		}
		rec, err := seqio.Find(seqs, id)
		if err != nil {
			return nil, pipeline.Processing(err)
		}
		if err := pipeline.ValidateCoordinates(req.Start, req.End, rec.Len()); err != nil {
			return nil, err
		}
		sub, err := seqio.Subsequence(rec, req.Start, req.End)
		if err != nil {
			return nil, pipeline.Processing(err)
		}
		fasta, err := seqio.WriteFASTA([]*linear.Seq{sub})
		if err != nil {
			return nil, pipeline.Processing(err)
		}

		resp.FastaContent = fasta
		resp.SubsequenceInfo = SubsequenceInfo{
			SequenceID: id,
			Start:      req.Start,
			End:        req.End,
			Length:     sub.Len(),
		}
		return &pipeline.Result{
			Summary: map[string]any{
				"output_length":    len(fasta),
				"subsequence_info": resp.SubsequenceInfo,
			},
			OutputBytes: len(fasta),
		}, nil
	}

	out := h.pipe.Execute(r.Context(), call)
	if out.Err != nil {
		writeFailure(w, r, out)
		return
	}
	resp.Success = true
	resp.ExecutionTimeMS = out.ExecutionTimeMS()
	resp.Timestamp = unixNow()
	writeJSON(w, http.StatusOK, resp)
}
