package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"fastx-gateway/internal/pipeline"
	"fastx-gateway/internal/seqkit"
)

// commandOperation names the audit operation for a seqkit command. Names
// outside the allow-list share one bucket so arbitrary input never becomes
// an operation name.
func (h *Handlers) commandOperation(command string) string {
	if _, err := h.seqkit.Registry().Get(command); err != nil {
		return "seqkit_command"
	}
	return "seqkit_" + command
}

func (h *Handlers) truncated(res *seqkit.Result) []string {
	if res == nil || !res.Truncated {
		return nil
	}
	return []string{fmt.Sprintf("seqkit output truncated to %d bytes", h.cfg.Seqkit.MaxOutputBytes)}
}

func (h *Handlers) HandleSeqkitStats(w http.ResponseWriter, r *http.Request) {
	call := pipeline.Call{
		Operation: "seqkit_stats",
		Endpoint:  "/seqkit/stats",
		RequestID: RequestIDFromContext(r.Context()),
		Format:    pipeline.FormatFASTX,
		Precheck:  h.seqkit.Available,
	}

	var req SeqkitStatsRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, r, call, err)
		return
	}
	if req.OutputFormat == "" {
		req.OutputFormat = "json"
	}
	call.Content = req.Content
	call.InputFormat = req.InputFormat
	call.Params = map[string]any{"output_format": req.OutputFormat}
	call.Validate = func(string, pipeline.Format) error {
		return pipeline.ValidateOutputFormat(req.OutputFormat)
	}

	var resp SeqkitStatsResponse
	call.Run = func(ctx context.Context, text string, format pipeline.Format) (*pipeline.Result, error) {
		res, err := h.seqkit.Stats(ctx, text, format)
		if err != nil {
			return nil, err
		}
		if req.OutputFormat == "json" {
			stats, err := seqkit.ParseStats(res.Stdout)
			if err != nil {
				return nil, err
			}
			resp.Statistics = stats
		} else {
			resp.Output = res.Stdout
		}
		return &pipeline.Result{
			Summary: map[string]any{
				"statistics_generated": true,
				"output_format":        req.OutputFormat,
			},
			OutputBytes: len(res.Stdout),
			Warnings:    h.truncated(res),
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

// commandCall builds the shared part of /seqkit/command and its streaming
// variant. req is decoded on success.
func (h *Handlers) commandCall(r *http.Request, endpoint string, req *SeqkitCommandRequest) (pipeline.Call, error) {
	call := pipeline.Call{
		Operation: "seqkit_command",
		Endpoint:  endpoint,
		RequestID: RequestIDFromContext(r.Context()),
		Format:    pipeline.FormatFASTX,
		Precheck:  h.seqkit.Available,
	}
	if err := decodeBody(r, req); err != nil {
		return call, err
	}
	if req.OutputFormat == "" {
		req.OutputFormat = "text"
	}

	call.Operation = h.commandOperation(req.Command)
	call.Content = req.Content
	call.InputFormat = req.InputFormat
	call.Params = map[string]any{
		"command":       req.Command,
		"args":          req.Args,
		"output_format": req.OutputFormat,
	}
	call.Validate = func(string, pipeline.Format) error {
		if err := pipeline.ValidateOutputFormat(req.OutputFormat); err != nil {
			return err
		}
		if err := h.seqkit.Check(req.Command, req.Args); err != nil {
			return err
		}
		if req.OutputFormat == "json" {
			return h.seqkit.CheckTabular(req.Command, req.Args)
		}
		return nil
	}
	return call, nil
}

func (h *Handlers) HandleSeqkitCommand(w http.ResponseWriter, r *http.Request) {
	var req SeqkitCommandRequest
	call, err := h.commandCall(r, "/seqkit/command", &req)
	if err != nil {
		h.fail(w, r, call, err)
		return
	}

	var resp SeqkitCommandResponse
	call.Run = func(ctx context.Context, text string, format pipeline.Format) (*pipeline.Result, error) {
		res, err := h.seqkit.Run(ctx, req.Command, req.Args, text, format)
		if err != nil {
			return nil, err
		}
		resp.Output = res.Stdout
		resp.Truncated = res.Truncated
		if req.OutputFormat == "json" {
			rows, err := seqkit.ParseTable(res.Stdout)
			if err != nil {
				return nil, err
			}
			resp.Rows = rows
		}
		return &pipeline.Result{
			Summary: map[string]any{
				"output_length": len(res.Stdout),
				"command":       req.Command,
			},
			OutputBytes: len(res.Stdout),
			Warnings:    h.truncated(res),
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

// HandleSeqkitCommandStream runs a command and streams stdout and stderr
// as Server-Sent Events, ending with a done or error event. Failures
// before the tool starts are ordinary JSON errors.
func (h *Handlers) HandleSeqkitCommandStream(w http.ResponseWriter, r *http.Request) {
	var req SeqkitCommandRequest
	call, err := h.commandCall(r, "/seqkit/command/stream", &req)
	if err != nil {
		h.fail(w, r, call, err)
		return
	}
	call.Params["stream"] = true

	stream := newSSEStream(w)
	if stream == nil {
		h.fail(w, r, call, fmt.Errorf("%w: streaming not supported by connection", pipeline.ErrInternal))
		return
	}

	started := false
	var res *seqkit.Result
	call.Run = func(ctx context.Context, text string, format pipeline.Format) (*pipeline.Result, error) {
		stream.start()
		started = true

		var err error
		res, err = h.seqkit.RunStreaming(ctx, req.Command, req.Args, text, format,
			stream.Writer("stdout"), stream.Writer("stderr"))
		if err != nil {
			return nil, err
		}
		return &pipeline.Result{
			Summary: map[string]any{
				"output_length": len(res.Stdout),
				"command":       req.Command,
			},
			OutputBytes: len(res.Stdout),
			Warnings:    h.truncated(res),
		}, nil
	}

	out := h.pipe.Execute(r.Context(), call)
	if !started {
		writeFailure(w, r, out)
		return
	}

	if out.Err != nil {
		data, _ := json.Marshal(failureBody(r, out))
		_ = stream.send("error", string(data))
		return
	}
	data, _ := json.Marshal(map[string]any{
		"success":           true,
		"exit_code":         res.ExitCode,
		"truncated":         res.Truncated,
		"execution_time_ms": out.ExecutionTimeMS(),
		"timestamp":         unixNow(),
	})
	_ = stream.send("done", string(data))
}
