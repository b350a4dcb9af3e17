package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"fastx-gateway/internal/audit"
	"fastx-gateway/internal/pipeline"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 1000
)

// parseLogQuery reads limit, operation and success_only from the query
// string. success_only=true keeps successes, false keeps failures.
func parseLogQuery(r *http.Request) (audit.Query, error) {
	q := audit.Query{Limit: defaultLogLimit}
	values := r.URL.Query()

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, pipeline.Invalidf("limit must be an integer, got %q", raw)
		}
		if n < 1 || n > maxLogLimit {
			return q, pipeline.Invalidf("limit must be between 1 and %d, got %d", maxLogLimit, n)
		}
		q.Limit = n
	}

	q.Operation = values.Get("operation")

	if raw := values.Get("success_only"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return q, pipeline.Invalidf("success_only must be true or false, got %q", raw)
		}
		q.Success = &b
	}
	return q, nil
}

func queryParams(r *http.Request) map[string]any {
	values := r.URL.Query()
	params := map[string]any{"limit": defaultLogLimit, "operation": nil, "success_only": nil}
	if v := values.Get("limit"); v != "" {
		params["limit"] = v
	}
	if v := values.Get("operation"); v != "" {
		params["operation"] = v
	}
	if v := values.Get("success_only"); v != "" {
		params["success_only"] = v
	}
	return params
}

func (h *Handlers) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	call := pipeline.Call{
		Operation: "get_logs",
		Endpoint:  "/logs",
		RequestID: RequestIDFromContext(r.Context()),
		Params:    queryParams(r),
	}

	q, err := parseLogQuery(r)
	if err != nil {
		h.fail(w, r, call, err)
		return
	}
	call.Params["limit"] = q.Limit
	if q.Success != nil {
		call.Params["success_only"] = *q.Success
	}

	var resp LogsResponse
	call.Run = func(context.Context, string, pipeline.Format) (*pipeline.Result, error) {
		log := h.pipe.Log()
		resp.TotalCount = log.Len()
		resp.Logs = log.Query(q)
		resp.FilteredCount = len(resp.Logs)
		return &pipeline.Result{Summary: map[string]any{
			"logs_returned": resp.FilteredCount,
			"total_logs":    resp.TotalCount,
		}}, nil
	}

	out := h.pipe.Execute(r.Context(), call)
	if out.Err != nil {
		writeFailure(w, r, out)
		return
	}
	resp.QueryTimeMS = out.ExecutionTimeMS()
	resp.Timestamp = unixNow()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleLogStats(w http.ResponseWriter, r *http.Request) {
	var resp LogStatsResponse
	call := pipeline.Call{
		Operation: "get_log_stats",
		Endpoint:  "/logs/stats",
		RequestID: RequestIDFromContext(r.Context()),
		Run: func(context.Context, string, pipeline.Format) (*pipeline.Result, error) {
			resp.Stats = h.pipe.Log().Stats()
			return &pipeline.Result{Summary: map[string]any{
				"total_operations": resp.Stats.TotalOperations,
				"success_rate":     resp.Stats.SuccessRate,
			}}, nil
		},
	}

	out := h.pipe.Execute(r.Context(), call)
	if out.Err != nil {
		writeFailure(w, r, out)
		return
	}
	resp.QueryTimeMS = out.ExecutionTimeMS()
	resp.Timestamp = unixNow()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleClearLogs(w http.ResponseWriter, r *http.Request) {
	cleared := 0
	call := pipeline.Call{
		Operation: "clear_logs",
		Endpoint:  "/logs/clear",
		RequestID: RequestIDFromContext(r.Context()),
		Run: func(context.Context, string, pipeline.Format) (*pipeline.Result, error) {
			cleared = h.pipe.Log().Clear()
			return &pipeline.Result{Summary: map[string]any{"logs_cleared": cleared}}, nil
		},
	}

	out := h.pipe.Execute(r.Context(), call)
	if out.Err != nil {
		writeFailure(w, r, out)
		return
	}
	writeJSON(w, http.StatusOK, ClearLogsResponse{
		Success:         true,
		Message:         fmt.Sprintf("Cleared %d log entries", cleared),
		ExecutionTimeMS: out.ExecutionTimeMS(),
		Timestamp:       unixNow(),
	})
}

func (h *Handlers) HandleLogOperations(w http.ResponseWriter, r *http.Request) {
	ops := h.pipe.Log().Operations()
	writeJSON(w, http.StatusOK, map[string]any{
		"available_operations":    ops,
		"total_unique_operations": len(ops),
		"description":             "List of all operation types that have been logged",
		"timestamp":               unixNow(),
	})
}

func (h *Handlers) HandleLogInfo(w http.ResponseWriter, r *http.Request) {
	log := h.pipe.Log()
	writeJSON(w, http.StatusOK, map[string]any{
		"logging_system":    "In-Memory Audit Logger",
		"max_logs":          log.Capacity(),
		"current_log_count": log.Len(),
		"archive_enabled":   h.db != nil,
		"features": []string{
			"Operation tracking",
			"Performance monitoring",
			"Error logging",
			"Parameter sanitization",
			"Statistical analysis",
		},
		"endpoints": []Endpoint{
			{Endpoint: "/logs", Method: http.MethodGet, Description: "Retrieve audit logs with filtering options"},
			{Endpoint: "/logs/stats", Method: http.MethodGet, Description: "Get aggregated statistics about operations"},
			{Endpoint: "/logs/clear", Method: http.MethodDelete, Description: "Clear all audit logs"},
			{Endpoint: "/logs/operations", Method: http.MethodGet, Description: "List all available operation types"},
		},
		"timestamp": unixNow(),
	})
}
