package audit

import "time"

// Record is a single audited operation. Records are immutable once appended.
type Record struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	Operation       string         `json:"operation"`
	Endpoint        string         `json:"endpoint"`
	Parameters      map[string]any `json:"parameters"`
	Success         bool           `json:"success"`
	ExecutionTimeMS float64        `json:"execution_time_ms"`
	ResultSummary   map[string]any `json:"result_summary"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	RequestID       string         `json:"request_id,omitempty"`
}

// Query selects records from the log. Zero values mean "no filter".
type Query struct {
	Limit     int
	Operation string
	// Success keeps only successful records when true, only failed ones
	// when false, and everything when nil.
	Success *bool
}

// Stats aggregates the whole log.
type Stats struct {
	TotalOperations      int            `json:"total_operations"`
	SuccessfulOperations int            `json:"successful_operations"`
	FailedOperations     int            `json:"failed_operations"`
	SuccessRate          float64        `json:"success_rate"`
	OperationsByType     map[string]int `json:"operations_by_type"`
	AverageExecutionMS   float64        `json:"average_execution_time_ms"`
}

// Sink receives a copy of every appended record. Implementations must not
// block the caller.
type Sink interface {
	Log(rec Record)
}

// SanitizeParameters returns a copy of params with raw payload fields
// replaced by their length, so audit records never carry user sequences.
func SanitizeParameters(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if k == "content" {
			if s, ok := v.(string); ok {
				out["content_length"] = len(s)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r Record) clone() Record {
	r.Parameters = cloneMap(r.Parameters)
	r.ResultSummary = cloneMap(r.ResultSummary)
	if r.Warnings != nil {
		r.Warnings = append([]string(nil), r.Warnings...)
	}
	return r
}
