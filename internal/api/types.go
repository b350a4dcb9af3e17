package api

import (
	"fastx-gateway/internal/audit"
	"fastx-gateway/internal/pipeline"
	"fastx-gateway/internal/seqio"
)

// ContentRequest carries sequence content in every POST body.
type ContentRequest struct {
	Content     string               `json:"content"`
	InputFormat pipeline.InputFormat `json:"input_format,omitempty"` // string (default) or base64
}

// GenBankToFastaRequest converts GenBank content to FASTA.
type GenBankToFastaRequest struct {
	ContentRequest
	IncludeSummary bool `json:"include_summary,omitempty"`
}

type ConversionSummary struct {
	RecordCount int      `json:"record_count"`
	TotalLength int      `json:"total_length"`
	RecordIDs   []string `json:"record_ids"`
}

type GenBankToFastaResponse struct {
	FastaContent      string             `json:"fasta_content"`
	Success           bool               `json:"success"`
	ConversionSummary *ConversionSummary `json:"conversion_summary,omitempty"`
	ExecutionTimeMS   float64            `json:"execution_time_ms"`
	Timestamp         float64            `json:"timestamp"`
}

type ReverseComplementRequest struct {
	ContentRequest
	IncludeSummary bool `json:"include_summary,omitempty"`
}

type ReverseComplementResponse struct {
	FastaContent        string         `json:"fasta_content"`
	Success             bool           `json:"success"`
	ManipulationSummary *seqio.Summary `json:"manipulation_summary,omitempty"`
	ExecutionTimeMS     float64        `json:"execution_time_ms"`
	Timestamp           float64        `json:"timestamp"`
}

// SubsequenceRequest selects the 1-based inclusive range [Start, End] of
// the record named SequenceID.
type SubsequenceRequest struct {
	ContentRequest
	SequenceID string `json:"sequence_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

type SubsequenceInfo struct {
	SequenceID string `json:"sequence_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Length     int    `json:"length"`
}

type SubsequenceResponse struct {
	FastaContent    string          `json:"fasta_content"`
	Success         bool            `json:"success"`
	SubsequenceInfo SubsequenceInfo `json:"subsequence_info"`
	ExecutionTimeMS float64         `json:"execution_time_ms"`
	Timestamp       float64         `json:"timestamp"`
}

type SeqkitStatsRequest struct {
	ContentRequest
	OutputFormat string `json:"output_format,omitempty"` // json (default) or text
}

// SeqkitStatsResponse holds Statistics for json output and Output for text.
type SeqkitStatsResponse struct {
	Statistics      map[string]string `json:"statistics,omitempty"`
	Output          string            `json:"output,omitempty"`
	Success         bool              `json:"success"`
	ExecutionTimeMS float64           `json:"execution_time_ms"`
	Timestamp       float64           `json:"timestamp"`
}

type SeqkitCommandRequest struct {
	ContentRequest
	Command      string   `json:"command"`
	Args         []string `json:"args,omitempty"`
	OutputFormat string   `json:"output_format,omitempty"` // text (default) or json
}

// SeqkitCommandResponse always carries the raw output. Rows is set when
// json output was requested.
type SeqkitCommandResponse struct {
	Output          string              `json:"output"`
	Rows            []map[string]string `json:"rows,omitempty"`
	Truncated       bool                `json:"truncated,omitempty"`
	Success         bool                `json:"success"`
	ExecutionTimeMS float64             `json:"execution_time_ms"`
	Timestamp       float64             `json:"timestamp"`
}

type LogsResponse struct {
	Logs          []audit.Record `json:"logs"`
	TotalCount    int            `json:"total_count"`
	FilteredCount int            `json:"filtered_count"`
	QueryTimeMS   float64        `json:"query_time_ms"`
	Timestamp     float64        `json:"timestamp"`
}

type LogStatsResponse struct {
	Stats       audit.Stats `json:"stats"`
	QueryTimeMS float64     `json:"query_time_ms"`
	Timestamp   float64     `json:"timestamp"`
}

type ClearLogsResponse struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	ExecutionTimeMS float64 `json:"execution_time_ms"`
	Timestamp       float64 `json:"timestamp"`
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error      string  `json:"error"`
	StatusCode int     `json:"status_code"`
	Timestamp  float64 `json:"timestamp"`
	Code       string  `json:"code"`
	RequestID  string  `json:"request_id"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status        string          `json:"status"`
	Timestamp     float64         `json:"timestamp"`
	Services      map[string]bool `json:"services"`
	SeqkitBackend string          `json:"seqkit_backend"`
	BreakerState  string          `json:"breaker_state"`
	Uptime        string          `json:"uptime"`
}

// Endpoint describes one route in info listings.
type Endpoint struct {
	Endpoint    string `json:"endpoint"`
	Method      string `json:"method,omitempty"`
	Description string `json:"description"`
}
