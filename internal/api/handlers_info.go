package api

import (
	"net/http"
	"time"
)

const (
	serviceName        = "FastX-MCP Server"
	serviceDescription = "MCP Server for FASTA/FASTQ manipulation and file conversion"
)

func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     serviceName,
		"version":     h.cfg.MCP.ServerVersion,
		"description": serviceDescription,
		"endpoints": map[string]string{
			"convert":    "/convert/genbank-to-fasta",
			"manipulate": "/manipulate/reverse-complement",
			"seqkit":     "/seqkit/stats",
			"logs":       "/logs",
			"mcp":        "/mcp/tools",
			"openapi":    "/openapi.yaml",
		},
		"timestamp": unixNow(),
	})
}

func (h *Handlers) HandleConvertFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"supported_conversions": []map[string]string{{
			"from":        "genbank",
			"to":          "fasta",
			"endpoint":    "/convert/genbank-to-fasta",
			"description": "Convert GenBank format to FASTA format",
		}},
		"input_formats": []string{"string", "base64"},
		"features": []string{
			"Conversion summary statistics",
			"Multiple record support",
			"Error handling and validation",
		},
		"timestamp": unixNow(),
	})
}

func (h *Handlers) HandleManipulateOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"supported_operations": []map[string]string{
			{
				"operation":    "reverse-complement",
				"endpoint":     "/manipulate/reverse-complement",
				"description":  "Generate reverse complement of all sequences in FASTA file",
				"input_format": "FASTA",
			},
			{
				"operation":    "extract-subsequence",
				"endpoint":     "/manipulate/extract-subsequence",
				"description":  "Extract subsequence by 1-based inclusive coordinates from a specific sequence",
				"input_format": "FASTA",
			},
		},
		"input_formats": []string{"string", "base64"},
		"features": []string{
			"Manipulation summary statistics",
			"Multiple sequence support",
			"Coordinate-based extraction",
			"Error handling and validation",
		},
		"timestamp": unixNow(),
	})
}

func (h *Handlers) HandleSeqkitInfo(w http.ResponseWriter, r *http.Request) {
	version, err := h.seqkit.Version(r.Context())
	var versionOut any
	if err == nil {
		versionOut = version
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"seqkit_available":   err == nil,
		"seqkit_version":     versionOut,
		"backend":            h.seqkit.BackendName(),
		"breaker_state":      h.seqkit.BreakerState(),
		"active_runs":        h.seqkit.ActiveRuns(),
		"supported_commands": h.seqkit.Registry().Names(),
		"commands":           h.seqkit.Registry().Commands(),
		"endpoints": []Endpoint{
			{Endpoint: "/seqkit/stats", Method: http.MethodPost, Description: "Generate FASTQ/FASTA statistics using seqkit stats"},
			{Endpoint: "/seqkit/command", Method: http.MethodPost, Description: "Run an allow-listed seqkit command"},
			{Endpoint: "/seqkit/command/stream", Method: http.MethodPost, Description: "Run an allow-listed seqkit command, streaming output as Server-Sent Events"},
		},
		"timestamp": unixNow(),
	})
}

// HandleHealth reports degraded when seqkit cannot be run, and fails only
// when a configured database is unreachable.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	seqkitOK := h.seqkit.Available(r.Context()) == nil

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: unixNow(),
		Services: map[string]bool{
			"sequence_library": true,
			"seqkit":           seqkitOK,
		},
		SeqkitBackend: h.seqkit.BackendName(),
		BreakerState:  h.seqkit.BreakerState(),
		Uptime:        time.Since(h.startTime).Round(time.Second).String(),
	}
	if !seqkitOK {
		resp.Status = "degraded"
	}

	status := http.StatusOK
	if h.db != nil {
		dbOK := h.db.Healthy(r.Context())
		resp.Services["database"] = dbOK
		if !dbOK {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, resp)
}
