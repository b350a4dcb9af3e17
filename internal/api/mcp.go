package api

import (
	_ "embed"
	"fmt"
	"net/http"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

type openAPISpec struct {
	Paths      map[string]map[string]any `yaml:"paths"`
	Components struct {
		Schemas map[string]any `yaml:"schemas"`
	} `yaml:"components"`
}

// Tool is an MCP tool descriptor.
type Tool struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Method       string   `json:"method"`
	Path         string   `json:"path"`
	InputSchema  any      `json:"input_schema"`
	OutputSchema any      `json:"output_schema"`
	Tags         []string `json:"tags"`
	needsSeqkit  bool
}

type toolRegistry struct {
	tools []Tool
}

var toolDefinitions = []struct {
	tool          Tool
	input, output string
}{
	{
		tool: Tool{
			Name:        "genbank_to_fasta",
			Description: "Convert GenBank format files to FASTA format with optional summary statistics",
			Method:      http.MethodPost,
			Path:        "/convert/genbank-to-fasta",
			Tags:        []string{"conversion", "genbank", "fasta"},
		},
		input: "GenBankToFastaRequest", output: "GenBankToFastaResponse",
	},
	{
		tool: Tool{
			Name:        "reverse_complement",
			Description: "Generate reverse complement of all sequences in a FASTA file",
			Method:      http.MethodPost,
			Path:        "/manipulate/reverse-complement",
			Tags:        []string{"manipulation", "fasta", "reverse-complement"},
		},
		input: "ReverseComplementRequest", output: "ReverseComplementResponse",
	},
	{
		tool: Tool{
			Name:        "extract_subsequence",
			Description: "Extract subsequence by 1-based inclusive coordinates from a specific sequence in a FASTA file",
			Method:      http.MethodPost,
			Path:        "/manipulate/extract-subsequence",
			Tags:        []string{"manipulation", "fasta", "subsequence"},
		},
		input: "SubsequenceRequest", output: "SubsequenceResponse",
	},
	{
		tool: Tool{
			Name:        "seqkit_stats",
			Description: "Generate FASTQ/FASTA statistics using seqkit stats",
			Method:      http.MethodPost,
			Path:        "/seqkit/stats",
			Tags:        []string{"seqkit", "statistics", "fastq"},
			needsSeqkit: true,
		},
		input: "SeqkitStatsRequest", output: "SeqkitStatsResponse",
	},
	{
		tool: Tool{
			Name:        "seqkit_command",
			Description: "Run allow-listed seqkit commands on FASTQ/FASTA content",
			Method:      http.MethodPost,
			Path:        "/seqkit/command",
			Tags:        []string{"seqkit", "command", "fastq"},
			needsSeqkit: true,
		},
		input: "SeqkitCommandRequest", output: "SeqkitCommandResponse",
	},
}

// newToolRegistry builds tool descriptors with schemas taken from the
// embedded OpenAPI document.
func newToolRegistry() (*toolRegistry, error) {
	var spec openAPISpec
	if err := yaml.Unmarshal(openAPIDocument, &spec); err != nil {
		return nil, fmt.Errorf("parsing embedded OpenAPI document: %w", err)
	}

	reg := &toolRegistry{}
	for _, def := range toolDefinitions {
		t := def.tool
		if _, ok := spec.Paths[t.Path]; !ok {
			return nil, fmt.Errorf("tool %s: path %s missing from OpenAPI document", t.Name, t.Path)
		}
		in, ok := spec.Components.Schemas[def.input]
		if !ok {
			return nil, fmt.Errorf("tool %s: schema %s missing from OpenAPI document", t.Name, def.input)
		}
		out, ok := spec.Components.Schemas[def.output]
		if !ok {
			return nil, fmt.Errorf("tool %s: schema %s missing from OpenAPI document", t.Name, def.output)
		}
		t.InputSchema, t.OutputSchema = in, out
		reg.tools = append(reg.tools, t)
	}
	return reg, nil
}

func (tr *toolRegistry) Tools() []Tool {
	return tr.tools
}

func (tr *toolRegistry) countTagged(tag string) int {
	n := 0
	for _, t := range tr.tools {
		if slices.Contains(t.Tags, tag) {
			n++
		}
	}
	return n
}

func (tr *toolRegistry) summary() map[string]any {
	return map[string]any{
		"total_tools": len(tr.tools),
		"tools_by_category": map[string]int{
			"conversion":   tr.countTagged("conversion"),
			"manipulation": tr.countTagged("manipulation"),
			"seqkit":       tr.countTagged("seqkit"),
		},
		"supported_formats": map[string][]string{
			"input":          {"string", "base64"},
			"sequence_types": {"FASTA", "FASTQ", "GenBank"},
		},
	}
}

func generatedAt() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (h *Handlers) HandleMCPTools(w http.ResponseWriter, r *http.Request) {
	tools := h.tools.Tools()
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":        tools,
		"count":        len(tools),
		"generated_at": generatedAt(),
	})
}

func (h *Handlers) HandleMCPManifest(w http.ResponseWriter, r *http.Request) {
	mcp := h.cfg.MCP
	writeJSON(w, http.StatusOK, map[string]any{
		"protocol_version": mcp.ProtocolVersion,
		"server_version":   mcp.ServerVersion,
		"server_name":      mcp.ServerName,
		"description":      serviceDescription,
		"features":         mcp.Features,
		"capabilities": map[string]bool{
			"tools":              true,
			"logging":            true,
			"seqkit_integration": h.seqkit.Available(r.Context()) == nil,
		},
		"tools_summary": h.tools.summary(),
		"generated_at":  generatedAt(),
	})
}

func (h *Handlers) HandleMCPStatus(w http.ResponseWriter, r *http.Request) {
	seqkitOK := h.seqkit.Available(r.Context()) == nil

	total, disabled := len(h.tools.Tools()), 0
	if !seqkitOK {
		for _, t := range h.tools.Tools() {
			if t.needsSeqkit {
				disabled++
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"timestamp":      generatedAt(),
		"uptime_seconds": time.Since(h.startTime).Seconds(),
		"services": map[string]bool{
			"sequence_library": true,
			"seqkit":           seqkitOK,
			"http":             true,
		},
		"tools": map[string]int{
			"total":     total,
			"available": total - disabled,
			"disabled":  disabled,
		},
		"system": map[string]string{
			"protocol_version": h.cfg.MCP.ProtocolVersion,
			"server_version":   h.cfg.MCP.ServerVersion,
		},
	})
}

func (h *Handlers) HandleMCPInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":             serviceName,
		"description":      serviceDescription,
		"version":          h.cfg.MCP.ServerVersion,
		"protocol_version": h.cfg.MCP.ProtocolVersion,
		"endpoints": map[string]string{
			"tools":    "/mcp/tools",
			"manifest": "/mcp/manifest",
			"status":   "/mcp/status",
			"info":     "/mcp/info",
		},
		"documentation": map[string]string{
			"openapi": "/openapi.yaml",
		},
	})
}

func (h *Handlers) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}
