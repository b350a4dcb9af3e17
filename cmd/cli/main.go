package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fastx-gateway/internal/pipeline"
)

var (
	serverURL string
	apiKey    string
	useBase64 bool
	summary   bool
)

func main() {
	root := &cobra.Command{
		Use:          "fastx-cli",
		Short:        "CLI client for the FastX gateway",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "Server URL")
	root.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("FASTX_API_KEY"), "API key")
	root.PersistentFlags().BoolVar(&useBase64, "base64", false, "Send content base64-encoded")

	convertCmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a GenBank file to FASTA",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runConvert,
	}
	convertCmd.Flags().BoolVar(&summary, "summary", false, "Include a conversion summary")
	root.AddCommand(convertCmd)

	revcompCmd := &cobra.Command{
		Use:   "revcomp [file]",
		Short: "Reverse complement every sequence in a FASTA file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRevcomp,
	}
	revcompCmd.Flags().BoolVar(&summary, "summary", false, "Include a manipulation summary")
	root.AddCommand(revcompCmd)

	subseqCmd := &cobra.Command{
		Use:   "subseq [file]",
		Short: "Extract a 1-based inclusive range from one sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSubseq,
	}
	subseqCmd.Flags().String("id", "", "Sequence ID")
	subseqCmd.Flags().Int("start", 0, "Start position (1-based)")
	subseqCmd.Flags().Int("end", 0, "End position (inclusive)")
	_ = subseqCmd.MarkFlagRequired("id")
	_ = subseqCmd.MarkFlagRequired("start")
	_ = subseqCmd.MarkFlagRequired("end")
	root.AddCommand(subseqCmd)

	statsCmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "Run seqkit stats on a FASTA/FASTQ file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStats,
	}
	statsCmd.Flags().String("output-format", "json", "Output format (json, text)")
	root.AddCommand(statsCmd)

	seqkitCmd := &cobra.Command{
		Use:   "seqkit <command> [file]",
		Short: "Run an allow-listed seqkit command",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runSeqkit,
	}
	seqkitCmd.Flags().StringArrayP("arg", "a", nil, "Argument passed to seqkit (repeatable)")
	seqkitCmd.Flags().String("output-format", "text", "Output format (text, json)")
	root.AddCommand(seqkitCmd)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "List recent audit records",
		RunE:  runLogs,
	}
	logsCmd.Flags().Int("limit", 50, "Maximum records to return")
	logsCmd.Flags().String("operation", "", "Only records for this operation")
	logsCmd.Flags().Bool("success-only", false, "true keeps successes, false keeps failures; unset keeps both")
	root.AddCommand(logsCmd)

	root.AddCommand(&cobra.Command{
		Use:   "log-stats",
		Short: "Show aggregated audit statistics",
		RunE: func(_ *cobra.Command, _ []string) error {
			return call(http.MethodGet, "/logs/stats", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "clear-logs",
		Short: "Clear the audit log",
		RunE: func(_ *cobra.Command, _ []string) error {
			return call(http.MethodDelete, "/logs/clear", nil)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(_ *cobra.Command, _ []string) error {
			return call(http.MethodGet, "/health", nil)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// readContent reads the named file, or stdin when no file or "-" is given.
func readContent(args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
	}
	return string(data), nil
}

// contentPayload builds the shared content fields of every POST body.
func contentPayload(args []string) (map[string]any, error) {
	text, err := readContent(args)
	if err != nil {
		return nil, err
	}
	format := pipeline.InputString
	if useBase64 {
		format = pipeline.InputBase64
	}
	return map[string]any{
		"content":      pipeline.Encode(text, format),
		"input_format": string(format),
	}, nil
}

func runConvert(_ *cobra.Command, args []string) error {
	payload, err := contentPayload(args)
	if err != nil {
		return err
	}
	payload["include_summary"] = summary
	return call(http.MethodPost, "/convert/genbank-to-fasta", payload)
}

func runRevcomp(_ *cobra.Command, args []string) error {
	payload, err := contentPayload(args)
	if err != nil {
		return err
	}
	payload["include_summary"] = summary
	return call(http.MethodPost, "/manipulate/reverse-complement", payload)
}

func runSubseq(cmd *cobra.Command, args []string) error {
	payload, err := contentPayload(args)
	if err != nil {
		return err
	}
	id, _ := cmd.Flags().GetString("id")
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	payload["sequence_id"] = id
	payload["start"] = start
	payload["end"] = end
	return call(http.MethodPost, "/manipulate/extract-subsequence", payload)
}

func runStats(cmd *cobra.Command, args []string) error {
	payload, err := contentPayload(args)
	if err != nil {
		return err
	}
	payload["output_format"], _ = cmd.Flags().GetString("output-format")
	return call(http.MethodPost, "/seqkit/stats", payload)
}

func runSeqkit(cmd *cobra.Command, args []string) error {
	payload, err := contentPayload(args[1:])
	if err != nil {
		return err
	}
	payload["command"] = args[0]
	payload["args"], _ = cmd.Flags().GetStringArray("arg")
	payload["output_format"], _ = cmd.Flags().GetString("output-format")
	return call(http.MethodPost, "/seqkit/command", payload)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	q := url.Values{}
	limit, _ := cmd.Flags().GetInt("limit")
	q.Set("limit", strconv.Itoa(limit))
	if op, _ := cmd.Flags().GetString("operation"); op != "" {
		q.Set("operation", op)
	}
	if cmd.Flags().Changed("success-only") {
		v, _ := cmd.Flags().GetBool("success-only")
		q.Set("success_only", strconv.FormatBool(v))
	}
	return call(http.MethodGet, "/logs?"+q.Encode(), nil)
}

// call sends a request, pretty-prints the JSON response and fails on any
// non-2xx status.
func call(method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	formatted, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(formatted))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
