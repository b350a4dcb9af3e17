package seqkit

import (
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"fastx-gateway/internal/monitor"
)

const (
	MaxArgs      = 32
	MaxArgLength = 256
)

// Flag is one accepted seqkit option.
type Flag struct {
	Short      string `json:"short,omitempty"`
	Long       string `json:"long"`
	TakesValue bool   `json:"takes_value"`
}

// TableOutput describes when a command prints a tab-separated table led by
// a header line. Flags are long names.
type TableOutput struct {
	Requires []string `json:"requires,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
}

// Command is an allow-listed seqkit subcommand and the flags it accepts.
// Table is nil for commands that print sequences.
type Command struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Flags       []Flag       `json:"flags"`
	Table       *TableOutput `json:"table,omitempty"`
}

func (c Command) lookup(name string) (Flag, bool) {
	for _, f := range c.Flags {
		if name == "--"+f.Long || (f.Short != "" && name == "-"+f.Short) {
			return f, true
		}
	}
	return Flag{}, false
}

// forbiddenFlags redirect seqkit's input or output to paths the gateway
// does not control.
var forbiddenFlags = map[string]string{
	"-o":              "output is returned in the response",
	"--out-file":      "output is returned in the response",
	"-O":              "output is returned in the response",
	"--out-dir":       "output is returned in the response",
	"--infile-list":   "input is supplied by the request content",
	"--pattern-file":  "file arguments are not accepted",
	"--dup-seqs-file": "file arguments are not accepted",
	"--dup-num-file":  "file arguments are not accepted",
}

var globalFlags = []Flag{
	{Short: "j", Long: "threads", TakesValue: true},
	{Short: "w", Long: "line-width", TakesValue: true},
	{Short: "t", Long: "seq-type", TakesValue: true},
	{Long: "id-regexp", TakesValue: true},
	{Long: "id-ncbi"},
	{Long: "quiet"},
}

func defaultCommands() []Command {
	return []Command{
		{Name: "stats", Description: "simple statistics of FASTA/Q files", Flags: []Flag{
			{Short: "a", Long: "all"},
			{Short: "T", Long: "tabular"},
			{Short: "b", Long: "basename"},
			{Short: "G", Long: "gap-letters", TakesValue: true},
		}, Table: &TableOutput{Requires: []string{"tabular"}}},
		{Name: "head", Description: "print first N FASTA/Q records", Flags: []Flag{
			{Short: "n", Long: "number", TakesValue: true},
		}},
		{Name: "range", Description: "print FASTA/Q records in a range (start:end)", Flags: []Flag{
			{Short: "r", Long: "range", TakesValue: true},
		}},
		{Name: "sample", Description: "sample records by number or proportion", Flags: []Flag{
			{Short: "n", Long: "number", TakesValue: true},
			{Short: "p", Long: "proportion", TakesValue: true},
			{Short: "s", Long: "rand-seed", TakesValue: true},
			{Short: "2", Long: "two-pass"},
		}},
		{Name: "seq", Description: "transform sequences (reverse, complement, extract ID...)", Flags: []Flag{
			{Short: "n", Long: "name"},
			{Short: "s", Long: "seq"},
			{Short: "i", Long: "only-id"},
			{Short: "r", Long: "reverse"},
			{Short: "p", Long: "complement"},
			{Short: "l", Long: "lower-case"},
			{Short: "u", Long: "upper-case"},
			{Short: "m", Long: "min-len", TakesValue: true},
			{Short: "M", Long: "max-len", TakesValue: true},
			{Short: "g", Long: "remove-gaps"},
			{Short: "v", Long: "validate-seq"},
			{Short: "Q", Long: "min-qual", TakesValue: true},
			{Short: "R", Long: "max-qual", TakesValue: true},
		}},
		{Name: "subseq", Description: "get subsequences by region", Flags: []Flag{
			{Short: "r", Long: "region", TakesValue: true},
			{Short: "u", Long: "up-stream", TakesValue: true},
			{Short: "d", Long: "down-stream", TakesValue: true},
			{Short: "f", Long: "only-flank"},
		}},
		{Name: "grep", Description: "search sequences by ID/name/sequence/sequence motifs", Flags: []Flag{
			{Short: "p", Long: "pattern", TakesValue: true},
			{Short: "n", Long: "by-name"},
			{Short: "s", Long: "by-seq"},
			{Short: "r", Long: "use-regexp"},
			{Short: "i", Long: "ignore-case"},
			{Short: "v", Long: "invert-match"},
			{Short: "d", Long: "degenerate"},
			{Short: "m", Long: "max-mismatch", TakesValue: true},
			{Short: "P", Long: "only-positive-strand"},
		}},
		{Name: "locate", Description: "locate subsequences/motifs", Flags: []Flag{
			{Short: "p", Long: "pattern", TakesValue: true},
			{Short: "i", Long: "ignore-case"},
			{Short: "d", Long: "degenerate"},
			{Short: "m", Long: "max-mismatch", TakesValue: true},
			{Short: "P", Long: "only-positive-strand"},
			{Long: "bed"},
			{Long: "gtf"},
		}, Table: &TableOutput{Excludes: []string{"bed", "gtf"}}},
		{Name: "rmdup", Description: "remove duplicated sequences by ID/name/sequence", Flags: []Flag{
			{Short: "n", Long: "by-name"},
			{Short: "s", Long: "by-seq"},
			{Short: "i", Long: "ignore-case"},
		}},
		{Name: "sort", Description: "sort sequences by ID/name/sequence/length", Flags: []Flag{
			{Short: "n", Long: "by-name"},
			{Short: "s", Long: "by-seq"},
			{Short: "l", Long: "by-length"},
			{Short: "r", Long: "reverse"},
			{Short: "i", Long: "ignore-case"},
			{Short: "N", Long: "natural-order"},
		}},
		{Name: "shuffle", Description: "shuffle sequences", Flags: []Flag{
			{Short: "s", Long: "rand-seed", TakesValue: true},
		}},
		{Name: "sliding", Description: "extract subsequences in sliding windows", Flags: []Flag{
			{Short: "W", Long: "window", TakesValue: true},
			{Short: "s", Long: "step", TakesValue: true},
			{Short: "C", Long: "circular-genome"},
			{Short: "g", Long: "greedy"},
		}},
		{Name: "restart", Description: "reset start position for circular genome", Flags: []Flag{
			{Short: "i", Long: "new-start", TakesValue: true},
		}},
		{Name: "fx2tab", Description: "convert FASTA/Q to tabular format", Flags: []Flag{
			{Short: "n", Long: "name"},
			{Short: "i", Long: "only-id"},
			{Short: "l", Long: "length"},
			{Short: "g", Long: "gc"},
			{Short: "H", Long: "header-line"},
			{Short: "B", Long: "base-content", TakesValue: true},
			{Short: "q", Long: "avg-qual"},
		}, Table: &TableOutput{Requires: []string{"header-line"}}},
		{Name: "translate", Description: "translate DNA/RNA to protein sequence", Flags: []Flag{
			{Short: "f", Long: "frame", TakesValue: true},
			{Short: "T", Long: "transl-table", TakesValue: true},
			{Short: "M", Long: "init-codon-as-M"},
			{Short: "F", Long: "append-frame"},
			{Short: "x", Long: "trim"},
		}},
		{Name: "fq2fa", Description: "convert FASTQ to FASTA"},
	}
}

// Registry maps allow-listed command names to their flag tables.
type Registry struct {
	commands   map[string]Command
	inspector  *monitor.ArgInspector
	metrics    *monitor.Metrics
	maxThreads int
}

// NewRegistry creates a registry with every supported command. metrics may
// be nil.
func NewRegistry(inspector *monitor.ArgInspector, metrics *monitor.Metrics) *Registry {
	r := &Registry{
		commands:   make(map[string]Command),
		inspector:  inspector,
		metrics:    metrics,
		maxThreads: runtime.NumCPU(),
	}
	for _, c := range defaultCommands() {
		r.Register(c)
	}
	return r
}

// Register adds a command; global flags are appended to its table.
func (r *Registry) Register(c Command) {
	c.Flags = append(append([]Flag(nil), c.Flags...), globalFlags...)
	r.commands[c.Name] = c
}

// Get returns the command named name.
func (r *Registry) Get(name string) (Command, error) {
	c, ok := r.commands[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: unsupported command %q (supported: %s)",
			ErrInvalidCommand, name, strings.Join(r.Names(), ", "))
	}
	return c, nil
}

// Names returns the allow-listed command names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commands returns every command sorted by name.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, name := range r.Names() {
		out = append(out, r.commands[name])
	}
	return out
}

// Check rejects commands off the allow-list, flags outside the command's
// table, positional arguments and suspicious values.
func (r *Registry) Check(name string, args []string) error {
	cmd, err := r.Get(name)
	if err != nil {
		return err
	}
	if len(args) > MaxArgs {
		return fmt.Errorf("%w: %d arguments exceeds the limit of %d", ErrInvalidCommand, len(args), MaxArgs)
	}
	for i, a := range args {
		if len(a) > MaxArgLength {
			return fmt.Errorf("%w: argument %d exceeds %d characters", ErrInvalidCommand, i, MaxArgLength)
		}
	}

	if r.inspector != nil {
		if detections := r.inspector.Inspect(args); len(detections) > 0 {
			for _, d := range detections {
				if r.metrics != nil {
					r.metrics.RecordSecurityEvent(d.Pattern)
				}
			}
			d := detections[0]
			return fmt.Errorf("%w: argument %d rejected: %s", ErrInvalidCommand, d.Arg, strings.ToLower(d.Detail))
		}
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "" {
			return fmt.Errorf("%w: argument %d is empty", ErrInvalidCommand, i)
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
			return fmt.Errorf("%w: positional argument %q not allowed; input is supplied by the request content", ErrInvalidCommand, arg)
		}

		flagName, _, inline := strings.Cut(arg, "=")
		if reason, bad := forbiddenFlags[flagName]; bad {
			return fmt.Errorf("%w: flag %s not allowed: %s", ErrInvalidCommand, flagName, reason)
		}
		f, ok := cmd.lookup(flagName)
		if !ok {
			return fmt.Errorf("%w: flag %s not allowed for %s", ErrInvalidCommand, flagName, cmd.Name)
		}
		value, _ := strings.CutPrefix(arg, flagName+"=")
		switch {
		case f.TakesValue && !inline:
			if i+1 >= len(args) {
				return fmt.Errorf("%w: flag %s requires a value", ErrInvalidCommand, flagName)
			}
			i++
			value = args[i]
		case !f.TakesValue && inline:
			return fmt.Errorf("%w: flag %s does not take a value", ErrInvalidCommand, flagName)
		}
		if f.Long == "threads" {
			if err := r.checkThreads(value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) checkThreads(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > r.maxThreads {
		return fmt.Errorf("%w: --threads must be between 1 and %d, got %q", ErrInvalidCommand, r.maxThreads, value)
	}
	return nil
}

// CheckTabular rejects invocations whose output is not a headed
// tab-separated table. args must already have passed Check.
func (r *Registry) CheckTabular(name string, args []string) error {
	cmd, err := r.Get(name)
	if err != nil {
		return err
	}
	if cmd.Table == nil {
		return fmt.Errorf("%w: %s prints sequences, not a table; use output_format text", ErrInvalidCommand, name)
	}

	set := make(map[string]bool)
	for i := 0; i < len(args); i++ {
		flagName, _, inline := strings.Cut(args[i], "=")
		f, ok := cmd.lookup(flagName)
		if !ok {
			continue
		}
		set[f.Long] = true
		if f.TakesValue && !inline {
			i++
		}
	}

	if len(cmd.Table.Requires) > 0 && !anySet(set, cmd.Table.Requires) {
		return fmt.Errorf("%w: %s prints a headed table only with --%s",
			ErrInvalidCommand, name, strings.Join(cmd.Table.Requires, " or --"))
	}
	for _, ex := range cmd.Table.Excludes {
		if set[ex] {
			return fmt.Errorf("%w: %s --%s does not print a headed table", ErrInvalidCommand, name, ex)
		}
	}
	return nil
}

func anySet(set map[string]bool, names []string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}
