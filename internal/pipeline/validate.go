package pipeline

import (
	"fmt"
	"strings"
)

// Format is the sequence format an operation expects in its content.
type Format string

const (
	FormatNone    Format = ""
	FormatFASTA   Format = "fasta"
	FormatFASTQ   Format = "fastq"
	FormatFASTX   Format = "fastx" // FASTA or FASTQ, detected from the first record
	FormatGenBank Format = "genbank"
)

const (
	maxSequenceIDLen = 255
	invalidIDChars   = `<>:"/\|?*`
)

// iupac reports whether b is an IUPAC nucleotide code or gap.
func iupac(b byte) bool {
	switch b | 0x20 { // fold ASCII letters to lower case
	case 'a', 't', 'c', 'g', 'r', 'y', 's', 'w', 'k', 'm', 'b', 'd', 'h', 'v', 'n':
		return true
	}
	return b == '-'
}

func validLetters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !iupac(s[i]) {
			return false
		}
	}
	return true
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(strings.TrimSpace(text), "\r\n", "\n")
	return strings.Split(text, "\n")
}

// ValidateFormat checks text against f and returns the concrete format
// (FASTX resolves to FASTA or FASTQ).
func ValidateFormat(text string, f Format) (Format, error) {
	switch f {
	case FormatNone:
		return FormatNone, nil
	case FormatFASTA:
		return FormatFASTA, ValidateFASTA(text)
	case FormatFASTQ:
		return FormatFASTQ, ValidateFASTQ(text)
	case FormatGenBank:
		return FormatGenBank, ValidateGenBank(text)
	case FormatFASTX:
		detected := DetectFormat(text)
		switch detected {
		case FormatFASTA:
			return detected, ValidateFASTA(text)
		case FormatFASTQ:
			return detected, ValidateFASTQ(text)
		}
		if strings.TrimSpace(text) == "" {
			return FormatNone, Invalidf("empty content provided")
		}
		return FormatNone, Invalidf("content must be FASTA (starting with '>') or FASTQ (starting with '@')")
	default:
		return FormatNone, fmt.Errorf("%w: unknown format %q", ErrInternal, f)
	}
}

// DetectFormat guesses FASTA or FASTQ from the first non-blank character.
func DetectFormat(text string) Format {
	t := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(t, ">"):
		return FormatFASTA
	case strings.HasPrefix(t, "@"):
		return FormatFASTQ
	default:
		return FormatNone
	}
}

func ValidateFASTA(text string) error {
	if strings.TrimSpace(text) == "" {
		return Invalidf("empty content provided")
	}
	lines := splitLines(text)
	if !strings.HasPrefix(lines[0], ">") {
		return Invalidf("FASTA content must start with a header line (>)")
	}

	hasSequence := false
	for i, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		if !validLetters(line) {
			return Invalidf("line %d: invalid sequence characters found", i+2)
		}
		hasSequence = true
	}
	if !hasSequence {
		return Invalidf("no valid sequence data found in FASTA content")
	}
	return nil
}

func ValidateFASTQ(text string) error {
	if strings.TrimSpace(text) == "" {
		return Invalidf("empty content provided")
	}
	lines := splitLines(text)
	if len(lines) < 4 {
		return Invalidf("FASTQ content must have at least 4 lines per record")
	}
	if len(lines)%4 != 0 {
		return Invalidf("FASTQ content must have complete 4-line records")
	}

	for i := 0; i < len(lines); i += 4 {
		if !strings.HasPrefix(lines[i], "@") {
			return Invalidf("line %d: FASTQ header must start with '@'", i+1)
		}
		if !strings.HasPrefix(lines[i+2], "+") {
			return Invalidf("line %d: FASTQ quality header must start with '+'", i+3)
		}
		seq := strings.TrimSpace(lines[i+1])
		qual := strings.TrimSpace(lines[i+3])
		if len(seq) != len(qual) {
			return Invalidf("record starting at line %d: sequence and quality lengths don't match", i+1)
		}
		if !validLetters(seq) {
			return Invalidf("line %d: invalid sequence characters found", i+2)
		}
	}
	return nil
}

func ValidateGenBank(text string) error {
	if strings.TrimSpace(text) == "" {
		return Invalidf("empty content provided")
	}
	upper := strings.ToUpper(text)
	if !strings.Contains(upper, "LOCUS") {
		return Invalidf("GenBank content must contain LOCUS line")
	}
	if !strings.Contains(upper, "ORIGIN") {
		return Invalidf("GenBank content must contain ORIGIN section")
	}
	if !strings.Contains(text, "//") {
		return Invalidf("GenBank content must end with '//'")
	}
	return nil
}

// ValidateSequenceID trims id and checks it is usable as a record name.
func ValidateSequenceID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", Invalidf("sequence ID cannot be empty")
	}
	if len(id) > maxSequenceIDLen {
		return "", Invalidf("sequence ID cannot exceed %d characters", maxSequenceIDLen)
	}
	if strings.ContainsAny(id, invalidIDChars) {
		return "", Invalidf("sequence ID contains invalid characters")
	}
	return id, nil
}

// ValidateCoordinates checks a 1-based inclusive range. A length below zero
// skips the upper-bound check.
func ValidateCoordinates(start, end, length int) error {
	if start < 1 {
		return Invalidf("start coordinate must be >= 1 (1-based), got %d", start)
	}
	if end <= start {
		return Invalidf("end coordinate (%d) must be greater than start coordinate (%d)", end, start)
	}
	if length >= 0 && end > length {
		return Invalidf("end coordinate (%d) exceeds sequence length (%d)", end, length)
	}
	return nil
}

func ValidateOutputFormat(f string) error {
	switch f {
	case "json", "text":
		return nil
	default:
		return Invalidf("invalid output format %q, must be one of: json, text", f)
	}
}

// Limits bounds request content.
type Limits struct {
	MaxContentBytes int64
	// Enforce rejects oversized content. Otherwise it is accepted with a warning.
	Enforce bool
}

// CheckSize applies l to decoded text. A non-empty warning is returned for
// oversized content that is let through.
func (l Limits) CheckSize(text string) (string, error) {
	if l.MaxContentBytes <= 0 || int64(len(text)) <= l.MaxContentBytes {
		return "", nil
	}
	msg := fmt.Sprintf("content size (%d bytes) exceeds maximum allowed size (%d bytes)", len(text), l.MaxContentBytes)
	if l.Enforce {
		return "", Invalidf("%s", msg)
	}
	return msg, nil
}
