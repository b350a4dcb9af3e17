package seqio

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/biogo/biogo/seq/linear"
)

const maxGenBankLine = 1 << 20

// ReadGenBank extracts name, definition and sequence from every record in
// text. Feature tables are skipped. The record name is the VERSION
// accession, falling back to ACCESSION and then the LOCUS name.
func ReadGenBank(text string) ([]*linear.Seq, error) {
	sc := bufio.NewScanner(strings.NewReader(normalizeNewlines(text)))
	sc.Buffer(make([]byte, 0, 64*1024), maxGenBankLine)

	var (
		seqs    []*linear.Seq
		rec     *gbRecord
		lineNo  int
		section string
	)

	for sc.Scan() {
		lineNo++
		line := sc.Text()
		keyword, rest := splitKeyword(line)

		if keyword == "LOCUS" {
			if rec != nil {
				return nil, fmt.Errorf("%w: line %d: LOCUS before end of previous record", ErrMalformedRecord, lineNo)
			}
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				return nil, fmt.Errorf("%w: line %d: LOCUS line has no name", ErrMalformedRecord, lineNo)
			}
			rec = &gbRecord{locus: fields[0]}
			section = keyword
			continue
		}
		if rec == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: content outside of a LOCUS record", ErrMalformedRecord, lineNo)
		}

		if strings.HasPrefix(line, "//") {
			if !rec.inOrigin {
				return nil, fmt.Errorf("%w: record %q ends without an ORIGIN section", ErrMalformedRecord, rec.locus)
			}
			seqs = append(seqs, rec.seq())
			rec, section = nil, ""
			continue
		}

		if rec.inOrigin {
			for _, f := range strings.Fields(line) {
				if isDigits(f) {
					continue
				}
				for i := 0; i < len(f); i++ {
					if !isLetter(f[i]) {
						return nil, fmt.Errorf("%w: line %d: invalid residue %q in ORIGIN", ErrMalformedRecord, lineNo, f[i])
					}
				}
				rec.residues.WriteString(strings.ToUpper(f))
			}
			continue
		}

		switch keyword {
		case "":
			// Continuation of the previous keyword.
			if section == "DEFINITION" {
				rec.definition = append(rec.definition, strings.TrimSpace(line))
			}
		case "DEFINITION":
			section = keyword
			rec.definition = append(rec.definition, strings.TrimSpace(rest))
		case "ACCESSION":
			section = keyword
			if f := strings.Fields(rest); len(f) > 0 {
				rec.accession = f[0]
			}
		case "VERSION":
			section = keyword
			if f := strings.Fields(rest); len(f) > 0 {
				rec.version = f[0]
			}
		case "ORIGIN":
			section = keyword
			rec.inOrigin = true
		default:
			section = keyword
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanning GenBank: %w", ErrMalformedRecord, err)
	}
	if rec != nil {
		return nil, fmt.Errorf("%w: record %q is missing its '//' terminator", ErrMalformedRecord, rec.locus)
	}
	if len(seqs) == 0 {
		return nil, ErrNoRecords
	}
	return seqs, nil
}

type gbRecord struct {
	locus      string
	accession  string
	version    string
	definition []string
	residues   strings.Builder
	inOrigin   bool
}

func (r *gbRecord) seq() *linear.Seq {
	id := r.version
	if id == "" {
		id = r.accession
	}
	if id == "" {
		id = r.locus
	}
	desc := strings.TrimSuffix(strings.Join(r.definition, " "), ".")
	return NewSeq(id, desc, []byte(r.residues.String()))
}

// splitKeyword splits a GenBank line into its column-0 keyword and the rest.
// Indented lines (continuations, features) have an empty keyword.
func splitKeyword(line string) (string, string) {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return "", line
	}
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], line[i:]
	}
	return line, ""
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '-' || b == '*'
}
