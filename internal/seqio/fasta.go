// Package seqio adapts the biogo sequence library to the gateway's
// operations: FASTA reading and writing, GenBank reading, reverse
// complement and subsequence extraction.
package seqio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
)

// LineWidth is the residue count per line in written FASTA.
const LineWidth = 60

var (
	ErrNoRecords       = errors.New("no sequence records found")
	ErrRecordNotFound  = errors.New("sequence not found")
	ErrOutOfRange      = errors.New("coordinates out of range")
	ErrMalformedRecord = errors.New("malformed record")
)

// Alphabet is the alphabet every parsed sequence uses: IUPAC nucleotide
// codes including ambiguity letters and gaps.
var Alphabet = alphabet.DNAredundant

// NewSeq builds a sequence in Alphabet.
func NewSeq(id, desc string, residues []byte) *linear.Seq {
	s := linear.NewSeq(id, alphabet.BytesToLetters(residues), Alphabet)
	s.Desc = desc
	return s
}

// ReadFASTA parses every record in text.
func ReadFASTA(text string) ([]*linear.Seq, error) {
	r := fasta.NewReader(strings.NewReader(normalizeNewlines(text)), linear.NewSeq("", nil, Alphabet))

	var seqs []*linear.Seq
	for {
		s, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: reading FASTA: %w", ErrMalformedRecord, err)
		}
		ls, ok := s.(*linear.Seq)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected sequence type %T", ErrMalformedRecord, s)
		}
		seqs = append(seqs, ls)
	}
	if len(seqs) == 0 {
		return nil, ErrNoRecords
	}
	return seqs, nil
}

// WriteFASTA renders seqs as FASTA wrapped at LineWidth.
func WriteFASTA(seqs []*linear.Seq) (string, error) {
	var buf bytes.Buffer
	w := fasta.NewWriter(&buf, LineWidth)
	for _, s := range seqs {
		if _, err := w.Write(s); err != nil {
			return "", fmt.Errorf("writing FASTA record %q: %w", s.Name(), err)
		}
	}
	return buf.String(), nil
}

// Residues returns the sequence letters as a string.
func Residues(s *linear.Seq) string {
	return string(alphabet.LettersToBytes(s.Seq))
}

func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
