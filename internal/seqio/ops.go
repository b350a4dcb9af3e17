package seqio

import (
	"fmt"

	"github.com/biogo/biogo/seq/linear"
)

// ReverseComplement returns reverse-complemented copies of seqs in the same
// order. Names and descriptions are kept.
func ReverseComplement(seqs []*linear.Seq) []*linear.Seq {
	out := make([]*linear.Seq, len(seqs))
	for i, s := range seqs {
		c := NewSeq(s.Name(), s.Description(), []byte(Residues(s)))
		c.RevComp()
		out[i] = c
	}
	return out
}

// Find returns the first record named id.
func Find(seqs []*linear.Seq, id string) (*linear.Seq, error) {
	for _, s := range seqs {
		if s.Name() == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: sequence with ID %q not found in input", ErrRecordNotFound, id)
}

// Subsequence extracts the 1-based inclusive range [start, end] of s into a
// new record named <id>_subseq_<start>_<end>.
func Subsequence(s *linear.Seq, start, end int) (*linear.Seq, error) {
	if start < 1 || end < start || end > s.Len() {
		return nil, fmt.Errorf("%w: start=%d end=%d sequence_length=%d", ErrOutOfRange, start, end, s.Len())
	}

	residues := []byte(Residues(s)[start-1 : end])
	id := fmt.Sprintf("%s_subseq_%d_%d", s.Name(), start, end)
	desc := fmt.Sprintf("(subsequence %d-%d)", start, end)
	if s.Description() != "" {
		desc = s.Description() + " " + desc
	}
	return NewSeq(id, desc, residues), nil
}

// RecordInfo describes one record.
type RecordInfo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Length      int    `json:"length"`
}

// Summary describes a set of records.
type Summary struct {
	RecordCount int          `json:"record_count"`
	TotalLength int          `json:"total_length"`
	Records     []RecordInfo `json:"sequences"`
}

// Summarize reports counts and lengths for seqs.
func Summarize(seqs []*linear.Seq) Summary {
	sum := Summary{Records: make([]RecordInfo, 0, len(seqs))}
	for _, s := range seqs {
		sum.RecordCount++
		sum.TotalLength += s.Len()
		sum.Records = append(sum.Records, RecordInfo{
			ID:          s.Name(),
			Description: s.Description(),
			Length:      s.Len(),
		})
	}
	return sum
}

// IDs returns the record names in order.
func (s Summary) IDs() []string {
	ids := make([]string, len(s.Records))
	for i, r := range s.Records {
		ids[i] = r.ID
	}
	return ids
}
