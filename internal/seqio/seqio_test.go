package seqio

import (
	"strings"
	"testing"

	"github.com/biogo/biogo/seq/linear"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGenBank = `LOCUS       AB000001                  24 bp    DNA     linear   PRI 01-JAN-2000
DEFINITION  Homo sapiens test gene,
            complete cds.
ACCESSION   AB000001
VERSION     AB000001.1
FEATURES             Location/Qualifiers
     source          1..24
                     /organism="Homo sapiens"
ORIGIN
        1 atgcatgcat gcatgcatgc atgc
//
LOCUS       SEQ2                       8 bp    DNA     linear   PRI 01-JAN-2000
DEFINITION  Second record
ORIGIN
        1 ggggcccc
//
`

func TestReadFASTA(t *testing.T) {
	seqs, err := ReadFASTA(">seq1 first record\nATGC\nGGCC\n>seq2\nNNNN\n")
	require.NoError(t, err)
	require.Len(t, seqs, 2)

	assert.Equal(t, "seq1", seqs[0].Name())
	assert.Equal(t, "first record", seqs[0].Description())
	assert.Equal(t, "ATGCGGCC", Residues(seqs[0]))
	assert.Equal(t, 8, seqs[0].Len())
	assert.Equal(t, "seq2", seqs[1].Name())
}

func TestReadFASTA_NoRecords(t *testing.T) {
	_, err := ReadFASTA("")
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestWriteFASTA_Wraps(t *testing.T) {
	long := strings.Repeat("A", 130)
	out, err := WriteFASTA([]*linear.Seq{NewSeq("x", "desc", []byte(long))})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, ">x desc", lines[0])
	assert.Len(t, lines[1], LineWidth)
	assert.Len(t, lines[3], 10)
}

func TestReverseComplement(t *testing.T) {
	seqs, err := ReadFASTA(">seq1\nATGC")
	require.NoError(t, err)

	out, err := WriteFASTA(ReverseComplement(seqs))
	require.NoError(t, err)
	assert.Equal(t, ">seq1\nGCAT\n", out)
	assert.Equal(t, "ATGC", Residues(seqs[0]), "input is not modified")
}

func TestReverseComplement_MultiRecord(t *testing.T) {
	seqs, err := ReadFASTA(">a one\nAAAC\n>b\nGATTACA\n>c\nRYN-\n")
	require.NoError(t, err)

	rc := ReverseComplement(seqs)
	require.Len(t, rc, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rc[0].Name(), rc[1].Name(), rc[2].Name()})
	assert.Equal(t, "one", rc[0].Description())
	assert.Equal(t, "GTTT", Residues(rc[0]))
	assert.Equal(t, "TGTAATC", Residues(rc[1]))
	assert.Equal(t, "-NRY", Residues(rc[2]))

	twice := ReverseComplement(rc)
	for i := range seqs {
		assert.Equal(t, Residues(seqs[i]), Residues(twice[i]))
	}
}

func TestSubsequence(t *testing.T) {
	seqs, err := ReadFASTA(">seq1 test sequence\nATGCAGCTATTGGCCTAGG\n")
	require.NoError(t, err)

	target, err := Find(seqs, "seq1")
	require.NoError(t, err)

	sub, err := Subsequence(target, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, "AGCTAT", Residues(sub))
	assert.Equal(t, "seq1_subseq_5_10", sub.Name())
	assert.Equal(t, "test sequence (subsequence 5-10)", sub.Description())

	whole, err := Subsequence(target, 1, 19)
	require.NoError(t, err)
	assert.Equal(t, Residues(target), Residues(whole))

	_, err = Subsequence(target, 5, 20)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = Subsequence(target, 0, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestFind_Missing(t *testing.T) {
	seqs, err := ReadFASTA(">seq1\nATGC\n")
	require.NoError(t, err)

	_, err = Find(seqs, "seq9")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestSummarize(t *testing.T) {
	seqs, err := ReadFASTA(">a one\nAAAC\n>b\nGATTACA\n")
	require.NoError(t, err)

	sum := Summarize(seqs)
	assert.Equal(t, 2, sum.RecordCount)
	assert.Equal(t, 11, sum.TotalLength)
	assert.Equal(t, []string{"a", "b"}, sum.IDs())
	assert.Equal(t, RecordInfo{ID: "a", Description: "one", Length: 4}, sum.Records[0])
}

func TestReadGenBank(t *testing.T) {
	seqs, err := ReadGenBank(sampleGenBank)
	require.NoError(t, err)
	require.Len(t, seqs, 2)

	assert.Equal(t, "AB000001.1", seqs[0].Name())
	assert.Equal(t, "Homo sapiens test gene, complete cds", seqs[0].Description())
	assert.Equal(t, "ATGCATGCATGCATGCATGCATGC", Residues(seqs[0]))

	assert.Equal(t, "SEQ2", seqs[1].Name(), "falls back to LOCUS name")
	assert.Equal(t, "GGGGCCCC", Residues(seqs[1]))

	out, err := WriteFASTA(seqs)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, ">AB000001.1 Homo sapiens test gene, complete cds\nATGC"))
}

func TestReadGenBank_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing terminator", "LOCUS X 4 bp\nORIGIN\n 1 atgc\n"},
		{"no origin", "LOCUS X 4 bp\n//\n"},
		{"garbage before locus", "hello\nLOCUS X\nORIGIN\n//\n"},
		{"bad residue", "LOCUS X 4 bp\nORIGIN\n 1 at9c!\n//\n"},
		{"nested locus", "LOCUS X\nLOCUS Y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGenBank(tt.text)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}

	_, err := ReadGenBank("\n\n")
	assert.ErrorIs(t, err, ErrNoRecords)
}
