package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFASTA(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"single record", ">seq1\nATGC", ""},
		{"multi record lowercase", ">a desc\natgc\n>b\nNNRY-\n", ""},
		{"crlf", ">a\r\nATGC\r\n", ""},
		{"empty", "   \n", "empty content"},
		{"no header", "ATGC\n", "must start with a header"},
		{"bad letters", ">a\nATGX\n", "invalid sequence characters"},
		{"header only", ">a\n>b\n", "no valid sequence data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFASTA(tt.text)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, KindValidation, Classify(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateFASTQ(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"two records", "@r1\nACGT\n+\nIIII\n@r2\nGG\n+r2\n##\n", ""},
		{"too short", "@r1\nACGT\n+\n", "at least 4 lines"},
		{"incomplete", "@r1\nACGT\n+\nIIII\n@r2\n", "complete 4-line records"},
		{"bad header", "r1\nACGT\n+\nIIII\n", "must start with '@'"},
		{"bad separator", "@r1\nACGT\n-\nIIII\n", "must start with '+'"},
		{"length mismatch", "@r1\nACGT\n+\nIII\n", "lengths don't match"},
		{"bad letters", "@r1\nACGZ\n+\nIIII\n", "invalid sequence characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFASTQ(tt.text)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateGenBank(t *testing.T) {
	good := "LOCUS       AB000001   8 bp    DNA\nORIGIN\n        1 atgcatgc\n//\n"
	assert.NoError(t, ValidateGenBank(good))
	assert.ErrorContains(t, ValidateGenBank("ORIGIN\n//"), "LOCUS")
	assert.ErrorContains(t, ValidateGenBank("LOCUS x\n//"), "ORIGIN")
	assert.ErrorContains(t, ValidateGenBank("LOCUS x\nORIGIN\n"), "//")
}

func TestValidateFormat_FASTX(t *testing.T) {
	f, err := ValidateFormat(">a\nATGC\n", FormatFASTX)
	require.NoError(t, err)
	assert.Equal(t, FormatFASTA, f)

	f, err = ValidateFormat("@r\nAT\n+\nII\n", FormatFASTX)
	require.NoError(t, err)
	assert.Equal(t, FormatFASTQ, f)

	_, err = ValidateFormat("LOCUS x", FormatFASTX)
	assert.Equal(t, KindValidation, Classify(err))

	f, err = ValidateFormat("", FormatNone)
	require.NoError(t, err)
	assert.Equal(t, FormatNone, f)
}

func TestValidateSequenceID(t *testing.T) {
	id, err := ValidateSequenceID("  seq1  ")
	require.NoError(t, err)
	assert.Equal(t, "seq1", id)

	for _, bad := range []string{"", "   ", "a/b", "a|b", "x?", strings.Repeat("a", 256)} {
		_, err := ValidateSequenceID(bad)
		assert.Error(t, err, "id %q", bad)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name              string
		start, end, length int
		ok                bool
	}{
		{"inside", 5, 10, 19, true},
		{"whole sequence", 1, 19, 19, true},
		{"start zero", 0, 10, 19, false},
		{"start equals end", 5, 5, 19, false},
		{"start after end", 10, 5, 19, false},
		{"end past length", 5, 20, 19, false},
		{"unknown length", 5, 1000, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.start, tt.end, tt.length)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, KindValidation, Classify(err))
			}
		})
	}
}

func TestValidateOutputFormat(t *testing.T) {
	assert.NoError(t, ValidateOutputFormat("json"))
	assert.NoError(t, ValidateOutputFormat("text"))
	assert.Error(t, ValidateOutputFormat("xml"))
}

func TestLimits_CheckSize(t *testing.T) {
	soft := Limits{MaxContentBytes: 4}
	warn, err := soft.CheckSize("ATGCA")
	require.NoError(t, err)
	assert.Contains(t, warn, "exceeds maximum allowed size")

	warn, err = soft.CheckSize("ATGC")
	require.NoError(t, err)
	assert.Empty(t, warn)

	hard := Limits{MaxContentBytes: 4, Enforce: true}
	_, err = hard.CheckSize("ATGCA")
	assert.Equal(t, KindValidation, Classify(err))
}
