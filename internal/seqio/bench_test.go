package seqio

import (
	"fmt"
	"strings"
	"testing"
)

func benchFASTA(records, length int) string {
	var b strings.Builder
	line := strings.Repeat("ACGTTGCA", length/8)
	for i := 0; i < records; i++ {
		fmt.Fprintf(&b, ">seq%d\n%s\n", i, line)
	}
	return b.String()
}

func BenchmarkReverseComplement(b *testing.B) {
	sizes := []struct {
		name            string
		records, length int
	}{
		{"small", 10, 800},
		{"wide", 10, 80000},
		{"many", 2000, 800},
	}

	for _, s := range sizes {
		text := benchFASTA(s.records, s.length)
		b.Run(s.name, func(b *testing.B) {
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				seqs, err := ReadFASTA(text)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := WriteFASTA(ReverseComplement(seqs)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkReadGenBank(b *testing.B) {
	text := strings.Repeat(sampleGenBank, 100)
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		if _, err := ReadGenBank(text); err != nil {
			b.Fatal(err)
		}
	}
}
