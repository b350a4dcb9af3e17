package audit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu   sync.Mutex
	recs []Record
}

func (c *captureSink) Log(rec Record) {
	c.mu.Lock()
	c.recs = append(c.recs, rec)
	c.mu.Unlock()
}

func boolPtr(b bool) *bool { return &b }

func TestLog_RecordAssignsIdentity(t *testing.T) {
	l := NewLog(10)
	rec := l.Record(Record{Operation: "reverse_complement", Success: true})

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())
	assert.NotNil(t, rec.Parameters)
	assert.Equal(t, 1, l.Len())
}

func TestLog_RecordIsImmutable(t *testing.T) {
	l := NewLog(10)
	params := map[string]any{"start": 5}
	l.Record(Record{Operation: "extract_subsequence", Parameters: params})

	params["start"] = 99
	got := l.Query(Query{})
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Parameters["start"])

	got[0].Parameters["start"] = 42
	again := l.Query(Query{})
	assert.Equal(t, 5, again[0].Parameters["start"])
}

func TestLog_EvictsOldest(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Record(Record{Operation: fmt.Sprintf("op%d", i)})
	}

	got := l.Query(Query{})
	require.Len(t, got, 3)
	assert.Equal(t, "op4", got[0].Operation)
	assert.Equal(t, "op2", got[2].Operation)
}

func TestLog_Query(t *testing.T) {
	l := NewLog(100)
	for i := 0; i < 10; i++ {
		l.Record(Record{Operation: "seqkit_stats", Success: i%2 == 0})
	}
	l.Record(Record{Operation: "genbank_to_fasta", Success: true})

	tests := []struct {
		name  string
		q     Query
		count int
		check func(t *testing.T, recs []Record)
	}{
		{"all", Query{}, 11, nil},
		{"limit", Query{Limit: 5}, 5, nil},
		{"successes only", Query{Limit: 5, Success: boolPtr(true)}, 5, func(t *testing.T, recs []Record) {
			for _, r := range recs {
				assert.True(t, r.Success)
			}
		}},
		{"failures only", Query{Success: boolPtr(false)}, 5, func(t *testing.T, recs []Record) {
			for _, r := range recs {
				assert.False(t, r.Success)
			}
		}},
		{"by operation", Query{Operation: "genbank_to_fasta"}, 1, nil},
		{"unknown operation", Query{Operation: "nope"}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := l.Query(tt.q)
			assert.Len(t, recs, tt.count)
			if tt.check != nil {
				tt.check(t, recs)
			}
		})
	}
}

func TestLog_QueryNewestFirst(t *testing.T) {
	l := NewLog(10)
	l.Record(Record{Operation: "first"})
	l.Record(Record{Operation: "second"})

	recs := l.Query(Query{})
	require.Len(t, recs, 2)
	assert.Equal(t, "second", recs[0].Operation)
}

func TestLog_Stats(t *testing.T) {
	l := NewLog(100)
	assert.Equal(t, 0, l.Stats().TotalOperations)

	l.Record(Record{Operation: "a", Success: true, ExecutionTimeMS: 10})
	l.Record(Record{Operation: "a", Success: false, ExecutionTimeMS: 20})
	l.Record(Record{Operation: "b", Success: true, ExecutionTimeMS: 30})
	l.Record(Record{Operation: "b", Success: true, ExecutionTimeMS: 40})

	st := l.Stats()
	assert.Equal(t, 4, st.TotalOperations)
	assert.Equal(t, 3, st.SuccessfulOperations)
	assert.Equal(t, 1, st.FailedOperations)
	assert.Equal(t, st.TotalOperations, st.SuccessfulOperations+st.FailedOperations)
	assert.InDelta(t, 0.75, st.SuccessRate, 1e-9)
	assert.Equal(t, 25.0, st.AverageExecutionMS)
	assert.Equal(t, map[string]int{"a": 2, "b": 2}, st.OperationsByType)
}

func TestLog_ClearAndOperations(t *testing.T) {
	l := NewLog(10)
	l.Record(Record{Operation: "seqkit_stats"})
	l.Record(Record{Operation: "genbank_to_fasta"})
	l.Record(Record{Operation: "seqkit_stats"})

	assert.Equal(t, []string{"genbank_to_fasta", "seqkit_stats"}, l.Operations())
	assert.Equal(t, 3, l.Clear())
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Operations())
}

func TestLog_Sinks(t *testing.T) {
	sink := &captureSink{}
	l := NewLog(10, sink)
	l.Record(Record{Operation: "reverse_complement"})

	require.Len(t, sink.recs, 1)
	assert.Equal(t, "reverse_complement", sink.recs[0].Operation)
	assert.NotEmpty(t, sink.recs[0].ID)
}

func TestLog_ConcurrentAccess(t *testing.T) {
	l := NewLog(500)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Record(Record{Operation: "op", Success: j%3 != 0})
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				st := l.Stats()
				assert.Equal(t, st.TotalOperations, st.SuccessfulOperations+st.FailedOperations)
				_ = l.Query(Query{Limit: 5})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, l.Len())
}

func TestSanitizeParameters(t *testing.T) {
	params := map[string]any{
		"content":      ">seq1\nATGC",
		"input_format": "string",
	}
	out := SanitizeParameters(params)

	assert.NotContains(t, out, "content")
	assert.Equal(t, 10, out["content_length"])
	assert.Equal(t, "string", out["input_format"])
	assert.Contains(t, params, "content", "input map is not modified")
}
