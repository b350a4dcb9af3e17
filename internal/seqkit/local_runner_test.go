package seqkit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastx-gateway/internal/config"
	"fastx-gateway/internal/monitor"
	"fastx-gateway/internal/pipeline"
)

// fakeSeqkit stands in for the real binary. The input file is always the
// last argument.
const fakeSeqkit = `#!/bin/sh
for a in "$@"; do last="$a"; done
case "$1" in
version)
	echo "seqkit v2.8.2"
	;;
stats)
	printf 'file\tformat\ttype\tnum_seqs\tsum_len\tmin_len\tavg_len\tmax_len\n'
	printf '%s\tFASTQ\tDNA\t2\t8\t4\t4.0\t4\n' "$last"
	;;
head)
	echo "args: $*"
	cat "$last"
	;;
fail)
	echo "[ERRO] bad input" >&2
	exit 3
	;;
sleep)
	exec sleep 5
	;;
big)
	head -c 5000 /dev/zero
	;;
esac
`

func writeFakeSeqkit(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake seqkit is a shell script")
	}
	path := filepath.Join(t.TempDir(), "seqkit")
	require.NoError(t, os.WriteFile(path, []byte(fakeSeqkit), 0755))
	return path
}

func testSeqkitConfig(path string) config.SeqkitConfig {
	cfg := config.DefaultConfig().Seqkit
	cfg.Path = path
	cfg.Backend = "local"
	return cfg
}

func newTestClient(t *testing.T, cfg config.SeqkitConfig) *Client {
	t.Helper()
	return NewClient(NewLocalRunner(cfg), NewRegistry(monitor.NewArgInspector(), nil), cfg)
}

func TestClient_Stats(t *testing.T) {
	c := newTestClient(t, testSeqkitConfig(writeFakeSeqkit(t)))

	res, err := c.Stats(context.Background(), "@r1\nACGT\n+\nIIII\n", pipeline.FormatFASTQ)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	stats, err := ParseStats(res.Stdout)
	require.NoError(t, err)
	assert.Equal(t, "2", stats["num_seqs"])
	assert.Equal(t, "FASTQ", stats["format"])
	assert.Equal(t, "input.fastq", filepath.Base(stats["file"]))
}

func TestClient_RunPassesArgsAndRemovesTempDir(t *testing.T) {
	c := newTestClient(t, testSeqkitConfig(writeFakeSeqkit(t)))

	res, err := c.Run(context.Background(), "head", []string{"-n", "1"}, ">a\nACGT\n", pipeline.FormatFASTA)
	require.NoError(t, err)

	first, rest, _ := strings.Cut(res.Stdout, "\n")
	assert.Equal(t, ">a\nACGT\n", rest)

	fields := strings.Fields(first)
	require.Len(t, fields, 5)
	assert.Equal(t, []string{"args:", "head", "-n", "1"}, fields[:4])

	input := fields[4]
	assert.Equal(t, "input.fasta", filepath.Base(input))
	assert.NoDirExists(t, filepath.Dir(input))
}

func TestClient_RunRejectsBeforeExecuting(t *testing.T) {
	c := newTestClient(t, testSeqkitConfig(writeFakeSeqkit(t)))

	_, err := c.Run(context.Background(), "head", []string{"-o", "/tmp/out"}, ">a\nA\n", pipeline.FormatFASTA)
	require.ErrorIs(t, err, ErrInvalidCommand)
	assert.Equal(t, pipeline.KindValidation, pipeline.Classify(err))
}

// isolateTempDir points TMPDIR at a fresh directory so leftover work
// directories can be counted.
func isolateTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	return dir
}

func assertNoWorkDirs(t *testing.T, tmp string) {
	t.Helper()
	left, err := filepath.Glob(filepath.Join(tmp, "fastx-seqkit-*"))
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestLocalRunner_ToolError(t *testing.T) {
	r := NewLocalRunner(testSeqkitConfig(writeFakeSeqkit(t)))
	tmp := isolateTempDir(t)

	res, err := r.Run(context.Background(), Invocation{Command: "fail", Input: ">a\nA\n"})
	require.Error(t, err)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 3, toolErr.ExitCode)
	assert.Contains(t, toolErr.Stderr, "bad input")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, pipeline.KindTool, pipeline.Classify(err))
	assertNoWorkDirs(t, tmp)
}

func TestLocalRunner_Timeout(t *testing.T) {
	r := NewLocalRunner(testSeqkitConfig(writeFakeSeqkit(t)))
	tmp := isolateTempDir(t)

	start := time.Now()
	_, err := r.Run(context.Background(), Invocation{Command: "sleep", Input: ">a\nA\n", Timeout: 100 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, pipeline.KindTimeout, pipeline.Classify(err))
	assert.Less(t, time.Since(start), 4*time.Second)
	assertNoWorkDirs(t, tmp)
}

func TestLocalRunner_CancelledIsNotTimeout(t *testing.T) {
	r := NewLocalRunner(testSeqkitConfig(writeFakeSeqkit(t)))
	tmp := isolateTempDir(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := r.Run(ctx, Invocation{Command: "sleep", Input: ">a\nA\n", Timeout: 10 * time.Second})
	require.Error(t, err)
	assert.False(t, IsTimeout(err))
	assert.ErrorIs(t, err, context.Canceled)
	assertNoWorkDirs(t, tmp)
}

func TestLocalRunner_MissingBinary(t *testing.T) {
	r := NewLocalRunner(testSeqkitConfig(filepath.Join(t.TempDir(), "no-such-seqkit")))

	_, err := r.Run(context.Background(), Invocation{Command: "stats", Input: ">a\nA\n"})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, pipeline.KindUnavailable, pipeline.Classify(err))

	c := NewClient(r, NewRegistry(nil, nil), testSeqkitConfig(""))
	assert.True(t, IsUnavailable(c.Available(context.Background())))
}

func TestLocalRunner_TruncatesOutput(t *testing.T) {
	cfg := testSeqkitConfig(writeFakeSeqkit(t))
	cfg.MaxOutputBytes = 1000
	r := NewLocalRunner(cfg)

	res, err := r.Run(context.Background(), Invocation{Command: "big", Input: ">a\nA\n"})
	require.NoError(t, err)
	assert.Len(t, res.Stdout, 1000)
	assert.True(t, res.Truncated)
}

func TestLocalRunner_Version(t *testing.T) {
	r := NewLocalRunner(testSeqkitConfig(writeFakeSeqkit(t)))

	v, err := r.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2.8.2", v)
}

func TestNewBackend(t *testing.T) {
	cfg := testSeqkitConfig(writeFakeSeqkit(t))

	b, err := NewBackend(cfg)
	require.NoError(t, err)
	assert.Equal(t, "local", b.Name())

	cfg.Backend = "auto"
	b, err = NewBackend(cfg)
	require.NoError(t, err)
	assert.Equal(t, "local", b.Name(), "auto prefers a seqkit found on PATH")

	cfg.Backend = "podman"
	_, err = NewBackend(cfg)
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "v2.8.2", parseVersion("seqkit v2.8.2\n"))
	assert.Equal(t, "something else", parseVersion(" something else "))
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{max: 5}
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = b.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n, "reports full writes")
	assert.Equal(t, "abcde", b.String())
	assert.True(t, b.truncated)

	unlimited := &cappedBuffer{}
	_, _ = unlimited.Write([]byte("abcdefgh"))
	assert.Equal(t, "abcdefgh", unlimited.String())
	assert.False(t, unlimited.truncated)
}
