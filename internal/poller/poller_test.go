package poller

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/firestige/otus-bench/internal/model"
	"github.com/stretchr/testify/require"
)

// The output log is a header line followed by zero or more record
// blocks, each ending with the blank delimiter; the stop flag is
// honoured within ~one period.
func TestPollerHeaderAndStop(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(watched, []byte("sample\n"), 0o644))

	out := filepath.Join(dir, "001-poll.log")
	p, err := New(model.Id(1), []string{watched}, out, 5*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	require.NoError(t, p.Stop())
	require.Less(t, time.Since(start), 200*time.Millisecond)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var h header
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &h))
	require.Equal(t, []string{watched}, h.Files)

	sawRecord := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		// timestamp line, followed eventually by a blank delimiter.
		sawRecord = true
		_ = line
	}
	require.True(t, sawRecord, "expected at least one record block")
}

func TestNewRejectsEmptyFileList(t *testing.T) {
	dir := t.TempDir()
	_, err := New(model.Id(1), nil, filepath.Join(dir, "001-poll.log"), 0)
	require.Error(t, err)
}

func TestSnapshotConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("AAA"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("BBB"), 0o644))

	out := filepath.Join(dir, "001-poll.log")
	p, err := New(model.Id(1), []string{a, b}, out, 5*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Stop())

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(contents), "AAABBB"))
}
