package resilience

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDLQ_AppendAndReadBack(t *testing.T) {
	dir := t.TempDir()
	dlq, err := NewDLQ(dir)
	require.NoError(t, err)

	require.NoError(t, dlq.Append(DLQEntry{
		ListingKey: "W1234567",
		Stage:      "sold_sync",
		Error:      "null value in column \"status\"",
		ErrorType:  "permanent",
	}))
	require.NoError(t, dlq.Append(DLQEntry{
		ListingKey: "W7654321",
		Stage:      "sold_sync",
		Error:      "i/o timeout",
		ErrorType:  "transient",
	}))

	f, err := os.Open(filepath.Join(dir, "sold_sync.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var entries []DLQEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e DLQEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())

	require.Len(t, entries, 2)
	assert.Equal(t, "W1234567", entries[0].ListingKey)
	assert.False(t, entries[0].FailedAt.IsZero(), "FailedAt filled in")
	assert.Equal(t, "transient", entries[1].ErrorType)
}

func TestDLQ_SeparateFilesPerStage(t *testing.T) {
	dir := t.TempDir()
	dlq, err := NewDLQ(dir)
	require.NoError(t, err)

	require.NoError(t, dlq.Append(DLQEntry{ListingKey: "A", Stage: "sold_sync", Error: "x"}))
	require.NoError(t, dlq.Append(DLQEntry{ListingKey: "B", Stage: "clean_backfill", Error: "y"}))

	assert.FileExists(t, filepath.Join(dir, "sold_sync.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "clean_backfill.jsonl"))
}
