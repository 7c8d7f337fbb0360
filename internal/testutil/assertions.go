package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runixer/mediagrab/internal/storage"
)

// AssertFileCount asserts that dir holds exactly expected regular files.
func AssertFileCount(t *testing.T, dir string, expected int) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err, "failed to read %s", dir)

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	assert.Len(t, names, expected, "files in %s: %v", dir, names)
	return names
}

// AssertNoPartialFiles asserts that no temporary download file is left in dir.
func AssertNoPartialFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("partial file left behind: %s", e.Name())
		}
	}
}

// AssertJournalCount asserts the number of journal batches.
func AssertJournalCount(t *testing.T, store *storage.SQLiteStore, expected int) {
	t.Helper()
	sum, err := store.DownloadSummary(context.Background(), time.Time{})
	require.NoError(t, err, "failed to summarise journal")
	assert.Equal(t, expected, sum.Batches, "journal batch count mismatch")
}

// AssertLogContains asserts that the log contains an entry with the given level and message.
func AssertLogContains(t *testing.T, logs []LogEntry, level string, msg string) {
	t.Helper()
	for _, entry := range logs {
		if (level == "" || strings.EqualFold(entry.Level, level)) &&
			strings.Contains(entry.Message, msg) {
			return
		}
	}
	t.Fatalf("no log entry found with level=%q msg containing %q. Entries: %d", level, msg, len(logs))
}

// AssertLogHasField asserts that a log entry exists with the given field value.
func AssertLogHasField(t *testing.T, logs []LogEntry, key string, value any) {
	t.Helper()
	for _, entry := range logs {
		if v, ok := entry.Fields[key]; ok && fmt.Sprint(v) == fmt.Sprint(value) {
			return
		}
	}
	t.Fatalf("no log entry found with field %q=%v. Entries: %d", key, value, len(logs))
}

// AssertNoErrorLogs asserts that no ERROR level logs were captured.
func AssertNoErrorLogs(t *testing.T, logs []LogEntry) {
	t.Helper()
	for _, entry := range logs {
		if strings.EqualFold(entry.Level, "error") {
			t.Errorf("found error log: %s (fields: %v)", entry.Message, entry.Fields)
		}
	}
}
