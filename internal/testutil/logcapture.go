package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogCapture collects slog JSON output for assertions. It is safe for
// concurrent loggers, which the bot's per-command goroutines are.
type LogCapture struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	entries []LogEntry
	logger  *slog.Logger
}

// LogEntry is one parsed log record.
type LogEntry struct {
	Level   string
	Message string
	Time    time.Time
	Fields  map[string]any
}

// NewLogCapture creates a capture that records everything from debug up.
func NewLogCapture() *LogCapture {
	lc := &LogCapture{}
	lc.logger = slog.New(slog.NewJSONHandler(lc, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return lc
}

// Logger returns the slog.Logger that writes to this capture.
func (lc *LogCapture) Logger() *slog.Logger {
	return lc.logger
}

// Write implements io.Writer. slog.JSONHandler emits whole lines, but
// partial writes are buffered until the newline arrives.
func (lc *LogCapture) Write(p []byte) (int, error) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.buf.Write(p)
	for {
		line, err := lc.buf.ReadBytes('\n')
		if err != nil {
			// No newline yet; put the fragment back.
			lc.buf.Write(line)
			break
		}
		if entry, ok := parseEntry(line); ok {
			lc.entries = append(lc.entries, entry)
		}
	}
	return len(p), nil
}

func parseEntry(line []byte) (LogEntry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return LogEntry{}, false
	}
	entry := LogEntry{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case slog.LevelKey:
			entry.Level, _ = v.(string)
		case slog.MessageKey:
			entry.Message, _ = v.(string)
		case slog.TimeKey:
			if s, ok := v.(string); ok {
				entry.Time, _ = time.Parse(time.RFC3339Nano, s)
			}
		default:
			entry.Fields[k] = v
		}
	}
	return entry, true
}

// Entries returns a snapshot of captured entries.
func (lc *LogCapture) Entries() []LogEntry {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return append([]LogEntry(nil), lc.entries...)
}

// Find returns entries matching the level (empty for any) and message substring.
func (lc *LogCapture) Find(level, msgSubstring string) []LogEntry {
	var results []LogEntry
	for _, entry := range lc.Entries() {
		if (level == "" || strings.EqualFold(entry.Level, level)) &&
			strings.Contains(entry.Message, msgSubstring) {
			results = append(results, entry)
		}
	}
	return results
}

// FindByField returns entries containing the specified field value.
func (lc *LogCapture) FindByField(key string, value any) []LogEntry {
	var results []LogEntry
	for _, entry := range lc.Entries() {
		if v, ok := entry.Fields[key]; ok && fmt.Sprint(v) == fmt.Sprint(value) {
			results = append(results, entry)
		}
	}
	return results
}

// HasError reports whether any ERROR entry was captured.
func (lc *LogCapture) HasError() bool {
	return len(lc.Find("error", "")) > 0
}

// Clear drops all captured entries.
func (lc *LogCapture) Clear() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.entries = nil
	lc.buf.Reset()
}
