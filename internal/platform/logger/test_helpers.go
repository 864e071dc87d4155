package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogBuffer collects JSON log lines written by a test logger. It is safe
// for concurrent writers.
type TestLogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset discards everything captured so far.
func (b *TestLogBuffer) Reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

// GetLogEntries decodes every captured line. A line that is not valid JSON
// is an error.
func (b *TestLogBuffer) GetLogEntries() ([]map[string]any, error) {
	var entries []map[string]any
	sc := bufio.NewScanner(strings.NewReader(b.String()))
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}

// EntriesWithMessage returns the entries whose msg equals msg, in order.
func (b *TestLogBuffer) EntriesWithMessage(msg string) []map[string]any {
	entries, err := b.GetLogEntries()
	if err != nil {
		return nil
	}
	var out []map[string]any
	for _, e := range entries {
		if e["msg"] == msg {
			out = append(out, e)
		}
	}
	return out
}

// GetTestLogger returns a debug-level JSON logger writing into a fresh buffer.
func GetTestLogger(t *testing.T) (*slog.Logger, *TestLogBuffer) {
	t.Helper()
	buf := &TestLogBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// LogCapture bundles a test logger with a context that carries it.
type LogCapture struct {
	Context context.Context
	Logger  *slog.Logger
	Buffer  *TestLogBuffer
}

// NewLogCapture is GetTestLogger plus WithLogger.
func NewLogCapture(t *testing.T) *LogCapture {
	t.Helper()
	log, buf := GetTestLogger(t)
	return &LogCapture{Context: WithLogger(context.Background(), log), Logger: log, Buffer: buf}
}

// AssertLogContains fails the test unless some captured output contains content.
func AssertLogContains(t *testing.T, buf *TestLogBuffer, content string) {
	t.Helper()
	if logs := buf.String(); !strings.Contains(logs, content) {
		t.Errorf("expected logs to contain %q\nlogs:\n%s", content, logs)
	}
}

// AssertLogNotContains fails the test if any captured output contains content.
func AssertLogNotContains(t *testing.T, buf *TestLogBuffer, content string) {
	t.Helper()
	if logs := buf.String(); strings.Contains(logs, content) {
		t.Errorf("expected logs not to contain %q\nlogs:\n%s", content, logs)
	}
}
