package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogBuffer captures JSON log lines written by concurrent goroutines.
type TestLogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer.
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

// GetLogEntries decodes every captured line.
func (b *TestLogBuffer) GetLogEntries() ([]map[string]any, error) {
	var entries []map[string]any
	sc := bufio.NewScanner(strings.NewReader(b.String()))
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("log line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	return entries, sc.Err()
}

// EntriesWithMessage returns the captured entries whose msg equals msg.
func (b *TestLogBuffer) EntriesWithMessage(msg string) ([]map[string]any, error) {
	all, err := b.GetLogEntries()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, e := range all {
		if e[slog.MessageKey] == msg {
			out = append(out, e)
		}
	}
	return out, nil
}

// GetTestLogger returns a debug level JSON logger writing to a fresh buffer.
func GetTestLogger(t testing.TB) (*slog.Logger, *TestLogBuffer) {
	t.Helper()
	buf := &TestLogBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// NewTestContext returns a context carrying a capturing logger.
func NewTestContext(t testing.TB) (context.Context, *TestLogBuffer) {
	t.Helper()
	l, buf := GetTestLogger(t)
	return WithLogger(context.Background(), l), buf
}

// AssertLogContains fails t unless the captured output contains content.
func AssertLogContains(t testing.TB, buf *TestLogBuffer, content string) {
	t.Helper()
	if logs := buf.String(); !strings.Contains(logs, content) {
		t.Errorf("log does not contain %q\nlogs:\n%s", content, logs)
	}
}
