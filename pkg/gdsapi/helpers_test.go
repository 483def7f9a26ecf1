package gdsapi_test

import (
	"sync"
)

type testLogEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// testLogger records entries for assertions.
type testLogger struct {
	mu      sync.Mutex
	entries []testLogEntry
}

func (l *testLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, testLogEntry{level: level, msg: msg, fields: fields})
}

func (l *testLogger) Debug(msg string, fields map[string]interface{}) { l.add("DEBUG", msg, fields) }
func (l *testLogger) Info(msg string, fields map[string]interface{})  { l.add("INFO", msg, fields) }
func (l *testLogger) Warn(msg string, fields map[string]interface{})  { l.add("WARN", msg, fields) }
func (l *testLogger) Error(msg string, fields map[string]interface{}) { l.add("ERROR", msg, fields) }

func (l *testLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0

	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}

	return n
}

func (l *testLogger) last() testLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 {
		return testLogEntry{}
	}

	return l.entries[len(l.entries)-1]
}
