package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

// recordingServer counts requests per "METHOD path?query".
type recordingServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls map[string]int
}

func newRecordingServer(t *testing.T, handler http.HandlerFunc) *recordingServer {
	t.Helper()

	rs := &recordingServer{calls: make(map[string]int)}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.calls[r.Method+" "+r.URL.RequestURI()]++
		rs.mu.Unlock()

		handler(w, r)
	}))
	t.Cleanup(rs.Close)

	return rs
}

func (rs *recordingServer) count(method, requestURI string) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return rs.calls[method+" "+requestURI]
}

func (rs *recordingServer) total() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	n := 0
	for _, c := range rs.calls {
		n += c
	}

	return n
}

func newTestJSONClient(t *testing.T, cache gdsapi.Cache) *JSONClient {
	t.Helper()

	return NewJSONClient(&gdsapi.Config{Cache: cache})
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	assert.NoError(t, err)
}

func cacheable(w http.ResponseWriter, maxAge int) {
	w.Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) {
	l.add("DEBUG", msg, fields)
}
func (l *recordingLogger) Info(msg string, fields map[string]interface{}) { l.add("INFO", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields map[string]interface{}) { l.add("WARN", msg, fields) }
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.add("ERROR", msg, fields)
}

func (l *recordingLogger) has(level, msgPart string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.msg, msgPart) {
			return true
		}
	}

	return false
}
