package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"archiver/internal/logger"
)

type logLine struct {
	level logger.Level
	text  string
}

// recordingLogger keeps every emitted line for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (r *recordingLogger) Emit(level logger.Level, message string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, logLine{level, fmt.Sprintf(message, args...)})
}

// contains reports whether a line at level contains substr.
func (r *recordingLogger) contains(level logger.Level, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if l.level == level && strings.Contains(l.text, substr) {
			return true
		}
	}
	return false
}

// tikwmServer fakes the tikwm API on /api/ and serves every other path as an
// asset. Relative asset URLs in payloads resolve under /api/.
type tikwmServer struct {
	*httptest.Server
	api      atomic.Int32
	requests atomic.Int32
	missing  map[string]bool
	apiReply func(call int, w http.ResponseWriter)
}

func newTikwmServer(t *testing.T, reply func(call int, w http.ResponseWriter)) *tikwmServer {
	t.Helper()
	s := &tikwmServer{apiReply: reply, missing: map[string]bool{}}
	s.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if r.URL.Path == "/api/" {
			s.apiReply(int(s.api.Add(1)), w)
			return
		}
		if s.missing[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".jpg") {
			w.Header().Set("Content-Type", "image/jpeg")
		} else {
			w.Header().Set("Content-Type", "video/mp4")
		}
		fmt.Fprintf(w, "bytes of %s", r.URL.Path)
	}))
	t.Cleanup(s.Close)
	return s
}

func jsonReply(body string) func(int, http.ResponseWriter) {
	return func(_ int, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}
}

func newTestTikTok(s *tikwmServer, dir string, log logger.Logger) *TikTok {
	return NewTikTok(TikTokOptions{
		APIURL:  s.URL + "/api/",
		Dir:     dir,
		Client:  s.Client(),
		Limiter: NewIntervalLimiter(0),
		Logger:  log,
	})
}

type countingLimiter struct {
	calls atomic.Int32
	err   error
}

func (c *countingLimiter) Wait(context.Context) error {
	c.calls.Add(1)
	return c.err
}
