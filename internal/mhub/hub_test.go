package mhub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const testInfo = `{
  "header": {"version": "2.0"},
  "data": {
    "mhub": {"mhub_official_name": "MHUB U 4x3+1", "mhub-os_version": "8.01", "api": "2"},
    "io_data": {
      "input_video": [{"ports": "4", "labels": [
        {"id": "1", "label": "Apple TV"},
        {"id": "2", "label": "Sky Q"},
        {"id": "3", "label": "PS5"},
        {"id": "4", "label": "Chromecast"}
      ]}],
      "output_video": [{"ports": 3, "labels": [
        {"id": "A", "label": "Living Room"},
        {"id": "B", "label": "Kitchen"},
        {"id": "C", "label": "Bedroom"}
      ]}],
      "output_audio": [{"labels": [{"id": "a", "label": "Zone A"}]}]
    }
  }
}`

const testState = `{
  "header": {"version": "2.0"},
  "data": {
    "zones": [
      {"zone_id": "1", "zone_label": "Downstairs", "state": [
        {"output_id": "A", "input_id": "2", "volume": 40, "mute": false},
        {"output_id": "B", "input_id": 1, "volume": "35", "mute": "true"}
      ]},
      {"zone_id": "2", "state": [
        {"output_id": "c", "input_id": "0", "volume": null}
      ]}
    ]
  }
}`

// fakeHub serves the hub HTTP surface with per-path overrides.
type fakeHub struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	bodies   map[string]string
	statuses map[string]int
	delays   map[string]time.Duration
	gates    map[string]chan struct{}
	handlers map[string]http.HandlerFunc
	hits     map[string]int
	arrived  map[string]chan struct{}
	headers  []http.Header
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()
	h := &fakeHub{
		t: t,
		bodies: map[string]string{
			InfoPath:       testInfo,
			StatePath:      testState,
			PowerProbePath: `{"header":{"version":"2.0"},"data":{}}`,
		},
		statuses: map[string]int{},
		delays:   map[string]time.Duration{},
		gates:    map[string]chan struct{}{},
		handlers: map[string]http.HandlerFunc{},
		hits:     map[string]int{},
		arrived:  map[string]chan struct{}{},
	}
	h.server = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHub) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	h.mu.Lock()
	h.hits[path]++
	h.headers = append(h.headers, r.Header.Clone())
	body, hasBody := h.bodies[path]
	status := h.statuses[path]
	delay := h.delays[path]
	gate := h.gates[path]
	handler := h.handlers[path]
	arrived := h.arrived[path]
	delete(h.arrived, path)
	h.mu.Unlock()

	if arrived != nil {
		close(arrived)
	}
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if handler != nil {
		handler(w, r)
		return
	}

	if !hasBody && status == 0 {
		if strings.HasPrefix(path, "/api/control/") || strings.HasPrefix(path, "/api/power/") {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"header":{"version":"2.0"},"data":{}}`))
			return
		}
		http.NotFound(w, r)
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	// The real firmware labels JSON as text/html.
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (h *fakeHub) host() string {
	return h.server.Listener.Addr().String()
}

func (h *fakeHub) client() *Client {
	return NewClient(h.host(), ClientOptions{})
}

func (h *fakeHub) setBody(path, body string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bodies[path] = body
}

func (h *fakeHub) setStatus(path string, status int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[path] = status
}

func (h *fakeHub) setDelay(path string, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delays[path] = d
}

func (h *fakeHub) handle(path string, fn http.HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[path] = fn
}

// hold blocks requests to path until the returned release is called.
// The returned channel closes when the first blocked request arrives.
func (h *fakeHub) hold(path string) (arrived <-chan struct{}, release func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{})
	h.gates[path] = gate
	h.arrived[path] = in
	var once sync.Once
	return in, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.gates, path)
			h.mu.Unlock()
			close(gate)
		})
	}
}

func (h *fakeHub) hitCount(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// recordingLogger keeps warnings for assertions.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	args  [][]any
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(msg string, args ...any) {
	l.Warn(msg, args...)
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
	l.args = append(l.args, args)
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}
