package entity

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

const fixtureInfo = `{
  "mhub": {"mhub_official_name": "MHUB U 4x3+1", "mhub-os_version": "8.01"},
  "io_data": {
    "input_video": [{"ports": 4, "labels": [
      {"id": "1", "label": "Apple TV"},
      {"id": "2", "label": "Sky Q"},
      {"id": "3", "label": "PS5"},
      {"id": "4", "label": "Chromecast"}
    ]}],
    "output_video": [{"ports": 3, "labels": [
      {"id": "A", "label": "Living Room"},
      {"id": "B", "label": "Kitchen"},
      {"id": "C", "label": ""}
    ]}]
  }
}`

const fixtureState = `{
  "zones": [
    {"zone_id": "1", "state": [
      {"output_id": "A", "input_id": "2", "volume": 40, "mute": false},
      {"output_id": "B", "input_id": 1, "volume": "35", "mute": "true"}
    ]},
    {"zone_id": "2", "state": [
      {"output_id": "c", "input_id": "0", "volume": null}
    ]}
  ]
}`

func decodeDoc(t *testing.T, s string) mhub.Document {
	t.Helper()
	var doc mhub.Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return doc
}

// fakeCoordinator serves a fixed snapshot and records refresh requests.
type fakeCoordinator struct {
	mu        sync.Mutex
	snap      *mhub.Snapshot
	caps      mhub.Capabilities
	available bool
	refreshes int
	listeners map[int]mhub.Listener
	nextID    int
}

func newFakeCoordinator(t *testing.T) *fakeCoordinator {
	t.Helper()
	c := &fakeCoordinator{
		available: true,
		caps:      mhub.Capabilities{Model: "MHUB U 4x3+1", Firmware: "8.01", InputCount: 4, OutputCount: 3},
		listeners: map[int]mhub.Listener{},
	}
	c.setSnapshot(t, fixtureInfo, fixtureState)
	return c
}

func (c *fakeCoordinator) setSnapshot(t *testing.T, info, state string) {
	t.Helper()
	snap := &mhub.Snapshot{Info: decodeDoc(t, info), State: decodeDoc(t, state)}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap
}

func (c *fakeCoordinator) setAvailable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = v
}

func (c *fakeCoordinator) Host() string { return "10.0.0.5" }

func (c *fakeCoordinator) Snapshot() *mhub.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *fakeCoordinator) Capabilities() mhub.Capabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

func (c *fakeCoordinator) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

func (c *fakeCoordinator) Refresh(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	return nil
}

func (c *fakeCoordinator) refreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

func (c *fakeCoordinator) OutputLabels() map[string]string {
	labels, err := c.Snapshot().OutputLabels()
	if err != nil {
		return map[string]string{}
	}
	return labels
}

func (c *fakeCoordinator) Subscribe(l mhub.Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// emit delivers u to every listener, the way a finished cycle does.
func (c *fakeCoordinator) emit(u mhub.Update) {
	c.mu.Lock()
	listeners := make([]mhub.Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	if u.Snapshot == nil {
		u.Snapshot = c.snap
	}
	c.mu.Unlock()
	for _, l := range listeners {
		l(u)
	}
}

// fakeDispatcher records control paths.
type fakeDispatcher struct {
	mu    sync.Mutex
	paths []string
}

func (d *fakeDispatcher) Dispatch(path string) *mhub.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paths = append(d.paths, path)
	return nil
}

func (d *fakeDispatcher) sent() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paths...)
}

// recordingPublisher keeps everything published to it.
type recordingPublisher struct {
	mu           sync.Mutex
	states       []State
	availability []bool
}

func (p *recordingPublisher) PublishState(s State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
	return nil
}

func (p *recordingPublisher) PublishAvailability(available bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.availability = append(p.availability, available)
	return nil
}

func (p *recordingPublisher) stateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.states)
}

func (p *recordingPublisher) lastState(uid string) (State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.states) - 1; i >= 0; i-- {
		if p.states[i].UniqueID == uid {
			return p.states[i], true
		}
	}
	return State{}, false
}

func (p *recordingPublisher) availabilityLog() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.availability...)
}

// testBase returns view collaborators wired to fakes.
func testBase(coord *fakeCoordinator, disp *fakeDispatcher, written *[]string) base {
	return base{
		source:     coord,
		dispatcher: disp,
		logger:     noopLogger{},
		write: func(e Entity) {
			if written != nil {
				*written = append(*written, e.UniqueID())
			}
		},
	}
}
