package entity

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// Publisher receives entity state for one transport.
type Publisher interface {
	PublishState(s State) error
	PublishAvailability(available bool) error
}

// MetricsWriter records per-output audio state. *influxdb.Client implements it.
type MetricsWriter interface {
	WriteZone(host, outputID string, volume int, muted bool)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Coordinator Coordinator
	Dispatcher  Dispatcher
	Logger      Logger

	// Metrics is optional.
	Metrics MetricsWriter

	// OnAdd, if set, receives the entities of outputs that appear after
	// Start.
	OnAdd func(added []Entity)
}

// Registry owns the entity set of one hub and keeps it in step with the
// coordinator.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	coord      Coordinator
	dispatcher Dispatcher
	logger     Logger
	metrics    MetricsWriter
	onAdd      func([]Entity)

	mu       sync.RWMutex
	entities map[string]Entity
	outputs  []string

	pubMu      sync.RWMutex
	publishers []Publisher

	lastMu    sync.Mutex
	last      map[string]State
	available *bool

	unsubscribe func()
}

// NewRegistry validates opts and returns a registry holding the global
// power entities. Start adds the per-output views.
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	r := &Registry{
		coord:      opts.Coordinator,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		onAdd:      opts.OnAdd,
		entities:   make(map[string]Entity),
		last:       make(map[string]State),
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}

	r.add(newPowerTrigger(r.base(), true))
	r.add(newPowerTrigger(r.base(), false))
	r.add(newSystemPower(r.base()))
	return r, nil
}

func (r *Registry) base() base {
	return base{
		source:     r.coord,
		dispatcher: r.dispatcher,
		logger:     r.logger,
		write:      r.WriteState,
	}
}

func (r *Registry) add(e Entity) {
	r.entities[e.UniqueID()] = e
}

// AddPublisher registers p for every later state change.
func (r *Registry) AddPublisher(p Publisher) {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()
	r.publishers = append(r.publishers, p)
}

// Start builds the per-output views from the current snapshot, syncs every
// entity and subscribes to coordinator updates.
func (r *Registry) Start() {
	r.addOutputs()
	for _, e := range r.Entities() {
		e.Sync()
	}
	r.unsubscribe = r.coord.Subscribe(r.onUpdate)
}

// Stop unsubscribes from the coordinator.
func (r *Registry) Stop() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

// addOutputs creates the views of outputs not seen before. Outputs that
// disappear from the device keep their views.
func (r *Registry) addOutputs() []Entity {
	labels := r.coord.OutputLabels()

	r.mu.Lock()
	defer r.mu.Unlock()
	var added []Entity
	for id, label := range labels {
		if slices.Contains(r.outputs, id) {
			continue
		}
		r.outputs = append(r.outputs, id)
		views := []Entity{
			newOutput(r.base(), id, label),
			newVolume(r.base(), id, label),
			newMute(r.base(), id, label),
		}
		for _, e := range views {
			r.add(e)
		}
		added = append(added, views...)
		r.logger.Info("output entities added", "output", id, "label", label)
	}
	slices.Sort(r.outputs)
	return added
}

// Entities returns every entity ordered by unique id.
func (r *Registry) Entities() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entity) int {
		return strings.Compare(a.UniqueID(), b.UniqueID())
	})
	return out
}

// Get returns the entity with uniqueID.
func (r *Registry) Get(uniqueID string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[uniqueID]
	return e, ok
}

// Outputs returns the known output ids, sorted.
func (r *Registry) Outputs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.outputs)
}

// States returns the state of every entity ordered by unique id.
func (r *Registry) States() []State {
	entities := r.Entities()
	states := make([]State, 0, len(entities))
	for _, e := range entities {
		states = append(states, e.State())
	}
	return states
}

// Handle routes cmd to the entity with uniqueID.
func (r *Registry) Handle(ctx context.Context, uniqueID string, cmd Command) error {
	e, ok := r.Get(uniqueID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, uniqueID)
	}
	r.logger.Debug("entity command", "entity", uniqueID, "action", cmd.Action)
	return e.Handle(ctx, cmd)
}

// WriteState publishes the current state of e to every publisher.
func (r *Registry) WriteState(e Entity) {
	s := e.State()
	r.lastMu.Lock()
	r.last[s.UniqueID] = s
	r.lastMu.Unlock()
	r.publishState(s)
}

// PublishAll republishes availability and every state, for example after a
// transport reconnects.
func (r *Registry) PublishAll() {
	available := r.coord.Available()
	r.forEachPublisher(func(p Publisher) error { return p.PublishAvailability(available) })
	for _, e := range r.Entities() {
		r.WriteState(e)
	}
}

func (r *Registry) onUpdate(u mhub.Update) {
	if u.Err != nil {
		r.setAvailable(false)
		for _, e := range r.Entities() {
			r.publishIfChanged(e.State())
		}
		return
	}

	added := r.addOutputs()
	for _, e := range r.Entities() {
		e.Sync()
	}
	if len(added) > 0 && r.onAdd != nil {
		r.onAdd(added)
	}
	r.setAvailable(true)
	for _, e := range r.Entities() {
		r.publishIfChanged(e.State())
	}
	r.writeMetrics(u.Snapshot)
}

// setAvailable publishes availability when it changes.
func (r *Registry) setAvailable(available bool) {
	r.lastMu.Lock()
	changed := r.available == nil || *r.available != available
	r.available = &available
	r.lastMu.Unlock()

	if !changed {
		return
	}
	if available {
		r.logger.Info("hub available", "host", r.coord.Host())
	} else {
		r.logger.Warn("hub unavailable, entities marked unavailable", "host", r.coord.Host())
	}
	r.forEachPublisher(func(p Publisher) error { return p.PublishAvailability(available) })
}

func (r *Registry) publishIfChanged(s State) {
	r.lastMu.Lock()
	prev, seen := r.last[s.UniqueID]
	if seen && reflect.DeepEqual(prev, s) {
		r.lastMu.Unlock()
		return
	}
	r.last[s.UniqueID] = s
	r.lastMu.Unlock()

	r.publishState(s)
}

func (r *Registry) publishState(s State) {
	r.forEachPublisher(func(p Publisher) error { return p.PublishState(s) })
}

func (r *Registry) forEachPublisher(fn func(Publisher) error) {
	r.pubMu.RLock()
	publishers := slices.Clone(r.publishers)
	r.pubMu.RUnlock()

	for _, p := range publishers {
		if err := fn(p); err != nil {
			r.logger.Warn("publish failed", "error", err)
		}
	}
}

func (r *Registry) writeMetrics(snap *mhub.Snapshot) {
	if r.metrics == nil || snap == nil {
		return
	}
	host := r.coord.Host()
	for _, id := range r.Outputs() {
		rec, ok := snap.ZoneRecord(id)
		if !ok {
			continue
		}
		r.metrics.WriteZone(host, id, rec.VolumeLevel(), rec.Muted())
	}
}
