package mhub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Default timings.
const (
	DefaultScanInterval = 30 * time.Second
	DefaultFetchTimeout = 10 * time.Second
	DefaultProbeTimeout = 2 * time.Second

	firstRefreshInitialDelay = time.Second
	firstRefreshMaxDelay     = 30 * time.Second

	refreshKey = "refresh"
)

// Transport is the device access the coordinator and dispatcher need.
// *Client implements it.
type Transport interface {
	Host() string
	Fetch(ctx context.Context, path string) (Document, error)
	Get(ctx context.Context, path string) (int, []byte, error)
}

// Update is delivered to listeners after every refresh cycle. On failure
// Err is set and Snapshot is the retained previous snapshot.
type Update struct {
	Snapshot     *Snapshot
	Capabilities Capabilities
	Err          error
}

// Listener receives coordinator updates. Listeners run on the refresh
// goroutine and must not block or call Refresh synchronously.
type Listener func(Update)

// CycleResult describes one finished refresh cycle.
type CycleResult struct {
	Host     string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// CycleObserver is notified of every finished cycle (telemetry).
type CycleObserver interface {
	ObserveCycle(result CycleResult)
}

// Status is the coordinator's availability record.
type Status struct {
	Available   bool      `json:"available"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastFailure time.Time `json:"last_failure,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Cycles      uint64    `json:"cycles"`
	Failures    uint64    `json:"failures"`
}

// CoordinatorOptions configures a Coordinator. Zero durations select the
// package defaults.
type CoordinatorOptions struct {
	Client       Transport
	ScanInterval time.Duration
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
	Logger       Logger
	Observer     CycleObserver
}

// Coordinator polls one hub and is the only writer of its snapshot and
// capability summary.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - At most one refresh cycle runs at any time; concurrent Refresh calls
//     share the cycle already in flight.
type Coordinator struct {
	client   Transport
	interval time.Duration
	fetchTO  time.Duration
	probeTO  time.Duration
	logger   Logger
	observer CycleObserver

	snapshot atomic.Pointer[Snapshot]
	caps     atomic.Pointer[Capabilities]

	group singleflight.Group

	listenerMu sync.RWMutex
	listeners  map[uint64]Listener
	nextID     uint64

	statusMu sync.RWMutex
	status   Status

	// baseCtx scopes every cycle so Stop can abandon in-flight requests.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	retryInitial time.Duration
	retryMax     time.Duration

	now func() time.Time
}

// NewCoordinator validates opts and returns an idle coordinator holding an
// empty snapshot.
func NewCoordinator(opts CoordinatorOptions) (*Coordinator, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	c := &Coordinator{
		client:    opts.Client,
		interval:  orDefault(opts.ScanInterval, DefaultScanInterval),
		fetchTO:   orDefault(opts.FetchTimeout, DefaultFetchTimeout),
		probeTO:   orDefault(opts.ProbeTimeout, DefaultProbeTimeout),
		logger:    loggerOrNoop(opts.Logger),
		observer:  opts.Observer,
		listeners: make(map[uint64]Listener),
		done:      make(chan struct{}),

		retryInitial: firstRefreshInitialDelay,
		retryMax:     firstRefreshMaxDelay,

		now: time.Now,
	}
	c.baseCtx, c.baseCancel = context.WithCancel(context.Background())
	c.snapshot.Store(&Snapshot{Info: Document{}, State: Document{}})
	c.caps.Store(&Capabilities{})
	return c, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Host returns the polled hub address.
func (c *Coordinator) Host() string {
	return c.client.Host()
}

// Start runs a refresh every scan interval until ctx ends or Stop is called.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.scheduleLoop(ctx)
}

func (c *Coordinator) scheduleLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Debug("scheduled refresh failed", "host", c.Host(), "error", err)
			}
		}
	}
}

// Stop ends the scheduler and abandons any in-flight cycle.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.baseCancel()
	})
	c.wg.Wait()
}

// Refresh runs a refresh cycle, or joins the one already running, and
// returns its outcome. The cycle is bounded by the fetch timeout and is not
// cancelled when ctx ends; ctx only bounds how long the caller waits.
func (c *Coordinator) Refresh(ctx context.Context) error {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return nil, c.runCycle()
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FirstRefresh retries Refresh with exponential backoff until one cycle
// succeeds or ctx ends.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	delay := c.retryInitial
	for {
		err := c.Refresh(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("first refresh of %s: %w", c.Host(), ctx.Err())
		}
		c.logger.Warn("hub not ready, retrying", "host", c.Host(), "error", err, "retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("first refresh of %s: %w", c.Host(), ctx.Err())
		case <-c.done:
			timer.Stop()
			return fmt.Errorf("first refresh of %s: coordinator stopped", c.Host())
		case <-timer.C:
		}
		delay = min(delay*2, c.retryMax)
	}
}

// runCycle fetches info then state under one budget. Only a complete pair
// replaces the snapshot.
func (c *Coordinator) runCycle() error {
	started := c.now()

	probe := c.startProbe()

	ctx, cancel := context.WithTimeout(c.baseCtx, c.fetchTO)
	defer cancel()

	info, err := c.fetchDocument(ctx, InfoPath)
	var state Document
	if err == nil {
		state, err = c.fetchDocument(ctx, StatePath)
	}
	if err != nil {
		err = fmt.Errorf("refresh %s: %w", c.Host(), err)
		c.recordFailure(err)
		c.observe(started, err)
		c.notify(Update{Snapshot: c.Snapshot(), Capabilities: c.Capabilities(), Err: err})
		return err
	}

	snap := &Snapshot{
		Info:      dataObject(info),
		State:     dataObject(state),
		FetchedAt: c.now(),
	}
	c.snapshot.Store(snap)

	caps, derr := Derive(snap.Info, snap.State)
	if derr != nil {
		c.logger.Warn("keeping previous capabilities", "host", c.Host(), "error", derr)
		caps = c.Capabilities()
	} else {
		caps.SupportsPower = <-probe
		c.caps.Store(&caps)
	}

	c.recordSuccess()
	c.observe(started, nil)
	c.logger.Debug("hub data updated", "host", c.Host(), "model", caps.Model)
	c.notify(Update{Snapshot: snap, Capabilities: caps})
	return nil
}

func (c *Coordinator) fetchDocument(ctx context.Context, path string) (Document, error) {
	doc, err := c.client.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, path)
	}
	return doc, nil
}

// dataObject returns the "data" object of a response, or an empty Document.
func dataObject(doc Document) Document {
	if data, ok := object(doc["data"]); ok {
		return data
	}
	return Document{}
}

// startProbe checks the power endpoint under its own timeout. The result
// is delivered on a buffered channel so an abandoned probe never blocks.
func (c *Coordinator) startProbe() <-chan bool {
	result := make(chan bool, 1)
	go func() {
		ctx, cancel := context.WithTimeout(c.baseCtx, c.probeTO)
		defer cancel()

		status, _, err := c.client.Get(ctx, PowerProbePath)
		if err != nil {
			c.logger.Debug("power probe failed", "host", c.Host(), "error", err)
		}
		result <- err == nil && status == 200
	}()
	return result
}

func (c *Coordinator) recordSuccess() {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.Available = true
	c.status.LastSuccess = c.now()
	c.status.LastError = ""
	c.status.Cycles++
}

func (c *Coordinator) recordFailure(err error) {
	c.statusMu.Lock()
	// Log loudly on the transition to unavailable and on the first failure.
	loud := c.status.Available || c.status.Failures == 0
	c.status.Available = false
	c.status.LastFailure = c.now()
	c.status.LastError = err.Error()
	c.status.Cycles++
	c.status.Failures++
	c.statusMu.Unlock()

	if loud {
		c.logger.Error("hub update failed", "host", c.Host(), "error", err)
	} else {
		c.logger.Debug("hub still unavailable", "host", c.Host(), "error", err)
	}
}

func (c *Coordinator) observe(started time.Time, err error) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveCycle(CycleResult{
		Host:     c.Host(),
		Started:  started,
		Duration: c.now().Sub(started),
		Err:      err,
	})
}

// Subscribe registers l for every future update and returns a function
// that removes it.
func (c *Coordinator) Subscribe(l Listener) (unsubscribe func()) {
	c.listenerMu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.listenerMu.Unlock()

	return func() {
		c.listenerMu.Lock()
		delete(c.listeners, id)
		c.listenerMu.Unlock()
	}
}

func (c *Coordinator) notify(u Update) {
	c.listenerMu.RLock()
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.listenerMu.RUnlock()

	for _, l := range listeners {
		c.safeNotify(l, u)
	}
}

func (c *Coordinator) safeNotify(l Listener, u Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("listener panic recovered", "host", c.Host(), "panic", r)
		}
	}()
	l(u)
}

// Snapshot returns the current snapshot. It is never nil.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Capabilities returns the current capability summary.
func (c *Coordinator) Capabilities() Capabilities {
	return *c.caps.Load()
}

// Status returns a copy of the availability record.
func (c *Coordinator) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Available reports whether the last cycle succeeded.
func (c *Coordinator) Available() bool {
	return c.Status().Available
}

// Zones returns the zones of the current snapshot. A malformed payload is
// logged and yields no zones.
func (c *Coordinator) Zones() []Zone {
	zones, err := c.Snapshot().Zones()
	if err != nil {
		c.logger.Warn("zone parse error", "host", c.Host(), "error", err)
		return []Zone{}
	}
	return zones
}

// OutputLabels returns the output id to label map of the current snapshot.
// A malformed payload is logged and yields an empty map.
func (c *Coordinator) OutputLabels() map[string]string {
	labels, err := c.Snapshot().OutputLabels()
	if err != nil {
		c.logger.Warn("output parse error", "host", c.Host(), "error", err)
		return map[string]string{}
	}
	return labels
}
