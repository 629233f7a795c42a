package mhub

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultCommandTimeout bounds a single control request.
const DefaultCommandTimeout = 5 * time.Second

// Refresher requests a coordinator refresh. *Coordinator implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// CommandResult is the outcome of one dispatched command.
type CommandResult struct {
	Path   string
	Status int
	// Err is the transport error of the control request, if any.
	Err error
	// RefreshErr is the outcome of the trailing refresh.
	RefreshErr error
}

// OK reports whether the device accepted the command.
func (r CommandResult) OK() bool {
	return r.Err == nil && r.Status == 200
}

// Task is one detached command. Callers may ignore it entirely.
type Task struct {
	done   chan struct{}
	result CommandResult
}

// Done is closed once the request and its trailing refresh have finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Result returns the outcome. It blocks until Done is closed.
func (t *Task) Result() CommandResult {
	<-t.done
	return t.result
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Client         Transport
	Refresher      Refresher
	CommandTimeout time.Duration
	Logger         Logger
}

// Dispatcher sends fire-and-forget control requests. Every task issues one
// GET and then, whatever the outcome, asks the refresher for a refresh so
// views converge on what the device actually did.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Dispatcher struct {
	client    Transport
	refresher Refresher
	timeout   time.Duration
	logger    Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher validates opts and returns a running dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if opts.Refresher == nil {
		return nil, fmt.Errorf("refresher is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		client:    opts.Client,
		refresher: opts.Refresher,
		timeout:   orDefault(opts.CommandTimeout, DefaultCommandTimeout),
		logger:    loggerOrNoop(opts.Logger),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Dispatch starts a detached task for path and returns immediately.
func (d *Dispatcher) Dispatch(path string) *Task {
	task := &Task{done: make(chan struct{})}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		task.result = CommandResult{Path: path, Err: ErrDispatcherClosed}
		close(task.done)
		return task
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(task, path)
	return task
}

func (d *Dispatcher) run(task *Task, path string) {
	defer d.wg.Done()
	defer close(task.done)

	res := CommandResult{Path: path}

	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	status, body, err := d.client.Get(ctx, path)
	cancel()

	res.Status = status
	res.Err = err
	switch {
	case err != nil:
		d.logger.Error("command request failed", "host", d.client.Host(), "path", path, "error", err)
	case status == 200:
		d.logger.Info("command applied", "host", d.client.Host(), "path", path)
	default:
		d.logger.Warn("command rejected", "host", d.client.Host(), "path", path, "status", status, "body", preview(body))
	}

	res.RefreshErr = d.refresher.Refresh(d.ctx)
	if res.RefreshErr != nil {
		d.logger.Debug("refresh after command failed", "host", d.client.Host(), "path", path, "error", res.RefreshErr)
	}

	task.result = res
}

// Close cancels in-flight tasks and waits for them to finish. Commands
// dispatched afterwards complete immediately with ErrDispatcherClosed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}
