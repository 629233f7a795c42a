package entity

import (
	"context"
	"fmt"
	"strings"
)

// base carries what every view shares: identity and its collaborators.
type base struct {
	uniqueID   string
	name       string
	source     Source
	dispatcher Dispatcher
	logger     Logger

	// write publishes an optimistic change. Set by the registry.
	write func(Entity)
}

func (b *base) UniqueID() string { return b.uniqueID }
func (b *base) Name() string     { return b.name }

func (b *base) publish(e Entity) {
	if b.write != nil {
		b.write(e)
	}
}

// send dispatches a control request. The result is reconciled by the
// trailing refresh, never returned to the caller.
func (b *base) send(path string) {
	b.logger.Debug("dispatching command", "entity", b.uniqueID, "path", path)
	b.dispatcher.Dispatch(path)
}

// refresh asks the coordinator for fresh data and logs a failure.
func (b *base) refresh(ctx context.Context) {
	if err := b.source.Refresh(ctx); err != nil {
		b.logger.Debug("refresh after soft command failed", "entity", b.uniqueID, "error", err)
	}
}

func unsupported(uniqueID string, action Action) error {
	return fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, uniqueID)
}

func stateString(on bool) string {
	if on {
		return StateOn
	}
	return StateOff
}

func intPtr(v int) *int { return &v }

// outputDisplayName is the label of an output, or "Output {ID}" when the
// device reports none.
func outputDisplayName(outputID, label string) string {
	if strings.TrimSpace(label) != "" {
		return label
	}
	return "Output " + strings.ToUpper(outputID)
}
