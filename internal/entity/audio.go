package entity

import (
	"context"
	"sync"

	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// Volume is the 0..100 volume of one output. A missing or unparseable
// reading is 0.
type Volume struct {
	base
	outputID string

	mu      sync.Mutex
	level   int
	pending *int
}

func newVolume(b base, outputID, label string) *Volume {
	b.uniqueID = "mhub_volume_" + outputID
	b.name = outputDisplayName(outputID, label) + " Volume"
	return &Volume{base: b, outputID: outputID}
}

// Platform implements Entity.
func (v *Volume) Platform() Platform { return PlatformNumber }

// OutputID returns the lower-cased output id.
func (v *Volume) OutputID() string { return v.outputID }

// Sync implements Entity.
func (v *Volume) Sync() {
	level := 0
	if rec, ok := v.source.Snapshot().ZoneRecord(v.outputID); ok {
		level = rec.VolumeLevel()
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.level = level
	v.pending = nil
}

// Level returns the displayed volume.
func (v *Volume) Level() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending != nil {
		return *v.pending
	}
	return v.level
}

// State implements Entity.
func (v *Volume) State() State {
	return State{
		UniqueID:  v.uniqueID,
		Name:      v.name,
		Platform:  PlatformNumber,
		Available: v.source.Available(),
		Value:     intPtr(v.Level()),
		Min:       intPtr(mhub.MinVolume),
		Max:       intPtr(mhub.MaxVolume),
	}
}

// Handle implements Entity.
func (v *Volume) Handle(_ context.Context, cmd Command) error {
	if cmd.Action != ActionSetValue {
		return unsupported(v.uniqueID, cmd.Action)
	}
	n, err := cmd.IntValue()
	if err != nil {
		return err
	}
	n = mhub.ClampVolume(n)

	v.mu.Lock()
	v.pending = &n
	v.mu.Unlock()

	v.publish(v)
	v.send(mhub.VolumePath(v.outputID, n))
	return nil
}

// Mute is the mute switch of one output. A missing reading is unmuted.
type Mute struct {
	base
	outputID string

	mu      sync.Mutex
	muted   bool
	pending *bool
}

func newMute(b base, outputID, label string) *Mute {
	b.uniqueID = "mhub_mute_" + outputID
	b.name = outputDisplayName(outputID, label) + " Mute"
	return &Mute{base: b, outputID: outputID}
}

// Platform implements Entity.
func (m *Mute) Platform() Platform { return PlatformSwitch }

// OutputID returns the lower-cased output id.
func (m *Mute) OutputID() string { return m.outputID }

// Sync implements Entity.
func (m *Mute) Sync() {
	muted := false
	if rec, ok := m.source.Snapshot().ZoneRecord(m.outputID); ok {
		muted = rec.Muted()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	m.pending = nil
}

// Muted returns the displayed mute flag.
func (m *Mute) Muted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		return *m.pending
	}
	return m.muted
}

// State implements Entity.
func (m *Mute) State() State {
	return State{
		UniqueID:  m.uniqueID,
		Name:      m.name,
		Platform:  PlatformSwitch,
		Available: m.source.Available(),
		State:     stateString(m.Muted()),
	}
}

// Handle implements Entity.
func (m *Mute) Handle(_ context.Context, cmd Command) error {
	var muted bool
	switch cmd.Action {
	case ActionTurnOn:
		muted = true
	case ActionTurnOff:
		muted = false
	default:
		return unsupported(m.uniqueID, cmd.Action)
	}

	m.mu.Lock()
	m.pending = &muted
	m.mu.Unlock()

	m.publish(m)
	m.send(mhub.MutePath(m.outputID, muted))
	return nil
}
