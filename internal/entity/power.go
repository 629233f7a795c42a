package entity

import (
	"context"
	"sync"

	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// PowerTrigger is a momentary switch that powers every output on or off.
// It always reports off.
type PowerTrigger struct {
	base
	on bool
}

func newPowerTrigger(b base, on bool) *PowerTrigger {
	if on {
		b.uniqueID, b.name = "mhub_power_on", "MHUB Power On"
	} else {
		b.uniqueID, b.name = "mhub_power_off", "MHUB Power Off"
	}
	return &PowerTrigger{base: b, on: on}
}

// Platform implements Entity.
func (p *PowerTrigger) Platform() Platform { return PlatformSwitch }

// Sync implements Entity. Triggers hold no state.
func (p *PowerTrigger) Sync() {}

// State implements Entity.
func (p *PowerTrigger) State() State {
	return State{
		UniqueID:   p.uniqueID,
		Name:       p.name,
		Platform:   PlatformSwitch,
		Available:  p.source.Available(),
		State:      StateOff,
		Attributes: map[string]string{"icon": "mdi:power"},
	}
}

// Handle implements Entity. turn_on fires the trigger; turn_off only
// republishes the off state.
func (p *PowerTrigger) Handle(_ context.Context, cmd Command) error {
	switch cmd.Action {
	case ActionTurnOn:
		p.logger.Info("sending global power", "on", p.on)
		p.send(mhub.GlobalPowerPath(p.on))
		p.publish(p)
		return nil
	case ActionTurnOff:
		p.publish(p)
		return nil
	}
	return unsupported(p.uniqueID, cmd.Action)
}

// SystemPower switches the whole chassis. The device cannot report chassis
// power, so the switch shows the last commanded value, initially on.
type SystemPower struct {
	base

	mu sync.Mutex
	on bool
}

func newSystemPower(b base) *SystemPower {
	b.uniqueID, b.name = "mhub_system_power", "MHUB System Power"
	return &SystemPower{base: b, on: true}
}

// Platform implements Entity.
func (s *SystemPower) Platform() Platform { return PlatformSwitch }

// Sync implements Entity. The commanded value is kept across refreshes.
func (s *SystemPower) Sync() {}

// On returns the last commanded chassis power.
func (s *SystemPower) On() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// State implements Entity.
func (s *SystemPower) State() State {
	return State{
		UniqueID:   s.uniqueID,
		Name:       s.name,
		Platform:   PlatformSwitch,
		Available:  s.source.Available(),
		State:      stateString(s.On()),
		Attributes: map[string]string{"icon": "mdi:power"},
	}
}

// Handle implements Entity. The flag flips immediately whatever the
// device answers.
func (s *SystemPower) Handle(_ context.Context, cmd Command) error {
	var on bool
	switch cmd.Action {
	case ActionTurnOn:
		on = true
	case ActionTurnOff:
		on = false
	default:
		return unsupported(s.uniqueID, cmd.Action)
	}

	s.mu.Lock()
	s.on = on
	s.mu.Unlock()

	s.logger.Info("sending system power", "on", on)
	s.publish(s)
	s.send(mhub.SystemPowerPath(on))
	return nil
}
