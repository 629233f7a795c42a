package entity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// fallbackSourceCount is the size of the generic source list used when the
// device's input list cannot be read.
const fallbackSourceCount = 8

// Output is the media view of one output: which input it shows, the
// selectable sources and a soft power state.
//
// Power is derived from the routed input. Turning the output on or off
// sends nothing to the device; the override holds until the derived power
// changes on its own.
type Output struct {
	base
	outputID string

	mu         sync.Mutex
	sourceList []string
	current    string
	active     bool

	pendingSource *string
	powerOverride *bool
	powerBasis    bool
}

func newOutput(b base, outputID, label string) *Output {
	b.uniqueID = "mhub_output_" + outputID
	b.name = outputDisplayName(outputID, label)
	return &Output{base: b, outputID: outputID}
}

// Platform implements Entity.
func (o *Output) Platform() Platform { return PlatformMediaPlayer }

// OutputID returns the lower-cased output id.
func (o *Output) OutputID() string { return o.outputID }

// Sync implements Entity.
func (o *Output) Sync() {
	snap := o.source.Snapshot()
	labels, list := o.sources(snap)

	current := ""
	active := false
	if rec, ok := snap.ZoneRecord(o.outputID); ok {
		current = labelForInput(labels, rec.InputIDString())
		active = rec.Active()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.sourceList = list
	o.current = current
	o.active = active
	o.pendingSource = nil
	if o.powerOverride != nil && active != o.powerBasis {
		o.powerOverride = nil
	}
}

// sources returns the input labels and the source list. A malformed input
// list yields the generic "Input 1".."Input 8" list.
func (o *Output) sources(snap *mhub.Snapshot) ([]mhub.PortLabel, []string) {
	labels, err := snap.InputLabels()
	if err != nil {
		o.logger.Warn("input list unreadable, using generic sources", "entity", o.uniqueID, "error", err)
		list := make([]string, 0, fallbackSourceCount)
		for i := 1; i <= fallbackSourceCount; i++ {
			list = append(list, fmt.Sprintf("Input %d", i))
		}
		return nil, list
	}
	list := make([]string, 0, len(labels))
	for _, l := range labels {
		list = append(list, l.Label)
	}
	return labels, list
}

// State implements Entity.
func (o *Output) State() State {
	caps := o.source.Capabilities()

	o.mu.Lock()
	defer o.mu.Unlock()

	on := o.active
	if o.powerOverride != nil {
		on = *o.powerOverride
	}
	current := o.current
	if o.pendingSource != nil {
		current = *o.pendingSource
	}
	return State{
		UniqueID:   o.uniqueID,
		Name:       o.name,
		Platform:   PlatformMediaPlayer,
		Available:  o.source.Available(),
		State:      stateString(on),
		Source:     current,
		SourceList: append([]string(nil), o.sourceList...),
		Attributes: map[string]string{
			"Output":   strings.ToUpper(o.outputID),
			"Model":    caps.Model,
			"Firmware": caps.Firmware,
		},
	}
}

// Handle implements Entity.
func (o *Output) Handle(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case ActionTurnOn, ActionTurnOff:
		o.setPower(cmd.Action == ActionTurnOn)
		o.publish(o)
		o.refresh(ctx)
		return nil

	case ActionSelectSource:
		label, err := cmd.StringValue()
		if err != nil {
			return err
		}
		labels, _ := o.source.Snapshot().InputLabels()
		inputID := inputForLabel(labels, label)

		o.mu.Lock()
		o.pendingSource = &label
		o.overridePowerLocked(true)
		o.mu.Unlock()

		o.logger.Info("switching output", "output", strings.ToUpper(o.outputID), "input", inputID)
		o.publish(o)
		o.send(mhub.SwitchPath(o.outputID, inputID))
		return nil
	}
	return unsupported(o.uniqueID, cmd.Action)
}

func (o *Output) setPower(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.overridePowerLocked(on)
}

func (o *Output) overridePowerLocked(on bool) {
	o.powerOverride = &on
	o.powerBasis = o.active
}

// labelForInput returns the label of inputID, or "Input {id}" when the
// input list has no such entry. An absent id has no label.
func labelForInput(labels []mhub.PortLabel, inputID string) string {
	if inputID == "" {
		return ""
	}
	for _, l := range labels {
		if l.ID == inputID {
			return l.Label
		}
	}
	return "Input " + inputID
}

// inputForLabel returns the id of the input labelled label. Unknown labels
// fall back to their digits ("Input 3" selects 3), then to "1".
func inputForLabel(labels []mhub.PortLabel, label string) string {
	for _, l := range labels {
		if l.Label == label {
			return l.ID
		}
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, label)
	if digits == "" {
		return "1"
	}
	return digits
}
