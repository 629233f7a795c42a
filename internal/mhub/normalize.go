package mhub

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is one consistent pair of info and state payloads. A Snapshot is
// never modified after it has been published by the coordinator.
type Snapshot struct {
	// Info is the "data" object of the info endpoint: model and port topology.
	Info Document `json:"info"`

	// State is the "data" object of the state endpoint: zones and routing.
	State Document `json:"state"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Capabilities summarises what the hub is and what it can do.
type Capabilities struct {
	Model         string `json:"model,omitempty"`
	APIVersion    string `json:"api_version,omitempty"`
	Firmware      string `json:"firmware,omitempty"`
	SupportsPower bool   `json:"supports_power"`
	SupportsAudio bool   `json:"supports_audio"`
	InputCount    int    `json:"input_count"`
	OutputCount   int    `json:"output_count"`
	ZoneCount     int    `json:"zone_count"`
}

// PortLabel is one {id, label} pair of a port list.
type PortLabel struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Zone is a device-defined group of outputs.
type Zone struct {
	ID      string       `json:"id,omitempty"`
	Name    string       `json:"name,omitempty"`
	Records []ZoneRecord `json:"records"`
}

// ZoneRecord is the routing and audio state of one output. Values are kept
// as the device reported them; the accessor methods apply the defaults.
type ZoneRecord struct {
	OutputID string `json:"output_id"`
	InputID  any    `json:"input_id"`
	Volume   any    `json:"volume"`
	Mute     any    `json:"mute"`
}

// InputIDString renders the routed input id, or "" when absent.
func (r ZoneRecord) InputIDString() string {
	s, _ := scalarString(r.InputID)
	return s
}

// VolumeLevel returns the volume clamped to 0..100, or 0 when absent or
// unparseable.
func (r ZoneRecord) VolumeLevel() int {
	v, ok := intValue(r.Volume)
	if !ok {
		return 0
	}
	return ClampVolume(v)
}

// Muted returns the mute flag, false when absent or unparseable.
func (r ZoneRecord) Muted() bool {
	b, _ := boolValue(r.Mute)
	return b
}

// Active reports whether the output is showing a source: the input id is a
// positive integer, or a non-numeric non-empty marker.
func (r ZoneRecord) Active() bool {
	if !isNonEmpty(r.InputID) {
		return false
	}
	if n, ok := intValue(r.InputID); ok {
		return n > 0
	}
	return true
}

// Derive computes the capability summary from an info/state pair. It does
// not read or change SupportsPower, which comes from the separate probe.
// The inputs are not modified. Any failure, including a panic, is returned
// as an error wrapping ErrDerivation.
func Derive(info, state Document) (caps Capabilities, err error) {
	defer func() {
		if r := recover(); r != nil {
			caps = Capabilities{}
			err = fmt.Errorf("%w: %v", ErrDerivation, r)
		}
	}()

	base, err := childObject(info, "mhub")
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: %w", ErrDerivation, err)
	}
	caps.Model = firstString(base, "mhub_official_name", "mhub_name")
	caps.APIVersion = firstString(base, "api")
	caps.Firmware = firstString(base, "mhub-os_version", "mhub_firmware")

	io, err := childObject(info, "io_data")
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: %w", ErrDerivation, err)
	}
	caps.SupportsAudio = isNonEmpty(io["output_audio"]) ||
		isNonEmpty(io["output_audio_mirror"]) ||
		isNonEmpty(io["input_audio"]) ||
		isNonEmpty(io["input_audio_mirror"])

	if caps.InputCount, err = portCount(io, "input_video"); err != nil {
		return Capabilities{}, fmt.Errorf("%w: %w", ErrDerivation, err)
	}
	if caps.OutputCount, err = portCount(io, "output_video"); err != nil {
		return Capabilities{}, fmt.Errorf("%w: %w", ErrDerivation, err)
	}

	zones, err := childList(state, "zones")
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: %w", ErrDerivation, err)
	}
	caps.ZoneCount = len(zones)

	return caps, nil
}

// portCount reads the declared "ports" of the first entry of a port list.
// Without a usable number it falls back to the length of that entry's
// labels, then to the length of the list itself.
func portCount(io map[string]any, key string) (int, error) {
	ports, err := childList(io, key)
	if err != nil {
		return 0, err
	}
	if len(ports) == 0 {
		return 0, nil
	}

	first, ok := object(ports[0])
	if !ok {
		return len(ports), nil
	}
	if n, ok := intValue(first["ports"]); ok && n >= 0 {
		return n, nil
	}
	if labels, ok := list(first["labels"]); ok {
		return len(labels), nil
	}
	return len(ports), nil
}

// Zones returns every zone of the state payload with its output records.
// Records without an output id are skipped.
func (s *Snapshot) Zones() ([]Zone, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := childList(s.State, "zones")
	if err != nil {
		return nil, err
	}

	zones := make([]Zone, 0, len(raw))
	for i, z := range raw {
		zm, ok := object(z)
		if !ok {
			return nil, fmt.Errorf("%w: zones[%d] is %T, want object", ErrMalformed, i, z)
		}
		records, err := childList(zm, "state")
		if err != nil {
			return nil, fmt.Errorf("zones[%d]: %w", i, err)
		}

		zone := Zone{
			ID:      firstString(zm, "zone_id", "id"),
			Name:    firstString(zm, "zone_label", "label", "name"),
			Records: make([]ZoneRecord, 0, len(records)),
		}
		for j, r := range records {
			rm, ok := object(r)
			if !ok {
				return nil, fmt.Errorf("%w: zones[%d].state[%d] is %T, want object", ErrMalformed, i, j, r)
			}
			outputID, _ := scalarString(rm["output_id"])
			if outputID == "" {
				continue
			}
			zone.Records = append(zone.Records, ZoneRecord{
				OutputID: strings.ToLower(outputID),
				InputID:  rm["input_id"],
				Volume:   rm["volume"],
				Mute:     rm["mute"],
			})
		}
		zones = append(zones, zone)
	}
	return zones, nil
}

// ZoneRecord returns the first record for outputID (case-insensitive).
func (s *Snapshot) ZoneRecord(outputID string) (ZoneRecord, bool) {
	zones, err := s.Zones()
	if err != nil {
		return ZoneRecord{}, false
	}
	want := strings.ToLower(outputID)
	for _, z := range zones {
		for _, r := range z.Records {
			if r.OutputID == want {
				return r, true
			}
		}
	}
	return ZoneRecord{}, false
}

// OutputLabels maps each lower-cased output id to its label, across every
// entry of the output video port list.
func (s *Snapshot) OutputLabels() (map[string]string, error) {
	labels := make(map[string]string)
	if s == nil {
		return labels, nil
	}
	io, err := childObject(s.Info, "io_data")
	if err != nil {
		return nil, err
	}
	ports, err := childList(io, "output_video")
	if err != nil {
		return nil, err
	}
	for i, p := range ports {
		pm, ok := object(p)
		if !ok {
			return nil, fmt.Errorf("%w: output_video[%d] is %T, want object", ErrMalformed, i, p)
		}
		entries, err := portLabels(pm)
		if err != nil {
			return nil, fmt.Errorf("output_video[%d]: %w", i, err)
		}
		for _, e := range entries {
			labels[strings.ToLower(e.ID)] = e.Label
		}
	}
	return labels, nil
}

// InputLabels returns the labels of the first input video port list entry,
// in device order. An absent list yields no labels and no error.
func (s *Snapshot) InputLabels() ([]PortLabel, error) {
	if s == nil {
		return nil, nil
	}
	io, err := childObject(s.Info, "io_data")
	if err != nil {
		return nil, err
	}
	ports, err := childList(io, "input_video")
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, nil
	}
	first, ok := object(ports[0])
	if !ok {
		return nil, fmt.Errorf("%w: input_video[0] is %T, want object", ErrMalformed, ports[0])
	}
	return portLabels(first)
}

func portLabels(port map[string]any) ([]PortLabel, error) {
	raw, err := childList(port, "labels")
	if err != nil {
		return nil, err
	}
	out := make([]PortLabel, 0, len(raw))
	for i, l := range raw {
		lm, ok := object(l)
		if !ok {
			return nil, fmt.Errorf("%w: labels[%d] is %T, want object", ErrMalformed, i, l)
		}
		id, ok := scalarString(lm["id"])
		if !ok || id == "" {
			continue
		}
		label, _ := scalarString(lm["label"])
		out = append(out, PortLabel{ID: id, Label: label})
	}
	return out, nil
}
