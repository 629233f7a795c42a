package mhub

import (
	"fmt"
	"net/url"
	"strings"
)

// Data and probe endpoints.
const (
	InfoPath       = "/api/data/100/"
	StatePath      = "/api/data/200/"
	PowerProbePath = "/api/control/power/a/1/"
)

// Volume bounds accepted by the volume endpoint.
const (
	MinVolume = 0
	MaxVolume = 100
)

func outputSegment(outputID string) string {
	return url.PathEscape(strings.ToLower(strings.TrimSpace(outputID)))
}

// SwitchPath routes inputID to outputID.
func SwitchPath(outputID, inputID string) string {
	return fmt.Sprintf("/api/control/switch/%s/%s/", outputSegment(outputID), url.PathEscape(strings.TrimSpace(inputID)))
}

// VolumePath sets the volume of outputID, clamped to 0..100.
func VolumePath(outputID string, volume int) string {
	return fmt.Sprintf("/api/control/volume/%s/%d/", outputSegment(outputID), ClampVolume(volume))
}

// MutePath mutes or unmutes outputID.
func MutePath(outputID string, muted bool) string {
	return fmt.Sprintf("/api/control/mute/%s/%t/", outputSegment(outputID), muted)
}

// GlobalPowerPath switches every output on or off.
func GlobalPowerPath(on bool) string {
	return fmt.Sprintf("/api/power/%d/", boolDigit(on))
}

// SystemPowerPath switches the chassis on or off.
func SystemPowerPath(on bool) string {
	return fmt.Sprintf("/api/control/power/%d/", boolDigit(on))
}

// ClampVolume limits v to the range the device accepts.
func ClampVolume(v int) int {
	return max(MinVolume, min(MaxVolume, v))
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}
