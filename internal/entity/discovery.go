package entity

import (
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// Manufacturer is reported in the discovery device block.
const Manufacturer = "HDANYWHERE"

// Home Assistant MQTT components. Outputs are discovered as selects since
// MQTT discovery has no media player.
const (
	componentSelect = "select"
	componentNumber = "number"
	componentSwitch = "switch"
)

// DeviceInfo describes the hub in discovery payloads.
type DeviceInfo struct {
	EntryID string
	Title   string
	Caps    mhub.Capabilities
}

// DiscoveryMessage is one retained discovery config.
type DiscoveryMessage struct {
	Topic   string
	Payload map[string]any
}

// Component returns the Home Assistant MQTT component for p.
func Component(p Platform) string {
	switch p {
	case PlatformMediaPlayer:
		return componentSelect
	case PlatformNumber:
		return componentNumber
	}
	return componentSwitch
}

// Discovery builds the discovery config for e. prefix and nodeID form the
// topic {prefix}/{component}/{nodeID}/{unique_id}/config.
func Discovery(e Entity, dev DeviceInfo, topics mqtt.Topics, prefix, nodeID string) DiscoveryMessage {
	uid := e.UniqueID()
	component := Component(e.Platform())

	payload := map[string]any{
		"name":                  e.Name(),
		"unique_id":             uid,
		"object_id":             uid,
		"state_topic":           topics.State(uid),
		"command_topic":         topics.Command(uid),
		"availability_topic":    topics.Availability(),
		"payload_available":     mqtt.PayloadOnline,
		"payload_not_available": mqtt.PayloadOffline,
		"json_attributes_topic": topics.Attributes(uid),
		"device":                deviceBlock(dev),
	}

	switch component {
	case componentSelect:
		st := e.State()
		options := st.SourceList
		if len(options) == 0 {
			options = []string{}
		}
		payload["options"] = options
		payload["value_template"] = "{{ value_json.source }}"
		payload["icon"] = "mdi:video-input-hdmi"
	case componentNumber:
		payload["value_template"] = "{{ value_json.value }}"
		payload["min"] = mhub.MinVolume
		payload["max"] = mhub.MaxVolume
		payload["step"] = 1
		payload["mode"] = "slider"
		payload["icon"] = "mdi:volume-high"
	case componentSwitch:
		payload["value_template"] = "{{ value_json.state }}"
		payload["state_on"] = StateOn
		payload["state_off"] = StateOff
		payload["payload_on"] = "ON"
		payload["payload_off"] = "OFF"
		if icon := e.State().Attributes["icon"]; icon != "" {
			payload["icon"] = icon
		}
	}

	return DiscoveryMessage{
		Topic:   mqtt.Discovery(prefix, component, nodeID, uid),
		Payload: payload,
	}
}

func deviceBlock(dev DeviceInfo) map[string]any {
	block := map[string]any{
		"identifiers":  []string{"mhub_" + dev.EntryID},
		"name":         dev.Title,
		"manufacturer": Manufacturer,
	}
	if dev.Caps.Model != "" {
		block["model"] = dev.Caps.Model
	}
	if dev.Caps.Firmware != "" {
		block["sw_version"] = dev.Caps.Firmware
	}
	return block
}
