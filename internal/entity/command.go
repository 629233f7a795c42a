package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringValue returns the command value as a string.
func (c Command) StringValue() (string, error) {
	switch v := c.Value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", fmt.Errorf("%w: %s needs a string, got %T", ErrInvalidValue, c.Action, c.Value)
}

// IntValue returns the command value as an integer. Fractions are rounded.
func (c Command) IntValue() (int, error) {
	switch v := c.Value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			break
		}
		return int(math.Round(v)), nil
	case int:
		return v, nil
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return int(math.Round(f)), nil
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(math.Round(f)), nil
		}
	}
	return 0, fmt.Errorf("%w: %s needs a number, got %v", ErrInvalidValue, c.Action, c.Value)
}

// ParsePayload translates a raw command payload for an entity of the given
// platform. A JSON object payload is decoded as a Command. Otherwise:
//
//	switch        ON | OFF
//	number        a number, sent as set_value
//	media_player  ON | OFF, or a source label sent as select_source
func ParsePayload(platform Platform, payload []byte) (Command, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return Command{}, fmt.Errorf("%w: empty payload", ErrInvalidValue)
	}

	if strings.HasPrefix(text, "{") {
		var cmd Command
		if err := json.Unmarshal([]byte(text), &cmd); err != nil {
			return Command{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
		}
		if cmd.Action == "" {
			return Command{}, fmt.Errorf("%w: missing action", ErrInvalidValue)
		}
		return cmd, nil
	}

	onOff, isOnOff := parseOnOff(text)
	switch platform {
	case PlatformSwitch:
		if !isOnOff {
			return Command{}, fmt.Errorf("%w: switch payload %q", ErrInvalidValue, text)
		}
		return onOff, nil
	case PlatformNumber:
		return Command{Action: ActionSetValue, Value: text}, nil
	case PlatformMediaPlayer:
		if isOnOff {
			return onOff, nil
		}
		return Command{Action: ActionSelectSource, Value: text}, nil
	}
	return Command{}, fmt.Errorf("%w: platform %q", ErrUnsupportedAction, platform)
}

func parseOnOff(text string) (Command, bool) {
	switch strings.ToUpper(text) {
	case "ON", "TRUE", "1":
		return Command{Action: ActionTurnOn}, true
	case "OFF", "FALSE", "0":
		return Command{Action: ActionTurnOff}, true
	}
	return Command{}, false
}
