package entity

import (
	"context"
	"errors"

	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// Platform is the kind of entity, named after the Home Assistant platform
// the original integration registered it under.
type Platform string

// Supported platforms.
const (
	PlatformMediaPlayer Platform = "media_player"
	PlatformNumber      Platform = "number"
	PlatformSwitch      Platform = "switch"
)

// On/off state values.
const (
	StateOn  = "on"
	StateOff = "off"
)

// Action is a user-level intent sent to an entity.
type Action string

// Supported actions.
const (
	ActionTurnOn       Action = "turn_on"
	ActionTurnOff      Action = "turn_off"
	ActionSelectSource Action = "select_source"
	ActionSetValue     Action = "set_value"
)

// Command is one action with its optional value.
type Command struct {
	Action Action `json:"action"`
	Value  any    `json:"value,omitempty"`
}

// State is the published view of one entity.
type State struct {
	UniqueID  string   `json:"unique_id"`
	Name      string   `json:"name"`
	Platform  Platform `json:"platform"`
	Available bool     `json:"available"`

	// State is "on" or "off" for media players and switches.
	State string `json:"state,omitempty"`

	// Value is the number reading (volume).
	Value *int `json:"value,omitempty"`
	Min   *int `json:"min,omitempty"`
	Max   *int `json:"max,omitempty"`

	Source     string   `json:"source,omitempty"`
	SourceList []string `json:"source_list,omitempty"`

	Attributes map[string]string `json:"attributes,omitempty"`
}

// Entity is one projection over the shared snapshot.
type Entity interface {
	UniqueID() string
	Name() string
	Platform() Platform

	// State returns the current view, including optimistic overrides.
	State() State

	// Sync recomputes the view from the coordinator after a successful
	// refresh and drops optimistic overrides the snapshot has superseded.
	Sync()

	// Handle applies cmd. Commands to the device are fire-and-forget; an
	// error means the command itself was not understood.
	Handle(ctx context.Context, cmd Command) error
}

// Source is the read side of the coordinator the views need.
type Source interface {
	Host() string
	Snapshot() *mhub.Snapshot
	Capabilities() mhub.Capabilities
	Available() bool
	Refresh(ctx context.Context) error
}

// Coordinator adds the label map and update subscription used by the
// registry. *mhub.Coordinator implements it.
type Coordinator interface {
	Source
	OutputLabels() map[string]string
	Subscribe(l mhub.Listener) (unsubscribe func())
}

// Dispatcher sends control requests. *mhub.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(path string) *mhub.Task
}

// Logger is the logging surface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Errors returned by entities and the registry.
var (
	// ErrNotFound is returned for an unknown unique id.
	ErrNotFound = errors.New("entity not found")

	// ErrUnsupportedAction is returned when an entity cannot perform an action.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrInvalidValue is returned when a command value cannot be interpreted.
	ErrInvalidValue = errors.New("invalid command value")
)
