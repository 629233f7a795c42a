package entity

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestOutput_Sync(t *testing.T) {
	coord := newFakeCoordinator(t)
	disp := &fakeDispatcher{}

	tests := []struct {
		outputID   string
		label      string
		wantName   string
		wantSource string
		wantState  string
	}{
		{"a", "Living Room", "Living Room", "Sky Q", StateOn},
		{"b", "Kitchen", "Kitchen", "Apple TV", StateOn},
		{"c", "", "Output C", "Input 0", StateOff},
		{"d", "Garage", "Garage", "", StateOff},
	}

	for _, tt := range tests {
		t.Run(tt.outputID, func(t *testing.T) {
			o := newOutput(testBase(coord, disp, nil), tt.outputID, tt.label)
			o.Sync()
			st := o.State()

			if st.UniqueID != "mhub_output_"+tt.outputID {
				t.Errorf("UniqueID = %q", st.UniqueID)
			}
			if st.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", st.Name, tt.wantName)
			}
			if st.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", st.Source, tt.wantSource)
			}
			if st.State != tt.wantState {
				t.Errorf("State = %q, want %q", st.State, tt.wantState)
			}
			want := []string{"Apple TV", "Sky Q", "PS5", "Chromecast"}
			if !reflect.DeepEqual(st.SourceList, want) {
				t.Errorf("SourceList = %v, want %v", st.SourceList, want)
			}
		})
	}
}

func TestOutput_Attributes(t *testing.T) {
	coord := newFakeCoordinator(t)
	o := newOutput(testBase(coord, &fakeDispatcher{}, nil), "a", "Living Room")
	o.Sync()

	attrs := o.State().Attributes
	if attrs["Output"] != "A" || attrs["Model"] != "MHUB U 4x3+1" || attrs["Firmware"] != "8.01" {
		t.Errorf("Attributes = %v", attrs)
	}
}

func TestOutput_MalformedInputsUseGenericSources(t *testing.T) {
	coord := newFakeCoordinator(t)
	coord.setSnapshot(t, `{"io_data":{"input_video":[{"labels":"broken"}]}}`, fixtureState)
	o := newOutput(testBase(coord, &fakeDispatcher{}, nil), "a", "Living Room")
	o.Sync()

	st := o.State()
	if len(st.SourceList) != 8 || st.SourceList[0] != "Input 1" || st.SourceList[7] != "Input 8" {
		t.Errorf("SourceList = %v, want Input 1..Input 8", st.SourceList)
	}
	if st.Source != "Input 2" {
		t.Errorf("Source = %q, want Input 2", st.Source)
	}
}

func TestOutput_SelectSource(t *testing.T) {
	tests := []struct {
		label    string
		wantPath string
	}{
		{"PS5", "/api/control/switch/a/3/"},
		{"Input 7", "/api/control/switch/a/7/"},
		{"Mystery Box", "/api/control/switch/a/1/"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			coord := newFakeCoordinator(t)
			disp := &fakeDispatcher{}
			var written []string
			o := newOutput(testBase(coord, disp, &written), "a", "Living Room")
			o.Sync()

			err := o.Handle(context.Background(), Command{Action: ActionSelectSource, Value: tt.label})
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := disp.sent(); len(got) != 1 || got[0] != tt.wantPath {
				t.Errorf("dispatched = %v, want [%s]", got, tt.wantPath)
			}
			st := o.State()
			if st.Source != tt.label || st.State != StateOn {
				t.Errorf("optimistic state = %q/%q, want %q/on", st.Source, st.State, tt.label)
			}
			if len(written) != 1 {
				t.Errorf("state writes = %d, want 1", len(written))
			}

			// The device did not change: the refresh restores its value.
			o.Sync()
			if got := o.State().Source; got != "Sky Q" {
				t.Errorf("Source after reconcile = %q, want Sky Q", got)
			}
		})
	}
}

func TestOutput_SelectSourceNeedsString(t *testing.T) {
	o := newOutput(testBase(newFakeCoordinator(t), &fakeDispatcher{}, nil), "a", "Living Room")
	err := o.Handle(context.Background(), Command{Action: ActionSelectSource, Value: []any{1}})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Handle() error = %v, want ErrInvalidValue", err)
	}
}

func TestOutput_SoftPower(t *testing.T) {
	coord := newFakeCoordinator(t)
	disp := &fakeDispatcher{}
	o := newOutput(testBase(coord, disp, nil), "a", "Living Room")
	o.Sync()

	if err := o.Handle(context.Background(), Command{Action: ActionTurnOff}); err != nil {
		t.Fatalf("Handle(turn_off) error = %v", err)
	}
	if len(disp.sent()) != 0 {
		t.Errorf("soft power dispatched %v", disp.sent())
	}
	if coord.refreshCount() != 1 {
		t.Errorf("refreshes = %d, want 1", coord.refreshCount())
	}
	if o.State().State != StateOff {
		t.Error("State after turn_off should be off")
	}

	// Unchanged routing keeps the soft state.
	o.Sync()
	if o.State().State != StateOff {
		t.Error("soft off lost on an unchanged refresh")
	}

	// Routing that changes on its own takes over again.
	coord.setSnapshot(t, fixtureInfo, `{"zones":[{"state":[{"output_id":"a","input_id":"0"}]}]}`)
	o.Sync()
	coord.setSnapshot(t, fixtureInfo, fixtureState)
	o.Sync()
	if o.State().State != StateOn {
		t.Error("derived power should apply once the override is superseded")
	}

	if err := o.Handle(context.Background(), Command{Action: ActionTurnOn}); err != nil {
		t.Fatalf("Handle(turn_on) error = %v", err)
	}
	if o.State().State != StateOn {
		t.Error("State after turn_on should be on")
	}
}

func TestOutput_UnsupportedAction(t *testing.T) {
	o := newOutput(testBase(newFakeCoordinator(t), &fakeDispatcher{}, nil), "a", "Living Room")
	err := o.Handle(context.Background(), Command{Action: ActionSetValue, Value: 3})
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("Handle() error = %v, want ErrUnsupportedAction", err)
	}
}

func TestVolume(t *testing.T) {
	coord := newFakeCoordinator(t)
	disp := &fakeDispatcher{}

	a := newVolume(testBase(coord, disp, nil), "a", "Living Room")
	b := newVolume(testBase(coord, disp, nil), "b", "Kitchen")
	c := newVolume(testBase(coord, disp, nil), "c", "")
	missing := newVolume(testBase(coord, disp, nil), "z", "Nowhere")
	for _, v := range []*Volume{a, b, c, missing} {
		v.Sync()
	}

	if a.Level() != 40 || b.Level() != 35 || c.Level() != 0 || missing.Level() != 0 {
		t.Errorf("levels = %d %d %d %d, want 40 35 0 0", a.Level(), b.Level(), c.Level(), missing.Level())
	}
	if a.Name() != "Living Room Volume" || c.Name() != "Output C Volume" {
		t.Errorf("names = %q, %q", a.Name(), c.Name())
	}

	st := a.State()
	if st.Platform != PlatformNumber || *st.Value != 40 || *st.Min != 0 || *st.Max != 100 {
		t.Errorf("State() = %+v", st)
	}
}

func TestVolume_SetValue(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		wantPath string
		wantShow int
	}{
		{"json number", float64(57), "/api/control/volume/a/57/", 57},
		{"string", "63", "/api/control/volume/a/63/", 63},
		{"too loud", float64(150), "/api/control/volume/a/100/", 100},
		{"negative", -4, "/api/control/volume/a/0/", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := newFakeCoordinator(t)
			disp := &fakeDispatcher{}
			v := newVolume(testBase(coord, disp, nil), "a", "Living Room")
			v.Sync()

			if err := v.Handle(context.Background(), Command{Action: ActionSetValue, Value: tt.value}); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := disp.sent(); len(got) != 1 || got[0] != tt.wantPath {
				t.Errorf("dispatched = %v, want [%s]", got, tt.wantPath)
			}
			if v.Level() != tt.wantShow {
				t.Errorf("optimistic Level() = %d, want %d", v.Level(), tt.wantShow)
			}

			// A rejected command reconciles back to the device value.
			v.Sync()
			if v.Level() != 40 {
				t.Errorf("Level() after reconcile = %d, want 40", v.Level())
			}
		})
	}
}

func TestVolume_InvalidValue(t *testing.T) {
	v := newVolume(testBase(newFakeCoordinator(t), &fakeDispatcher{}, nil), "a", "Living Room")
	if err := v.Handle(context.Background(), Command{Action: ActionSetValue, Value: "loud"}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Handle() error = %v, want ErrInvalidValue", err)
	}
	if err := v.Handle(context.Background(), Command{Action: ActionTurnOn}); !errors.Is(err, ErrUnsupportedAction) {
		t.Errorf("Handle(turn_on) error = %v, want ErrUnsupportedAction", err)
	}
}

func TestMute(t *testing.T) {
	coord := newFakeCoordinator(t)
	disp := &fakeDispatcher{}

	a := newMute(testBase(coord, disp, nil), "a", "Living Room")
	b := newMute(testBase(coord, disp, nil), "b", "Kitchen")
	c := newMute(testBase(coord, disp, nil), "c", "")
	for _, m := range []*Mute{a, b, c} {
		m.Sync()
	}
	if a.Muted() || !b.Muted() || c.Muted() {
		t.Errorf("muted = %v %v %v, want false true false", a.Muted(), b.Muted(), c.Muted())
	}
	if b.State().State != StateOn {
		t.Errorf("b State = %q, want on", b.State().State)
	}

	if err := b.Handle(context.Background(), Command{Action: ActionTurnOff}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := a.Handle(context.Background(), Command{Action: ActionTurnOn}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	want := []string{"/api/control/mute/b/false/", "/api/control/mute/a/true/"}
	if got := disp.sent(); !reflect.DeepEqual(got, want) {
		t.Errorf("dispatched = %v, want %v", got, want)
	}
	if b.Muted() || !a.Muted() {
		t.Error("optimistic mute not applied")
	}
}

func TestPowerTrigger(t *testing.T) {
	coord := newFakeCoordinator(t)
	disp := &fakeDispatcher{}
	var written []string
	on := newPowerTrigger(testBase(coord, disp, &written), true)
	off := newPowerTrigger(testBase(coord, disp, &written), false)

	if on.UniqueID() != "mhub_power_on" || off.UniqueID() != "mhub_power_off" {
		t.Errorf("unique ids = %q, %q", on.UniqueID(), off.UniqueID())
	}

	for _, p := range []*PowerTrigger{on, off} {
		if err := p.Handle(context.Background(), Command{Action: ActionTurnOn}); err != nil {
			t.Fatalf("Handle() error = %v", err)
		}
		if p.State().State != StateOff {
			t.Errorf("%s State = %q, want off", p.UniqueID(), p.State().State)
		}
	}
	if err := on.Handle(context.Background(), Command{Action: ActionTurnOff}); err != nil {
		t.Fatalf("Handle(turn_off) error = %v", err)
	}

	want := []string{"/api/power/1/", "/api/power/0/"}
	if got := disp.sent(); !reflect.DeepEqual(got, want) {
		t.Errorf("dispatched = %v, want %v", got, want)
	}
	if len(written) != 3 {
		t.Errorf("state writes = %d, want 3", len(written))
	}
}

func TestSystemPower(t *testing.T) {
	coord := newFakeCoordinator(t)
	disp := &fakeDispatcher{}
	s := newSystemPower(testBase(coord, disp, nil))

	if !s.On() {
		t.Error("system power should start on")
	}
	if err := s.Handle(context.Background(), Command{Action: ActionTurnOff}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if s.On() || s.State().State != StateOff {
		t.Error("system power should be off after turn_off")
	}

	s.Sync()
	if s.On() {
		t.Error("Sync() must not change the commanded value")
	}

	if err := s.Handle(context.Background(), Command{Action: ActionTurnOn}); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	want := []string{"/api/control/power/0/", "/api/control/power/1/"}
	if got := disp.sent(); !reflect.DeepEqual(got, want) {
		t.Errorf("dispatched = %v, want %v", got, want)
	}
}

func TestStateAvailabilityFollowsCoordinator(t *testing.T) {
	coord := newFakeCoordinator(t)
	v := newVolume(testBase(coord, &fakeDispatcher{}, nil), "a", "Living Room")
	v.Sync()

	if !v.State().Available {
		t.Error("Available = false, want true")
	}
	coord.setAvailable(false)
	if v.State().Available {
		t.Error("Available = true after the hub became unavailable")
	}
}
