package models

import "fmt"

// Command is one member of the closed set of device mutations. Dynamic
// field-by-name writes are not supported; every command is validated against
// the variant of the device it targets before it is persisted.
type Command interface {
	// Fields returns the document fields the command writes.
	Fields() map[string]any
	// ValidFor reports whether the command applies to the device variant.
	ValidFor(d Device) error
}

// SetOn switches a light or fan on or off.
type SetOn struct {
	On bool `json:"on"`
}

func (c SetOn) Fields() map[string]any { return map[string]any{"isOn": c.On} }

func (c SetOn) ValidFor(d Device) error {
	if d.Type != TypeLight && d.Type != TypeFan {
		return fmt.Errorf("device %s (%s) is not switchable", d.ID, d.Type)
	}
	return nil
}

// SetTargetTemp adjusts a thermostat's setpoint.
type SetTargetTemp struct {
	Value float64 `json:"value"`
}

func (c SetTargetTemp) Fields() map[string]any { return map[string]any{"targetTemp": c.Value} }

func (c SetTargetTemp) ValidFor(d Device) error {
	if d.Type != TypeThermostat {
		return fmt.Errorf("device %s (%s) has no target temperature", d.ID, d.Type)
	}
	if c.Value < 60 || c.Value > 85 {
		return fmt.Errorf("target temperature %.1f out of range 60-85", c.Value)
	}
	return nil
}

// SetBrightness adjusts a light's brightness.
type SetBrightness struct {
	Level int `json:"level"`
}

func (c SetBrightness) Fields() map[string]any { return map[string]any{"brightness": c.Level} }

func (c SetBrightness) ValidFor(d Device) error {
	if d.Type != TypeLight {
		return fmt.Errorf("device %s (%s) has no brightness", d.ID, d.Type)
	}
	if c.Level < 0 || c.Level > 100 {
		return fmt.Errorf("brightness %d out of range 0-100", c.Level)
	}
	return nil
}

// SetCurrentTemp records a new thermostat reading. Issued by the telemetry
// ingest path, never by users or rules.
type SetCurrentTemp struct {
	Value float64 `json:"value"`
}

func (c SetCurrentTemp) Fields() map[string]any { return map[string]any{"currentTemp": c.Value} }

func (c SetCurrentTemp) ValidFor(d Device) error {
	if d.Type != TypeThermostat {
		return fmt.Errorf("device %s (%s) has no current temperature", d.ID, d.Type)
	}
	return nil
}

// Mutation is a single field-level change targeting one device.
type Mutation struct {
	DeviceID string
	Command  Command
}

// Firing pairs a mutation with the rule that produced it, so the caller can
// emit one "rule fired" notification per mutation.
type Firing struct {
	RuleID   string
	RuleName string
	Mutation Mutation
}
