package models

// DeviceType tags the device variant. Type is immutable after creation.
type DeviceType string

const (
	TypeThermostat DeviceType = "thermostat"
	TypeLight      DeviceType = "light"
	TypeFan        DeviceType = "fan"
	TypeHumidity   DeviceType = "humidity"
)

// Device represents one simulated home appliance. Fields beyond the common
// header are capability fields: set only for the variants that carry them,
// nil otherwise.
type Device struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Room string     `json:"room"`
	Type DeviceType `json:"type"`

	// thermostat
	TargetTemp  *float64 `json:"targetTemp,omitempty"`
	CurrentTemp *float64 `json:"currentTemp,omitempty"`

	// light / fan
	IsOn       *bool `json:"isOn,omitempty"`
	Brightness *int  `json:"brightness,omitempty"`
	Speed      *int  `json:"speed,omitempty"`

	// humidity sensor (read-only)
	Humidity *float64 `json:"humidity,omitempty"`
}

// CurrentReading returns the device's numeric current reading. Only the
// thermostat exposes one; numeric trigger comparisons are tied to this
// reading regardless of device type.
func (d Device) CurrentReading() (float64, bool) {
	if d.Type == TypeThermostat && d.CurrentTemp != nil {
		return *d.CurrentTemp, true
	}
	return 0, false
}

// OnState returns the device's on/off state for variants that have one.
// The second result reports whether the variant is switchable at all.
func (d Device) OnState() (bool, bool) {
	switch d.Type {
	case TypeLight, TypeFan:
		if d.IsOn != nil {
			return *d.IsOn, true
		}
		return false, true
	}
	return false, false
}

// Rule is a user-configured trigger/action pair. Device references may
// dangle; the engine skips rules whose devices are absent.
type Rule struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	TriggerDevice    string `json:"triggerDevice"`
	TriggerCondition string `json:"triggerCondition"` // ">", "<", "=="
	TriggerValue     string `json:"triggerValue"`     // number or "on"/"off"
	ActionDevice     string `json:"actionDevice"`
	ActionType       string `json:"actionType"` // "toggle" or "set"
	ActionValue      string `json:"actionValue"`
}

// HistorySample is one telemetry reading in the append-only history log.
type HistorySample struct {
	ID        string  `json:"id"`
	DeviceID  string  `json:"deviceId"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// Feedback is a user-visible notification produced by the dispatcher.
type Feedback struct {
	Message string `json:"message"`
	Type    string `json:"type"` // "success" or "error"
}

const (
	FeedbackSuccess = "success"
	FeedbackError   = "error"
)
