package engine

import (
	"strconv"

	"homeboard/internal/models"
)

// Evaluate is the rule-evaluation core: a pure function from a device
// snapshot and a rule sequence to the mutations needed to satisfy the rules.
// It holds no state and performs no I/O; calling it twice with the same
// inputs yields the same output.
//
// One pass, in rule insertion order, no fixpoint iteration. Rules whose
// trigger or action device is absent from the snapshot are skipped silently;
// dangling references are expected. The applied action is always the on/off
// write derived from ActionValue == "on"; the rule form accepts a numeric
// ActionType but the action path only switches devices.
func Evaluate(devices []models.Device, rules []models.Rule) []models.Firing {
	index := make(map[string]models.Device, len(devices))
	for _, d := range devices {
		index[d.ID] = d
	}

	var firings []models.Firing
	// Once a mutation is emitted for a device, later rules targeting it in
	// the same pass are skipped: first matching rule wins.
	targeted := make(map[string]bool)

	for _, r := range rules {
		trigger, ok := index[r.TriggerDevice]
		if !ok {
			continue
		}
		if !conditionHolds(trigger, r.TriggerCondition, r.TriggerValue) {
			continue
		}
		action, ok := index[r.ActionDevice]
		if !ok {
			continue
		}
		if targeted[action.ID] {
			continue
		}

		want := r.ActionValue == "on"
		current, switchable := action.OnState()
		if !switchable {
			continue
		}
		// Idempotence guard: only emit when the action device's state, as
		// seen in the input snapshot, differs from the desired state. This
		// is what keeps the evaluate-apply-refresh loop from oscillating.
		if current == want {
			continue
		}

		targeted[action.ID] = true
		firings = append(firings, models.Firing{
			RuleID:   r.ID,
			RuleName: r.Name,
			Mutation: models.Mutation{
				DeviceID: action.ID,
				Command:  models.SetOn{On: want},
			},
		})
	}
	return firings
}

// conditionHolds evaluates a trigger condition against the trigger device's
// current reading. Numeric comparisons are tied to the device's
// current-temperature reading; devices without one never satisfy them.
// Unparseable numeric trigger values never fire (a NaN comparison is false),
// which is accepted behavior rather than an error.
func conditionHolds(d models.Device, cond, value string) bool {
	switch cond {
	case ">", "<":
		reading, ok := d.CurrentReading()
		if !ok {
			return false
		}
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		if cond == ">" {
			return reading > threshold
		}
		return reading < threshold
	case "==":
		on, ok := d.OnState()
		if !ok {
			return false
		}
		return on == (value == "on")
	}
	return false
}
