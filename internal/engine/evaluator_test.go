package engine

import (
	"testing"

	"homeboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func thermostat(id string, current float64) models.Device {
	return models.Device{
		ID: id, Name: id, Type: models.TypeThermostat,
		TargetTemp: ptr(72.0), CurrentTemp: ptr(current),
	}
}

func fan(id string, on bool) models.Device {
	return models.Device{ID: id, Name: id, Type: models.TypeFan, IsOn: ptr(on)}
}

func light(id string, on bool) models.Device {
	return models.Device{ID: id, Name: id, Type: models.TypeLight, IsOn: ptr(on), Brightness: ptr(50)}
}

func rule(id, trigger, cond, trigVal, action, actVal string) models.Rule {
	return models.Rule{
		ID: id, Name: "rule " + id,
		TriggerDevice: trigger, TriggerCondition: cond, TriggerValue: trigVal,
		ActionDevice: action, ActionType: "toggle", ActionValue: actVal,
	}
}

func TestEvaluateFiresWhenThresholdExceeded(t *testing.T) {
	devices := []models.Device{thermostat("t1", 76), fan("f1", false)}
	rules := []models.Rule{rule("r1", "t1", ">", "75", "f1", "on")}

	firings := Evaluate(devices, rules)
	require.Len(t, firings, 1)
	assert.Equal(t, "f1", firings[0].Mutation.DeviceID)
	assert.Equal(t, models.SetOn{On: true}, firings[0].Mutation.Command)
	assert.Equal(t, "rule r1", firings[0].RuleName)
}

func TestEvaluateIdempotenceGuard(t *testing.T) {
	// Same rule, but the fan is already on: nothing to do.
	devices := []models.Device{thermostat("t1", 76), fan("f1", true)}
	rules := []models.Rule{rule("r1", "t1", ">", "75", "f1", "on")}

	assert.Empty(t, Evaluate(devices, rules))
}

func TestEvaluateNoOscillationAfterApply(t *testing.T) {
	devices := []models.Device{thermostat("t1", 76), fan("f1", false)}
	rules := []models.Rule{rule("r1", "t1", ">", "75", "f1", "on")}

	firings := Evaluate(devices, rules)
	require.Len(t, firings, 1)

	// Apply the emitted mutation and re-evaluate: no further mutation for
	// the same device may appear.
	on := firings[0].Mutation.Command.(models.SetOn).On
	applied := []models.Device{thermostat("t1", 76), fan("f1", on)}
	assert.Empty(t, Evaluate(applied, rules))
}

func TestEvaluateIsPure(t *testing.T) {
	devices := []models.Device{thermostat("t1", 76), fan("f1", false), light("l1", true)}
	rules := []models.Rule{
		rule("r1", "t1", ">", "75", "f1", "on"),
		rule("r2", "l1", "==", "on", "f1", "off"),
	}

	first := Evaluate(devices, rules)
	second := Evaluate(devices, rules)
	assert.Equal(t, first, second)
}

func TestEvaluateSkipsDanglingReferences(t *testing.T) {
	devices := []models.Device{fan("f1", false)}
	rules := []models.Rule{
		rule("r1", "missing-1", ">", "75", "f1", "on"),
		rule("r2", "f1", "==", "on", "missing-2", "on"),
	}

	assert.Empty(t, Evaluate(devices, rules))
}

func TestEvaluateNonNumericTriggerValueNeverFires(t *testing.T) {
	devices := []models.Device{thermostat("t1", 76), fan("f1", false)}
	rules := []models.Rule{rule("r1", "t1", ">", "warm", "f1", "on")}

	assert.Empty(t, Evaluate(devices, rules))
}

func TestEvaluateNumericConditionNeedsCurrentReading(t *testing.T) {
	// Lights carry no current-temperature reading, so numeric comparisons
	// against them can never hold.
	devices := []models.Device{light("l1", true), fan("f1", false)}
	rules := []models.Rule{rule("r1", "l1", ">", "10", "f1", "on")}

	assert.Empty(t, Evaluate(devices, rules))
}

func TestEvaluateEqualsComparesOnState(t *testing.T) {
	devices := []models.Device{light("l1", true), fan("f1", false)}
	rules := []models.Rule{rule("r1", "l1", "==", "on", "f1", "on")}

	firings := Evaluate(devices, rules)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SetOn{On: true}, firings[0].Mutation.Command)
}

func TestEvaluateFirstRuleWinsPerDevice(t *testing.T) {
	// Two rules target the same fan with opposite desired states; only the
	// first (insertion order) emits.
	devices := []models.Device{thermostat("t1", 80), fan("f1", false)}
	rules := []models.Rule{
		rule("r1", "t1", ">", "75", "f1", "on"),
		rule("r2", "t1", ">", "70", "f1", "off"),
	}

	firings := Evaluate(devices, rules)
	require.Len(t, firings, 1)
	assert.Equal(t, "r1", firings[0].RuleID)
	assert.Equal(t, models.SetOn{On: true}, firings[0].Mutation.Command)
}

func TestEvaluateLessThan(t *testing.T) {
	devices := []models.Device{thermostat("t1", 68), fan("f1", true)}
	rules := []models.Rule{rule("r1", "t1", "<", "70", "f1", "off")}

	firings := Evaluate(devices, rules)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SetOn{On: false}, firings[0].Mutation.Command)
}

func TestEvaluateActionValueOtherThanOnMeansOff(t *testing.T) {
	// Any action value other than "on" switches the device off, whatever
	// the action type says.
	devices := []models.Device{thermostat("t1", 80), fan("f1", true)}
	rules := []models.Rule{rule("r1", "t1", ">", "75", "f1", "100")}

	firings := Evaluate(devices, rules)
	require.Len(t, firings, 1)
	assert.Equal(t, models.SetOn{On: false}, firings[0].Mutation.Command)
}

func TestEvaluateEmptyInputs(t *testing.T) {
	assert.Empty(t, Evaluate(nil, nil))
	assert.Empty(t, Evaluate([]models.Device{fan("f1", false)}, nil))
	assert.Empty(t, Evaluate(nil, []models.Rule{rule("r1", "t1", ">", "75", "f1", "on")}))
}
