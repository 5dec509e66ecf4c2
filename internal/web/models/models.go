package models

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// AddRuleRequest is the rule-creation form. Every field is required; the
// handler rejects incomplete forms locally before any write is attempted.
type AddRuleRequest struct {
	Name             string `json:"name"`
	TriggerDevice    string `json:"triggerDevice"`
	TriggerCondition string `json:"triggerCondition"`
	TriggerValue     string `json:"triggerValue"`
	ActionDevice     string `json:"actionDevice"`
	ActionType       string `json:"actionType"`
	ActionValue      string `json:"actionValue"`
}

// CommandRequest is one typed device command from a toggle or slider.
type CommandRequest struct {
	Type  string   `json:"type"` // set_on | set_target_temp | set_brightness
	On    *bool    `json:"on,omitempty"`
	Value *float64 `json:"value,omitempty"`
	Level *int     `json:"level,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
