package agent

import (
	"fmt"
	"strings"
)

// crisisKeywords are matched case-insensitively as substrings.
var crisisKeywords = []string{
	"suicide",
	"kill myself",
	"end it all",
	"not worth living",
	"everyone better off without me",
	"can't go on",
}

// UserState carries optional wellbeing signals about the person asking.
type UserState struct {
	RecoveryStatus bool   `json:"recovery_status" yaml:"recovery_status"`
	StressLevel    int    `json:"stress_level" yaml:"stress_level"` // 0-10
	AnchorReason   string `json:"anchor_reason" yaml:"anchor_reason"`
}

// CheckSafety inspects text for distress signals. It returns the alert and
// true on a crisis keyword, or a wellbeing reminder when state reports a
// person in recovery under high stress (> 8).
func (a *Agent) CheckSafety(text string, state UserState) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			return fmt.Sprintf("[CRISIS ALERT] %s detected distress signals. Escalating to support network.", a.id), true
		}
	}

	if state.RecoveryStatus && state.StressLevel > 8 {
		anchor := state.AnchorReason
		if anchor == "" {
			anchor = "You matter."
		}
		return fmt.Sprintf("[WELLBEING] %s noticed high stress. Reminder: %s", a.id, anchor), true
	}

	return "", false
}
