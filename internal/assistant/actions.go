package assistant

import (
	"strings"
)

type ActionKind string

const (
	ActionSetAlarm    ActionKind = "SET_ALARM"
	ActionAddTodo     ActionKind = "ADD_TODO"
	ActionSetReminder ActionKind = "SET_REMINDER"
)

func (k ActionKind) Known() bool {
	switch k {
	case ActionSetAlarm, ActionAddTodo, ActionSetReminder:
		return true
	default:
		return false
	}
}

type Action struct {
	Kind    ActionKind
	Details string
}

// ParseActions reads "ACTION: <kind>" / "DETAILS: <text>" pairs out of a
// model analysis. Unknown kinds are skipped.
func ParseActions(analysis string) []Action {
	var actions []Action
	var current *Action

	flush := func() {
		if current != nil && current.Kind.Known() {
			current.Details = strings.TrimSpace(current.Details)
			actions = append(actions, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(analysis, "\n") {
		line = strings.TrimSpace(line)

		if i := strings.Index(line, "ACTION:"); i >= 0 {
			flush()
			rest := line[i+len("ACTION:"):]
			details := ""
			if j := strings.Index(rest, "DETAILS:"); j >= 0 {
				details = rest[j+len("DETAILS:"):]
				rest = rest[:j]
			}
			kind := strings.Trim(strings.TrimSpace(rest), "[]* ")
			current = &Action{Kind: ActionKind(strings.ToUpper(kind)), Details: details}
			continue
		}

		if current == nil {
			continue
		}
		if i := strings.Index(line, "DETAILS:"); i >= 0 {
			current.Details = line[i+len("DETAILS:"):]
			continue
		}
		if line != "" && current.Details != "" {
			current.Details += " " + line
		}
	}
	flush()

	for i := range actions {
		actions[i].Details = strings.Trim(actions[i].Details, "[] ")
	}
	return actions
}
