package behavior

import (
	"fmt"
	"strings"
)

// concludeMarker is the literal line a model emits to signal that the task
// should be wrapped up. Provider adapters strip it from the action content.
const concludeMarker = "CONCLUDE"

// targetPrefix introduces a targeted action ("TO alice: message").
const targetPrefix = "TO "

// RenderPrompt converts a Request into a provider-agnostic system prompt and
// user message. Both SDK adapters share this rendering so that swapping
// providers does not change agent behavior framing.
func RenderPrompt(req Request) (system, user string) {
	var sys strings.Builder
	fmt.Fprintf(&sys, "You are %s", req.Agent)
	if req.Role != "" {
		fmt.Fprintf(&sys, ", acting as %s,", req.Role)
	}
	sys.WriteString(" in a simulated work session.\n")
	if req.Goal != "" {
		fmt.Fprintf(&sys, "Current task: %s\n", req.Goal)
	}
	sys.WriteString("Reply with your next contribution. ")
	sys.WriteString("Address a single participant by starting with 'TO <name>: '. ")
	sys.WriteString("If you lead the session and it has reached its goal, end your reply with a line containing only CONCLUDE.")

	var usr strings.Builder
	if len(req.History) > 0 {
		usr.WriteString("Conversation so far:\n")
		for _, ev := range req.History {
			fmt.Fprintf(&usr, "%s: %s\n", ev.Sender, ev.Content)
		}
		usr.WriteString("\n")
	}
	if len(req.Stimuli) > 0 {
		usr.WriteString("New input for you:\n")
		for _, ev := range req.Stimuli {
			fmt.Fprintf(&usr, "%s: %s\n", ev.Sender, ev.Content)
		}
	} else {
		usr.WriteString("It is your turn.\n")
	}
	return sys.String(), usr.String()
}

// ParseAction interprets generated text into an Action, honoring the targeted
// "TO <name>:" prefix and the trailing CONCLUDE marker.
func ParseAction(text string) Action {
	a := Action{}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == concludeMarker {
		a.Conclude = true
		lines = lines[:n-1]
	}
	body := strings.TrimSpace(strings.Join(lines, "\n"))
	if strings.HasPrefix(body, targetPrefix) {
		if idx := strings.Index(body, ":"); idx > len(targetPrefix) {
			a.Target = strings.TrimSpace(body[len(targetPrefix):idx])
			body = strings.TrimSpace(body[idx+1:])
		}
	}
	a.Content = body
	return a
}
