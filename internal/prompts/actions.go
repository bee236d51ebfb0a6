// Package prompts holds the protocol texts sent to the reasoning provider.
package prompts

import (
	"fmt"
	"strings"
)

const BaseActions = `## Available actions
1. click: single click (x, y coordinates, or target text)
2. doubleClick: double click (x, y coordinates required)
3. drag: drag and drop (x, y start point and toX, toY end point required)
4. type: keyboard input into the currently focused element (value required)
5. hover: move the mouse over a point (x, y coordinates required)
6. scroll: vertical scroll (delta or y: scroll amount)
7. zoom: canvas zoom with Ctrl+wheel. value: "in" or "out", delta: wheel amount (default -120 in, 120 out)
8. wait: wait one second
9. done: objective achieved
10. failed: cannot proceed

## Response format
Reply with exactly one JSON object:
{
  "type": "click" | "doubleClick" | "drag" | "type" | "hover" | "scroll" | "zoom" | "wait" | "done" | "failed",
  "target": "description of the target element",
  "x": start_x_number,
  "y": start_y_number,
  "toX": drag_end_x_number (drag only),
  "toY": drag_end_y_number (drag only),
  "value": "text to type or zoom direction",
  "delta": wheel_delta_number (zoom or scroll),
  "reason": "why this action was chosen"
}
`

const Drag = `## Drag rules
- Moving a node: start the drag on the node header (title bar)
- Connecting nodes: drag from an output port to an input port
`

const Zoom = `## Zoom rules
- zoom out: value="out", delta=120 (nodes look too large)
- zoom in: value="in", delta=-120 (nodes are too small to see ports)
- zoom is performed at the canvas center unless x, y are given
`

const Success = `## Success rules
- Return done once the requested action is complete
- Confirm the result on screen before returning done
- Return failed when no further progress is possible
`

const Coordinates = `## Coordinates
- Give coordinates in screenshot pixels
- If a popup or modal is open, act inside it
`

// Decision builds the per-step prompt of the vision loop.
func Decision(objective string, history []string, guidance, knowledge string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a web UI test automation agent.\n\n")
	prompt.WriteString(fmt.Sprintf("## Objective\n%s\n\n", objective))

	prompt.WriteString("## Actions performed so far\n")

	if len(history) == 0 {
		prompt.WriteString("none\n")
	}

	for i, entry := range history {
		prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, entry))
	}

	prompt.WriteString("\n")

	if guidance != "" {
		prompt.WriteString(guidance)
		prompt.WriteString("\n")
	}

	prompt.WriteString(BaseActions)
	prompt.WriteString("\n## Instructions\n")
	prompt.WriteString("Analyze the current screenshot and decide the single next action that moves toward the objective.\n\n")
	prompt.WriteString(Drag)
	prompt.WriteString("\n")
	prompt.WriteString(Zoom)
	prompt.WriteString("\n")
	prompt.WriteString(Success)
	prompt.WriteString("\n")
	prompt.WriteString(Coordinates)

	if knowledge != "" {
		prompt.WriteString("\n")
		prompt.WriteString(knowledge)
	}

	return prompt.String()
}

// Verification asks whether condition holds on the current screenshot.
func Verification(condition string) string {
	return fmt.Sprintf(`Look at the current screenshot and check whether the following condition is satisfied.

Condition: %s

Reply with JSON only:
{
  "satisfied": true or false,
  "reason": "why"
}`, condition)
}
