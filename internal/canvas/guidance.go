package canvas

import (
	"canvas-e2e/internal/entity"
	"fmt"
	"strings"
)

// Guidance renders the canvas state section of a decision prompt. A nil
// state yields "".
func Guidance(state *entity.CanvasState) string {
	if state == nil {
		return ""
	}

	var b strings.Builder

	b.WriteString("## Current canvas state\n")
	b.WriteString(fmt.Sprintf("- Nodes: %d\n", state.NodesCount))
	b.WriteString(fmt.Sprintf("- Edges: %d\n", state.EdgesCount))

	switch {
	case state.NodesCount == 0:
		b.WriteString("\nThere are no nodes.\n")
		b.WriteString("- Add a node first (doubleClick the canvas to open the popup)\n")
		b.WriteString("- zoom and scroll are not needed\n")
	case state.NodesCount == 1:
		b.WriteString("\nThere is only one node.\n")
		b.WriteString("- A second node is needed before connecting\n")
		b.WriteString("- Add a node at another position (doubleClick)\n")
		b.WriteString("- There are no other nodes off screen (zoom and scroll are not needed)\n")
	case state.EdgesCount == 0:
		b.WriteString(fmt.Sprintf("\n%d nodes present, they can be connected.\n", state.NodesCount))
		b.WriteString("- There are no edges yet; connect ports with drag\n")
	default:
		b.WriteString(fmt.Sprintf("\n%d nodes and %d edges present.\n", state.NodesCount, state.EdgesCount))
	}

	return b.String()
}
