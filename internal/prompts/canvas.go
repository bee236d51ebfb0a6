package prompts

import "strings"

const PortDefinition = `## Ports
- A port is a badge-style label inside a node
- INPUT section: input ports on the left side of the node
- OUTPUT section: output ports on the right side of the node

### Port types (shown on the badge)
- STREAM STR, STREAM STR|STR: text stream
- FILE: file
- TOOL: tool or function
- OBJECT: object
- InputSchema, OutputSchema: schema definitions
- (ANY): connects to every type

### Matching rules
- Only ports of the same type can be connected
- TOOL -> TOOL is valid
- STREAM STR -> STREAM STR|STR is valid
- FILE -> FILE is valid
- (ANY) -> any type is valid
- TOOL -> STREAM STR is invalid
`

const NodeConnection = `## Connecting nodes
- Workflows flow left to right
- Connect the OUTPUT of the left node to the INPUT of the right node
- Start point (x, y): right edge of the output port badge
- End point (toX, toY): left edge of the input port badge
- After the drag a curved edge must be visible between the two nodes
- If no edge appears, do not return done; retry
`

const AgentNodeInfo = `## Agent Xgen node
INPUT ports (left): STREAM STR|STR, FILE, TOOL, OBJECT, DocsContext, OutputSchema, PLAN
OUTPUT ports (right): STREAM STR
`

const APICallingToolNodeInfo = `## API Calling Tool node
INPUT ports (left): InputSchema
OUTPUT ports (right): TOOL
`

const APIToAgentConnection = `## API Calling Tool -> Agent Xgen
- Left: API Calling Tool. Right: Agent Xgen
- Output: the "TOOL" badge in the OUTPUT section of API Calling Tool
- Input: the "TOOL" badge in the INPUT section of Agent Xgen
- Start (x, y): right end of the API Calling Tool "TOOL" badge
- End (toX, toY): left end of the Agent Xgen "TOOL" badge
`

const AddNode = `## Adding a node
1. doubleClick an empty area of the canvas
2. The add-node popup opens
3. click the wanted node to select it
4. The node is added to the canvas
- Nodes that provide input go on the left, nodes that consume it on the right
`

// CanvasKnowledge bundles the canvas application notes appended to decision
// prompts.
func CanvasKnowledge() string {
	return strings.Join([]string{
		PortDefinition,
		NodeConnection,
		AgentNodeInfo,
		APICallingToolNodeInfo,
		APIToAgentConnection,
		AddNode,
	}, "\n")
}
