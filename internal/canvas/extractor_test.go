package canvas

import (
	"canvas-e2e/internal/entity"
	"canvas-e2e/internal/ports/portstest"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   entity.CanvasState
	}{
		{
			name:   "no recognized convention",
			markup: `<html><body><div class="header">Canvas</div></body></html>`,
			want:   entity.CanvasState{},
		},
		{
			name: "react flow nodes and edges",
			markup: `<div class="react-flow">
				<div class="react-flow__node" data-id="1"></div>
				<div class="react-flow__node" data-id="2"></div>
				<svg><g class="react-flow__edge"><path d="M0"></path></g></svg>
				<div data-node-id="x"></div>
			</div>`,
			want: entity.CanvasState{NodesCount: 2, EdgesCount: 1, HasState: true},
		},
		{
			name: "app node classes skip ports and titles",
			markup: `<div class="Canvas_canvasGrid__a1">
				<div class="Node_node__x1 Node_selected__q">
					<div class="Node_nodeTitle__z">Agent</div>
					<div class="Node_nodePort__p"></div>
				</div>
				<div class="Node_node__x1"></div>
				<div class="Node_node__x1"></div>
			</div>`,
			want: entity.CanvasState{NodesCount: 3, HasState: true},
		},
		{
			name:   "title convention",
			markup: `<div><span class="nodeTitle">A</span><span class="nodeTitle">B</span></div>`,
			want:   entity.CanvasState{NodesCount: 2, HasState: true},
		},
		{
			name:   "node id attribute",
			markup: `<div data-nodeid="a"></div>`,
			want:   entity.CanvasState{NodesCount: 1, HasState: true},
		},
		{
			name:   "svg connection paths",
			markup: `<svg><path class="edgePath"></path><path class="Canvas_connection__1"></path></svg>`,
			want:   entity.CanvasState{EdgesCount: 2, HasState: true},
		},
		{
			name:   "empty markup",
			markup: "",
			want:   entity.CanvasState{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := portstest.NewPage()
			page.Markup = tt.markup

			got := NewExtractor(Params{Logger: zaptest.NewLogger(t)}).Extract(context.Background(), page)
			require.NotNil(t, got)

			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestExtractor_ContentErrorYieldsNil(t *testing.T) {
	page := portstest.NewPage()
	page.ContentErr = errors.New("page closed")

	got := NewExtractor(Params{Logger: zaptest.NewLogger(t)}).Extract(context.Background(), page)

	assert.Nil(t, got)
}

func TestGuidance(t *testing.T) {
	tests := []struct {
		name  string
		state *entity.CanvasState
		want  string
	}{
		{name: "no nodes", state: entity.NewCanvasState(0, 0), want: "Add a node first"},
		{name: "one node", state: entity.NewCanvasState(1, 0), want: "A second node is needed"},
		{name: "unconnected nodes", state: entity.NewCanvasState(2, 0), want: "connect ports with drag"},
		{name: "connected", state: entity.NewCanvasState(3, 2), want: "3 nodes and 2 edges present"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Guidance(tt.state), tt.want)
		})
	}

	assert.Empty(t, Guidance(nil))
}
