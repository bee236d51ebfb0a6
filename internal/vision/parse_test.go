package vision

import (
	"canvas-e2e/internal/entity"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "bare object",
			text:   `{"type":"done"}`,
			want:   `{"type":"done"}`,
			wantOK: true,
		},
		{
			name:   "surrounded by prose",
			text:   "Looking at the screen, I will click.\n{\"type\":\"click\",\"x\":10,\"y\":20}\nThat should work.",
			want:   `{"type":"click","x":10,"y":20}`,
			wantOK: true,
		},
		{
			name:   "code fence",
			text:   "```json\n{\"type\":\"wait\"}\n```",
			want:   `{"type":"wait"}`,
			wantOK: true,
		},
		{
			name:   "braces inside strings",
			text:   `{"type":"type","value":"a } b { c"}`,
			want:   `{"type":"type","value":"a } b { c"}`,
			wantOK: true,
		},
		{
			name:   "escaped quote inside string",
			text:   `{"type":"type","value":"say \"}\" now"}`,
			want:   `{"type":"type","value":"say \"}\" now"}`,
			wantOK: true,
		},
		{
			name:   "nested object",
			text:   `result: {"type":"done","meta":{"k":1}} end`,
			want:   `{"type":"done","meta":{"k":1}}`,
			wantOK: true,
		},
		{
			name:   "malformed then valid",
			text:   `{type: click} {"type":"hover","x":1,"y":2}`,
			want:   `{"type":"hover","x":1,"y":2}`,
			wantOK: true,
		},
		{
			name: "valid child of a malformed parent",
			text: `{note: x, "inner": {"k":1}}`,
		},
		{
			name: "no object",
			text: "I cannot decide.",
		},
		{
			name: "unbalanced",
			text: `{"type":"click"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.text)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction(t *testing.T) {
	t.Run("drag with coordinates", func(t *testing.T) {
		action, ok := ParseAction(`Plan: {"type":"drag","x":10,"y":20,"toX":300,"toY":40,"reason":"connect"}`)
		require.True(t, ok)

		assert.Equal(t, entity.ActionTypeDrag, action.Type)
		require.True(t, action.HasDragPoints())
		assert.InDelta(t, 300, *action.ToX, 0)
		assert.Equal(t, "connect", action.Reason)
	})

	t.Run("skips candidate without a type", func(t *testing.T) {
		action, ok := ParseAction(`{"note":"thinking"} {"type":"scroll","delta":250}`)
		require.True(t, ok)

		assert.Equal(t, entity.ActionTypeScroll, action.Type)
		require.NotNil(t, action.Delta)
		assert.InDelta(t, 250, *action.Delta, 0)
	})

	t.Run("wrong field types are skipped", func(t *testing.T) {
		_, ok := ParseAction(`{"type":"click","x":"left"}`)

		assert.False(t, ok)
	})

	t.Run("repairs malformed object", func(t *testing.T) {
		action, ok := ParseAction(`I will zoom. {type: 'zoom', value: 'in', reason: 'inspect node',}`)
		require.True(t, ok)

		assert.Equal(t, entity.ActionTypeZoom, action.Type)
		assert.Equal(t, "in", action.Value)
		assert.Equal(t, "inspect node", action.Reason)
	})

	t.Run("well-formed object wins over repair", func(t *testing.T) {
		action, ok := ParseAction(`{type: 'click', x: 1, y: 1} {"type":"wait","reason":"loading"}`)
		require.True(t, ok)

		assert.Equal(t, entity.ActionTypeWait, action.Type)
	})

	t.Run("nested object never outranks its malformed parent", func(t *testing.T) {
		action, ok := ParseAction(`{"type":"done","reason":"edge drawn","seen":{"type":"click","x":1,"y":2},}`)
		require.True(t, ok)

		assert.Equal(t, entity.ActionTypeDone, action.Type)
		assert.Equal(t, "edge drawn", action.Reason)
	})

	t.Run("object without a type does not expose its nested action", func(t *testing.T) {
		_, ok := ParseAction(`{"plan":{"type":"click","x":1,"y":2}}`)

		assert.False(t, ok)
	})

	t.Run("garbage yields failed action", func(t *testing.T) {
		action := decodeAction("no json here")

		assert.Equal(t, entity.ActionTypeFailed, action.Type)
		assert.Equal(t, reasonUnparseable, action.Reason)
	})
}

func TestParseVerification(t *testing.T) {
	got, err := parseVerification("```json\n{\"satisfied\": true, \"reason\": \"two nodes visible\"}\n```")
	require.NoError(t, err)

	assert.True(t, got.Satisfied)
	assert.Equal(t, "two nodes visible", got.Reason)

	_, err = parseVerification("yes it is")
	require.Error(t, err)
}

func TestHistoryLine(t *testing.T) {
	line := historyLine(entity.Action{Type: entity.ActionTypeClick, Target: "Save", Reason: "persist"})

	assert.Equal(t, "click: Save  (persist)", line)
}
