package healing

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestKnowledgeStore_LearnCapsAtFive(t *testing.T) {
	store := NewKnowledgeStoreAt(filepath.Join(t.TempDir(), "k.json"), zaptest.NewLogger(t))

	for i := 1; i <= 6; i++ {
		assert.True(t, store.Learn("login button", fmt.Sprintf("s%d", i)))
	}

	assert.Equal(t, []string{"s6", "s5", "s4", "s3", "s2"}, store.Strategies("login button"))
}

func TestKnowledgeStore_DuplicateIsNoop(t *testing.T) {
	store := NewKnowledgeStoreAt(filepath.Join(t.TempDir(), "k.json"), zaptest.NewLogger(t))

	store.Learn("email field", "a")
	store.Learn("email field", "b")

	assert.False(t, store.Learn("email field", "a"))
	assert.Equal(t, []string{"b", "a"}, store.Strategies("email field"))
}

func TestKnowledgeStore_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "k.json")
	store := NewKnowledgeStoreAt(path, zaptest.NewLogger(t))

	store.Learn("email field", "input[type=email]")
	store.Learn("submit", "button.login")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"email field\": [")

	reloaded := NewKnowledgeStoreAt(path, zaptest.NewLogger(t))
	reloaded.Load()

	assert.Equal(t, []string{"input[type=email]"}, reloaded.Strategies("email field"))

	stats := reloaded.Stats()
	assert.Equal(t, 2, stats.TotalLearned)
	assert.Equal(t, []string{"email field", "submit"}, stats.Descriptions)
}

func TestKnowledgeStore_LoadTolerance(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{name: "missing file", content: nil},
		{name: "corrupt json", content: ptr("{not json")},
		{name: "wrong shape", content: ptr(`{"a": 1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "k.json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0o644))
			}

			store := NewKnowledgeStoreAt(path, zaptest.NewLogger(t))
			store.Load()

			assert.Equal(t, 0, store.Stats().TotalLearned)
			assert.True(t, store.Learn("x", "y"))
		})
	}
}

func TestKnowledgeStore_WriteFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewKnowledgeStoreAt(filepath.Join(blocker, "k.json"), zaptest.NewLogger(t))

	assert.True(t, store.Learn("x", "y"))
	assert.Equal(t, []string{"y"}, store.Strategies("x"))
	assert.Error(t, store.Save())
}

func TestKnowledgeStore_StrategiesReturnsCopy(t *testing.T) {
	store := NewKnowledgeStoreAt(filepath.Join(t.TempDir(), "k.json"), zaptest.NewLogger(t))
	store.Learn("x", "a")

	got := store.Strategies("x")
	got[0] = "mutated"

	assert.Equal(t, []string{"a"}, store.Strategies("x"))
	assert.Nil(t, store.Strategies("unknown"))
}

func ptr(s string) *string {
	return &s
}

func TestKnowledgeStore_Check(t *testing.T) {
	dir := t.TempDir()

	missing := NewKnowledgeStoreAt(filepath.Join(dir, "missing.json"), zaptest.NewLogger(t))
	count, err := missing.Check()
	require.NoError(t, err)
	assert.Zero(t, count)

	path := filepath.Join(dir, "knowledge.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"login button":["#login"],"email input field":["#email"]}`), 0o644))

	count, err = NewKnowledgeStoreAt(path, zaptest.NewLogger(t)).Check()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err = NewKnowledgeStoreAt(path, zaptest.NewLogger(t)).Check()
	assert.Error(t, err)
}
