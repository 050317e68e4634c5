// ABOUTME: Tests for prompt assembly and history pruning
// ABOUTME: Covers ordering, purity, empty input, and exchange-pair preservation

package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_Ordering(t *testing.T) {
	history := []Part{
		{Role: RoleUser, Text: "Hello"},
		{Role: RoleModel, Text: "Hi there!"},
	}

	parts := Assemble("be helpful", history, "How are you?")

	require.Len(t, parts, 4)
	assert.Equal(t, Part{Role: RoleSystem, Text: "be helpful"}, parts[0])
	assert.Equal(t, history[0], parts[1])
	assert.Equal(t, history[1], parts[2])
	assert.Equal(t, Part{Role: RoleUser, Text: "How are you?"}, parts[3])
}

func TestAssemble_EmptyHistoryAndInput(t *testing.T) {
	parts := Assemble("sys", nil, "")

	require.Len(t, parts, 2)
	assert.Equal(t, RoleSystem, parts[0].Role)
	assert.Equal(t, Part{Role: RoleUser, Text: ""}, parts[1])
}

func TestAssemble_Pure(t *testing.T) {
	history := []Part{{Role: RoleUser, Text: "a"}, {Role: RoleModel, Text: "b"}}

	first := Assemble("sys", history, "x")
	second := Assemble("sys", history, "x")

	assert.Equal(t, first, second, "identical inputs must yield identical output")
	assert.Equal(t, []Part{{Role: RoleUser, Text: "a"}, {Role: RoleModel, Text: "b"}}, history,
		"input history must not be mutated")

	// Appending to one result must not bleed into the other.
	first = append(first, Part{Role: RoleModel, Text: "y"})
	assert.Len(t, second, 4)
}

func TestPrune_Disabled(t *testing.T) {
	history := []Part{{Role: RoleUser, Text: "a"}, {Role: RoleModel, Text: "b"}}

	assert.Equal(t, history, Prune(history, 0))
	assert.Equal(t, history, Prune(history, -1))
}

func TestPrune_UnderCap(t *testing.T) {
	history := []Part{{Role: RoleUser, Text: "a"}, {Role: RoleModel, Text: "b"}}

	assert.Equal(t, history, Prune(history, 4))
}

func TestPrune_DropsOldestExchange(t *testing.T) {
	history := []Part{
		{Role: RoleUser, Text: "q1"},
		{Role: RoleModel, Text: "a1"},
		{Role: RoleUser, Text: "q2"},
		{Role: RoleModel, Text: "a2"},
		{Role: RoleUser, Text: "q3"},
		{Role: RoleModel, Text: "a3"},
	}

	pruned := Prune(history, 4)

	require.Len(t, pruned, 4)
	assert.Equal(t, "q2", pruned[0].Text)
	assert.Equal(t, "a3", pruned[3].Text)
}

func TestPrune_DropsMultipleExchanges(t *testing.T) {
	history := []Part{
		{Role: RoleUser, Text: "q1"},
		{Role: RoleModel, Text: "a1"},
		{Role: RoleUser, Text: "q2"},
		{Role: RoleModel, Text: "a2"},
		{Role: RoleUser, Text: "q3"},
		{Role: RoleModel, Text: "a3"},
	}

	pruned := Prune(history, 2)

	require.Len(t, pruned, 2)
	assert.Equal(t, "q3", pruned[0].Text)
	assert.Equal(t, "a3", pruned[1].Text)
}

func TestPrune_KeepsTrailingUnmatchedUserPart(t *testing.T) {
	history := []Part{
		{Role: RoleUser, Text: "q1"},
		{Role: RoleModel, Text: "a1"},
		{Role: RoleUser, Text: "q2"},
	}

	pruned := Prune(history, 1)

	require.Len(t, pruned, 1)
	assert.Equal(t, Part{Role: RoleUser, Text: "q2"}, pruned[0])
}

func TestPrune_DoesNotMutateInput(t *testing.T) {
	history := []Part{
		{Role: RoleUser, Text: "q1"},
		{Role: RoleModel, Text: "a1"},
		{Role: RoleUser, Text: "q2"},
		{Role: RoleModel, Text: "a2"},
	}

	_ = Prune(history, 2)

	assert.Len(t, history, 4)
	assert.Equal(t, "q1", history[0].Text)
}

func TestExchange(t *testing.T) {
	ex := Exchange("hi", "hello")

	require.Len(t, ex, 2)
	assert.Equal(t, Part{Role: RoleUser, Text: "hi"}, ex[0])
	assert.Equal(t, Part{Role: RoleModel, Text: "hello"}, ex[1])
}
