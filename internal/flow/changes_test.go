package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSnapshot() Snapshot {
	return NewSnapshot(
		[]Node{
			{ID: "in", Type: NodeTextInput, Data: map[string]any{"value": "hi"}},
			{ID: "out", Type: NodePreviewOutput},
		},
		[]Edge{{ID: "e1", Source: "in", Target: "out"}},
	)
}

func TestApplyChanges_OrderMatters(t *testing.T) {
	snap := baseSnapshot()

	// The edge targets a node added earlier in the same batch.
	next, applied, err := ApplyChanges(snap, Changes{
		{Op: OpAddNode, Node: &Node{ID: "gen", Type: NodeTextGeneration}},
		{Op: OpAddEdge, Edge: &Edge{ID: "e2", Source: "in", Target: "gen"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gen"}, applied.AddedNodeIDs)
	assert.Equal(t, []string{"e2"}, applied.AddedEdgeIDs)
	assert.Len(t, next.Nodes, 3)
	assert.Len(t, next.Edges, 2)

	// Reversed order, same actions: the edge now references a missing node.
	_, _, err = ApplyChanges(snap, Changes{
		{Op: OpAddEdge, Edge: &Edge{ID: "e2", Source: "in", Target: "gen"}},
		{Op: OpAddNode, Node: &Node{ID: "gen", Type: NodeTextGeneration}},
	})
	assert.ErrorIs(t, err, ErrDanglingEdge)
}

func TestApplyChanges_IsPure(t *testing.T) {
	snap := baseSnapshot()

	_, _, err := ApplyChanges(snap, Changes{
		{Op: OpAddNode, Node: &Node{ID: "gen", Type: NodeTextGeneration}},
	})
	require.NoError(t, err)

	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Edges, 1)
}

func TestApplyChanges_Rejections(t *testing.T) {
	snap := baseSnapshot()

	t.Run("duplicate node id", func(t *testing.T) {
		_, _, err := ApplyChanges(snap, Changes{
			{Op: OpAddNode, Node: &Node{ID: "in", Type: NodeTextInput}},
		})
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("duplicate edge id", func(t *testing.T) {
		_, _, err := ApplyChanges(snap, Changes{
			{Op: OpAddEdge, Edge: &Edge{ID: "e1", Source: "in", Target: "out"}},
		})
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("remove missing node", func(t *testing.T) {
		_, _, err := ApplyChanges(snap, Changes{
			{Op: OpRemoveNode, NodeID: "ghost"},
		})
		assert.ErrorIs(t, err, ErrMissingTarget)
	})

	t.Run("remove node with incident edges", func(t *testing.T) {
		_, _, err := ApplyChanges(snap, Changes{
			{Op: OpRemoveNode, NodeID: "in"},
		})
		assert.ErrorIs(t, err, ErrIncidentEdges)
	})

	t.Run("remove node after its edges works", func(t *testing.T) {
		next, _, err := ApplyChanges(snap, Changes{
			{Op: OpRemoveEdge, EdgeID: "e1"},
			{Op: OpRemoveNode, NodeID: "in"},
		})
		require.NoError(t, err)
		assert.Len(t, next.Nodes, 1)
		assert.Empty(t, next.Edges)
	})

	t.Run("failed batch leaves no partial state", func(t *testing.T) {
		_, applied, err := ApplyChanges(snap, Changes{
			{Op: OpAddNode, Node: &Node{ID: "gen", Type: NodeTextGeneration}},
			{Op: OpRemoveNode, NodeID: "ghost"},
		})
		require.Error(t, err)
		assert.Nil(t, applied)
	})
}

func TestUndo_RestoresOriginalSnapshot(t *testing.T) {
	snap := baseSnapshot()

	next, applied, err := ApplyChanges(snap, Changes{
		{Op: OpRemoveEdge, EdgeID: "e1"},
		{Op: OpRemoveNode, NodeID: "out"},
		{Op: OpAddNode, Node: &Node{ID: "gen", Type: NodeTextGeneration}},
		{Op: OpAddEdge, Edge: &Edge{ID: "e2", Source: "in", Target: "gen"}},
	})
	require.NoError(t, err)

	restored, err := Undo(next, applied)
	require.NoError(t, err)

	origJSON, err := snap.MarshalCanonical()
	require.NoError(t, err)
	restoredJSON, err := restored.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, string(origJSON), string(restoredJSON))
}

func TestUndo_PreservesRemovedIDs(t *testing.T) {
	snap := baseSnapshot()

	next, applied, err := ApplyChanges(snap, Changes{
		{Op: OpRemoveEdge, EdgeID: "e1"},
	})
	require.NoError(t, err)

	restored, err := Undo(next, applied)
	require.NoError(t, err)

	e, ok := restored.Edge("e1")
	require.True(t, ok, "removed edge must be restored under its original ID")
	assert.Equal(t, "in", e.Source)
}

func TestUndo_RejectsNilAndDivergedState(t *testing.T) {
	snap := baseSnapshot()

	_, err := Undo(snap, nil)
	assert.ErrorContains(t, err, "nil applied record")

	// An applied record naming an edge this snapshot never had.
	_, err = Undo(snap, &Applied{AddedEdgeIDs: []string{"ghost"}})
	assert.ErrorIs(t, err, ErrMissingTarget)
}
