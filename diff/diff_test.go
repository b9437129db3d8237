package diff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSimpleTree(label string) *Tree {
	t := NewTree()
	root := t.AddNode("root", nil, noParent)
	t.AddNode("child", map[string]string{"label": label}, root)
	t.Finalize(root)
	return t
}

func TestMatchIdenticalTrees(t *testing.T) {
	a := buildSimpleTree("x")
	b := buildSimpleTree("x")

	m, err := Match(context.Background(), a, b, Config{SimilarityThreshold: 0.5, MinHeight: 1})
	require.NoError(t, err)
	require.Len(t, m.Pairs(), 2)

	rootB, ok := m.MatchedB(a.Root)
	require.True(t, ok)
	require.Equal(t, b.Root, rootB)
}

func TestMatchStatsCountsTopDownPairs(t *testing.T) {
	a := buildSimpleTree("x")
	b := buildSimpleTree("x")

	stats := &Stats{}
	m, err := Match(context.Background(), a, b, Config{SimilarityThreshold: 0.5, MinHeight: 1, Stats: stats})
	require.NoError(t, err)
	require.Len(t, m.Pairs(), 2)
	require.Equal(t, 2, stats.TopDownMatches)
	require.Equal(t, 0, stats.BottomUpPositionMatches)
	require.Equal(t, 0, stats.BottomUpDiceMatches)
}

func TestMatchPartiallyDifferentTrees(t *testing.T) {
	a := NewTree()
	aRoot := a.AddNode("root", nil, noParent)
	a.AddNode("child", map[string]string{"label": "keep"}, aRoot)
	a.AddNode("child", map[string]string{"label": "gone"}, aRoot)
	a.Finalize(aRoot)

	b := NewTree()
	bRoot := b.AddNode("root", nil, noParent)
	b.AddNode("child", map[string]string{"label": "keep"}, bRoot)
	b.AddNode("child", map[string]string{"label": "new"}, bRoot)
	b.Finalize(bRoot)

	m, err := Match(context.Background(), a, b, Config{SimilarityThreshold: 0.3, MinHeight: 1})
	require.NoError(t, err)

	keepA := a.Children(aRoot)[0]
	keepB := b.Children(bRoot)[0]
	matched, ok := m.MatchedB(keepA)
	require.True(t, ok)
	require.Equal(t, keepB, matched)
}

func TestApplyInsertDeleteUpdate(t *testing.T) {
	tr := NewTree()
	root := tr.AddNode("root", nil, noParent)
	child := tr.AddNode("child", map[string]string{"label": "a"}, root)
	tr.Finalize(root)

	script := Script{
		{Kind: OpUpdate, Node: child, Props: map[string]string{"label": "b"}},
		{Kind: OpInsert, Node: NodeID(len(tr.Nodes)), Parent: root, Index: 1, Kind2: "child", Props: map[string]string{"label": "c"}},
	}
	require.NoError(t, Apply(tr, script))

	require.Equal(t, "b", tr.Nodes[child].Props["label"])
	require.Len(t, tr.Children(root), 2)
	require.Equal(t, "c", tr.Nodes[tr.Children(root)[1]].Props["label"])

	require.NoError(t, Apply(tr, Script{{Kind: OpDelete, Node: tr.Children(root)[1]}}))
	require.Len(t, tr.Children(root), 1)
}
