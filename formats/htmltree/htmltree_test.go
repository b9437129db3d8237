package htmltree

import (
	"context"
	"testing"

	"github.com/kylelemons/godebug/pretty"
	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/diff"
)

func TestParseRenderRoundtrip(t *testing.T) {
	src := `<html><body><div><div></div></div></body></html>`
	tree, err := Parse(src)
	require.NoError(t, err)
	if diff := pretty.Compare(src, Render(tree)); diff != "" {
		t.Fatalf("parse/render roundtrip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAttributes(t *testing.T) {
	tree, err := Parse(`<div id="a" class='b'></div>`)
	require.NoError(t, err)
	div := tree.Children(tree.Root)[0]
	require.Equal(t, "div", tree.Kind(div))
	require.Equal(t, "a", tree.Nodes[div].Props["id"])
	require.Equal(t, "b", tree.Nodes[div].Props["class"])
}

// TestDiffApplyRoundtrip is §8.2 scenario 7 (the "issue-1846 pattern"): a
// new text node and a new nested text node are introduced between old and
// new, and applying the computed diff to old must reproduce new exactly
// after both sides pass through the same parse/render normalization.
func TestDiffApplyRoundtrip(t *testing.T) {
	oldSrc := `<html><body><div><div></div></div></body></html>`
	newSrc := `<html><body>X<div><div>Y</div></div></body></html>`

	oldTree, err := Parse(oldSrc)
	require.NoError(t, err)
	newTree, err := Parse(newSrc)
	require.NoError(t, err)

	m, err := diff.Match(context.Background(), oldTree, newTree, diff.Config{SimilarityThreshold: 0.3, MinHeight: 1})
	require.NoError(t, err)

	script := diff.Diff(oldTree, newTree, m)
	require.NoError(t, diff.Apply(oldTree, script))

	if d := pretty.Compare(Render(newTree), Render(oldTree)); d != "" {
		t.Fatalf("apply(old, diff(old,new)) != render(new) (-want +got):\n%s", d)
	}
}
