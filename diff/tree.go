// Package diff implements the generic tree matcher (GumTree, §5) and the
// ordered patch-application engine (§5.2) used to turn a Matching into an
// edit script. Both sides operate on the generic Tree type in this file,
// not on any concrete language AST — formats/htmltree builds one such
// Tree from parsed HTML for the end-to-end diff scenarios.
package diff

import (
	"sort"

	"github.com/cespare/xxhash/v2"
)

// NodeID indexes into a Tree's node arena.
type NodeID int

const noParent NodeID = -1

// Node is one arena entry: a kind tag, optional key/value properties, a
// recursive content hash, a height, and ordered children (§5: "Two global
// invariants").
type Node struct {
	Kind     string
	Props    map[string]string
	Children []NodeID
	Parent   NodeID

	hash   uint64
	height int
}

// Tree is an arena of Nodes rooted at Root.
type Tree struct {
	Nodes []Node
	Root  NodeID
}

// NewTree returns an empty tree with no root set yet.
func NewTree() *Tree {
	return &Tree{}
}

// AddNode appends a new node with the given kind/props under parent (pass
// -1, noParent, for the root node, which Finalize then records as Root),
// and returns its id. Content hash and height are computed afterward by
// Finalize, once the whole tree is built.
func (t *Tree) AddNode(kind string, props map[string]string, parent NodeID) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{Kind: kind, Props: props, Parent: parent})
	if parent >= 0 {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
	}
	return id
}

// Finalize computes each node's height and content hash bottom-up. Must be
// called once after the tree is fully built and before matching.
func (t *Tree) Finalize(root NodeID) {
	t.Root = root
	t.computeBottomUp(root)
}

func (t *Tree) computeBottomUp(id NodeID) (height int, hash uint64) {
	n := &t.Nodes[id]
	h := xxhash.New()
	writeString(h, n.Kind)
	for _, k := range sortedKeys(n.Props) {
		writeString(h, k)
		writeString(h, n.Props[k])
	}

	if len(n.Children) == 0 {
		n.height = 0
		n.hash = h.Sum64()
		return n.height, n.hash
	}

	maxChildHeight := 0
	for i, c := range n.Children {
		ch, chash := t.computeBottomUp(c)
		if i == 0 || ch > maxChildHeight {
			maxChildHeight = ch
		}
		writeUint64(h, chash)
	}

	n.height = maxChildHeight + 1
	n.hash = h.Sum64()
	return n.height, n.hash
}

// Hash returns node id's content hash, valid after Finalize.
func (t *Tree) Hash(id NodeID) uint64 { return t.Nodes[id].hash }

// Height returns node id's height, per §3.6: leaves at 0,
// height(n) = 1 + max(height(c) for c in children(n)), valid after
// Finalize.
func (t *Tree) Height(id NodeID) int { return t.Nodes[id].height }

// Kind returns node id's kind tag.
func (t *Tree) Kind(id NodeID) string { return t.Nodes[id].Kind }

// Children returns node id's ordered children.
func (t *Tree) Children(id NodeID) []NodeID { return t.Nodes[id].Children }

// Parent returns node id's parent, or noParent if id is the root.
func (t *Tree) Parent(id NodeID) NodeID { return t.Nodes[id].Parent }

// Descendants returns every node beneath id (not including id itself), in
// pre-order.
func (t *Tree) Descendants(id NodeID) []NodeID {
	var out []NodeID
	var walk func(n NodeID)
	walk = func(n NodeID) {
		for _, c := range t.Nodes[n].Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// AllNodes returns every node id in the tree, in arena order.
func (t *Tree) AllNodes() []NodeID {
	out := make([]NodeID, len(t.Nodes))
	for i := range t.Nodes {
		out[i] = NodeID(i)
	}
	return out
}

func writeString(h *xxhash.Digest, s string) {
	h.Write([]byte{0})
	h.Write([]byte(s))
}

func writeUint64(h *xxhash.Digest, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
