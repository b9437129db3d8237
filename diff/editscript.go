package diff

import "sort"

// Diff computes an ordered Script that transforms a into (a tree
// structurally equal to) b, given a Matching already computed between
// them (§4.8 "used to compute edit scripts for structured diffing",
// §8.2 scenario 7's apply(parse(old), diff(old,new)) roundtrip).
//
// The reference text only specifies the matcher (C8) and the patch
// executor (C9); it leaves the script-generation step implicit ("used to
// compute edit scripts", "downstream edit-script generators emit a
// relabel op"). This first emits Delete for every a-node the matching
// left unpaired (see deleteUnmatchedFirst), then walks b top-down,
// emitting Insert for every unmatched b-node and Move/Update/ReplaceText
// for matched ones whose position or properties changed. A scratch clone of a is mutated in lock
// step with the emitted ops so later position checks compare against the
// tree shape the ops will actually produce, not the stale original.
func Diff(a, b *Tree, m *Matching) Script {
	scratch := cloneTree(a)
	var script Script

	deleteUnmatchedFirst(a, m, &script, scratch)

	nextID := NodeID(len(scratch.Nodes))

	var walk func(bParent, aParent NodeID)
	walk = func(bParent, aParent NodeID) {
		for i, cb := range b.Children(bParent) {
			var caID NodeID
			if ca, ok := m.MatchedA(cb); ok {
				caID = ca
				reconcilePosition(scratch, &script, ca, aParent, i)
				reconcileProps(b, scratch, &script, ca, cb)
			} else {
				caID = nextID
				nextID++
				op := Op{
					Kind:   OpInsert,
					Node:   caID,
					Parent: aParent,
					Index:  i,
					Kind2:  b.Kind(cb),
					Props:  cloneProps(b.Nodes[cb].Props),
				}
				script = append(script, op)
				applyOne(scratch, op)
			}
			walk(cb, caID)
		}
	}
	walk(b.Root, a.Root)

	return script
}

// deleteUnmatchedFirst removes every a-node with no b-partner from the
// scratch clone, deepest first, and records the same Delete ops in the
// script. Doing this before the insert/move walk keeps position
// comparisons in reconcilePosition from being thrown off by siblings that
// are about to disappear anyway.
func deleteUnmatchedFirst(a *Tree, m *Matching, script *Script, scratch *Tree) {
	var doomed []NodeID
	for _, n := range a.AllNodes() {
		if n == a.Root {
			continue
		}
		if _, ok := m.MatchedB(n); !ok {
			doomed = append(doomed, n)
		}
	}
	sort.Slice(doomed, func(i, j int) bool { return a.Height(doomed[i]) < a.Height(doomed[j]) })
	for _, n := range doomed {
		op := Op{Kind: OpDelete, Node: n}
		*script = append(*script, op)
		applyOne(scratch, op)
	}
}

func reconcilePosition(scratch *Tree, script *Script, ca, targetParent NodeID, targetIndex int) {
	curParent := scratch.Nodes[ca].Parent
	curIndex := indexOf(scratch, curParent, ca)
	if curParent == targetParent && curIndex == targetIndex {
		return
	}
	op := Op{Kind: OpMove, Node: ca, Parent: targetParent, Index: targetIndex}
	*script = append(*script, op)
	applyOne(scratch, op)
}

func reconcileProps(b *Tree, scratch *Tree, script *Script, ca, cb NodeID) {
	oldProps := scratch.Nodes[ca].Props
	newProps := b.Nodes[cb].Props
	if propsEqual(oldProps, newProps) {
		return
	}
	var op Op
	if b.Kind(cb) == "text" {
		op = Op{Kind: OpReplaceText, Node: ca, Text: newProps["text"]}
	} else {
		op = Op{Kind: OpUpdate, Node: ca, Props: cloneProps(newProps)}
	}
	*script = append(*script, op)
	applyOne(scratch, op)
}

func indexOf(t *Tree, parent, child NodeID) int {
	if parent < 0 {
		return -1
	}
	for i, c := range t.Nodes[parent].Children {
		if c == child {
			return i
		}
	}
	return -1
}

func propsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func cloneProps(p map[string]string) map[string]string {
	if p == nil {
		return nil
	}
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// cloneTree deep-copies t's node arena so Diff can simulate ops without
// mutating the caller's tree.
func cloneTree(t *Tree) *Tree {
	out := &Tree{Nodes: make([]Node, len(t.Nodes)), Root: t.Root}
	for i, n := range t.Nodes {
		children := make([]NodeID, len(n.Children))
		copy(children, n.Children)
		out.Nodes[i] = Node{
			Kind:     n.Kind,
			Props:    cloneProps(n.Props),
			Children: children,
			Parent:   n.Parent,
			hash:     n.hash,
			height:   n.height,
		}
	}
	return out
}
