package diff

import "github.com/facet-rs/facet-sub005/ferrors"

// OpKind enumerates the primitive edit operations a Matching is compiled
// down into (§5.2).
type OpKind int

const (
	OpInsert OpKind = iota
	OpDelete
	OpMove
	OpUpdate
	OpReplaceText
)

// Op is one primitive edit against a Tree. Parent/Index place Insert and
// Move targets; Props carries the new property set for Update.
type Op struct {
	Kind   OpKind
	Node   NodeID
	Parent NodeID
	Index  int
	Kind2  string
	Props  map[string]string
	Text   string
}

// Script is an ordered list of Ops; Apply executes them in order against
// t, which must be the "before" tree the ops were computed against.
type Script []Op

// Apply executes every op in the script against t in order, mutating its
// node arena in place. Variant-switch correctness (§5: matched enum-like
// nodes may keep their pairing while changing kind) is exactly what
// OpUpdate's Kind2 field models — the relabel the spec calls for.
func Apply(t *Tree, script Script) error {
	for _, op := range script {
		if err := applyOne(t, op); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(t *Tree, op Op) error {
	switch op.Kind {
	case OpInsert:
		return applyInsert(t, op)
	case OpDelete:
		return applyDelete(t, op)
	case OpMove:
		return applyMove(t, op)
	case OpUpdate:
		return applyUpdate(t, op)
	case OpReplaceText:
		return applyReplaceText(t, op)
	default:
		return ferrors.New(ferrors.Bug, "unknown op kind")
	}
}

func applyInsert(t *Tree, op Op) error {
	if int(op.Node) != len(t.Nodes) {
		return ferrors.New(ferrors.InvalidOperation, "insert: node id out of sequence")
	}
	t.Nodes = append(t.Nodes, Node{Kind: op.Kind2, Props: op.Props, Parent: op.Parent})
	insertChildAt(t, op.Parent, op.Node, op.Index)
	return nil
}

func applyDelete(t *Tree, op Op) error {
	parent := t.Nodes[op.Node].Parent
	if parent < 0 {
		return ferrors.New(ferrors.InvalidOperation, "delete: cannot delete root")
	}
	removeChild(t, parent, op.Node)
	return nil
}

func applyMove(t *Tree, op Op) error {
	oldParent := t.Nodes[op.Node].Parent
	if oldParent >= 0 {
		removeChild(t, oldParent, op.Node)
	}
	t.Nodes[op.Node].Parent = op.Parent
	insertChildAt(t, op.Parent, op.Node, op.Index)
	return nil
}

func applyUpdate(t *Tree, op Op) error {
	n := &t.Nodes[op.Node]
	if op.Kind2 != "" {
		n.Kind = op.Kind2
	}
	if op.Props != nil {
		n.Props = op.Props
	}
	return nil
}

func applyReplaceText(t *Tree, op Op) error {
	n := &t.Nodes[op.Node]
	if n.Props == nil {
		n.Props = map[string]string{}
	}
	n.Props["text"] = op.Text
	return nil
}

func insertChildAt(t *Tree, parent NodeID, child NodeID, index int) {
	if parent < 0 {
		return
	}
	siblings := t.Nodes[parent].Children
	if index < 0 || index > len(siblings) {
		index = len(siblings)
	}
	siblings = append(siblings, 0)
	copy(siblings[index+1:], siblings[index:])
	siblings[index] = child
	t.Nodes[parent].Children = siblings
}

func removeChild(t *Tree, parent NodeID, child NodeID) {
	siblings := t.Nodes[parent].Children
	for i, s := range siblings {
		if s == child {
			t.Nodes[parent].Children = append(siblings[:i], siblings[i+1:]...)
			return
		}
	}
}
