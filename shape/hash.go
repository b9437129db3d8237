package shape

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// StructuralHash returns a hash of s's shape graph — names, Def kinds,
// struct/enum layout, field names and attributes — deliberately excluding
// values. Two shapes with the same StructuralHash are safe to treat as
// wire-compatible (§9's notion of structural equality feeding the diff
// engine's node content hash).
//
// Recursive shapes (Node.Children []*Node) would make a naive recursive
// walk loop forever; the shape dependency graph is built once with gonum's
// simple.DirectedGraph, and a cycle participant reached again on the same
// path contributes only its name, Def and shape id (see shapeID) rather
// than re-descending into its own fields.
func StructuralHash(s *Shape) uint64 {
	ids, cyclic := cyclicShapeIDs(s)
	h := xxhash.New()
	hashShape(h, s, ids, cyclic, map[*Shape]bool{})
	return h.Sum64()
}

// shapeID assigns stable small integers to every Shape reachable from root,
// used both as gonum graph node IDs and as a stand-in hash input for
// shapes that participate in a cycle.
func shapeID(root *Shape) map[*Shape]int64 {
	ids := map[*Shape]int64{}
	var next int64
	var walk func(s *Shape)
	walk = func(s *Shape) {
		if s == nil {
			return
		}
		if _, ok := ids[s]; ok {
			return
		}
		ids[s] = next
		next++
		for _, f := range s.Fields {
			if f.Shape != nil {
				walk(f.Shape())
			}
		}
		for _, v := range s.Variants {
			for _, f := range v.Fields {
				if f.Shape != nil {
					walk(f.Shape())
				}
			}
		}
		if s.Inner != nil {
			walk(s.Inner())
		}
		if s.Key != nil {
			walk(s.Key())
		}
	}
	walk(root)
	return ids
}

// cyclicShapeIDs builds the shape dependency graph with gonum and returns
// the id map plus the set of shape ids that sit on a cycle.
func cyclicShapeIDs(root *Shape) (map[*Shape]int64, map[int64]bool) {
	ids := shapeID(root)
	cyclic := map[int64]bool{}

	g := simple.NewDirectedGraph()
	for _, id := range ids {
		g.AddNode(simple.Node(id))
	}
	addEdge := func(from *Shape, to *Shape) {
		if to == nil {
			return
		}
		fid, tid := ids[from], ids[to]
		if fid == tid {
			cyclic[fid] = true
			return
		}
		if g.HasEdgeFromTo(fid, tid) {
			return
		}
		g.SetEdge(g.NewEdge(simple.Node(fid), simple.Node(tid)))
	}
	for s, id := range ids {
		_ = id
		for _, f := range s.Fields {
			if f.Shape != nil {
				addEdge(s, f.Shape())
			}
		}
		for _, v := range s.Variants {
			for _, f := range v.Fields {
				if f.Shape != nil {
					addEdge(s, f.Shape())
				}
			}
		}
		if s.Inner != nil {
			addEdge(s, s.Inner())
		}
		if s.Key != nil {
			addEdge(s, s.Key())
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) <= 1 {
			continue
		}
		for _, n := range scc {
			cyclic[n.ID()] = true
		}
	}
	// A shape that refers to itself directly (type L []L) is alone in its
	// own SCC, and simple.DirectedGraph takes no self edges, so addEdge
	// marks it in cyclic itself; this scan finds no self edge in g.
	nodes := g.Nodes()
	for nodes.Next() {
		n := nodes.Node().ID()
		to := g.From(n)
		for to.Next() {
			if to.Node().ID() == n {
				cyclic[n] = true
			}
		}
	}

	return ids, cyclic
}

func hashShape(h *xxhash.Digest, s *Shape, ids map[*Shape]int64, cyclic map[int64]bool, visiting map[*Shape]bool) {
	if s == nil {
		fmt.Fprint(h, "<nil>")
		return
	}

	fmt.Fprintf(h, "shape(%s,%s,%d)", s.Name, s.Def, ids[s])

	if visiting[s] {
		// Already descending into this shape on the current path: it's
		// part of a cycle, stop here and let the id stand in for its
		// structure.
		return
	}
	if cyclic[ids[s]] {
		visiting[s] = true
		defer delete(visiting, s)
	}

	switch s.Def {
	case DefStruct:
		fmt.Fprintf(h, "[struct:%d]", s.StructKind)
		names := make([]string, len(s.Fields))
		byName := map[string]Field{}
		for i, f := range s.Fields {
			names[i] = f.Name
			byName[f.Name] = f
		}
		sort.Strings(names)
		for _, name := range names {
			f := byName[name]
			fmt.Fprintf(h, "field(%s,rename=%s,flatten=%t,skip=%t)", f.Name, f.Attrs.Rename, f.Attrs.Flatten, f.Attrs.Skip)
			if f.Shape != nil {
				hashShape(h, f.Shape(), ids, cyclic, visiting)
			}
		}
	case DefEnum, DefResult:
		for _, v := range s.Variants {
			fmt.Fprintf(h, "variant(%s,%d,other=%t)", v.Name, v.Discriminant, v.IsOther)
			for _, f := range v.Fields {
				fmt.Fprintf(h, "field(%s)", f.Name)
				if f.Shape != nil {
					hashShape(h, f.Shape(), ids, cyclic, visiting)
				}
			}
		}
	default:
		if s.Inner != nil {
			hashShape(h, s.Inner(), ids, cyclic, visiting)
		}
		if s.Key != nil {
			hashShape(h, s.Key(), ids, cyclic, visiting)
		}
	}
}

var _ graph.Directed = (*simple.DirectedGraph)(nil)
