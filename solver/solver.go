// Package solver resolves the ambiguity that flatten and tagged/untagged
// enums introduce: given a target shape.Shape and a bag of observed
// top-level keys, it decides which concrete field/variant path each key
// belongs to (§4.4).
package solver

import (
	"sort"

	"github.com/facet-rs/facet-sub005/ferrors"
	"github.com/facet-rs/facet-sub005/shape"
)

// Segment is one step of a path through a shape tree: either a field name
// or a selected enum variant.
type Segment struct {
	IsVariant bool
	Name      string
	VariantIdx int
}

// Resolution maps one observed top-level key to the path that reaches it.
type Resolution struct {
	Key  string
	Path []Segment
}

// outcome classifies how a single key resolved, mirroring the edge cases
// the spec calls out by name (§4.4).
type Outcome int

const (
	OutcomeResolved Outcome = iota
	OutcomeAmbiguous
	OutcomeUnresolved
	OutcomeDuplicate
	OutcomeCatchAll
)

// Result is the final disposition for one key after all pruning passes.
type Result struct {
	Key        string
	Outcome    Outcome
	Resolution *Resolution // non-nil only when Outcome == OutcomeResolved or OutcomeCatchAll
}

// Schema is the expanded set of candidate resolutions for a shape,
// produced once per shape and reused across many Solve calls.
type Schema struct {
	root         *shape.Shape
	resolutions  map[string][]Resolution // key -> candidate resolutions (>1 means ambiguous until pruned)
	catchAllPath []Segment
	hasCatchAll  bool
}

// BuildSchema performs schema expansion (§4.4 step 1): walk s, recording
// one resolution per top-level key reachable by following flatten fields
// and flattened enum arms.
func BuildSchema(s *shape.Shape) (*Schema, error) {
	sc := &Schema{root: s, resolutions: map[string][]Resolution{}}
	if err := expand(sc, s, nil); err != nil {
		return nil, err
	}
	return sc, nil
}

func expand(sc *Schema, s *shape.Shape, prefix []Segment) error {
	for _, f := range s.Fields {
		seg := Segment{Name: f.Attrs.EffectiveName(f.Name)}
		path := append(append([]Segment{}, prefix...), seg)

		childShape := f.Shape()
		switch {
		case f.Attrs.Flatten && childShape.Def == shape.DefStruct:
			if err := expand(sc, childShape, prefix); err != nil {
				return err
			}
		case f.Attrs.Flatten && (childShape.Def == shape.DefEnum || childShape.Def == shape.DefResult):
			for vi, v := range childShape.Variants {
				vSeg := Segment{IsVariant: true, Name: v.Name, VariantIdx: vi}
				vPrefix := append(append([]Segment{}, prefix...), vSeg)
				for _, vf := range v.Fields {
					fSeg := Segment{Name: vf.Attrs.EffectiveName(vf.Name)}
					key := fSeg.Name
					full := append(append([]Segment{}, vPrefix...), fSeg)
					sc.resolutions[key] = append(sc.resolutions[key], Resolution{Key: key, Path: full})
				}
			}
		default:
			sc.resolutions[seg.Name] = append(sc.resolutions[seg.Name], Resolution{Key: seg.Name, Path: path})
			if attrs := f.Attrs; attrs.Other {
				sc.hasCatchAll = true
				sc.catchAllPath = path
			}
		}
	}
	return nil
}

// hasDuplicates reports whether key is reachable by more than one distinct
// path (§4.4: "overlapping flatten fields across arms produce Duplicate");
// the same path recorded twice does not count. solveOne calls it per key.
func (sc *Schema) hasDuplicates(key string) bool {
	seen := map[string]bool{}
	for _, r := range sc.resolutions[key] {
		sig := pathSignature(r.Path)
		if seen[sig] {
			continue // identical path twice isn't a real ambiguity
		}
		seen[sig] = true
	}
	return len(seen) > 1
}

func pathSignature(path []Segment) string {
	out := ""
	for _, s := range path {
		if s.IsVariant {
			out += "#" + s.Name
		} else {
			out += "." + s.Name
		}
	}
	return out
}

// Solve resolves every key in observed against the schema (§4.4 steps
// 2–3). tagValues supplies the value seen for any key that is itself a
// flattened enum's tag field, used for tag-driven pruning.
func (sc *Schema) Solve(observed []string, tagValues map[string]string) []Result {
	out := make([]Result, 0, len(observed))
	for _, key := range observed {
		out = append(out, sc.solveOne(key, tagValues))
	}
	// Results follow the order of observed.
	return out
}

func (sc *Schema) solveOne(key string, tagValues map[string]string) Result {
	candidates, ok := sc.resolutions[key]
	if !ok {
		if sc.hasCatchAll {
			return Result{Key: key, Outcome: OutcomeCatchAll, Resolution: &Resolution{Key: key, Path: sc.catchAllPath}}
		}
		return Result{Key: key, Outcome: OutcomeUnresolved}
	}

	if sc.hasDuplicates(key) {
		return Result{Key: key, Outcome: OutcomeDuplicate}
	}

	pruned := pruneByTag(candidates, tagValues)
	if len(pruned) == 1 {
		return Result{Key: key, Outcome: OutcomeResolved, Resolution: &pruned[0]}
	}
	if len(pruned) == 0 {
		return Result{Key: key, Outcome: OutcomeUnresolved}
	}

	// More than one candidate remains: declaration order wins (§4.4:
	// "ordering of variant selection is deterministic").
	sort.SliceStable(pruned, func(i, j int) bool {
		return declarationRank(pruned[i].Path) < declarationRank(pruned[j].Path)
	})
	if len(pruned) > 1 && declarationRank(pruned[0].Path) == declarationRank(pruned[1].Path) {
		return Result{Key: key, Outcome: OutcomeAmbiguous}
	}
	return Result{Key: key, Outcome: OutcomeResolved, Resolution: &pruned[0]}
}

func pruneByTag(candidates []Resolution, tagValues map[string]string) []Resolution {
	if len(tagValues) == 0 {
		return candidates
	}
	var out []Resolution
	for _, c := range candidates {
		if pathMatchesTags(c.Path, tagValues) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

func pathMatchesTags(path []Segment, tagValues map[string]string) bool {
	for _, seg := range path {
		if seg.IsVariant {
			if want, ok := tagValues[seg.Name]; ok && want != seg.Name {
				return false
			}
		}
	}
	return true
}

func declarationRank(path []Segment) int {
	rank := 0
	for _, seg := range path {
		if seg.IsVariant {
			rank = rank*1000 + seg.VariantIdx
		}
	}
	return rank
}

// Err renders a Result's non-resolved outcomes as a *ferrors.Error, for
// callers that want to fail fast instead of branching on Outcome.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeAmbiguous:
		return ferrors.New(ferrors.Solver, "ambiguous key "+r.Key)
	case OutcomeUnresolved:
		return ferrors.New(ferrors.UnknownField, "unresolved key "+r.Key)
	case OutcomeDuplicate:
		return ferrors.New(ferrors.DuplicateField, "duplicate path for key "+r.Key)
	default:
		return nil
	}
}
