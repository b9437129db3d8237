package diff

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/facet-rs/facet-sub005/fconfig"
	"github.com/facet-rs/facet-sub005/internal/flog"
)

// logger traces phase transitions in Match at Debug level; silent by
// default (flog.Discard) until a caller points SetLogger at a configured
// handler (see fconfig.LogConfig).
var logger = flog.Discard

// SetLogger installs the *slog.Logger used to trace matcher phase
// transitions, built via internal/flog from an fconfig.LogConfig.
func SetLogger(l *slog.Logger) { logger = l }

// Config mirrors fconfig.DiffConfig's fields for the matcher's own use,
// as a separate struct without TOML tags; FromFConfig converts one.
type Config struct {
	SimilarityThreshold float64
	MinHeight           int
	ParallelDescendants bool
	ParallelThreshold   int

	// Stats, if non-nil, accumulates matching counters over the course of
	// Match — ported from cinereus/src/matching.rs's
	// #[cfg(feature = "matching-stats")] block, off by default and useful
	// for asserting on match-phase behavior (bijectivity/determinism)
	// without re-deriving counts from the returned Matching.
	Stats *Stats
}

// Stats accumulates counters describing how a Match call resolved its
// pairs, grouped by the phase that produced them.
type Stats struct {
	TopDownMatches           int
	BottomUpPositionMatches  int
	BottomUpDiceMatches      int
	BottomUpRootFallback     int
	DiceCoefficientEvaluated int
}

// FromFConfig adapts an fconfig.DiffConfig.
func FromFConfig(c fconfig.DiffConfig) Config {
	return Config{
		SimilarityThreshold: c.SimilarityThreshold,
		MinHeight:           c.MinHeight,
		ParallelDescendants: c.ParallelDescendants,
		ParallelThreshold:   c.ParallelThreshold,
	}
}

// Match runs the two-phase GumTree algorithm on a and b and returns the
// resulting Matching (§5). Phase one matches identical subtrees top-down
// by content hash; phase two makes two bottom-up passes — a
// position+kind heuristic first, then Dice-coefficient similarity with a
// root-kind fallback — and a final leaf pass, to pair up everything phase
// one missed.
func Match(ctx context.Context, a, b *Tree, cfg Config) (*Matching, error) {
	m := NewMatching()

	descA, descB, err := precomputeDescendants(ctx, a, b, cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("matcher: top-down phase starting", "nodesA", len(a.Nodes), "nodesB", len(b.Nodes))
	if err := topDownPhase(a, b, m, cfg); err != nil {
		return nil, err
	}
	logger.Debug("matcher: bottom-up phase starting", "matchedPairs", len(m.Pairs()))
	bottomUpPhase(a, b, m, descA, descB, cfg)
	logger.Debug("matcher: done", "matchedPairs", len(m.Pairs()))

	return m, nil
}

// precomputeDescendants builds each tree's id -> descendant-set map,
// optionally splitting the work across goroutines via errgroup once the
// tree is large enough to be worth it (§5, cfg.ParallelDescendants).
func precomputeDescendants(ctx context.Context, a, b *Tree, cfg Config) (map[NodeID][]NodeID, map[NodeID][]NodeID, error) {
	descA := map[NodeID][]NodeID{}
	descB := map[NodeID][]NodeID{}

	build := func(t *Tree, into map[NodeID][]NodeID) error {
		nodes := t.AllNodes()
		if !cfg.ParallelDescendants || len(nodes) < cfg.ParallelThreshold {
			for _, n := range nodes {
				into[n] = t.Descendants(n)
			}
			return nil
		}

		g, _ := errgroup.WithContext(ctx)
		results := make([][]NodeID, len(nodes))
		for i, n := range nodes {
			i, n := i, n
			g.Go(func() error {
				results[i] = t.Descendants(n)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for i, n := range nodes {
			into[n] = results[i]
		}
		return nil
	}

	if err := build(a, descA); err != nil {
		return nil, nil, err
	}
	if err := build(b, descB); err != nil {
		return nil, nil, err
	}
	return descA, descB, nil
}

// topDownPhase matches subtrees with identical content hash and kind,
// preferring taller candidates first, per cinereus/matching.rs's
// height-sorted candidate worklist.
func topDownPhase(a, b *Tree, m *Matching, cfg Config) error {
	byHashB := map[uint64][]NodeID{}
	for _, n := range b.AllNodes() {
		if b.Height(n) < cfg.MinHeight {
			continue
		}
		byHashB[b.Hash(n)] = append(byHashB[b.Hash(n)], n)
	}

	candidatesA := []NodeID{}
	for _, n := range a.AllNodes() {
		if a.Height(n) >= cfg.MinHeight {
			candidatesA = append(candidatesA, n)
		}
	}
	sort.SliceStable(candidatesA, func(i, j int) bool {
		return a.Height(candidatesA[i]) > a.Height(candidatesA[j])
	})

	for _, na := range candidatesA {
		if m.IsMatchedA(na) {
			continue
		}
		for _, nb := range byHashB[a.Hash(na)] {
			if m.IsMatchedB(nb) {
				continue
			}
			if a.Kind(na) == b.Kind(nb) {
				matchSubtrees(a, b, na, nb, m, cfg.Stats)
				break
			}
		}
	}
	return nil
}

// matchSubtrees pairs na/nb and recursively pairs their children in
// order — safe because the hash invariant guarantees identical subtree
// shape (§5: "children are guaranteed identical by the hash invariant").
func matchSubtrees(a, b *Tree, na, nb NodeID, m *Matching, stats *Stats) {
	m.Add(na, nb)
	if stats != nil {
		stats.TopDownMatches++
	}
	childrenA := a.Children(na)
	childrenB := b.Children(nb)
	n := len(childrenA)
	if len(childrenB) < n {
		n = len(childrenB)
	}
	for i := 0; i < n; i++ {
		matchSubtrees(a, b, childrenA[i], childrenB[i], m, stats)
	}
}

// bottomUpPhase walks a's unmatched nodes in post-order: first a cheap
// position+kind heuristic (same kind, same child index under an already
// matched parent), then a Dice-coefficient similarity pass for everything
// still unmatched, falling back to matching same-kind roots directly
// (§5's two-pass bottom-up description). A last pass pairs each unmatched
// leaf whose parent is matched with an unmatched child of the parent's
// partner that has the same kind and content hash, preferring the child
// at the same position.
func bottomUpPhase(a, b *Tree, m *Matching, descA, descB map[NodeID][]NodeID, cfg Config) {
	order := postOrder(a, a.Root)

	for _, na := range order {
		if m.IsMatchedA(na) {
			continue
		}
		if nb, ok := positionKindCandidate(a, b, na, m); ok {
			m.Add(na, nb)
			if cfg.Stats != nil {
				cfg.Stats.BottomUpPositionMatches++
			}
		}
	}

	for _, na := range order {
		if m.IsMatchedA(na) {
			continue
		}
		best, bestScore := NodeID(-1), 0.0
		for _, nb := range b.AllNodes() {
			if m.IsMatchedB(nb) || a.Kind(na) != b.Kind(nb) {
				continue
			}
			if cfg.Stats != nil {
				cfg.Stats.DiceCoefficientEvaluated++
			}
			score := diceCoefficient(descA[na], descB[nb], m)
			if score > bestScore {
				best, bestScore = nb, score
			}
		}
		if best >= 0 && bestScore >= cfg.SimilarityThreshold {
			m.Add(na, best)
			if cfg.Stats != nil {
				cfg.Stats.BottomUpDiceMatches++
			}
			matchSubtrees(a, b, na, best, m, cfg.Stats)
			continue
		}
		if a.Root == na && !m.IsMatchedA(na) {
			for _, nb := range b.AllNodes() {
				if nb == b.Root && a.Kind(na) == b.Kind(nb) {
					m.Add(na, nb)
					if cfg.Stats != nil {
						cfg.Stats.BottomUpRootFallback++
					}
				}
			}
		}
	}

	for _, na := range order {
		parentB, ok := m.MatchedB(a.Parent(na))
		if m.IsMatchedA(na) || len(a.Children(na)) > 0 || !ok {
			continue
		}
		pick, pos := NodeID(-1), indexOf(a, a.Parent(na), na)
		for i, nb := range b.Children(parentB) {
			if !m.IsMatchedB(nb) && a.Kind(na) == b.Kind(nb) && a.Hash(na) == b.Hash(nb) && (pick < 0 || i == pos) {
				pick = nb
			}
		}
		if pick >= 0 {
			m.Add(na, pick)
		}
	}
}

func positionKindCandidate(a, b *Tree, na NodeID, m *Matching) (NodeID, bool) {
	parentA := a.Parent(na)
	if parentA < 0 {
		return 0, false
	}
	parentB, ok := m.MatchedB(parentA)
	if !ok {
		return 0, false
	}
	siblingsA := a.Children(parentA)
	siblingsB := b.Children(parentB)
	idx := -1
	for i, s := range siblingsA {
		if s == na {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(siblingsB) {
		return 0, false
	}
	candidate := siblingsB[idx]
	if m.IsMatchedB(candidate) || a.Kind(na) != b.Kind(candidate) {
		return 0, false
	}
	return candidate, true
}

// diceCoefficient is 2*|common matched descendant pairs| / (|descA| +
// |descB|), the standard GumTree bottom-up similarity measure.
func diceCoefficient(descA, descB []NodeID, m *Matching) float64 {
	if len(descA) == 0 || len(descB) == 0 {
		return 0
	}
	setB := map[NodeID]bool{}
	for _, n := range descB {
		setB[n] = true
	}
	common := 0
	for _, n := range descA {
		if partner, ok := m.MatchedB(n); ok && setB[partner] {
			common++
		}
	}
	return 2 * float64(common) / float64(len(descA)+len(descB))
}

func postOrder(t *Tree, root NodeID) []NodeID {
	var out []NodeID
	var walk func(n NodeID)
	walk = func(n NodeID) {
		for _, c := range t.Children(n) {
			walk(c)
		}
		out = append(out, n)
	}
	walk(root)
	return out
}
