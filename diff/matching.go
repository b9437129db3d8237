package diff

// Pair is one matched (a, b) node pair, in the order it was added.
type Pair struct {
	A NodeID
	B NodeID
}

// Matching is a bidirectional mapping between nodes of two trees, plus an
// insertion-ordered list of pairs (§5's "Matching" type). Invariants: both
// maps agree, and no node appears in more than one pair.
type Matching struct {
	aToB map[NodeID]NodeID
	bToA map[NodeID]NodeID
	pairs []Pair
}

// NewMatching returns an empty Matching.
func NewMatching() *Matching {
	return &Matching{aToB: map[NodeID]NodeID{}, bToA: map[NodeID]NodeID{}}
}

// Add records a-b as matched. If a or b already has a partner, the call
// is silently ignored, so the one-pair-per-node invariant always holds.
func (m *Matching) Add(a, b NodeID) {
	if _, ok := m.aToB[a]; ok {
		return
	}
	if _, ok := m.bToA[b]; ok {
		return
	}
	m.aToB[a] = b
	m.bToA[b] = a
	m.pairs = append(m.pairs, Pair{A: a, B: b})
}

// MatchedB returns the b-side partner of a, if any.
func (m *Matching) MatchedB(a NodeID) (NodeID, bool) {
	b, ok := m.aToB[a]
	return b, ok
}

// MatchedA returns the a-side partner of b, if any.
func (m *Matching) MatchedA(b NodeID) (NodeID, bool) {
	a, ok := m.bToA[b]
	return a, ok
}

// IsMatchedA reports whether a already has a partner.
func (m *Matching) IsMatchedA(a NodeID) bool { _, ok := m.aToB[a]; return ok }

// IsMatchedB reports whether b already has a partner.
func (m *Matching) IsMatchedB(b NodeID) bool { _, ok := m.bToA[b]; return ok }

// Pairs returns every matched pair in the order they were added.
func (m *Matching) Pairs() []Pair { return m.pairs }
