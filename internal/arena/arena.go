// Package arena is the type-erased memory and ownership tracker underneath
// partial (§4.2, §9 "model as an explicit cleanup stack"). Go has no
// pointer-arithmetic-level memory API comparable to Rust's `*mut u8`, so a
// Chunk here is a single addressable reflect.Value of the target shape
// rather than a raw byte buffer; what carries over unchanged from the spec
// is the rest of the model — a per-leaf-field init bitmap and a drop stack
// that unwinds in reverse order on failure, so partial failures never
// double-drop and never leak.
package arena

import "reflect"

// Chunk is one arena allocation: an addressable reflect.Value of type T
// plus a per-leaf-slot init bitmap and drop stack. partial.go uses only
// Value and Unwind; it tracks written fields in its own per-frame masks.
type Chunk struct {
	value    reflect.Value
	initBits []bool // one entry per leaf slot, indexed by the owning Shape's flattened field order
	drops    []func()
}

// New allocates a zeroed, addressable Chunk for t with room for n tracked
// leaf slots.
func New(t reflect.Type, n int) *Chunk {
	return &Chunk{
		value:    reflect.New(t).Elem(),
		initBits: make([]bool, n),
	}
}

// Value returns the chunk's addressable reflect.Value.
func (c *Chunk) Value() reflect.Value { return c.value }

// MarkInit records that leaf slot i has been fully written, and registers
// drop as the cleanup to run if the overall build is later abandoned.
// Passing a nil drop is valid for slots with nothing to clean up (plain
// scalars).
func (c *Chunk) MarkInit(i int, drop func()) {
	c.initBits[i] = true
	if drop != nil {
		c.drops = append(c.drops, drop)
	}
}

// IsInit reports whether leaf slot i has been written.
func (c *Chunk) IsInit(i int) bool {
	if i < 0 || i >= len(c.initBits) {
		return false
	}
	return c.initBits[i]
}

// AllInit reports whether every tracked leaf slot has been written.
// partial.Build does not call it; it checks its own per-frame masks.
func (c *Chunk) AllInit() bool {
	for _, b := range c.initBits {
		if !b {
			return false
		}
	}
	return true
}

// Unwind runs every registered drop callback in reverse registration order
// and clears the init bitmap. Called when a Partial is abandoned before
// Build() succeeds (§4.2 invariant: "for every byte range that was ever
// initialized, drop is called exactly once").
func (c *Chunk) Unwind() {
	for i := len(c.drops) - 1; i >= 0; i-- {
		c.drops[i]()
	}
	c.drops = nil
	for i := range c.initBits {
		c.initBits[i] = false
	}
}
