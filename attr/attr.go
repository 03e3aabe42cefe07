// Package attr implements arena tables of per-element attributes indexed by
// stable integer handles.
package attr

// Table maps integer handles to values of type T. Reading a handle that was
// never set, or was erased, returns the table's default.
type Table[H ~int, T any] struct {
	def  T
	vals []T
	set  []bool
	n    int
}

// New returns an empty table whose unset entries read as def.
func New[H ~int, T any](def T) *Table[H, T] {
	return &Table[H, T]{def: def}
}

// Default returns the value of unset entries.
func (t *Table[H, T]) Default() T { return t.def }

// Get returns the value stored for h or the default if h is unset.
func (t *Table[H, T]) Get(h H) T {
	if h < 0 || int(h) >= len(t.vals) || !t.set[h] {
		return t.def
	}
	return t.vals[h]
}

// Put stores v for h. h must not be negative.
func (t *Table[H, T]) Put(h H, v T) {
	if h < 0 {
		panic("bug: negative handle")
	}
	t.grow(int(h) + 1)
	if !t.set[h] {
		t.set[h] = true
		t.n++
	}
	t.vals[h] = v
}

// Has returns true if a value was stored for h since it was last erased.
func (t *Table[H, T]) Has(h H) bool {
	return h >= 0 && int(h) < len(t.set) && t.set[h]
}

// Erase releases the value stored for h. Erasing an unset handle is a no-op.
func (t *Table[H, T]) Erase(h H) {
	if !t.Has(h) {
		return
	}
	var zero T
	t.vals[h] = zero
	t.set[h] = false
	t.n--
}

// Reset erases all entries.
func (t *Table[H, T]) Reset() {
	t.vals = t.vals[:0]
	t.set = t.set[:0]
	t.n = 0
}

// Len returns the number of set entries.
func (t *Table[H, T]) Len() int { return t.n }

// Range calls fn for every set entry in increasing handle order.
// Range stops if fn returns false.
func (t *Table[H, T]) Range(fn func(h H, v T) bool) {
	for i, ok := range t.set {
		if ok && !fn(H(i), t.vals[i]) {
			return
		}
	}
}

func (t *Table[H, T]) grow(n int) {
	if n <= len(t.vals) {
		return
	}
	if n <= cap(t.vals) {
		old := len(t.vals)
		t.vals = t.vals[:n]
		t.set = t.set[:n]
		var zero T
		for i := old; i < n; i++ {
			t.vals[i] = zero
			t.set[i] = false
		}
		return
	}
	vals := make([]T, n, 2*n)
	set := make([]bool, n, 2*n)
	copy(vals, t.vals)
	copy(set, t.set)
	t.vals, t.set = vals, set
}
