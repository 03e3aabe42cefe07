// Package history keeps a bounded log of points removed by simplification so
// that later edits can avoid removing the same detail again.
package history

import (
	"math"
	"sort"

	"github.com/soypat/remesh/internal/d3"
	"github.com/soypat/remesh/link"
	"gonum.org/v1/gonum/spatial/r3"
)

// Entry is a removed point and the error level at which it was removed.
type Entry struct {
	Point r3.Vec
	Level float64
}

// History is a FIFO of entries with bounded length and a spatial index for
// tolerant lookup. Points closer than link.Tolerance are the same point.
// The zero value is a history with capacity zero that records nothing.
type History struct {
	ring  []slot
	seq   uint64 // sequence number of the next recorded entry.
	n     int
	cells map[[3]int64][]uint64
}

type slot struct {
	Entry
	seq uint64
}

// New returns an empty history holding at most capacity entries.
func New(capacity int) *History {
	if capacity < 0 {
		panic("negative history capacity")
	}
	return &History{
		ring:  make([]slot, capacity),
		cells: make(map[[3]int64][]uint64),
	}
}

// Cap returns the maximum number of entries.
func (h *History) Cap() int { return len(h.ring) }

// Len returns the number of entries.
func (h *History) Len() int { return h.n }

// Record appends an entry, evicting the oldest one if the history is full.
func (h *History) Record(p r3.Vec, level float64) {
	if len(h.ring) == 0 || math.IsNaN(level) {
		return
	}
	idx := int(h.seq % uint64(len(h.ring)))
	if h.n == len(h.ring) {
		h.evict(h.ring[idx])
	} else {
		h.n++
	}
	h.ring[idx] = slot{Entry: Entry{Point: p, Level: level}, seq: h.seq}
	key := cell(p)
	h.cells[key] = append(h.cells[key], h.seq)
	h.seq++
}

func (h *History) evict(s slot) {
	key := cell(s.Point)
	bucket := h.cells[key]
	for i, q := range bucket {
		if q == s.seq {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(h.cells, key)
	} else {
		h.cells[key] = bucket
	}
}

// Lookup returns the entries whose point is within tolerance of p ordered
// by increasing level. Entries of equal level keep recording order.
func (h *History) Lookup(p r3.Vec) []Entry {
	found := h.lookup(p)
	sort.Slice(found, func(i, j int) bool {
		if found[i].Level != found[j].Level {
			return found[i].Level < found[j].Level
		}
		return found[i].seq < found[j].seq
	})
	entries := make([]Entry, len(found))
	for i := range found {
		entries[i] = found[i].Entry
	}
	return entries
}

// Repeats returns true if a point within tolerance of p was already removed
// at an error level equal or greater than level.
func (h *History) Repeats(p r3.Vec, level float64) bool {
	for _, s := range h.lookup(p) {
		if s.Level >= level {
			return true
		}
	}
	return false
}

// Entries returns all entries from oldest to newest.
func (h *History) Entries() []Entry {
	entries := make([]Entry, 0, h.n)
	first := h.seq - uint64(h.n)
	for q := first; q < h.seq; q++ {
		entries = append(entries, h.ring[q%uint64(len(h.ring))].Entry)
	}
	return entries
}

// Clear removes all entries.
func (h *History) Clear() {
	for i := range h.ring {
		h.ring[i] = slot{}
	}
	h.cells = make(map[[3]int64][]uint64)
	h.n = 0
	h.seq = 0
}

func (h *History) lookup(p r3.Vec) []slot {
	if h.n == 0 {
		return nil
	}
	c := cell(p)
	var found []slot
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				for _, q := range h.cells[[3]int64{c[0] + dx, c[1] + dy, c[2] + dz}] {
					s := h.ring[q%uint64(len(h.ring))]
					if link.Equal(s.Point, p) {
						found = append(found, s)
					}
				}
			}
		}
	}
	return found
}

// cell quantizes p at the tolerance scale. Points within tolerance of each
// other fall in the same or adjacent cells.
func cell(p r3.Vec) [3]int64 {
	return d3.Floor(p, link.Tolerance)
}
