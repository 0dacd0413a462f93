// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "fmt"

// overlapTable tracks, for every unordered pair of broadphase slots, which
// of the three axes currently report an overlapping interval. A pair is a
// true AABB overlap only once all three axis bits are set. The table is
// stored as a flat triangular array indexed by (lo, hi) slot indices with
// lo < hi, so it grows with the square of the slot count; this matches the
// sweep-and-prune broadphase's own O(n^2) worst case and keeps per-pair
// state lookups at O(1).
//
// Bit layout of each table entry (uint32):
//
//	bit 31 (XBIT)     overlapping on the X axis
//	bit 30 (YBIT)     overlapping on the Y axis
//	bit 29 (ZBIT)     overlapping on the Z axis
//	bits 28..0        INDEXMASK: index into the active overlap list, valid
//	                  only while all three bits above are set.
const (
	xBit      uint32 = 0x80000000
	yBit      uint32 = 0x40000000
	zBit      uint32 = 0x20000000
	indexMask uint32 = 0x1FFFFFFF
	allBits          = xBit | yBit | zBit
)

// overlapPair names the two broadphase slots of an active (full 3-axis)
// overlap, as handed to the narrowphase.
type overlapPair struct {
	lo, hi int
}

// overlapTable is the triangular bit table plus the packed active list it
// indexes into.
type overlapTable struct {
	n       int      // number of slots currently sized for.
	entries []uint32 // triangular array, row-major over lo with lo<hi.
	active  []overlapPair
}

func newOverlapTable() *overlapTable {
	return &overlapTable{}
}

// triIndex returns the flat index for the (lo,hi) entry, lo<hi required.
func (t *overlapTable) triIndex(lo, hi int) int {
	// row lo starts after rows 0..lo-1, each of length (n-1-row).
	return lo*t.n - (lo*(lo+1))/2 + (hi - lo - 1)
}

// grow ensures the table can address slot indices up to n-1.
func (t *overlapTable) grow(n int) {
	if n <= t.n {
		return
	}
	size := n * (n - 1) / 2
	grown := make([]uint32, size)
	// old entries are not simply contiguous in the new layout since the
	// triangular index formula depends on n; rebuild by walking pairs.
	old := t.entries
	oldN := t.n
	t.n = n
	t.entries = grown
	for lo := 0; lo < oldN; lo++ {
		for hi := lo + 1; hi < oldN; hi++ {
			oldIdx := lo*oldN - (lo*(lo+1))/2 + (hi - lo - 1)
			if old[oldIdx] != 0 {
				t.entries[t.triIndex(lo, hi)] = old[oldIdx]
			}
		}
	}
}

// setAxis records whether lo and hi overlap on the given axis bit, pair
// ordering normalised so lo<hi. Transitions into/out of a full 3-axis
// overlap append/remove the pair from the active list, the removal done
// in O(1) by swapping with the tail entry and fixing up its stored index.
func (t *overlapTable) setAxis(a, b int, bit uint32, overlapping bool) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	idx := t.triIndex(lo, hi)
	entry := t.entries[idx]
	wasFull := entry&allBits == allBits
	if overlapping {
		entry |= bit
	} else {
		entry &^= bit
	}
	isFull := entry&allBits == allBits

	switch {
	case !wasFull && isFull:
		pos := uint32(len(t.active))
		t.active = append(t.active, overlapPair{lo, hi})
		entry = (entry &^ indexMask) | (pos & indexMask)
	case wasFull && !isFull:
		pos := entry & indexMask
		last := len(t.active) - 1
		moved := t.active[last]
		t.active[pos] = moved
		t.active = t.active[:last]
		if int(pos) != last {
			movedLo, movedHi := moved.lo, moved.hi
			movedIdx := t.triIndex(movedLo, movedHi)
			t.entries[movedIdx] = (t.entries[movedIdx] &^ indexMask) | pos
		}
		entry &^= indexMask
	}
	t.entries[idx] = entry
}

// removeSlot drops every pair entry involving slot s, used when a body is
// removed from the engine. O(n) in the number of remaining slots.
func (t *overlapTable) removeSlot(s int) {
	for other := 0; other < t.n; other++ {
		if other == s {
			continue
		}
		t.setAxis(s, other, xBit, false)
		t.setAxis(s, other, yBit, false)
		t.setAxis(s, other, zBit, false)
	}
}

// Active returns the current list of fully overlapping pairs. The slice is
// owned by the table and is only valid until the next mutating call.
func (t *overlapTable) Active() []overlapPair { return t.active }

// verify checks the bijection invariant between the "all three bits set"
// subset of entries and the active overlap list: every fully-overlapping
// entry's back-index must point at the active-list slot holding that same
// pair, and every active-list entry's table slot must in turn be marked
// fully overlapping with a matching back-index. Used by Engine.Verify.
func (t *overlapTable) verify() []error {
	var errs []error
	fullCount := 0
	for lo := 0; lo < t.n; lo++ {
		for hi := lo + 1; hi < t.n; hi++ {
			entry := t.entries[t.triIndex(lo, hi)]
			if entry&allBits != allBits {
				continue
			}
			fullCount++
			pos := entry & indexMask
			if int(pos) >= len(t.active) {
				errs = append(errs, fmt.Errorf("physics: overlap entry (%d,%d) back-index %d out of range", lo, hi, pos))
				continue
			}
			if pair := t.active[pos]; pair.lo != lo || pair.hi != hi {
				errs = append(errs, fmt.Errorf("physics: overlap entry (%d,%d) back-index %d points at (%d,%d)", lo, hi, pos, pair.lo, pair.hi))
			}
		}
	}
	if fullCount != len(t.active) {
		errs = append(errs, fmt.Errorf("physics: %d fully-overlapping entries but active list has %d", fullCount, len(t.active)))
	}
	return errs
}
