// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"fmt"
	"sort"
)

// broadphase implements a sweep-and-prune (axis sorted endpoint list)
// culling stage. For each of the three axes it keeps a list of interval
// endpoints sorted by position; after moving the bodies for a tick the
// lists are re-sorted with insertion sort, which runs close to O(n) since
// frame-to-frame motion rarely changes the ordering by more than a few
// swaps. A single pass over each newly sorted list then finds every pair
// of intervals that overlap on that axis; only the pairs whose state
// changed since the previous tick touch the overlapTable, which in turn
// maintains the active (3-axis) overlap list that the narrowphase
// consumes.
type broadphase struct {
	axes     [3]axisList
	table    *overlapTable
	margin   float64
	boxes    []Abox // per-slot bounding boxes, rebuilt every tick.
	freeSlot []int  // recycled slot indices.
	count    int    // number of slots currently in use (including holes <= count).
}

// endpoint is one boundary of a body's interval on one axis.
type endpoint struct {
	value float64
	slot  int
	isMax bool
}

type pairKey struct{ lo, hi int }

type axisList struct {
	points   []endpoint
	overlaps map[pairKey]bool // pairs known overlapping on this axis as of the last Sweep.
}

func newBroadphase(margin float64) *broadphase {
	return &broadphase{table: newOverlapTable(), margin: margin}
}

// addSlot reserves a new broadphase slot, growing the endpoint lists and
// overlap table, and returns its index.
func (bp *broadphase) addSlot() int {
	var slot int
	if n := len(bp.freeSlot); n > 0 {
		slot = bp.freeSlot[n-1]
		bp.freeSlot = bp.freeSlot[:n-1]
	} else {
		slot = bp.count
		bp.count++
	}
	if slot >= len(bp.boxes) {
		grown := make([]Abox, slot+1)
		copy(grown, bp.boxes)
		bp.boxes = grown
	}
	bp.table.grow(bp.count)
	for axis := 0; axis < 3; axis++ {
		bp.axes[axis].points = append(bp.axes[axis].points,
			endpoint{slot: slot, isMax: false},
			endpoint{slot: slot, isMax: true})
	}
	return slot
}

// removeSlot frees a slot and drops all its endpoints and overlap entries.
func (bp *broadphase) removeSlot(slot int) {
	for axis := 0; axis < 3; axis++ {
		pts := bp.axes[axis].points
		filtered := pts[:0]
		for _, p := range pts {
			if p.slot != slot {
				filtered = append(filtered, p)
			}
		}
		bp.axes[axis].points = filtered
		for k := range bp.axes[axis].overlaps {
			if k.lo == slot || k.hi == slot {
				delete(bp.axes[axis].overlaps, k)
			}
		}
	}
	bp.table.removeSlot(slot)
	bp.freeSlot = append(bp.freeSlot, slot)
}

// updateSlot records the slot's current AABB and refreshes its endpoint
// values; call Sweep afterward to re-sort and regenerate overlaps.
func (bp *broadphase) updateSlot(slot int, ab *Abox) {
	bp.boxes[slot] = *ab
	for axis := 0; axis < 3; axis++ {
		lo, hi := boxAxis(ab, axis)
		pts := bp.axes[axis].points
		for i := range pts {
			if pts[i].slot != slot {
				continue
			}
			if pts[i].isMax {
				pts[i].value = hi
			} else {
				pts[i].value = lo
			}
		}
	}
}

func boxAxis(ab *Abox, axis int) (lo, hi float64) {
	switch axis {
	case 0:
		return ab.Sx, ab.Lx
	case 1:
		return ab.Sy, ab.Ly
	default:
		return ab.Sz, ab.Lz
	}
}

var axisBit = [3]uint32{xBit, yBit, zBit}

// verify checks this broadphase's own invariants: every axis's endpoint
// list is sorted by value, and the overlap table's active-list/bijection
// invariant holds. Used by Engine.Verify; returns one error per violation
// found, nil slice if clean.
func (bp *broadphase) verify() []error {
	var errs []error
	for axis := 0; axis < 3; axis++ {
		pts := bp.axes[axis].points
		for i := 1; i < len(pts); i++ {
			if pts[i].value < pts[i-1].value {
				errs = append(errs, fmt.Errorf("physics: axis %d endpoint list out of sorted order at index %d", axis, i))
				break
			}
		}
	}
	errs = append(errs, bp.table.verify()...)
	return errs
}

// Sweep re-sorts every axis list with insertion sort (fast because
// frame-to-frame motion rarely reorders more than a few neighbouring
// endpoints), then walks each sorted list once keeping the set of
// currently-open intervals to find every pair overlapping on that axis.
// The new per-axis overlap set is diffed against the set found at the
// previous Sweep so only pairs whose axis-overlap state actually changed
// touch the overlapTable, which in turn maintains the active (3-axis)
// overlap list the narrowphase consumes.
func (bp *broadphase) Sweep() []overlapPair {
	for axis := 0; axis < 3; axis++ {
		bp.insertionSort(axis)
		bp.updateAxisOverlaps(axis)
	}
	return bp.table.Active()
}

// insertionSort sorts the axis's endpoint list by value. Overlap state is
// derived afterward in updateAxisOverlaps rather than during the sort, so
// it is correct even on the very first call, when every pair's state
// starts unknown rather than "not overlapping".
func (bp *broadphase) insertionSort(axis int) {
	pts := bp.axes[axis].points
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && pts[j].value < pts[j-1].value; j-- {
			pts[j-1], pts[j] = pts[j], pts[j-1]
		}
	}
}

// pairKeyLess orders pairKeys by (lo, hi), giving every sorted-pair slice in
// this file one canonical order independent of map iteration.
func pairKeyLess(keys []pairKey) func(i, j int) bool {
	return func(i, j int) bool {
		if keys[i].lo != keys[j].lo {
			return keys[i].lo < keys[j].lo
		}
		return keys[i].hi < keys[j].hi
	}
}

// updateAxisOverlaps walks the sorted endpoint list for axis maintaining
// the set of slots whose interval is currently open, recording a pair as
// overlapping on this axis whenever a min endpoint is reached while
// another slot's interval is already open. The resulting set is diffed
// against the previous Sweep's set to find exactly the pairs whose state
// changed; those changed pairs are sorted by (lo, hi) before the bit flips
// are applied, so the order pairs reach the overlapTable (and, through it,
// the narrowphase and solver) never depends on Go's randomized map
// iteration order.
func (bp *broadphase) updateAxisOverlaps(axis int) {
	al := &bp.axes[axis]
	if al.overlaps == nil {
		al.overlaps = make(map[pairKey]bool)
	}
	bit := axisBit[axis]

	current := make(map[pairKey]bool)
	var open []int
	for _, p := range al.points {
		if !p.isMax {
			for _, o := range open {
				lo, hi := p.slot, o
				if lo > hi {
					lo, hi = hi, lo
				}
				current[pairKey{lo, hi}] = true
			}
			open = append(open, p.slot)
		} else {
			for i, o := range open {
				if o == p.slot {
					open = append(open[:i], open[i+1:]...)
					break
				}
			}
		}
	}

	var added, removed []pairKey
	for k := range current {
		if !al.overlaps[k] {
			added = append(added, k)
		}
	}
	for k := range al.overlaps {
		if !current[k] {
			removed = append(removed, k)
		}
	}
	sort.Slice(added, pairKeyLess(added))
	sort.Slice(removed, pairKeyLess(removed))

	for _, k := range added {
		bp.table.setAxis(k.lo, k.hi, bit, true)
	}
	for _, k := range removed {
		bp.table.setAxis(k.lo, k.hi, bit, false)
	}
	al.overlaps = current
}
