// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"errors"
	"strconv"
)

// Sentinel errors returned by Engine construction and body registration.
// Callers should use errors.Is rather than comparing values directly.
var (
	ErrInvalidSettings = errors.New("physics: invalid engine settings")
	ErrCapacity        = errors.New("physics: body capacity exceeded")
	ErrInvalidShape    = errors.New("physics: shape has no volume and cannot be a dynamic body")
)

// Diagnostics are running counters useful for tuning and for tests; they
// are reset only by NewEngine, never by Step.
type Diagnostics struct {
	Ticks              uint64
	BroadphasePairs    uint64 // total overlapping AABB pairs seen across all ticks.
	NarrowphaseHits    uint64 // total manifolds with at least one contact point.
	ContactsResolved   uint64 // total contact points resolved.
	DegenerateContacts uint64 // contacts skipped for a singular K matrix or zero effective mass.
	BodiesAsleep       uint64 // bodies asleep as of the most recent tick.
	NaNPosesForced     uint64 // total times a body's integrated pose went NaN and was forced asleep.
}

// Diagnostics returns a snapshot of the engine's running counters.
func (e *Engine) Diagnostics() Diagnostics {
	d := e.diag
	d.DegenerateContacts = e.solver.degenerate
	return d
}

// Verify checks the engine's internal invariants: every registered body's
// broadphase slot is valid, inverse mass is non-negative, dynamic bodies
// reference a shape with positive volume, every axis's endpoint list is
// sorted, and the overlap table's "all three bits set" subset is in
// bijection with the active overlap list (every back-index is valid and
// points at the entry that stored it). It returns a joined error describing
// every violation found, or nil if the engine is consistent.
func (e *Engine) Verify() error {
	var errs []error
	for id, slot := range e.slots {
		if slot < 0 || slot >= e.broad.count {
			errs = append(errs, errorsAt(id, "broadphase slot out of range"))
			continue
		}
		b := e.bodies[id]
		if b == nil {
			errs = append(errs, errorsAt(id, "registered slot has no body"))
			continue
		}
		if b.imass < 0 {
			errs = append(errs, errorsAt(id, "negative inverse mass"))
		}
		if b.motion == Dynamic && b.shape.Volume() <= 0 {
			errs = append(errs, errorsAt(id, "dynamic body shape has no volume"))
		}
		if bySlot, ok := e.byslot[slot]; !ok || bySlot != id {
			errs = append(errs, errorsAt(id, "slot/byslot round trip broken"))
		}
	}
	errs = append(errs, e.broad.verify()...)
	return errors.Join(errs...)
}

func errorsAt(id uint32, msg string) error {
	return &bodyError{id: id, msg: msg}
}

type bodyError struct {
	id  uint32
	msg string
}

func (e *bodyError) Error() string {
	return "physics: body " + strconv.FormatUint(uint64(e.id), 10) + ": " + e.msg
}
