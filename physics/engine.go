// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"log/slog"
	"math"

	"github.com/solve3d/rigid/math/lin"
)

// PreCollision is called once per overlapping broadphase pair before
// narrowphase runs. Returning false skips the pair for this tick,
// letting callers implement collision filtering (e.g. by Body.Group()).
type PreCollision func(a, b Body) bool

// PostCollision is called once per manifold that produced at least one
// contact point, after the solver has applied its impulses for the tick.
// It is read-only: mutating bodies from inside the callback is not
// supported and is not observed by the current tick.
type PostCollision func(a, b Body, points []ContactPoint)

// Settings configures a new Engine. FixedStep is the simulation's internal
// timestep; Step(elapsed) runs FixedStep repeatedly to consume the
// requested elapsed time, accumulating any remainder for the next call.
type Settings struct {
	FixedStep float64 // seconds per internal tick; must be positive.

	// MaxSubSteps bounds how many ticks one Step call may run, dropping
	// any remaining accumulated time once reached so a simulation that
	// falls behind real time does not spiral. Zero means unlimited: every
	// pending tick runs, however late the caller is.
	MaxSubSteps int

	Gravity          GravityField  // may be nil, equivalent to NoGravity{}.
	Materials        MaterialTable // may be nil, equivalent to NewMaterialTable().
	BroadphaseMargin float64       // AABB padding added during broadphase; absorbs one tick of motion.

	// MaxRestingSpeed is the normal relative speed below which a contact is
	// "resting": restitution and tangential elasticity are decayed toward
	// their plastic limits, and the contact is eligible for push-out and
	// for the sleep predicate. Zero means the default of 0.1 m/s.
	MaxRestingSpeed float64

	// MaxPushOutDistance caps how far a single tick's positional correction
	// may move a body, regardless of penetration depth. Zero means the
	// default of 1mm.
	MaxPushOutDistance float64

	// MaxDynamicBodies bounds the number of Dynamic bodies AddBody will
	// register, surfacing ErrCapacity once reached rather than growing
	// the broadphase and overlap table without limit. Zero means no limit.
	MaxDynamicBodies int
}

// DefaultSettings returns reasonable values for a typical real-time
// simulation: a 120Hz fixed step, up to 4 sub-steps per call, standard
// downward gravity, and the default material table.
func DefaultSettings() Settings {
	return Settings{
		FixedStep:          1.0 / 120.0,
		MaxSubSteps:        4,
		Gravity:            UniformGravity{Y: -9.81},
		Materials:          NewMaterialTable(),
		BroadphaseMargin:   0.04,
		MaxRestingSpeed:    defaultMaxRestingSpeed,
		MaxPushOutDistance: defaultMaxPushOutDistance,
	}
}

// Engine owns the set of bodies participating in a simulation and steps
// them forward in time. An Engine is not safe for concurrent use: Step,
// AddBody, and RemoveBody must all be called from the same goroutine,
// matching the original engine's single-threaded tick loop. Body id
// allocation itself (see bodyUUIDMutex in body.go) is the one piece of
// state shared safely across goroutines, since construction can happen
// off the simulation thread.
type Engine struct {
	settings Settings
	bodies   map[uint32]*body
	order    []*body        // bodies in registration order; the tick's iteration order.
	slots    map[uint32]int // body id -> broadphase slot
	byslot   map[int]uint32 // broadphase slot -> body id

	broad    *broadphase
	collider *collider
	solver   *solver
	caster   *rayCaster

	dynamicCount int

	// pairSeen records which broadphase pairs produced a manifold on the
	// previous tick, distinguishing a new contact (which may wake a
	// sleeping body) from one that persists under a settled resting stack.
	pairSeen map[pairKey]bool

	terrain TerrainCollider

	accumulator float64
	diag        Diagnostics

	pre  PreCollision
	post PostCollision

	// scratch, reused across ticks.
	scratchAb        Abox
	scratchManifolds []*Manifold
}

// NewEngine validates settings and constructs an empty Engine.
func NewEngine(settings Settings) (*Engine, error) {
	if settings.FixedStep <= 0 || settings.MaxSubSteps < 0 {
		return nil, ErrInvalidSettings
	}
	if settings.Gravity == nil {
		settings.Gravity = NoGravity{}
	}
	if settings.Materials == nil {
		settings.Materials = NewMaterialTable()
	}
	if settings.MaxRestingSpeed <= 0 {
		settings.MaxRestingSpeed = defaultMaxRestingSpeed
	}
	if settings.MaxPushOutDistance <= 0 {
		settings.MaxPushOutDistance = defaultMaxPushOutDistance
	}
	e := &Engine{
		settings: settings,
		bodies:   make(map[uint32]*body),
		slots:    make(map[uint32]int),
		byslot:   make(map[int]uint32),
		broad:    newBroadphase(settings.BroadphaseMargin),
		pairSeen: make(map[pairKey]bool),
		collider: newCollider(),
		solver:   newSolver(settings.Materials, settings.Gravity, settings.MaxRestingSpeed, settings.MaxPushOutDistance),
	}
	e.caster = &rayCaster{engine: e}
	return e, nil
}

// RayCaster returns the engine's built-in ray caster.
func (e *Engine) RayCaster() RayCaster { return e.caster }

// SetTerrain installs (or clears, with nil) an external terrain collider.
// While installed it is queried once per awake dynamic body per tick with
// the body's bounding sphere, and any reported penetration is resolved
// through the same impulse and push-out math as a body-body contact.
func (e *Engine) SetTerrain(t TerrainCollider) { e.terrain = t }

// OnPreCollision installs the pre-collision filter callback.
func (e *Engine) OnPreCollision(fn PreCollision) { e.pre = fn }

// OnPostCollision installs the post-collision observer callback.
func (e *Engine) OnPostCollision(fn PostCollision) { e.post = fn }

// SetGravity replaces the engine's gravity field.
func (e *Engine) SetGravity(g GravityField) {
	if g == nil {
		g = NoGravity{}
	}
	e.settings.Gravity = g
	e.solver.gravity = g
}

// SetMaterials replaces the engine's material table.
func (e *Engine) SetMaterials(m MaterialTable) {
	e.settings.Materials = m
	e.solver.materials = m
}

// AddBody builds a body from shape, motion, and density, registers it, and
// returns it as a Body handle. The engine takes ownership of the body's
// broadphase slot, created here.
func (e *Engine) AddBody(shape Shape, motion MotionKind, density float64) (Body, error) {
	if motion == Dynamic && shape.Volume() <= 0 {
		return nil, ErrInvalidShape
	}
	if motion == Dynamic && e.settings.MaxDynamicBodies > 0 && e.dynamicCount >= e.settings.MaxDynamicBodies {
		return nil, ErrCapacity
	}
	b := newBody(shape, motion, density)
	slot := e.broad.addSlot()
	e.bodies[b.bid] = b
	e.order = append(e.order, b)
	e.slots[b.bid] = slot
	e.byslot[slot] = b.bid
	e.broad.updateSlot(slot, b.worldAabb(&e.scratchAb))
	if motion == Dynamic {
		e.dynamicCount++
	}
	return b, nil
}

// RemoveBody unregisters b. It is a no-op if b is not currently registered.
func (e *Engine) RemoveBody(b Body) {
	bb, ok := b.(*body)
	if !ok {
		return
	}
	slot, ok := e.slots[bb.bid]
	if !ok {
		return
	}
	e.broad.removeSlot(slot)
	for k := range e.pairSeen {
		if k.lo == slot || k.hi == slot {
			delete(e.pairSeen, k)
		}
	}
	delete(e.slots, bb.bid)
	delete(e.byslot, slot)
	delete(e.bodies, bb.bid)
	for i, ob := range e.order {
		if ob == bb {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if bb.motion == Dynamic {
		e.dynamicCount--
	}
}

// RemoveAll unregisters every body, returning the engine to its freshly
// constructed state (broadphase and overlap table included).
func (e *Engine) RemoveAll() {
	e.bodies = make(map[uint32]*body)
	e.order = nil
	e.slots = make(map[uint32]int)
	e.byslot = make(map[int]uint32)
	e.broad = newBroadphase(e.settings.BroadphaseMargin)
	e.pairSeen = make(map[pairKey]bool)
	e.dynamicCount = 0
}

// Bodies returns every currently registered body in registration order.
// The returned slice is a fresh copy; mutating it does not affect the
// engine.
func (e *Engine) Bodies() []Body {
	out := make([]Body, 0, len(e.order))
	for _, b := range e.order {
		out = append(out, b)
	}
	return out
}

// Step advances the simulation by elapsed seconds, running FixedStep
// ticks until the accumulated time is consumed (or MaxSubSteps is
// reached, in which case the remainder is dropped rather than let the
// simulation spiral when it falls behind real time).
func (e *Engine) Step(elapsed float64) {
	e.accumulator += elapsed
	steps := 0
	for e.accumulator >= e.settings.FixedStep {
		if e.settings.MaxSubSteps > 0 && steps >= e.settings.MaxSubSteps {
			e.accumulator = 0 // fell too far behind; drop the backlog.
			return
		}
		e.tick(e.settings.FixedStep)
		e.accumulator -= e.settings.FixedStep
		steps++
	}
}

// tick runs one fixed-timestep iteration: apply gravity, predict motion,
// broadphase, narrowphase, solve, integrate. Bodies are visited in
// registration order and pairs in active-overlap-list order, so identical
// inputs replay to identical outputs.
func (e *Engine) tick(dt float64) {
	e.diag.Ticks++

	for _, b := range e.order {
		if b.Sleeping() {
			continue
		}
		gx, gy, gz := e.settings.Gravity.At(b.pose.Loc.X, b.pose.Loc.Y, b.pose.Loc.Z)
		b.applyGravityField(gx, gy, gz)
		b.updatePredictedTransform(dt)
		slot := e.slots[b.bid]
		e.broad.updateSlot(slot, b.predictedAabb(&e.scratchAb, e.settings.BroadphaseMargin))
	}

	pairs := e.broad.Sweep()
	e.diag.BroadphasePairs += uint64(len(pairs))

	for _, b := range e.order {
		b.tickContacted = false
		b.tickRestingOK = true
	}

	e.scratchManifolds = e.scratchManifolds[:0]
	seen := make(map[pairKey]bool, len(pairs))
	for _, pair := range pairs {
		aID, aok := e.byslot[pair.lo]
		bID, bok := e.byslot[pair.hi]
		if !aok || !bok {
			continue
		}
		a, b := e.bodies[aID], e.bodies[bID]
		if a == nil || b == nil || (a.motion != Dynamic && b.motion != Dynamic) {
			continue
		}
		if a.Sleeping() && b.Sleeping() {
			// both sides are already resting against each other; nothing
			// would change by solving this pair, and solving it anyway
			// would perturb velocities on bodies the integrator skips.
			continue
		}
		if e.pre != nil && !e.pre(a, b) {
			continue
		}
		man := &Manifold{A: a, B: b}
		if e.collider.Collide(a, b, man) {
			man.finalize()
			e.diag.NarrowphaseHits++
			e.diag.ContactsResolved += uint64(len(man.Points))

			// A sleeping body is woken only by a NEW contact from a
			// non-sleeping partner. A contact that persists tick over tick
			// is exactly what a settled body rests against; manifolds are
			// rebuilt every tick, so without the previous-tick pair cache
			// every resting contact would look new and re-wake the sleeper
			// forever.
			key := pairKey{pair.lo, pair.hi}
			seen[key] = true
			if !e.pairSeen[key] {
				aAsleep, bAsleep := a.Sleeping(), b.Sleeping()
				if aAsleep && !bAsleep {
					a.Wake()
				} else if bAsleep && !aAsleep {
					b.Wake()
				}
			}

			a.tickContacted, b.tickContacted = true, true
			for _, p := range man.Points {
				if math.Abs(p.Vn) >= e.settings.MaxRestingSpeed {
					a.tickRestingOK, b.tickRestingOK = false, false
				}
			}
			e.scratchManifolds = append(e.scratchManifolds, man)
		}
	}
	e.pairSeen = seen

	e.solver.resolve(e.scratchManifolds)

	for _, man := range e.scratchManifolds {
		if e.post != nil {
			e.post(man.A, man.B, man.Points)
		}
	}

	if e.terrain != nil {
		e.collideTerrain()
	}

	asleep := uint64(0)
	for _, b := range e.order {
		b.step(dt)
		if b.poseIsNaN() {
			b.forceSleep()
			e.diag.NaNPosesForced++
			slog.Warn("physics: body pose went NaN, forcing sleep", "body", b.bid)
		}
		if b.Sleeping() {
			asleep++
		}
	}
	e.diag.BodiesAsleep = asleep

	if e.diag.Ticks%256 == 0 {
		slog.Debug("physics tick", "ticks", e.diag.Ticks, "bodies", len(e.bodies), "asleep", asleep)
	}
}

// collideTerrain queries the external terrain collider once per awake
// dynamic body per tick with the body's bounding sphere, and resolves any
// reported penetration through the same solver math used for body-body
// contacts.
func (e *Engine) collideTerrain() {
	for _, b := range e.order {
		if b.motion != Dynamic || b.Sleeping() {
			continue
		}
		radius := b.shape.BoundingRadius()
		cx, cy, cz := b.pose.Loc.X, b.pose.Loc.Y, b.pose.Loc.Z
		px, py, pz, nx, ny, nz, depth, matID, found := e.terrain.CollideSphere(cx, cy, cz, radius)
		if !found || depth <= 0 {
			continue
		}
		b.tickContacted = true
		r := b.v0.SetS(px-b.pose.Loc.X, py-b.pose.Loc.Y, pz-b.pose.Loc.Z)
		var vRel lin.V3
		b.velocityAtLocalPoint(r, &vRel)
		vn := vRel.X*nx + vRel.Y*ny + vRel.Z*nz
		if math.Abs(vn) >= e.settings.MaxRestingSpeed {
			b.tickRestingOK = false
		}
		e.solver.resolveTerrain(b, px, py, pz, nx, ny, nz, depth, matID)
	}
}
