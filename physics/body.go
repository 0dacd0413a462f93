// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"log/slog"
	"math"
	"sync"

	"github.com/solve3d/rigid/math/lin"
)

// MotionKind classifies how a body participates in the simulation.
type MotionKind int

const (
	Dynamic    MotionKind = iota // moved by forces, impulses, and collisions.
	Static                      // never moves; infinite mass, ignored by the integrator.
	Keyframed                   // moved externally by SetPose; infinite mass but can push Dynamic bodies.
)

// SleepState tracks whether a body is actively integrated.
type SleepState int

const (
	Awake SleepState = iota
	Asleep
)

// Body is a single rigid object contained within a physics simulation.
// Bodies that are added to an Engine have their pose controlled by the
// simulation; do not write to a Dynamic body's pose directly except through
// SetPose, which is treated as a hard teleport.
type Body interface {
	ID() uint32 // unique, stable for the lifetime of the body.

	Shape() Shape
	Pose() *lin.T
	SetPose(pose *lin.T)

	Motion() MotionKind

	// SetMotion changes the body's motion kind, recomputing mass
	// properties: switching to Dynamic rederives mass from the body's
	// construction density and shape volume, switching away zeroes the
	// inverse mass and inertia. Legal only between ticks; the engine's
	// dynamic-body capacity accounting reflects the kind the body had at
	// registration, so change kind before AddBody where that matters.
	SetMotion(kind MotionKind)

	Sleeping() bool
	Wake()

	MaterialID() int
	SetMaterialID(id int)

	Group() int // collision group/layer tag; meaning is caller-defined.
	SetGroup(g int)

	Mass() float64 // 0 for Static/Keyframed bodies.

	// SetMass overrides the density-derived mass of a Dynamic body,
	// rescaling the inertia tensor to match. Ignored for Static and
	// Keyframed bodies and for non-positive masses.
	SetMass(mass float64)

	// Inertia returns the object-space diagonal inertia tensor; zero on
	// all axes for immovable bodies. SetInertia overrides it; a zero
	// component means infinite rotational inertia about that axis,
	// locking rotation around it.
	Inertia() (x, y, z float64)
	SetInertia(x, y, z float64)

	LinearVelocity() (x, y, z float64)
	AngularVelocity() (x, y, z float64)
	SetLinearVelocity(x, y, z float64)
	SetAngularVelocity(x, y, z float64)

	// ApplyWorldImpulse adds a linear impulse (in world space, through the
	// centre of mass) to the body's velocity. No-op on Static/Keyframed bodies.
	ApplyWorldImpulse(x, y, z float64)

	// ApplyWorldMoment adds an angular impulse (world space) to the body's
	// angular velocity. No-op on Static/Keyframed bodies.
	ApplyWorldMoment(x, y, z float64)

	// ApplyWorldImpulseAt applies a world-space impulse at a world-space
	// point, producing both a linear and an angular change.
	ApplyWorldImpulseAt(ix, iy, iz, px, py, pz float64)

	// ApplyForce and ApplyTorque add to the body's force and torque
	// accumulators, consumed (and cleared) by the next tick's
	// integration. Both wake a sleeping body. No-op on Static/Keyframed
	// bodies.
	ApplyForce(x, y, z float64)
	ApplyTorque(x, y, z float64)

	// UserData is caller-owned storage, e.g. a link back to a scene node.
	UserData() interface{}
	SetUserData(v interface{})
}

// Body interface
// ===========================================================================
// body implementation.

type body struct {
	bid     uint32
	shape   Shape
	motion  MotionKind
	density float64 // construction density, kept so SetMotion can rederive mass.
	matID   int
	group   int
	sleep   SleepState
	idle    float64 // seconds spent satisfying the resting-contact sleep predicate.
	data    interface{}

	// tickContacted and tickRestingOK are reset by the engine at the top of
	// every tick and updated as narrowphase/terrain contacts are found:
	// tickContacted records whether this body touched anything at all this
	// tick, tickRestingOK records whether every one of those contacts was a
	// resting contact (normal relative speed below MaxRestingSpeed).
	// updateSleepState consults both, matching the sleep predicate's "every
	// contact on the body is a resting contact" clause.
	tickContacted bool
	tickRestingOK bool

	pose *lin.T // current world transform.
	pred *lin.T // predicted world transform, one tick ahead.

	imass float64 // inverse mass; 0 for immovable bodies.
	lvel  *lin.V3
	lfor  *lin.V3
	ldamp float64
	avel  *lin.V3
	afor  *lin.V3
	adamp float64

	iit  *lin.V3 // object-space inverse inertia tensor, diagonal.
	iitw *lin.M3 // world-space inverse inertia tensor.

	// scratch, reused every tick to avoid per-call allocation.
	v0, v1 *lin.V3
	m0, m1 *lin.M3
	t0     *lin.T
}

var bodyUUID uint32
var bodyUUIDMutex sync.Mutex

// NewBody creates a body of the given motion kind with the given shape.
// density is used with shape.Volume() to derive mass for Dynamic bodies;
// it is ignored for Static and Keyframed bodies.
func NewBody(shape Shape, motion MotionKind, density float64) Body {
	return newBody(shape, motion, density)
}

func newBody(shape Shape, motion MotionKind, density float64) *body {
	b := &body{
		shape:   shape,
		motion:  motion,
		density: density,
		pose:    lin.NewT().SetI(),
		pred:    lin.NewT().SetI(),
		lvel:    lin.NewV3(),
		lfor:    lin.NewV3(),
		avel:    lin.NewV3(),
		afor:    lin.NewV3(),
		iit:     lin.NewV3(),
		iitw:    lin.NewM3I(),
		v0:      lin.NewV3(),
		v1:      lin.NewV3(),
		m0:      lin.NewM3(),
		m1:      lin.NewM3(),
		t0:      lin.NewT(),
	}

	b.deriveMassProperties()

	bodyUUIDMutex.Lock()
	b.bid = bodyUUID
	bodyUUID++
	if bodyUUID == 0 {
		slog.Warn("physics: body id counter wrapped")
	}
	bodyUUIDMutex.Unlock()
	return b
}

// deriveMassProperties rederives inverse mass and the inverse inertia
// tensors from the body's density, shape, and motion kind. Static and
// Keyframed bodies, and zero-mass Dynamic ones, get a zero iit, which also
// zeroes their world inverse inertia tensor (infinite inertia) rather than
// leaving it at the M3I default, which step() would otherwise never correct
// since it skips immovable bodies entirely.
func (b *body) deriveMassProperties() {
	b.imass = 0
	b.iit.SetS(0, 0, 0)
	if b.motion == Dynamic {
		mass := b.density * b.shape.Volume()
		if mass > lin.Epsilon {
			b.imass = 1.0 / mass
			inertia := b.shape.Inertia(mass, lin.NewV3())
			b.iit.SetS(invOrZero(inertia.X), invOrZero(inertia.Y), invOrZero(inertia.Z))
		}
	}
	b.updateInertiaTensor()
}

func invOrZero(x float64) float64 {
	if lin.AeqZ(x) {
		return 0
	}
	return 1.0 / x
}

func (b *body) ID() uint32   { return b.bid }
func (b *body) Shape() Shape { return b.shape }
func (b *body) Pose() *lin.T { return b.pose }
func (b *body) SetPose(pose *lin.T) {
	b.pose.Set(pose)
	b.pred.Set(pose)
	b.updateInertiaTensor()
	b.Wake()
}

func (b *body) Motion() MotionKind { return b.motion }

func (b *body) SetMotion(kind MotionKind) {
	if b.motion == kind {
		return
	}
	b.motion = kind
	if kind == Static {
		b.lvel.SetS(0, 0, 0)
		b.avel.SetS(0, 0, 0)
	}
	b.deriveMassProperties()
	b.Wake()
}

func (b *body) Sleeping() bool { return b.sleep == Asleep }
func (b *body) Wake() {
	b.sleep = Awake
	b.idle = 0
}

// poseIsNaN reports whether this body's integrated pose has gone NaN,
// which step() cannot recover from (every velocity and position derived
// from it is NaN from that point on).
func (b *body) poseIsNaN() bool {
	return math.IsNaN(b.pose.Loc.X) || math.IsNaN(b.pose.Loc.Y) || math.IsNaN(b.pose.Loc.Z) ||
		math.IsNaN(b.pose.Rot.X) || math.IsNaN(b.pose.Rot.Y) || math.IsNaN(b.pose.Rot.Z) || math.IsNaN(b.pose.Rot.W)
}

// forceSleep puts the body to sleep unconditionally, bypassing the normal
// idle-time predicate. Used to quarantine a body whose pose has gone NaN:
// the engine can keep ticking every other body while this one simply stops
// being integrated.
func (b *body) forceSleep() {
	b.sleep = Asleep
	b.lvel.SetS(0, 0, 0)
	b.avel.SetS(0, 0, 0)
}

func (b *body) MaterialID() int      { return b.matID }
func (b *body) SetMaterialID(id int) { b.matID = id }
func (b *body) Group() int           { return b.group }
func (b *body) SetGroup(g int)       { b.group = g }

func (b *body) Mass() float64 {
	if b.imass == 0 {
		return 0
	}
	return 1.0 / b.imass
}

func (b *body) SetMass(mass float64) {
	if b.motion != Dynamic || mass <= 0 {
		return
	}
	b.imass = 1.0 / mass
	inertia := b.shape.Inertia(mass, lin.NewV3())
	b.iit.SetS(invOrZero(inertia.X), invOrZero(inertia.Y), invOrZero(inertia.Z))
	b.updateInertiaTensor()
	b.Wake()
}

func (b *body) Inertia() (x, y, z float64) {
	return invOrZero(b.iit.X), invOrZero(b.iit.Y), invOrZero(b.iit.Z)
}

func (b *body) SetInertia(x, y, z float64) {
	if b.motion != Dynamic {
		return
	}
	b.iit.SetS(invOrZero(x), invOrZero(y), invOrZero(z))
	b.updateInertiaTensor()
	b.Wake()
}

func (b *body) movable() bool { return b.motion == Dynamic && b.imass != 0 }

func (b *body) LinearVelocity() (x, y, z float64)  { return b.lvel.X, b.lvel.Y, b.lvel.Z }
func (b *body) AngularVelocity() (x, y, z float64) { return b.avel.X, b.avel.Y, b.avel.Z }
func (b *body) SetLinearVelocity(x, y, z float64) {
	b.lvel.SetS(x, y, z)
	b.Wake()
}
func (b *body) SetAngularVelocity(x, y, z float64) {
	b.avel.SetS(x, y, z)
	b.Wake()
}

func (b *body) ApplyWorldImpulse(x, y, z float64) {
	if !b.movable() {
		return
	}
	b.lvel.X += x * b.imass
	b.lvel.Y += y * b.imass
	b.lvel.Z += z * b.imass
	b.Wake()
}

func (b *body) ApplyWorldMoment(x, y, z float64) {
	if !b.movable() {
		return
	}
	b.v0.SetS(x, y, z)
	b.v1.MultMv(b.iitw, b.v0)
	b.avel.X += b.v1.X
	b.avel.Y += b.v1.Y
	b.avel.Z += b.v1.Z
	b.Wake()
}

// ApplyWorldImpulseAt splits a world-space impulse applied at a world-space
// point into its linear and angular (r x impulse) components. If the point
// coincides with the centre of mass the angular part cancels to zero, per
// the original engine's ApplyWorldCollisionImpulseAt convention.
func (b *body) ApplyWorldImpulseAt(ix, iy, iz, px, py, pz float64) {
	if !b.movable() {
		return
	}
	b.ApplyWorldImpulse(ix, iy, iz)
	r := b.v0.SetS(px-b.pose.Loc.X, py-b.pose.Loc.Y, pz-b.pose.Loc.Z)
	imp := b.v1.SetS(ix, iy, iz)
	var torque lin.V3
	torque.Cross(r, imp)
	b.ApplyWorldMoment(torque.X, torque.Y, torque.Z)
}

func (b *body) ApplyForce(x, y, z float64) {
	if !b.movable() {
		return
	}
	b.lfor.X += x
	b.lfor.Y += y
	b.lfor.Z += z
	b.Wake()
}

func (b *body) ApplyTorque(x, y, z float64) {
	if !b.movable() {
		return
	}
	b.afor.X += x
	b.afor.Y += y
	b.afor.Z += z
	b.Wake()
}

// applyCollisionImpulseAt applies a world-space impulse at a world-space
// point like ApplyWorldImpulseAt, but first cancels any component of the
// body's pending force accumulator that directly opposes the new impulse
// (and the component of the torque accumulator opposing r x impulse). A
// contact impulse that reverses the pre-contact force must not be summed
// with the residual of that force when this tick's integration runs, or
// resting-contact response oscillates instead of settling; this is the
// solver's entry point for applying resolved contact impulses, distinct
// from the general-purpose ApplyWorldImpulseAt used by external callers.
//
// Unlike the public impulse methods this neither wakes the body nor
// touches a sleeping one: waking on contact is the engine's decision (a
// new contact from a non-sleeping partner), and a sleeping body in a
// persisting resting contact must stay exactly where it is, acting as
// infinite mass for its partner, or settled stacks never stay settled.
func (b *body) applyCollisionImpulseAt(ix, iy, iz, px, py, pz float64) {
	if !b.movable() || b.Sleeping() {
		return
	}
	r := lin.NewV3S(px-b.pose.Loc.X, py-b.pose.Loc.Y, pz-b.pose.Loc.Z)
	imp := lin.NewV3S(ix, iy, iz)

	if jn := imp.LenSqr(); jn > lin.Epsilon {
		dir := lin.NewV3S(imp.X, imp.Y, imp.Z).Unit()
		if along := b.lfor.Dot(dir); along < 0 {
			b.lfor.X -= dir.X * along
			b.lfor.Y -= dir.Y * along
			b.lfor.Z -= dir.Z * along
		}
	}

	var torque lin.V3
	torque.Cross(r, imp)
	if tn := torque.LenSqr(); tn > lin.Epsilon {
		tdir := lin.NewV3S(torque.X, torque.Y, torque.Z).Unit()
		if along := b.afor.Dot(tdir); along < 0 {
			b.afor.X -= tdir.X * along
			b.afor.Y -= tdir.Y * along
			b.afor.Z -= tdir.Z * along
		}
	}

	b.lvel.X += ix * b.imass
	b.lvel.Y += iy * b.imass
	b.lvel.Z += iz * b.imass
	b.v1.MultMv(b.iitw, &torque)
	b.avel.Add(b.avel, b.v1)
}

func (b *body) UserData() interface{}     { return b.data }
func (b *body) SetUserData(v interface{}) { b.data = v }

// pushOut nudges the body's position by the given world-space correction,
// used by the solver to resolve residual penetration after the velocity
// solve. Returns early for immovable and sleeping bodies.
func (b *body) pushOut(dx, dy, dz float64) {
	if !b.movable() || b.Sleeping() {
		return
	}
	b.pose.Loc.X += dx
	b.pose.Loc.Y += dy
	b.pose.Loc.Z += dz
}

// drainVelocity removes the portion of linear kinetic energy deltaEnergy
// from the body's linear velocity, used after a push-out correction so the
// correction does not inject energy into the system. Leaves velocity alone
// if the body is nearly at rest.
func (b *body) drainVelocity(deltaEnergy float64) {
	if !b.movable() || deltaEnergy <= 0 {
		return
	}
	vsqr := b.lvel.LenSqr()
	if vsqr < lin.Epsilon {
		return
	}
	mass := 1.0 / b.imass
	ratio := deltaEnergy * 2.0 / mass / vsqr
	if ratio >= 1 {
		b.lvel.SetS(0, 0, 0)
		return
	}
	// |v'| satisfies half*m*|v'|^2 == half*m*|v|^2 - deltaEnergy.
	b.lvel.Scale(b.lvel, math.Sqrt(1.0-ratio))
}

// applyGravityField adds a gravity acceleration (already evaluated for this
// body's position) to the total forces acting on this body.
func (b *body) applyGravityField(gx, gy, gz float64) {
	if !b.movable() {
		return
	}
	mass := 1.0 / b.imass
	b.lfor.X += gx * mass
	b.lfor.Y += gy * mass
	b.lfor.Z += gz * mass
}

// updateInertiaTensor recomputes the world-space inverse inertia tensor
// from the object-space diagonal inverse inertia and the current
// orientation: iitw = R * diag(iit) * R^T.
func (b *body) updateInertiaTensor() {
	worldBasis, basisT := b.m0, b.m1
	worldBasis.SetQ(b.pose.Rot)
	basisT.Transpose(worldBasis)
	b.iitw.Mult(worldBasis.ScaleV(b.iit), basisT)
}

// integrateVelocities applies accumulated forces over timestep ts. Static
// and Keyframed bodies are unaffected.
func (b *body) integrateVelocities(ts float64) {
	if !b.movable() {
		return
	}
	m := b.imass * ts
	b.lvel.X += b.lfor.X * m
	b.lvel.Y += b.lfor.Y * m
	b.lvel.Z += b.lfor.Z * m

	torq := b.v0
	torq.MultMv(b.iitw, b.afor)
	b.avel.X += torq.X * ts
	b.avel.Y += torq.Y * ts
	b.avel.Z += torq.Z * ts

	if avel := b.avel.Len(); avel*ts > lin.HalfPi {
		b.avel.Scale(b.avel, lin.HalfPi/ts/avel)
	}
}

func (b *body) applyDamping(ts float64) {
	b.lvel.Scale(b.lvel, math.Pow(1.0-b.ldamp, ts))
	b.avel.Scale(b.avel, math.Pow(1.0-b.adamp, ts))
}

// SetDamping configures linear and angular velocity decay per second.
func (b *body) SetDamping(linear, angular float64) {
	b.ldamp, b.adamp = linear, angular
}

// velocityAtLocalPoint returns the linear + angular velocity of this body
// at a point given in body-local coordinates.
func (b *body) velocityAtLocalPoint(localPoint, out *lin.V3) *lin.V3 {
	return out.Cross(b.avel, localPoint).Add(out, b.lvel)
}

// predictedAabb updates ab to the body's bounding box under its predicted
// (one tick ahead) transform, grown by margin.
func (b *body) predictedAabb(ab *Abox, margin float64) *Abox {
	return b.shape.Aabb(b.pred, ab, margin)
}

func (b *body) worldAabb(ab *Abox) *Abox { return b.shape.Aabb(b.pose, ab, 0) }

func (b *body) updatePredictedTransform(ts float64) {
	b.pred.Integrate(b.pose, b.lvel, b.avel, ts)
}

// step integrates the body's pose by ts. The linear position update uses
// the average of the start- and end-of-tick velocities, which for constant
// acceleration is exactly vOld*ts + half*a*ts*ts. The angular part is an
// order-2 midpoint rule: the start-of-step angular velocity is converted
// to angular momentum through the start-orientation inertia tensor, the
// orientation is stepped a half tick, the world inverse inertia tensor is
// recomputed there, and the angular velocity driving the full-step
// orientation update is rederived from the conserved momentum. For an
// isotropic tensor this reduces to plain Euler; for an anisotropic one it
// keeps large spins stable where a first-order step diverges. Orientation
// is carried as a unit quaternion, renormalised inside lin.T.Integrate,
// which is the quaternion form of re-orthonormalising rotation columns.
func (b *body) step(ts float64) {
	if !b.movable() || b.Sleeping() {
		return
	}

	b.updateInertiaTensor()

	vOld := b.v1.Set(b.lvel)
	b.integrateVelocities(ts)
	b.applyDamping(ts)

	inertia := lin.NewV3S(invOrZero(b.iit.X), invOrZero(b.iit.Y), invOrZero(b.iit.Z))
	b.m0.SetQ(b.pose.Rot)
	b.m1.Transpose(b.m0)
	var iw lin.M3
	iw.Mult(b.m0.ScaleV(inertia), b.m1)
	var angMomentum lin.V3
	angMomentum.MultMv(&iw, b.avel)

	half := b.t0
	half.Integrate(b.pose, b.lvel, b.avel, ts*0.5)
	b.m0.SetQ(half.Rot)
	b.m1.Transpose(b.m0)
	b.iitw.Mult(b.m0.ScaleV(b.iit), b.m1)
	b.avel.MultMv(b.iitw, &angMomentum)

	var vAvg lin.V3
	vAvg.Add(vOld, b.lvel).Scale(&vAvg, 0.5)
	b.t0.Integrate(b.pose, &vAvg, b.avel, ts)
	b.pose.Set(b.t0)

	b.clearForces()
	b.updateSleepState(ts)
}

func (b *body) clearForces() {
	b.lfor.SetS(0, 0, 0)
	b.afor.SetS(0, 0, 0)
}

// Sleep thresholds. The linear threshold matches the default resting speed:
// a body in stable resting contact cycles its approach speed just below the
// resting threshold each tick (the restitution decay law keeps it there),
// so a tighter linear bound would keep resting bodies awake forever.
const (
	sleepLinearThreshold  = 0.1
	sleepAngularThreshold = 0.2
	sleepTime             = 0.5 // seconds below threshold before sleeping.
)

// updateSleepState implements the sleep predicate: a consecutive run of
// ticks in which every contact this body took part in was a resting
// contact (or the body had no contact at all: a body floating with zero
// velocity and nothing touching it is just as eligible to sleep) and its
// linear and angular speeds stay below the sleep thresholds.
func (b *body) updateSleepState(ts float64) {
	if !b.movable() {
		return
	}
	restingOrUncontested := !b.tickContacted || b.tickRestingOK
	if restingOrUncontested &&
		b.lvel.LenSqr() < sleepLinearThreshold*sleepLinearThreshold &&
		b.avel.LenSqr() < sleepAngularThreshold*sleepAngularThreshold {
		b.idle += ts
		if b.idle >= sleepTime {
			b.sleep = Asleep
			b.lvel.SetS(0, 0, 0)
			b.avel.SetS(0, 0, 0)
		}
	} else {
		b.idle = 0
	}
}
