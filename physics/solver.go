// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/solve3d/rigid/math/lin"
)

// defaultMaxRestingSpeed and defaultMaxPushOutDistance are the solver
// defaults used when Settings leaves the corresponding field at zero.
const (
	defaultMaxRestingSpeed    = 0.1   // metres per second.
	defaultMaxPushOutDistance = 0.001 // metres.
)

// pushOutSlop is the penetration depth under which no positional
// correction is applied, avoiding jitter from floating point noise.
const pushOutSlop = 0.0005

// solver resolves every contact manifold produced by the narrowphase for
// one tick using a single-pass, closed-form impulse computed from the
// combined effective mass (the "K matrix") of the two bodies at the
// contact point, rather than an iterative sequential-impulse pass. This
// matches the direct per-contact resolution used by the engine this
// project is modelled on.
type solver struct {
	materials          MaterialTable
	gravity            GravityField
	maxRestingSpeed    float64
	maxPushOutDistance float64

	// degenerate counts contacts skipped because no impulse could be
	// computed (singular K matrix, zero effective mass along the normal).
	// Exposed through Engine.Diagnostics.
	degenerate uint64
}

func newSolver(materials MaterialTable, gravity GravityField, maxRestingSpeed, maxPushOutDistance float64) *solver {
	if gravity == nil {
		gravity = NoGravity{}
	}
	if maxRestingSpeed <= 0 {
		maxRestingSpeed = defaultMaxRestingSpeed
	}
	if maxPushOutDistance <= 0 {
		maxPushOutDistance = defaultMaxPushOutDistance
	}
	return &solver{materials: materials, gravity: gravity, maxRestingSpeed: maxRestingSpeed, maxPushOutDistance: maxPushOutDistance}
}

// resolve applies velocity and positional corrections for every point in
// every manifold. Order is not iterated to convergence: each contact is
// solved exactly once per tick, consistent with the single-pass design.
func (s *solver) resolve(manifolds []*Manifold) {
	for _, man := range manifolds {
		matA := s.materials.Material(man.A.matID)
		matB := s.materials.Material(man.B.matID)
		staticFriction := combineFriction(matA.StaticFriction, matB.StaticFriction)
		dynamicFriction := combineFriction(matA.DynamicFriction, matB.DynamicFriction)
		restitution := combineRestitution(matA.NormalElasticity, matB.NormalElasticity)
		tangentElasticity := combineRestitution(matA.TangentElasticity, matB.TangentElasticity)

		for _, p := range man.Points {
			s.resolvePoint(man.A, man.B, &p, staticFriction, dynamicFriction, restitution, tangentElasticity)
		}
	}
}

// closeFormImpulse implements the original engine's ResolveCollision law:
// Pn is the impulse that alone would zero the normal component of vRel,
// solved as a scalar division by n.(K.n) rather than by projecting K^-1
// back onto n (the two only agree when n happens to be an eigenvector of
// K). Pt is the impulse that would zero all of vRel. Pdiff = Pt - Pn
// isolates the coupled tangential/off-diagonal part, and the restitution-
// scaled combination (1+e)Pn + (1+et)Pdiff is the unclipped contact
// impulse. If that impulse falls outside the static friction cone, kappa
// rescales just the Pdiff contribution so the result lands exactly on the
// dynamic-friction cone boundary, rather than re-clamping the tangential
// component in isolation.
func closeFormImpulse(K, Kinv *lin.M3, n, vRel *lin.V3, vn, e, et, staticFriction, dynamicFriction float64) (impulse lin.V3, ok bool) {
	var Kn lin.V3
	Kn.MultMv(K, n)
	nKn := n.Dot(&Kn)
	if nKn < lin.Epsilon {
		return impulse, false // degenerate: normal direction carries no effective mass.
	}

	var Pn, negVRel, Pt, Pdiff lin.V3
	Pn.Scale(n, -vn/nKn)
	negVRel.Neg(vRel)
	Pt.MultMv(Kinv, &negVRel)
	Pdiff.Sub(&Pt, &Pn)

	tangent := lin.NewV3().Sub(vRel, lin.NewV3().Scale(n, vn))
	if tangent.LenSqr() > lin.Epsilon {
		tangent.Unit()
	}

	nPn := Pn.Dot(n)
	nPdiff := Pdiff.Dot(n)
	tPdiff := tangent.Dot(&Pdiff)

	normalMag := (1+e)*nPn + (1+et)*nPdiff
	tangentMag := (1 + et) * tPdiff

	var scaledPn, scaledPdiff lin.V3
	scaledPn.Scale(&Pn, 1+e)

	staticCone := staticFriction * normalMag
	if normalMag > 0 && (tangentMag > staticCone || tangentMag < -staticCone) {
		denom := math.Abs(tPdiff) - dynamicFriction*nPdiff
		if math.Abs(denom) > lin.Epsilon {
			kappa := dynamicFriction * (1 + e) * nPn / denom
			scaledPdiff.Scale(&Pdiff, kappa)
			impulse.Add(&scaledPn, &scaledPdiff)
			return impulse, true
		}
	}

	scaledPdiff.Scale(&Pdiff, 1+et)
	impulse.Add(&scaledPn, &scaledPdiff)
	return impulse, true
}

// resolvePoint performs the closed-form impulse solve described by the
// original engine's ResolveCollision: build the K matrix relating an
// impulse at the contact point to the resulting relative velocity change,
// invert it, and solve directly for the impulse that cancels the
// penetrating component of relative velocity (subject to restitution and
// a friction-cone clip on the tangential component). A detected singular K
// (zero determinant, e.g. two infinite-mass bodies) skips the point
// entirely rather than calling M3.Inv, which silently no-ops on singular
// input.
func (s *solver) resolvePoint(a, b *body, p *ContactPoint, staticFriction, dynamicFriction, restitution, tangentElasticity float64) {
	n := lin.NewV3S(p.Nx, p.Ny, p.Nz)
	ra := lin.NewV3S(p.Wx-a.pose.Loc.X, p.Wy-a.pose.Loc.Y, p.Wz-a.pose.Loc.Z)
	rb := lin.NewV3S(p.Wx-b.pose.Loc.X, p.Wy-b.pose.Loc.Y, p.Wz-b.pose.Loc.Z)

	var vA, vB, vRel lin.V3
	a.velocityAtLocalPoint(ra, &vA) // ra is in world offset form; Cross still valid since it's linear in the offset.
	b.velocityAtLocalPoint(rb, &vB)
	vRel.Sub(&vB, &vA) // negative normal projection means approaching.

	vn := vRel.Dot(n)
	if vn >= 0 {
		return // separating or resting; nothing to resolve.
	}

	// K = (1/ma + 1/mb) I - [ra x]*iitA*[ra x] - [rb x]*iitB*[rb x]
	var skewA, skewB, tmp, kA, kB, K lin.M3
	skewA.SetSkewSym(ra)
	skewB.SetSkewSym(rb)

	kA.Mult(tmp.Mult(&skewA, a.iitw), &skewA)
	kB.Mult(tmp.Mult(&skewB, b.iitw), &skewB)

	linearTerm := a.imass + b.imass
	K.SetS(linearTerm, 0, 0, 0, linearTerm, 0, 0, 0, linearTerm)
	K.Sub(&K, &kA)
	K.Sub(&K, &kB)

	if math.Abs(K.Det()) < lin.Epsilon {
		s.degenerate++
		return // degenerate geometry: two immovable bodies, or a singular configuration.
	}

	var Kinv lin.M3
	Kinv.Inv(&K)

	e, et := s.decayElasticity(vn, &vRel, n, restitution, tangentElasticity)

	impulse, ok := closeFormImpulse(&K, &Kinv, n, &vRel, vn, e, et, staticFriction, dynamicFriction)
	if !ok {
		s.degenerate++
		return
	}

	a.applyCollisionImpulseAt(-impulse.X, -impulse.Y, -impulse.Z, p.Wx, p.Wy, p.Wz)
	b.applyCollisionImpulseAt(impulse.X, impulse.Y, impulse.Z, p.Wx, p.Wy, p.Wz)

	// Positional correction only applies to resting contacts (spec step 8);
	// a fast-approaching contact is left to the velocity solve alone, which
	// will separate the bodies over the following ticks without the extra
	// positional nudge overshooting.
	if math.Abs(vn) < s.maxRestingSpeed {
		s.pushOutPositional(a, b, p)
	}
}

// decayElasticity implements the live linear blend from the original
// engine's ResolveCollision: as the normal relative speed falls below
// maxRestingSpeed, restitution is decayed toward 1 (plastic) and, if the
// tangential speed is also below threshold, tangential elasticity is
// decayed toward -1. vRel and n are read-only; vRel is not mutated.
func (s *solver) decayElasticity(vn float64, vRel, n *lin.V3, restitution, tangentElasticity float64) (e, et float64) {
	e, et = restitution, tangentElasticity
	if math.Abs(vn) < s.maxRestingSpeed {
		e = 1 - (e-1)*(vn/s.maxRestingSpeed)
		vt := lin.NewV3().Sub(vRel, lin.NewV3().Scale(n, vn)).Len()
		if vt < s.maxRestingSpeed {
			et = -1 + (et+1)*(vt/s.maxRestingSpeed)
		}
	}
	return e, et
}

// resolveTerrain resolves a single contact between a dynamic body and the
// external terrain collider. It follows the same K-matrix/friction-cone/
// push-out law as resolvePoint, but the terrain side is never a *body: it
// is treated as having infinite mass and inertia (the K matrix reduces to
// just the dynamic body's term), matching TerrainCollider's contract that
// terrain itself never moves.
func (s *solver) resolveTerrain(b *body, px, py, pz, nx, ny, nz, depth float64, materialID int) {
	mat := s.materials.Material(materialID)
	bodyMat := s.materials.Material(b.matID)
	staticFriction := combineFriction(bodyMat.StaticFriction, mat.StaticFriction)
	dynamicFriction := combineFriction(bodyMat.DynamicFriction, mat.DynamicFriction)
	restitution := combineRestitution(bodyMat.NormalElasticity, mat.NormalElasticity)
	tangentElasticity := combineRestitution(bodyMat.TangentElasticity, mat.TangentElasticity)

	n := lin.NewV3S(nx, ny, nz)
	r := lin.NewV3S(px-b.pose.Loc.X, py-b.pose.Loc.Y, pz-b.pose.Loc.Z)

	var vRel lin.V3
	b.velocityAtLocalPoint(r, &vRel)

	vn := vRel.Dot(n)
	if vn >= 0 {
		return
	}

	var skew, tmp, kB, K lin.M3
	skew.SetSkewSym(r)
	kB.Mult(tmp.Mult(&skew, b.iitw), &skew)
	K.SetS(b.imass, 0, 0, 0, b.imass, 0, 0, 0, b.imass)
	K.Sub(&K, &kB)

	if math.Abs(K.Det()) < lin.Epsilon {
		s.degenerate++
		return
	}
	var Kinv lin.M3
	Kinv.Inv(&K)

	e, et := s.decayElasticity(vn, &vRel, n, restitution, tangentElasticity)

	impulse, ok := closeFormImpulse(&K, &Kinv, n, &vRel, vn, e, et, staticFriction, dynamicFriction)
	if !ok {
		s.degenerate++
		return
	}

	b.applyCollisionImpulseAt(impulse.X, impulse.Y, impulse.Z, px, py, pz)

	if math.Abs(vn) >= s.maxRestingSpeed {
		return
	}
	correction := s.pushOutAmount(depth)
	if correction <= 0 {
		return
	}
	b.pushOut(nx*correction, ny*correction, nz*correction)
	s.drainPushOut(b, nx*correction, ny*correction, nz*correction)
}

// drainPushOut removes from the body's linear kinetic energy the
// gravitational potential a push-out correction just added, so repeated
// resting-contact corrections cannot pump energy into the system. A push
// with the local gravity (or perpendicular to it) adds no potential and
// drains nothing.
func (s *solver) drainPushOut(b *body, dx, dy, dz float64) {
	gx, gy, gz := s.gravity.At(b.pose.Loc.X, b.pose.Loc.Y, b.pose.Loc.Z)
	deltaEnergy := -(gx*dx + gy*dy + gz*dz) * b.Mass()
	if deltaEnergy > 0 {
		b.drainVelocity(deltaEnergy)
	}
}

// pushOutAmount clamps a reported penetration depth to this solver's
// configured max-push-out-distance-per-step, after subtracting a small
// slop so floating point noise near zero penetration produces no motion.
func (s *solver) pushOutAmount(depth float64) float64 {
	depth -= pushOutSlop
	if depth <= 0 {
		return 0
	}
	if depth > s.maxPushOutDistance {
		return s.maxPushOutDistance
	}
	return depth
}

// pushOutPositional directly separates two overlapping bodies along the
// contact normal in proportion to their mass fraction, then drains the
// corresponding amount of kinetic energy from each body's linear velocity
// so the correction does not add energy to the system.
func (s *solver) pushOutPositional(a, b *body, p *ContactPoint) {
	correction := s.pushOutAmount(p.Depth)
	if correction <= 0 {
		return
	}
	totalInv := a.imass + b.imass
	if totalInv < lin.Epsilon {
		return
	}
	fracA := a.imass / totalInv
	fracB := b.imass / totalInv

	dx, dy, dz := p.Nx*correction, p.Ny*correction, p.Nz*correction
	a.pushOut(-dx*fracA, -dy*fracA, -dz*fracA)
	b.pushOut(dx*fracB, dy*fracB, dz*fracB)
	s.drainPushOut(a, -dx*fracA, -dy*fracA, -dz*fracA)
	s.drainPushOut(b, dx*fracB, dy*fracB, dz*fracB)
}
