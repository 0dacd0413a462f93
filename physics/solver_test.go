// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/solve3d/rigid/math/lin"
)

// newSlidingPair builds two equal-mass dynamic spheres at a shared contact
// point so the contact's lever arms (ra, rb) are zero and the K matrix
// reduces to a simple scalar, with a fast tangential slide and a slow
// approach along the normal (A climbing into B, so vRel = vB-vA projects
// negatively on the A-to-B normal) so the friction cone is exercised.
func newSlidingPair() (a, b *body, p ContactPoint) {
	a = newBody(NewSphere(0.5), Dynamic, 1)
	b = newBody(NewSphere(0.5), Dynamic, 1)
	a.lvel.SetS(5, 1, 0)
	b.lvel.SetS(0, 0, 0)
	p = ContactPoint{Wx: 0, Wy: 0, Wz: 0, Nx: 0, Ny: 1, Nz: 0, Depth: 0.01}
	return a, b, p
}

// TestResolvePointClipsToDynamicFriction checks spec step 6's friction-cone
// rule directly: once the requested tangential impulse exceeds the static
// cone, the clipped value is set by the dynamic coefficient, not by
// re-clamping to the static bound. Two resolves that agree on the dynamic
// coefficient but disagree sharply on the static one must land on the same
// post-resolve velocity once the cone is exceeded in both; if the clip were
// (incorrectly) re-clamping to the static bound the two runs would diverge.
func TestResolvePointClipsToDynamicFriction(t *testing.T) {
	s := newSolver(NewMaterialTable(), NoGravity{}, 0.1, 0.001)

	aLow, bLow, p := newSlidingPair()
	s.resolvePoint(aLow, bLow, &p, 0.1, 0.1, 0, 0)

	aHigh, bHigh, p2 := newSlidingPair()
	s.resolvePoint(aHigh, bHigh, &p2, 0.9, 0.1, 0, 0)

	if !lin.Aeq(aLow.lvel.X, aHigh.lvel.X) || !lin.Aeq(aLow.lvel.Y, aHigh.lvel.Y) {
		t.Errorf("Expected the clip to depend only on dynamic friction once the cone is exceeded: "+
			"static=0.1 gave vA=(%f,%f), static=0.9 gave vA=(%f,%f)",
			aLow.lvel.X, aLow.lvel.Y, aHigh.lvel.X, aHigh.lvel.Y)
	}
	if !lin.Aeq(bLow.lvel.X, bHigh.lvel.X) || !lin.Aeq(bLow.lvel.Y, bHigh.lvel.Y) {
		t.Errorf("Expected body B's post-resolve velocity to match across the two static-friction values too")
	}
}

// TestResolvePointNoClipWithinCone checks the complementary case: when the
// requested tangential impulse falls within the static cone, friction
// behaves as a single coefficient (no slip), so two resolves sharing a
// static coefficient but differing in dynamic friction must agree, since
// the dynamic value is never consulted.
func TestResolvePointNoClipWithinCone(t *testing.T) {
	s := newSolver(NewMaterialTable(), NoGravity{}, 0.1, 0.001)

	a1 := newBody(NewSphere(0.5), Dynamic, 1)
	b1 := newBody(NewSphere(0.5), Dynamic, 1)
	a1.lvel.SetS(0.01, 1, 0) // tiny tangential component, well inside any reasonable cone.
	p1 := ContactPoint{Wx: 0, Wy: 0, Wz: 0, Nx: 0, Ny: 1, Nz: 0, Depth: 0.01}
	s.resolvePoint(a1, b1, &p1, 0.9, 0.9, 0, 0)

	a2 := newBody(NewSphere(0.5), Dynamic, 1)
	b2 := newBody(NewSphere(0.5), Dynamic, 1)
	a2.lvel.SetS(0.01, 1, 0)
	p2 := ContactPoint{Wx: 0, Wy: 0, Wz: 0, Nx: 0, Ny: 1, Nz: 0, Depth: 0.01}
	s.resolvePoint(a2, b2, &p2, 0.9, 0.01, 0, 0)

	if !lin.Aeq(a1.lvel.X, a2.lvel.X) || !lin.Aeq(a1.lvel.Y, a2.lvel.Y) {
		t.Errorf("Expected an unclipped contact to ignore dynamic friction entirely: "+
			"dynamic=0.9 gave vA=(%f,%f), dynamic=0.01 gave vA=(%f,%f)",
			a1.lvel.X, a1.lvel.Y, a2.lvel.X, a2.lvel.Y)
	}
}

// TestResolvePointCornerContactZeroesNormalVelocity exercises the case the
// closed-form normal impulse must get right: a contact point offset from
// both centres of mass (a box corner), with spin, so the skew terms make K
// non-diagonal and the contact normal is not one of K's eigenvectors. A
// solver that conflated n.K^-1.n with 1/(n.K.n) under-resolves this case.
func TestResolvePointCornerContactZeroesNormalVelocity(t *testing.T) {
	s := newSolver(NewMaterialTable(), NoGravity{}, 0.1, 0.001)

	a := newBody(NewBox(1, 1, 1), Dynamic, 1)
	b := newBody(NewBox(1, 1, 1), Dynamic, 1)
	a.SetLinearVelocity(0, 2, 0) // A climbing into B along the A-to-B normal.
	a.SetAngularVelocity(1, 0, 0.5)
	p := ContactPoint{Wx: 0.5, Wy: 0, Wz: 0.5, Nx: 0, Ny: 1, Nz: 0, Depth: 0.01}

	s.resolvePoint(a, b, &p, 0.5, 0.3, 0, 0)

	n := lin.NewV3S(0, 1, 0)
	ra := lin.NewV3S(p.Wx-a.pose.Loc.X, p.Wy-a.pose.Loc.Y, p.Wz-a.pose.Loc.Z)
	rb := lin.NewV3S(p.Wx-b.pose.Loc.X, p.Wy-b.pose.Loc.Y, p.Wz-b.pose.Loc.Z)
	var vA, vB, vRel lin.V3
	a.velocityAtLocalPoint(ra, &vA)
	b.velocityAtLocalPoint(rb, &vB)
	vRel.Sub(&vB, &vA)
	vn := vRel.Dot(n)
	if vn < -lin.Epsilon {
		t.Errorf("Expected the corner contact's post-resolve normal relative velocity to be non-negative, got %f", vn)
	}
}
