// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import "github.com/solve3d/rigid/math/lin"

// maxManifoldPoints caps how many contact points a single manifold keeps.
// Once a manifold is full, addPoint replaces its shallowest point with any
// deeper one and drops the rest; points are not chosen by enclosed area.
const maxManifoldPoints = 4

// ContactPoint is one point of contact between two bodies, always
// expressed in world space for the tick it was generated in. Manifolds are
// rebuilt from scratch every tick; no contact point persists or carries
// warm-start impulses across ticks.
type ContactPoint struct {
	Wx, Wy, Wz float64 // world position of the contact.
	Nx, Ny, Nz float64 // contact normal, points from body A towards body B.
	Depth      float64 // penetration depth; positive means overlapping.

	// ALx/ALy/ALz and BLx/BLy/BLz are the contact point expressed in A's and
	// B's local (model) frames respectively, filled in by Manifold.finalize
	// once both bodies are known. MatA/MatB are each side's material id at
	// the time of detection (the colliding body's MaterialID; compound
	// sub-shapes with their own material are out of scope here, see
	// DESIGN.md).
	ALx, ALy, ALz float64
	BLx, BLy, BLz float64
	MatA, MatB    int

	// VRelX/VRelY/VRelZ is the relative velocity (B minus A) at the contact
	// point as detected by the narrowphase, before the solver changes
	// either body's velocity. Vn is its projection onto the normal
	// (negative means approaching); VtX/VtY/VtZ is the tangential
	// remainder and Vt its magnitude. These are read-only diagnostics for
	// observers (e.g. PostCollision); the solver recomputes its own
	// relative velocity rather than trusting these once bodies upstream in
	// the same tick's manifold list have already been resolved.
	VRelX, VRelY, VRelZ float64
	Vn                  float64
	VtX, VtY, VtZ       float64
	Vt                  float64

	// Fraction is the fraction-of-step at which this contact first occurs,
	// reserved for a future swept (continuous) detection pass. The narrowphase
	// in this package always leaves it at zero and the solver always treats
	// Depth as authoritative; nothing currently populates or consults it.
	Fraction float64
}

// Manifold is the set of contact points produced by the narrowphase for a
// single colliding pair in the current tick.
type Manifold struct {
	A, B   *body
	Points []ContactPoint
}

// finalize fills in the per-point fields that depend on knowing both bodies
// (local-frame coordinates, material ids, and the relative-velocity
// decomposition), called once by the engine after the narrowphase has
// populated Points and before the solver runs. Points added via addPoint
// only carry what the collision routine computing the world-space contact
// naturally has on hand: world position, normal, and depth.
func (m *Manifold) finalize() {
	if len(m.Points) == 0 {
		return
	}
	var qa, qb lin.Q
	qa.Inv(m.A.pose.Rot)
	qb.Inv(m.B.pose.Rot)
	for i := range m.Points {
		p := &m.Points[i]

		lx, ly, lz := p.Wx-m.A.pose.Loc.X, p.Wy-m.A.pose.Loc.Y, p.Wz-m.A.pose.Loc.Z
		p.ALx, p.ALy, p.ALz = lin.MultSQ(lx, ly, lz, &qa)
		lx, ly, lz = p.Wx-m.B.pose.Loc.X, p.Wy-m.B.pose.Loc.Y, p.Wz-m.B.pose.Loc.Z
		p.BLx, p.BLy, p.BLz = lin.MultSQ(lx, ly, lz, &qb)
		p.MatA, p.MatB = m.A.matID, m.B.matID

		ra := lin.NewV3S(p.Wx-m.A.pose.Loc.X, p.Wy-m.A.pose.Loc.Y, p.Wz-m.A.pose.Loc.Z)
		rb := lin.NewV3S(p.Wx-m.B.pose.Loc.X, p.Wy-m.B.pose.Loc.Y, p.Wz-m.B.pose.Loc.Z)
		var vA, vB, vRel lin.V3
		m.A.velocityAtLocalPoint(ra, &vA)
		m.B.velocityAtLocalPoint(rb, &vB)
		vRel.Sub(&vB, &vA)
		p.VRelX, p.VRelY, p.VRelZ = vRel.X, vRel.Y, vRel.Z

		n := lin.NewV3S(p.Nx, p.Ny, p.Nz)
		p.Vn = vRel.Dot(n)
		tangent := lin.NewV3().Sub(&vRel, lin.NewV3().Scale(n, p.Vn))
		p.VtX, p.VtY, p.VtZ = tangent.X, tangent.Y, tangent.Z
		p.Vt = tangent.Len()
	}
}

// addPoint appends a contact point to the manifold, dropping the
// shallowest existing point if it would exceed maxManifoldPoints.
func (m *Manifold) addPoint(p ContactPoint) {
	if len(m.Points) < maxManifoldPoints {
		m.Points = append(m.Points, p)
		return
	}
	shallowest := 0
	for i := 1; i < len(m.Points); i++ {
		if m.Points[i].Depth < m.Points[shallowest].Depth {
			shallowest = i
		}
	}
	if p.Depth > m.Points[shallowest].Depth {
		m.Points[shallowest] = p
	}
}

// worldSupport returns the world-space point on b's shape furthest along
// world-space direction d, using scratch vectors v0 (model-space direction)
// and v1 (model-space support point) and scratch quaternion qi (inverse
// orientation).
func worldSupport(b *body, d *lin.V3, v0, v1 *lin.V3, qi *lin.Q) (x, y, z float64) {
	qi.Inv(b.pose.Rot)
	v0.X, v0.Y, v0.Z = lin.MultSQ(d.X, d.Y, d.Z, qi)
	b.shape.Support(v0, v1)
	return b.pose.AppS(v1.X, v1.Y, v1.Z)
}
