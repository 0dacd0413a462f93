// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/solve3d/rigid/math/lin"
)

// GravityField supplies the acceleration applied to a body at its current
// position, letting callers implement uniform gravity, planetary (point
// source) gravity, or no gravity at all. Engine calls At once per body per
// tick before integrating velocities.
type GravityField interface {
	At(x, y, z float64) (gx, gy, gz float64)
}

// UniformGravity is a GravityField that returns the same acceleration
// everywhere, the common case of a constant downward pull.
type UniformGravity struct {
	X, Y, Z float64
}

// At implements GravityField.
func (g UniformGravity) At(x, y, z float64) (gx, gy, gz float64) { return g.X, g.Y, g.Z }

// NoGravity is a GravityField with zero acceleration everywhere.
type NoGravity struct{}

// At implements GravityField.
func (NoGravity) At(x, y, z float64) (gx, gy, gz float64) { return 0, 0, 0 }

// TerrainCollider lets the engine query arbitrary external geometry (e.g.
// a heightfield) that is too large or too irregular to represent as a
// Body. The engine calls CollideSphere once per awake dynamic body per tick with
// the body's bounding sphere; found is false if the sphere is clear of the
// terrain, otherwise the terrain point, outward normal, penetration depth,
// and a material id (looked up through the engine's MaterialTable) are
// returned so the contact can be resolved like any other.
type TerrainCollider interface {
	CollideSphere(cx, cy, cz, radius float64) (px, py, pz, nx, ny, nz, depth float64, materialID int, found bool)
}

// RayCaster finds the nearest intersection of a ray against registered
// bodies. The reference implementation below (rayCaster) covers sphere,
// box, and plane shapes; callers needing other primitives can supply their
// own RayCaster.
type RayCaster interface {
	// Cast returns the first body hit by the ray starting at (ox,oy,oz)
	// travelling in direction (dx,dy,dz), and the world-space hit point.
	// hit is false if nothing was struck.
	Cast(ox, oy, oz, dx, dy, dz float64) (b Body, hx, hy, hz float64, hit bool)
}

// rayCaster is the engine's built-in RayCaster, checked against every body
// the engine knows about. It is grounded in the reference engine's simple
// per-shape ray routines, generalised here to also cover boxes via the
// slab method.
type rayCaster struct {
	engine *Engine
}

func (rc *rayCaster) Cast(ox, oy, oz, dx, dy, dz float64) (hitBody Body, hx, hy, hz float64, hit bool) {
	closest := math64Max
	for _, b := range rc.engine.order {
		if x, y, z, ok := castRay(b, ox, oy, oz, dx, dy, dz); ok {
			dist := (x-ox)*(x-ox) + (y-oy)*(y-oy) + (z-oz)*(z-oz)
			if dist < closest {
				closest, hitBody, hx, hy, hz, hit = dist, b, x, y, z, true
			}
		}
	}
	return hitBody, hx, hy, hz, hit
}

const math64Max = 1.0e300

// castRay dispatches to the shape-specific ray routine. Shapes without a
// dedicated routine (cylinder, polytope, triangle, compound) are not
// struck; RayCaster.Cast simply skips them. A caller needing full coverage
// can supply a custom RayCaster.
func castRay(b *body, ox, oy, oz, dx, dy, dz float64) (x, y, z float64, hit bool) {
	switch s := b.shape.(type) {
	case *sphere:
		return castRaySphere(b, s, ox, oy, oz, dx, dy, dz)
	case *box:
		return castRayBox(b, s, ox, oy, oz, dx, dy, dz)
	case *plane:
		return castRayPlane(b, s, ox, oy, oz, dx, dy, dz)
	}
	return 0, 0, 0, false
}

// castRaySphere solves the ray/sphere intersection via the discriminant
// method: substitute the ray equation into the sphere equation and solve
// the resulting quadratic for the nearest positive root.
func castRaySphere(b *body, s *sphere, ox, oy, oz, dx, dy, dz float64) (x, y, z float64, hit bool) {
	cx, cy, cz := b.pose.Loc.X, b.pose.Loc.Y, b.pose.Loc.Z
	lx, ly, lz := ox-cx, oy-cy, oz-cz
	a := dx*dx + dy*dy + dz*dz
	bq := 2 * (lx*dx + ly*dy + lz*dz)
	c := lx*lx + ly*ly + lz*lz - s.R*s.R
	disc := bq*bq - 4*a*c
	if disc < 0 || a < lin.Epsilon {
		return 0, 0, 0, false
	}
	sq := math.Sqrt(disc)
	t := (-bq - sq) / (2 * a)
	if t < 0 {
		t = (-bq + sq) / (2 * a)
	}
	if t < 0 {
		return 0, 0, 0, false
	}
	return ox + dx*t, oy + dy*t, oz + dz*t, true
}

// castRayPlane implements the standard line/plane intersection: a point
// on the plane plus the distance along the ray to reach it, derived from
// the plane's normal and the body's position as a point on the plane.
func castRayPlane(b *body, p *plane, ox, oy, oz, dx, dy, dz float64) (x, y, z float64, hit bool) {
	nx, ny, nz := b.pose.AppR(p.Nx, p.Ny, p.Nz)
	denom := nx*dx + ny*dy + nz*dz
	if denom > -lin.Epsilon && denom < lin.Epsilon {
		return 0, 0, 0, false // ray parallel to plane.
	}
	px, py, pz := b.pose.Loc.X, b.pose.Loc.Y, b.pose.Loc.Z
	t := ((px-ox)*nx + (py-oy)*ny + (pz-oz)*nz) / denom
	if t < 0 {
		return 0, 0, 0, false
	}
	return ox + dx*t, oy + dy*t, oz + dz*t, true
}

// castRayBox uses the slab method: clip the ray's parametric interval
// against each pair of box faces in the box's local frame, in turn.
func castRayBox(b *body, bx *box, ox, oy, oz, dx, dy, dz float64) (x, y, z float64, hit bool) {
	lox, loy, loz := b.pose.InvS(ox, oy, oz)
	var qi lin.Q
	qi.Inv(b.pose.Rot)
	ldx, ldy, ldz := lin.MultSQ(dx, dy, dz, &qi)

	tmin, tmax := -math64Max, math64Max
	if !slab(lox, ldx, bx.Hx, &tmin, &tmax) {
		return 0, 0, 0, false
	}
	if !slab(loy, ldy, bx.Hy, &tmin, &tmax) {
		return 0, 0, 0, false
	}
	if !slab(loz, ldz, bx.Hz, &tmin, &tmax) {
		return 0, 0, 0, false
	}
	if tmax < 0 || tmin > tmax {
		return 0, 0, 0, false
	}
	t := tmin
	if t < 0 {
		t = tmax
	}
	return ox + dx*t, oy + dy*t, oz + dz*t, true
}

func slab(originAxis, dirAxis, half float64, tmin, tmax *float64) bool {
	if dirAxis > -lin.Epsilon && dirAxis < lin.Epsilon {
		return originAxis >= -half && originAxis <= half
	}
	t1 := (-half - originAxis) / dirAxis
	t2 := (half - originAxis) / dirAxis
	if t1 > t2 {
		t1, t2 = t2, t1
	}
	if t1 > *tmin {
		*tmin = t1
	}
	if t2 < *tmax {
		*tmax = t2
	}
	return *tmin <= *tmax
}
