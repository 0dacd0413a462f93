// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/solve3d/rigid/math/lin"
)

// CompoundChild is one member of a compound shape: a sub-shape placed at a
// fixed local transform relative to the compound's own origin. Compounds do
// not move their children independently once built; the whole compound is
// immutable, matching every other Shape in this package.
type CompoundChild struct {
	Shape Shape
	Local *lin.T // child's transform relative to the compound's local frame.
}

// compound is a flat array of sub-shapes, each offset by its own local
// transform. Every Shape operation (support, axes, AABB, volume, inertia) is
// the union/aggregate over the children; this makes collideGeneral's
// support-function-based SAT work against a compound exactly as it does
// against any primitive, with no dedicated dispatch entry required.
type compound struct {
	children []CompoundChild
}

// NewCompound builds a compound shape from the given children. At least one
// child is required; an empty compound has no volume and cannot back a
// Dynamic body (AddBody rejects zero-volume dynamic shapes, per the shape's
// Volume() contract).
func NewCompound(children ...CompoundChild) Shape {
	return &compound{children: children}
}

func (c *compound) Kind() ShapeKind { return CompoundShape }

func (c *compound) BoundingRadius() float64 {
	var r float64
	for _, ch := range c.children {
		if cr := ch.Local.Loc.Len() + ch.Shape.BoundingRadius(); cr > r {
			r = cr
		}
	}
	return r
}

func (c *compound) Volume() float64 {
	var v float64
	for _, ch := range c.children {
		v += ch.Shape.Volume()
	}
	return v
}

func (c *compound) Aabb(t *lin.T, ab *Abox, margin float64) *Abox {
	minX, minY, minZ := math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
	maxX, maxY, maxZ := -math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64
	composed := lin.NewT()
	var childAb Abox
	for _, ch := range c.children {
		// compose t with the child's local transform: the child's origin
		// carried through t, and the child's rotation applied first, then
		// t's (Q.Mult composes left argument first).
		wx, wy, wz := t.AppS(ch.Local.Loc.X, ch.Local.Loc.Y, ch.Local.Loc.Z)
		composed.Loc.SetS(wx, wy, wz)
		composed.Rot.Mult(ch.Local.Rot, t.Rot)
		ch.Shape.Aabb(composed, &childAb, 0)
		minX, maxX = math.Min(minX, childAb.Sx), math.Max(maxX, childAb.Lx)
		minY, maxY = math.Min(minY, childAb.Sy), math.Max(maxY, childAb.Ly)
		minZ, maxZ = math.Min(minZ, childAb.Sz), math.Max(maxZ, childAb.Lz)
	}
	ab.Sx, ab.Sy, ab.Sz = minX-margin, minY-margin, minZ-margin
	ab.Lx, ab.Ly, ab.Lz = maxX+margin, maxY+margin, maxZ+margin
	return ab
}

// Inertia sums each child's own inertia (computed for its share of the
// compound's total mass, proportional to volume under a uniform-density
// assumption) plus the parallel-axis correction for its offset from the
// compound origin. This keeps the diagonal-inertia representation every
// other shape in this package uses; it drops the off-diagonal products of
// inertia a fully general rigid assembly would need, the same approximation
// the polytope shape already makes for the same representational reason.
func (c *compound) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	totalVol := c.Volume()
	var ix, iy, iz float64
	var childInertia lin.V3
	if totalVol <= lin.Epsilon {
		inertia.SetS(0, 0, 0)
		return inertia
	}
	for _, ch := range c.children {
		childMass := mass * ch.Shape.Volume() / totalVol
		ch.Shape.Inertia(childMass, &childInertia)
		ox, oy, oz := ch.Local.Loc.X, ch.Local.Loc.Y, ch.Local.Loc.Z
		ix += childInertia.X + childMass*(oy*oy+oz*oz)
		iy += childInertia.Y + childMass*(ox*ox+oz*oz)
		iz += childInertia.Z + childMass*(ox*ox+oy*oy)
	}
	inertia.SetS(ix, iy, iz)
	return inertia
}

// Support evaluates every child's support point in the compound's local
// frame and keeps the one with the largest projection on d, ties broken by
// lowest child index then by the child shape's own tie-break, so the same
// direction always yields the same point.
func (c *compound) Support(d *lin.V3, out *lin.V3) *lin.V3 {
	best := -math.MaxFloat64
	var bestX, bestY, bestZ float64
	var qi lin.Q
	var local, childOut lin.V3
	for _, ch := range c.children {
		qi.Inv(ch.Local.Rot)
		local.X, local.Y, local.Z = lin.MultSQ(d.X, d.Y, d.Z, &qi)
		ch.Shape.Support(&local, &childOut)
		wx, wy, wz := ch.Local.AppS(childOut.X, childOut.Y, childOut.Z)
		proj := d.X*wx + d.Y*wy + d.Z*wz
		if proj > best {
			best, bestX, bestY, bestZ = proj, wx, wy, wz
		}
	}
	return out.SetS(bestX, bestY, bestZ)
}

func (c *compound) Axes(dst []*lin.V3) []*lin.V3 {
	for _, ch := range c.children {
		local := ch.Shape.Axes(nil)
		for _, l := range local {
			wx, wy, wz := ch.Local.AppR(l.X, l.Y, l.Z)
			dst = append(dst, lin.NewV3S(wx, wy, wz))
		}
	}
	return dst
}

// compound
// ============================================================================
// compoundTree: a bounding-volume tree over the same kind of sub-shape set.
// Per spec, its narrowphase contract is identical to the flat compound; a
// tree only changes how an implementation accelerates queries over many
// children, not what it returns. This one keeps a flat child list plus a
// single enclosing Abox computed at build time so RayCaster-style broad
// rejection (not currently wired into the tick loop) has something cheap to
// test before descending into children; collideGeneral never needs the
// bound directly since it only calls Support/Axes/Aabb/Inertia/Volume.
type compoundTree struct {
	compound
	bound Abox
}

// NewCompoundTree builds a bounding-volume-tree compound shape. With only
// one level of children this degenerates to the same leaf set a flat
// compound holds; a deeper tree is an internal acceleration detail the
// Shape contract does not expose.
func NewCompoundTree(children ...CompoundChild) Shape {
	ct := &compoundTree{compound: compound{children: children}}
	ct.compound.Aabb(lin.NewT().SetI(), &ct.bound, 0)
	return ct
}

func (ct *compoundTree) Kind() ShapeKind { return CompoundTreeShape }
