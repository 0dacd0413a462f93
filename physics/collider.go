// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"
	"sort"

	"github.com/solve3d/rigid/math/lin"
)

// collide computes the manifold between bodies a and b, appending up to
// maxManifoldPoints contact points to m and returning true if they touch or
// overlap. m.Points is reset by the caller before each pair test.
type collide func(a, b *body, m *Manifold) bool

// collider dispatches a pair of shapes to the correct narrowphase routine
// by shape kind, mirroring the original engine's type-indexed dispatch
// table idiom. Specific short-circuits (sphere/sphere, sphere/box,
// sphere/cylinder) exist alongside the general axis-separation routine
// used for every other volume pairing, including compound and polytope
// shapes. Plane pairings go to collidePlaneConvex, and plane/plane and
// every ray pairing never collide.
type collider struct {
	algorithms [][]collide
}

func newCollider() *collider {
	c := &collider{algorithms: make([][]collide, NumShapes)}
	for i := range c.algorithms {
		c.algorithms[i] = make([]collide, NumShapes)
		for j := range c.algorithms[i] {
			c.algorithms[i][j] = collideGeneral
		}
	}
	c.set(SphereShape, SphereShape, collideSphereSphere)
	c.set(SphereShape, BoxShape, collideSphereBox)
	c.set(SphereShape, CylinderShape, collideSphereCylinder)
	for _, k := range []ShapeKind{SphereShape, BoxShape, CylinderShape, PolytopeShape, TriangleShape, CompoundShape, CompoundTreeShape} {
		c.set(PlaneShape, k, collidePlaneConvex)
	}
	c.algorithms[PlaneShape][PlaneShape] = collideNever
	for k := 0; k < int(NumShapes); k++ {
		c.algorithms[RayShape][k] = collideNever
		c.algorithms[k][RayShape] = collideNever
	}
	return c
}

// collideNever is the registered algorithm for pairings that can never
// produce contact geometry (plane against plane, anything against a ray).
func collideNever(a, b *body, m *Manifold) bool { return false }

// set registers algorithm for both (x,y) and (y,x) orderings so callers
// never need to worry about argument order.
func (c *collider) set(x, y ShapeKind, fn collide) {
	c.algorithms[x][y] = fn
	if x != y {
		c.algorithms[y][x] = flip(fn)
	}
}

// flip wraps fn so it can be called with its arguments reversed; used when
// an algorithm is only written for one argument order.
func flip(fn collide) collide {
	return func(a, b *body, m *Manifold) bool {
		tmp := &Manifold{}
		hit := fn(b, a, tmp)
		for _, p := range tmp.Points {
			p.Nx, p.Ny, p.Nz = -p.Nx, -p.Ny, -p.Nz
			m.addPoint(p)
		}
		return hit
	}
}

func (c *collider) Collide(a, b *body, m *Manifold) bool {
	return c.algorithms[a.shape.Kind()][b.shape.Kind()](a, b, m)
}

// collideSphereSphere
// ===========================================================================

func collideSphereSphere(a, b *body, m *Manifold) bool {
	sa, sb := a.shape.(*sphere), b.shape.(*sphere)
	dx := b.pose.Loc.X - a.pose.Loc.X
	dy := b.pose.Loc.Y - a.pose.Loc.Y
	dz := b.pose.Loc.Z - a.pose.Loc.Z
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	radii := sa.R + sb.R
	if dist >= radii {
		return false
	}
	var nx, ny, nz float64
	if dist < lin.Epsilon {
		nx, ny, nz = 0, 1, 0 // coincident centres: arbitrary separation axis.
	} else {
		nx, ny, nz = dx/dist, dy/dist, dz/dist
	}
	depth := radii - dist
	wx := a.pose.Loc.X + nx*sa.R
	wy := a.pose.Loc.Y + ny*sa.R
	wz := a.pose.Loc.Z + nz*sa.R
	m.addPoint(ContactPoint{Wx: wx, Wy: wy, Wz: wz, Nx: nx, Ny: ny, Nz: nz, Depth: depth})
	return true
}

// collideSphereBox
// ===========================================================================

func collideSphereBox(a, b *body, m *Manifold) bool {
	sa, bb := a.shape.(*sphere), b.shape.(*box)
	lx, ly, lz := b.pose.InvS(a.pose.Loc.X, a.pose.Loc.Y, a.pose.Loc.Z)
	cx := lin.Clamp(lx, -bb.Hx, bb.Hx)
	cy := lin.Clamp(ly, -bb.Hy, bb.Hy)
	cz := lin.Clamp(lz, -bb.Hz, bb.Hz)

	dx, dy, dz := lx-cx, ly-cy, lz-cz
	distSqr := dx*dx + dy*dy + dz*dz
	var nx, ny, nz, depth float64
	if distSqr > lin.Epsilon {
		dist := math.Sqrt(distSqr)
		if dist >= sa.R {
			return false
		}
		nx, ny, nz = dx/dist, dy/dist, dz/dist
		depth = sa.R - dist
	} else {
		// centre is inside the box: push out along the least-penetrated face.
		px, py, pz := bb.Hx-math.Abs(lx), bb.Hy-math.Abs(ly), bb.Hz-math.Abs(lz)
		switch {
		case px <= py && px <= pz:
			nx, ny, nz, depth = sign(lx), 0, 0, px+sa.R
		case py <= px && py <= pz:
			nx, ny, nz, depth = 0, sign(ly), 0, py+sa.R
		default:
			nx, ny, nz, depth = 0, 0, sign(lz), pz+sa.R
		}
		cx, cy, cz = lx, ly, lz
	}

	wnx, wny, wnz := b.pose.AppR(nx, ny, nz)
	wx, wy, wz := b.pose.AppS(cx, cy, cz)
	m.addPoint(ContactPoint{Wx: wx, Wy: wy, Wz: wz, Nx: -wnx, Ny: -wny, Nz: -wnz, Depth: depth})
	return true
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// collideSphereCylinder
// ===========================================================================

func collideSphereCylinder(a, b *body, m *Manifold) bool {
	sa, cy := a.shape.(*sphere), b.shape.(*cylinder)
	lx, ly, lz := b.pose.InvS(a.pose.Loc.X, a.pose.Loc.Y, a.pose.Loc.Z)
	cly := lin.Clamp(ly, -cy.Hh, cy.Hh)
	radial := math.Hypot(lx, lz)

	var cx, ccy, cz float64
	if radial > cy.R {
		k := cy.R / radial
		cx, cz = lx*k, lz*k
	} else {
		cx, cz = lx, lz
	}
	ccy = cly

	dx, dy, dz := lx-cx, ly-ccy, lz-cz
	distSqr := dx*dx + dy*dy + dz*dz
	if distSqr >= sa.R*sa.R {
		return false
	}
	dist := math.Sqrt(distSqr)
	var nx, ny, nz float64
	if dist > lin.Epsilon {
		nx, ny, nz = dx/dist, dy/dist, dz/dist
	} else {
		nx, ny, nz = 0, 1, 0
	}
	depth := sa.R - dist
	wnx, wny, wnz := b.pose.AppR(nx, ny, nz)
	wx, wy, wz := b.pose.AppS(cx, ccy, cz)
	m.addPoint(ContactPoint{Wx: wx, Wy: wy, Wz: wz, Nx: -wnx, Ny: -wny, Nz: -wnz, Depth: depth})
	return true
}

// collidePlaneConvex
// ===========================================================================

// collidePlaneConvex tests any convex body b against an infinite plane a
// (the plane passes through a's position, facing along its rotated
// normal). Boxes contribute every corner sunk below the plane so resting
// boxes are supported at their whole face; every other shape contributes
// its single deepest support point.
func collidePlaneConvex(a, b *body, m *Manifold) bool {
	pl := a.shape.(*plane)
	nx, ny, nz := a.pose.AppR(pl.Nx, pl.Ny, pl.Nz)
	n := lin.NewV3S(nx, ny, nz).Unit()
	planeD := n.X*a.pose.Loc.X + n.Y*a.pose.Loc.Y + n.Z*a.pose.Loc.Z

	if bx, ok := b.shape.(*box); ok {
		for _, c := range boxCorners(bx) {
			wx, wy, wz := b.pose.AppS(c.X, c.Y, c.Z)
			depth := planeD - (n.X*wx + n.Y*wy + n.Z*wz)
			if depth <= 0 {
				continue
			}
			m.addPoint(ContactPoint{
				Wx: wx + n.X*depth/2, Wy: wy + n.Y*depth/2, Wz: wz + n.Z*depth/2,
				Nx: n.X, Ny: n.Y, Nz: n.Z, Depth: depth})
		}
		return len(m.Points) > 0
	}

	var v0, v1 lin.V3
	var qi lin.Q
	neg := lin.NewV3S(-n.X, -n.Y, -n.Z)
	sx, sy, sz := worldSupport(b, neg, &v0, &v1, &qi)
	depth := planeD - (n.X*sx + n.Y*sy + n.Z*sz)
	if depth <= 0 {
		return false
	}
	m.addPoint(ContactPoint{
		Wx: sx + n.X*depth/2, Wy: sy + n.Y*depth/2, Wz: sz + n.Z*depth/2,
		Nx: n.X, Ny: n.Y, Nz: n.Z, Depth: depth})
	return true
}

func boxCorners(b *box) [8]lin.V3 {
	var c [8]lin.V3
	i := 0
	for _, sx := range [2]float64{-b.Hx, b.Hx} {
		for _, sy := range [2]float64{-b.Hy, b.Hy} {
			for _, sz := range [2]float64{-b.Hz, b.Hz} {
				c[i] = lin.V3{X: sx, Y: sy, Z: sz}
				i++
			}
		}
	}
	return c
}

// generalAxes builds the candidate separating-axis set for shapes a and b:
// each shape's local axes rotated to world space, plus the pairwise cross
// products between the two sets (skipped when nearly parallel).
func generalAxes(a, b *body) []*lin.V3 {
	var local []*lin.V3
	local = a.shape.Axes(local)
	na := len(local)
	local = b.shape.Axes(local)

	var axes []*lin.V3
	for i, l := range local {
		wx, wy, wz := 0.0, 0.0, 0.0
		if i < na {
			wx, wy, wz = a.pose.AppR(l.X, l.Y, l.Z)
		} else {
			wx, wy, wz = b.pose.AppR(l.X, l.Y, l.Z)
		}
		axes = append(axes, lin.NewV3S(wx, wy, wz))
	}
	nAxes := len(axes)
	for i := 0; i < na; i++ {
		for j := na; j < nAxes; j++ {
			var cr lin.V3
			cr.Cross(axes[i], axes[j])
			if cr.LenSqr() < lin.Epsilon {
				continue
			}
			cr.Unit()
			axes = append(axes, lin.NewV3S(cr.X, cr.Y, cr.Z))
		}
	}
	if len(axes) == 0 {
		var d lin.V3
		d.Sub(b.pose.Loc, a.pose.Loc)
		if d.AeqZ() {
			d.SetS(1, 0, 0)
		}
		d.Unit()
		axes = append(axes, lin.NewV3S(d.X, d.Y, d.Z))
	}
	return axes
}

// shapeExtent projects shape.Support() onto axis (world space) and returns
// the resulting [min,max] interval of the body along that axis.
func shapeExtent(b *body, axis *lin.V3, v0, v1 *lin.V3, qi *lin.Q) (lo, hi float64) {
	hx, hy, hz := worldSupport(b, axis, v0, v1, qi)
	hiPt := axis.X*hx + axis.Y*hy + axis.Z*hz

	neg := lin.NewV3S(-axis.X, -axis.Y, -axis.Z)
	lx, ly, lz := worldSupport(b, neg, v0, v1, qi)
	loPt := axis.X*lx + axis.Y*ly + axis.Z*lz

	return loPt, hiPt
}

// collideGeneral handles every convex pairing without a dedicated
// short-circuit, box against box included: a support-function SAT over
// the candidate axes of both shapes plus their cross products picks the
// minimum translation axis, then the contact feature of each body against
// that axis (corner, edge, or face) is classified and the contact point
// generated by feature pair: corner against an edge or face projects the
// corner, corner against corner takes their midpoint, edge against edge takes the midpoint of the segments' closest points,
// edge against face clips the edge by the face and takes the clipped
// midpoint, and face against face clips one face's edges by the other and
// takes the centroid of what survives.
func collideGeneral(a, b *body, m *Manifold) bool {
	axes := generalAxes(a, b)
	best := math.MaxFloat64
	var bestAxis *lin.V3
	bestSign := 1.0
	var v0, v1, d lin.V3
	var qi lin.Q
	for _, axis := range axes {
		minA, maxA := shapeExtent(a, axis, &v0, &v1, &qi)
		minB, maxB := shapeExtent(b, axis, &v0, &v1, &qi)
		overlap := math.Min(maxA-minB, maxB-minA)
		if overlap <= 0 {
			return false
		}
		if overlap < best {
			best = overlap
			bestAxis = axis
			d.Sub(b.pose.Loc, a.pose.Loc)
			bestSign = 1
			if d.Dot(axis) < 0 {
				bestSign = -1
			}
		}
	}
	nx, ny, nz := bestAxis.X*bestSign, bestAxis.Y*bestSign, bestAxis.Z*bestSign
	n := lin.NewV3S(nx, ny, nz)
	negN := lin.NewV3S(-nx, -ny, -nz)

	fa := extractFeature(a.shape, a.pose, n)
	fb := extractFeature(b.shape, b.pose, negN)
	contact := contactFromFeatures(&fa, &fb, n)
	m.addPoint(ContactPoint{Wx: contact.X, Wy: contact.Y, Wz: contact.Z, Nx: nx, Ny: ny, Nz: nz, Depth: best})
	return true
}

// feature classification
// ===========================================================================

// featureKind classifies the contact feature of one body against the
// minimum translation axis: whichever of its corner, edge, or face is
// extreme along the axis, told apart by how many equally extreme
// vertices the body has there.
type featureKind int

const (
	featureCorner featureKind = iota // one extreme vertex.
	featureEdge                      // two: the segment between them.
	featureFace                      // three or more: a convex loop.
)

// featureEps is the projection tolerance within which vertices count as
// equally extreme along the contact axis. It doubles as the alignment
// tolerance classifying a cylinder's side wall and end caps.
const featureEps = 1e-4

// contactFeature is the extreme feature of one body along an axis: its
// kind plus its world-space vertices. A face's vertices are ordered as
// a convex loop so its edges can bound clipping half-planes.
type contactFeature struct {
	kind featureKind
	pts  []lin.V3
}

// extractFeature finds the contact feature of shape s, posed by pose,
// that is extreme along world direction d.
func extractFeature(s Shape, pose *lin.T, d *lin.V3) contactFeature {
	switch sh := s.(type) {
	case *sphere:
		// a sphere's extreme point is always unique: the classification
		// degenerates to a corner on the surface along d.
		return contactFeature{kind: featureCorner, pts: []lin.V3{{
			X: pose.Loc.X + d.X*sh.R,
			Y: pose.Loc.Y + d.Y*sh.R,
			Z: pose.Loc.Z + d.Z*sh.R}}}
	case *box:
		c := boxCorners(sh)
		return vertsFeature(c[:], pose, d)
	case *polytope:
		verts := make([]lin.V3, len(sh.Verts))
		for i, v := range sh.Verts {
			verts[i] = *v
		}
		return vertsFeature(verts, pose, d)
	case *triangle:
		return vertsFeature([]lin.V3{*sh.V0, *sh.V1, *sh.V2}, pose, d)
	case *cylinder:
		return cylinderFeature(sh, pose, d)
	case *compound:
		return compoundFeature(sh.children, pose, d)
	case *compoundTree:
		return compoundFeature(sh.children, pose, d)
	}
	// planes and rays never reach the general SAT path; fall back to the
	// shape's support point as a corner.
	var qi lin.Q
	var local, out lin.V3
	qi.Inv(pose.Rot)
	local.X, local.Y, local.Z = lin.MultSQ(d.X, d.Y, d.Z, &qi)
	s.Support(&local, &out)
	wx, wy, wz := pose.AppS(out.X, out.Y, out.Z)
	return contactFeature{kind: featureCorner, pts: []lin.V3{{X: wx, Y: wy, Z: wz}}}
}

// vertsFeature classifies a vertex-based shape: carry the vertices to
// world space, project them on d, and keep every vertex within
// featureEps of the extreme. One survivor is a corner, two an edge,
// more a face whose loop is ordered for clipping.
func vertsFeature(verts []lin.V3, pose *lin.T, d *lin.V3) contactFeature {
	world := make([]lin.V3, len(verts))
	proj := make([]float64, len(verts))
	best := -math.MaxFloat64
	for i, v := range verts {
		wx, wy, wz := pose.AppS(v.X, v.Y, v.Z)
		world[i] = lin.V3{X: wx, Y: wy, Z: wz}
		proj[i] = wx*d.X + wy*d.Y + wz*d.Z
		if proj[i] > best {
			best = proj[i]
		}
	}
	var pts []lin.V3
	for i := range world {
		if best-proj[i] <= featureEps {
			pts = append(pts, world[i])
		}
	}
	switch len(pts) {
	case 1:
		return contactFeature{kind: featureCorner, pts: pts}
	case 2:
		return contactFeature{kind: featureEdge, pts: pts}
	}
	orderLoop(pts, d)
	return contactFeature{kind: featureFace, pts: pts}
}

// orderLoop sorts face vertices into a convex loop by angle about their
// centroid in the plane perpendicular to d. The face is extreme along d,
// so that plane is the face's own plane.
func orderLoop(pts []lin.V3, d *lin.V3) {
	cen := centroid(pts)
	u := perpTo(d)
	var w lin.V3
	w.Cross(d, &u)
	sort.Slice(pts, func(i, j int) bool {
		ri := vsub(pts[i], cen)
		rj := vsub(pts[j], cen)
		return math.Atan2(vdot(ri, w), vdot(ri, u)) < math.Atan2(vdot(rj, w), vdot(rj, u))
	})
}

// perpTo returns a unit vector perpendicular to unit vector d, built
// from a coordinate axis other than the one d leans on most so the
// cross product stays well conditioned.
func perpTo(d *lin.V3) lin.V3 {
	pick := lin.V3{X: 1}
	if math.Abs(d.X) > math.Abs(d.Y) {
		pick = lin.V3{Y: 1}
		if math.Abs(d.Y) > math.Abs(d.Z) {
			pick = lin.V3{Z: 1}
		}
	}
	var u lin.V3
	u.Cross(d, &pick)
	u.Unit()
	return u
}

// cylinderFeature classifies a cylinder against d per the degenerate
// cases: an edge along the side wall when d is radial, a face on an end
// cap when d is axial (the cap disk's rim approximated by a regular
// octagon so the clipping passes have edges to work with), and a corner
// on the cap rim for anything between.
func cylinderFeature(c *cylinder, pose *lin.T, d *lin.V3) contactFeature {
	ax, ay, az := pose.AppR(0, 1, 0)
	ad := d.X*ax + d.Y*ay + d.Z*az
	rx, ry, rz := d.X-ax*ad, d.Y-ay*ad, d.Z-az*ad
	rl := math.Sqrt(rx*rx + ry*ry + rz*rz)
	lx, ly, lz := pose.Loc.X, pose.Loc.Y, pose.Loc.Z

	switch {
	case math.Abs(ad) <= featureEps && rl > featureEps:
		k := c.R / rl
		px, py, pz := lx+rx*k, ly+ry*k, lz+rz*k
		return contactFeature{kind: featureEdge, pts: []lin.V3{
			{X: px - ax*c.Hh, Y: py - ay*c.Hh, Z: pz - az*c.Hh},
			{X: px + ax*c.Hh, Y: py + ay*c.Hh, Z: pz + az*c.Hh}}}
	case rl <= featureEps:
		side := 1.0
		if ad < 0 {
			side = -1
		}
		cen := lin.V3{X: lx + ax*c.Hh*side, Y: ly + ay*c.Hh*side, Z: lz + az*c.Hh*side}
		axis := lin.V3{X: ax, Y: ay, Z: az}
		u := perpTo(&axis)
		var w lin.V3
		w.Cross(&axis, &u)
		pts := make([]lin.V3, 8)
		for i := range pts {
			ang := float64(i) * math.Pi / 4
			cs, sn := math.Cos(ang), math.Sin(ang)
			pts[i] = lin.V3{
				X: cen.X + (u.X*cs+w.X*sn)*c.R,
				Y: cen.Y + (u.Y*cs+w.Y*sn)*c.R,
				Z: cen.Z + (u.Z*cs+w.Z*sn)*c.R}
		}
		orderLoop(pts, d)
		return contactFeature{kind: featureFace, pts: pts}
	default:
		k := c.R / rl
		side := 1.0
		if ad < 0 {
			side = -1
		}
		return contactFeature{kind: featureCorner, pts: []lin.V3{{
			X: lx + ax*c.Hh*side + rx*k,
			Y: ly + ay*c.Hh*side + ry*k,
			Z: lz + az*c.Hh*side + rz*k}}}
	}
}

// compoundFeature recurses into the child achieving the compound's
// support along d: that child's own feature is the compound's feature
// for this contact.
func compoundFeature(children []CompoundChild, pose *lin.T, d *lin.V3) contactFeature {
	best := -math.MaxFloat64
	var bestShape Shape
	bestT := lin.NewT()
	composed := lin.NewT()
	var qi lin.Q
	var local, out lin.V3
	for _, ch := range children {
		wx, wy, wz := pose.AppS(ch.Local.Loc.X, ch.Local.Loc.Y, ch.Local.Loc.Z)
		composed.Loc.SetS(wx, wy, wz)
		composed.Rot.Mult(ch.Local.Rot, pose.Rot)
		qi.Inv(composed.Rot)
		local.X, local.Y, local.Z = lin.MultSQ(d.X, d.Y, d.Z, &qi)
		ch.Shape.Support(&local, &out)
		sx, sy, sz := composed.AppS(out.X, out.Y, out.Z)
		if proj := sx*d.X + sy*d.Y + sz*d.Z; proj > best {
			best = proj
			bestShape = ch.Shape
			bestT.Set(composed)
		}
	}
	if bestShape == nil {
		return contactFeature{kind: featureCorner, pts: []lin.V3{*pose.Loc}}
	}
	return extractFeature(bestShape, bestT, d)
}

// contact generation by feature pair
// ===========================================================================

// contactFromFeatures produces the contact point for a classified
// feature pair, n pointing from body A to body B. Corner against corner
// only arises between curved surfaces (each side's extreme point is then
// exact) or on a degenerate axis; the midpoint serves both.
func contactFromFeatures(fa, fb *contactFeature, n *lin.V3) lin.V3 {
	switch {
	case fa.kind == featureCorner && fb.kind == featureCorner:
		return vmid(fa.pts[0], fb.pts[0])
	case fa.kind == featureCorner:
		return projectAlong(fa.pts[0], n, fb.pts[0])
	case fb.kind == featureCorner:
		return projectAlong(fb.pts[0], n, fa.pts[0])
	case fa.kind == featureEdge && fb.kind == featureEdge:
		p, q := closestOnSegments(fa.pts[0], fa.pts[1], fb.pts[0], fb.pts[1])
		return vmid(p, q)
	case fa.kind == featureEdge: // edge against face.
		if c0, c1, ok := clipSegmentToFace(fa.pts[0], fa.pts[1], fb, n); ok {
			return vmid(c0, c1)
		}
		return projectAlong(vmid(fa.pts[0], fa.pts[1]), n, fb.pts[0])
	case fb.kind == featureEdge: // face against edge.
		if c0, c1, ok := clipSegmentToFace(fb.pts[0], fb.pts[1], fa, n); ok {
			return vmid(c0, c1)
		}
		return projectAlong(vmid(fb.pts[0], fb.pts[1]), n, fa.pts[0])
	}
	// face against face: clip A's face edges by B's face and take the
	// centroid of the surviving endpoints.
	var sum lin.V3
	count := 0
	m := len(fa.pts)
	for i := 0; i < m; i++ {
		c0, c1, ok := clipSegmentToFace(fa.pts[i], fa.pts[(i+1)%m], fb, n)
		if !ok {
			continue
		}
		sum = vadd(sum, vadd(c0, c1))
		count += 2
	}
	if count == 0 {
		return centroid(fa.pts)
	}
	return vscale(sum, 1/float64(count))
}

// projectAlong slides corner along n onto the plane through planePt
// perpendicular to n: the other feature's plane point shifted to the
// line through the corner parallel to n.
func projectAlong(corner lin.V3, n *lin.V3, planePt lin.V3) lin.V3 {
	t := (planePt.X-corner.X)*n.X + (planePt.Y-corner.Y)*n.Y + (planePt.Z-corner.Z)*n.Z
	return lin.V3{X: corner.X + n.X*t, Y: corner.Y + n.Y*t, Z: corner.Z + n.Z*t}
}

// closestOnSegments returns the closest pair of points between segments
// [a0,a1] and [b0,b1], parameters clamped to the segments.
func closestOnSegments(a0, a1, b0, b1 lin.V3) (p, q lin.V3) {
	d1 := vsub(a1, a0)
	d2 := vsub(b1, b0)
	r := vsub(a0, b0)
	aa := vdot(d1, d1)
	ee := vdot(d2, d2)
	f := vdot(d2, r)

	var s, t float64
	switch {
	case aa < lin.Epsilon && ee < lin.Epsilon:
		// both segments degenerate to points.
	case aa < lin.Epsilon:
		t = lin.Clamp(f/ee, 0, 1)
	default:
		c := vdot(d1, r)
		if ee < lin.Epsilon {
			s = lin.Clamp(-c/aa, 0, 1)
		} else {
			bb := vdot(d1, d2)
			den := aa*ee - bb*bb
			if den > lin.Epsilon {
				s = lin.Clamp((bb*f-c*ee)/den, 0, 1)
			}
			t = (bb*s + f) / ee
			if t < 0 {
				t = 0
				s = lin.Clamp(-c/aa, 0, 1)
			} else if t > 1 {
				t = 1
				s = lin.Clamp((bb-c)/aa, 0, 1)
			}
		}
	}
	p = vadd(a0, vscale(d1, s))
	q = vadd(b0, vscale(d2, t))
	return p, q
}

// clipSegmentToFace clips segment [p0,p1] against the prism formed by
// sweeping the face's loop along n. Each face edge together with n spans
// a bounding half-plane; because those planes contain n, clipping in 3D
// equals clipping the segment's projection by the face polygon. ok is
// false when nothing of the segment remains.
func clipSegmentToFace(p0, p1 lin.V3, face *contactFeature, n *lin.V3) (c0, c1 lin.V3, ok bool) {
	t0, t1 := 0.0, 1.0
	dir := vsub(p1, p0)
	cen := centroid(face.pts)
	m := len(face.pts)
	for i := 0; i < m; i++ {
		q0 := face.pts[i]
		edge := vsub(face.pts[(i+1)%m], q0)
		var in lin.V3
		in.Cross(n, &edge)
		if vdot(vsub(cen, q0), in) < 0 {
			in.Neg(&in)
		}
		d0 := vdot(vsub(p0, q0), in)
		den := vdot(dir, in)
		if math.Abs(den) < lin.Epsilon {
			if d0 < 0 {
				return c0, c1, false // parallel and fully outside.
			}
			continue
		}
		t := -d0 / den
		if den > 0 {
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t1 {
				t1 = t
			}
		}
		if t0 > t1 {
			return c0, c1, false
		}
	}
	return vadd(p0, vscale(dir, t0)), vadd(p0, vscale(dir, t1)), true
}

func centroid(pts []lin.V3) lin.V3 {
	var c lin.V3
	for _, p := range pts {
		c = vadd(c, p)
	}
	return vscale(c, 1/float64(len(pts)))
}

// by-value vector helpers for the feature code, which passes vertices
// around as values rather than threading scratch pointers.
func vadd(a, b lin.V3) lin.V3  { return lin.V3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z} }
func vsub(a, b lin.V3) lin.V3  { return lin.V3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z} }
func vmid(a, b lin.V3) lin.V3  { return vscale(vadd(a, b), 0.5) }
func vdot(a, b lin.V3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func vscale(a lin.V3, s float64) lin.V3 {
	return lin.V3{X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}
