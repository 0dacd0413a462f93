// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/solve3d/rigid/math/lin"
)

// Shape is a physics collision primitive used for collision detection and
// mass-property generation. A Shape is always in local (model) space
// centred at the origin. Combine a shape with a transform to position it
// anywhere in world space. Queries that produce a point, bounding box, or
// inertia write it into an output structure the caller supplies.
type Shape interface {
	Kind() ShapeKind // tag identifying the concrete variant.
	Volume() float64 // useful for mass = density*volume.

	// BoundingRadius returns the radius of the smallest sphere centred at
	// the shape's local origin enclosing it, the query volume handed to
	// external terrain colliders.
	BoundingRadius() float64

	// Aabb updates ab to be the axis aligned bounding box for this shape
	// under transform t. margin grows the box by a small positive amount;
	// use 0 for no margin. The updated Abox ab is returned.
	Aabb(t *lin.T, ab *Abox, margin float64) *Abox

	// Inertia returns the object-space diagonal moment of inertia for the
	// given mass, about the shape's local origin. Only valid for shapes
	// whose principal axes line up with the local frame (true for every
	// primitive here). The input vector inertia is updated and returned.
	Inertia(mass float64, inertia *lin.V3) *lin.V3

	// Support returns, in model space, the point on the shape's surface
	// that is furthest along direction d. Deterministic: ties are broken
	// by lowest vertex index so the same direction always returns the
	// same point. The input vector is unchanged; the result is written
	// to out and returned.
	Support(d *lin.V3, out *lin.V3) *lin.V3

	// Axes appends the shape's local body-frame candidate separating axes
	// (unit vectors in model space) to dst and returns the result. A
	// sphere has none (any axis through its centre is equivalent) and
	// returns dst unchanged.
	Axes(dst []*lin.V3) []*lin.V3
}

// ShapeKind enumerates the shapes handled by physics. Volume kinds are
// used in narrowphase collision. PlaneShape and RayShape have no volume:
// planes collide with volume shapes through collidePlaneConvex and are
// intersected by the reference ray-caster, while rays never collide.
type ShapeKind int

const (
	SphereShape   ShapeKind = iota // considered convex, curving outwards.
	BoxShape                      // polyhedral, 6 faces, convex.
	CylinderShape                 // curved side wall + 2 disk caps.
	PolytopeShape                 // arbitrary convex hull: vertices + faces.
	TriangleShape                 // single triangle, zero volume.
	CompoundShape                 // flat array of sub-shapes, each with a local transform.
	CompoundTreeShape             // bounding-volume tree over sub-shapes.
	VolumeShapes                  // separates shapes with volume from those without.
	PlaneShape                    // infinite plane, no volume or mass.
	RayShape                      // infinite line, no volume or mass.
	NumShapes                     // keep this last.
)

// box
// ============================================================================

// box is a collision shape primitive: an axis aligned box centred at the
// origin, defined by half-lengths along each axis. 6 faces, 8 vertices,
// 12 edges.
type box struct {
	Hx, Hy, Hz float64
}

// NewBox creates a Box shape. Negative input values are turned positive.
func NewBox(hx, hy, hz float64) Shape { return &box{math.Abs(hx), math.Abs(hy), math.Abs(hz)} }

func (b *box) Kind() ShapeKind { return BoxShape }

func (b *box) Aabb(t *lin.T, ab *Abox, margin float64) *Abox {
	xx, xy, xz := lin.MultSQ(1, 0, 0, t.Rot)
	yx, yy, yz := lin.MultSQ(0, 1, 0, t.Rot)
	zx, zy, zz := lin.MultSQ(0, 0, 1, t.Rot)
	xx, xy, xz = math.Abs(xx), math.Abs(xy), math.Abs(xz)
	yx, yy, yz = math.Abs(yx), math.Abs(yy), math.Abs(yz)
	zx, zy, zz = math.Abs(zx), math.Abs(zy), math.Abs(zz)

	hmx, hmy, hmz := b.Hx+margin, b.Hy+margin, b.Hz+margin
	ex := hmx*xx + hmy*xy + hmz*xz
	ey := hmx*yx + hmy*yy + hmz*yz
	ez := hmx*zx + hmy*zy + hmz*zz

	ab.Sx, ab.Sy, ab.Sz = t.Loc.X-ex, t.Loc.Y-ey, t.Loc.Z-ez
	ab.Lx, ab.Ly, ab.Lz = t.Loc.X+ex, t.Loc.Y+ey, t.Loc.Z+ez
	return ab
}

func (b *box) Volume() float64 { return b.Hx * 2 * b.Hy * 2 * b.Hz * 2 }

func (b *box) BoundingRadius() float64 { return math.Sqrt(b.Hx*b.Hx + b.Hy*b.Hy + b.Hz*b.Hz) }

func (b *box) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	lx2, ly2, lz2 := 4.0*b.Hx*b.Hx, 4.0*b.Hy*b.Hy, 4.0*b.Hz*b.Hz
	inertia.SetS(mass/12.0*(ly2+lz2), mass/12.0*(lx2+lz2), mass/12.0*(lx2+ly2))
	return inertia
}

func (b *box) Support(d *lin.V3, out *lin.V3) *lin.V3 {
	x, y, z := b.Hx, b.Hy, b.Hz
	if d.X < 0 {
		x = -x
	}
	if d.Y < 0 {
		y = -y
	}
	if d.Z < 0 {
		z = -z
	}
	return out.SetS(x, y, z)
}

func (b *box) Axes(dst []*lin.V3) []*lin.V3 {
	return append(dst, lin.NewV3S(1, 0, 0), lin.NewV3S(0, 1, 0), lin.NewV3S(0, 0, 1))
}

// box
// ============================================================================
// sphere

// sphere is a collision shape primitive defined by a radius about the origin.
type sphere struct {
	R float64
}

// NewSphere creates a Sphere shape. Negative radius values are turned positive.
func NewSphere(radius float64) Shape { return &sphere{math.Abs(radius)} }

func (s *sphere) Kind() ShapeKind { return SphereShape }

func (s *sphere) Aabb(t *lin.T, ab *Abox, margin float64) *Abox {
	sides := s.R + margin
	ab.Sx, ab.Sy, ab.Sz = t.Loc.X-sides, t.Loc.Y-sides, t.Loc.Z-sides
	ab.Lx, ab.Ly, ab.Lz = t.Loc.X+sides, t.Loc.Y+sides, t.Loc.Z+sides
	return ab
}

func (s *sphere) Volume() float64 { return (4.0 / 3.0) * math.Pi * s.R * s.R * s.R }

func (s *sphere) BoundingRadius() float64 { return s.R }

func (s *sphere) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	elem := 0.4 * mass * s.R * s.R
	inertia.SetS(elem, elem, elem)
	return inertia
}

func (s *sphere) Support(d *lin.V3, out *lin.V3) *lin.V3 {
	out.Set(d).Unit().Scale(out, s.R)
	return out
}

func (s *sphere) Axes(dst []*lin.V3) []*lin.V3 { return dst }

// sphere
// ============================================================================
// cylinder

// cylinder is aligned with the local Y axis: radius R, half-height Hh.
type cylinder struct {
	R, Hh float64
}

// NewCylinder creates a Cylinder shape aligned with the local Y axis.
func NewCylinder(radius, halfHeight float64) Shape {
	return &cylinder{math.Abs(radius), math.Abs(halfHeight)}
}

func (c *cylinder) Kind() ShapeKind { return CylinderShape }

func (c *cylinder) Aabb(t *lin.T, ab *Abox, margin float64) *Abox {
	// conservative bound: sphere of the cylinder's circumscribing radius.
	bound := math.Sqrt(c.R*c.R+c.Hh*c.Hh) + margin
	ab.Sx, ab.Sy, ab.Sz = t.Loc.X-bound, t.Loc.Y-bound, t.Loc.Z-bound
	ab.Lx, ab.Ly, ab.Lz = t.Loc.X+bound, t.Loc.Y+bound, t.Loc.Z+bound
	return ab
}

func (c *cylinder) Volume() float64 { return math.Pi * c.R * c.R * (2 * c.Hh) }

func (c *cylinder) BoundingRadius() float64 { return math.Sqrt(c.R*c.R + c.Hh*c.Hh) }

func (c *cylinder) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	h2 := (2 * c.Hh) * (2 * c.Hh)
	side := mass * (0.25*c.R*c.R + (1.0/3.0)*h2)
	axis := 0.5 * mass * c.R * c.R
	inertia.SetS(side, axis, side)
	return inertia
}

func (c *cylinder) Support(d *lin.V3, out *lin.V3) *lin.V3 {
	radial := math.Hypot(d.X, d.Z)
	y := c.Hh
	if d.Y < 0 {
		y = -c.Hh
	}
	if radial < lin.Epsilon {
		return out.SetS(0, y, 0)
	}
	k := c.R / radial
	return out.SetS(d.X*k, y, d.Z*k)
}

func (c *cylinder) Axes(dst []*lin.V3) []*lin.V3 { return append(dst, lin.NewV3S(0, 1, 0)) }

// cylinder
// ============================================================================
// polytope

// polytope is an arbitrary convex hull defined by its vertices and the
// indices of the (assumed convex, assumed outward-facing) faces. Each face
// is a triangle fan described by vertex indices into Verts.
type polytope struct {
	Verts []*lin.V3
	Faces [][3]int // three vertex indices per face.
	bound float64  // circumscribing radius, fixed at build time.
}

// NewPolytope creates a Polytope shape from the given vertices and
// triangular faces (three vertex indices per face, indices into verts).
func NewPolytope(verts []*lin.V3, faces [][3]int) Shape {
	p := &polytope{Verts: verts, Faces: faces}
	for _, v := range verts {
		if r := v.Len(); r > p.bound {
			p.bound = r
		}
	}
	return p
}

func (p *polytope) Kind() ShapeKind { return PolytopeShape }

func (p *polytope) BoundingRadius() float64 { return p.bound }

func (p *polytope) Aabb(t *lin.T, ab *Abox, margin float64) *Abox {
	var wx, wy, wz float64
	minX, minY, minZ := math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
	maxX, maxY, maxZ := -math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64
	for _, v := range p.Verts {
		wx, wy, wz = t.AppS(v.X, v.Y, v.Z)
		minX, maxX = math.Min(minX, wx), math.Max(maxX, wx)
		minY, maxY = math.Min(minY, wy), math.Max(maxY, wy)
		minZ, maxZ = math.Min(minZ, wz), math.Max(maxZ, wz)
	}
	ab.Sx, ab.Sy, ab.Sz = minX-margin, minY-margin, minZ-margin
	ab.Lx, ab.Ly, ab.Lz = maxX+margin, maxY+margin, maxZ+margin
	return ab
}

// Volume decomposes the hull into tetrahedra from vertex 0.
func (p *polytope) Volume() float64 {
	if len(p.Verts) == 0 {
		return 0
	}
	origin := p.Verts[0]
	var vol float64
	var a, b lin.V3
	for _, f := range p.Faces {
		v0, v1, v2 := p.Verts[f[0]], p.Verts[f[1]], p.Verts[f[2]]
		a.Sub(v1, origin)
		b.Sub(v2, origin)
		var cr lin.V3
		cr.Cross(&a, &b)
		d := lin.NewV3().Sub(v0, origin)
		vol += d.Dot(&cr)
	}
	return math.Abs(vol) / 6.0
}

// Inertia approximates the hull by its bounding box: the shared diagonal
// inertia representation cannot carry a skewed hull's off-diagonal
// products anyway. Documented in DESIGN.md.
func (p *polytope) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	minX, minY, minZ := math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
	maxX, maxY, maxZ := -math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64
	for _, v := range p.Verts {
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
		minZ, maxZ = math.Min(minZ, v.Z), math.Max(maxZ, v.Z)
	}
	hx, hy, hz := (maxX-minX)/2, (maxY-minY)/2, (maxZ-minZ)/2
	lx2, ly2, lz2 := 4*hx*hx, 4*hy*hy, 4*hz*hz
	inertia.SetS(mass/12.0*(ly2+lz2), mass/12.0*(lx2+lz2), mass/12.0*(lx2+ly2))
	return inertia
}

func (p *polytope) Support(d *lin.V3, out *lin.V3) *lin.V3 {
	best := -math.MaxFloat64
	bestIdx := 0
	for i, v := range p.Verts {
		proj := d.Dot(v)
		if proj > best {
			best, bestIdx = proj, i
		}
	}
	return out.Set(p.Verts[bestIdx])
}

func (p *polytope) Axes(dst []*lin.V3) []*lin.V3 {
	for _, f := range p.Faces {
		v0, v1, v2 := p.Verts[f[0]], p.Verts[f[1]], p.Verts[f[2]]
		var a, b, n lin.V3
		a.Sub(v1, v0)
		b.Sub(v2, v0)
		n.Cross(&a, &b)
		if n.AeqZ() {
			continue
		}
		n.Unit()
		dst = append(dst, lin.NewV3S(n.X, n.Y, n.Z))
	}
	return dst
}

// polytope
// ============================================================================
// triangle

// triangle is a single zero-volume triangle. nominalThickness gives it a
// thin-shell inertia estimate since a true zero-thickness solid has a
// singular inertia tensor.
type triangle struct {
	V0, V1, V2       *lin.V3
	nominalThickness float64
}

// NewTriangle creates a Triangle shape from three model-space vertices.
func NewTriangle(v0, v1, v2 *lin.V3) Shape {
	return &triangle{v0, v1, v2, 0.01}
}

func (t *triangle) Kind() ShapeKind { return TriangleShape }

func (t *triangle) BoundingRadius() float64 {
	return math.Max(t.V0.Len(), math.Max(t.V1.Len(), t.V2.Len()))
}

func (t *triangle) Aabb(xf *lin.T, ab *Abox, margin float64) *Abox {
	minX, minY, minZ := math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
	maxX, maxY, maxZ := -math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64
	for _, v := range [3]*lin.V3{t.V0, t.V1, t.V2} {
		wx, wy, wz := xf.AppS(v.X, v.Y, v.Z)
		minX, maxX = math.Min(minX, wx), math.Max(maxX, wx)
		minY, maxY = math.Min(minY, wy), math.Max(maxY, wy)
		minZ, maxZ = math.Min(minZ, wz), math.Max(maxZ, wz)
	}
	ab.Sx, ab.Sy, ab.Sz = minX-margin, minY-margin, minZ-margin
	ab.Lx, ab.Ly, ab.Lz = maxX+margin, maxY+margin, maxZ+margin
	return ab
}

func (t *triangle) Volume() float64 {
	var a, b, n lin.V3
	a.Sub(t.V1, t.V0)
	b.Sub(t.V2, t.V0)
	n.Cross(&a, &b)
	return 0.5 * n.Len() * t.nominalThickness
}

func (t *triangle) Inertia(mass float64, inertia *lin.V3) *lin.V3 {
	// thin-shell plate approximation over the triangle's bounding extents.
	minX, minY, minZ := math.Min(t.V0.X, math.Min(t.V1.X, t.V2.X)), math.Min(t.V0.Y, math.Min(t.V1.Y, t.V2.Y)), math.Min(t.V0.Z, math.Min(t.V1.Z, t.V2.Z))
	maxX, maxY, maxZ := math.Max(t.V0.X, math.Max(t.V1.X, t.V2.X)), math.Max(t.V0.Y, math.Max(t.V1.Y, t.V2.Y)), math.Max(t.V0.Z, math.Max(t.V1.Z, t.V2.Z))
	lx, ly, lz := maxX-minX, maxY-minY, maxZ-minZ
	lx2, ly2, lz2 := lx*lx, ly*ly, lz*lz
	inertia.SetS(mass/12.0*(ly2+lz2), mass/12.0*(lx2+lz2), mass/12.0*(lx2+ly2))
	return inertia
}

func (t *triangle) Support(d *lin.V3, out *lin.V3) *lin.V3 {
	best, bestV := d.Dot(t.V0), t.V0
	if p := d.Dot(t.V1); p > best {
		best, bestV = p, t.V1
	}
	if p := d.Dot(t.V2); p > best {
		best, bestV = p, t.V2
	}
	return out.Set(bestV)
}

func (t *triangle) Axes(dst []*lin.V3) []*lin.V3 {
	var a, b, n lin.V3
	a.Sub(t.V1, t.V0)
	b.Sub(t.V2, t.V0)
	n.Cross(&a, &b)
	if n.AeqZ() {
		return dst
	}
	n.Unit()
	return append(dst, lin.NewV3S(n.X, n.Y, n.Z))
}

// triangle
// ============================================================================
// Abox

// Abox is an axis aligned bounding box. Its primary purpose is to surround
// arbitrary shapes during broadphase. It is not itself a narrowphase
// primitive.
type Abox struct {
	Sx, Sy, Sz float64 // smallest vertex.
	Lx, Ly, Lz float64 // largest vertex.
}

// Overlaps returns true if Abox a and b intersect. Returns false if they
// are disjoint or only touch along a point, edge, or face.
func (a *Abox) Overlaps(b *Abox) bool {
	return a.Lx > b.Sx && a.Sx < b.Lx && a.Ly > b.Sy && a.Sy < b.Ly && a.Lz > b.Sz && a.Sz < b.Lz
}

// Abox
// ============================================================================
// plane / ray (non-volume shapes)

// hugeBound is the half-extent used for the AABB of unbounded shapes
// (planes), large enough to overlap every realistic scene while staying
// comfortably inside float64 range for the broadphase endpoint sums.
const hugeBound = 1e18

type plane struct{ Nx, Ny, Nz float64 }

// NewPlane creates an infinite plane shape using the given plane normal
// x, y, z. The plane passes through its body's position; the normal names
// its solid side's outward direction. Planes have no volume and can only
// back Static or Keyframed bodies.
func NewPlane(x, y, z float64) Shape { return &plane{x, y, z} }

func (p *plane) Kind() ShapeKind { return PlaneShape }
func (p *plane) Aabb(t *lin.T, ab *Abox, m float64) *Abox {
	ab.Sx, ab.Sy, ab.Sz = -hugeBound, -hugeBound, -hugeBound
	ab.Lx, ab.Ly, ab.Lz = hugeBound, hugeBound, hugeBound
	return ab
}
func (p *plane) Volume() float64                      { return 0 }
func (p *plane) BoundingRadius() float64              { return hugeBound }
func (p *plane) Inertia(m float64, i *lin.V3) *lin.V3 { return i.SetS(0, 0, 0) }
func (p *plane) Support(d, out *lin.V3) *lin.V3       { return out.SetS(0, 0, 0) }
func (p *plane) Axes(dst []*lin.V3) []*lin.V3         { return dst }

type ray struct{ Dx, Dy, Dz float64 }

// NewRay creates a ray shape using the given ray direction x, y, z. Rays
// never collide; they exist so ray-cast queries can be modelled as bodies.
func NewRay(x, y, z float64) Shape { return &ray{x, y, z} }

func (r *ray) Kind() ShapeKind { return RayShape }
func (r *ray) Aabb(t *lin.T, ab *Abox, m float64) *Abox {
	ab.Sx, ab.Sy, ab.Sz = t.Loc.X, t.Loc.Y, t.Loc.Z
	ab.Lx, ab.Ly, ab.Lz = t.Loc.X, t.Loc.Y, t.Loc.Z
	return ab
}
func (r *ray) Volume() float64                      { return 0 }
func (r *ray) BoundingRadius() float64              { return 0 }
func (r *ray) Inertia(m float64, i *lin.V3) *lin.V3 { return i.SetS(0, 0, 0) }
func (r *ray) Support(d, out *lin.V3) *lin.V3       { return out.SetS(0, 0, 0) }
func (r *ray) Axes(dst []*lin.V3) []*lin.V3         { return dst }
