// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "math"

// Rotations appear in two representations. Bodies carry a unit
// quaternion Q, compact and cheap to renormalise after the integrator's
// repeated small updates; the inertia-tensor math works on the 3x3
// matrix M3 because the world inverse inertia tensor R*I^-1*R^T and the
// contact solver's K matrix have no quaternion form. SetQ bridges the
// two.

// Q is a rotation stored as a unit quaternion: vector part X, Y, Z
// along the rotation axis, scalar part W. Only unit quaternions are
// meaningful here; operations that could drift the length provide or
// are followed by Unit.
type Q struct {
	X, Y, Z, W float64
}

// NewQI returns the identity (no rotation) quaternion.
func NewQI() *Q { return &Q{0, 0, 0, 1} }

// Set copies a into q. The updated q is returned.
func (q *Q) Set(a *Q) *Q {
	q.X, q.Y, q.Z, q.W = a.X, a.Y, a.Z, a.W
	return q
}

// SetAa sets q to the rotation of ang radians about the axis
// (ax, ay, az), which need not be unit length. A zero axis yields the
// identity rotation.
func (q *Q) SetAa(ax, ay, az, ang float64) *Q {
	alen := math.Sqrt(ax*ax + ay*ay + az*az)
	if alen < Epsilon {
		q.X, q.Y, q.Z, q.W = 0, 0, 0, 1
		return q
	}
	s := math.Sin(ang*0.5) / alen
	q.X, q.Y, q.Z, q.W = ax*s, ay*s, az*s, math.Cos(ang*0.5)
	return q
}

// Inv sets q to the inverse of unit quaternion a: its conjugate.
func (q *Q) Inv(a *Q) *Q {
	q.X, q.Y, q.Z, q.W = -a.X, -a.Y, -a.Z, a.W
	return q
}

// Mult composes rotations, storing in q the rotation that applies a
// then b. Safe to call with q as either or both inputs.
func (q *Q) Mult(a, b *Q) *Q {
	x := a.W*b.X + a.X*b.W - a.Y*b.Z + a.Z*b.Y
	y := a.W*b.Y + a.X*b.Z + a.Y*b.W - a.Z*b.X
	z := a.W*b.Z - a.X*b.Y + a.Y*b.X + a.Z*b.W
	w := a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z
	q.X, q.Y, q.Z, q.W = x, y, z, w
	return q
}

// Unit rescales q to unit length, keeping it a valid rotation after
// accumulated floating point drift. A degenerate zero quaternion is
// reset to the identity.
func (q *Q) Unit() *Q {
	lsqr := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if lsqr < Epsilon {
		q.X, q.Y, q.Z, q.W = 0, 0, 0, 1
		return q
	}
	inv := 1 / math.Sqrt(lsqr)
	q.X, q.Y, q.Z, q.W = q.X*inv, q.Y*inv, q.Z*inv, q.W*inv
	return q
}

// Q
// ============================================================================
// M3

// M3 is a 3x3 matrix stored row major: Xx, Xy, Xz is the first row.
// The engine uses it for rotation bases and for the symmetric inertia
// and contact-mass operators.
type M3 struct {
	Xx, Xy, Xz float64
	Yx, Yy, Yz float64
	Zx, Zy, Zz float64
}

// NewM3 returns a zero matrix.
func NewM3() *M3 { return &M3{} }

// NewM3I returns an identity matrix.
func NewM3I() *M3 { return &M3{Xx: 1, Yy: 1, Zz: 1} }

// SetS sets every element of m, row by row. The updated m is returned.
func (m *M3) SetS(xx, xy, xz, yx, yy, yz, zx, zy, zz float64) *M3 {
	m.Xx, m.Xy, m.Xz = xx, xy, xz
	m.Yx, m.Yy, m.Yz = yx, yy, yz
	m.Zx, m.Zy, m.Zz = zx, zy, zz
	return m
}

// Sub stores a-b in m element-wise.
func (m *M3) Sub(a, b *M3) *M3 {
	m.Xx, m.Xy, m.Xz = a.Xx-b.Xx, a.Xy-b.Xy, a.Xz-b.Xz
	m.Yx, m.Yy, m.Yz = a.Yx-b.Yx, a.Yy-b.Yy, a.Yz-b.Yz
	m.Zx, m.Zy, m.Zz = a.Zx-b.Zx, a.Zy-b.Zy, a.Zz-b.Zz
	return m
}

// Mult stores the matrix product a*b in m. Safe to call with m as
// either or both inputs.
func (m *M3) Mult(a, b *M3) *M3 {
	xx := a.Xx*b.Xx + a.Xy*b.Yx + a.Xz*b.Zx
	xy := a.Xx*b.Xy + a.Xy*b.Yy + a.Xz*b.Zy
	xz := a.Xx*b.Xz + a.Xy*b.Yz + a.Xz*b.Zz
	yx := a.Yx*b.Xx + a.Yy*b.Yx + a.Yz*b.Zx
	yy := a.Yx*b.Xy + a.Yy*b.Yy + a.Yz*b.Zy
	yz := a.Yx*b.Xz + a.Yy*b.Yz + a.Yz*b.Zz
	zx := a.Zx*b.Xx + a.Zy*b.Yx + a.Zz*b.Zx
	zy := a.Zx*b.Xy + a.Zy*b.Yy + a.Zz*b.Zy
	zz := a.Zx*b.Xz + a.Zy*b.Yz + a.Zz*b.Zz
	return m.SetS(xx, xy, xz, yx, yy, yz, zx, zy, zz)
}

// Transpose stores the transpose of a in m. Safe when m aliases a.
func (m *M3) Transpose(a *M3) *M3 {
	xy, xz, yz := a.Xy, a.Xz, a.Yz
	m.Xx, m.Yy, m.Zz = a.Xx, a.Yy, a.Zz
	m.Xy, m.Xz = a.Yx, a.Zx
	m.Yx, m.Yz = xy, a.Zy
	m.Zx, m.Zy = xz, yz
	return m
}

// ScaleV multiplies column j of m by component j of v, equivalent to
// the product m*diag(v). The updated m is returned.
func (m *M3) ScaleV(v *V3) *M3 {
	m.Xx, m.Xy, m.Xz = m.Xx*v.X, m.Xy*v.Y, m.Xz*v.Z
	m.Yx, m.Yy, m.Yz = m.Yx*v.X, m.Yy*v.Y, m.Yz*v.Z
	m.Zx, m.Zy, m.Zz = m.Zx*v.X, m.Zy*v.Y, m.Zz*v.Z
	return m
}

// SetQ sets m to the rotation matrix equivalent of unit quaternion q,
// so that m*v and MultSQ(v, q) rotate v identically.
func (m *M3) SetQ(q *Q) *M3 {
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, yy, zz := q.X*x2, q.Y*y2, q.Z*z2
	xy, xz, yz := q.X*y2, q.X*z2, q.Y*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2
	m.Xx, m.Xy, m.Xz = 1-yy-zz, xy-wz, xz+wy
	m.Yx, m.Yy, m.Yz = xy+wz, 1-xx-zz, yz-wx
	m.Zx, m.Zy, m.Zz = xz-wy, yz+wx, 1-xx-yy
	return m
}

// SetSkewSym sets m to the skew-symmetric cross-product matrix of v,
// the matrix [v]x satisfying [v]x * a == v x a for every vector a. It
// appears in the contact solver's effective-mass operator.
func (m *M3) SetSkewSym(v *V3) *M3 {
	m.Xx, m.Xy, m.Xz = 0, -v.Z, v.Y
	m.Yx, m.Yy, m.Yz = v.Z, 0, -v.X
	m.Zx, m.Zy, m.Zz = -v.Y, v.X, 0
	return m
}

// Det returns the determinant of m, the solver's singularity test
// before it commits to inverting a contact-mass matrix.
func (m *M3) Det() float64 {
	return m.Xx*(m.Yy*m.Zz-m.Yz*m.Zy) -
		m.Xy*(m.Yx*m.Zz-m.Yz*m.Zx) +
		m.Xz*(m.Yx*m.Zy-m.Yy*m.Zx)
}

// Inv stores the inverse of a in m via the adjugate. A singular a
// leaves m unchanged; callers test Det first when that matters.
func (m *M3) Inv(a *M3) *M3 {
	det := a.Det()
	if det == 0 {
		return m
	}
	s := 1 / det
	xx := (a.Yy*a.Zz - a.Yz*a.Zy) * s
	xy := (a.Xz*a.Zy - a.Xy*a.Zz) * s
	xz := (a.Xy*a.Yz - a.Xz*a.Yy) * s
	yx := (a.Yz*a.Zx - a.Yx*a.Zz) * s
	yy := (a.Xx*a.Zz - a.Xz*a.Zx) * s
	yz := (a.Xz*a.Yx - a.Xx*a.Yz) * s
	zx := (a.Yx*a.Zy - a.Yy*a.Zx) * s
	zy := (a.Xy*a.Zx - a.Xx*a.Zy) * s
	zz := (a.Xx*a.Yy - a.Xy*a.Yx) * s
	return m.SetS(xx, xy, xz, yx, yy, yz, zx, zy, zz)
}
