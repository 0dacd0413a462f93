// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "math"

// V3 is a 3-element vector. It stands in for points, directions,
// velocities, forces, and torques throughout the engine; which one is a
// matter of context at the call site.
type V3 struct {
	X, Y, Z float64
}

// NewV3 returns a zero vector.
func NewV3() *V3 { return &V3{} }

// NewV3S returns a vector holding the given components.
func NewV3S(x, y, z float64) *V3 { return &V3{x, y, z} }

// Set copies a into v. The updated v is returned.
func (v *V3) Set(a *V3) *V3 {
	v.X, v.Y, v.Z = a.X, a.Y, a.Z
	return v
}

// SetS sets v's components. The updated v is returned.
func (v *V3) SetS(x, y, z float64) *V3 {
	v.X, v.Y, v.Z = x, y, z
	return v
}

// Add stores a+b in v. Any of the three may alias.
func (v *V3) Add(a, b *V3) *V3 {
	v.X, v.Y, v.Z = a.X+b.X, a.Y+b.Y, a.Z+b.Z
	return v
}

// Sub stores a-b in v. Any of the three may alias.
func (v *V3) Sub(a, b *V3) *V3 {
	v.X, v.Y, v.Z = a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return v
}

// Neg stores -a in v.
func (v *V3) Neg(a *V3) *V3 {
	v.X, v.Y, v.Z = -a.X, -a.Y, -a.Z
	return v
}

// Scale stores a*s in v.
func (v *V3) Scale(a *V3, s float64) *V3 {
	v.X, v.Y, v.Z = a.X*s, a.Y*s, a.Z*s
	return v
}

// Dot returns the inner product of v and a.
func (v *V3) Dot(a *V3) float64 { return v.X*a.X + v.Y*a.Y + v.Z*a.Z }

// LenSqr returns the squared length of v, cheaper than Len when only
// comparisons against another squared quantity are needed.
func (v *V3) LenSqr() float64 { return v.Dot(v) }

// Len returns the length of v.
func (v *V3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// AeqZ reports whether v is close enough to the zero vector that
// normalising it would be meaningless.
func (v *V3) AeqZ() bool { return v.Dot(v) < Epsilon }

// Unit scales v to length 1. A near-zero vector has no direction to
// preserve and is left unchanged.
func (v *V3) Unit() *V3 {
	lsqr := v.Dot(v)
	if lsqr < Epsilon*Epsilon {
		return v
	}
	inv := 1 / math.Sqrt(lsqr)
	v.X, v.Y, v.Z = v.X*inv, v.Y*inv, v.Z*inv
	return v
}

// Cross stores the cross product a x b in v. Aliasing is safe; the
// result is computed before v is written.
func (v *V3) Cross(a, b *V3) *V3 {
	x := a.Y*b.Z - a.Z*b.Y
	y := a.Z*b.X - a.X*b.Z
	z := a.X*b.Y - a.Y*b.X
	v.X, v.Y, v.Z = x, y, z
	return v
}

// MultMv stores the matrix-vector product m*a in v, treating a as a
// column vector. Vector v may alias a.
func (v *V3) MultMv(m *M3, a *V3) *V3 {
	x := m.Xx*a.X + m.Xy*a.Y + m.Xz*a.Z
	y := m.Yx*a.X + m.Yy*a.Y + m.Yz*a.Z
	z := m.Zx*a.X + m.Zy*a.Y + m.Zz*a.Z
	v.X, v.Y, v.Z = x, y, z
	return v
}

// MultSQ rotates the vector (x, y, z) by unit quaternion q, returning
// the rotated components. Expanding q*v*q^-1 and folding the terms gives
// the three-product form below, which avoids building the intermediate
// quaternions.
func MultSQ(x, y, z float64, q *Q) (rx, ry, rz float64) {
	// v' = (2w*w - 1)*v + 2(q.v)*q + 2w*(q x v), with q's vector part
	// (qx, qy, qz) and scalar part w.
	k := q.X*x + q.Y*y + q.Z*z // q.v
	w2 := 2*q.W*q.W - 1
	rx = w2*x + 2*k*q.X + 2*q.W*(q.Y*z-q.Z*y)
	ry = w2*y + 2*k*q.Y + 2*q.W*(q.Z*x-q.X*z)
	rz = w2*z + 2*k*q.Z + 2*q.W*(q.X*y-q.Y*x)
	return rx, ry, rz
}
