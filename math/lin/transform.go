// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "math"

// T is a rigid transform: the rotation Rot followed by the translation
// Loc. It carries a body's pose, mapping model space to world space
// without scaling or shearing. Loc and Rot are held by pointer so a
// transform can be threaded through the non-allocating call style the
// rest of the package uses.
type T struct {
	Loc *V3
	Rot *Q
}

// NewT returns an identity transform.
func NewT() *T { return &T{&V3{}, &Q{W: 1}} }

// SetI resets t to the identity transform. The updated t is returned.
func (t *T) SetI() *T {
	t.Loc.X, t.Loc.Y, t.Loc.Z = 0, 0, 0
	t.Rot.X, t.Rot.Y, t.Rot.Z, t.Rot.W = 0, 0, 0, 1
	return t
}

// Set copies transform a into t. The updated t is returned.
func (t *T) Set(a *T) *T {
	t.Loc.Set(a.Loc)
	t.Rot.Set(a.Rot)
	return t
}

// SetVQ sets t from a translation and a rotation. The inputs are
// copied, not retained. The updated t is returned.
func (t *T) SetVQ(loc *V3, rot *Q) *T {
	t.Loc.Set(loc)
	t.Rot.Set(rot)
	return t
}

// AppS applies the full transform to the point (x, y, z): rotate, then
// translate. Used to carry model-space geometry into world space.
func (t *T) AppS(x, y, z float64) (wx, wy, wz float64) {
	wx, wy, wz = MultSQ(x, y, z, t.Rot)
	return wx + t.Loc.X, wy + t.Loc.Y, wz + t.Loc.Z
}

// AppR applies only the rotation to (x, y, z). Used for directions,
// which have no position to translate.
func (t *T) AppR(x, y, z float64) (wx, wy, wz float64) {
	return MultSQ(x, y, z, t.Rot)
}

// InvS applies the inverse transform to the point (x, y, z): untranslate,
// then unrotate. Used to carry world-space points into model space.
func (t *T) InvS(x, y, z float64) (mx, my, mz float64) {
	x, y, z = x-t.Loc.X, y-t.Loc.Y, z-t.Loc.Z
	inv := Q{-t.Rot.X, -t.Rot.Y, -t.Rot.Z, t.Rot.W}
	return MultSQ(x, y, z, &inv)
}

// Integrate sets t to transform a advanced by linear velocity linv and
// angular velocity angv over dt seconds. The position moves linearly;
// the orientation composes a's rotation with the exponential map of
// angv*dt, clamped so one step never turns more than an eighth of a
// circle (a runaway spin should slow, not alias). The result is
// renormalised, keeping the rotation a valid unit quaternion however
// many steps accumulate. Transforms t and a must not be the same
// object; the inputs are unchanged.
func (t *T) Integrate(a *T, linv, angv *V3, dt float64) *T {
	t.Loc.X = a.Loc.X + linv.X*dt
	t.Loc.Y = a.Loc.Y + linv.Y*dt
	t.Loc.Z = a.Loc.Z + linv.Z*dt

	speed := angv.Len()
	rate := speed
	if rate*dt > HalfPi*0.5 {
		rate = HalfPi * 0.5 / dt
	}
	half := rate * dt * 0.5
	var k float64
	if speed < 0.001 {
		// series for sin(half)/speed near zero; the cubic term keeps
		// the error below double precision noise at these speeds.
		k = 0.5*dt - dt*dt*dt*speed*speed/48
	} else {
		k = math.Sin(half) / speed
	}
	spin := Q{angv.X * k, angv.Y * k, angv.Z * k, math.Cos(half)}
	t.Rot.Mult(a.Rot, &spin)
	t.Rot.Unit()
	return t
}
