// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import (
	"math"
	"testing"
)

func TestAppSAndInvSRoundTrip(t *testing.T) {
	xf := NewT().SetVQ(NewV3S(1, 2, 3), NewQI().SetAa(0.3, 1, -2, 0.8))
	wx, wy, wz := xf.AppS(4, -5, 6)
	mx, my, mz := xf.InvS(wx, wy, wz)
	if !Aeq(mx, 4) || !Aeq(my, -5) || !Aeq(mz, 6) {
		t.Errorf("Expected the inverse transform to restore the point, got (%f, %f, %f)", mx, my, mz)
	}
}

func TestAppRIgnoresTranslation(t *testing.T) {
	xf := NewT().SetVQ(NewV3S(100, 100, 100), NewQI().SetAa(0, 0, 1, HalfPi))
	x, y, z := xf.AppR(1, 0, 0)
	if !Aeq(x, 0) || !Aeq(y, 1) || !Aeq(z, 0) {
		t.Errorf("Expected the direction rotated but not translated, got (%f, %f, %f)", x, y, z)
	}
}

func TestSetVQCopies(t *testing.T) {
	loc, rot := NewV3S(1, 2, 3), NewQI()
	xf := NewT().SetVQ(loc, rot)
	loc.X = 99
	if xf.Loc.X != 1 {
		t.Error("Expected SetVQ to copy the translation, not retain it")
	}
}

func TestIntegrateLinear(t *testing.T) {
	xf := NewT()
	xf.Integrate(NewT(), NewV3S(1, 2, 3), NewV3(), 0.5)
	if !Aeq(xf.Loc.X, 0.5) || !Aeq(xf.Loc.Y, 1) || !Aeq(xf.Loc.Z, 1.5) {
		t.Errorf("Expected half a second of drift, got (%f, %f, %f)", xf.Loc.X, xf.Loc.Y, xf.Loc.Z)
	}
	if xf.Rot.W != 1 {
		t.Error("Expected no rotation from a zero angular velocity")
	}
}

// TestIntegrateSpin turns at pi/10 radians per second about y for one
// 0.1s step and expects the orientation to have advanced by pi/100.
func TestIntegrateSpin(t *testing.T) {
	xf := NewT()
	xf.Integrate(NewT(), NewV3(), NewV3S(0, math.Pi/10, 0), 0.1)
	want := NewQI().SetAa(0, 1, 0, math.Pi/100)
	if !Aeq(xf.Rot.X, want.X) || !Aeq(xf.Rot.Y, want.Y) || !Aeq(xf.Rot.Z, want.Z) || !Aeq(xf.Rot.W, want.W) {
		t.Errorf("Expected a pi/100 turn about y, got (%f, %f, %f, %f)", xf.Rot.X, xf.Rot.Y, xf.Rot.Z, xf.Rot.W)
	}
}

// TestIntegrateAccumulates spins a transform through many small steps
// and expects the same orientation as one equivalent rotation, the
// property the body integrator relies on tick after tick.
func TestIntegrateAccumulates(t *testing.T) {
	xf, next := NewT(), NewT()
	omega := NewV3S(0, HalfPi, 0) // quarter turn per second about y.
	for i := 0; i < 100; i++ {
		next.Integrate(xf, NewV3(), omega, 0.01)
		xf.Set(next)
	}
	x, y, z := xf.AppR(1, 0, 0) // one full second: +x should reach -z.
	if !Aeq(x, 0) || !Aeq(y, 0) || !Aeq(z, -1) {
		t.Errorf("Expected +x carried to -z after a quarter turn, got (%f, %f, %f)", x, y, z)
	}
}

// TestIntegrateClampsRunawaySpin checks the angular motion limit: a
// single step cannot rotate more than an eighth of a circle no matter
// how large the angular velocity.
func TestIntegrateClampsRunawaySpin(t *testing.T) {
	xf := NewT()
	xf.Integrate(NewT(), NewV3(), NewV3S(0, 1000, 0), 0.1)
	ang := 2 * math.Acos(xf.Rot.W)
	if ang > HalfPi*0.5+Epsilon {
		t.Errorf("Expected the step's rotation clamped to pi/4, got %f radians", ang)
	}
}
