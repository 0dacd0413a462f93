// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/solve3d/rigid/math/lin"
)

func TestBox(t *testing.T) {
	bx := Shape(NewBox(1, 1, 1)) // compiler checks Shape interface.
	if bx.Kind() != BoxShape {
		t.Error("Invalid box shape")
	}
}

func TestBoxAabb(t *testing.T) {
	bx := Shape(NewBox(1, 1, 1))
	ab := bx.Aabb(lin.NewT().SetI(), &Abox{}, 0.01)
	if ab.Sx != -1.01 || ab.Sy != -1.01 || ab.Sz != -1.01 || ab.Lx != 1.01 || ab.Ly != 1.01 || ab.Lz != 1.01 {
		t.Error("Invalid bounding box for Box")
	}
}

func TestBoxVolume(t *testing.T) {
	bx := Shape(NewBox(1, 1, 1))
	if bx.Volume() != 8 {
		t.Errorf("Expected box volume 8, got %f", bx.Volume())
	}
}

func TestBoxInertia(t *testing.T) {
	bx, inertia, want := Shape(NewBox(1, 1, 1)), lin.NewV3(), "{0.7 0.7 0.7}"
	if bx.Inertia(1, inertia); dumpV3(inertia) != want {
		t.Errorf("Expected box inertia %s, got %s", want, dumpV3(inertia))
	}
}

func TestSphere(t *testing.T) {
	sp := Shape(NewSphere(1)) // compiler checks Shape interface.
	if sp.Kind() != SphereShape {
		t.Error("Invalid sphere shape")
	}
}

func TestSphereAabb(t *testing.T) {
	sp := Shape(NewSphere(1))
	ab := sp.Aabb(lin.NewT().SetI(), &Abox{}, 0.01)
	if ab.Sx != -1.01 || ab.Sy != -1.01 || ab.Sz != -1.01 || ab.Lx != 1.01 || ab.Ly != 1.01 || ab.Lz != 1.01 {
		t.Error("Invalid bounding box for Sphere")
	}
}

func TestSphereVolume(t *testing.T) {
	sp := Shape(NewSphere(1.25))
	if !lin.Aeq(sp.Volume(), 8.18123106) {
		t.Errorf("Expected sphere volume 8.18123106, got %2.8f", sp.Volume())
	}
}

func TestSphereInertia(t *testing.T) {
	sp, inertia, want := Shape(NewSphere(1.25)), lin.NewV3(), "{0.6 0.6 0.6}"
	if sp.Inertia(1, inertia); dumpV3(inertia) != want {
		t.Errorf("Expected sphere inertia %s, got %s", want, dumpV3(inertia))
	}
}

func TestCylinderVolume(t *testing.T) {
	cy := Shape(NewCylinder(1, 2))
	want := 1 * 1 * 3.14159265 * 4
	if !lin.Aeq(cy.Volume(), want) {
		t.Errorf("Expected cylinder volume %2.8f, got %2.8f", want, cy.Volume())
	}
}

func TestCylinderSupport(t *testing.T) {
	cy := &cylinder{R: 1, Hh: 2}
	out := lin.NewV3()
	cy.Support(lin.NewV3S(0, 1, 0), out)
	if !lin.Aeq(out.Y, 2) {
		t.Errorf("Expected support point at top cap, got %s", dumpV3(out))
	}
}

func TestPolytopeVolumeIsBoxVolume(t *testing.T) {
	// a unit cube expressed as a polytope should report the same volume
	// as the equivalent box.
	verts := []*lin.V3{
		lin.NewV3S(-1, -1, -1), lin.NewV3S(1, -1, -1), lin.NewV3S(1, 1, -1), lin.NewV3S(-1, 1, -1),
		lin.NewV3S(-1, -1, 1), lin.NewV3S(1, -1, 1), lin.NewV3S(1, 1, 1), lin.NewV3S(-1, 1, 1),
	}
	faces := [][3]int{
		{0, 1, 2}, {0, 2, 3}, // bottom
		{4, 6, 5}, {4, 7, 6}, // top
		{0, 4, 5}, {0, 5, 1}, // front
		{2, 6, 7}, {2, 7, 3}, // back
		{1, 5, 6}, {1, 6, 2}, // right
		{0, 3, 7}, {0, 7, 4}, // left
	}
	pt := Shape(NewPolytope(verts, faces))
	if !lin.Aeq(pt.Volume(), 8) {
		t.Errorf("Expected polytope volume 8, got %2.8f", pt.Volume())
	}
}

// TestSupportPurity checks the support-function contract: the same query
// direction always returns the same point, bit for bit.
func TestSupportPurity(t *testing.T) {
	shapes := []Shape{
		NewBox(1, 2, 3),
		NewSphere(1.5),
		NewCylinder(1, 2),
		NewTriangle(lin.NewV3S(0, 0, 0), lin.NewV3S(1, 0, 0), lin.NewV3S(0, 1, 0)),
	}
	d := lin.NewV3S(0.3, -0.7, 0.64)
	for _, s := range shapes {
		var o1, o2 lin.V3
		s.Support(d, &o1)
		s.Support(d, &o2)
		if o1 != o2 {
			t.Errorf("Expected shape kind %d support to be pure, got %s then %s", s.Kind(), dumpV3(&o1), dumpV3(&o2))
		}
	}
}

func TestAboxOverlap(t *testing.T) {
	var a, b, c, d *Abox
	a, b = &Abox{0, 0, 0, 1, 1, 1}, &Abox{-1, -1, -1, 0, 0, 0}
	if a.Overlaps(b) {
		t.Error("Touching at a point, but not overlapping")
	}
	b = &Abox{-1, -1, -1, 0.1, 0.0, 0.0}
	c = &Abox{-1, -1, -1, 0.0, 0.1, 0.0}
	d = &Abox{-1, -1, -1, 0.0, 0.0, 0.1}
	if a.Overlaps(b) || a.Overlaps(c) || a.Overlaps(d) {
		t.Error("Touching along edges, but not overlapping")
	}
	b = &Abox{-1, -1, -1, 0.1, 0.1, 0.1}
	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Error("Overlapping")
	}
}
