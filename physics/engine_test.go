// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"
	"testing"

	"github.com/solve3d/rigid/math/lin"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	settings := DefaultSettings()
	settings.FixedStep = 1.0 / 100.0
	e, err := NewEngine(settings)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// TestFreeFall drops a radius-0.5 sphere from y=10 under gravity -10 for exactly
// one second of 120Hz ticks. The position update carries the half*a*dt*dt
// term, so the integrated fall matches the closed form half*g*t*t to well
// within the 1e-2 tolerance, and the angular state never moves.
func TestFreeFall(t *testing.T) {
	settings := DefaultSettings()
	settings.FixedStep = 1.0 / 120.0
	settings.Gravity = UniformGravity{Y: -10}
	e, err := NewEngine(settings)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	b, err := e.AddBody(NewSphere(0.5), Dynamic, 1)
	if err != nil {
		t.Fatalf("AddBody: %v", err)
	}
	b.SetPose(lin.NewT().SetVQ(lin.NewV3S(0, 10, 0), lin.NewQI()))

	for i := 0; i < 120; i++ {
		e.Step(1.0 / 120.0)
	}
	if y := b.Pose().Loc.Y; math.Abs(y-5) > 1e-2 {
		t.Errorf("Expected the sphere at y=5 after 1s of free fall, got y=%f", y)
	}
	if ax, ay, az := b.AngularVelocity(); ax != 0 || ay != 0 || az != 0 {
		t.Errorf("Expected angular state untouched by free fall, got (%f,%f,%f)", ax, ay, az)
	}
}

func TestStaticBodyNeverMoves(t *testing.T) {
	e := newTestEngine(t)
	ground, _ := e.AddBody(NewBox(10, 1, 10), Static, 1)
	for i := 0; i < 50; i++ {
		e.Step(1.0 / 100.0)
	}
	if ground.Pose().Loc.Y != 0 {
		t.Errorf("Expected static body to stay put, moved to y=%f", ground.Pose().Loc.Y)
	}
}

func TestSphereRestsOnGround(t *testing.T) {
	e := newTestEngine(t)
	e.AddBody(NewBox(10, 1, 10), Static, 1)
	ball, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
	ball.SetPose(lin.NewT().SetVQ(lin.NewV3S(0, 2, 0), lin.NewQI()))

	for i := 0; i < 600; i++ {
		e.Step(1.0 / 100.0)
	}
	// ground top face is at y=1, ball radius 0.5, so it should settle near y=1.5.
	if math.Abs(ball.Pose().Loc.Y-1.5) > 0.1 {
		t.Errorf("Expected ball to settle near y=1.5, got y=%f", ball.Pose().Loc.Y)
	}
}

func TestTwoSpheresElasticCollision(t *testing.T) {
	e := newTestEngine(t)
	e.SetGravity(NoGravity{})
	e.SetMaterials(NewMaterialTable(Material{Density: 1, NormalElasticity: 1}))

	a, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
	a.SetMaterialID(1)
	a.SetPose(lin.NewT().SetVQ(lin.NewV3S(-2, 0, 0), lin.NewQI()))
	a.SetLinearVelocity(5, 0, 0)

	b, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
	b.SetMaterialID(1)
	b.SetPose(lin.NewT().SetVQ(lin.NewV3S(2, 0, 0), lin.NewQI()))

	hit := false
	e.OnPostCollision(func(x, y Body, pts []ContactPoint) { hit = true })

	for i := 0; i < 400; i++ {
		e.Step(1.0 / 100.0)
	}
	if !hit {
		t.Error("Expected the two spheres to collide")
	}
	// equal masses, elasticity 1, friction 0: the moving sphere stops and
	// the resting one carries the full velocity away.
	ax, _, _ := a.LinearVelocity()
	bx, _, _ := b.LinearVelocity()
	if math.Abs(ax) > 0.05 {
		t.Errorf("Expected sphere A to stop after the elastic exchange, got vx=%f", ax)
	}
	if math.Abs(bx-5) > 0.05 {
		t.Errorf("Expected sphere B to carry the full velocity, got vx=%f", bx)
	}
}

func TestRemoveBody(t *testing.T) {
	e := newTestEngine(t)
	b, _ := e.AddBody(NewSphere(1), Dynamic, 1)
	if len(e.Bodies()) != 1 {
		t.Fatalf("Expected 1 body, got %d", len(e.Bodies()))
	}
	e.RemoveBody(b)
	if len(e.Bodies()) != 0 {
		t.Errorf("Expected 0 bodies after removal, got %d", len(e.Bodies()))
	}
}

func TestVerifyCleanEngine(t *testing.T) {
	e := newTestEngine(t)
	e.AddBody(NewSphere(1), Dynamic, 1)
	if err := e.Verify(); err != nil {
		t.Fatalf("Expected a fresh engine to verify clean, got %v", err)
	}
}

func TestVerifyCatchesNegativeInverseMass(t *testing.T) {
	e := newTestEngine(t)
	b, _ := e.AddBody(NewSphere(1), Dynamic, 1)
	b.(*body).imass = -1
	if err := e.Verify(); err == nil {
		t.Error("Expected Verify to report a negative inverse mass")
	}
}

// flatTerrain is a TerrainCollider over an infinite horizontal plane at
// height Y, used to exercise Engine.collideTerrain without needing a
// heightfield implementation.
type flatTerrain struct {
	Y float64
}

func (f flatTerrain) CollideSphere(cx, cy, cz, radius float64) (px, py, pz, nx, ny, nz, depth float64, materialID int, found bool) {
	depth = f.Y + radius - cy
	if depth <= 0 {
		return 0, 0, 0, 0, 0, 0, 0, 0, false
	}
	return cx, f.Y, cz, 0, 1, 0, depth, 0, true
}

func TestBodyRestsOnTerrain(t *testing.T) {
	e := newTestEngine(t)
	e.SetTerrain(flatTerrain{Y: 0})
	ball, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
	ball.SetPose(lin.NewT().SetVQ(lin.NewV3S(0, 2, 0), lin.NewQI()))

	for i := 0; i < 600; i++ {
		e.Step(1.0 / 100.0)
	}
	if math.Abs(ball.Pose().Loc.Y-0.5) > 0.1 {
		t.Errorf("Expected ball to settle near y=0.5 on terrain, got y=%f", ball.Pose().Loc.Y)
	}
}

// TestSleepThenWake covers spec scenario 6: a sphere resting on a plane for
// long enough sleeps, and a lateral impulse wakes it and sends it moving in
// the impulse's direction.
func TestSleepThenWake(t *testing.T) {
	e := newTestEngine(t)
	e.SetTerrain(flatTerrain{Y: 0})
	ball, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
	ball.SetPose(lin.NewT().SetVQ(lin.NewV3S(0, 0.6, 0), lin.NewQI()))

	for i := 0; i < 300; i++ { // 3s at dt=1/100, well past the sleep-after-idle window.
		e.Step(1.0 / 100.0)
	}
	if !ball.Sleeping() {
		t.Fatal("Expected the ball to fall asleep once resting on terrain")
	}

	ball.ApplyWorldImpulse(5, 0, 0)
	if ball.Sleeping() {
		t.Fatal("Expected an applied impulse to wake the body immediately")
	}
	for i := 0; i < 20; i++ {
		e.Step(1.0 / 100.0)
	}
	x, _, _ := ball.LinearVelocity()
	if x <= 0 {
		t.Errorf("Expected the woken ball to move in the impulse direction, vx=%f", x)
	}
}

// TestBoxStackSettles covers the two-cube stacking scenario: a cube resting
// on a static slab, a second cube dropped from just above it. After two
// simulated seconds both cubes are at their stacked rest heights and
// moving slower than 0.05 m/s.
func TestBoxStackSettles(t *testing.T) {
	e := newTestEngine(t)
	e.SetMaterials(NewMaterialTable(Material{Density: 1, StaticFriction: 0.5, DynamicFriction: 0.5}))

	ground, _ := e.AddBody(NewPlane(0, 1, 0), Static, 1) // infinite floor at y=1.
	ground.SetMaterialID(1)
	ground.SetPose(lin.NewT().SetVQ(lin.NewV3S(0, 1, 0), lin.NewQI()))
	bottom, _ := e.AddBody(NewBox(0.5, 0.5, 0.5), Dynamic, 1)
	bottom.SetMaterialID(1)
	bottom.SetPose(lin.NewT().SetVQ(lin.NewV3S(0, 1.5, 0), lin.NewQI()))
	top, _ := e.AddBody(NewBox(0.5, 0.5, 0.5), Dynamic, 1)
	top.SetMaterialID(1)
	top.SetPose(lin.NewT().SetVQ(lin.NewV3S(0, 2.6, 0), lin.NewQI()))

	for i := 0; i < 200; i++ {
		e.Step(1.0 / 100.0)
	}
	if y := bottom.Pose().Loc.Y; math.Abs(y-1.5) > 0.06 {
		t.Errorf("Expected the bottom cube at rest near y=1.5, got y=%f", y)
	}
	if y := top.Pose().Loc.Y; math.Abs(y-2.5) > 0.06 {
		t.Errorf("Expected the top cube at rest near y=2.5, got y=%f", y)
	}
	for _, b := range []Body{bottom, top} {
		x, y, z := b.LinearVelocity()
		if speed := math.Sqrt(x*x + y*y + z*z); speed > 0.05 {
			t.Errorf("Expected cube %d at rest after 2s, speed %f", b.ID(), speed)
		}
	}
}

// TestSphereSlidesDownIncline covers the frictionless-incline scenario: a
// sphere on a static 30 degree triangle with zero friction and elasticity
// slides down the slope. After one second it must be moving downhill
// (-x) faster than 1 m/s along x, with no drift across the slope (z).
func TestSphereSlidesDownIncline(t *testing.T) {
	e := newTestEngine(t)
	e.SetMaterials(NewMaterialTable(Material{Density: 1}))

	slope := math.Tan(lin.Rad(30))
	tri, _ := e.AddBody(NewTriangle(
		lin.NewV3S(-10, -10*slope, 0),
		lin.NewV3S(10, 10*slope, 10),
		lin.NewV3S(10, 10*slope, -10)), Static, 1)
	tri.SetMaterialID(1)

	ball, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
	ball.SetMaterialID(1)
	// start on the surface at x=2: surface point plus half a unit along
	// the plane normal (-sin30, cos30, 0).
	sin30, cos30 := 0.5, math.Cos(lin.Rad(30))
	ball.SetPose(lin.NewT().SetVQ(lin.NewV3S(2-0.5*sin30, 2*slope+0.5*cos30, 0), lin.NewQI()))

	for i := 0; i < 100; i++ {
		e.Step(1.0 / 100.0)
	}
	x, _, z := ball.LinearVelocity()
	if x >= -1 {
		t.Errorf("Expected the sphere to slide downhill (-x), got vx=%f", x)
	}
	if math.Abs(z) > 0.01 {
		t.Errorf("Expected no cross-slope drift, got vz=%f", z)
	}
}

// TestStepDeterminism replays an identical scene in two engines and
// expects bit-identical poses: iteration orders are fixed by registration
// order and the active overlap list, never by map order.
func TestStepDeterminism(t *testing.T) {
	run := func() []float64 {
		e := newTestEngine(t)
		e.AddBody(NewBox(10, 1, 10), Static, 1)
		var out []float64
		for i := 0; i < 4; i++ {
			b, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
			b.SetPose(lin.NewT().SetVQ(lin.NewV3S(float64(i)*0.4, 2+float64(i), 0), lin.NewQI()))
		}
		for i := 0; i < 300; i++ {
			e.Step(1.0 / 100.0)
		}
		for _, b := range e.Bodies() {
			loc := b.Pose().Loc
			out = append(out, loc.X, loc.Y, loc.Z)
		}
		return out
	}
	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Expected identical replays, coordinate %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

// TestStepConsumesWholeTicks checks the fixed-step accumulator: elapsed
// time is consumed in exact FixedStep ticks, unlimited when MaxSubSteps is
// zero, and dropped once a bounded Step falls too far behind.
func TestStepConsumesWholeTicks(t *testing.T) {
	settings := DefaultSettings()
	settings.FixedStep = 0.01
	settings.MaxSubSteps = 0
	e, err := NewEngine(settings)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.Step(0.055)
	if got := e.Diagnostics().Ticks; got != 5 {
		t.Errorf("Expected 5 ticks from 55ms at 10ms steps, got %d", got)
	}

	settings.MaxSubSteps = 2
	e, _ = NewEngine(settings)
	e.Step(0.055)
	if got := e.Diagnostics().Ticks; got != 2 {
		t.Errorf("Expected the 2 sub-step bound to cap the backlog, got %d", got)
	}
	e.Step(0.005) // remainder was dropped, not carried.
	if got := e.Diagnostics().Ticks; got != 2 {
		t.Errorf("Expected the dropped backlog to stay dropped, got %d ticks", got)
	}
}

func TestPreCollisionFilterSkipsPair(t *testing.T) {
	e := newTestEngine(t)
	e.SetGravity(NoGravity{})
	a, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
	a.SetPose(lin.NewT().SetVQ(lin.NewV3S(-0.4, 0, 0), lin.NewQI()))
	a.SetLinearVelocity(1, 0, 0)
	b, _ := e.AddBody(NewSphere(0.5), Dynamic, 1)
	b.SetPose(lin.NewT().SetVQ(lin.NewV3S(0.4, 0, 0), lin.NewQI()))

	e.OnPreCollision(func(x, y Body) bool { return false })
	for i := 0; i < 50; i++ {
		e.Step(1.0 / 100.0)
	}
	ax, _, _ := a.LinearVelocity()
	if !lin.Aeq(ax, 1) {
		t.Errorf("Expected filtered pair to pass through unaffected, vx=%f", ax)
	}
}
