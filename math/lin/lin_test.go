// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import (
	"math"
	"testing"
)

func TestAeq(t *testing.T) {
	if !Aeq(1.0, 1.0000001) {
		t.Error("Expected values a hair apart to compare equal")
	}
	if Aeq(1.0, 1.1) {
		t.Error("Expected clearly different values to compare unequal")
	}
}

func TestAeqZ(t *testing.T) {
	if !AeqZ(0.0000001) || !AeqZ(-0.0000001) {
		t.Error("Expected values near zero to compare as zero")
	}
	if AeqZ(0.01) {
		t.Error("Expected a clearly non-zero value to compare as non-zero")
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-1, 0, 1); got != 0 {
		t.Errorf("Expected clamp to the lower bound, got %f", got)
	}
	if got := Clamp(2, 0, 1); got != 1 {
		t.Errorf("Expected clamp to the upper bound, got %f", got)
	}
	if got := Clamp(0.5, 0, 1); got != 0.5 {
		t.Errorf("Expected an in-range value untouched, got %f", got)
	}
}

func TestRad(t *testing.T) {
	if got := Rad(180); !Aeq(got, math.Pi) {
		t.Errorf("Expected 180 degrees to be pi radians, got %f", got)
	}
	if got := Rad(90); !Aeq(got, HalfPi) {
		t.Errorf("Expected 90 degrees to be half pi radians, got %f", got)
	}
}
