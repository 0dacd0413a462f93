// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"fmt"

	"github.com/solve3d/rigid/math/lin"
)

// Testing
// ============================================================================
// Utility functions for all package testcases.

func dumpT(t *lin.T) string   { return dumpV3(t.Loc) + dumpQ(t.Rot) }
func dumpQ(q *lin.Q) string   { return fmt.Sprintf("%2.1f", *q) }
func dumpV3(v *lin.V3) string { return fmt.Sprintf("%2.1f", *v) }
func dumpM3(m *lin.M3) string {
	format := "[%+2.1f, %+2.1f, %+2.1f]\n"
	str := fmt.Sprintf(format, m.Xx, m.Xy, m.Xz)
	str += fmt.Sprintf(format, m.Yx, m.Yy, m.Yz)
	str += fmt.Sprintf(format, m.Zx, m.Zy, m.Zz)
	return str
}
