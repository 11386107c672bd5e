/*
Copyright © 2024 the LatFlow authors.
This file is part of LatFlow.

LatFlow is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

LatFlow is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with LatFlow.  If not, see <http://www.gnu.org/licenses/>.
*/

package latflow

import (
	"math"
	"testing"
)

const testTolerance = 1.e-12

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func TestWeights(t *testing.T) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if different(sum, 1, testTolerance) {
		t.Errorf("weights sum to %g, want 1", sum)
	}
	var mx, my float64
	for i := 0; i < Q; i++ {
		mx += weights[i] * float64(cx[i])
		my += weights[i] * float64(cy[i])
	}
	if mx != 0 || my != 0 {
		t.Errorf("first weight moment is (%g,%g), want (0,0)", mx, my)
	}
}

func TestOpposite(t *testing.T) {
	for i := 0; i < Q; i++ {
		o := opposite[i]
		if opposite[o] != i {
			t.Errorf("opposite is not an involution at %d", i)
		}
		if cx[o] != -cx[i] || cy[o] != -cy[i] {
			t.Errorf("direction %d: opposite %d is (%d,%d), want (%d,%d)",
				i, o, cx[o], cy[o], -cx[i], -cy[i])
		}
		if weights[o] != weights[i] {
			t.Errorf("direction %d and its opposite have different weights", i)
		}
	}
}

func TestEquilibriumMoments(t *testing.T) {
	cases := []struct {
		rho, ux, uy float64
	}{
		{1, 0, 0},
		{1, 0.1, 0},
		{0.95, -0.05, 0.08},
		{1.2, 0.2, -0.15},
	}
	for _, c := range cases {
		var feq [Q]float64
		equilibrium(c.rho, c.ux, c.uy, &feq)
		var rho, mx, my float64
		for i := 0; i < Q; i++ {
			rho += feq[i]
			mx += feq[i] * float64(cx[i])
			my += feq[i] * float64(cy[i])
		}
		if different(rho, c.rho, 1.e-10) {
			t.Errorf("ρ=%g u=(%g,%g): equilibrium density %g, want %g",
				c.rho, c.ux, c.uy, rho, c.rho)
		}
		if math.Abs(mx-c.rho*c.ux) > 1.e-10 || math.Abs(my-c.rho*c.uy) > 1.e-10 {
			t.Errorf("ρ=%g u=(%g,%g): equilibrium momentum (%g,%g), want (%g,%g)",
				c.rho, c.ux, c.uy, mx, my, c.rho*c.ux, c.rho*c.uy)
		}
	}
}

func TestEquilibriumAtRest(t *testing.T) {
	var feq [Q]float64
	equilibrium(1, 0, 0, &feq)
	for i := 0; i < Q; i++ {
		if feq[i] != weights[i] {
			t.Errorf("rest equilibrium %d is %g, want the weight %g", i, feq[i], weights[i])
		}
	}
}
