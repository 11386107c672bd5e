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

// Collide returns a function that performs the BGK collision step in
// one cell: it refreshes the macroscopic moments from the populations
// and relaxes the populations toward their equilibrium with rate 1/τ.
// Wall cells are skipped; boundary cells collide like fluid and are
// corrected afterward by EnforceBoundaries.
func Collide() CellManipulator {
	return func(d *LatFlow, x, y int) {
		if d.topo.TypeAt(x, y) == Wall {
			return
		}
		n := d.topo.index(x, y)
		f := d.f[n*Q : (n+1)*Q]

		var rho, mx, my float64
		for i := 0; i < Q; i++ {
			rho += f[i]
			mx += f[i] * float64(cx[i])
			my += f[i] * float64(cy[i])
		}
		ux, uy := mx/rho, my/rho
		d.rho.Elements[n] = rho
		d.ux.Elements[n] = ux
		d.uy.Elements[n] = uy

		omega := 1 / d.cfg.Tau
		var feq [Q]float64
		equilibrium(rho, ux, uy, &feq)
		for i := 0; i < Q; i++ {
			f[i] -= omega * (f[i] - feq[i])
		}
	}
}
