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

// EnforceBoundaries returns a function that corrects the populations
// of one boundary cell after streaming.
//
// Wall cells perform full bounce-back: each population that streamed
// in is reflected into its opposite direction, so the next streaming
// step returns it to the fluid and the wall ends up exchanging no net
// mass. The effective no-slip surface sits halfway between the wall
// cell and its fluid neighbor.
//
// Inlet cells are overwritten with the equilibrium populations at
// unit density and the configured inlet velocity. The cavity lid uses
// the same mechanism with a tangential velocity.
//
// Outlet cells copy all populations from their interior neighbor,
// which gives a zero-gradient open boundary: whatever arrives may
// leave without reflection. Mass is not conserved across outlets.
//
// Infected and Susceptible cells carry ordinary fluid and are left
// alone here; they only matter to the contaminant field.
func EnforceBoundaries() CellManipulator {
	return func(d *LatFlow, x, y int) {
		n := d.topo.index(x, y)
		switch d.topo.TypeAt(x, y) {
		case Wall:
			f := d.f[n*Q : (n+1)*Q]
			// Swapping the four opposite pairs reflects every incoming
			// population; the rest population is its own opposite.
			f[1], f[3] = f[3], f[1]
			f[2], f[4] = f[4], f[2]
			f[5], f[7] = f[7], f[5]
			f[6], f[8] = f[8], f[6]
			d.rho.Elements[n] = 0
			d.ux.Elements[n] = 0
			d.uy.Elements[n] = 0
		case Inlet:
			var feq [Q]float64
			equilibrium(1, d.cfg.InletUx, d.cfg.InletUy, &feq)
			copy(d.f[n*Q:(n+1)*Q], feq[:])
			d.rho.Elements[n] = 1
			d.ux.Elements[n] = d.cfg.InletUx
			d.uy.Elements[n] = d.cfg.InletUy
		case Outlet:
			from := d.topo.outletFrom[n]
			copy(d.f[n*Q:(n+1)*Q], d.f[from*Q:(from+1)*Q])
			d.rho.Elements[n] = d.rho.Elements[from]
			d.ux.Elements[n] = d.ux.Elements[from]
			d.uy.Elements[n] = d.uy.Elements[from]
		}
	}
}
