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

// Package latflow implements a two-dimensional lattice-Boltzmann
// (D2Q9, BGK) airflow model with solid, inlet, and outlet boundaries
// and an optional contaminant concentration field that is released at
// source cells and removed at sink cells.
package latflow

// Q is the number of discrete velocities in the D2Q9 set.
const Q = 9

// The D2Q9 velocity set: the rest vector, the four axis vectors, and
// the four diagonals, in that order. The ordering matches the weight
// and opposite-direction tables below and must not be changed
// independently of them.
var (
	cx = [Q]int{0, 1, 0, -1, 0, 1, -1, -1, 1}
	cy = [Q]int{0, 0, 1, 0, -1, 1, 1, -1, -1}

	// Quadrature weights; they sum to 1.
	weights = [Q]float64{
		4. / 9.,
		1. / 9., 1. / 9., 1. / 9., 1. / 9.,
		1. / 36., 1. / 36., 1. / 36., 1. / 36.,
	}

	// opposite[i] is the index of the direction -c_i.
	opposite = [Q]int{0, 3, 4, 1, 2, 7, 8, 5, 6}
)

const (
	// cssq is the square of the lattice speed of sound.
	cssq = 1. / 3.

	// MaxLatticeSpeed is the velocity magnitude [lattice units per
	// step] above which the D2Q9/BGK scheme is considered to have left
	// its stable regime. It equals the lattice speed of sound; flows
	// should stay well below it.
	MaxLatticeSpeed = 0.5773502691896258
)

// equilibrium fills feq with the Maxwell-Boltzmann equilibrium
// populations for the given density and velocity:
//
//	f_i^eq = w_i ρ (1 + 3 c_i·u + 4.5 (c_i·u)² − 1.5 |u|²)
func equilibrium(rho, ux, uy float64, feq *[Q]float64) {
	usq := ux*ux + uy*uy
	for i := 0; i < Q; i++ {
		cu := float64(cx[i])*ux + float64(cy[i])*uy
		feq[i] = weights[i] * rho * (1 + 3*cu + 4.5*cu*cu - 1.5*usq)
	}
}
