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
	"math/rand"
)

// Tracer is a massless Lagrangian particle carried by the flow.
// Positions are in cell units with (0, 0) at the center of the
// bottom-left cell.
type Tracer struct {
	X, Y float64
}

// TracerField holds the tracer particles of a simulation and the
// bookkeeping of where they ended up.
type TracerField struct {
	// Active holds the particles currently in the domain.
	Active []Tracer

	// SinkHits counts, per susceptible cell (keyed by flat cell
	// index), the particles absorbed there.
	SinkHits map[int]int

	// Removed counts the particles that left through outlets.
	Removed int

	// Spawned counts all particles released so far.
	Spawned int

	spawnEvery, spawnCount int
	rng                    *rand.Rand
}

func newTracerField(spawnEvery, spawnCount int) *TracerField {
	return &TracerField{
		SinkHits:   make(map[int]int),
		spawnEvery: spawnEvery,
		spawnCount: spawnCount,
		// Fixed seed so runs with identical inputs reproduce.
		rng: rand.New(rand.NewSource(1)),
	}
}

// interpVelocity bilinearly interpolates the velocity field at the
// continuous position (px, py).
func (d *LatFlow) interpVelocity(px, py float64) (ux, uy float64) {
	x0 := int(math.Floor(px))
	y0 := int(math.Floor(py))
	fx := px - float64(x0)
	fy := py - float64(y0)

	clampX := func(x int) int {
		if x < 0 {
			return 0
		}
		if x >= d.topo.Nx {
			return d.topo.Nx - 1
		}
		return x
	}
	clampY := func(y int) int {
		if y < 0 {
			return 0
		}
		if y >= d.topo.Ny {
			return d.topo.Ny - 1
		}
		return y
	}
	x1, y1 := clampX(x0+1), clampY(y0+1)
	x0, y0 = clampX(x0), clampY(y0)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	n00 := d.topo.index(x0, y0)
	n10 := d.topo.index(x1, y0)
	n01 := d.topo.index(x0, y1)
	n11 := d.topo.index(x1, y1)

	ux = w00*d.ux.Elements[n00] + w10*d.ux.Elements[n10] +
		w01*d.ux.Elements[n01] + w11*d.ux.Elements[n11]
	uy = w00*d.uy.Elements[n00] + w10*d.uy.Elements[n10] +
		w01*d.uy.Elements[n01] + w11*d.uy.Elements[n11]
	return ux, uy
}

// MoveParticles returns a function that releases tracers at infected
// cells on the configured cadence and advects all active tracers by
// the bilinearly interpolated fluid velocity. A tracer reaching a
// susceptible cell is absorbed and counted against that cell; one
// reaching an outlet is removed from the domain. Tracers never enter
// walls: a move that would end inside one is canceled. The stage is a
// no-op when tracers are disabled.
func MoveParticles() DomainManipulator {
	return func(d *LatFlow) error {
		t := d.tracers
		if t == nil {
			return nil
		}

		if d.step%t.spawnEvery == 0 {
			for _, n := range d.topo.Sources() {
				x := n % d.topo.Nx
				y := n / d.topo.Nx
				for k := 0; k < t.spawnCount; k++ {
					t.Active = append(t.Active, Tracer{
						X: float64(x) + t.rng.Float64() - 0.5,
						Y: float64(y) + t.rng.Float64() - 0.5,
					})
					t.Spawned++
				}
			}
		}

		keep := t.Active[:0]
		for _, p := range t.Active {
			ux, uy := d.interpVelocity(p.X, p.Y)
			nx := p.X + ux
			ny := p.Y + uy

			// Clamp to the domain.
			nx = math.Max(0, math.Min(float64(d.topo.Nx-1), nx))
			ny = math.Max(0, math.Min(float64(d.topo.Ny-1), ny))

			cellX := int(math.Round(nx))
			cellY := int(math.Round(ny))
			switch d.topo.TypeAt(cellX, cellY) {
			case Wall:
				keep = append(keep, p)
			case Susceptible:
				t.SinkHits[d.topo.index(cellX, cellY)]++
			case Outlet:
				t.Removed++
			default:
				keep = append(keep, Tracer{X: nx, Y: ny})
			}
		}
		t.Active = keep
		return nil
	}
}
