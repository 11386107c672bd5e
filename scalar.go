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
	"runtime"
	"sync"
)

// neighborConc returns the concentration at (x+dx, y+dy), falling
// back to the concentration at (x, y) when the neighbor is a wall or
// out of range. The fallback makes walls zero-gradient so no
// contaminant fluxes into them.
func (d *LatFlow) neighborConc(x, y, dx, dy int) float64 {
	nx, ny := x+dx, y+dy
	if nx < 0 || nx >= d.topo.Nx || ny < 0 || ny >= d.topo.Ny ||
		d.topo.TypeAt(nx, ny) == Wall {
		return d.conc.Elements[d.topo.index(x, y)]
	}
	return d.conc.Elements[d.topo.index(nx, ny)]
}

// ScalarTransport returns a function that advances the contaminant
// concentration field by one step: first-order upwind advection by the
// local fluid velocity plus explicit diffusion, then the source and
// sink corrections. Infected cells gain SourceRate per step up to
// CMax; susceptible cells absorb everything that reaches them and
// are reset to zero after their uptake is recorded; inlet cells supply
// contaminant-free fluid. The stage is a no-op when the scalar field
// is disabled.
func ScalarTransport() DomainManipulator {

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup

	return func(d *LatFlow) error {
		if d.conc == nil {
			return nil
		}
		nx, ny := d.topo.Nx, d.topo.Ny
		diff := d.cfg.ScalarDiffusivity
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				for y := pp; y < ny; y += nprocs {
					for x := 0; x < nx; x++ {
						n := d.topo.index(x, y)
						if d.topo.TypeAt(x, y) == Wall {
							d.concNext.Elements[n] = 0
							continue
						}
						c := d.conc.Elements[n]
						ux, uy := d.ux.Elements[n], d.uy.Elements[n]

						// Upwind differences in the flow direction.
						var dcdx, dcdy float64
						if ux > 0 {
							dcdx = c - d.neighborConc(x, y, -1, 0)
						} else {
							dcdx = d.neighborConc(x, y, 1, 0) - c
						}
						if uy > 0 {
							dcdy = c - d.neighborConc(x, y, 0, -1)
						} else {
							dcdy = d.neighborConc(x, y, 0, 1) - c
						}

						lap := d.neighborConc(x, y, 1, 0) + d.neighborConc(x, y, -1, 0) +
							d.neighborConc(x, y, 0, 1) + d.neighborConc(x, y, 0, -1) - 4*c

						v := c - ux*dcdx - uy*dcdy + diff*lap
						if v < 0 {
							v = 0
						} else if v > d.cfg.CMax {
							v = d.cfg.CMax
						}
						d.concNext.Elements[n] = v
					}
				}
				wg.Done()
			}(pp)
		}
		wg.Wait()
		d.conc, d.concNext = d.concNext, d.conc

		for _, n := range d.topo.Sources() {
			v := d.conc.Elements[n] + d.cfg.SourceRate
			if v > d.cfg.CMax {
				v = d.cfg.CMax
			}
			d.conc.Elements[n] = v
		}
		for _, n := range d.topo.Sinks() {
			d.absorbed += d.conc.Elements[n]
			d.conc.Elements[n] = 0
		}
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				if d.topo.TypeAt(x, y) == Inlet {
					d.conc.Elements[d.topo.index(x, y)] = 0
				}
			}
		}
		return nil
	}
}

// Absorbed reports the cumulative contaminant mass removed at
// susceptible cells since the start of the run.
func (d *LatFlow) Absorbed() float64 { return d.absorbed }
