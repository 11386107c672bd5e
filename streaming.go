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

// Stream returns a function that performs the streaming step: every
// population moves one cell along its velocity vector. Propagation
// pulls from the source cell with wraparound addressing into a second
// buffer, so the update is an exact permutation of the populations and
// conserves mass to the bit. The wraparound is inert in practice
// because the border ring is always closed; walls return anything that
// reaches them in the following boundary stage.
func Stream() DomainManipulator {

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup

	return func(d *LatFlow) error {
		nx, ny := d.topo.Nx, d.topo.Ny
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				for y := pp; y < ny; y += nprocs {
					for x := 0; x < nx; x++ {
						dst := d.topo.index(x, y) * Q
						for i := 0; i < Q; i++ {
							sx := (x - cx[i] + nx) % nx
							sy := (y - cy[i] + ny) % ny
							d.fNext[dst+i] = d.f[d.topo.index(sx, sy)*Q+i]
						}
					}
				}
				wg.Done()
			}(pp)
		}
		wg.Wait()
		d.f, d.fNext = d.fNext, d.f
		return nil
	}
}
