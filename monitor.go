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
	"fmt"
	"math"

	"github.com/GaryBoone/GoStats/stats"
)

// Probe accumulates running statistics of the flow at a single cell.
type Probe struct {
	X, Y int

	// Ux, Uy, and Speed hold running statistics of the velocity
	// components and magnitude sampled once per step.
	Ux, Uy, Speed stats.Stats
}

func (p *Probe) String() string {
	return fmt.Sprintf("probe (%d,%d): n=%d  ux=%.4g±%.2g  uy=%.4g±%.2g",
		p.X, p.Y, p.Ux.Count(),
		p.Ux.Mean(), p.Ux.SampleStandardDeviation(),
		p.Uy.Mean(), p.Uy.SampleStandardDeviation())
}

// NewProbe creates a probe at cell (x, y). The returned probe is
// inert until its Sample function is added to the simulation RunFuncs.
func NewProbe(x, y int) *Probe {
	return &Probe{X: x, Y: y}
}

// Sample returns a function that updates the probe statistics from
// the current velocity field, once per step.
func (p *Probe) Sample() DomainManipulator {
	return func(d *LatFlow) error {
		if p.X < 0 || p.X >= d.topo.Nx || p.Y < 0 || p.Y >= d.topo.Ny {
			return &InvalidParameterError{Param: "Probe", Value: float64(p.X),
				Reason: fmt.Sprintf("probe cell (%d,%d) is outside the %d×%d domain",
					p.X, p.Y, d.topo.Nx, d.topo.Ny)}
		}
		ux, uy := d.VelocityAt(p.X, p.Y)
		p.Ux.Update(ux)
		p.Uy.Update(uy)
		p.Speed.Update(math.Hypot(ux, uy))
		return nil
	}
}
