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
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Calculations returns a function that concurrently runs a series of
// calculations on all of the grid cells. Worker goroutines stride
// across the cell array; each calculator only writes its own cell, so
// no locking is needed inside the stage.
func Calculations(calculators ...CellManipulator) DomainManipulator {

	nprocs := runtime.GOMAXPROCS(0) // number of processors
	var wg sync.WaitGroup

	return func(d *LatFlow) error {
		n := d.topo.Nx * d.topo.Ny
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				for ii := pp; ii < n; ii += nprocs {
					x, y := ii%d.topo.Nx, ii/d.topo.Nx
					for _, f := range calculators {
						f(d, x, y)
					}
				}
				wg.Done()
			}(pp)
		}
		wg.Wait()
		return nil
	}
}

// SimulationStatus holds information about the progress of a
// simulation for logging purposes.
type SimulationStatus struct {
	// Step is the number of completed timesteps.
	Step int

	// Mass is the total fluid mass in the domain.
	Mass float64

	// MaxSpeed is the largest velocity magnitude in the domain
	// [lattice units per step].
	MaxSpeed float64

	// Walltime is the elapsed time since the run started.
	Walltime time.Duration

	// StepTime is the elapsed time since the previous step finished.
	StepTime time.Duration
}

func (s *SimulationStatus) String() string {
	return fmt.Sprintf("Step %-6d  walltime=%6.3gs  Δwalltime=%4.2gms  mass=%.6g  umax=%.4g",
		s.Step, s.Walltime.Seconds(), float64(s.StepTime.Nanoseconds())/1e6,
		s.Mass, s.MaxSpeed)
}

// Log returns a function that sends simulation status information to
// c after every step.
func Log(c chan *SimulationStatus) DomainManipulator {
	startTime := time.Now()
	stepTime := time.Now()

	return func(d *LatFlow) error {
		s := &SimulationStatus{
			Step:     d.step,
			Mass:     d.Mass(),
			Walltime: time.Since(startTime),
			StepTime: time.Since(stepTime),
		}
		for i, v := range d.uy.Elements {
			if sp := math.Hypot(d.ux.Elements[i], v); sp > s.MaxSpeed {
				s.MaxSpeed = sp
			}
		}
		c <- s
		stepTime = time.Now()
		return nil
	}
}

// StabilityCheck returns a function that verifies, after every step,
// that the lattice is still in its stable regime: every non-wall cell
// must have finite positive density and a velocity magnitude below
// MaxLatticeSpeed. On failure it returns a *DivergenceError for the
// first offending cell. If c is non-nil the error is also sent there
// before returning.
func StabilityCheck(c chan *DivergenceError) DomainManipulator {
	return func(d *LatFlow) error {
		for y := 0; y < d.topo.Ny; y++ {
			for x := 0; x < d.topo.Nx; x++ {
				if d.topo.TypeAt(x, y) == Wall {
					continue
				}
				n := d.topo.index(x, y)
				rho := d.rho.Elements[n]
				speed := math.Hypot(d.ux.Elements[n], d.uy.Elements[n])
				if rho <= 0 || math.IsNaN(rho) || math.IsInf(rho, 0) ||
					math.IsNaN(speed) || speed > MaxLatticeSpeed {
					err := &DivergenceError{Step: d.step, X: x, Y: y, Rho: rho, Speed: speed}
					if c != nil {
						c <- err
					}
					return err
				}
			}
		}
		return nil
	}
}

// ConvergenceStatus holds the result of a steady-state convergence
// check.
type ConvergenceStatus struct {
	Step int

	// Delta is the relative change in domain kinetic energy since the
	// previous check.
	Delta float64

	Converged bool
}

func (c ConvergenceStatus) String() string {
	return fmt.Sprintf("Step %d: kinetic energy changed %3.2g%% since last check",
		c.Step, c.Delta*100)
}

// SteadyStateConvergenceCheck returns a function that decides whether
// the simulation is finished and sets the Done flag if it is. If
// steps > 0, the simulation finishes after that many steps. Otherwise
// it finishes when the relative change in domain kinetic energy over
// a check period drops below a fixed tolerance. If c is non-nil,
// check results are sent there.
func SteadyStateConvergenceCheck(steps int, c chan ConvergenceStatus) DomainManipulator {

	const tolerance = 1.e-6
	const checkPeriod = 100 // steps between convergence checks

	oldEnergy := math.Inf(1)
	sinceCheck := 0

	return func(d *LatFlow) error {
		if steps > 0 {
			if d.step >= steps {
				d.Done = true
			}
			return nil
		}
		sinceCheck++
		if sinceCheck < checkPeriod {
			return nil
		}
		sinceCheck = 0
		energy := floats.Dot(d.ux.Elements, d.ux.Elements) +
			floats.Dot(d.uy.Elements, d.uy.Elements)
		delta := math.Abs(energy-oldEnergy) / math.Max(energy, 1e-300)
		oldEnergy = energy
		status := ConvergenceStatus{Step: d.step, Delta: delta,
			Converged: delta < tolerance && !math.IsInf(delta, 0)}
		if c != nil {
			c <- status
		}
		if status.Converged {
			d.Done = true
		}
		return nil
	}
}

// RunPeriodically returns a function that runs f every interval
// steps.
func RunPeriodically(interval int, f DomainManipulator) DomainManipulator {
	sinceLast := 0
	return func(d *LatFlow) error {
		sinceLast++
		if sinceLast >= interval {
			sinceLast = 0
			return f(d)
		}
		return nil
	}
}
