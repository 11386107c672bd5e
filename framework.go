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
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Version gives the version number.
const Version = "1.0.0"

// State is the lifecycle state of a simulation.
type State int

const (
	// Uninitialized means Init has not yet run.
	Uninitialized State = iota
	// Initialized means the grid and fields are loaded and seeded.
	Initialized
	// Running means the simulation is stepping.
	Running
	// Stopped is the terminal state reached by exhausting the step
	// budget, converging, or an external stop.
	Stopped
	// Diverged is the terminal failure state entered when the
	// stability check fails.
	Diverged
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Diverged:
		return "diverged"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config holds the physical and numerical parameters of a run.
type Config struct {
	// Tau is the BGK relaxation time [lattice units]. Values at or
	// below 0.5 are unconditionally unstable and are rejected.
	Tau float64

	// InletUx and InletUy are the prescribed inlet velocity
	// [lattice units per step].
	InletUx, InletUy float64

	// Steps is the iteration budget. If 0, the run continues until
	// the flow field reaches steady state.
	Steps int

	// Scalar enables the contaminant concentration field.
	Scalar bool
	// ScalarDiffusivity is the contaminant diffusion coefficient
	// [lattice units]. The explicit scheme requires values below 0.25.
	ScalarDiffusivity float64
	// SourceRate is the concentration added at each infected cell per
	// step.
	SourceRate float64
	// CMax caps the concentration in any cell.
	CMax float64

	// Particles enables Lagrangian tracer particles.
	Particles bool
	// SpawnEvery is the number of steps between tracer releases.
	SpawnEvery int
	// SpawnCount is the number of tracers released per source each
	// time.
	SpawnCount int
}

// Check validates the configuration, returning an
// InvalidParameterError for values that cannot produce a stable run.
func (c Config) Check() error {
	if c.Tau <= 0.5 {
		return &InvalidParameterError{Param: "Tau", Value: c.Tau,
			Reason: "relaxation times at or below 0.5 are unconditionally unstable"}
	}
	if s := math.Hypot(c.InletUx, c.InletUy); s >= MaxLatticeSpeed {
		return &InvalidParameterError{Param: "InletVelocity", Value: s,
			Reason: fmt.Sprintf("inlet speed must stay below the lattice speed of sound (%.4g)", MaxLatticeSpeed)}
	}
	if c.Steps < 0 {
		return &InvalidParameterError{Param: "Steps", Value: float64(c.Steps),
			Reason: "the step budget cannot be negative; use 0 to run to steady state"}
	}
	if c.Scalar {
		if c.ScalarDiffusivity < 0 || c.ScalarDiffusivity >= 0.25 {
			return &InvalidParameterError{Param: "ScalarDiffusivity", Value: c.ScalarDiffusivity,
				Reason: "explicit diffusion requires 0 ≤ D < 0.25"}
		}
		if c.CMax <= 0 {
			return &InvalidParameterError{Param: "CMax", Value: c.CMax,
				Reason: "concentration cap must be positive"}
		}
		if c.SourceRate < 0 || c.SourceRate > c.CMax {
			return &InvalidParameterError{Param: "SourceRate", Value: c.SourceRate,
				Reason: "source rate must be within [0, CMax]"}
		}
	}
	if c.Particles && c.SpawnEvery <= 0 {
		return &InvalidParameterError{Param: "SpawnEvery", Value: float64(c.SpawnEvery),
			Reason: "tracer spawn cadence must be positive"}
	}
	return nil
}

// TauFromReynolds derives the relaxation time for a flow with
// characteristic length l [cells], characteristic speed u
// [lattice units per step], and Reynolds number re:
//
//	ν = u·l/Re,  τ = ν/c_s² + 1/2
func TauFromReynolds(re, u float64, l int) float64 {
	nu := u * float64(l) / re
	return nu/cssq + 0.5
}

// DomainManipulator is a function that operates on the whole model
// domain, one call per timestep.
type DomainManipulator func(d *LatFlow) error

// CellManipulator is a function that operates on the single cell
// (x, y). CellManipulators are run concurrently across cells by
// Calculations and must only write state belonging to their own cell.
type CellManipulator func(d *LatFlow, x, y int)

// LatFlow is the simulation state holder. A simulation is assembled
// from functions that initialize it, step it, and clean up after it,
// which are run in order by Init, Run, and Cleanup.
type LatFlow struct {
	InitFuncs    []DomainManipulator
	RunFuncs     []DomainManipulator
	CleanupFuncs []DomainManipulator

	// Done signals that Run should stop at the end of the current
	// step. It is set by the convergence and budget checks.
	Done bool

	topo *Topology
	cfg  Config

	// f holds the distribution populations, laid out cell-major
	// (index = (y·Nx+x)·Q + i). fNext is the streaming destination
	// buffer; the two are swapped after every streaming stage.
	f, fNext []float64

	// Macroscopic moments, refreshed during collision. Shape (Ny, Nx)
	// so that the flat element index matches Topology.index.
	rho, ux, uy *sparse.DenseArray

	// Contaminant concentration and its double buffer; nil when the
	// scalar field is disabled.
	conc, concNext *sparse.DenseArray

	// absorbed is the cumulative contaminant mass removed at
	// susceptible cells.
	absorbed float64

	tracers *TracerField

	state State
	step  int

	// mx guards the field buffers: held for writing during a step,
	// for reading by external observers between steps.
	mx sync.RWMutex
}

// NewSimulation assembles a simulation with the default stage
// sequence: collide, stream, enforce boundaries, transport the
// contaminant, move tracers, then check stability and progress.
// Callers needing custom stages can build a LatFlow literal instead.
func NewSimulation(topo *Topology, cfg Config) *LatFlow {
	d := new(LatFlow)
	d.InitFuncs = []DomainManipulator{InitState(topo, cfg)}
	d.RunFuncs = DefaultStages(cfg)
	return d
}

// DefaultStages returns the standard per-step function sequence for
// the given configuration.
func DefaultStages(cfg Config) []DomainManipulator {
	return []DomainManipulator{
		Calculations(Collide()),
		Stream(),
		Calculations(EnforceBoundaries()),
		ScalarTransport(),
		MoveParticles(),
		AdvanceStep(),
		StabilityCheck(nil),
		SteadyStateConvergenceCheck(cfg.Steps, nil),
	}
}

// InitState returns a function that attaches the topology and
// configuration to the simulation and seeds every cell with the
// uniform equilibrium rest state (ρ=1, u=0).
func InitState(topo *Topology, cfg Config) DomainManipulator {
	return InitStateFlow(topo, cfg, 0, 0)
}

// InitStateFlow is InitState with a uniform initial velocity instead
// of the rest state.
func InitStateFlow(topo *Topology, cfg Config, ux, uy float64) DomainManipulator {
	return func(d *LatFlow) error {
		if err := cfg.Check(); err != nil {
			return err
		}
		if math.Hypot(ux, uy) >= MaxLatticeSpeed {
			return &InvalidParameterError{Param: "InitVelocity", Value: math.Hypot(ux, uy),
				Reason: "initial speed must stay below the lattice speed of sound"}
		}
		d.topo = topo
		d.cfg = cfg
		n := topo.Nx * topo.Ny
		d.f = make([]float64, n*Q)
		d.fNext = make([]float64, n*Q)
		d.rho = sparse.ZerosDense(topo.Ny, topo.Nx)
		d.ux = sparse.ZerosDense(topo.Ny, topo.Nx)
		d.uy = sparse.ZerosDense(topo.Ny, topo.Nx)

		var feq [Q]float64
		equilibrium(1, ux, uy, &feq)
		for c := 0; c < n; c++ {
			copy(d.f[c*Q:(c+1)*Q], feq[:])
			d.rho.Elements[c] = 1
			d.ux.Elements[c] = ux
			d.uy.Elements[c] = uy
		}
		if cfg.Scalar {
			d.conc = sparse.ZerosDense(topo.Ny, topo.Nx)
			d.concNext = sparse.ZerosDense(topo.Ny, topo.Nx)
		}
		if cfg.Particles {
			d.tracers = newTracerField(cfg.SpawnEvery, cfg.SpawnCount)
		}
		return nil
	}
}

// Init initializes the simulation by running the InitFuncs in order.
func (d *LatFlow) Init() error {
	if d.state != Uninitialized {
		return fmt.Errorf("latflow: Init called on a %s simulation", d.state)
	}
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	if d.topo == nil {
		return fmt.Errorf("latflow: no init function attached a topology; use InitState")
	}
	d.state = Initialized
	return nil
}

// Run steps the simulation by running the RunFuncs in order, once per
// timestep, until Done is set, the context is canceled, or the
// stability check fails. Cancellation is honored only at timestep
// boundaries, so a completed step is never partially applied. If the
// run diverges, the state becomes Diverged and the returned error is a
// *DivergenceError identifying the step and cell.
func (d *LatFlow) Run(ctx context.Context) error {
	if d.state != Initialized {
		return fmt.Errorf("latflow: Run called on a %s simulation", d.state)
	}
	d.state = Running
	for !d.Done {
		if err := ctx.Err(); err != nil {
			d.state = Stopped
			return err
		}
		d.mx.Lock()
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				d.mx.Unlock()
				var div *DivergenceError
				if errors.As(err, &div) {
					d.state = Diverged
				} else {
					d.state = Stopped
				}
				return err
			}
		}
		d.mx.Unlock()
	}
	d.state = Stopped
	return nil
}

// Cleanup finishes the simulation by running the CleanupFuncs in
// order.
func (d *LatFlow) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceStep returns a function that increments the step counter. It
// belongs after the physics stages and before the end-of-step checks.
func AdvanceStep() DomainManipulator {
	return func(d *LatFlow) error {
		d.step++
		return nil
	}
}

// State reports the lifecycle state.
func (d *LatFlow) State() State { return d.state }

// Step reports the number of completed timesteps.
func (d *LatFlow) Step() int { return d.step }

// Topology returns the cell classification of the domain.
func (d *LatFlow) Topology() *Topology { return d.topo }

// Config returns the run configuration.
func (d *LatFlow) Config() Config { return d.cfg }

// Tracers returns the tracer particle field, or nil if tracers are
// disabled.
func (d *LatFlow) Tracers() *TracerField { return d.tracers }

// Snapshot returns copies of the macroscopic fields: density,
// x-velocity, y-velocity, and concentration (nil when the scalar
// field is disabled). It must not be called from inside a stage
// function; external observers get a view of the state between
// completed steps.
func (d *LatFlow) Snapshot() (rho, ux, uy, conc *sparse.DenseArray) {
	d.mx.RLock()
	defer d.mx.RUnlock()
	rho = d.rho.Copy()
	ux = d.ux.Copy()
	uy = d.uy.Copy()
	if d.conc != nil {
		conc = d.conc.Copy()
	}
	return rho, ux, uy, conc
}

// Mass returns the total mass Σf over all cells and directions.
func (d *LatFlow) Mass() float64 {
	return floats.Sum(d.f)
}

// Concentration returns the contaminant concentration at (x, y), or 0
// if the scalar field is disabled.
func (d *LatFlow) Concentration(x, y int) float64 {
	if d.conc == nil {
		return 0
	}
	return d.conc.Elements[d.topo.index(x, y)]
}

// VelocityAt returns the velocity most recently computed at (x, y).
func (d *LatFlow) VelocityAt(x, y int) (ux, uy float64) {
	n := d.topo.index(x, y)
	return d.ux.Elements[n], d.uy.Elements[n]
}

// DensityAt returns the density most recently computed at (x, y).
func (d *LatFlow) DensityAt(x, y int) float64 {
	return d.rho.Elements[d.topo.index(x, y)]
}
