package latflow

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/ctessum/sparse"
)

// savedState is the gob representation of a checkpoint.
type savedState struct {
	Nx, Ny int
	Types  []CellType

	Config Config
	Step   int

	F        []float64
	Conc     []float64
	Absorbed float64

	TracerActive  []Tracer
	TracerHits    map[int]int
	TracerRemoved int
	TracerSpawned int
}

// Save returns a function that saves the simulation state to a gob
// stream (format description at https://golang.org/pkg/encoding/gob/).
// Saving between Run calls or from a cleanup function is safe; saving
// from inside a running step is not.
func Save(w io.Writer) DomainManipulator {
	return func(d *LatFlow) error {
		s := savedState{
			Nx:       d.topo.Nx,
			Ny:       d.topo.Ny,
			Types:    d.topo.types,
			Config:   d.cfg,
			Step:     d.step,
			F:        d.f,
			Absorbed: d.absorbed,
		}
		if d.conc != nil {
			s.Conc = d.conc.Elements
		}
		if d.tracers != nil {
			s.TracerActive = d.tracers.Active
			s.TracerHits = d.tracers.SinkHits
			s.TracerRemoved = d.tracers.Removed
			s.TracerSpawned = d.tracers.Spawned
		}
		if err := gob.NewEncoder(w).Encode(s); err != nil {
			return fmt.Errorf("latflow: saving checkpoint: %v", err)
		}
		return nil
	}
}

// Load returns an init function that restores the state from a
// previously Saved checkpoint. It replaces InitState in the InitFuncs
// of the simulation being restored.
func Load(r io.Reader) DomainManipulator {
	return func(d *LatFlow) error {
		var s savedState
		if err := gob.NewDecoder(r).Decode(&s); err != nil {
			return fmt.Errorf("latflow: loading checkpoint: %v", err)
		}
		topo, err := NewTopology(s.Nx, s.Ny, s.Types)
		if err != nil {
			return err
		}
		if err := s.Config.Check(); err != nil {
			return err
		}
		if len(s.F) != s.Nx*s.Ny*Q {
			return fmt.Errorf("latflow: checkpoint has %d populations for a %d×%d grid",
				len(s.F), s.Nx, s.Ny)
		}
		d.topo = topo
		d.cfg = s.Config
		d.step = s.Step
		d.f = s.F
		d.fNext = make([]float64, len(s.F))
		d.absorbed = s.Absorbed
		d.rho = sparse.ZerosDense(s.Ny, s.Nx)
		d.ux = sparse.ZerosDense(s.Ny, s.Nx)
		d.uy = sparse.ZerosDense(s.Ny, s.Nx)
		d.refreshMoments()
		if s.Config.Scalar {
			d.conc = sparse.ZerosDense(s.Ny, s.Nx)
			d.concNext = sparse.ZerosDense(s.Ny, s.Nx)
			if s.Conc != nil {
				copy(d.conc.Elements, s.Conc)
			}
		}
		if s.Config.Particles {
			d.tracers = newTracerField(s.Config.SpawnEvery, s.Config.SpawnCount)
			d.tracers.Active = s.TracerActive
			if s.TracerHits != nil {
				d.tracers.SinkHits = s.TracerHits
			}
			d.tracers.Removed = s.TracerRemoved
			d.tracers.Spawned = s.TracerSpawned
		}
		return nil
	}
}

// refreshMoments recomputes the macroscopic fields from the
// populations of every non-wall cell.
func (d *LatFlow) refreshMoments() {
	for y := 0; y < d.topo.Ny; y++ {
		for x := 0; x < d.topo.Nx; x++ {
			if d.topo.TypeAt(x, y) == Wall {
				continue
			}
			n := d.topo.index(x, y)
			f := d.f[n*Q : (n+1)*Q]
			var rho, mx, my float64
			for i := 0; i < Q; i++ {
				rho += f[i]
				mx += f[i] * float64(cx[i])
				my += f[i] * float64(cy[i])
			}
			d.rho.Elements[n] = rho
			if rho != 0 {
				d.ux.Elements[n] = mx / rho
				d.uy.Elements[n] = my / rho
			}
		}
	}
}
