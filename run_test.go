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
	"math"
	"testing"
)

// TestRestFixedPoint checks that a closed box of still fluid stays
// still: the uniform rest equilibrium is a fixed point of the update.
func TestRestFixedPoint(t *testing.T) {
	d := NewSimulation(closedBox(t, 16), Config{Tau: 0.7, Steps: 10})
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	massBefore := d.Mass()
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	for y := 1; y < 15; y++ {
		for x := 1; x < 15; x++ {
			if rho := d.DensityAt(x, y); different(rho, 1, testTolerance) {
				t.Fatalf("cell (%d,%d): density %g, want 1", x, y, rho)
			}
			if ux, uy := d.VelocityAt(x, y); math.Abs(ux) > testTolerance || math.Abs(uy) > testTolerance {
				t.Fatalf("cell (%d,%d): velocity (%g,%g), want rest", x, y, ux, uy)
			}
		}
	}
	if different(d.Mass(), massBefore, testTolerance) {
		t.Errorf("mass changed from %g to %g", massBefore, d.Mass())
	}
}

// TestMassConservation checks that a closed box conserves mass while
// an initial flow sloshes around in it.
func TestMassConservation(t *testing.T) {
	topo := closedBox(t, 32)
	cfg := Config{Tau: 0.6, Steps: 200}
	d := new(LatFlow)
	d.InitFuncs = []DomainManipulator{InitStateFlow(topo, cfg, 0.05, 0.02)}
	d.RunFuncs = DefaultStages(cfg)
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	massBefore := d.Mass()
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if different(d.Mass(), massBefore, 1.e-9) {
		t.Errorf("mass changed from %.15g to %.15g", massBefore, d.Mass())
	}
}

func TestStabilityCheckDetectsDivergence(t *testing.T) {
	d := NewSimulation(closedBox(t, 8), Config{Tau: 0.7, Steps: 5})
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}

	// Inject an unphysical population at an interior cell.
	n := d.topo.index(3, 3)
	d.f[n*Q+1] = math.NaN()

	err := d.Run(context.Background())
	if err == nil {
		t.Fatal("want a divergence error, got nil")
	}
	div, ok := err.(*DivergenceError)
	if !ok {
		t.Fatalf("want *DivergenceError, got %T: %v", err, err)
	}
	if div.X != 3 || div.Y != 3 {
		t.Errorf("divergence reported at (%d,%d), want (3,3)", div.X, div.Y)
	}
	if d.State() != Diverged {
		t.Errorf("state is %v, want diverged", d.State())
	}
}

func TestSteadyStateConvergence(t *testing.T) {
	// With no stirring, a box of still fluid converges as soon as the
	// check period elapses.
	d := NewSimulation(closedBox(t, 8), Config{Tau: 0.7})
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.State() != Stopped {
		t.Fatalf("state is %v, want stopped", d.State())
	}
	if d.Step() < 100 || d.Step() > 300 {
		t.Errorf("converged after %d steps, want within a few check periods", d.Step())
	}
}

func TestRunPeriodically(t *testing.T) {
	calls := 0
	f := RunPeriodically(3, func(d *LatFlow) error {
		calls++
		return nil
	})
	for i := 0; i < 10; i++ {
		if err := f(nil); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 3 {
		t.Errorf("got %d calls over 10 steps with interval 3, want 3", calls)
	}
}

func TestLogReportsStatus(t *testing.T) {
	c := make(chan *SimulationStatus, 16)
	d := NewSimulation(closedBox(t, 8), Config{Tau: 0.7, Steps: 3})
	d.RunFuncs = append(d.RunFuncs, Log(c))
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(c)
	var got []*SimulationStatus
	for s := range c {
		got = append(got, s)
	}
	if len(got) != 3 {
		t.Fatalf("got %d status messages, want 3", len(got))
	}
	last := got[len(got)-1]
	if last.Step != 3 {
		t.Errorf("last status step is %d, want 3", last.Step)
	}
	if different(last.Mass, 64, testTolerance) {
		t.Errorf("last status mass is %g, want 64", last.Mass)
	}
	if last.String() == "" {
		t.Error("status String is empty")
	}
}
