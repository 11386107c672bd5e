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
	"testing"
)

// closedBox returns an n×n topology of air surrounded by walls.
func closedBox(t *testing.T, n int) *Topology {
	t.Helper()
	topo, err := NewTopology(n, n, make([]CellType, n*n))
	if err != nil {
		t.Fatal(err)
	}
	return topo
}

func TestConfigCheck(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{Tau: 0.6}, true},
		{"tau too small", Config{Tau: 0.5}, false},
		{"negative tau", Config{Tau: -1}, false},
		{"inlet too fast", Config{Tau: 0.6, InletUx: 0.6}, false},
		{"diagonal inlet too fast", Config{Tau: 0.6, InletUx: 0.45, InletUy: 0.45}, false},
		{"negative step budget", Config{Tau: 0.6, Steps: -5}, false},
		{"valid scalar", Config{Tau: 0.6, Scalar: true, ScalarDiffusivity: 0.05, SourceRate: 0.1, CMax: 1}, true},
		{"diffusivity too large", Config{Tau: 0.6, Scalar: true, ScalarDiffusivity: 0.3, SourceRate: 0.1, CMax: 1}, false},
		{"zero cmax", Config{Tau: 0.6, Scalar: true, ScalarDiffusivity: 0.05, SourceRate: 0.1}, false},
		{"source above cmax", Config{Tau: 0.6, Scalar: true, ScalarDiffusivity: 0.05, SourceRate: 2, CMax: 1}, false},
		{"particles without cadence", Config{Tau: 0.6, Particles: true}, false},
		{"valid particles", Config{Tau: 0.6, Particles: true, SpawnEvery: 10, SpawnCount: 1}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Check()
			if c.ok && err != nil {
				t.Errorf("want no error, got %v", err)
			}
			if !c.ok {
				if err == nil {
					t.Fatal("want an error, got nil")
				}
				if _, isParam := err.(*InvalidParameterError); !isParam {
					t.Errorf("want *InvalidParameterError, got %T", err)
				}
			}
		})
	}
}

func TestTauFromReynolds(t *testing.T) {
	// ν = 0.2·50/100 = 0.1, τ = 0.1·3 + 0.5 = 0.8.
	if tau := TauFromReynolds(100, 0.2, 50); different(tau, 0.8, testTolerance) {
		t.Errorf("got τ=%g, want 0.8", tau)
	}
}

func TestLifecycle(t *testing.T) {
	d := NewSimulation(closedBox(t, 8), Config{Tau: 0.8, Steps: 3})
	if d.State() != Uninitialized {
		t.Fatalf("new simulation is %v, want uninitialized", d.State())
	}
	if err := d.Run(context.Background()); err == nil {
		t.Fatal("Run before Init should fail")
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if d.State() != Initialized {
		t.Fatalf("after Init the state is %v, want initialized", d.State())
	}
	if err := d.Init(); err == nil {
		t.Fatal("double Init should fail")
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.State() != Stopped {
		t.Errorf("after Run the state is %v, want stopped", d.State())
	}
	if d.Step() != 3 {
		t.Errorf("completed %d steps, want 3", d.Step())
	}
	if err := d.Cleanup(); err != nil {
		t.Fatal(err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	d := NewSimulation(closedBox(t, 8), Config{Tau: 0.8, Steps: 1000000})
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != context.Canceled {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if d.State() != Stopped {
		t.Errorf("after cancellation the state is %v, want stopped", d.State())
	}
}

func TestInitRejectsBadConfig(t *testing.T) {
	d := NewSimulation(closedBox(t, 8), Config{Tau: 0.4, Steps: 1})
	if err := d.Init(); err == nil {
		t.Fatal("Init with τ=0.4 should fail")
	}
	if d.State() != Uninitialized {
		t.Errorf("failed Init left the state %v, want uninitialized", d.State())
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		Uninitialized: "uninitialized",
		Initialized:   "initialized",
		Running:       "running",
		Stopped:       "stopped",
		Diverged:      "diverged",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("State(%d).String() = %q, want %q", int(s), s, w)
		}
	}
}
