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
	"os"
	"path/filepath"
	"testing"
)

func TestNewScaling(t *testing.T) {
	sc := NewScaling(100, 0.2, 50)
	if different(sc.Nu, 0.1, testTolerance) {
		t.Errorf("viscosity is %g, want 0.1", sc.Nu)
	}
	if different(sc.Tau, 0.8, testTolerance) {
		t.Errorf("relaxation time is %g, want 0.8", sc.Tau)
	}
}

func TestCavity(t *testing.T) {
	scen, err := Cavity(16, 100, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	topo := scen.Topo
	if topo.Nx != 16 || topo.Ny != 16 {
		t.Fatalf("cavity grid is %d×%d, want 16×16", topo.Nx, topo.Ny)
	}
	inlets := 0
	for x := 0; x < 16; x++ {
		if topo.TypeAt(x, 15) == Inlet {
			inlets++
		}
	}
	if inlets != 14 {
		t.Errorf("lid has %d inlet cells, want 14", inlets)
	}
	if topo.TypeAt(0, 15) != Wall || topo.TypeAt(15, 15) != Wall {
		t.Error("lid corners should stay walls")
	}
	want := TauFromReynolds(100, 0.1, 16)
	if different(scen.Config.Tau, want, testTolerance) {
		t.Errorf("relaxation time is %g, want %g", scen.Config.Tau, want)
	}
	if scen.Config.InletUx != 0.1 || scen.Config.InletUy != 0 {
		t.Errorf("lid velocity is (%g,%g), want (0.1,0)",
			scen.Config.InletUx, scen.Config.InletUy)
	}
}

func TestCavityTooSmall(t *testing.T) {
	if _, err := Cavity(3, 100, 0.1); err == nil {
		t.Error("want an error for a 3×3 cavity, got nil")
	}
}

func TestChannel(t *testing.T) {
	scen, err := Channel(32, 16, 100, 0.1, 3)
	if err != nil {
		t.Fatal(err)
	}
	topo := scen.Topo
	inlets, outlets := 0, 0
	for y := 0; y < 16; y++ {
		if topo.TypeAt(0, y) == Inlet {
			inlets++
		}
		if topo.TypeAt(31, y) == Outlet {
			outlets++
		}
	}
	if inlets != 14 || outlets != 14 {
		t.Errorf("channel faces have %d inlets and %d outlets, want 14 each", inlets, outlets)
	}
	// Obstacle centered at (nx/5, ny/2).
	if topo.TypeAt(6, 8) != Wall {
		t.Error("obstacle center (6,8) is not a wall")
	}
	if topo.TypeAt(6, 8+3) != Wall || topo.TypeAt(6, 8-3) != Wall {
		t.Error("obstacle rim is not a wall")
	}
	if topo.TypeAt(6, 8+4) == Wall {
		t.Error("wall outside the obstacle radius")
	}
}

func TestChannelObstacleTooBig(t *testing.T) {
	if _, err := Channel(32, 16, 100, 0.1, 8); err == nil {
		t.Error("want an error for an obstacle spanning the channel, got nil")
	}
}

func TestFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room.toml")
	scenario := `
Name = "room"
MapPath = "testdata/room.map"
Reynolds = 100.0
ULattice = 0.1
Length = 6
InletUx = 0.05
Steps = 20
Scalar = true
ScalarDiffusivity = 0.05
SourceRate = 0.1
CMax = 1.0
`
	if err := os.WriteFile(path, []byte(scenario), 0o644); err != nil {
		t.Fatal(err)
	}
	scen, err := FromTOML(path)
	if err != nil {
		t.Fatal(err)
	}
	if scen.Name != "room" {
		t.Errorf("scenario name is %q, want room", scen.Name)
	}
	if scen.Topo.Nx != 8 || scen.Topo.Ny != 6 {
		t.Errorf("map is %d×%d, want 8×6", scen.Topo.Nx, scen.Topo.Ny)
	}
	want := NewScaling(100, 0.1, 6).Tau
	if different(scen.Config.Tau, want, testTolerance) {
		t.Errorf("relaxation time is %g, want %g", scen.Config.Tau, want)
	}
	if scen.Config.Steps != 20 || !scen.Config.Scalar {
		t.Errorf("config not carried over: %+v", scen.Config)
	}
}

func TestFromTOMLErrors(t *testing.T) {
	tests := []struct {
		name     string
		scenario string
	}{
		{"tau and reynolds", "Tau = 0.6\nReynolds = 100.0\nLength = 6\nMapPath = \"testdata/room.map\"\n"},
		{"reynolds without length", "Reynolds = 100.0\nULattice = 0.1\nMapPath = \"testdata/room.map\"\n"},
		{"no map", "Tau = 0.6\n"},
		{"unstable tau", "Tau = 0.4\nMapPath = \"testdata/room.map\"\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			if err := os.WriteFile(path, []byte(test.scenario), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := FromTOML(path); err == nil {
				t.Error("want an error, got nil")
			}
		})
	}
}
