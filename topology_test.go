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
	"strings"
	"testing"
)

func TestMapFromFile(t *testing.T) {
	topo, err := MapFromFile("testdata/room.map")
	if err != nil {
		t.Fatal(err)
	}
	if topo.Nx != 8 || topo.Ny != 6 {
		t.Fatalf("got %d×%d, want 8×6", topo.Nx, topo.Ny)
	}

	// The first data row is the top of the domain.
	if ct := topo.TypeAt(3, 1); ct != Infected {
		t.Errorf("cell (3,1) is %v, want infected", ct)
	}
	if ct := topo.TypeAt(5, 2); ct != Susceptible {
		t.Errorf("cell (5,2) is %v, want susceptible", ct)
	}
	if ct := topo.TypeAt(6, 4); ct != Outlet {
		t.Errorf("cell (6,4) is %v, want outlet", ct)
	}
	if ct := topo.TypeAt(1, 3); ct != Inlet {
		t.Errorf("cell (1,3) is %v, want inlet", ct)
	}

	wantCounts := map[CellType]int{
		Air: 18, Wall: 24, Inlet: 2, Outlet: 2, Infected: 1, Susceptible: 1,
	}
	for ct, want := range wantCounts {
		if got := topo.Count(ct); got != want {
			t.Errorf("%v count is %d, want %d", ct, got, want)
		}
	}
	if len(topo.Sources()) != 1 || len(topo.Sinks()) != 1 {
		t.Errorf("got %d sources and %d sinks, want 1 and 1",
			len(topo.Sources()), len(topo.Sinks()))
	}
}

func TestReadMapErrors(t *testing.T) {
	cases := []struct {
		name, data string
	}{
		{"empty", ""},
		{"bad header", "eight,6\n"},
		{"negative dims", "-3,4\n"},
		{"short row", "3,3\n111\n11\n111\n"},
		{"bad symbol", "3,3\n111\n191\n111\n"},
		{"missing rows", "3,3\n111\n111\n"},
		{"extra rows", "3,3\n111\n111\n111\n111\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ReadMap(strings.NewReader(c.data))
			if err == nil {
				t.Fatal("want an error, got nil")
			}
			if _, ok := err.(*InvalidMapError); !ok {
				t.Fatalf("want *InvalidMapError, got %T: %v", err, err)
			}
		})
	}
}

func TestBorderClosing(t *testing.T) {
	// A map of bare air gets a wall ring.
	topo, err := ReadMap(strings.NewReader("4,4\n0000\n0000\n0000\n0000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := topo.Count(Wall); got != 12 {
		t.Errorf("border closing produced %d walls, want 12", got)
	}
	if got := topo.Count(Air); got != 4 {
		t.Errorf("border closing left %d air cells, want 4", got)
	}
}

func TestOutletNeedsInteriorNeighbor(t *testing.T) {
	// The outlet is boxed in by walls on all four sides.
	_, err := ReadMap(strings.NewReader("5,5\n11111\n11111\n11311\n11111\n11111\n"))
	if err == nil {
		t.Fatal("want an error for a walled-in outlet, got nil")
	}
	if _, ok := err.(*InvalidMapError); !ok {
		t.Fatalf("want *InvalidMapError, got %T: %v", err, err)
	}
}

func TestNewTopologyDimensionMismatch(t *testing.T) {
	if _, err := NewTopology(3, 3, make([]CellType, 8)); err == nil {
		t.Error("want an error for a short cell array, got nil")
	}
	if _, err := NewTopology(0, 3, nil); err == nil {
		t.Error("want an error for zero width, got nil")
	}
}
