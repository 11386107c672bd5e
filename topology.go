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
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
)

// CellType classifies a grid cell. The classification is fixed for the
// lifetime of a simulation once the map has been loaded.
type CellType uint8

const (
	// Air cells evolve purely by bulk physics.
	Air CellType = iota
	// Wall cells are no-slip solids enforced by full bounce-back.
	Wall
	// Inlet cells hold a prescribed velocity.
	Inlet
	// Outlet cells are open boundaries that let mass and momentum
	// leave without reflection.
	Outlet
	// Infected cells behave as Air for the airflow but act as constant
	// contaminant sources.
	Infected
	// Susceptible cells behave as Air for the airflow but absorb all
	// contaminant that reaches them.
	Susceptible

	numCellTypes
)

func (t CellType) String() string {
	switch t {
	case Air:
		return "air"
	case Wall:
		return "wall"
	case Inlet:
		return "inlet"
	case Outlet:
		return "outlet"
	case Infected:
		return "infected"
	case Susceptible:
		return "susceptible"
	}
	return fmt.Sprintf("CellType(%d)", int(t))
}

// Topology is the read-only cell classification of the model domain.
type Topology struct {
	Nx, Ny int

	types []CellType

	// outletFrom maps each outlet cell to the interior cell its
	// populations are extrapolated from.
	outletFrom map[int]int

	infected    []int // cell indices of contaminant sources
	susceptible []int // cell indices of contaminant sinks
}

// index returns the flat cell index for (x, y). Streaming uses
// wraparound addressing, which is inert because the border ring is
// always closed (no Air cells on the border), so callers must pass
// in-range coordinates.
func (t *Topology) index(x, y int) int { return y*t.Nx + x }

// TypeAt returns the cell type at (x, y).
func (t *Topology) TypeAt(x, y int) CellType { return t.types[y*t.Nx+x] }

// Count returns the number of cells of the given type.
func (t *Topology) Count(ct CellType) int {
	n := 0
	for _, v := range t.types {
		if v == ct {
			n++
		}
	}
	return n
}

// Sources returns the flat indices of the Infected cells.
func (t *Topology) Sources() []int { return t.infected }

// Sinks returns the flat indices of the Susceptible cells.
func (t *Topology) Sinks() []int { return t.susceptible }

// NewTopology creates a Topology from a cell-type array laid out in
// row-major order (index = y*nx + x). Border cells that are Air are
// closed to Wall; this is the edge policy for maps that do not
// classify their own borders. It returns an InvalidMapError if the
// dimensions do not match the array or an outlet cell has no interior
// neighbor to extrapolate from.
func NewTopology(nx, ny int, types []CellType) (*Topology, error) {
	if nx <= 0 || ny <= 0 {
		return nil, &InvalidMapError{Reason: fmt.Sprintf("non-positive dimensions %d×%d", nx, ny)}
	}
	if len(types) != nx*ny {
		return nil, &InvalidMapError{Reason: fmt.Sprintf(
			"cell array has %d entries for a %d×%d grid", len(types), nx, ny)}
	}
	t := &Topology{Nx: nx, Ny: ny, types: types}
	for x := 0; x < nx; x++ {
		t.closeBorder(x, 0)
		t.closeBorder(x, ny-1)
	}
	for y := 0; y < ny; y++ {
		t.closeBorder(0, y)
		t.closeBorder(nx-1, y)
	}
	if err := t.finalize(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Topology) closeBorder(x, y int) {
	if t.types[t.index(x, y)] == Air {
		t.types[t.index(x, y)] = Wall
	}
}

// finalize records source and sink cells and resolves, for every
// outlet cell, the interior neighbor used for zero-gradient
// extrapolation.
func (t *Topology) finalize() error {
	t.outletFrom = make(map[int]int)
	for y := 0; y < t.Ny; y++ {
		for x := 0; x < t.Nx; x++ {
			n := t.index(x, y)
			switch t.types[n] {
			case Infected:
				t.infected = append(t.infected, n)
			case Susceptible:
				t.susceptible = append(t.susceptible, n)
			case Outlet:
				from, ok := t.interiorNeighbor(x, y)
				if !ok {
					return &InvalidMapError{Reason: fmt.Sprintf(
						"outlet cell (%d,%d) has no adjacent interior cell", x, y)}
				}
				t.outletFrom[n] = from
			}
		}
	}
	return nil
}

// interiorNeighbor finds a 4-neighbor of (x, y) whose populations
// evolve by bulk physics.
func (t *Topology) interiorNeighbor(x, y int) (int, bool) {
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		nx, ny := x+d[0], y+d[1]
		if nx < 0 || nx >= t.Nx || ny < 0 || ny >= t.Ny {
			continue
		}
		switch t.TypeAt(nx, ny) {
		case Air, Infected, Susceptible:
			return t.index(nx, ny), true
		}
	}
	return 0, false
}

// ReadMap parses a topology map. The first line holds the width and
// height separated by a comma; each following line holds one row of
// cell-type digits (0=air 1=wall 2=inlet 3=outlet 4=infected
// 5=susceptible). The first data row is the top of the domain
// (y = height−1), matching the orientation map editors produce.
func ReadMap(r io.Reader) (*Topology, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, &InvalidMapError{Line: 1, Reason: "missing dimension header"}
	}
	dims := strings.Split(strings.TrimSpace(scanner.Text()), ",")
	if len(dims) != 2 {
		return nil, &InvalidMapError{Line: 1, Reason: "header must be 'width,height'"}
	}
	nx, errX := strconv.Atoi(strings.TrimSpace(dims[0]))
	ny, errY := strconv.Atoi(strings.TrimSpace(dims[1]))
	if errX != nil || errY != nil || nx <= 0 || ny <= 0 {
		return nil, &InvalidMapError{Line: 1, Reason: "header must hold two positive integers"}
	}

	types := make([]CellType, nx*ny)
	line := 1
	rows := 0
	for scanner.Scan() {
		line++
		row := strings.TrimSpace(scanner.Text())
		if row == "" {
			continue
		}
		if rows >= ny {
			return nil, &InvalidMapError{Line: line, Reason: fmt.Sprintf("more than %d rows", ny)}
		}
		if len(row) != nx {
			return nil, &InvalidMapError{Line: line, Reason: fmt.Sprintf(
				"row has %d cells, want %d", len(row), nx)}
		}
		y := ny - 1 - rows
		for x := 0; x < nx; x++ {
			c := row[x]
			if c < '0' || c >= '0'+byte(numCellTypes) {
				return nil, &InvalidMapError{Line: line, Reason: fmt.Sprintf(
					"unknown cell symbol %q", c)}
			}
			types[y*nx+x] = CellType(c - '0')
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, &InvalidMapError{Line: line, Reason: err.Error()}
	}
	if rows != ny {
		return nil, &InvalidMapError{Line: line, Reason: fmt.Sprintf("got %d rows, want %d", rows, ny)}
	}
	return NewTopology(nx, ny, types)
}

// MapFromFile loads a topology map from the local disk.
func MapFromFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("latflow: problem opening map file: %v", err)
	}
	defer f.Close()
	return ReadMap(f)
}

// MapFromURL retrieves a topology map over HTTP, retrying with
// exponential backoff on transient failure.
func MapFromURL(url string) (*Topology, error) {
	var body []byte
	err := backoff.RetryNotify(
		func() error {
			resp, err := http.Get(url)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("latflow: downloading map %s: %s", url, resp.Status)
			}
			body, err = ioutil.ReadAll(resp.Body)
			return err
		},
		backoff.NewExponentialBackOff(),
		func(err error, d time.Duration) {
			log.Printf("%v: retrying in %v", err, d)
		},
	)
	if err != nil {
		return nil, err
	}
	return ReadMap(strings.NewReader(string(body)))
}
