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

import "fmt"

// InvalidParameterError indicates a configuration value that cannot
// produce a valid simulation. It is returned before any stepping
// occurs.
type InvalidParameterError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("latflow: invalid parameter %s=%g: %s", e.Param, e.Value, e.Reason)
}

// InvalidMapError indicates a malformed topology map. Line is the
// 1-based line number in the map file where the problem was found, or
// 0 if the problem is not tied to a single line.
type InvalidMapError struct {
	Line   int
	Reason string
}

func (e *InvalidMapError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("latflow: invalid map (line %d): %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("latflow: invalid map: %s", e.Reason)
}

// DivergenceError indicates that the end-of-step stability check
// failed: the density became non-positive or not-a-number, or the
// velocity magnitude exceeded the lattice stability bound, at cell
// (X, Y) during step Step. The fields from the previous completed step
// remain valid for inspection; the run is not recoverable.
type DivergenceError struct {
	Step  int
	X, Y  int
	Rho   float64
	Speed float64
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("latflow: simulation diverged at step %d, cell (%d,%d): ρ=%g |u|=%g",
		e.Step, e.X, e.Y, e.Rho, e.Speed)
}
