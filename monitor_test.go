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
	"math"
	"testing"
)

func TestProbeSample(t *testing.T) {
	d := NewSimulation(closedBox(t, 8), Config{Tau: 0.7, Steps: 1})
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	n := d.topo.index(3, 3)
	p := NewProbe(3, 3)
	sample := p.Sample()

	d.ux.Elements[n], d.uy.Elements[n] = 0.1, 0
	if err := sample(d); err != nil {
		t.Fatal(err)
	}
	d.ux.Elements[n], d.uy.Elements[n] = 0.3, 0.4
	if err := sample(d); err != nil {
		t.Fatal(err)
	}

	if p.Ux.Count() != 2 {
		t.Fatalf("probe has %d samples, want 2", p.Ux.Count())
	}
	if different(p.Ux.Mean(), 0.2, testTolerance) {
		t.Errorf("mean x-velocity is %g, want 0.2", p.Ux.Mean())
	}
	if different(p.Uy.Mean(), 0.2, testTolerance) {
		t.Errorf("mean y-velocity is %g, want 0.2", p.Uy.Mean())
	}
	wantSpeed := (0.1 + math.Hypot(0.3, 0.4)) / 2
	if different(p.Speed.Mean(), wantSpeed, testTolerance) {
		t.Errorf("mean speed is %g, want %g", p.Speed.Mean(), wantSpeed)
	}
}

func TestProbeOutsideDomain(t *testing.T) {
	d := NewSimulation(closedBox(t, 8), Config{Tau: 0.7, Steps: 1})
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := NewProbe(99, 0).Sample()(d); err == nil {
		t.Error("want an error for a probe outside the domain, got nil")
	}
}
