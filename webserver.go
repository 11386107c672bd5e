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
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"

	"github.com/ctessum/sparse"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// fieldGrid adapts a DenseArray with shape (Ny, Nx) to the grid
// interface the heatmap plotter expects.
type fieldGrid struct {
	data *sparse.DenseArray
}

func (g fieldGrid) Dims() (c, r int)   { return g.data.Shape[1], g.data.Shape[0] }
func (g fieldGrid) Z(c, r int) float64 { return g.data.Get(r, c) }
func (g fieldGrid) X(c int) float64    { return float64(c) }
func (g fieldGrid) Y(r int) float64    { return float64(r) }

// WebServer returns an HTTP handler exposing the state of the
// simulation for monitoring:
//
//	/status        JSON summary (state, step, mass, peak speed)
//	/plot/rho      density heatmap PNG
//	/plot/speed    velocity magnitude heatmap PNG
//	/plot/conc     concentration heatmap PNG
//
// Requests observe the simulation between completed timesteps; they
// never see a half-applied step.
func (d *LatFlow) WebServer() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", d.statusHandler)
	mux.HandleFunc("/plot/", d.plotHandler)
	return mux
}

func (d *LatFlow) statusHandler(w http.ResponseWriter, r *http.Request) {
	rho, ux, uy, _ := d.Snapshot()
	var mass, maxSpeed float64
	for i, v := range rho.Elements {
		mass += v
		if s := math.Hypot(ux.Elements[i], uy.Elements[i]); s > maxSpeed {
			maxSpeed = s
		}
	}
	status := struct {
		State    string  `json:"state"`
		Step     int     `json:"step"`
		Mass     float64 `json:"mass"`
		MaxSpeed float64 `json:"max_speed"`
		Tracers  int     `json:"tracers,omitempty"`
	}{
		State:    d.State().String(),
		Step:     d.Step(),
		Mass:     mass,
		MaxSpeed: maxSpeed,
	}
	if t := d.Tracers(); t != nil {
		status.Tracers = len(t.Active)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (d *LatFlow) plotHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/plot/")
	rho, ux, uy, conc := d.Snapshot()

	var data *sparse.DenseArray
	switch name {
	case "rho":
		data = rho
	case "speed":
		data = rho.Copy()
		for i := range data.Elements {
			data.Elements[i] = math.Hypot(ux.Elements[i], uy.Elements[i])
		}
	case "conc":
		if conc == nil {
			http.Error(w, "latflow: the concentration field is disabled", http.StatusNotFound)
			return
		}
		data = conc
	default:
		http.Error(w, fmt.Sprintf("latflow: no plot named %q; try rho, speed, or conc", name),
			http.StatusNotFound)
		return
	}

	p, err := plot.New()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	p.Title.Text = name
	p.X.Label.Text = "x [cells]"
	p.Y.Label.Text = "y [cells]"
	h := plotter.NewHeatMap(fieldGrid{data}, palette.Heat(12, 1))
	p.Add(h)

	w.Header().Set("Content-Type", "image/png")
	wt, err := p.WriterTo(5*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if _, err := wt.WriteTo(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HTMLUI returns an init function that serves the monitoring
// interface at address. If address is "", the server doesn't run.
func HTMLUI(address string) DomainManipulator {
	return func(d *LatFlow) error {
		if address != "" {
			go func() {
				if err := http.ListenAndServe(address, d.WebServer()); err != nil {
					log.Printf("latflow: web server: %v", err)
				}
			}()
		}
		return nil
	}
}
