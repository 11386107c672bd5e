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
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
)

// modelVariables are the built-in per-cell variables available to
// output expressions.
var modelVariables = []string{"rho", "ux", "uy", "speed", "conc", "x", "y"}

// Outputter writes simulation results as CSV files.
//
// fileName is the path where output is saved; any occurrence of
// "[step]" in it is replaced by the current step number, which allows
// periodic frame output to separate files.
//
// outputVariables maps the names of the output columns to expressions
// defining how they are calculated from the built-in per-cell
// variables rho, ux, uy, speed, conc, x, and y.
//
// Functions usable in expressions are defined in outputFunctions.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	outputFunctions map[string]govaluate.ExpressionFunction
	exprs           map[string]*govaluate.EvaluableExpression
}

// NewOutputter initializes a new Outputter and adds a set of default
// output functions: 'exp(x)', 'sqrt(x)', 'abs(x)', 'min(x, y)', and
// 'max(x, y)'. Functions passed in outputFunctions are added to (and
// may shadow) the defaults.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("latflow: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"sqrt": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("latflow: got %d arguments for function 'sqrt', but needs 1", len(arg))
			}
			return math.Sqrt(arg[0].(float64)), nil
		},
		"abs": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("latflow: got %d arguments for function 'abs', but needs 1", len(arg))
			}
			return math.Abs(arg[0].(float64)), nil
		},
		"min": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("latflow: got %d arguments for function 'min', but needs 2", len(arg))
			}
			return math.Min(arg[0].(float64), arg[1].(float64)), nil
		},
		"max": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("latflow: got %d arguments for function 'max', but needs 2", len(arg))
			}
			return math.Max(arg[0].(float64), arg[1].(float64)), nil
		},
	}

	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		outputFunctions: defaultOutputFuncs,
		exprs:           make(map[string]*govaluate.EvaluableExpression),
	}
	for name, expr := range outputVariables {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("latflow: parsing output expression %q: %v", name, err)
		}
		o.exprs[name] = e
	}
	return o, nil
}

// CheckOutputVars returns a function that confirms every output
// expression only references built-in model variables. It should run
// during initialization so that typos fail before any stepping.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(d *LatFlow) error {
		known := make(map[string]bool)
		for _, v := range modelVariables {
			known[v] = true
		}
		for name, e := range o.exprs {
			for _, v := range e.Vars() {
				if !known[v] {
					return fmt.Errorf("latflow: output variable %q references unknown variable %q; "+
						"the built-in variables are %v", name, v, modelVariables)
				}
			}
		}
		return nil
	}
}

// Results evaluates the output expressions over the current
// macroscopic fields, returning one grid per output variable.
func (o *Outputter) Results(d *LatFlow) (map[string]*sparse.DenseArray, error) {
	out := make(map[string]*sparse.DenseArray)
	for name := range o.exprs {
		out[name] = sparse.ZerosDense(d.topo.Ny, d.topo.Nx)
	}
	params := make(map[string]interface{})
	for y := 0; y < d.topo.Ny; y++ {
		for x := 0; x < d.topo.Nx; x++ {
			n := d.topo.index(x, y)
			params["rho"] = d.rho.Elements[n]
			params["ux"] = d.ux.Elements[n]
			params["uy"] = d.uy.Elements[n]
			params["speed"] = math.Hypot(d.ux.Elements[n], d.uy.Elements[n])
			if d.conc != nil {
				params["conc"] = d.conc.Elements[n]
			} else {
				params["conc"] = 0.
			}
			params["x"] = float64(x)
			params["y"] = float64(y)
			for name, e := range o.exprs {
				v, err := e.Evaluate(params)
				if err != nil {
					return nil, fmt.Errorf("latflow: evaluating output variable %q: %v", name, err)
				}
				out[name].Elements[n] = v.(float64)
			}
		}
	}
	return out, nil
}

// Output returns a function that writes the output variables to the
// CSV file given by the file name template. It is usually run as a
// cleanup function or wrapped in RunPeriodically for frame output.
func (o *Outputter) Output() DomainManipulator {
	return func(d *LatFlow) error {
		results, err := o.Results(d)
		if err != nil {
			return err
		}
		path := strings.Replace(o.fileName, "[step]", strconv.Itoa(d.step), -1)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("latflow: creating output file: %v", err)
		}
		defer f.Close()

		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)

		w := csv.NewWriter(f)
		if err := w.Write(append([]string{"x", "y"}, names...)); err != nil {
			return err
		}
		row := make([]string, len(names)+2)
		for y := 0; y < d.topo.Ny; y++ {
			for x := 0; x < d.topo.Nx; x++ {
				n := d.topo.index(x, y)
				row[0] = strconv.Itoa(x)
				row[1] = strconv.Itoa(y)
				for i, name := range names {
					row[i+2] = strconv.FormatFloat(results[name].Elements[n], 'g', -1, 64)
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		w.Flush()
		return w.Error()
	}
}
