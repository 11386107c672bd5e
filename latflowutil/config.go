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

package latflowutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/latflow"
	"github.com/spf13/cast"
)

// scenario builds the scenario selected by the configuration: one of
// the built-in presets, a scenario TOML file, or a bare map file
// combined with the flow options.
func scenario(cfg *viper.Viper) (*latflow.Scenario, error) {
	name := os.ExpandEnv(cfg.GetString("Scenario"))
	size := cfg.GetInt("Size")
	re := cfg.GetFloat64("Reynolds")
	u := cfg.GetFloat64("ULattice")

	var scen *latflow.Scenario
	var err error
	switch {
	case name == "cavity":
		scen, err = latflow.Cavity(size, re, u)
	case name == "channel":
		scen, err = latflow.Channel(4*size, size, re, u, cfg.GetInt("ObstacleRadius"))
	case strings.HasSuffix(name, ".toml"):
		scen, err = latflow.FromTOML(name)
	default:
		var topo *latflow.Topology
		if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
			topo, err = latflow.MapFromURL(name)
		} else {
			topo, err = latflow.MapFromFile(name)
		}
		if err != nil {
			break
		}
		scen = &latflow.Scenario{
			Name: filepath.Base(name),
			Topo: topo,
			Config: latflow.Config{
				Tau:     latflow.TauFromReynolds(re, u, topo.Ny),
				InletUx: u,
			},
		}
	}
	if err != nil {
		return nil, err
	}

	// The flow options above shape the built-in scenarios; the options
	// below apply everywhere.
	if v := cfg.GetInt("Steps"); v != 0 {
		scen.Config.Steps = v
	}
	if cfg.GetBool("Scalar") || scen.Topo.Count(latflow.Infected) > 0 {
		scen.Config.Scalar = true
		if scen.Config.ScalarDiffusivity == 0 {
			scen.Config.ScalarDiffusivity = cfg.GetFloat64("ScalarDiffusivity")
		}
		if scen.Config.SourceRate == 0 {
			scen.Config.SourceRate = cfg.GetFloat64("SourceRate")
		}
		if scen.Config.CMax == 0 {
			scen.Config.CMax = cfg.GetFloat64("CMax")
		}
	}
	if cfg.GetBool("Particles") {
		scen.Config.Particles = true
		if scen.Config.SpawnEvery == 0 {
			scen.Config.SpawnEvery = cfg.GetInt("SpawnEvery")
		}
		if scen.Config.SpawnCount == 0 {
			scen.Config.SpawnCount = cfg.GetInt("SpawnCount")
		}
	}
	if err := scen.Config.Check(); err != nil {
		return nil, err
	}
	return scen, nil
}

// checkOutputVars removes end lines and expands environment variables
// in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		vars[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return vars, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.csv")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("latflow: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one
// isn't specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// parseProbes parses probe cell locations given as "x,y" strings.
func parseProbes(specs []string) ([]*latflow.Probe, error) {
	var probes []*latflow.Probe
	for _, s := range specs {
		parts := strings.Split(strings.TrimSpace(s), ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("latflow: probe %q must have the form 'x,y'", s)
		}
		x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
		y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("latflow: probe %q must have the form 'x,y'", s)
		}
		probes = append(probes, latflow.NewProbe(x, y))
	}
	return probes, nil
}

// GetStringMapString returns a map[string]string from a viper
// configuration, accounting for the fact that it might be a json
// object if it was set from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}
