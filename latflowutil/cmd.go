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

// Package latflowutil provides configuration and orchestration
// wrappers around the latflow simulation engine.
package latflowutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/latflow"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to LatFlow.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Scenario",
			usage: `
              Scenario selects what to simulate. It can be 'cavity' (the
              lid-driven cavity benchmark), 'channel' (a straight channel with
              an obstacle), or the path to a scenario TOML file.`,
			shorthand:  "s",
			defaultVal: "cavity",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags(), checkCmd.Flags()},
		},
		{
			name: "Size",
			usage: `
              Size is the domain edge length in cells for the built-in
              scenarios. The channel scenario uses 4×Size by Size.`,
			defaultVal: 128,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags(), checkCmd.Flags()},
		},
		{
			name: "Reynolds",
			usage: `
              Reynolds is the Reynolds number used to derive the relaxation
              time for the built-in scenarios.`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ULattice",
			usage: `
              ULattice is the characteristic flow speed in lattice units per
              step. It must stay well below the lattice speed of sound
              (~0.577); 0.1-0.2 is typical.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ObstacleRadius",
			usage: `
              ObstacleRadius is the radius in cells of the circular obstacle
              in the channel scenario. Zero leaves the channel empty.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Steps",
			usage: `
              Steps is the number of timesteps to calculate. If < 1, the run
              continues until the flow reaches steady state.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired CSV output location. Any
              occurrence of [step] in the path is replaced by the step number
              when writing periodic frames. It can include environment
              variables.`,
			defaultVal: "latflow_output.csv",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which model variables should be
              included in the output file, as a map from column name to an
              expression over the built-in variables rho, ux, uy, speed,
              conc, x, and y.`,
			defaultVal: map[string]string{
				"rho":   "rho",
				"speed": "sqrt(ux*ux + uy*uy)",
			},
			flagsets: []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "FrameEvery",
			usage: `
              FrameEvery is the number of steps between periodic output
              frames. Zero disables frame output; the final state is always
              written.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. If left
              blank, the logfile is saved next to the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Scalar",
			usage: `
              Scalar enables the contaminant concentration field. It is
              enabled automatically when the map holds infected cells.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ScalarDiffusivity",
			usage: `
              ScalarDiffusivity is the contaminant diffusion coefficient in
              lattice units. The explicit scheme requires values below 0.25.`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "SourceRate",
			usage: `
              SourceRate is the concentration added at each infected cell per
              step.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "CMax",
			usage: `
              CMax caps the contaminant concentration in any cell.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Particles",
			usage: `
              Particles enables Lagrangian tracer particles released at
              infected cells.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "SpawnEvery",
			usage: `
              SpawnEvery is the number of steps between tracer releases.`,
			defaultVal: 50,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "SpawnCount",
			usage: `
              SpawnCount is the number of tracers released per infected cell
              each time.`,
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "HTTPAddress",
			usage: `
              HTTPAddress is the address for hosting the monitoring web
              interface (for example 'localhost:8080'). If blank, the server
              doesn't run.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Checkpoint",
			usage: `
              Checkpoint is the path where the final simulation state is
              saved as a gob file, and from which a previous state is
              restored if the file already exists. If blank, checkpointing is
              disabled.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Probes",
			usage: `
              Probes is a list of cells, as 'x,y' strings, whose velocity
              statistics are reported at the end of the run.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("LATFLOW")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(checkCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("latflow: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "latflow",
	Short: "A lattice-Boltzmann airflow and contaminant transport model.",
	Long: `LatFlow simulates two-dimensional indoor airflow with the
lattice-Boltzmann method and transports contaminant from infected to
susceptible occupants. Use the subcommands specified below to access the
model functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'LATFLOW_var' where 'var'
is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of LatFlow.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("LatFlow v%s\n", latflow.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a LatFlow simulation of the scenario selected by the
Scenario option, writing the results to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scen, err := scenario(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		probes, err := parseProbes(Cfg.GetStringSlice("Probes"))
		if err != nil {
			return err
		}
		return Run(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			outputFile,
			outputVars,
			Cfg.GetInt("FrameEvery"),
			scen,
			Cfg.GetString("HTTPAddress"),
			os.ExpandEnv(Cfg.GetString("Checkpoint")),
			probes,
			nil, nil, nil)
	},
	DisableAutoGenTag: true,
}

// checkCmd is a command that validates a scenario without running it.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a scenario",
	Long: `check loads the scenario selected by the Scenario option, validates
the map and the configuration, and prints a summary without running the
simulation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scen, err := scenario(Cfg)
		if err != nil {
			return err
		}
		t := scen.Topo
		cmd.Printf("scenario %s: %d×%d cells\n", scen.Name, t.Nx, t.Ny)
		for _, ct := range []latflow.CellType{latflow.Air, latflow.Wall,
			latflow.Inlet, latflow.Outlet, latflow.Infected, latflow.Susceptible} {
			cmd.Printf("  %-12s %d\n", ct, t.Count(ct))
		}
		cmd.Printf("  τ=%g inlet=(%g,%g) steps=%d\n",
			scen.Config.Tau, scen.Config.InletUx, scen.Config.InletUy, scen.Config.Steps)
		return nil
	},
	DisableAutoGenTag: true,
}
