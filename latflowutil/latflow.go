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
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/latflow"
	"github.com/spf13/cobra"
)

var log *logrus.Logger

func init() {
	log = logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})
}

// Run runs a simulation of the given scenario.
//
// CobraCommand is the cobra.Command instance where Run is called from.
//
// LogFile is the path to the desired logfile location.
//
// OutputFile is the path where the CSV results are written; any
// occurrence of [step] in it is replaced by the step number when
// writing periodic frames.
//
// OutputVariables maps output column names to expressions over the
// built-in per-cell variables.
//
// FrameEvery gives the number of steps between periodic output frames;
// zero disables frames.
//
// HTTPAddress is the address for the monitoring web interface; if
// blank, the server doesn't run.
//
// Checkpoint is the path used to save the final state and, when the
// file already exists, to restore a previous state instead of
// initializing from rest.
//
// Probes are sampled every step and reported when the run finishes.
//
// addInit, addRun, and addCleanup specify functions beyond the default
// functions to run at initialization, runtime, and cleanup,
// respectively.
func Run(CobraCommand *cobra.Command, LogFile, OutputFile string,
	OutputVariables map[string]string, FrameEvery int, scen *latflow.Scenario,
	HTTPAddress, Checkpoint string, probes []*latflow.Probe,
	addInit, addRun, addCleanup []latflow.DomainManipulator) error {

	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("latflow: problem creating log file: %v", err)
	}
	mw := io.MultiWriter(CobraCommand.OutOrStdout(), logfile)
	log.SetOutput(mw)

	// Start functions to receive and print status messages.
	cConverge := make(chan latflow.ConvergenceStatus)
	cLog := make(chan *latflow.SimulationStatus)
	cLogTick := time.Tick(2 * time.Second)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		for msg := range cConverge {
			log.Println(msg.String())
		}
		wg.Done()
	}()
	go func() {
		for msg := range cLog {
			select {
			case <-cLogTick:
				log.Println(msg.String())
			default:
				runtime.Gosched()
			}
		}
		wg.Done()
	}()

	defer func() { // Wait for the logging to finish.
		close(cConverge)
		close(cLog)
		wg.Wait()
		logfile.Close()
	}()

	o, err := latflow.NewOutputter(OutputFile, OutputVariables, nil)
	if err != nil {
		return err
	}

	cfg := scen.Config
	log.Printf("Scenario %s: %d×%d cells  τ=%.4g  inlet=(%g,%g)",
		scen.Name, scen.Topo.Nx, scen.Topo.Ny, cfg.Tau, cfg.InletUx, cfg.InletUy)

	initFuncs := []latflow.DomainManipulator{
		latflow.InitState(scen.Topo, cfg),
		o.CheckOutputVars(),
		latflow.HTMLUI(HTTPAddress),
	}
	if Checkpoint != "" {
		if f, err := os.Open(Checkpoint); err == nil {
			log.Printf("Restoring state from %s", Checkpoint)
			initFuncs[0] = latflow.Load(f)
			defer f.Close()
		}
	}

	runFuncs := []latflow.DomainManipulator{
		latflow.Calculations(latflow.Collide()),
		latflow.Stream(),
		latflow.Calculations(latflow.EnforceBoundaries()),
		latflow.ScalarTransport(),
		latflow.MoveParticles(),
		latflow.AdvanceStep(),
		latflow.StabilityCheck(nil),
		latflow.Log(cLog),
		latflow.SteadyStateConvergenceCheck(cfg.Steps, cConverge),
	}
	for _, p := range probes {
		runFuncs = append(runFuncs, p.Sample())
	}
	if FrameEvery > 0 {
		runFuncs = append(runFuncs, latflow.RunPeriodically(FrameEvery, o.Output()))
	}

	cleanupFuncs := []latflow.DomainManipulator{o.Output()}
	if Checkpoint != "" {
		cleanupFuncs = append(cleanupFuncs, func(d *latflow.LatFlow) error {
			f, err := os.Create(Checkpoint)
			if err != nil {
				return fmt.Errorf("latflow: creating checkpoint file: %v", err)
			}
			defer f.Close()
			return latflow.Save(f)(d)
		})
	}

	d := &latflow.LatFlow{
		InitFuncs:    append(initFuncs, addInit...),
		RunFuncs:     append(runFuncs, addRun...),
		CleanupFuncs: append(cleanupFuncs, addCleanup...),
	}

	log.Println("Initializing model...")
	if err := d.Init(); err != nil {
		return fmt.Errorf("latflow: problem initializing model: %v", err)
	}

	if err := d.Run(context.Background()); err != nil {
		return fmt.Errorf("latflow: problem running simulation: %v", err)
	}

	if err := d.Cleanup(); err != nil {
		return fmt.Errorf("latflow: problem shutting down model: %v", err)
	}

	for _, p := range probes {
		log.Println(p.String())
	}
	if t := d.Tracers(); t != nil {
		log.Printf("Tracers: %d spawned, %d active, %d removed at outlets",
			t.Spawned, len(t.Active), t.Removed)
		for n, hits := range t.SinkHits {
			topo := d.Topology()
			log.Printf("  susceptible cell (%d,%d): %d hits", n%topo.Nx, n/topo.Nx, hits)
		}
	}
	if d.Config().Scalar {
		log.Printf("Contaminant absorbed at susceptible cells: %g", d.Absorbed())
	}

	log.Printf("Elapsed time: %v", time.Since(startTime).Round(time.Millisecond))
	return nil
}
