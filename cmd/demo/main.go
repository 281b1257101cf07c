// Command demo drives a control engine against a synthetic workload: it
// simulates a host that runs faster or slower depending on which
// control state it's told to apply, and prints every dispatched
// transition. It exercises the engine end to end without any real
// hardware or cluster dependency.
package main

import (
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/connorimes/bard"
	"github.com/connorimes/bard/real"
	"github.com/connorimes/bard/states"
)

var (
	goalRate    = flag.Float64("goal", 1.5, "target rate to steer toward")
	period      = flag.Int("period", 10, "iterations per planning period")
	iterations  = flag.Int("iterations", 200, "total iterations to simulate")
	logFile     = flag.String("log", "", "telemetry log path; empty disables buffered telemetry")
	bufferDepth = flag.Int("buffer-depth", 0, "telemetry ring buffer depth")
)

func init() {
	flag.Parse()

	log.SetLevel(log.InfoLevel)
	log.SetFormatter(&log.TextFormatter{ForceColors: true})
}

// simulatedStates is a small performance/power table modeling four DVFS
// steps plus one idle state that hybridizes with the lowest non-idle
// step, matching the shape of the original controller's example
// configuration.
var simulatedStates = []states.State{
	{Speedup: real.FromFloat(0.0), Cost: real.FromFloat(0.0), IdlePartnerID: 1}, // idle
	{Speedup: real.FromFloat(1.0), Cost: real.FromFloat(1.0)},
	{Speedup: real.FromFloat(1.5), Cost: real.FromFloat(1.8)},
	{Speedup: real.FromFloat(2.0), Cost: real.FromFloat(2.6)},
	{Speedup: real.FromFloat(3.0), Cost: real.FromFloat(4.0)},
}

func apply(applyStates any, numStates, newID, lastID int, idleNS int64, isFirstApply bool) {
	log.WithFields(log.Fields{
		"newID":        newID,
		"lastID":       lastID,
		"idleNS":       idleNS,
		"isFirstApply": isFirstApply,
	}).Info("demo: dispatching state transition")
}

func main() {
	engine, err := bard.New(
		*goalRate,
		bard.Performance,
		simulatedStates,
		nil,
		apply,
		nil,
		*period,
		*bufferDepth,
		*logFile,
	)
	if err != nil {
		log.Fatalf("demo: failed to construct engine: %v", err)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			log.WithError(cerr).Error("demo: closing engine")
		}
	}()

	currentState := len(simulatedStates) - 1
	for i := uint64(0); i < uint64(*iterations); i++ {
		perf := real.ToFloat(simulatedStates[currentState].Speedup)
		pwr := real.ToFloat(simulatedStates[currentState].Cost)
		engine.ApplyControl(i, perf, pwr)

		lower, upper, lowIters, _ := engine.Schedule()
		if lowIters > 0 {
			currentState = lower
		} else if upper >= 0 {
			currentState = upper
		}

		time.Sleep(time.Millisecond)
	}
}
