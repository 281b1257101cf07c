// Package cpufreq wires a control engine to Linux's cpufreq sysfs tree:
// it applies a target CPU frequency by writing scaling_setspeed, and it
// can stand in for a caller-supplied heartbeat by turning aggregate CPU
// utilization from /proc/stat into a performance-rate proxy.
//
// This is the direct descendant of the original DVFS use case the
// engine's pair search and controller were built around: system states
// here are literally CPU frequency steps.
package cpufreq

import (
	"fmt"
	"os"
	"strconv"

	linuxproc "github.com/c9s/goprocinfo/linux"
	log "github.com/sirupsen/logrus"
)

// Sysfs is the subset of the cpufreq sysfs layout this adapter touches,
// parameterized so tests can point it at a temp directory instead of
// /sys.
type Sysfs struct {
	// Root is normally "/sys/devices/system/cpu".
	Root string
	// CPU is the logical CPU whose governor this adapter drives, e.g. 0.
	CPU int
}

func (s Sysfs) setSpeedPath() string {
	return fmt.Sprintf("%s/cpu%d/cpufreq/scaling_setspeed", s.Root, s.CPU)
}

// Frequencies maps a control-state id to the CPU frequency in kHz that
// realizes it, in the same order the engine's states.Table was built
// with.
type Frequencies []int64

// Apply returns an engine.ApplyFunc that writes the frequency for newID
// to scaling_setspeed. It logs and otherwise ignores write failures: a
// governor rejecting a frequency is not something the control loop can
// recover from mid-period, matching the fire-and-forget contract the
// engine already assumes of its apply callback.
func (s Sysfs) Apply(freqs Frequencies) func(applyStates any, numStates, newID, lastID int, idleNS int64, isFirstApply bool) {
	return func(applyStates any, numStates, newID, lastID int, idleNS int64, isFirstApply bool) {
		if newID < 0 || newID >= len(freqs) {
			log.WithField("newID", newID).Error("cpufreq: state id out of range")
			return
		}
		path := s.setSpeedPath()
		val := strconv.FormatInt(freqs[newID], 10)
		if err := os.WriteFile(path, []byte(val), 0644); err != nil {
			log.WithFields(log.Fields{"path": path, "freq": val, "err": err}).
				Error("cpufreq: failed to set scaling_setspeed")
		}
	}
}

// Current returns an engine.CurrentFunc that maps the sysfs governor's
// currently reported frequency back to the closest entry in freqs.
func (s Sysfs) Current(freqs Frequencies) func(applyStates any, numStates int) (int, error) {
	return func(applyStates any, numStates int) (int, error) {
		path := fmt.Sprintf("%s/cpu%d/cpufreq/scaling_cur_freq", s.Root, s.CPU)
		raw, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("cpufreq: reading %s: %w", path, err)
		}
		cur, err := strconv.ParseInt(string(bytesTrim(raw)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cpufreq: parsing %s: %w", path, err)
		}
		best, bestDelta := 0, int64(-1)
		for i, f := range freqs {
			delta := f - cur
			if delta < 0 {
				delta = -delta
			}
			if bestDelta < 0 || delta < bestDelta {
				best, bestDelta = i, delta
			}
		}
		return best, nil
	}
}

func bytesTrim(b []byte) []byte {
	i := len(b)
	for i > 0 && (b[i-1] == '\n' || b[i-1] == ' ') {
		i--
	}
	return b[:i]
}

// UtilizationRate reads /proc/stat and returns the fraction of CPU time
// spent non-idle since the previous call, as a stand-in performance
// signal for hosts that have no application-level heartbeat of their
// own. The first call always returns 0.
type UtilizationRate struct {
	prevTotal, prevIdle uint64
}

// Sample reads the current aggregate CPU line from /proc/stat.
func (u *UtilizationRate) Sample() (float64, error) {
	stat, err := linuxproc.ReadStat("/proc/stat")
	if err != nil {
		return 0, fmt.Errorf("cpufreq: reading /proc/stat: %w", err)
	}
	cpu := stat.CPUStatAll
	idle := cpu.Idle + cpu.IOWait
	total := cpu.User + cpu.Nice + cpu.System + idle + cpu.IRQ + cpu.SoftIRQ + cpu.Steal

	first := u.prevTotal == 0 && u.prevIdle == 0
	deltaTotal := total - u.prevTotal
	deltaIdle := idle - u.prevIdle
	u.prevTotal, u.prevIdle = total, idle

	if first || deltaTotal == 0 {
		return 0, nil
	}
	return 1.0 - float64(deltaIdle)/float64(deltaTotal), nil
}
