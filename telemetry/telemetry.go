// Package telemetry implements the control engine's log sink: a ring
// buffer of per-period records flushed as one whitespace-aligned text
// batch whenever the buffer wraps.
package telemetry

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/connorimes/bard/kalman"
	"github.com/connorimes/bard/real"
)

// Constraint mirrors the engine's top-level Constraint without an import
// cycle back to the root package.
type Constraint int

const (
	Performance Constraint = iota
	Power
)

func (c Constraint) String() string {
	switch c {
	case Power:
		return "POWER"
	case Performance:
		fallthrough
	default:
		// Matches the original's switch-with-PERFORMANCE-default idiom:
		// an unrecognized value logs as PERFORMANCE rather than
		// panicking or printing garbage.
		return "PERFORMANCE"
	}
}

// Record is one flushed telemetry row: tag, constraint, measured rate,
// all six perf-filter scalars, current speedup and its error, measured
// power, all six cost-filter scalars, current powerup and its error,
// time/energy workload, lower/upper id, low_state_iters, idle_ns.
type Record struct {
	Tag            uint64
	Constraint     Constraint
	ActRate        real.Real
	PerfFilter     kalman.Snapshot
	Speedup        real.Real
	SpeedupError   real.Real
	ActPower       real.Real
	CostFilter     kalman.Snapshot
	Powerup        real.Real
	PowerupError   real.Real
	TimeWorkload   real.Real
	EnergyWorkload real.Real
	LowerID        int
	UpperID        int
	LowStateIters  int
	IdleNS         int64
}

// Sink buffers records and flushes them in one batch when the ring
// buffer wraps to its final slot; records in a partially filled buffer
// at destruction are lost, matching the original. A buffer depth of 0
// yields a null sink that drops every record, matching the original's
// `buffer_depth == 0` behavior.
type Sink struct {
	w       io.Writer
	depth   int
	buf     []Record
	period  int
	log     *logrus.Logger
	flushed bool
}

// New constructs a Sink. w may be nil only when depth is 0. period is
// used to reproduce the original's index formula, `(tag/period) %
// depth`: the slot a record lands in is derived from the boundary's
// ordinal number, not a free-running counter.
func New(w io.Writer, depth int, period int, log *logrus.Logger) (*Sink, error) {
	if depth > 0 && w == nil {
		return nil, fmt.Errorf("bard: buffered telemetry requires a non-nil writer")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Sink{w: w, depth: depth, period: period, log: log}
	if depth > 0 {
		s.buf = make([]Record, depth)
		s.writeHeader()
	}
	return s, nil
}

func (s *Sink) writeHeader() {
	fmt.Fprintf(s.w,
		"%16s %16s "+
			"%16s %16s %16s %16s %16s %16s %16s %16s %16s "+
			"%16s %16s %16s %16s %16s %16s %16s %16s %16s "+
			"%16s %16s %16s %16s %16s %16s\n",
		"TAG", "CONSTRAINT",
		"ACTUAL_RATE", "P_X_HAT_MINUS", "P_X_HAT", "P_P_MINUS", "P_H", "P_K", "P_P", "P_SPEEDUP", "P_ERROR",
		"ACTUAL_POWER", "C_X_HAT_MINUS", "C_X_HAT", "C_P_MINUS", "C_H", "C_K", "C_P", "C_POWERUP", "C_ERROR",
		"TIME_WORKLOAD", "ENERGY_WORKLOAD", "LOWER_ID", "UPPER_ID", "LOW_STATE_ITERS", "IDLE_NS")
}

// Record appends a record to the ring buffer, flushing if this write
// fills the final slot.
func (s *Sink) Record(r Record) {
	if s.depth == 0 {
		return
	}
	index := int((r.Tag / uint64(s.period)) % uint64(s.depth))
	s.buf[index] = r
	if index == s.depth-1 {
		s.flush()
	}
}

func (s *Sink) flush() {
	errs := make([]float64, 0, s.depth)
	for _, r := range s.buf {
		pf, cf := r.PerfFilter, r.CostFilter
		fmt.Fprintf(s.w,
			"%16d %16s "+
				"%16f %16f %16f %16f %16f %16f %16f %16f %16f "+
				"%16f %16f %16f %16f %16f %16f %16f %16f %16f "+
				"%16f %16f %16d %16d %16d %16d\n",
			r.Tag, r.Constraint.String(),
			real.ToFloat(r.ActRate), real.ToFloat(pf.XHatMinus), real.ToFloat(pf.XHat), real.ToFloat(pf.PMinus), real.ToFloat(pf.H), real.ToFloat(pf.K), real.ToFloat(pf.P), real.ToFloat(r.Speedup), real.ToFloat(r.SpeedupError),
			real.ToFloat(r.ActPower), real.ToFloat(cf.XHatMinus), real.ToFloat(cf.XHat), real.ToFloat(cf.PMinus), real.ToFloat(cf.H), real.ToFloat(cf.K), real.ToFloat(cf.P), real.ToFloat(r.Powerup), real.ToFloat(r.PowerupError),
			real.ToFloat(r.TimeWorkload), real.ToFloat(r.EnergyWorkload), r.LowerID, r.UpperID, r.LowStateIters, r.IdleNS)
		errs = append(errs, real.ToFloat(r.SpeedupError))
	}
	s.flushed = true

	mean, variance := stat.MeanVariance(errs, nil)
	s.log.WithFields(logrus.Fields{
		"batch_size":        s.depth,
		"speedup_err_mean":  mean,
		"speedup_err_var":   variance,
	}).Debug("telemetry batch flushed")
}

// Close releases the sink. Records buffered in a partially filled batch
// are discarded, matching the original.
func (s *Sink) Close() error {
	if closer, ok := s.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Flushed reports whether at least one batch has been written, for
// tests.
func (s *Sink) Flushed() bool { return s.flushed }
