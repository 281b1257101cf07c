package bard

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/connorimes/bard/kalman"
	"github.com/connorimes/bard/real"
	"github.com/connorimes/bard/search"
	"github.com/connorimes/bard/states"
	"github.com/connorimes/bard/telemetry"
	"github.com/connorimes/bard/xup"
)

// Constraint selects which rate the engine steers toward a goal:
// Performance targets an iterations/second rate at minimum power cost,
// Power targets a watts rate at maximum achievable performance.
type Constraint int

const (
	Performance Constraint = iota
	Power
)

// ApplyFunc requests that the host transition to configuration newID.
// idleNS is non-zero at most once per period, and only when newID's
// state is an idle state. The engine does not check or act on any
// return from this callback; its success is the host's concern.
type ApplyFunc func(applyStates any, numStates int, newID, lastID int, idleNS int64, isFirstApply bool)

// CurrentFunc reports the host's current configuration id at
// construction time. A non-nil error, or a nil CurrentFunc, makes New
// default to the highest state id.
type CurrentFunc func(applyStates any, numStates int) (int, error)

// Option configures an Engine at construction using the functional-
// options pattern.
type Option func(*engineOptions)

type engineOptions struct {
	config Config
	log    *logrus.Logger
}

// WithConfig injects the runtime kill-switch configuration instead of
// reading it from the environment: the primary way tests exercise all
// three POET_DISABLE_* switches deterministically.
func WithConfig(cfg Config) Option {
	return func(o *engineOptions) { o.config = cfg }
}

// WithLogger overrides the logrus logger the engine reports planning
// decisions and anomalies to. Defaults to logrus.StandardLogger().
func WithLogger(log *logrus.Logger) Option {
	return func(o *engineOptions) { o.log = log }
}

// Engine is the control loop: it owns a workload estimator and a
// pole-placement controller per dimension, a read-only state table, and
// a telemetry sink, and drives them from ApplyControl.
//
// ApplyControl, SetConstraint and Close lock an internal mutex; the
// engine performs no internal concurrency of its own, but serializing
// access lets a host call them from more than one goroutine without
// external coordination. The test/diagnostic accessors (SpeedupBounds,
// PowerupBounds, Schedule, CurrentAction) do not lock.
type Engine struct {
	mu sync.Mutex

	constraint Constraint
	goal       real.Real

	states *states.Table
	period int

	perfFilter *kalman.Filter
	costFilter *kalman.Filter

	speedupCtl *xup.Controller
	powerupCtl *xup.Controller

	lowerID, upperID int
	lowStateIters    int
	idleNS           int64
	costXupEstimate  real.Real

	lastID        int
	isFirstApply  bool
	currentAction int

	applyStates any
	apply       ApplyFunc

	sink *telemetry.Sink
	log  *logrus.Logger
	cfg  Config
}

// New constructs an Engine. Preconditions: goal > 0, len(stateTable) >
// 0, period > 0, and bufferDepth == 0 unless logFilename != "".
func New(
	goal float64,
	constraint Constraint,
	stateTable []states.State,
	applyStates any,
	apply ApplyFunc,
	current CurrentFunc,
	period int,
	bufferDepth int,
	logFilename string,
	opts ...Option,
) (*Engine, error) {
	if goal <= 0 {
		return nil, fmt.Errorf("bard: goal must be positive, got %v", goal)
	}
	if period <= 0 {
		return nil, fmt.Errorf("bard: period must be positive, got %d", period)
	}
	if bufferDepth > 0 && logFilename == "" {
		return nil, fmt.Errorf("bard: buffered telemetry requires a log filename")
	}

	table, err := states.NewTable(stateTable)
	if err != nil {
		return nil, err
	}

	o := engineOptions{config: ConfigFromEnv(), log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	var w io.Writer
	if bufferDepth > 0 {
		f, ferr := os.Create(logFilename)
		if ferr != nil {
			return nil, fmt.Errorf("bard: opening log file %q: %w", logFilename, ferr)
		}
		w = f
	}
	sink, err := telemetry.New(w, bufferDepth, period, o.log)
	if err != nil {
		return nil, err
	}

	lastID := table.Len() - 1
	if current != nil {
		if id, cerr := current(applyStates, table.Len()); cerr == nil {
			lastID = id
		}
	}
	last := table.At(lastID)

	speedMin, speedMax := table.Bounds(states.SpeedupOf)
	costMin, costMax := table.Bounds(states.CostOf)

	e := &Engine{
		constraint:      constraint,
		goal:            real.FromFloat(goal),
		states:          table,
		period:          period,
		perfFilter:      kalman.New(),
		costFilter:      kalman.New(),
		speedupCtl:      xup.New(last.Speedup, speedMin, speedMax),
		powerupCtl:      xup.New(last.Cost, costMin, costMax),
		lowerID:         -1,
		upperID:         -1,
		lastID:          lastID,
		isFirstApply:    true,
		applyStates:     applyStates,
		apply:           apply,
		sink:            sink,
		log:             o.log,
		cfg:             o.config,
		costXupEstimate: real.Zero,
	}
	return e, nil
}

// SetConstraint changes the active constraint and goal at runtime. The
// now-active controller already carries warm u/uo/uoo from the
// cross-seeding step in the most recent planPeriod.
func (e *Engine) SetConstraint(constraint Constraint, goal float64) error {
	if goal <= 0 {
		return fmt.Errorf("bard: goal must be positive, got %v", goal)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.constraint = constraint
	e.goal = real.FromFloat(goal)
	return nil
}

// ApplyControl is the per-iteration entry point. id is a host-supplied
// monotonic iteration counter used for telemetry indexing; perf and pwr
// are the measured rate and power for this iteration's window.
func (e *Engine) ApplyControl(id uint64, perf, pwr float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.DisableControl {
		return
	}

	rPerf, rPwr := real.FromFloat(perf), real.FromFloat(pwr)

	if e.currentAction == 0 {
		e.planPeriod(id, rPerf, rPwr)
	}

	configID := -1
	if e.lowStateIters > 0 {
		configID = e.lowerID
		e.lowStateIters--
	} else if e.upperID >= 0 {
		configID = e.upperID
	}

	if configID >= 0 && (configID != e.lastID || e.isFirstApply) {
		if e.apply != nil && !e.cfg.DisableApply {
			e.apply(e.applyStates, e.states.Len(), configID, e.lastID, e.idleNS, e.isFirstApply)
			e.isFirstApply = false
		}
		e.lastID = configID
		e.idleNS = 0
	}

	e.currentAction = (e.currentAction + 1) % e.period
}

// planPeriod runs the estimator, controller, pair search and schedule
// computation for one period boundary.
func (e *Engine) planPeriod(id uint64, perf, pwr real.Real) {
	timeWorkload := e.perfFilter.Step(perf, e.speedupCtl.U())
	energyWorkload := e.costFilter.Step(pwr, e.powerupCtl.U())

	var workload, target real.Real
	var activeConstraint search.Constraint
	var inactive *xup.Controller
	switch e.constraint {
	case Power:
		target = e.powerupCtl.Step(pwr, e.goal, energyWorkload)
		workload = energyWorkload
		activeConstraint = search.Power
		inactive = e.speedupCtl
	default:
		target = e.speedupCtl.Step(perf, e.goal, timeWorkload)
		workload = timeWorkload
		activeConstraint = search.Performance
		inactive = e.powerupCtl
	}

	result := search.Best(e.states, target, workload, e.period, activeConstraint, e.cfg.DisableIdle)

	e.lowerID = result.LowerID
	e.upperID = result.UpperID
	e.lowStateIters = result.Schedule.LowStateIters
	e.idleNS = result.Schedule.IdleNS
	e.costXupEstimate = result.Schedule.CostXup

	if e.upperID < 0 {
		e.log.WithFields(logrus.Fields{"tag": id, "target": real.ToFloat(target)}).
			Debug("bard: no admissible state pair this period, schedule unchanged")
	}

	// Warm-start the inactive dimension's controller so a later
	// SetConstraint switch doesn't start from a cold e=0 plateau. When
	// no pair was found this period, costXupEstimate is
	// planner.NoCostXup and gets seeded through unchanged, same as the
	// original leaving best_cost_xup at its sentinel and writing it
	// straight into the inactive controller's u.
	inactive.Seed(e.costXupEstimate)

	e.sink.Record(telemetry.Record{
		Tag:            id,
		Constraint:     telemetryConstraint(e.constraint),
		ActRate:        perf,
		PerfFilter:     e.perfFilter.Snapshot(),
		Speedup:        e.speedupCtl.U(),
		SpeedupError:   e.speedupCtl.Error(),
		ActPower:       pwr,
		CostFilter:     e.costFilter.Snapshot(),
		Powerup:        e.powerupCtl.U(),
		PowerupError:   e.powerupCtl.Error(),
		TimeWorkload:   timeWorkload,
		EnergyWorkload: energyWorkload,
		LowerID:        e.lowerID,
		UpperID:        e.upperID,
		LowStateIters:  e.lowStateIters,
		IdleNS:         e.idleNS,
	})
}

func telemetryConstraint(c Constraint) telemetry.Constraint {
	if c == Power {
		return telemetry.Power
	}
	return telemetry.Performance
}

// Close releases the engine's telemetry log. Not safe to call
// concurrently with ApplyControl.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sink.Close()
}

// SpeedupBounds and PowerupBounds expose the derived umin/umax for a
// dimension's controller, for tests and diagnostics.
func (e *Engine) SpeedupBounds() (real.Real, real.Real) { return e.speedupCtl.Bounds() }
func (e *Engine) PowerupBounds() (real.Real, real.Real) { return e.powerupCtl.Bounds() }

// Schedule exposes the engine's current schedule, for tests. lowerID and
// upperID are those of the most recent planning; lowStateIters counts
// down as lower-state iterations are dispatched, and idleNS is zeroed
// once it has been dispatched.
func (e *Engine) Schedule() (lowerID, upperID, lowStateIters int, idleNS int64) {
	return e.lowerID, e.upperID, e.lowStateIters, e.idleNS
}

// CurrentAction exposes the 0..period-1 boundary counter, for tests.
func (e *Engine) CurrentAction() int { return e.currentAction }
