// Package bard is a feedback-control engine that steers an
// application's runtime configuration to meet a user-chosen performance
// or power target at minimum secondary cost.
//
// Each period the engine observes a measured rate, estimates the
// intrinsic per-iteration workload with a Kalman filter
// (github.com/connorimes/bard/kalman), computes the multiplier required
// to hit the goal with a fixed-form pole-placement controller
// (github.com/connorimes/bard/xup), and searches a caller-supplied table
// of discrete system states (github.com/connorimes/bard/states) for the
// lowest-cost pair realizing that multiplier
// (github.com/connorimes/bard/search), scheduling them over the period
// (github.com/connorimes/bard/planner).
//
// The engine does no measurement, no hardware actuation, and no
// persistence itself: it consumes samples the host already collected
// and invokes an opaque ApplyFunc to request state transitions. See
// package adapters/cpufreq, adapters/containerd and adapters/k8s for
// example host integrations.
package bard
