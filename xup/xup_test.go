package xup

import (
	"testing"

	"github.com/connorimes/bard/real"
	"github.com/stretchr/testify/assert"
)

func TestStepClampsToBounds(t *testing.T) {
	umin, umax := real.FromFloat(1.0), real.FromFloat(2.0)
	c := New(real.FromFloat(1.0), umin, umax)

	// A wildly large desired rate should still clamp u into [umin, umax].
	for i := 0; i < 50; i++ {
		u := c.Step(real.FromFloat(0.01), real.FromFloat(1000.0), real.FromFloat(1.0))
		assert.True(t, real.GreaterEq(u, umin), "u below umin")
		assert.True(t, real.LessEq(u, umax), "u above umax")
	}
}

func TestStepConvergesWhenRateMatchesGoal(t *testing.T) {
	umin, umax := real.FromFloat(0.5), real.FromFloat(4.0)
	c := New(real.FromFloat(1.0), umin, umax)

	var u real.Real
	for i := 0; i < 500; i++ {
		u = c.Step(real.FromFloat(2.0), real.FromFloat(2.0), real.FromFloat(0.5))
	}
	assert.InDelta(t, 0.0, real.ToFloat(c.Error()), 1e-9)
	assert.True(t, real.GreaterEq(u, umin) && real.LessEq(u, umax))
}

func TestSeedWarmStartsHistory(t *testing.T) {
	c := New(real.FromFloat(1.0), real.FromFloat(1.0), real.FromFloat(2.0))
	c.Seed(real.FromFloat(1.5))
	assert.InDelta(t, 1.5, real.ToFloat(c.U()), 1e-9)
	assert.InDelta(t, 0.0, real.ToFloat(c.Error()), 1e-9)
}
