package breakdown

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/async-race-service/pkg/model"
)

func TestAnimationDuration(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		nominal float64
		want    time.Duration
	}{
		{name: "below min", nominal: 10, want: 3000 * time.Millisecond},
		{name: "inside range", nominal: 50, want: 5000 * time.Millisecond},
		{name: "above max", nominal: 500, want: 10000 * time.Millisecond},
		{name: "zero", nominal: 0, want: 3000 * time.Millisecond},
		{
			name:    "custom scale",
			opts:    []Option{WithScale(1000)},
			nominal: 5,
			want:    5000 * time.Millisecond,
		},
		{
			name:    "custom bounds",
			opts:    []Option{WithBounds(10*time.Millisecond, 30*time.Millisecond)},
			nominal: 0.25,
			want:    25 * time.Millisecond,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.opts...)
			assert.Equal(t, tt.want, p.AnimationDuration(tt.nominal))
		})
	}
}

func TestPlan(t *testing.T) {
	params := model.EngineParams{Velocity: 100, Distance: 5000}
	tests := []struct {
		name   string
		random float64
		brk    bool
		want   Plan
	}{
		{
			name: "no breakdown",
			brk:  false,
			want: Plan{Nominal: 50, Duration: 5 * time.Second},
		},
		{
			name:   "breakdown earliest",
			random: 0,
			brk:    true,
			want: Plan{
				Nominal: 50, Duration: 5 * time.Second,
				WillBreakDown: true, BreakdownAt: time.Second,
			},
		},
		{
			name:   "breakdown midway",
			random: 0.5,
			brk:    true,
			want: Plan{
				Nominal: 50, Duration: 5 * time.Second,
				WillBreakDown: true, BreakdownAt: 3 * time.Second,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(WithRandom(func() float64 { return tt.random }))
			got := p.Plan(params, tt.brk)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlanBreakdownWithinBounds(t *testing.T) {
	p := New()
	params := model.EngineParams{Velocity: 64, Distance: 5000}
	for range 100 {
		plan := p.Plan(params, true)
		assert.GreaterOrEqual(t, plan.BreakdownAt, plan.Duration/5)
		assert.LessOrEqual(t, plan.BreakdownAt, plan.Duration)
	}
}
