package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/async-race-service/pkg/engineservice"
)

func fixed(v float64) func() float64 {
	return func() float64 { return v }
}

func TestStart(t *testing.T) {
	s := New(WithRandom(fixed(0.5)), WithDistance(500))
	params, err := s.Start(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 125.0, params.Velocity, 1e-9)
	assert.InDelta(t, 500.0, params.Distance, 1e-9)
	assert.Equal(t, 1, s.Engines())
}

func TestDrive(t *testing.T) {
	tests := []struct {
		name    string
		random  float64
		rate    float64
		start   bool
		want    bool
		wantErr error
	}{
		{name: "granted", random: 0.9, rate: 0.3, start: true, want: true},
		{name: "denied", random: 0.1, rate: 0.3, start: true, want: false},
		{
			name: "not started", random: 0.9, rate: 0.3,
			wantErr: engineservice.ErrEngineNotStarted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(WithRandom(fixed(tt.random)), WithFailureRate(tt.rate))
			if tt.start {
				_, err := s.Start(context.Background(), 7)
				require.NoError(t, err)
			}
			got, err := s.Drive(context.Background(), 7)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStop(t *testing.T) {
	s := New()
	_, err := s.Start(context.Background(), 3)
	require.NoError(t, err)
	require.NoError(t, s.Stop(context.Background(), 3))
	assert.Equal(t, 0, s.Engines())

	_, err = s.Drive(context.Background(), 3)
	assert.ErrorIs(t, err, engineservice.ErrEngineNotStarted)
}

func TestLatencyHonorsContext(t *testing.T) {
	s := New(WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Start(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
