package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/async-race-service/pkg/engineservice"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, WithHTTPClient(srv.Client()))
}

func TestClientStart(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/engine", r.URL.Path)
		assert.Equal(t, "4", r.URL.Query().Get("id"))
		assert.Equal(t, "started", r.URL.Query().Get("status"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"velocity":64,"distance":500000}`))
	})
	params, err := c.Start(context.Background(), 4)
	require.NoError(t, err)
	assert.InDelta(t, 64.0, params.Velocity, 1e-9)
	assert.InDelta(t, 500000.0, params.Distance, 1e-9)
}

func TestClientDrive(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr error
	}{
		{name: "success", status: http.StatusOK, body: `{"success":true}`, want: true},
		{name: "broken down", status: http.StatusInternalServerError, want: false},
		{
			name: "not started", status: http.StatusNotFound,
			wantErr: engineservice.ErrEngineNotStarted,
		},
		{
			name: "in progress", status: http.StatusTooManyRequests,
			wantErr: engineservice.ErrTooManyRequests,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "drive", r.URL.Query().Get("status"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := c.Drive(context.Background(), 1)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientStopError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad status"))
	})
	err := c.Stop(context.Background(), 1)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Equal(t, "bad status", se.Message)
}
