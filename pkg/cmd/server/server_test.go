package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/config"
)

func TestNewBackend(t *testing.T) {
	config.Store = "memory"
	b, err := newBackend(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b.tx)
	cars, err := b.repos.Car().LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cars)
	assert.Len(t, b.managerOptions(), 1)

	config.Store = "rest"
	config.APIURL = ""
	_, err = newBackend(context.Background())
	assert.Error(t, err)

	config.Store = "files"
	_, err = newBackend(context.Background())
	assert.Error(t, err)
}

func TestCORSExposesTotalCount(t *testing.T) {
	h := newCORS().Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total-Count", "3")
	}))
	r := httptest.NewRequest(http.MethodGet, "/garage", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "X-Total-Count")
}

func TestWatchLogConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "log.yml")
	require.NoError(t, os.WriteFile(file, []byte("level: info\n"), 0o600))

	buf := &syncBuffer{}
	logger, err := log.NewWithFilter(buf, log.InfoLevel, "json", "info+:*")
	require.NoError(t, err)
	ledger := logger.Named("ledger")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watchLogConfig(ctx, file, logger))

	require.NoError(t, os.WriteFile(file,
		[]byte("level: info\nloggers:\n  ledger: debug\n"), 0o600))
	require.Eventually(t, func() bool {
		ledger.Debug("probe")
		return strings.Contains(buf.String(), "probe")
	}, 2*time.Second, 20*time.Millisecond)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
