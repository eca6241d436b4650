package postgres

import (
	"bytes"
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/async-race-service/log"
)

type recordingTracer struct {
	sql []string
}

func (r *recordingTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	r.sql = append(r.sql, data.SQL)
	return ctx
}

func (r *recordingTracer) TraceQueryEnd(context.Context, *pgx.Conn, pgx.TraceQueryEndData) {}

func newConfig(t *testing.T) *pgxpool.Config {
	t.Helper()
	cfg, err := pgxpool.ParseConfig("postgresql://u:p@localhost:5432/asyncrace")
	require.NoError(t, err)
	return cfg
}

func TestWithTracerSingle(t *testing.T) {
	cfg := newConfig(t)
	rec := &recordingTracer{}
	WithTracer(rec)(cfg)
	assert.Same(t, rec, cfg.ConnConfig.Tracer)

	cfg = newConfig(t)
	WithTracer()(cfg)
	assert.Nil(t, cfg.ConnConfig.Tracer)
}

func TestWithTracerCombinesLoggingAndRecording(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := log.New(buf, log.DebugLevel)
	rec := &recordingTracer{}

	cfg := newConfig(t)
	WithTracer(NewLogTracer(logger, log.DebugLevel), rec)(cfg)
	require.NotNil(t, cfg.ConnConfig.Tracer)

	cfg.ConnConfig.Tracer.TraceQueryStart(context.Background(), nil,
		pgx.TraceQueryStartData{SQL: "select 1"})
	assert.Equal(t, []string{"select 1"}, rec.sql)
	assert.Contains(t, buf.String(), "select 1")
}
