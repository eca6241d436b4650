package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Rules(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "global level only",
			cfg:  Config{Level: "warn"},
			want: "warn+:*",
		},
		{
			name: "empty level defaults to info",
			cfg:  Config{},
			want: "info+:*",
		},
		{
			name: "named loggers sorted",
			cfg: Config{
				Level:   "info",
				Loggers: map[string]string{"race.engine": "debug", "nats": "debug"},
			},
			want: "info+:* debug+:nats* debug+:race.engine*",
		},
		{
			name: "raw filter appended",
			cfg:  Config{Level: "error", Filter: "debug+:http*"},
			want: "error+:* debug+:http*",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Rules())
		})
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
level: warn
format: text
loggers:
  race.engine: debug
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, map[string]string{"race.engine": "debug"}, cfg.Loggers)
}

func TestNewWithFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := NewWithFilter(buf, InfoLevel, "json", "info+:* debug+:race.engine*")
	require.NoError(t, err)

	l.Named("race").Named("engine").Debug("engine debug")
	l.Named("race").Named("ledger").Debug("ledger debug")
	l.Named("race").Named("ledger").Info("ledger info")
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.True(t, strings.Contains(out, "engine debug"))
	assert.False(t, strings.Contains(out, "ledger debug"))
	assert.True(t, strings.Contains(out, "ledger info"))
}

func TestApplyConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	l, err := NewWithFilter(buf, InfoLevel, "json", "info+:*")
	require.NoError(t, err)
	ledger := l.Named("race").Named("ledger")

	ledger.Debug("before reload")
	require.NoError(t, l.ApplyConfig(&Config{
		Level:   "info",
		Loggers: map[string]string{"race.ledger": "debug"},
	}))
	ledger.Debug("after reload")
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.False(t, strings.Contains(out, "before reload"))
	assert.True(t, strings.Contains(out, "after reload"))

	assert.ErrorIs(t, New(buf, InfoLevel).ApplyConfig(&Config{}), ErrNoFilter)
}
