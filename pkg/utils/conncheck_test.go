package utils

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgresql://user:pw@db:5433/ars", "db:5433"},
		{"postgresql://user:pw@db/ars", "db:5432"},
		{"mysql://db/ars", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://localhost:3000", "localhost:3000"},
		{"http://localhost:3000/api", "localhost:3000"},
		{"https://example.com/api", "example.com:443"},
		{"http://example.com", "example.com:80"},
		{"ftp://example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromHTTPURL(tt.url))
		})
	}
}

func TestExtractFromNatsURL(t *testing.T) {
	assert.Equal(t, "nats:4222", ExtractFromNatsURL("nats://nats"))
	assert.Equal(t, "nats:4223", ExtractFromNatsURL("nats://user:pw@nats:4223"))
	assert.Equal(t, "", ExtractFromNatsURL("http://nats"))
}

func TestWaitForTCP(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	require.NoError(t, WaitForTCP(l.Addr().String(), time.Second))
}
