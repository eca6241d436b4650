package tcpostgres

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestContainerRequestDefaults(t *testing.T) {
	t.Setenv("TESTDB_IMAGE", "")
	req := newContainerConfig().request()

	assert.Equal(t, req.Image, defaultImage)
	assert.Equal(t, req.Name, containerName)
	assert.DeepEqual(t, req.ExposedPorts, []string{"5432/tcp"})
	assert.DeepEqual(t, req.Env, map[string]string{
		"POSTGRES_USER":     "asyncrace",
		"POSTGRES_PASSWORD": "asyncrace",
		"POSTGRES_DB":       "asyncrace",
	})
	assert.Check(t, req.WaitingFor != nil)
}

func TestContainerRequestOptions(t *testing.T) {
	t.Setenv("TESTDB_IMAGE", "postgres:16")
	cfg := newContainerConfig()
	assert.Equal(t, cfg.image, "postgres:16")

	cfg = newContainerConfig(
		WithImage("postgres:15"),
		WithCredentials("u", "p"),
		WithDatabase("races"),
		WithStartupTimeout(time.Second),
	)
	req := cfg.request()
	assert.Equal(t, req.Image, "postgres:15")
	assert.Equal(t, req.Env["POSTGRES_DB"], "races")
	assert.Equal(t, req.Env["POSTGRES_USER"], "u")
	assert.Equal(t, cfg.timeout, time.Second)
	assert.Check(t, is.Contains(req.Cmd, "fsync=off"))
}
