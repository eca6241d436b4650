package tcpostgres

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultImage    = "postgres:17-alpine"
	defaultUser     = "asyncrace"
	defaultPassword = "asyncrace"
	defaultDB       = "asyncrace"
	containerName   = "async-race-service-test"
)

var postgresPort = nat.Port("5432/tcp")

// RaceDBContainer is a reusable postgres container holding the race database.
type RaceDBContainer struct {
	testcontainers.Container
	user     string
	password string
	db       string
}

type (
	ContainerOption func(*containerConfig)
	containerConfig struct {
		image    string
		user     string
		password string
		db       string
		timeout  time.Duration
	}
)

// WithImage overrides the postgres image. TESTDB_IMAGE has the same effect.
func WithImage(image string) ContainerOption {
	return func(c *containerConfig) {
		c.image = image
	}
}

func WithCredentials(user, password string) ContainerOption {
	return func(c *containerConfig) {
		c.user = user
		c.password = password
	}
}

func WithDatabase(db string) ContainerOption {
	return func(c *containerConfig) {
		c.db = db
	}
}

func WithStartupTimeout(d time.Duration) ContainerOption {
	return func(c *containerConfig) {
		c.timeout = d
	}
}

func newContainerConfig(opts ...ContainerOption) *containerConfig {
	ret := &containerConfig{
		image:    defaultImage,
		user:     defaultUser,
		password: defaultPassword,
		db:       defaultDB,
		timeout:  30 * time.Second,
	}
	if image := os.Getenv("TESTDB_IMAGE"); image != "" {
		ret.image = image
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (c *containerConfig) request() testcontainers.ContainerRequest {
	return testcontainers.ContainerRequest{
		Name:         containerName,
		Image:        c.image,
		ExposedPorts: []string{string(postgresPort)},
		Env: map[string]string{
			"POSTGRES_USER":     c.user,
			"POSTGRES_PASSWORD": c.password,
			"POSTGRES_DB":       c.db,
		},
		Cmd: []string{"postgres", "-c", "fsync=off", "-c", "synchronous_commit=off"},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
			wait.ForListeningPort(postgresPort),
		).WithDeadline(c.timeout),
	}
}

// StartRaceDB starts the race database container or reuses a running one.
func StartRaceDB(ctx context.Context, opts ...ContainerOption) (*RaceDBContainer, error) {
	cfg := newContainerConfig(opts...)
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: cfg.request(),
			Started:          true,
			Reuse:            true,
		})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.image, err)
	}
	return &RaceDBContainer{
		Container: container,
		user:      cfg.user,
		password:  cfg.password,
		db:        cfg.db,
	}, nil
}

// DBURL returns the connection string of the mapped database port.
func (c *RaceDBContainer) DBURL(ctx context.Context) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := c.MappedPort(ctx, postgresPort)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.user, c.password, host, port.Port(), c.db), nil
}
