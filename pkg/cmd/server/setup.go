package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/async-race-service/log"
	"github.com/mpapenbr/async-race-service/pkg/config"
	"github.com/mpapenbr/async-race-service/pkg/db/migrate"
	"github.com/mpapenbr/async-race-service/pkg/db/postgres"
	natsPublish "github.com/mpapenbr/async-race-service/pkg/publish/nats"
	"github.com/mpapenbr/async-race-service/pkg/race"
	"github.com/mpapenbr/async-race-service/pkg/repository/api"
	"github.com/mpapenbr/async-race-service/pkg/repository/memory"
	pgRepos "github.com/mpapenbr/async-race-service/pkg/repository/postgres"
	"github.com/mpapenbr/async-race-service/pkg/repository/rest"
)

// backend bundles the storage selected by config.Store.
type backend struct {
	repos api.Repositories
	tx    api.TransactionManager
	close func()
}

//nolint:whitespace // editor/linter issue
func newBackend(ctx context.Context, pgOpts ...postgres.PoolConfigOption) (
	*backend, error,
) {
	switch config.Store {
	case "", "memory":
		return &backend{repos: memory.NewRepositories(), close: func() {}}, nil
	case "postgres":
		if err := migrate.MigrateDB(config.DB); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		pool, err := postgres.NewPool(ctx, config.DB, pgOpts...)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		return &backend{
			repos: pgRepos.NewRepositoriesFromPool(pool),
			tx:    pgRepos.NewTransactionManagerFromPool(pool),
			close: pool.Close,
		}, nil
	case "rest":
		if config.APIURL == "" {
			return nil, errors.New("store rest requires an api url")
		}
		return &backend{
			repos: rest.NewRepositories(config.APIURL),
			close: func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", config.Store)
	}
}

func (b *backend) managerOptions() []race.Option {
	opts := []race.Option{race.WithRepositories(b.repos)}
	if b.tx != nil {
		opts = append(opts, race.WithTransactionManager(b.tx))
	}
	return opts
}

// startPublisher forwards race events to NATS. It returns the connection
// to be drained on shutdown.
func startPublisher(ctx context.Context, m *race.Manager) (*nats.Conn, error) {
	conn, err := nats.Connect(config.NatsURL,
		nats.Name("ars-"+uuid.New().String()),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", log.ErrorField(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", log.String("url", c.ConnectedUrl()))
		}))
	if err != nil {
		return nil, err
	}
	pub, err := natsPublish.NewPublisher(conn,
		natsPublish.WithContext(ctx),
		natsPublish.WithSessionProvider(m.Session),
		natsPublish.WithLogger(log.Default().Named("nats")))
	if err != nil {
		conn.Close()
		return nil, err
	}
	go pub.Run(m.Subscribe())
	return conn, nil
}
