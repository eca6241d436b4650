//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/async-race-service/pkg/db/migrate"
	database "github.com/mpapenbr/async-race-service/pkg/db/postgres"
)

// SetupTestDB starts (or reuses) the race database container and returns a
// pool for the migrated database.
func SetupTestDB() *pgxpool.Pool {
	ctx := context.Background()
	container, err := StartRaceDB(ctx)
	if err != nil {
		log.Fatal(err)
	}
	dbURL, err := container.DBURL(ctx)
	if err != nil {
		log.Fatal(err)
	}
	return migrateAndConnect(dbURL)
}

// SetupExternalTestDB uses the database referenced by TESTDB_URL.
func SetupExternalTestDB() *pgxpool.Pool {
	return migrateAndConnect(os.Getenv("TESTDB_URL"))
}

func migrateAndConnect(dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDB(dbURL); err != nil {
		log.Fatal(err)
	}
	return database.InitWithURL(dbURL)
}

func ClearSessionTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from race_session")
}

func ClearWinnerTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from winner")
}

func ClearCarTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from car")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearSessionTable(pool)
	ClearWinnerTable(pool)
	ClearCarTable(pool)
}
