package migrate

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/example/club-scheduler/internal/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Up applies pending migrations. goose wants a *sql.DB, so the pgx pool is
// adapted through the stdlib driver for the duration of the run.
func Up(ctx context.Context, d *db.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	goose.SetBaseFS(migrations)

	sqldb := stdlib.OpenDBFromPool(d.Pool())
	defer sqldb.Close()

	if err := goose.UpContext(ctx, sqldb, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
