package db

import (
	"context"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies all pending goose migrations from the given filesystem.
// Each service embeds its own migrations directory. The *sql.DB handle is
// borrowed from the pool and released via provider close.
func Migrate(ctx context.Context, pool *Pool, fsys fs.FS) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, stdlib.OpenDBFromPool(pool.Pool), fsys)
	if err != nil {
		return err
	}
	defer func() { _ = provider.Close() }()

	_, err = provider.Up(ctx)
	return err
}
