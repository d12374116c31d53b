package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

// NewPool opens a pgx pool with the pgvector types registered on every
// connection. The vector extension is created up front on a throwaway
// connection because type registration on pooled connections requires the
// extension to already exist.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	boot, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := boot.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		_ = boot.Close(ctx)
		return nil, err
	}
	if err := boot.Close(ctx); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}
