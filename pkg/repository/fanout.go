package repository

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"
)

// FanOut runs fn once per key, each call on its own pooled connection, with
// at most limit calls in flight. The first error cancels the remaining calls.
func FanOut[K comparable, V any](
	ctx context.Context,
	db *sql.DB,
	limit int,
	keys []K,
	fn func(ctx context.Context, conn *sql.Conn, key K) (V, error),
) (map[K]V, error) {
	results := make([]V, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, key := range keys {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			v, err := WithConn(gctx, db, func(conn *sql.Conn) (V, error) {
				return fn(gctx, conn, key)
			})
			if err != nil {
				return err
			}

			results[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[K]V, len(keys))
	for i, key := range keys {
		out[key] = results[i]
	}
	return out, nil
}
