package postgres

import (
	"context"
	"fmt"
)

// PushToken appends token to the ring and keeps the newest max entries. The
// sub-select locks the row so concurrent logins of one user serialize and
// each sees the ring the previous one produced.
func (s *Store) PushToken(ctx context.Context, userID, token string, maxTokens int) ([]string, error) {
	var evicted []string
	err := s.pool.QueryRow(ctx, `
		UPDATE users u
		SET tokens = r.ring[greatest(cardinality(r.ring) - $3::int + 1, 1):], updated_at = now()
		FROM (
			SELECT id, array_append(array_remove(tokens, $2::text), $2::text) AS ring
			FROM users WHERE id = $1 FOR UPDATE
		) r
		WHERE u.id = r.id
		RETURNING r.ring[1:greatest(cardinality(r.ring) - $3::int, 0)]`,
		userID, token, maxTokens,
	).Scan(&evicted)
	if err != nil {
		return nil, notFoundWrap(err, "push token %s", userID)
	}
	return orEmpty(evicted), nil
}

func (s *Store) RemoveTokens(ctx context.Context, userID string, tokens ...string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET tokens = ARRAY(
			SELECT t FROM unnest(tokens) WITH ORDINALITY AS x(t, n)
			WHERE NOT (t = ANY($2::text[])) ORDER BY n
		)
		WHERE id = $1`,
		userID, pgTextArray(tokens))
	return execExpectOne(tag, err, "remove tokens %s", userID)
}

func (s *Store) RetainToken(ctx context.Context, userID, keep string) ([]string, error) {
	var removed []string
	err := s.pool.QueryRow(ctx, `
		UPDATE users u
		SET tokens = CASE WHEN $2::text <> '' AND $2::text = ANY(r.prev) THEN ARRAY[$2::text] ELSE '{}'::text[] END,
		    updated_at = now()
		FROM (SELECT id, tokens AS prev FROM users WHERE id = $1 FOR UPDATE) r
		WHERE u.id = r.id
		RETURNING ARRAY(SELECT t FROM unnest(r.prev) AS t WHERE t <> $2::text)`,
		userID, keep,
	).Scan(&removed)
	if err != nil {
		return nil, notFoundWrap(err, "retain token %s", userID)
	}
	return orEmpty(removed), nil
}

// PruneTokens drops tokens for which keep reports false from every ring and
// returns how many were removed. Used by the periodic ring sweep.
func (s *Store) PruneTokens(ctx context.Context, keep func(token string) bool) (int, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, tokens FROM users WHERE cardinality(tokens) > 0`)
	if err != nil {
		return 0, fmt.Errorf("prune tokens: %w", err)
	}
	type ring struct {
		id     string
		tokens []string
	}
	rings, err := collect(rows, func(r scannable) (ring, error) {
		var rg ring
		return rg, r.Scan(&rg.id, &rg.tokens)
	})
	if err != nil {
		return 0, fmt.Errorf("prune tokens: %w", err)
	}

	removed := 0
	for _, rg := range rings {
		var stale []string
		for _, t := range rg.tokens {
			if !keep(t) {
				stale = append(stale, t)
			}
		}
		if len(stale) == 0 {
			continue
		}
		if err := s.RemoveTokens(ctx, rg.id, stale...); err != nil {
			return removed, err
		}
		removed += len(stale)
	}
	return removed, nil
}
