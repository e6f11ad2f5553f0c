package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// PostgresStore keeps boards in a hosted Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Check(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ranking(ctx context.Context, board string) ([]scoreboard.Entry, error) {
	const q = `
		SELECT seq, entry_key, client_id, name, score, updated_at
		FROM leaderboard_entries
		WHERE board = $1
		ORDER BY score DESC, seq
	`
	rows, err := s.pool.Query(ctx, q, board)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []scoreboard.Entry{}
	for rows.Next() {
		var e scoreboard.Entry
		if err := rows.Scan(&e.Seq, &e.Key, &e.ClientID, &e.Name, &e.Score, &e.PlayedAt); err != nil {
			return nil, err
		}
		e.PlayedAt = e.PlayedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Merge(ctx context.Context, b scoreboard.Board, e scoreboard.Entry) (scoreboard.Outcome, error) {
	set, op := updateClause(b)
	q := fmt.Sprintf(`
		INSERT INTO leaderboard_entries AS e (board, entry_key, client_id, name, name_lower, score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (board, entry_key) DO UPDATE
		SET %s, revision = e.revision + 1
		WHERE excluded.score %s e.score
		RETURNING revision
	`, set, op)

	var revision int64
	err := s.pool.QueryRow(ctx, q,
		b.Slug, e.Key, e.ClientID, e.Name, strings.ToLower(e.Name), e.Score, e.PlayedAt.UTC(),
	).Scan(&revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoreboard.Ignored, nil
	}
	if err != nil {
		return scoreboard.Ignored, err
	}
	return outcome(revision), nil
}

func (s *PostgresStore) Ballots(ctx context.Context) ([]scoreboard.Ballot, error) {
	const q = `
		SELECT email, name, mvp, mas_perra, updated_at
		FROM survey_votes
		ORDER BY updated_at DESC
	`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ballots := []scoreboard.Ballot{}
	for rows.Next() {
		var b scoreboard.Ballot
		if err := rows.Scan(&b.Email, &b.Name, &b.MVP, &b.MasPerra, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.UpdatedAt = b.UpdatedAt.UTC()
		ballots = append(ballots, b)
	}
	return ballots, rows.Err()
}

func (s *PostgresStore) PutBallot(ctx context.Context, b scoreboard.Ballot) error {
	const q = `
		INSERT INTO survey_votes (email_lower, email, name, mvp, mas_perra, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email_lower) DO UPDATE SET
			email = excluded.email, name = excluded.name, mvp = excluded.mvp,
			mas_perra = excluded.mas_perra, updated_at = excluded.updated_at
	`
	_, err := s.pool.Exec(ctx, q, strings.ToLower(b.Email), b.Email, b.Name, b.MVP, b.MasPerra, b.UpdatedAt.UTC())
	return err
}
