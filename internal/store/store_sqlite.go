package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Check(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ranking(ctx context.Context, board string) ([]scoreboard.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, entry_key, client_id, name, score, updated_at
		FROM leaderboard_entries
		WHERE board = ?
		ORDER BY score DESC, seq
	`, board)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []scoreboard.Entry{}
	for rows.Next() {
		var e scoreboard.Entry
		var updatedAt string
		if err := rows.Scan(&e.Seq, &e.Key, &e.ClientID, &e.Name, &e.Score, &updatedAt); err != nil {
			return nil, err
		}
		if e.PlayedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at of %q: %w", e.Key, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Merge(ctx context.Context, b scoreboard.Board, e scoreboard.Entry) (scoreboard.Outcome, error) {
	set, op := updateClause(b)
	query := fmt.Sprintf(`
		INSERT INTO leaderboard_entries (board, entry_key, client_id, name, name_lower, score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (board, entry_key) DO UPDATE
		SET %s, revision = leaderboard_entries.revision + 1
		WHERE excluded.score %s leaderboard_entries.score
		RETURNING revision
	`, set, op)

	var revision int64
	err := s.db.QueryRowContext(ctx, query,
		b.Slug, e.Key, e.ClientID, e.Name, strings.ToLower(e.Name), e.Score,
		e.PlayedAt.UTC().Format(timeLayout),
	).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return scoreboard.Ignored, nil
	}
	if err != nil {
		return scoreboard.Ignored, err
	}
	return outcome(revision), nil
}

func (s *SQLiteStore) Ballots(ctx context.Context) ([]scoreboard.Ballot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, name, mvp, mas_perra, updated_at
		FROM survey_votes
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ballots := []scoreboard.Ballot{}
	for rows.Next() {
		var b scoreboard.Ballot
		var updatedAt string
		if err := rows.Scan(&b.Email, &b.Name, &b.MVP, &b.MasPerra, &updatedAt); err != nil {
			return nil, err
		}
		if b.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at of ballot: %w", err)
		}
		ballots = append(ballots, b)
	}
	return ballots, rows.Err()
}

func (s *SQLiteStore) PutBallot(ctx context.Context, b scoreboard.Ballot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO survey_votes (email_lower, email, name, mvp, mas_perra, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (email_lower) DO UPDATE SET
			email = excluded.email, name = excluded.name, mvp = excluded.mvp,
			mas_perra = excluded.mas_perra, updated_at = excluded.updated_at
	`, strings.ToLower(b.Email), b.Email, b.Name, b.MVP, b.MasPerra, b.UpdatedAt.UTC().Format(timeLayout))
	return err
}
