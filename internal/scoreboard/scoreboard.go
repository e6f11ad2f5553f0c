// Package scoreboard defines the leaderboard domain: attempts, persisted
// entries, the boards they belong to, and the merge rules that decide
// whether an attempt replaces a stored entry.
package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrLocalOnly means no backing store is configured. Callers keep
	// scores in their local fallback store instead.
	ErrLocalOnly = errors.New("no backing store configured")

	// ErrUnavailable wraps any backing store read or write failure.
	ErrUnavailable = errors.New("backing store unavailable")

	ErrUnknownBoard   = errors.New("unknown board")
	ErrInvalidAttempt = errors.New("invalid attempt")
	ErrInvalidBallot  = errors.New("invalid ballot")
)

// Variant selects the identity key of a board.
type Variant int

const (
	// BestPerName keeps one row per case-insensitive name.
	BestPerName Variant = iota + 1
	// BestPerAttempt keeps one row per client id.
	BestPerAttempt
)

func (v Variant) String() string {
	switch v {
	case BestPerName:
		return "best-per-name"
	case BestPerAttempt:
		return "best-per-attempt"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

func (v Variant) MarshalText() ([]byte, error) {
	if v != BestPerName && v != BestPerAttempt {
		return nil, fmt.Errorf("unknown variant %d", int(v))
	}
	return []byte(v.String()), nil
}

func (v *Variant) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "best-per-name", "name", "a":
		*v = BestPerName
	case "best-per-attempt", "attempt", "b":
		*v = BestPerAttempt
	default:
		return fmt.Errorf("unknown variant %q", b)
	}
	return nil
}

// Rule is the comparison a stored entry must lose before it is replaced.
type Rule int

const (
	ReplaceIfGreater Rule = iota + 1
	ReplaceIfGreaterOrEqual
)

// Replaces reports whether incoming beats stored under r.
func (r Rule) Replaces(incoming, stored int64) bool {
	if r == ReplaceIfGreaterOrEqual {
		return incoming >= stored
	}
	return incoming > stored
}

// Outcome is what a merge did to the store.
type Outcome int

const (
	Ignored Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "ignored"
	}
}

// Attempt is one scored play, sent once and then discarded.
type Attempt struct {
	ClientID string
	Name     string
	Score    int64
	PlayedAt time.Time
}

// Entry is a persisted row of a board.
type Entry struct {
	Key      string
	ClientID string
	Name     string
	Score    int64
	PlayedAt time.Time
	// Seq is the storage order used to break score ties.
	Seq int64
}

// Board is one configuration of the generic leaderboard.
type Board struct {
	Slug       string  `json:"slug"`
	Title      string  `json:"title"`
	Variant    Variant `json:"variant"`
	ScoreField string  `json:"scoreField"`
	TimeField  string  `json:"timeField"`
	// Flat boards also accept a single attempt as a bare JSON object.
	Flat bool `json:"flat"`
}

// Rule returns the merge rule for the board's variant.
func (b Board) Rule() Rule {
	if b.Variant == BestPerAttempt {
		return ReplaceIfGreaterOrEqual
	}
	return ReplaceIfGreater
}

// Key returns the identity key of a normalized attempt.
func (b Board) Key(a Attempt) string {
	if b.Variant == BestPerName {
		return strings.ToLower(a.Name)
	}
	return a.ClientID
}

// Entry converts a normalized attempt into the row it would persist as.
func (b Board) Entry(a Attempt) Entry {
	return Entry{
		Key:      b.Key(a),
		ClientID: a.ClientID,
		Name:     a.Name,
		Score:    a.Score,
		PlayedAt: a.PlayedAt,
	}
}

func (b Board) withDefaults() Board {
	if b.ScoreField == "" {
		b.ScoreField = "score"
	}
	if b.TimeField == "" {
		b.TimeField = "playedAt"
	}
	if b.Title == "" {
		b.Title = b.Slug
	}
	return b
}

// DefaultBoards returns the party site's leaderboards.
func DefaultBoards() []Board {
	return []Board{
		{Slug: "beerpong", Title: "Beer Pong", Variant: BestPerAttempt, ScoreField: "score", TimeField: "playedAt"},
		{Slug: "penales", Title: "Penales", Variant: BestPerAttempt, ScoreField: "goals", TimeField: "updatedAt", Flat: true},
		{Slug: "slots", Title: "Tragamonedas", Variant: BestPerName, ScoreField: "score", TimeField: "playedAt"},
	}
}

// ParseBoard parses "slug:variant[:scorefield[:flat]]".
func ParseBoard(s string) (Board, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || parts[0] == "" {
		return Board{}, fmt.Errorf("board %q: want slug:variant[:scorefield[:flat]]", s)
	}

	b := Board{Slug: strings.ToLower(parts[0])}
	if err := b.Variant.UnmarshalText([]byte(parts[1])); err != nil {
		return Board{}, fmt.Errorf("board %q: %w", s, err)
	}
	if len(parts) > 2 {
		b.ScoreField = parts[2]
	}
	if len(parts) > 3 {
		if parts[3] != "flat" {
			return Board{}, fmt.Errorf("board %q: unknown option %q", s, parts[3])
		}
		b.Flat = true
	}
	return b.withDefaults(), nil
}

// Store is the shared backing store.
//
// Merge must apply the board's rule atomically: insert when the key is
// new, otherwise replace only when b.Rule().Replaces(incoming, stored).
// BestPerName boards keep the stored display name and client id on update.
type Store interface {
	Ranking(ctx context.Context, board string) ([]Entry, error)
	Merge(ctx context.Context, b Board, e Entry) (Outcome, error)

	Ballots(ctx context.Context) ([]Ballot, error)
	PutBallot(ctx context.Context, b Ballot) error
}
