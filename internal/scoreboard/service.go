package scoreboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock replaces time.Now for stamping attempts and ballots.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service syncs attempts from clients into the backing store. A nil store
// puts every operation in local-only mode: they return ErrLocalOnly before
// touching anything else.
type Service struct {
	store  Store
	boards map[string]Board
	order  []string
	now    func() time.Time
	logger *slog.Logger
}

func NewService(store Store, boards []Board, opts ...Option) (*Service, error) {
	s := &Service{
		store:  store,
		boards: make(map[string]Board, len(boards)),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, b := range boards {
		b = b.withDefaults()
		if b.Slug == "" {
			return nil, errors.New("board with empty slug")
		}
		if _, dup := s.boards[b.Slug]; dup {
			return nil, fmt.Errorf("duplicate board %q", b.Slug)
		}
		s.boards[b.Slug] = b
		s.order = append(s.order, b.Slug)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LocalOnly reports whether clients must persist scores themselves.
func (s *Service) LocalOnly() bool { return s.store == nil }

func (s *Service) Board(slug string) (Board, error) {
	b, ok := s.boards[slug]
	if !ok {
		return Board{}, fmt.Errorf("%w: %q", ErrUnknownBoard, slug)
	}
	return b, nil
}

// Boards returns the configured boards in declaration order.
func (s *Service) Boards() []Board {
	out := make([]Board, 0, len(s.order))
	for _, slug := range s.order {
		out = append(out, s.boards[slug])
	}
	return out
}

// Ranking returns the board's entries by score descending. An empty board
// yields an empty, non-nil slice.
func (s *Service) Ranking(ctx context.Context, slug string) ([]Entry, error) {
	if _, err := s.Board(slug); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrLocalOnly
	}

	entries, err := s.store.Ranking(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrUnavailable, slug, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	SortRanking(entries)
	return entries, nil
}

// SubmitResult is the recomputed ranking plus what happened to each
// attempt of the batch.
type SubmitResult struct {
	Ranking  []Entry
	Inserted int
	Updated  int
	Ignored  int
	Rejected int
	Failed   int
}

// Changed reports whether any attempt was written.
func (r SubmitResult) Changed() bool { return r.Inserted+r.Updated > 0 }

// Submit merges each attempt independently and returns the recomputed
// ranking. Invalid attempts and attempts whose write fails are counted and
// skipped; they never abort the rest of the batch. An empty batch is a
// plain read.
func (s *Service) Submit(ctx context.Context, slug string, attempts []Attempt) (SubmitResult, error) {
	b, err := s.Board(slug)
	if err != nil {
		return SubmitResult{}, err
	}
	if s.store == nil {
		return SubmitResult{}, ErrLocalOnly
	}

	var res SubmitResult
	now := s.now()
	for _, a := range attempts {
		n, err := b.Normalize(a, now)
		if err != nil {
			res.Rejected++
			s.logger.Debug("attempt rejected", "board", slug, "error", err)
			continue
		}

		out, err := s.store.Merge(ctx, b, b.Entry(n))
		if err != nil {
			res.Failed++
			s.logger.Error("merging attempt", "board", slug, "key", b.Key(n), "error", err)
			continue
		}
		switch out {
		case Inserted:
			res.Inserted++
		case Updated:
			res.Updated++
		default:
			res.Ignored++
		}
	}

	res.Ranking, err = s.Ranking(ctx, slug)
	if err != nil {
		return SubmitResult{}, err
	}
	return res, nil
}

// Ballots returns every survey ballot, newest first.
func (s *Service) Ballots(ctx context.Context) ([]Ballot, error) {
	if s.store == nil {
		return nil, ErrLocalOnly
	}
	ballots, err := s.store.Ballots(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading ballots: %w", ErrUnavailable, err)
	}
	if ballots == nil {
		ballots = []Ballot{}
	}
	SortBallots(ballots)
	return ballots, nil
}

// Vote stores b, replacing any earlier ballot with the same email, and
// returns every ballot.
func (s *Service) Vote(ctx context.Context, b Ballot) ([]Ballot, error) {
	if s.store == nil {
		return nil, ErrLocalOnly
	}
	b, err := NormalizeBallot(b, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.PutBallot(ctx, b); err != nil {
		return nil, fmt.Errorf("%w: writing ballot: %w", ErrUnavailable, err)
	}
	return s.Ballots(ctx)
}

func (s *Service) Tally(ctx context.Context) (Tally, error) {
	ballots, err := s.Ballots(ctx)
	if err != nil {
		return Tally{}, err
	}
	return TallyBallots(ballots), nil
}
