package client

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// Source says where a View's entries came from.
type Source int

const (
	// SourceRemote is a ranking the server just returned.
	SourceRemote Source = iota
	// SourceLocal is the device's own board; the server has no store.
	SourceLocal
	// SourceCache is the last remote ranking, shown while the server is
	// unreachable. Err holds the failure.
	SourceCache
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceCache:
		return "cache"
	default:
		return "remote"
	}
}

// View is what a player sees after a sync.
type View struct {
	Entries []scoreboard.Entry
	Source  Source
	// Pending counts attempts queued for the next successful sync.
	Pending int
	Err     error
}

// Syncer keeps a board usable whatever the server does: it falls back to
// the local board when the server has no store, and queues attempts and
// shows the cached ranking when the server fails. Queued attempts are sent
// again as one batch on the next call.
type Syncer struct {
	client *Client
	local  LocalStore
	logger *slog.Logger
	now    func() time.Time
}

// maxPending bounds the offline queue so a resend stays well under the
// server's request body limit. The oldest attempts go first.
const maxPending = 1000

func NewSyncer(c *Client, local LocalStore, logger *slog.Logger) *Syncer {
	return &Syncer{client: c, local: local, logger: logger, now: time.Now}
}

// Ranking fetches b's ranking, flushing queued attempts first.
func (s *Syncer) Ranking(ctx context.Context, b scoreboard.Board) View {
	return s.sync(ctx, b, nil)
}

// Submit records one attempt. Invalid attempts are refused before any
// network traffic.
func (s *Syncer) Submit(ctx context.Context, b scoreboard.Board, a scoreboard.Attempt) View {
	n, err := b.Normalize(a, s.now())
	if err != nil {
		return View{Err: err}
	}
	return s.sync(ctx, b, &n)
}

// Flush sends queued attempts and reports how many were delivered.
func (s *Syncer) Flush(ctx context.Context, b scoreboard.Board) (int, error) {
	pending, err := s.local.LoadPending(b.Slug)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	if v := s.sync(ctx, b, nil); v.Err != nil {
		return 0, v.Err
	}
	return len(pending), nil
}

func (s *Syncer) sync(ctx context.Context, b scoreboard.Board, a *scoreboard.Attempt) View {
	pending, err := s.local.LoadPending(b.Slug)
	if err != nil {
		return View{Source: SourceCache, Err: err}
	}
	batch := pending
	if a != nil {
		batch = append(slices.Clone(pending), *a)
	}

	var entries []scoreboard.Entry
	if len(batch) > 0 {
		entries, err = s.client.Submit(ctx, b, batch)
	} else {
		entries, err = s.client.Fetch(ctx, b)
	}

	switch {
	case err == nil:
		if len(pending) > 0 {
			s.logger.Info("queued attempts delivered", "board", b.Slug, "count", len(pending))
		}
		if err := s.local.SavePending(b.Slug, nil); err != nil {
			return View{Entries: entries, Source: SourceRemote, Pending: len(pending), Err: err}
		}
		if err := s.local.SaveCache(b.Slug, entries); err != nil {
			s.logger.Warn("caching ranking", "board", b.Slug, "error", err)
		}
		return View{Entries: entries, Source: SourceRemote}

	case errors.Is(err, ErrLocalOnly):
		return s.applyLocal(b, batch)

	case rejected(err):
		// Resending the same batch would fail the same way.
		s.logger.Warn("batch rejected, dropping queued attempts", "board", b.Slug, "count", len(batch), "error", err)
		if qerr := s.local.SavePending(b.Slug, nil); qerr != nil {
			err = errors.Join(err, qerr)
		}
		cached, cerr := s.local.LoadCache(b.Slug)
		if cerr != nil {
			err = errors.Join(err, cerr)
		}
		return View{Entries: cached, Source: SourceCache, Err: err}

	default:
		s.logger.Warn("leaderboard unavailable", "board", b.Slug, "error", err)
		if len(batch) > maxPending {
			s.logger.Warn("offline queue full, dropping oldest attempts", "board", b.Slug, "dropped", len(batch)-maxPending)
			batch = batch[len(batch)-maxPending:]
		}
		if a != nil {
			if qerr := s.local.SavePending(b.Slug, batch); qerr != nil {
				return View{Source: SourceCache, Err: errors.Join(err, qerr)}
			}
		}
		cached, cerr := s.local.LoadCache(b.Slug)
		if cerr != nil {
			return View{Source: SourceCache, Err: errors.Join(err, cerr)}
		}
		// Show queued attempts as if accepted so the player sees their score.
		for _, p := range batch {
			cached, _ = scoreboard.Apply(b, cached, b.Entry(p))
		}
		scoreboard.SortRanking(cached)
		return View{Entries: cached, Source: SourceCache, Pending: len(batch), Err: err}
	}
}

// applyLocal merges batch into the device's own board with the same rule
// the server uses.
func (s *Syncer) applyLocal(b scoreboard.Board, batch []scoreboard.Attempt) View {
	entries, err := s.local.Load(b.Slug)
	if err != nil {
		return View{Source: SourceLocal, Err: err}
	}
	now := s.now()
	for _, a := range batch {
		n, err := b.Normalize(a, now)
		if err != nil {
			continue
		}
		entries, _ = scoreboard.Apply(b, entries, b.Entry(n))
	}
	if len(batch) > 0 {
		if err := s.local.Save(b.Slug, entries); err != nil {
			return View{Source: SourceLocal, Pending: len(batch), Err: err}
		}
		if err := s.local.SavePending(b.Slug, nil); err != nil {
			return View{Entries: entries, Source: SourceLocal, Pending: len(batch), Err: err}
		}
	}
	scoreboard.SortRanking(entries)
	return View{Entries: entries, Source: SourceLocal}
}

// Vote casts a ballot, keeping it on the device when the server has no
// store. Local ballots replace earlier ones with the same email.
func (s *Syncer) Vote(ctx context.Context, b Ballot) ([]Ballot, Source, error) {
	votes, err := s.client.Vote(ctx, b)
	if err == nil {
		return votes, SourceRemote, nil
	}
	if !errors.Is(err, ErrLocalOnly) {
		return nil, SourceRemote, err
	}

	nb, err := scoreboard.NormalizeBallot(scoreboard.Ballot{
		Email: b.Email, Name: b.Name, MVP: b.MVP, MasPerra: b.MasPerra,
	}, s.now())
	if err != nil {
		return nil, SourceLocal, err
	}

	local, err := s.local.LoadVotes()
	if err != nil {
		return nil, SourceLocal, err
	}
	local = slices.DeleteFunc(local, func(v Ballot) bool {
		return strings.EqualFold(v.Email, nb.Email)
	})
	local = append(local, Ballot{
		Email: nb.Email, Name: nb.Name, MVP: nb.MVP, MasPerra: nb.MasPerra,
		Timestamp: nb.UpdatedAt.UnixMilli(),
	})
	slices.SortStableFunc(local, func(x, y Ballot) int { return cmp.Compare(y.Timestamp, x.Timestamp) })

	if err := s.local.SaveVotes(local); err != nil {
		return nil, SourceLocal, err
	}
	return local, SourceLocal, nil
}

// rejected reports a client error answer: the server will refuse the same
// request again, so there is no point in queueing it.
func rejected(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500
}

func sortBySeq(entries []scoreboard.Entry) {
	slices.SortStableFunc(entries, func(a, b scoreboard.Entry) int { return cmp.Compare(a.Seq, b.Seq) })
}
