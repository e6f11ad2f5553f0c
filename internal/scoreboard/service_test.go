package scoreboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store serialized by one mutex.
type memStore struct {
	mu       sync.Mutex
	boards   map[string][]Entry
	ballots  map[string]Ballot
	failNext int
}

func newMemStore() *memStore {
	return &memStore{boards: map[string][]Entry{}, ballots: map[string]Ballot{}}
}

func (m *memStore) Ranking(_ context.Context, board string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Entry(nil), m.boards[board]...)
	SortRanking(out)
	return out, nil
}

func (m *memStore) Merge(_ context.Context, b Board, e Entry) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return Ignored, errors.New("connection reset")
	}
	var out Outcome
	m.boards[b.Slug], out = Apply(b, m.boards[b.Slug], e)
	return out, nil
}

func (m *memStore) Ballots(_ context.Context) ([]Ballot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Ballot
	for _, b := range m.ballots {
		out = append(out, b)
	}
	return out, nil
}

func (m *memStore) PutBallot(_ context.Context, b Ballot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ballots[b.Email] = b
	return nil
}

type downStore struct{}

func (downStore) Ranking(context.Context, string) ([]Entry, error) {
	return nil, errors.New("dial tcp: connection refused")
}
func (downStore) Merge(context.Context, Board, Entry) (Outcome, error) {
	return Ignored, errors.New("dial tcp: connection refused")
}
func (downStore) Ballots(context.Context) ([]Ballot, error) {
	return nil, errors.New("dial tcp: connection refused")
}
func (downStore) PutBallot(context.Context, Ballot) error {
	return errors.New("dial tcp: connection refused")
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	clock := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	svc, err := NewService(store, DefaultBoards(), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func submit(t *testing.T, svc *Service, board string, attempts ...Attempt) SubmitResult {
	t.Helper()
	res, err := svc.Submit(context.Background(), board, attempts)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return res
}

func TestNewServiceRejectsDuplicateBoards(t *testing.T) {
	_, err := NewService(nil, []Board{{Slug: "x", Variant: BestPerName}, {Slug: "x", Variant: BestPerAttempt}})
	if err == nil {
		t.Fatal("expected error for duplicate slug")
	}
}

func TestSubmitMonotonicMerge(t *testing.T) {
	for _, slug := range []string{"beerpong", "slots"} {
		t.Run(slug, func(t *testing.T) {
			svc := newTestService(t, newMemStore())

			submit(t, svc, slug, Attempt{ClientID: "a1", Name: "Rodri", Score: 20})
			res := submit(t, svc, slug, Attempt{ClientID: "a1", Name: "Rodri", Score: 5})
			if res.Ignored != 1 {
				t.Errorf("ignored = %d, want 1", res.Ignored)
			}
			if got := res.Ranking[0].Score; got != 20 {
				t.Fatalf("score after lower submit = %d, want 20", got)
			}

			res = submit(t, svc, slug, Attempt{ClientID: "a1", Name: "Rodri", Score: 21})
			if got := res.Ranking[0].Score; got != 21 {
				t.Fatalf("score after higher submit = %d, want 21", got)
			}
			if len(res.Ranking) != 1 {
				t.Fatalf("len = %d, want 1", len(res.Ranking))
			}
		})
	}
}

func TestSubmitIdempotent(t *testing.T) {
	svc := newTestService(t, newMemStore())
	a := Attempt{ClientID: "a1", Name: "Rodri", Score: 9, PlayedAt: time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)}

	once := submit(t, svc, "beerpong", a).Ranking
	twice := submit(t, svc, "beerpong", a).Ranking

	if len(once) != len(twice) {
		t.Fatalf("len %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("entry %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestSubmitSanitizes(t *testing.T) {
	svc := newTestService(t, newMemStore())

	res := submit(t, svc, "beerpong",
		Attempt{ClientID: "neg", Name: "Pepe", Score: -5},
		Attempt{ClientID: "blank", Name: "   ", Score: 50},
	)
	if res.Rejected != 1 {
		t.Errorf("rejected = %d, want 1", res.Rejected)
	}
	if len(res.Ranking) != 1 {
		t.Fatalf("len = %d, want 1", len(res.Ranking))
	}
	if got := res.Ranking[0]; got.Name != "Pepe" || got.Score != 0 {
		t.Errorf("got %+v, want Pepe with 0", got)
	}
}

func TestSubmitBatchIndependence(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	res := submit(t, svc, "beerpong",
		Attempt{ClientID: "a", Name: "Ana", Score: 3},
		Attempt{ClientID: "b", Name: "", Score: 8},
		Attempt{ClientID: "c", Name: "Caro", Score: 6},
	)
	if res.Inserted != 2 || res.Rejected != 1 {
		t.Errorf("inserted=%d rejected=%d, want 2 and 1", res.Inserted, res.Rejected)
	}
	if len(res.Ranking) != 2 || res.Ranking[0].Name != "Caro" || res.Ranking[1].Name != "Ana" {
		t.Errorf("ranking = %+v", res.Ranking)
	}

	store.failNext = 1
	res = submit(t, svc, "beerpong",
		Attempt{ClientID: "d", Name: "Dani", Score: 1},
		Attempt{ClientID: "e", Name: "Eli", Score: 2},
	)
	if res.Failed != 1 || res.Inserted != 1 {
		t.Errorf("failed=%d inserted=%d, want 1 and 1", res.Failed, res.Inserted)
	}
	if len(res.Ranking) != 3 {
		t.Errorf("len = %d, want 3", len(res.Ranking))
	}
}

func TestScenarioAttemptNumbering(t *testing.T) {
	svc := newTestService(t, newMemStore())

	submit(t, svc, "beerpong", Attempt{ClientID: "a1", Name: "Rodri", Score: 10})
	submit(t, svc, "beerpong", Attempt{ClientID: "a2", Name: "Rodri", Score: 7})

	ranking, err := svc.Ranking(context.Background(), "beerpong")
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranking) != 2 {
		t.Fatalf("len = %d, want 2", len(ranking))
	}
	if ranking[0].Score != 10 || ranking[1].Score != 7 {
		t.Errorf("scores = %d, %d, want 10, 7", ranking[0].Score, ranking[1].Score)
	}
	for _, e := range ranking {
		if e.Name != "Rodri" {
			t.Errorf("name = %q, want Rodri", e.Name)
		}
	}
}

func TestScenarioBestPerName(t *testing.T) {
	svc := newTestService(t, newMemStore())

	submit(t, svc, "slots", Attempt{Name: "Rodri", Score: 10})
	submit(t, svc, "slots", Attempt{Name: "rodri", Score: 15})

	ranking, err := svc.Ranking(context.Background(), "slots")
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if len(ranking) != 1 {
		t.Fatalf("len = %d, want 1", len(ranking))
	}
	if ranking[0].Name != "Rodri" || ranking[0].Score != 15 {
		t.Errorf("got %+v, want Rodri with 15", ranking[0])
	}
}

func TestSortInvariantAcrossSubmissions(t *testing.T) {
	svc := newTestService(t, newMemStore())
	scores := []int64{3, 9, 1, 9, 4, 0, 12, 4}
	for i, s := range scores {
		res := submit(t, svc, "beerpong", Attempt{ClientID: NewClientID("t"), Name: "P", Score: s})
		for j := 1; j < len(res.Ranking); j++ {
			if res.Ranking[j].Score > res.Ranking[j-1].Score {
				t.Fatalf("after submit %d: not descending at %d", i, j)
			}
		}
	}
}

func TestLocalOnly(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if !svc.LocalOnly() {
		t.Fatal("LocalOnly = false, want true")
	}
	if _, err := svc.Ranking(ctx, "beerpong"); !errors.Is(err, ErrLocalOnly) {
		t.Errorf("Ranking err = %v, want ErrLocalOnly", err)
	}
	if _, err := svc.Submit(ctx, "beerpong", []Attempt{{ClientID: "a", Name: "A", Score: 1}}); !errors.Is(err, ErrLocalOnly) {
		t.Errorf("Submit err = %v, want ErrLocalOnly", err)
	}
	if _, err := svc.Vote(ctx, Ballot{}); !errors.Is(err, ErrLocalOnly) {
		t.Errorf("Vote err = %v, want ErrLocalOnly", err)
	}
}

func TestStoreUnavailable(t *testing.T) {
	svc := newTestService(t, downStore{})
	ctx := context.Background()

	if _, err := svc.Ranking(ctx, "beerpong"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ranking err = %v, want ErrUnavailable", err)
	}
	if _, err := svc.Submit(ctx, "beerpong", []Attempt{{ClientID: "a", Name: "A", Score: 1}}); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Submit err = %v, want ErrUnavailable", err)
	}
	if _, err := svc.Tally(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Tally err = %v, want ErrUnavailable", err)
	}
}

func TestUnknownBoard(t *testing.T) {
	svc := newTestService(t, newMemStore())
	if _, err := svc.Ranking(context.Background(), "darts"); !errors.Is(err, ErrUnknownBoard) {
		t.Errorf("err = %v, want ErrUnknownBoard", err)
	}
}

func TestEmptyRankingIsNotNil(t *testing.T) {
	svc := newTestService(t, newMemStore())
	ranking, err := svc.Ranking(context.Background(), "penales")
	if err != nil {
		t.Fatalf("ranking: %v", err)
	}
	if ranking == nil {
		t.Error("ranking is nil, want empty slice")
	}
}

func TestVoteReplacesByEmail(t *testing.T) {
	svc := newTestService(t, newMemStore())
	ctx := context.Background()

	if _, err := svc.Vote(ctx, Ballot{Email: "Rodri@Example.com", Name: "Rodri", MVP: "Fer", MasPerra: "Lucho"}); err != nil {
		t.Fatalf("vote: %v", err)
	}
	ballots, err := svc.Vote(ctx, Ballot{Email: " rodri@example.com ", Name: "Rodri", MVP: "Nico", MasPerra: "Lucho"})
	if err != nil {
		t.Fatalf("second vote: %v", err)
	}
	if len(ballots) != 1 {
		t.Fatalf("len = %d, want 1", len(ballots))
	}
	if ballots[0].MVP != "Nico" {
		t.Errorf("mvp = %q, want Nico", ballots[0].MVP)
	}

	_, err = svc.Vote(ctx, Ballot{Email: "nope", Name: "X", MVP: "Y", MasPerra: "Z"})
	if !errors.Is(err, ErrInvalidBallot) {
		t.Errorf("err = %v, want ErrInvalidBallot", err)
	}
}
