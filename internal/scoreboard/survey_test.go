package scoreboard

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeBallot(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	valid := Ballot{Email: " Rodri@Example.COM ", Name: " Rodri ", MVP: "Fer", MasPerra: "Lucho"}

	got, err := NormalizeBallot(valid, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "rodri@example.com" || got.Name != "Rodri" {
		t.Errorf("got %+v", got)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("updatedAt = %v, want %v", got.UpdatedAt, now)
	}

	tests := []struct {
		name string
		in   Ballot
	}{
		{"missing email", Ballot{Name: "R", MVP: "F", MasPerra: "L"}},
		{"bad email", Ballot{Email: "rodri", Name: "R", MVP: "F", MasPerra: "L"}},
		{"blank name", Ballot{Email: "r@x.com", Name: "  ", MVP: "F", MasPerra: "L"}},
		{"blank mvp", Ballot{Email: "r@x.com", Name: "R", MVP: "", MasPerra: "L"}},
		{"blank mas perra", Ballot{Email: "r@x.com", Name: "R", MVP: "F", MasPerra: " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NormalizeBallot(tt.in, now); !errors.Is(err, ErrInvalidBallot) {
				t.Errorf("err = %v, want ErrInvalidBallot", err)
			}
		})
	}
}

func TestTallyBallots(t *testing.T) {
	ballots := []Ballot{
		{Email: "a@x.com", MVP: "Fer", MasPerra: "Lucho"},
		{Email: "b@x.com", MVP: "Nico", MasPerra: "Lucho"},
		{Email: "c@x.com", MVP: "Fer", MasPerra: "Beto"},
		{Email: "d@x.com", MVP: "Ale", MasPerra: "Beto"},
	}
	tally := TallyBallots(ballots)

	if tally.Voters != 4 {
		t.Errorf("voters = %d, want 4", tally.Voters)
	}
	wantMVP := []Count{{"Fer", 2}, {"Ale", 1}, {"Nico", 1}}
	if len(tally.MVP) != len(wantMVP) {
		t.Fatalf("mvp = %+v", tally.MVP)
	}
	for i, c := range wantMVP {
		if tally.MVP[i] != c {
			t.Errorf("mvp[%d] = %+v, want %+v", i, tally.MVP[i], c)
		}
	}
	wantPerra := []Count{{"Beto", 2}, {"Lucho", 2}}
	for i, c := range wantPerra {
		if tally.MasPerra[i] != c {
			t.Errorf("masPerra[%d] = %+v, want %+v", i, tally.MasPerra[i], c)
		}
	}
}

func TestSortBallotsNewestFirst(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	ballots := []Ballot{
		{Email: "old", UpdatedAt: t0},
		{Email: "new", UpdatedAt: t0.Add(time.Hour)},
	}
	SortBallots(ballots)
	if ballots[0].Email != "new" {
		t.Errorf("first = %q, want new", ballots[0].Email)
	}
}
