package scoreboard

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Ballot is one survey vote. A voter is identified by lower-cased email
// and a later ballot replaces an earlier one.
type Ballot struct {
	Email     string `validate:"required,email,max=254"`
	Name      string `validate:"required,max=80"`
	MVP       string `validate:"required,max=80"`
	MasPerra  string `validate:"required,max=80"`
	UpdatedAt time.Time
}

// NormalizeBallot trims every field, lower-cases the email and stamps the
// ballot with now.
func NormalizeBallot(b Ballot, now time.Time) (Ballot, error) {
	b.Email = strings.ToLower(strings.TrimSpace(b.Email))
	b.Name = strings.TrimSpace(b.Name)
	b.MVP = strings.TrimSpace(b.MVP)
	b.MasPerra = strings.TrimSpace(b.MasPerra)
	b.UpdatedAt = now.UTC().Truncate(time.Millisecond)

	if err := validate.Struct(b); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Tag() == "required" {
				return Ballot{}, fmt.Errorf("%w: %s is required", ErrInvalidBallot, strings.ToLower(fe.Field()))
			}
			return Ballot{}, fmt.Errorf("%w: %s failed %s", ErrInvalidBallot, strings.ToLower(fe.Field()), fe.Tag())
		}
		return Ballot{}, fmt.Errorf("%w: %v", ErrInvalidBallot, err)
	}
	return b, nil
}

// SortBallots orders ballots newest first.
func SortBallots(ballots []Ballot) {
	slices.SortStableFunc(ballots, func(a, b Ballot) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

// Count is one candidate's vote total.
type Count struct {
	Name  string `json:"name"`
	Votes int    `json:"votes"`
}

// Tally ranks candidates per survey category.
type Tally struct {
	Voters   int     `json:"voters"`
	MVP      []Count `json:"mvp"`
	MasPerra []Count `json:"masPerra"`
}

// TallyBallots counts votes per category, most votes first and ties by
// candidate name.
func TallyBallots(ballots []Ballot) Tally {
	mvp := map[string]int{}
	perra := map[string]int{}
	for _, b := range ballots {
		mvp[b.MVP]++
		perra[b.MasPerra]++
	}
	return Tally{
		Voters:   len(ballots),
		MVP:      ranked(mvp),
		MasPerra: ranked(perra),
	}
}

func ranked(votes map[string]int) []Count {
	out := make([]Count, 0, len(votes))
	for name, n := range votes {
		out = append(out, Count{Name: name, Votes: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
