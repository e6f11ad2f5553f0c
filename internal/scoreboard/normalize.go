package scoreboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// MaxScore is the largest score kept. Scores travel as JSON numbers and
// are compared as doubles by the Redis store, so they stay within the
// range a float64 holds exactly.
const MaxScore int64 = 1<<53 - 1

// Normalize trims the attempt, clamps its score, stamps a missing play
// time with now and checks it can be keyed on b.
func (b Board) Normalize(a Attempt, now time.Time) (Attempt, error) {
	a.Name = strings.TrimSpace(a.Name)
	a.ClientID = strings.TrimSpace(a.ClientID)
	a.Score = min(max(a.Score, 0), MaxScore)

	if a.Name == "" {
		return Attempt{}, fmt.Errorf("%w: blank name", ErrInvalidAttempt)
	}
	if b.Variant == BestPerAttempt && a.ClientID == "" {
		return Attempt{}, fmt.Errorf("%w: blank client id", ErrInvalidAttempt)
	}

	if a.PlayedAt.IsZero() {
		a.PlayedAt = now
	}
	a.PlayedAt = a.PlayedAt.UTC().Truncate(time.Millisecond)
	return a, nil
}

// AttemptFromMap reads a decoded JSON object leniently. The id may be sent
// as id, clientId or client_id and the score under the board's score field
// or plain score. Anything unusable decodes to its zero value so that
// Normalize can reject or clamp it.
func (b Board) AttemptFromMap(m map[string]any) Attempt {
	var a Attempt
	for _, k := range []string{"id", "clientId", "client_id"} {
		if s := CoerceString(m[k]); s != "" {
			a.ClientID = s
			break
		}
	}
	a.Name = CoerceString(m["name"])

	if v, ok := m[b.ScoreField]; ok {
		a.Score = CoerceScore(v)
	} else {
		a.Score = CoerceScore(m["score"])
	}

	for _, k := range []string{"playedAt", b.TimeField, "updated_at"} {
		if t := CoerceTime(m[k]); !t.IsZero() {
			a.PlayedAt = t
			break
		}
	}
	return a
}

// CoerceString returns strings and numbers as text and anything else as "".
func CoerceString(v any) string {
	switch v.(type) {
	case nil, map[string]any, []any, bool:
		return ""
	}
	return cast.ToString(v)
}

// CoerceScore converts a JSON value to a score in [0, MaxScore].
// Fractions truncate; non-numeric input is 0.
func CoerceScore(v any) int64 {
	var f float64
	switch x := v.(type) {
	case nil, bool:
		return 0
	case string:
		parsed, err := cast.ToFloat64E(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		f = parsed
	default:
		parsed, err := cast.ToFloat64E(x)
		if err != nil {
			return 0
		}
		f = parsed
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= float64(MaxScore) {
		return MaxScore
	}
	return int64(f)
}

// CoerceTime parses a client timestamp. Unparseable values return the zero
// time and are later replaced by the receive time.
func CoerceTime(v any) time.Time {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}
	}
	t, err := cast.ToTimeE(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
