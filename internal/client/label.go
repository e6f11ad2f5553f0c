package client

import (
	"fmt"
	"strings"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// Labels returns display names for a ranking. The second and later rows
// of the same name, counted from the top, read "Name (attempt N)".
func Labels(entries []scoreboard.Entry) []string {
	seen := make(map[string]int, len(entries))
	out := make([]string, len(entries))
	for i, e := range entries {
		seen[e.Name]++
		if n := seen[e.Name]; n > 1 {
			out[i] = fmt.Sprintf("%s (attempt %d)", e.Name, n)
			continue
		}
		out[i] = e.Name
	}
	return out
}

// Session is one player at the device. Each attempt gets a fresh client
// id so best-per-attempt boards rank it as its own row.
type Session struct {
	Name     string
	ClientID string
	prefix   string
}

func NewSession(name, prefix string) *Session {
	return &Session{Name: strings.TrimSpace(name), ClientID: scoreboard.NewClientID(prefix), prefix: prefix}
}

// Attempt stamps score with the session's current id.
func (s *Session) Attempt(score int64) scoreboard.Attempt {
	return scoreboard.Attempt{ClientID: s.ClientID, Name: s.Name, Score: score}
}

// Next starts a new attempt under the same name.
func (s *Session) Next() {
	s.ClientID = scoreboard.NewClientID(s.prefix)
}
