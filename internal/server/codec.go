package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse wraps every listing. UseLocalStorage is set, with empty
// Data, when the server has no backing store.
type DataResponse struct {
	Data            any  `json:"data"`
	UseLocalStorage bool `json:"useLocalStorage,omitempty"`
}

// encodeEntry renders an entry with the board's field names:
// {id, name, <scoreField>, playedAt}. Boards with another time field get
// it as well.
func encodeEntry(b scoreboard.Board, e scoreboard.Entry) map[string]any {
	id := e.ClientID
	if id == "" {
		id = e.Key
	}
	m := map[string]any{
		"id":         id,
		"name":       e.Name,
		b.ScoreField: e.Score,
		"playedAt":   e.PlayedAt.UTC().Format(time.RFC3339Nano),
	}
	if b.TimeField != "" && b.TimeField != "playedAt" {
		m[b.TimeField] = m["playedAt"]
	}
	return m
}

func encodeRanking(b scoreboard.Board, entries []scoreboard.Entry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, encodeEntry(b, e))
	}
	return out
}

var errBadBody = errors.New("malformed request body")

// decodeAttempts reads a submit body: {data: [...]} always, and a bare
// attempt object on flat boards. An empty body, a missing or null data
// array, or an object with no attempt fields is a read and returns no
// attempts. Array elements that are not objects decode to zero attempts
// and are rejected later.
func decodeAttempts(b scoreboard.Board, body io.Reader) ([]scoreboard.Attempt, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadBody, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadBody, err)
	}

	if data, ok := doc["data"]; ok {
		if data == nil {
			return nil, nil
		}
		items, ok := data.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: data must be an array", errBadBody)
		}
		attempts := make([]scoreboard.Attempt, 0, len(items))
		for _, item := range items {
			m, _ := item.(map[string]any)
			attempts = append(attempts, b.AttemptFromMap(m))
		}
		return attempts, nil
	}

	if b.Flat && hasAttemptFields(b, doc) {
		return []scoreboard.Attempt{b.AttemptFromMap(doc)}, nil
	}
	return nil, nil
}

func hasAttemptFields(b scoreboard.Board, m map[string]any) bool {
	for _, k := range []string{"id", "clientId", "client_id", "name", "score", b.ScoreField} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// Ballot is the wire form of a survey vote. Timestamp is Unix
// milliseconds of the last update.
type Ballot struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	MVP       string `json:"mvp"`
	MasPerra  string `json:"masPerra"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

func encodeBallots(ballots []scoreboard.Ballot) []Ballot {
	out := make([]Ballot, 0, len(ballots))
	for _, b := range ballots {
		out = append(out, Ballot{
			Email:     b.Email,
			Name:      b.Name,
			MVP:       b.MVP,
			MasPerra:  b.MasPerra,
			Timestamp: b.UpdatedAt.UnixMilli(),
		})
	}
	return out
}
