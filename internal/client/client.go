// Package client talks to the scoreboard HTTP API and keeps a per-device
// fallback copy of every board for when the server has no backing store or
// cannot be reached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// ErrLocalOnly means the server answered useLocalStorage: scores must be
// kept on this device.
var ErrLocalOnly = errors.New("server has no backing store")

// StatusError is a non-200 answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.Code)
	}
	return fmt.Sprintf("server answered %d: %s", e.Code, e.Message)
}

type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Data            json.RawMessage `json:"data"`
	UseLocalStorage bool            `json:"useLocalStorage"`
	Error           string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{Code: resp.StatusCode}
		}
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Message: env.Error}
	}
	if env.UseLocalStorage {
		return nil, ErrLocalOnly
	}
	return env.Data, nil
}

// Boards lists the server's boards. localOnly reports whether the server
// has no backing store.
func (c *Client) Boards(ctx context.Context) (boards []scoreboard.Board, localOnly bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/boards", nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, false, &StatusError{Code: resp.StatusCode}
	}

	var body struct {
		Boards          []scoreboard.Board `json:"boards"`
		UseLocalStorage bool               `json:"useLocalStorage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decoding boards: %w", err)
	}
	return body.Boards, body.UseLocalStorage, nil
}

func boardPath(b scoreboard.Board) string {
	return "/api/" + url.PathEscape(b.Slug) + "/leaderboard"
}

// Fetch returns b's ranking from the server.
func (c *Client) Fetch(ctx context.Context, b scoreboard.Board) ([]scoreboard.Entry, error) {
	data, err := c.do(ctx, http.MethodGet, boardPath(b), nil)
	if err != nil {
		return nil, err
	}
	return decodeRanking(b, data)
}

// Submit sends attempts as one batch and returns the recomputed ranking.
// The server drops invalid attempts without failing the batch.
func (c *Client) Submit(ctx context.Context, b scoreboard.Board, attempts []scoreboard.Attempt) ([]scoreboard.Entry, error) {
	rows := make([]map[string]any, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, encodeAttempt(b, a))
	}
	data, err := c.do(ctx, http.MethodPost, boardPath(b), map[string]any{"data": rows})
	if err != nil {
		return nil, err
	}
	return decodeRanking(b, data)
}

func encodeAttempt(b scoreboard.Board, a scoreboard.Attempt) map[string]any {
	m := map[string]any{"name": a.Name, b.ScoreField: a.Score}
	if a.ClientID != "" {
		m["id"] = a.ClientID
	}
	if !a.PlayedAt.IsZero() {
		m["playedAt"] = a.PlayedAt.UTC().Format(time.RFC3339Nano)
	}
	return m
}

func decodeRanking(b scoreboard.Board, data json.RawMessage) ([]scoreboard.Entry, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding ranking: %w", err)
	}
	entries := make([]scoreboard.Entry, 0, len(rows))
	for i, row := range rows {
		a := b.AttemptFromMap(row)
		e := b.Entry(a)
		e.Seq = int64(i + 1)
		entries = append(entries, e)
	}
	return entries, nil
}

// Ballot is a survey vote as the server reports it.
type Ballot struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	MVP       string `json:"mvp"`
	MasPerra  string `json:"masPerra"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

func (c *Client) Ballots(ctx context.Context) ([]Ballot, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/encuesta/votes", nil)
	if err != nil {
		return nil, err
	}
	var out []Ballot
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding votes: %w", err)
	}
	return out, nil
}

// Vote casts b, replacing any earlier ballot from the same email, and
// returns every ballot.
func (c *Client) Vote(ctx context.Context, b Ballot) ([]Ballot, error) {
	b.Timestamp = 0
	data, err := c.do(ctx, http.MethodPost, "/api/encuesta/votes", b)
	if err != nil {
		return nil, err
	}
	var out []Ballot
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding votes: %w", err)
	}
	return out, nil
}

func (c *Client) Tally(ctx context.Context) (scoreboard.Tally, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/encuesta/tally", nil)
	if err != nil {
		return scoreboard.Tally{}, err
	}
	var out scoreboard.Tally
	if err := json.Unmarshal(data, &out); err != nil {
		return scoreboard.Tally{}, fmt.Errorf("decoding tally: %w", err)
	}
	return out, nil
}
