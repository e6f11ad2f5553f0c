package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// LocalStore is the per-device fallback copy of the boards and survey.
// Values are read and written wholesale.
type LocalStore interface {
	// Load and Save hold a board's own ranking while the server has no store.
	Load(slug string) ([]scoreboard.Entry, error)
	Save(slug string, entries []scoreboard.Entry) error

	// LoadCache and SaveCache hold the last ranking the server returned.
	LoadCache(slug string) ([]scoreboard.Entry, error)
	SaveCache(slug string, entries []scoreboard.Entry) error

	// LoadPending and SavePending hold attempts not yet accepted by the
	// server. Saving an empty queue clears it.
	LoadPending(slug string) ([]scoreboard.Attempt, error)
	SavePending(slug string, attempts []scoreboard.Attempt) error

	LoadVotes() ([]Ballot, error)
	SaveVotes(votes []Ballot) error
}

var _ LocalStore = (*FileStore)(nil)

// localEntry is the persisted form of one local row.
type localEntry struct {
	Key      string    `json:"key,omitempty"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int64     `json:"score"`
	PlayedAt time.Time `json:"playedAt"`
}

type localAttempt struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int64     `json:"score"`
	PlayedAt time.Time `json:"playedAt"`
}

// FileStore keeps one JSON file per key under dir. Unreadable or corrupt
// files read as empty, the way a browser's local storage would.
type FileStore struct {
	fs  afero.Fs
	dir string
}

func NewFileStore(fsys afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fsys, dir: dir}
}

// Key is the storage key of a board's local ranking.
func Key(slug string) string { return "alamicos_" + slug + "_leaderboard" }

func cacheKey(slug string) string   { return "alamicos_" + slug + "_cache" }
func pendingKey(slug string) string { return "alamicos_" + slug + "_pending" }

const votesKey = "alamicos_encuesta_votos"

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// read decodes key. A missing file or one that does not decode cleanly
// reads as the zero value.
func read[T any](s *FileStore, key string) (T, error) {
	var zero T
	raw, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("reading %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, nil
	}
	return v, nil
}

// write replaces key atomically through a temp file and rename.
func (s *FileStore) write(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		s.fs.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp.Name(), s.path(key)); err != nil {
		s.fs.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) remove(key string) error {
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) loadEntries(key string) ([]scoreboard.Entry, error) {
	rows, err := read[[]localEntry](s, key)
	if err != nil {
		return nil, err
	}
	entries := make([]scoreboard.Entry, 0, len(rows))
	for i, r := range rows {
		k := r.Key
		if k == "" {
			k = r.ID
		}
		entries = append(entries, scoreboard.Entry{
			Key:      k,
			ClientID: r.ID,
			Name:     r.Name,
			Score:    r.Score,
			PlayedAt: r.PlayedAt,
			Seq:      int64(i + 1),
		})
	}
	return entries, nil
}

// saveEntries persists entries in storage order so Seq survives a reload.
func (s *FileStore) saveEntries(key string, entries []scoreboard.Entry) error {
	ordered := append([]scoreboard.Entry(nil), entries...)
	sortBySeq(ordered)
	rows := make([]localEntry, 0, len(ordered))
	for _, e := range ordered {
		rows = append(rows, localEntry{Key: e.Key, ID: e.ClientID, Name: e.Name, Score: e.Score, PlayedAt: e.PlayedAt})
	}
	return s.write(key, rows)
}

func (s *FileStore) Load(slug string) ([]scoreboard.Entry, error) { return s.loadEntries(Key(slug)) }

func (s *FileStore) Save(slug string, entries []scoreboard.Entry) error {
	return s.saveEntries(Key(slug), entries)
}

// LoadCache returns the last ranking fetched from the server.
func (s *FileStore) LoadCache(slug string) ([]scoreboard.Entry, error) {
	return s.loadEntries(cacheKey(slug))
}

func (s *FileStore) SaveCache(slug string, entries []scoreboard.Entry) error {
	return s.saveEntries(cacheKey(slug), entries)
}

// LoadPending returns attempts not yet accepted by the server.
func (s *FileStore) LoadPending(slug string) ([]scoreboard.Attempt, error) {
	rows, err := read[[]localAttempt](s, pendingKey(slug))
	if err != nil {
		return nil, err
	}
	out := make([]scoreboard.Attempt, 0, len(rows))
	for _, r := range rows {
		out = append(out, scoreboard.Attempt{ClientID: r.ID, Name: r.Name, Score: r.Score, PlayedAt: r.PlayedAt})
	}
	return out, nil
}

// SavePending replaces the queue; an empty queue removes the file.
func (s *FileStore) SavePending(slug string, attempts []scoreboard.Attempt) error {
	if len(attempts) == 0 {
		return s.remove(pendingKey(slug))
	}
	rows := make([]localAttempt, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, localAttempt{ID: a.ClientID, Name: a.Name, Score: a.Score, PlayedAt: a.PlayedAt})
	}
	return s.write(pendingKey(slug), rows)
}

type localVotes struct {
	Votes []Ballot `json:"votes"`
}

// LoadVotes returns the ballots kept on this device.
func (s *FileStore) LoadVotes() ([]Ballot, error) {
	v, err := read[localVotes](s, votesKey)
	if err != nil {
		return nil, err
	}
	if v.Votes == nil {
		v.Votes = []Ballot{}
	}
	return v.Votes, nil
}

func (s *FileStore) SaveVotes(votes []Ballot) error {
	return s.write(votesKey, localVotes{Votes: votes})
}
