package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// mergeScript inserts or conditionally replaces one entry. Each field of a
// board lives in its own hash keyed by entry key.
//
// KEYS: score, seq, name, client, time hashes and the seq counter.
// ARGV: key, score, name, client id, time, mode ("gte" replaces on ties and
// overwrites name and client id; "gt" only replaces score and time).
// Returns 0 ignored, 1 inserted, 2 updated. Scores never exceed
// scoreboard.MaxScore, so comparing them as Lua numbers is exact.
var mergeScript = redis.NewScript(`
local stored = redis.call('HGET', KEYS[1], ARGV[1])
if not stored then
  local seq = redis.call('INCR', KEYS[6])
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  redis.call('HSET', KEYS[2], ARGV[1], seq)
  redis.call('HSET', KEYS[3], ARGV[1], ARGV[3])
  redis.call('HSET', KEYS[4], ARGV[1], ARGV[4])
  redis.call('HSET', KEYS[5], ARGV[1], ARGV[5])
  return 1
end

local incoming = tonumber(ARGV[2])
stored = tonumber(stored)
if incoming < stored or (incoming == stored and ARGV[6] ~= 'gte') then
  return 0
end

redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[5], ARGV[1], ARGV[5])
if ARGV[6] == 'gte' then
  redis.call('HSET', KEYS[3], ARGV[1], ARGV[3])
  redis.call('HSET', KEYS[4], ARGV[1], ARGV[4])
end
return 2
`)

// RedisStore keeps boards in Redis hashes. All keys of one board share a
// hash tag so the script also runs on a cluster.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Check(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.rdb.Close() }

func (s *RedisStore) boardKeys(board string) []string {
	base := s.prefix + ":{" + board + "}:"
	return []string{base + "score", base + "seq", base + "name", base + "client", base + "time", base + "counter"}
}

func (s *RedisStore) Ranking(ctx context.Context, board string) ([]scoreboard.Entry, error) {
	keys := s.boardKeys(board)
	var cmds [5]*redis.MapStringStringCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for i := range cmds {
			cmds[i] = p.HGetAll(ctx, keys[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	scores, seqs, names, clients, times := cmds[0].Val(), cmds[1].Val(), cmds[2].Val(), cmds[3].Val(), cmds[4].Val()
	entries := make([]scoreboard.Entry, 0, len(scores))
	for key, raw := range scores {
		e := scoreboard.Entry{Key: key, Name: names[key], ClientID: clients[key]}
		if e.Score, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("parsing score of %q: %w", key, err)
		}
		if e.Seq, err = strconv.ParseInt(seqs[key], 10, 64); err != nil {
			return nil, fmt.Errorf("parsing seq of %q: %w", key, err)
		}
		if e.PlayedAt, err = time.Parse(timeLayout, times[key]); err != nil {
			return nil, fmt.Errorf("parsing time of %q: %w", key, err)
		}
		entries = append(entries, e)
	}
	scoreboard.SortRanking(entries)
	return entries, nil
}

func (s *RedisStore) Merge(ctx context.Context, b scoreboard.Board, e scoreboard.Entry) (scoreboard.Outcome, error) {
	mode := "gt"
	if b.Rule() == scoreboard.ReplaceIfGreaterOrEqual {
		mode = "gte"
	}
	n, err := mergeScript.Run(ctx, s.rdb, s.boardKeys(b.Slug),
		e.Key, e.Score, e.Name, e.ClientID, e.PlayedAt.UTC().Format(timeLayout), mode,
	).Int()
	if err != nil {
		return scoreboard.Ignored, err
	}
	switch n {
	case 1:
		return scoreboard.Inserted, nil
	case 2:
		return scoreboard.Updated, nil
	default:
		return scoreboard.Ignored, nil
	}
}

type redisBallot struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	MVP       string    `json:"mvp"`
	MasPerra  string    `json:"masPerra"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *RedisStore) votesKey() string { return s.prefix + ":votes" }

func (s *RedisStore) Ballots(ctx context.Context) ([]scoreboard.Ballot, error) {
	raw, err := s.rdb.HGetAll(ctx, s.votesKey()).Result()
	if err != nil {
		return nil, err
	}
	ballots := make([]scoreboard.Ballot, 0, len(raw))
	for email, doc := range raw {
		var rb redisBallot
		if err := json.Unmarshal([]byte(doc), &rb); err != nil {
			return nil, fmt.Errorf("decoding ballot of %q: %w", email, err)
		}
		ballots = append(ballots, scoreboard.Ballot(rb))
	}
	scoreboard.SortBallots(ballots)
	return ballots, nil
}

func (s *RedisStore) PutBallot(ctx context.Context, b scoreboard.Ballot) error {
	doc, err := json.Marshal(redisBallot(b))
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, s.votesKey(), strings.ToLower(b.Email), doc).Err()
}
