package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

func handleGetLeaderboard(logger *slog.Logger, svc *scoreboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := boardFrom(r)

		entries, err := svc.Ranking(r.Context(), b.Slug)
		if err != nil {
			writeServiceError(w, logger, err, "leaderboard unavailable", "board", b.Slug)
			return
		}
		writeJSON(w, http.StatusOK, DataResponse{Data: encodeRanking(b, entries)})
	}
}

func handlePostLeaderboard(logger *slog.Logger, svc *scoreboard.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := boardFrom(r)

		// Without a store the body is irrelevant.
		if svc.LocalOnly() {
			writeLocalOnly(w)
			return
		}

		defer r.Body.Close()
		attempts, err := decodeAttempts(b, http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		res, err := svc.Submit(r.Context(), b.Slug, attempts)
		if err != nil {
			writeServiceError(w, logger, err, "leaderboard unavailable", "board", b.Slug)
			return
		}

		if len(attempts) > 0 {
			logger.Debug("attempts merged",
				"board", b.Slug,
				"inserted", res.Inserted,
				"updated", res.Updated,
				"ignored", res.Ignored,
				"rejected", res.Rejected,
				"failed", res.Failed,
			)
		}

		ranking := encodeRanking(b, res.Ranking)
		if res.Changed() {
			broker.Publish(b.Slug, RankingEvent{Board: b.Slug, Data: ranking})
		}
		writeJSON(w, http.StatusOK, DataResponse{Data: ranking})
	}
}

// BoardInfo describes one configured leaderboard.
type BoardInfo struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Variant    string `json:"variant"`
	ScoreField string `json:"scoreField"`
	TimeField  string `json:"timeField"`
	Flat       bool   `json:"flat"`
}

// BoardsResponse lists the boards and whether clients must keep scores
// locally.
type BoardsResponse struct {
	Boards          []BoardInfo `json:"boards"`
	UseLocalStorage bool        `json:"useLocalStorage"`
}

func handleBoards(svc *scoreboard.Service) http.HandlerFunc {
	boards := svc.Boards()
	resp := BoardsResponse{Boards: make([]BoardInfo, 0, len(boards)), UseLocalStorage: svc.LocalOnly()}
	for _, b := range boards {
		resp.Boards = append(resp.Boards, BoardInfo{
			Slug:       b.Slug,
			Title:      b.Title,
			Variant:    b.Variant.String(),
			ScoreField: b.ScoreField,
			TimeField:  b.TimeField,
			Flat:       b.Flat,
		})
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}
