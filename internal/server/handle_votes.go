package server

import (
	"log/slog"
	"net/http"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

func handleListVotes(logger *slog.Logger, svc *scoreboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ballots, err := svc.Ballots(r.Context())
		if err != nil {
			writeServiceError(w, logger, err, "votes unavailable")
			return
		}
		writeJSON(w, http.StatusOK, DataResponse{Data: encodeBallots(ballots)})
	}
}

func handleVote(logger *slog.Logger, svc *scoreboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc.LocalOnly() {
			writeLocalOnly(w)
			return
		}

		var req Ballot
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		ballots, err := svc.Vote(r.Context(), scoreboard.Ballot{
			Email:    req.Email,
			Name:     req.Name,
			MVP:      req.MVP,
			MasPerra: req.MasPerra,
		})
		if err != nil {
			writeServiceError(w, logger, err, "votes unavailable")
			return
		}
		writeJSON(w, http.StatusOK, DataResponse{Data: encodeBallots(ballots)})
	}
}

func handleTally(logger *slog.Logger, svc *scoreboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tally, err := svc.Tally(r.Context())
		if err != nil {
			writeServiceError(w, logger, err, "votes unavailable")
			return
		}
		writeJSON(w, http.StatusOK, DataResponse{Data: tally})
	}
}
