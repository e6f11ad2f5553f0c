package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/alamicos/scoreboard/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	svc := deps.Service
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Scoreboard API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())

	r.Get("/api/boards", handleBoards(svc))

	// Survey ballots share the degraded-mode contract of the boards.
	r.Route("/api/encuesta", func(r chi.Router) {
		r.Get("/votes", handleListVotes(logger, svc))
		r.Post("/votes", handleVote(logger, svc))
		r.Get("/tally", handleTally(logger, svc))
	})

	// {game} resolved by boardMiddleware.
	r.Route("/api/{game}", func(r chi.Router) {
		r.Use(boardMiddleware(svc))
		r.Get("/leaderboard", handleGetLeaderboard(logger, svc))
		r.Post("/leaderboard", handlePostLeaderboard(logger, svc, broker))
		r.Get("/leaderboard/events", handleEvents(logger, svc, broker))
		r.Get("/qr", handleQR(deps.SiteURL))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
