package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/alamicos/scoreboard/internal/handler/health"
	"github.com/alamicos/scoreboard/internal/scoreboard"
)

type GamePath struct {
	Game string `path:"game" description:"Board slug, e.g. beerpong, penales or slots."`
}

// SubmitRequest documents the batch body. Flat boards also take a single
// attempt object without the data wrapper.
type SubmitRequest struct {
	GamePath
	Data []AttemptDoc `json:"data"`
}

// AttemptDoc documents one attempt. The score key follows the board's
// score field (goals on penales).
type AttemptDoc struct {
	ID       string `json:"id,omitempty" description:"Attempt id; also accepted as clientId. Required on best-per-attempt boards."`
	Name     string `json:"name" required:"true"`
	Score    int64  `json:"score" minimum:"0"`
	PlayedAt string `json:"playedAt,omitempty" format:"date-time"`
}

// LeaderboardDoc documents the ranking response.
type LeaderboardDoc struct {
	Data            []AttemptDoc `json:"data"`
	UseLocalStorage bool         `json:"useLocalStorage,omitempty" description:"Set, with empty data, when no backing store is configured."`
}

type VotesDoc struct {
	Data            []Ballot `json:"data"`
	UseLocalStorage bool     `json:"useLocalStorage,omitempty"`
}

type TallyDoc struct {
	Data scoreboard.Tally `json:"data"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Scoreboard API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Leaderboards and survey votes for the party site's mini-games.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the status of the backing store.")
	getHealthz.AddRespStructure(map[string]health.Result{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]health.Result{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/boards
	getBoards, _ := r.NewOperationContext(http.MethodGet, "/api/boards")
	getBoards.SetSummary("List boards")
	getBoards.SetDescription("Returns the configured leaderboards and their field names.")
	getBoards.AddRespStructure(BoardsResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getBoards)

	// GET /api/{game}/leaderboard
	getBoard, _ := r.NewOperationContext(http.MethodGet, "/api/{game}/leaderboard")
	getBoard.SetSummary("Get leaderboard")
	getBoard.SetDescription("Returns the ranking by score descending, ties in storage order.")
	getBoard.AddReqStructure(GamePath{})
	getBoard.AddRespStructure(LeaderboardDoc{}, openapi.WithHTTPStatus(http.StatusOK))
	getBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(getBoard)

	// POST /api/{game}/leaderboard
	postBoard, _ := r.NewOperationContext(http.MethodPost, "/api/{game}/leaderboard")
	postBoard.SetSummary("Submit attempts")
	postBoard.SetDescription("Merges each attempt independently and returns the recomputed ranking. " +
		"Invalid attempts are dropped. An empty body or data array is a plain read.")
	postBoard.AddReqStructure(SubmitRequest{})
	postBoard.AddRespStructure(LeaderboardDoc{}, openapi.WithHTTPStatus(http.StatusOK))
	postBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(postBoard)

	// GET /api/{game}/leaderboard/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/{game}/leaderboard/events")
	getEvents.SetSummary("Ranking stream")
	getEvents.SetDescription("Server-Sent Events: a ranking event on connect and after every change.")
	getEvents.AddReqStructure(GamePath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/{game}/qr
	getQR, _ := r.NewOperationContext(http.MethodGet, "/api/{game}/qr")
	getQR.SetSummary("Share QR code")
	getQR.SetDescription("PNG QR code linking to the game on the site.")
	getQR.AddReqStructure(GamePath{})
	getQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("image/png"))
	_ = r.AddOperation(getQR)

	// GET /api/encuesta/votes
	getVotes, _ := r.NewOperationContext(http.MethodGet, "/api/encuesta/votes")
	getVotes.SetSummary("List votes")
	getVotes.SetDescription("Returns every survey ballot, newest first.")
	getVotes.AddRespStructure(VotesDoc{}, openapi.WithHTTPStatus(http.StatusOK))
	getVotes.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(getVotes)

	// POST /api/encuesta/votes
	postVote, _ := r.NewOperationContext(http.MethodPost, "/api/encuesta/votes")
	postVote.SetSummary("Cast vote")
	postVote.SetDescription("Stores a ballot, replacing an earlier one from the same email.")
	postVote.AddReqStructure(Ballot{})
	postVote.AddRespStructure(VotesDoc{}, openapi.WithHTTPStatus(http.StatusOK))
	postVote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postVote.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(postVote)

	// GET /api/encuesta/tally
	getTally, _ := r.NewOperationContext(http.MethodGet, "/api/encuesta/tally")
	getTally.SetSummary("Vote tally")
	getTally.SetDescription("Candidates per category by votes descending.")
	getTally.AddRespStructure(TallyDoc{}, openapi.WithHTTPStatus(http.StatusOK))
	getTally.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(getTally)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
