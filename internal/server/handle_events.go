package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

// pingInterval keeps idle streams open through proxies.
var pingInterval = 30 * time.Second

// handleEvents streams a board's ranking: the current one on connect, then
// a new one after every submit that changed the board.
func handleEvents(logger *slog.Logger, svc *scoreboard.Service, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := boardFrom(r)

		entries, err := svc.Ranking(r.Context(), b.Slug)
		if err != nil {
			writeServiceError(w, logger, err, "leaderboard unavailable", "board", b.Slug)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		ch := broker.Subscribe(b.Slug)
		defer broker.Unsubscribe(b.Slug, ch)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		initial, _ := json.Marshal(RankingEvent{Board: b.Slug, Data: encodeRanking(b, entries)})
		fmt.Fprintf(w, "event: ranking\ndata: %s\n\n", initial)
		flusher.Flush()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: ranking\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
