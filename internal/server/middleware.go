package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alamicos/scoreboard/internal/scoreboard"
)

type ctxKey int

const ctxKeyBoard ctxKey = iota

func boardMiddleware(svc *scoreboard.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := strings.ToLower(chi.URLParam(r, "game"))
			if slug == "" {
				writeError(w, http.StatusNotFound, "game not found")
				return
			}

			b, err := svc.Board(slug)
			if err != nil {
				writeError(w, http.StatusNotFound, "game not found")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyBoard, b)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func boardFrom(r *http.Request) scoreboard.Board {
	return r.Context().Value(ctxKeyBoard).(scoreboard.Board)
}
