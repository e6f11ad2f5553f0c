package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// nextEvent reads lines until the next data field and decodes it.
func nextEvent(t *testing.T, sc *bufio.Scanner) RankingEvent {
	t.Helper()
	for sc.Scan() {
		line := sc.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var ev RankingEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return ev
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return RankingEvent{}
}

func TestEvents(t *testing.T) {
	srv := httptest.NewServer(newRouter(t, newSQLiteService(t)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/slots/leaderboard/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	sc := bufio.NewScanner(resp.Body)
	if ev := nextEvent(t, sc); ev.Board != "slots" || len(ev.Data) != 0 {
		t.Fatalf("initial event = %+v, want empty slots ranking", ev)
	}

	post := func(body string) {
		t.Helper()
		r, err := http.Post(srv.URL+"/api/slots/leaderboard", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		r.Body.Close()
	}

	post(`{"data":[{"name":"Rodri","score":10}]}`)
	ev := nextEvent(t, sc)
	if len(ev.Data) != 1 || ev.Data[0]["name"] != "Rodri" {
		t.Fatalf("event = %+v", ev)
	}

	// an ignored lower score publishes nothing; the next change arrives next
	post(`{"data":[{"name":"rodri","score":3}]}`)
	post(`{"data":[{"name":"Ana","score":4}]}`)
	ev = nextEvent(t, sc)
	if len(ev.Data) != 2 || ev.Data[1]["name"] != "Ana" {
		t.Fatalf("event = %+v, want Rodri then Ana", ev)
	}
}

func TestEventsLocalOnly(t *testing.T) {
	h := newRouter(t, newService(t, nil))

	rec, got := do(t, h, http.MethodGet, "/api/beerpong/leaderboard/events", "")
	if rec.Code != http.StatusOK || !got.UseLocalStorage {
		t.Errorf("status = %d, useLocalStorage = %v", rec.Code, got.UseLocalStorage)
	}
}

func TestBroker(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("beerpong")

	b.Publish("slots", RankingEvent{Board: "slots"})
	b.Publish("beerpong", RankingEvent{Board: "beerpong"})

	select {
	case data := <-ch:
		if !strings.Contains(string(data), `"board":"beerpong"`) {
			t.Errorf("event = %s", data)
		}
	default:
		t.Fatal("no event delivered")
	}
	select {
	case data := <-ch:
		t.Fatalf("unexpected event %s", data)
	default:
	}

	if n := b.Subscribers("beerpong"); n != 1 {
		t.Errorf("subscribers = %d, want 1", n)
	}
	b.Unsubscribe("beerpong", ch)
	if n := b.Subscribers("beerpong"); n != 0 {
		t.Errorf("subscribers = %d, want 0", n)
	}

	// publishing to a full buffer drops instead of blocking
	ch = b.Subscribe("beerpong")
	for range cap(ch) + 5 {
		b.Publish("beerpong", RankingEvent{Board: "beerpong"})
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered = %d, want %d", len(ch), cap(ch))
	}
}
