package server

import (
	"encoding/json"
	"sync"
)

// RankingEvent carries a board's full ranking after a submit changed it.
type RankingEvent struct {
	Board string           `json:"board"`
	Data  []map[string]any `json:"data"`
}

// Broker is an in-process pub/sub for SSE events, keyed by board slug.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for board.
func (b *Broker) Subscribe(board string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[board] == nil {
		b.subs[board] = make(map[chan []byte]struct{})
	}
	b.subs[board][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(board string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[board], ch)
	if len(b.subs[board]) == 0 {
		delete(b.subs, board)
	}
	b.mu.Unlock()
}

// Subscribers reports how many streams follow board.
func (b *Broker) Subscribers(board string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[board])
}

// Publish sends an event to every subscriber of board.
func (b *Broker) Publish(board string, event RankingEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[board] {
		select {
		case ch <- data:
		default:
			// Slow subscribers miss this ranking and catch up on the next.
		}
	}
	b.mu.RUnlock()
}
