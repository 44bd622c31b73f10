package fanout

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/iliyamo/restaurant-table-reservation/internal/metrics"
)

// sendBuffer is the per-subscriber queue depth.  A subscriber that falls
// this far behind starts losing messages rather than slowing the engine.
const sendBuffer = 16

// Subscriber is one connected realtime client.  Messages arrive on C()
// already serialized; the transport layer (websocket handler) pumps the
// channel out to the wire.
type Subscriber struct {
	rooms []string
	send  chan []byte
	once  sync.Once
}

// C returns the subscriber's message channel.  The channel is closed when
// the subscriber is removed from the hub.
func (s *Subscriber) C() <-chan []byte { return s.send }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub is an in-process room-based broadcaster.  Every client joins the
// rooms implied by its role once at connect time; every published event
// is delivered to the union of subscribers of its rooms, at most once per
// subscriber.  The hub reads only committed state handed to it by the
// services and never touches the locking protocol.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscriber]struct{}
	log   zerolog.Logger
}

// NewHub constructs an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Subscriber]struct{}),
		log:   log.With().Str("component", "fanout").Logger(),
	}
}

// Subscribe registers a client on the given rooms and returns its handle.
func (h *Hub) Subscribe(rooms []string) *Subscriber {
	s := &Subscriber{rooms: rooms, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	for _, room := range rooms {
		set, ok := h.rooms[room]
		if !ok {
			set = make(map[*Subscriber]struct{})
			h.rooms[room] = set
		}
		set[s] = struct{}{}
	}
	h.mu.Unlock()
	metrics.RealtimeClients.Inc()
	return s
}

// Unsubscribe removes a client from all its rooms and closes its channel.
// Safe to call more than once.  The close happens under the write lock:
// Publish sends while holding the read lock, so a send can never race the
// close of the channel it targets.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	removed := false
	for _, room := range s.rooms {
		if set, ok := h.rooms[room]; ok {
			if _, present := set[s]; present {
				removed = true
			}
			delete(set, s)
			if len(set) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	s.close()
	h.mu.Unlock()
	if removed {
		metrics.RealtimeClients.Dec()
	}
}

// Publish implements Publisher.  The event is serialized once and handed
// to every subscriber of its rooms without blocking: a full send buffer
// means the message is dropped for that subscriber.
func (h *Hub) Publish(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Name).Msg("marshal event")
		return
	}

	// The sends stay under the read lock.  They never block, and holding it
	// keeps Unsubscribe from closing a channel between snapshot and send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(map[*Subscriber]struct{})
	for _, room := range event.Rooms {
		for s := range h.rooms[room] {
			targets[s] = struct{}{}
		}
	}
	for s := range targets {
		select {
		case s.send <- body:
			metrics.FanoutDelivered.Inc()
		default:
			metrics.FanoutDropped.Inc()
			h.log.Warn().Str("event", event.Name).Msg("slow subscriber, message dropped")
		}
	}
}
