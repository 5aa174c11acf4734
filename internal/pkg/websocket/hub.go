// Package websocket pushes workshop events to connected browsers.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/workshophub/internal/pkg/events"
)

// AllWorkshops is the topic of clients following every workshop.
const AllWorkshops int64 = 0

// ErrHubClosed is returned by Publish after Close.
var ErrHubClosed = errors.New("websocket hub closed")

// Message is the JSON frame sent to clients.
type Message struct {
	Type       string      `json:"type"`
	WorkshopID int64       `json:"workshopId"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	// Registered clients organized by workshop ID; AllWorkshops holds the firehose
	clients map[int64]map[*Client]struct{}

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client

	// Guards clients for ClientCount; only Run mutates the map
	mu sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

// NewHub creates a new Hub instance. Call Run in its own goroutine before publishing.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "live_hub").Logger(),
	}
}

// Run handles client registrations and broadcasts until Close is called.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-h.done:
			h.disconnectAll()
			return
		}
	}
}

// Publish forwards a domain event to the clients following its workshop.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	message := &Message{
		Type:       event.Type,
		WorkshopID: event.WorkshopID,
		Payload:    event.Payload,
		Timestamp:  event.OccurredAt,
	}
	if h.closed() {
		return ErrHubClosed
	}
	select {
	case h.broadcast <- message:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops Run and disconnects every client.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

// ClientCount returns the number of connected clients following a workshop
func (h *Hub) ClientCount(workshopID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workshopID])
}

func (h *Hub) closed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Hub) join(client *Client) bool {
	if h.closed() {
		return false
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.workshopID]; !ok {
		h.clients[client.workshopID] = make(map[*Client]struct{})
	}
	h.clients[client.workshopID][client] = struct{}{}

	h.logger.Info().
		Int64("workshopID", client.workshopID).
		Int64("userID", client.userID).
		Str("addr", client.remoteAddr).
		Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.workshopID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.workshopID)
	}

	h.logger.Info().
		Int64("workshopID", client.workshopID).
		Int64("userID", client.userID).
		Str("addr", client.remoteAddr).
		Msg("Client unregistered")
}

// broadcastMessage sends to the workshop's followers and to the firehose.
// Clients whose send buffer is full are dropped.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Str("type", message.Type).Msg("Failed to marshal message for broadcast")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	topics := []int64{AllWorkshops}
	if message.WorkshopID != AllWorkshops {
		topics = append(topics, message.WorkshopID)
	}

	delivered := 0
	for _, topic := range topics {
		for client := range h.clients[topic] {
			select {
			case client.send <- data:
				delivered++
			default:
				h.logger.Warn().Int64("userID", client.userID).Msg("Dropping slow client")
				h.removeLocked(client)
			}
		}
	}

	h.logger.Debug().
		Str("type", message.Type).
		Int64("workshopID", message.WorkshopID).
		Int("clientCount", delivered).
		Msg("Message broadcast")
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}
