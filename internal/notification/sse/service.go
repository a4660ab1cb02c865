// Package sse provides Server-Sent Events support for real-time store
// change notifications.
package sse

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventContactAdded      EventType = "contact_added"
	EventContactUpdated    EventType = "contact_updated"
	EventContactDeleted    EventType = "contact_deleted"
	EventBatchUpdated      EventType = "batch_updated"
	EventSelectionChanged  EventType = "selection_changed"
	EventConsultantChanged EventType = "consultant_changed"
	EventContactsReset     EventType = "contacts_reset"
	EventReconciled        EventType = "reconciled"
)

// Event represents an SSE event payload
type Event struct {
	Type    EventType   `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client
type client struct {
	id     uuid.UUID
	events chan Event
}

// Service manages SSE connections and broadcasts every store change to all
// connected operator sessions. There is no per-user routing: every session
// watches the same shared state.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
}

// New creates a new SSE service
func New() *Service {
	return &Service{clients: make(map[uuid.UUID]*client)}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c.id]; !ok {
		return
	}
	delete(s.clients, c.id)
	close(c.events)
}

// Broadcast sends an event to every connected client. Slow clients with a
// full buffer skip the event rather than block the broadcaster.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.clients {
		select {
		case c.events <- event:
		default:
			log.Printf("SSE: Event buffer full for client %s", c.id)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Set SSE headers
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			id:     uuid.New(),
			events: make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"clientId": cl.id})
		c.Writer.Flush()

		log.Printf("SSE: Client connected - %s", cl.id)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				log.Printf("SSE: Client disconnected - %s", cl.id)
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close shuts down the SSE service
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		close(c.events)
	}
	s.clients = make(map[uuid.UUID]*client)
}
