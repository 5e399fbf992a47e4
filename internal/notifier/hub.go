// Package notifier pushes balance events to connected mentors. The escrow
// core publishes through the narrow Publisher interface and never talks to a
// delivery channel directly; this hub is one such channel.
package notifier

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/shopspring/decimal"
)

const (
	EventPaymentReleased = "payment_released"
	EventReleaseBlocked  = "release_blocked"
	EventPayoutRequested = "payout_requested"
	EventPayoutFailed    = "payout_failed"
)

type BalanceEvent struct {
	Type       string          `json:"type"`
	MentorID   int64           `json:"mentor_id"`
	SessionID  int64           `json:"session_id,omitempty"`
	PayoutID   int64           `json:"payout_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	events     chan BalanceEvent
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	mentorID string
	send     chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan BalanceEvent, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, mentorID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		mentorID: mentorID,
		send:     make(chan []byte, 16),
	}
}

// Publish queues an event for delivery. It never blocks the caller: if the
// hub is saturated the event is dropped, because balance events are a
// courtesy signal and the ledger itself is the source of truth.
func (h *Hub) Publish(event BalanceEvent) {
	select {
	case h.events <- event:
	default:
		log.Printf("notifier: dropping %s event for mentor %d", event.Type, event.MentorID)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.clients[client.mentorID] == nil {
				h.clients[client.mentorID] = make(map[*Client]struct{})
			}
			h.clients[client.mentorID][client] = struct{}{}
		case client := <-h.unregister:
			if conns, ok := h.clients[client.mentorID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(h.clients, client.mentorID)
					}
				}
			}
		case event := <-h.events:
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("notifier: marshal event: %v", err)
				continue
			}
			for client := range h.clients[strconv.FormatInt(event.MentorID, 10)] {
				select {
				case client.send <- payload:
				default:
					// Slow consumer; drop the connection rather than the hub.
					delete(h.clients[client.mentorID], client)
					close(client.send)
				}
			}
		}
	}
}

// Serve attaches the connection to the hub and blocks until it closes.
// Clients are receive-only; inbound frames are discarded.
func (c *Client) Serve() {
	c.hub.register <- c

	go func() {
		for payload := range c.send {
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()

	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
