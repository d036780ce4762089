package socket

import (
	"context"
	"encoding/json"
	"fmt"

	"chatrelay/internal/logger"
	"chatrelay/pkg/errors"
	"chatrelay/pkg/metrics"
	"chatrelay/pkg/models"
)

// RelayFunc forwards an envelope to an external broker instead of the local
// fan-out. When set on a hub, broadcasts come back through the broker's
// subscription rather than directly from the submitting connection.
type RelayFunc func(ctx context.Context, env models.Envelope) error

type registration struct {
	client *Client
	errCh  chan error
}

// Hub owns the set of active connections. All registry mutations and every
// fan-out run on the single Run goroutine, so no operation ever observes a
// half-applied mutation. Connections that disconnect while a broadcast is in
// flight may or may not receive it; that race is accepted.
type Hub struct {
	logger     logger.Logger
	stamper    *models.Stamper
	relay      RelayFunc
	maxClients int
	sendBuffer int

	clients    map[*Client]struct{}
	register   chan registration
	unregister chan *Client
	broadcast  chan models.Envelope
	countCh    chan chan int
	done       chan struct{}
}

func NewHub(stamper *models.Stamper, maxClients, sendBuffer int, log logger.Logger) *Hub {
	return &Hub{
		logger:     log,
		stamper:    stamper,
		maxClients: maxClients,
		sendBuffer: sendBuffer,
		clients:    make(map[*Client]struct{}),
		register:   make(chan registration),
		unregister: make(chan *Client),
		broadcast:  make(chan models.Envelope, 64),
		countCh:    make(chan chan int),
		done:       make(chan struct{}),
	}
}

// SetRelay routes submissions through a broker bridge. Must be called before
// Run starts.
func (h *Hub) SetRelay(relay RelayFunc) {
	h.relay = relay
}

// Run serializes all registry access. It returns when ctx is cancelled,
// closing every remaining connection. Registry calls arriving after that
// must not block: pump teardown still runs Unregister for each connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case reg := <-h.register:
			if h.maxClients > 0 && len(h.clients) >= h.maxClients {
				reg.errCh <- fmt.Errorf("max clients (%d) reached", h.maxClients)
				continue
			}
			h.clients[reg.client] = struct{}{}
			metrics.ConnectedClients.Set(float64(len(h.clients)))
			h.logger.Infow("Client registered",
				"connection_id", reg.client.ID,
				"total_clients", len(h.clients),
			)
			reg.errCh <- nil

		case client := <-h.unregister:
			h.drop(client, "")

		case env := <-h.broadcast:
			h.fanOut(env)

		case replyCh := <-h.countCh:
			replyCh <- len(h.clients)

		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client, "shutdown")
			}
			h.logger.Infow("Hub stopped")
			return
		}
	}
}

// fanOut delivers one envelope to the current snapshot of connections,
// sender included. A recipient whose buffer is full is evicted; its failure
// never blocks delivery to the rest and is never surfaced to the sender.
func (h *Hub) fanOut(env models.Envelope) {
	data, err := json.Marshal(NewOutboundEvent(env))
	if err != nil {
		h.logger.Errorw("Failed to marshal outbound event",
			"error", err,
			"message_id", env.ID,
		)
		return
	}

	var failed []*Client
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		metrics.RecipientDeliveryFailuresTotal.Inc()
		h.drop(client, "send buffer full")
	}

	metrics.MessagesBroadcastTotal.Inc()
}

// drop removes a client from the registry. No-op when the client is already
// gone, so disconnect racing with eviction is harmless.
func (h *Hub) drop(client *Client, reason string) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	metrics.ConnectedClients.Set(float64(len(h.clients)))

	fields := []interface{}{
		"connection_id", client.ID,
		"total_clients", len(h.clients),
	}
	if reason != "" {
		fields = append(fields, "reason", reason)
	}
	h.logger.Infow("Client unregistered", fields...)
}

// Submit stamps one envelope for an accepted inbound message and initiates
// its broadcast. Stamping and broadcast initiation run back to back.
func (h *Hub) Submit(ctx context.Context, client *Client, text string) error {
	if text == "" {
		return errors.ErrInvalidInput.WithMessage("text is required")
	}

	env := h.stamper.Stamp(client.ID.String(), text)

	if h.relay != nil {
		return h.relay(ctx, env)
	}

	h.BroadcastEnvelope(env)
	return nil
}

// BroadcastEnvelope queues an envelope for fan-out. Also the entry point for
// envelopes arriving from the broker bridge. Dropped once the hub stops.
func (h *Hub) BroadcastEnvelope(env models.Envelope) {
	select {
	case h.broadcast <- env:
	case <-h.done:
	}
}

func (h *Hub) Register(client *Client) error {
	errCh := make(chan error, 1)
	select {
	case h.register <- registration{client: client, errCh: errCh}:
		return <-errCh
	case <-h.done:
		return fmt.Errorf("hub stopped")
	}
}

// Unregister is a no-op once the hub stops; Run has already dropped every
// remaining client on its way out.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	select {
	case h.countCh <- replyCh:
		return <-replyCh
	case <-h.done:
		return 0
	}
}
