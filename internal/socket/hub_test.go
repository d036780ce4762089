package socket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/logger"
	apperrors "chatrelay/pkg/errors"
	"chatrelay/pkg/models"
)

func newTestHub(t *testing.T, maxClients int) *Hub {
	t.Helper()
	stamper := models.NewStamper(clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
	hub := NewHub(stamper, maxClients, 8, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub
}

func newTestClient(hub *Hub) *Client {
	return &Client{
		ID:     uuid.New(),
		hub:    hub,
		send:   make(chan []byte, hub.sendBuffer),
		logger: hub.logger,
	}
}

func receiveEvent(t *testing.T, client *Client) OutboundEvent {
	t.Helper()
	select {
	case data := <-client.send:
		var event OutboundEvent
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return OutboundEvent{}
	}
}

func TestHub_Submit_BroadcastsToAllIncludingSender(t *testing.T) {
	hub := newTestHub(t, 0)

	sender := newTestClient(hub)
	others := []*Client{newTestClient(hub), newTestClient(hub)}

	require.NoError(t, hub.Register(sender))
	for _, c := range others {
		require.NoError(t, hub.Register(c))
	}

	require.NoError(t, hub.Submit(context.Background(), sender, "hello everyone"))

	for _, c := range append([]*Client{sender}, others...) {
		event := receiveEvent(t, c)
		assert.Equal(t, sender.ID.String(), event.User)
		assert.Equal(t, "hello everyone", event.Text)
		assert.NotZero(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
	}
}

func TestHub_Submit_RejectsEmptyText(t *testing.T) {
	hub := newTestHub(t, 0)
	client := newTestClient(hub)
	require.NoError(t, hub.Register(client))

	err := hub.Submit(context.Background(), client, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.Empty(t, client.send)
}

func TestHub_StoppedHubUnblocksRegistryCalls(t *testing.T) {
	stamper := models.NewStamper(clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
	hub := NewHub(stamper, 0, 8, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(runDone)
	}()

	client := newTestClient(hub)
	require.NoError(t, hub.Register(client))

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	// Pump teardown still unregisters each connection after the hub stopped;
	// none of these may block.
	unregDone := make(chan struct{})
	go func() {
		hub.Unregister(client)
		close(unregDone)
	}()
	select {
	case <-unregDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Unregister blocked after hub stopped")
	}

	require.Error(t, hub.Register(newTestClient(hub)))
	assert.Equal(t, 0, hub.ClientCount())

	// Late bridge deliveries must not block either.
	hub.BroadcastEnvelope(models.Envelope{ID: 1, UserID: "user-1", Text: "late"})
}

func TestHub_Unregister_StopsDelivery(t *testing.T) {
	hub := newTestHub(t, 0)

	staying := newTestClient(hub)
	leaving := newTestClient(hub)
	require.NoError(t, hub.Register(staying))
	require.NoError(t, hub.Register(leaving))

	hub.Unregister(leaving)

	// The send channel closes on removal.
	select {
	case _, ok := <-leaving.send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	require.NoError(t, hub.Submit(context.Background(), staying, "still here"))

	event := receiveEvent(t, staying)
	assert.Equal(t, "still here", event.Text)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_Register_MaxClients(t *testing.T) {
	hub := newTestHub(t, 1)

	first := newTestClient(hub)
	second := newTestClient(hub)

	require.NoError(t, hub.Register(first))
	require.Error(t, hub.Register(second))
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_FanOut_EvictsSlowClient(t *testing.T) {
	hub := newTestHub(t, 0)

	healthy := newTestClient(hub)
	slow := newTestClient(hub)
	slow.send = make(chan []byte) // unbuffered and never read

	require.NoError(t, hub.Register(healthy))
	require.NoError(t, hub.Register(slow))

	require.NoError(t, hub.Submit(context.Background(), healthy, "first"))
	event := receiveEvent(t, healthy)
	assert.Equal(t, "first", event.Text)

	// The slow client is gone; the healthy one keeps receiving.
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Submit(context.Background(), healthy, "second"))
	event = receiveEvent(t, healthy)
	assert.Equal(t, "second", event.Text)
}

func TestHub_Submit_UsesRelayWhenSet(t *testing.T) {
	stamper := models.NewStamper(clockwork.NewFakeClockAt(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
	hub := NewHub(stamper, 0, 8, logger.NopLogger())

	var relayed []models.Envelope
	hub.SetRelay(func(_ context.Context, env models.Envelope) error {
		relayed = append(relayed, env)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	client := newTestClient(hub)
	require.NoError(t, hub.Register(client))

	require.NoError(t, hub.Submit(context.Background(), client, "via broker"))

	require.Len(t, relayed, 1)
	assert.Equal(t, client.ID.String(), relayed[0].UserID)
	assert.Equal(t, "via broker", relayed[0].Text)

	// Local fan-out is bypassed; delivery happens when the broker echoes back.
	assert.Empty(t, client.send)

	hub.BroadcastEnvelope(relayed[0])
	event := receiveEvent(t, client)
	assert.Equal(t, "via broker", event.Text)
}
