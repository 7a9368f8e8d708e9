package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allowAll struct{}

func (allowAll) IsParticipant(context.Context, string, string) (bool, error) { return true, nil }

type denyAll struct{}

func (denyAll) IsParticipant(context.Context, string, string) (bool, error) { return false, nil }

func drain(c *Client) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func names(evs []Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Name)
	}
	return out
}

func TestHub_PresenceLastWriterWins(t *testing.T) {
	h := NewHub(allowAll{})

	first := newClient(h, nil, "user-1", "conn-1")
	h.Register(first)
	assert.Equal(t, []string{"user-1"}, h.OnlineUsers())

	// Reconnect with a fresh connection for the same user.
	second := newClient(h, nil, "user-1", "conn-2")
	h.Register(second)

	assert.Equal(t, []string{"user-1"}, h.OnlineUsers(), "presence holds the user exactly once")

	// The replaced connection was closed.
	drain(first)
	_, open := <-first.send
	assert.False(t, open)

	// Dropping the stale connection does not mark the user offline.
	h.Unregister(first)
	assert.Equal(t, []string{"user-1"}, h.OnlineUsers())

	h.Unregister(second)
	assert.Empty(t, h.OnlineUsers())
}

func TestHub_PresenceStatusChangeEvents(t *testing.T) {
	h := NewHub(allowAll{})

	watcher := newClient(h, nil, "user-1", "conn-1")
	h.Register(watcher)
	drain(watcher)

	other := newClient(h, nil, "user-2", "conn-2")
	h.Register(other)

	evs := drain(watcher)
	require.Contains(t, names(evs), EventUserStatusChange)
	for _, ev := range evs {
		if ev.Name == EventUserStatusChange {
			assert.Equal(t, "user-2", ev.Data["user_id"])
			assert.Equal(t, "online", ev.Data["status"])
		}
	}

	h.Unregister(other)
	evs = drain(watcher)
	require.Contains(t, names(evs), EventUserStatusChange)
	for _, ev := range evs {
		if ev.Name == EventUserStatusChange {
			assert.Equal(t, "offline", ev.Data["status"])
		}
	}
}

func TestHub_RoomScopedDelivery(t *testing.T) {
	h := NewHub(allowAll{})
	ctx := context.Background()

	inRoom := newClient(h, nil, "user-1", "conn-1")
	outside := newClient(h, nil, "user-2", "conn-2")
	h.Register(inRoom)
	h.Register(outside)
	h.JoinRoom(ctx, inRoom, "chat-1")
	drain(inRoom)
	drain(outside)

	h.PublishToRoom("chat-1", Event{Name: EventNewMessage, ChatID: "chat-1"})

	assert.Equal(t, []string{EventNewMessage}, names(drain(inRoom)))
	assert.Empty(t, drain(outside), "events never leak outside the room")
}

func TestHub_JoinDeniedWithoutAccess(t *testing.T) {
	h := NewHub(denyAll{})
	ctx := context.Background()

	c := newClient(h, nil, "user-1", "conn-1")
	h.Register(c)
	h.JoinRoom(ctx, c, "chat-1")
	drain(c)

	h.PublishToRoom("chat-1", Event{Name: EventNewMessage, ChatID: "chat-1"})
	assert.Empty(t, drain(c))
}

func TestHub_TypingStopsOnDisconnect(t *testing.T) {
	h := NewHub(allowAll{})
	ctx := context.Background()

	typer := newClient(h, nil, "user-1", "conn-1")
	watcher := newClient(h, nil, "user-2", "conn-2")
	h.Register(typer)
	h.Register(watcher)
	h.JoinRoom(ctx, typer, "chat-1")
	h.JoinRoom(ctx, watcher, "chat-1")
	drain(typer)
	drain(watcher)

	h.SetTyping(typer, "chat-1", true)
	assert.Equal(t, []string{"user-1"}, h.TypingUsers("chat-1"))

	evs := drain(watcher)
	require.Len(t, evs, 1)
	assert.Equal(t, EventUserTyping, evs[0].Name)
	assert.Equal(t, true, evs[0].Data["typing"])

	// Uncleanly disconnecting the typer emits the stop marker.
	h.Unregister(typer)
	assert.Empty(t, h.TypingUsers("chat-1"))

	var sawStop bool
	for _, ev := range drain(watcher) {
		if ev.Name == EventUserTyping && ev.Data["typing"] == false {
			sawStop = true
		}
	}
	assert.True(t, sawStop, "room must see typing cleared on disconnect")
}

func TestHub_TypingRequiresMembership(t *testing.T) {
	h := NewHub(allowAll{})

	c := newClient(h, nil, "user-1", "conn-1")
	h.Register(c)

	h.SetTyping(c, "chat-1", true)
	assert.Empty(t, h.TypingUsers("chat-1"))
}

func TestHub_CallTornDownOnDisconnect(t *testing.T) {
	h := NewHub(allowAll{})

	caller := newClient(h, nil, "user-1", "conn-1")
	callee := newClient(h, nil, "user-2", "conn-2")
	h.Register(caller)
	h.Register(callee)
	h.TrackCall("user-1", "user-2")
	drain(caller)
	drain(callee)

	h.Unregister(caller)

	var sawEnded bool
	for _, ev := range drain(callee) {
		if ev.Name == EventCallEnded && ev.Data["user_id"] == "user-1" {
			sawEnded = true
		}
	}
	assert.True(t, sawEnded)

	_, stillTracked := h.EndCall("user-2")
	assert.False(t, stillTracked, "call record is gone after teardown")
}

func TestHub_Route(t *testing.T) {
	h := NewHub(allowAll{})
	ctx := context.Background()

	member := newClient(h, nil, "user-1", "conn-1")
	other := newClient(h, nil, "user-2", "conn-2")
	h.Register(member)
	h.Register(other)
	h.JoinRoom(ctx, member, "chat-1")
	drain(member)
	drain(other)

	h.Route(Event{Name: EventNewMessage, ChatID: "chat-1"})
	h.Route(Event{Name: EventNotification, UserID: "user-2"})
	h.Route(Event{Name: EventProjectStatusChange})

	memberEvents := names(drain(member))
	otherEvents := names(drain(other))
	assert.Contains(t, memberEvents, EventNewMessage)
	assert.Contains(t, memberEvents, EventProjectStatusChange)
	assert.NotContains(t, otherEvents, EventNewMessage)
	assert.Contains(t, otherEvents, EventNotification)
	assert.Contains(t, otherEvents, EventProjectStatusChange)
}

func TestHub_SendAfterCloseIsDropped(t *testing.T) {
	h := NewHub(allowAll{})

	c := newClient(h, nil, "user-1", "conn-1")
	h.Register(c)
	h.Unregister(c)

	// Broadcasters snapshot targets outside hub.mu, so a delivery can
	// land after the connection was torn down. It must be a no-op.
	c.trySend(Event{Name: EventNotification})
	assert.Empty(t, drain(c))
}

func TestHub_BroadcastDuringDisconnect(t *testing.T) {
	h := NewHub(allowAll{})

	const users = 8
	clients := make([]*Client, users)
	for i := 0; i < users; i++ {
		clients[i] = newClient(h, nil, "user-"+string(rune('a'+i)), "conn-"+string(rune('a'+i)))
		h.Register(clients[i])
	}

	var wg sync.WaitGroup
	wg.Add(users + 1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			h.Broadcast(Event{Name: EventNotification})
		}
	}()
	for i := 0; i < users; i++ {
		go func(c *Client) {
			defer wg.Done()
			h.Unregister(c)
		}(clients[i])
	}
	wg.Wait()

	assert.Empty(t, h.OnlineUsers())
}

func TestHub_SlowConsumerDoesNotBlock(t *testing.T) {
	h := NewHub(allowAll{})

	c := newClient(h, nil, "user-1", "conn-1")
	h.Register(c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*3; i++ {
			h.Broadcast(Event{Name: EventNotification})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full send buffer")
	}
}
