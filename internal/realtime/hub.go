package realtime

import (
	"context"
	"sort"
	"sync"
)

// ChatAccess authorizes room joins. Implemented by the chat repository.
type ChatAccess interface {
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}

// Hub owns all connection state: presence, room membership, typing
// markers and active call records. Everything here is process-local and
// intentionally lost on restart; clients reconcile via REST on reconnect.
// All maps are guarded by one mutex and every operation is O(1) in the
// number of connections outside fan-out.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*Client]struct{}
	byUser map[string]*Client            // last writer wins per user
	rooms  map[string]map[*Client]struct{} // chatID -> members
	typing map[string]map[string]struct{}  // chatID -> userIDs typing
	calls  map[string]string               // userID -> peer userID, both directions

	access ChatAccess
}

func NewHub(access ChatAccess) *Hub {
	return &Hub{
		conns:  make(map[*Client]struct{}),
		byUser: make(map[string]*Client),
		rooms:  make(map[string]map[*Client]struct{}),
		typing: make(map[string]map[string]struct{}),
		calls:  make(map[string]string),
		access: access,
	}
}

// Register marks the client's user online. A prior connection for the
// same user is replaced and closed: reconnects never leave the presence
// list with two entries for one user.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if prev, ok := h.byUser[c.userID]; ok && prev != c {
		h.detachLocked(prev)
		prev.close()
	}
	h.conns[c] = struct{}{}
	h.byUser[c.userID] = c
	users := h.onlineUsersLocked()
	h.mu.Unlock()

	h.Broadcast(Event{Name: EventUserOnline, Data: map[string]any{"user_id": c.userID}})
	h.Broadcast(Event{Name: EventUserStatusChange, Data: map[string]any{"user_id": c.userID, "status": "online"}})
	h.Broadcast(Event{Name: EventOnlineUsers, Data: map[string]any{"users": users}})
}

// Unregister tears the connection down: room memberships go away, typing
// markers owned by it emit a stop signal, and a tracked call notifies the
// other party before the record is dropped.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	stops := h.detachLocked(c)

	current := h.byUser[c.userID] == c
	var peer *Client
	if current {
		delete(h.byUser, c.userID)
		if peerID, inCall := h.calls[c.userID]; inCall {
			delete(h.calls, c.userID)
			delete(h.calls, peerID)
			peer = h.byUser[peerID]
		}
	}
	users := h.onlineUsersLocked()
	h.mu.Unlock()

	c.close()
	for _, ev := range stops {
		h.PublishToRoom(ev.ChatID, ev)
	}
	if peer != nil {
		peer.trySend(Event{Name: EventCallEnded, Data: map[string]any{"user_id": c.userID}})
	}
	if current {
		h.Broadcast(Event{Name: EventUserOffline, Data: map[string]any{"user_id": c.userID}})
		h.Broadcast(Event{Name: EventUserStatusChange, Data: map[string]any{"user_id": c.userID, "status": "offline"}})
		h.Broadcast(Event{Name: EventOnlineUsers, Data: map[string]any{"users": users}})
	}
}

// detachLocked removes the client from conns, rooms and typing state and
// returns the stop-typing events owed to its rooms.
func (h *Hub) detachLocked(c *Client) []Event {
	delete(h.conns, c)
	var stops []Event
	for chatID := range c.rooms {
		if members, ok := h.rooms[chatID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, chatID)
			}
		}
		if ts, ok := h.typing[chatID]; ok {
			if _, typing := ts[c.userID]; typing {
				delete(ts, c.userID)
				if len(ts) == 0 {
					delete(h.typing, chatID)
				}
				stops = append(stops, Event{
					Name:   EventUserTyping,
					ChatID: chatID,
					Data:   map[string]any{"user_id": c.userID, "typing": false},
				})
			}
		}
	}
	c.rooms = make(map[string]struct{})
	return stops
}

// JoinRoom subscribes the connection to a chat's broadcasts after an
// access check. Unauthorized joins are ignored.
func (h *Hub) JoinRoom(ctx context.Context, c *Client, chatID string) {
	if h.access != nil {
		ok, err := h.access.IsParticipant(ctx, chatID, c.userID)
		if err != nil || !ok {
			return
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	members, ok := h.rooms[chatID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[chatID] = members
	}
	members[c] = struct{}{}
	c.rooms[chatID] = struct{}{}
}

// LeaveRoom unsubscribes the connection from a chat's broadcasts.
func (h *Hub) LeaveRoom(c *Client, chatID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[chatID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, chatID)
		}
	}
	delete(c.rooms, chatID)
}

// SetTyping records or clears a typing marker and tells the rest of the
// room. Markers carry no timer; staleness is a client-side concern.
func (h *Hub) SetTyping(c *Client, chatID string, typing bool) {
	h.mu.Lock()
	if _, member := c.rooms[chatID]; !member {
		h.mu.Unlock()
		return
	}
	ts, ok := h.typing[chatID]
	if typing {
		if !ok {
			ts = make(map[string]struct{})
			h.typing[chatID] = ts
		}
		ts[c.userID] = struct{}{}
	} else if ok {
		delete(ts, c.userID)
		if len(ts) == 0 {
			delete(h.typing, chatID)
		}
	}
	h.mu.Unlock()

	h.publishToRoomExcept(chatID, c, Event{
		Name:   EventUserTyping,
		ChatID: chatID,
		Data:   map[string]any{"user_id": c.userID, "typing": typing},
	})
}

// TrackCall records an active call between two users so that either
// side's disconnect can notify the other.
func (h *Hub) TrackCall(a, b string) {
	h.mu.Lock()
	h.calls[a] = b
	h.calls[b] = a
	h.mu.Unlock()
}

// EndCall drops the call record for userID and returns the peer, if any.
func (h *Hub) EndCall(userID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	peer, ok := h.calls[userID]
	if !ok {
		return "", false
	}
	delete(h.calls, userID)
	delete(h.calls, peer)
	return peer, true
}

// PublishToRoom delivers the event to connections joined to the chat.
// Connections with a full buffer are skipped; delivery is best-effort.
func (h *Hub) PublishToRoom(chatID string, ev Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[chatID]))
	for c := range h.rooms[chatID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(ev)
	}
}

func (h *Hub) publishToRoomExcept(chatID string, skip *Client, ev Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[chatID]))
	for c := range h.rooms[chatID] {
		if c != skip {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(ev)
	}
}

// Broadcast delivers the event to every connection.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(ev)
	}
}

// SendToUser delivers the event to the user's current connection, if any.
func (h *Hub) SendToUser(userID string, ev Event) {
	h.mu.RLock()
	c := h.byUser[userID]
	h.mu.RUnlock()
	if c != nil {
		c.trySend(ev)
	}
}

// OnlineUsers returns a sorted snapshot of connected user IDs.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onlineUsersLocked()
}

func (h *Hub) onlineUsersLocked() []string {
	users := make([]string, 0, len(h.byUser))
	for id := range h.byUser {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// TypingUsers returns the users currently marked typing in the chat.
func (h *Hub) TypingUsers(chatID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.typing[chatID]))
	for id := range h.typing[chatID] {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// Route dispatches a bus event: chat-scoped to the room, user-scoped to
// that user, everything else process-wide.
func (h *Hub) Route(ev Event) {
	switch {
	case ev.ChatID != "":
		h.PublishToRoom(ev.ChatID, ev)
	case ev.UserID != "":
		h.SendToUser(ev.UserID, ev)
	default:
		h.Broadcast(ev)
	}
}
