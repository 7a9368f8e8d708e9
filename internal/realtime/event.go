package realtime

import "context"

// Event names exchanged with connected clients. Room-scoped events carry
// a chat ID; user-scoped events carry a target user ID; the rest are
// broadcast process-wide.
const (
	EventUserOnline          = "user-online"
	EventUserOffline         = "user-offline"
	EventOnlineUsers         = "online-users"
	EventUserStatusChange    = "user-status-change"
	EventUserTyping          = "user-typing"
	EventNewMessage          = "new-message"
	EventMessageReceived     = "message-received"
	EventOfferResponse       = "offer-response"
	EventProjectStatusChange = "project-status-change"
	EventNotification        = "notification"
	EventCallEnded           = "call-ended"
	EventIncomingCall        = "incoming-call"
	EventCallAccepted        = "call-accepted"
)

// Inbound frame names sent by clients.
const (
	FrameJoinChat     = "join-chat"
	FrameLeaveChat    = "leave-chat"
	FrameTypingStart  = "typing-start"
	FrameTypingStop   = "typing-stop"
	FrameCallUser     = "call-user"
	FrameCallAccepted = "call-accepted"
	FrameEndCall      = "end-call"
)

// Event is a realtime payload fanned out to connected clients.
type Event struct {
	Name   string         `json:"event"`
	ChatID string         `json:"chat_id,omitempty"`
	UserID string         `json:"user_id,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
}

// Publisher hands domain events to the realtime layer after a successful
// mutation. Delivery is best-effort: implementations never fail the caller.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// NopPublisher discards events. Used where realtime delivery is optional.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
