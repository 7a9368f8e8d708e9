package domain

import "time"

type MessageType string

const (
	MessageText   MessageType = "text"
	MessageFile   MessageType = "file"
	MessageSystem MessageType = "system"
	MessageOffer  MessageType = "offer"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferDeclined OfferStatus = "declined"
)

// OfferDetails carries the terms of an offer message.
type OfferDetails struct {
	ProposedRate float64 `json:"proposed_rate"`
	Timeline     int     `json:"timeline_days"`
	Description  string  `json:"description,omitempty"`
}

// FileDetails carries the attachment metadata of a file message.
type FileDetails struct {
	URL      string `json:"url"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Message belongs to a chat and is immutable once persisted, except for
// the offer status and the AI annotation fields. Seq is the server-assigned
// per-chat ordering.
type Message struct {
	ID           string        `json:"id"`
	ChatID       string        `json:"chat_id"`
	SenderID     string        `json:"sender_id,omitempty"`
	Type         MessageType   `json:"message_type"`
	Content      string        `json:"content,omitempty"`
	File         *FileDetails  `json:"file,omitempty"`
	OfferDetails *OfferDetails `json:"offer_details,omitempty"`
	OfferStatus  OfferStatus   `json:"offer_status,omitempty"`
	Sentiment    string        `json:"sentiment,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	Seq          int64         `json:"seq"`
	CreatedAt    time.Time     `json:"created_at"`
}

// IsOffer reports whether the message carries offer terms.
func (m *Message) IsOffer() bool {
	return m.Type == MessageOffer
}

// OfferCanTransitionTo reports whether the offer status may move to next.
// Only pending offers can be resolved; accepted and declined are terminal.
func (m *Message) OfferCanTransitionTo(next OfferStatus) bool {
	if m.OfferStatus != OfferPending {
		return false
	}
	return next == OfferAccepted || next == OfferDeclined
}
