package domain

import "time"

type ChatStatus string

const (
	ChatActive   ChatStatus = "active"
	ChatClosed   ChatStatus = "closed"
	ChatArchived ChatStatus = "archived"
)

// Chat is the 1:1 negotiation thread for an application, owned jointly by
// the client and the freelancer named in it. Created lazily, never deleted.
type Chat struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	ProjectID     string     `json:"project_id"`
	ClientID      string     `json:"client_id"`
	FreelancerID  string     `json:"freelancer_id"`
	Status        ChatStatus `json:"status"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasParticipant reports whether userID is a party to the chat.
func (c *Chat) HasParticipant(userID string) bool {
	return userID == c.ClientID || userID == c.FreelancerID
}

// Counterpart returns the other party of the chat, or "" if userID is not
// a participant.
func (c *Chat) Counterpart(userID string) string {
	switch userID {
	case c.ClientID:
		return c.FreelancerID
	case c.FreelancerID:
		return c.ClientID
	}
	return ""
}
