// Package conversation defines conversations, messages and their idempotency keys.
package conversation

import (
	"slices"
	"strings"
	"time"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

// Conversation is either bound to one maintenance ticket or to one unordered
// pair of participants. Archiving is tracked per viewer.
type Conversation struct {
	ID            string    `json:"-"`
	ExternalID    string    `json:"conversationId"`
	ClientID      string    `json:"-"`
	MaintenanceID string    `json:"-"`
	PropertyID    string    `json:"-"`
	TenantID      string    `json:"-"`
	PairKey       string    `json:"-"`
	Participants  []string  `json:"-"`
	ArchivedBy    []string  `json:"-"`
	LastMessage   *Message  `json:"lastMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Read-side fields joined for display.
	MaintenanceExternalID string `json:"maintenanceId,omitempty"`
	MaintenanceType       string `json:"maintenanceType,omitempty"`
	PropertyName          string `json:"propertyName,omitempty"`
}

// HasParticipant reports whether userID is a direct participant.
func (c *Conversation) HasParticipant(userID string) bool {
	return slices.Contains(c.Participants, userID)
}

// ArchivedFor reports whether userID has archived the conversation.
func (c *Conversation) ArchivedFor(userID string) bool {
	return slices.Contains(c.ArchivedBy, userID)
}

// VisibleTo reports whether id may read and post in the conversation: direct
// participants always, the ticket's tenant, staff assigned to the ticket's
// property, and the client owner for ticket conversations.
func (c *Conversation) VisibleTo(id user.Identity) bool {
	if c.ClientID != id.ClientID {
		return false
	}
	if c.HasParticipant(id.UserID) {
		return true
	}
	if c.MaintenanceID == "" {
		return false
	}
	switch {
	case id.Role == user.RoleTenant:
		return c.TenantID == id.UserID
	case id.Role == user.RoleClient:
		return true
	case id.Role.IsStaff():
		return id.CoversProperty(c.PropertyID)
	}
	return false
}

// Message is one immutable entry in a conversation's append-only log.
type Message struct {
	ID               string    `json:"-"`
	ExternalID       string    `json:"messageId"`
	ConversationID   string    `json:"-"`
	SenderID         string    `json:"-"`
	SenderExternalID string    `json:"senderId"`
	SenderName       string    `json:"senderName,omitempty"`
	Text             string    `json:"text,omitempty"`
	Image            string    `json:"image,omitempty"`
	File             string    `json:"file,omitempty"`
	Read             bool      `json:"read"`
	CreatedAt        time.Time `json:"createdAt"`

	ConversationExternalID string `json:"conversationId"`
}

// SendRequest is the body of a new message.
type SendRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
	File  string `json:"file"`
}

// Validate requires at least one of text, image or file.
func (r *SendRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" && r.Image == "" && r.File == "" {
		return domain.Invalid("message must contain text, image or file")
	}
	return nil
}

// Key identifies the single conversation that may exist for a ticket or a pair.
type Key struct {
	MaintenanceID string
	PairKey       string
	Participants  []string
}

// ForTicket returns the key of the conversation bound to a maintenance ticket.
func ForTicket(maintenanceID string) Key {
	return Key{MaintenanceID: maintenanceID}
}

// ForPair returns the key of the conversation between two users. The order of
// a and b does not matter.
func ForPair(a, b string) (Key, error) {
	if a == "" || b == "" {
		return Key{}, domain.Invalid("both participants are required")
	}
	if a == b {
		return Key{}, domain.Invalid("cannot start a conversation with yourself")
	}
	return Key{PairKey: PairKey(a, b), Participants: []string{a, b}}, nil
}

// PairKey is the canonical form of an unordered pair of user ids.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// ResolveResult is returned by conversation resolution. Created is false when
// an existing conversation was returned.
type ResolveResult struct {
	Conversation *Conversation `json:"conversation"`
	Created      bool          `json:"created"`
}
