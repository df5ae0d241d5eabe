package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/conversation"
	"github.com/Strob0t/PropertyHub/internal/domain/maintenance"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/broadcast"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// RecentLimit is the number of messages returned by Recent.
const RecentLimit = 10

// TypingEvent is pushed while a participant is composing a message.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Typing         bool   `json:"typing"`
}

// conversationStore is the subset of the store the conversation core needs.
type conversationStore interface {
	database.ConversationStore
	GetTicketByExternalID(ctx context.Context, externalID string) (*maintenance.Ticket, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error)
}

// ConversationService resolves conversations idempotently and appends to
// their message logs.
type ConversationService struct {
	store conversationStore
	push  broadcast.Broadcaster
	log   *zap.Logger
}

// NewConversationService creates a conversation service.
func NewConversationService(store conversationStore, push broadcast.Broadcaster, log *zap.Logger) *ConversationService {
	return &ConversationService{store: store, push: push, log: log.Named("conversations")}
}

// ResolveForTicket returns the conversation bound to t, creating it on first use.
func (s *ConversationService) ResolveForTicket(ctx context.Context, t *maintenance.Ticket) (conversation.ResolveResult, error) {
	seed := &conversation.Conversation{
		ClientID:      t.ClientID,
		MaintenanceID: t.ID,
		PropertyID:    t.PropertyID,
		TenantID:      t.TenantID,
		Participants:  []string{t.TenantID},
	}
	c, created, err := s.store.ResolveConversation(ctx, conversation.ForTicket(t.ID), seed)
	if err != nil {
		return conversation.ResolveResult{}, fmt.Errorf("resolve ticket conversation: %w", err)
	}
	return conversation.ResolveResult{Conversation: c, Created: created}, nil
}

// StartForTicket resolves the conversation of a ticket the caller may see.
func (s *ConversationService) StartForTicket(ctx context.Context, actor user.Identity, maintenanceID string) (conversation.ResolveResult, error) {
	t, err := s.store.GetTicketByExternalID(ctx, maintenanceID)
	if err != nil {
		return conversation.ResolveResult{}, fmt.Errorf("start conversation: %w", err)
	}
	if !ticketVisibleTo(t, actor) {
		return conversation.ResolveResult{}, fmt.Errorf("start conversation: %w", domain.ErrNotFound)
	}
	return s.ResolveForTicket(ctx, t)
}

// StartPair resolves the conversation between the caller and another user of
// the same client.
func (s *ConversationService) StartPair(ctx context.Context, actor user.Identity, otherUserID string) (conversation.ResolveResult, error) {
	other, err := s.store.GetUserByExternalID(ctx, otherUserID)
	if err != nil {
		return conversation.ResolveResult{}, fmt.Errorf("start conversation: %w", err)
	}
	key, err := conversation.ForPair(actor.UserID, other.ID)
	if err != nil {
		return conversation.ResolveResult{}, err
	}
	seed := &conversation.Conversation{
		ClientID:     actor.ClientID,
		PairKey:      key.PairKey,
		Participants: key.Participants,
	}
	c, created, err := s.store.ResolveConversation(ctx, key, seed)
	if err != nil {
		return conversation.ResolveResult{}, fmt.Errorf("resolve pair conversation: %w", err)
	}
	return conversation.ResolveResult{Conversation: c, Created: created}, nil
}

// List returns the caller's active or archived conversations, most recent
// activity first.
func (s *ConversationService) List(ctx context.Context, actor user.Identity, archived bool) ([]conversation.Conversation, error) {
	items, err := s.store.ListConversations(ctx, actor, archived)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if items == nil {
		items = []conversation.Conversation{}
	}
	return items, nil
}

// Get loads a conversation the caller may read. Conversations the caller
// cannot see are reported as not found.
func (s *ConversationService) Get(ctx context.Context, actor user.Identity, conversationID string) (*conversation.Conversation, error) {
	c, err := s.store.GetConversationByExternalID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if !c.VisibleTo(actor) {
		return nil, fmt.Errorf("get conversation %s: %w", conversationID, domain.ErrNotFound)
	}
	return c, nil
}

// Messages returns a page of the conversation's messages, newest first.
func (s *ConversationService) Messages(ctx context.Context, actor user.Identity, conversationID string, page domain.PageRequest) (domain.Page[conversation.Message], error) {
	c, err := s.Get(ctx, actor, conversationID)
	if err != nil {
		return domain.Page[conversation.Message]{}, err
	}
	items, total, err := s.store.ListMessages(ctx, c.ID, page)
	if err != nil {
		return domain.Page[conversation.Message]{}, fmt.Errorf("list messages: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// Send appends a message and pushes it to everyone who can see the conversation.
func (s *ConversationService) Send(ctx context.Context, actor user.Identity, conversationID string, req *conversation.SendRequest) (*conversation.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}
	m := &conversation.Message{
		ConversationID:         c.ID,
		ConversationExternalID: c.ExternalID,
		SenderID:               actor.UserID,
		SenderExternalID:       actor.ExternalID,
		SenderName:             actor.Name,
		Text:                   req.Text,
		Image:                  req.Image,
		File:                   req.File,
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	s.deliver(ctx, c, "", broadcast.EventNewMessage, m)
	return m, nil
}

// Typing tells the other readers of a conversation that the caller started
// or stopped typing.
func (s *ConversationService) Typing(ctx context.Context, actor user.Identity, conversationID string, typing bool) error {
	c, err := s.Get(ctx, actor, conversationID)
	if err != nil {
		return err
	}
	s.deliver(ctx, c, actor.UserID, broadcast.EventTyping, TypingEvent{
		ConversationID: c.ExternalID,
		UserID:         actor.ExternalID,
		Name:           actor.Name,
		Typing:         typing,
	})
	return nil
}

// Archive hides the conversation from the caller's active list only.
func (s *ConversationService) Archive(ctx context.Context, actor user.Identity, conversationID string) error {
	return s.setArchived(ctx, actor, conversationID, true)
}

// Unarchive restores the conversation to the caller's active list.
func (s *ConversationService) Unarchive(ctx context.Context, actor user.Identity, conversationID string) error {
	return s.setArchived(ctx, actor, conversationID, false)
}

func (s *ConversationService) setArchived(ctx context.Context, actor user.Identity, conversationID string, archived bool) error {
	c, err := s.Get(ctx, actor, conversationID)
	if err != nil {
		return err
	}
	if err := s.store.SetArchived(ctx, c.ID, actor.UserID, archived); err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	return nil
}

// Recent returns the latest messages sent to the caller across active conversations.
func (s *ConversationService) Recent(ctx context.Context, actor user.Identity) ([]conversation.Message, error) {
	items, err := s.store.RecentMessages(ctx, actor, RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	if items == nil {
		items = []conversation.Message{}
	}
	return items, nil
}

// deliver pushes an event to the direct participants and, for ticket
// conversations, to the tenant, the property's staff room and the client
// owner's room. skip excludes one user from the per-user pushes.
func (s *ConversationService) deliver(ctx context.Context, c *conversation.Conversation, skip, event string, payload any) {
	seen := make(map[string]bool, len(c.Participants)+1)
	targets := append([]string{}, c.Participants...)
	if c.TenantID != "" {
		targets = append(targets, c.TenantID)
	}
	for _, uid := range targets {
		if uid == "" || uid == skip || seen[uid] {
			continue
		}
		seen[uid] = true
		s.push.ToUser(ctx, uid, event, payload)
	}
	if c.MaintenanceID != "" {
		s.push.ToRoom(ctx, broadcast.PropertyRoom(c.PropertyID), event, payload)
		s.push.ToRoom(ctx, broadcast.ClientRoom(c.ClientID), event, payload)
	}
}

// ticketVisibleTo applies the conversation visibility rules to a ticket
// before its conversation exists.
func ticketVisibleTo(t *maintenance.Ticket, id user.Identity) bool {
	switch {
	case t.ClientID != id.ClientID:
		return false
	case id.Role == user.RoleTenant:
		return t.TenantID == id.UserID
	case id.Role == user.RoleClient:
		return true
	case id.Role.IsStaff():
		return id.CoversProperty(t.PropertyID)
	}
	return false
}
