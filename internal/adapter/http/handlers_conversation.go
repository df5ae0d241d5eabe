package http

import (
	"net/http"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/conversation"
)

// startPairRequest is the body of POST /messages/start.
type startPairRequest struct {
	UserID string `json:"userId"`
}

// ListConversations handles GET /api/v1/messages/
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	h.listConversations(w, r, false)
}

// ListArchivedConversations handles GET /api/v1/messages/archived
func (h *Handlers) ListArchivedConversations(w http.ResponseWriter, r *http.Request) {
	h.listConversations(w, r, true)
}

func (h *Handlers) listConversations(w http.ResponseWriter, r *http.Request, archived bool) {
	items, err := h.Conversations.List(r.Context(), actor(r), archived)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"conversations": items})
}

// RecentMessages handles GET /api/v1/messages/recent
func (h *Handlers) RecentMessages(w http.ResponseWriter, r *http.Request) {
	items, err := h.Conversations.Recent(r.Context(), actor(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"messages": items})
}

// GetConversation handles GET /api/v1/messages/{id}
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	id := actor(r)
	convID := urlParam(r, "id")
	c, err := h.Conversations.Get(r.Context(), id, convID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	p, err := h.Conversations.Messages(r.Context(), id, convID, pageRequest(r, domain.DefaultPageSize))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{
		"conversation": c,
		"messages":     p.Items,
		"currentPage":  p.CurrentPage,
		"totalPages":   p.TotalPages,
	})
}

// SendMessage handles POST /api/v1/messages/{id}
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[conversation.SendRequest](w, r)
	if !ok {
		return
	}
	m, err := h.Conversations.Send(r.Context(), actor(r), urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"chatMessage": m})
}

// StartTicketConversation handles POST /api/v1/messages/{id}/start
func (h *Handlers) StartTicketConversation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Conversations.StartForTicket(r.Context(), actor(r), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeResolved(w, res)
}

// StartPairConversation handles POST /api/v1/messages/start
func (h *Handlers) StartPairConversation(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[startPairRequest](w, r)
	if !ok {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	res, err := h.Conversations.StartPair(r.Context(), actor(r), req.UserID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeResolved(w, res)
}

// writeResolved answers 201 for a new conversation and 200 for an existing one.
func writeResolved(w http.ResponseWriter, res conversation.ResolveResult) {
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeOK(w, status, envelope{"conversation": res.Conversation, "created": res.Created})
}

// ArchiveConversation handles PUT /api/v1/messages/{id}/archive
func (h *Handlers) ArchiveConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.Conversations.Archive(r.Context(), actor(r), urlParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Conversation archived"})
}

// UnarchiveConversation handles PUT /api/v1/messages/{id}/unarchive
func (h *Handlers) UnarchiveConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.Conversations.Unarchive(r.Context(), actor(r), urlParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"message": "Conversation unarchived"})
}
