package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/conversation"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

const conversationSelect = `SELECT c.id, c.external_id, c.client_id,
	COALESCE(c.maintenance_id::text, ''), COALESCE(c.property_id::text, ''), COALESCE(c.tenant_id::text, ''),
	COALESCE(c.pair_key, ''), c.participants, c.archived_by, c.created_at, c.updated_at,
	COALESCE(t.external_id, ''), COALESCE(t.type, ''), COALESCE(p.name, ''),
	lm.external_id, lm.sender_external_id, lm.sender_name, lm.text, lm.image, lm.file, lm.read, lm.created_at
	FROM conversations c
	LEFT JOIN maintenance_tickets t ON t.id = c.maintenance_id
	LEFT JOIN properties p ON p.id = c.property_id
	LEFT JOIN LATERAL (
		SELECT m.external_id, su.external_id AS sender_external_id, su.name AS sender_name,
		       m.text, m.image, m.file, m.read, m.created_at
		FROM messages m JOIN users su ON su.id = m.sender_id
		WHERE m.conversation_id = c.id
		ORDER BY m.created_at DESC LIMIT 1
	) lm ON TRUE`

// visibleTo mirrors conversation.Conversation.VisibleTo. Parameters:
// $1 client, $2 viewer id, $3 viewer role, $4 viewer property ids.
const visibleTo = ` c.client_id = $1 AND (
	$2::text = ANY(c.participants)
	OR (c.maintenance_id IS NOT NULL AND (
		($3::text = 'TENANT' AND c.tenant_id::text = $2::text)
		OR $3::text = 'CLIENT'
		OR ($3::text IN ('MANAGER', 'MAINTAINER', 'JANITOR') AND c.property_id::text = ANY($4::text[]))
	)))`

func scanConversation(row scannable) (conversation.Conversation, error) {
	var (
		c      conversation.Conversation
		lmID   *string
		lmFrom *string
		lmName *string
		lmText *string
		lmImg  *string
		lmFile *string
		lmRead *bool
		lmAt   *time.Time
	)
	err := row.Scan(&c.ID, &c.ExternalID, &c.ClientID, &c.MaintenanceID, &c.PropertyID, &c.TenantID,
		&c.PairKey, &c.Participants, &c.ArchivedBy, &c.CreatedAt, &c.UpdatedAt,
		&c.MaintenanceExternalID, &c.MaintenanceType, &c.PropertyName,
		&lmID, &lmFrom, &lmName, &lmText, &lmImg, &lmFile, &lmRead, &lmAt)
	if err != nil {
		return c, err
	}
	if lmID != nil {
		c.LastMessage = &conversation.Message{
			ExternalID:             *lmID,
			SenderExternalID:       *lmFrom,
			SenderName:             *lmName,
			Text:                   *lmText,
			Image:                  *lmImg,
			File:                   *lmFile,
			Read:                   *lmRead,
			CreatedAt:              *lmAt,
			ConversationExternalID: c.ExternalID,
		}
	}
	return c, nil
}

// ResolveConversation relies on the partial unique indexes on maintenance_id
// and pair_key: of concurrent inserts for one key exactly one returns a row,
// the others fall through to the lookup.
func (s *Store) ResolveConversation(ctx context.Context, key conversation.Key, seed *conversation.Conversation) (*conversation.Conversation, bool, error) {
	if key.MaintenanceID == "" && key.PairKey == "" {
		return nil, false, domain.Invalid("conversation key is empty")
	}
	cid := clientFromCtx(ctx)
	if seed == nil {
		seed = &conversation.Conversation{}
	}
	assignIDs(&seed.ID, &seed.ExternalID)
	participants := seed.Participants
	if len(participants) == 0 {
		participants = key.Participants
	}

	var (
		id      string
		created = true
	)
	err := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, external_id, client_id, maintenance_id, property_id, tenant_id, pair_key, participants)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING id`,
		seed.ID, seed.ExternalID, cid, nullIfEmpty(key.MaintenanceID), nullIfEmpty(seed.PropertyID),
		nullIfEmpty(seed.TenantID), nullIfEmpty(key.PairKey), pgTextArray(participants),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
		err = s.pool.QueryRow(ctx, `
			SELECT id FROM conversations
			WHERE client_id = $1 AND (maintenance_id::text = $2 OR pair_key = $3)`,
			cid, key.MaintenanceID, key.PairKey,
		).Scan(&id)
	}
	if err != nil {
		return nil, false, notFoundWrap(err, "resolve conversation")
	}

	c, err := scanConversation(s.pool.QueryRow(ctx, conversationSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, false, notFoundWrap(err, "load conversation %s", id)
	}
	return &c, created, nil
}

func (s *Store) GetConversationByExternalID(ctx context.Context, externalID string) (*conversation.Conversation, error) {
	c, err := scanConversation(s.pool.QueryRow(ctx,
		conversationSelect+` WHERE c.external_id = $1 AND c.client_id = $2`, externalID, clientFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get conversation %s", externalID)
	}
	return &c, nil
}

func (s *Store) ListConversations(ctx context.Context, viewer user.Identity, archived bool) ([]conversation.Conversation, error) {
	rows, err := s.pool.Query(ctx,
		conversationSelect+` WHERE`+visibleTo+` AND ($5::boolean = ($2::text = ANY(c.archived_by)))
		ORDER BY c.updated_at DESC`,
		nullIfEmpty(viewer.ClientID), viewer.UserID, string(viewer.Role), pgTextArray(viewer.PropertyIDs), archived)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	convs, err := collect(rows, scanConversation)
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return orEmpty(convs), nil
}

const messageColumns = `m.id, m.external_id, m.conversation_id, m.sender_id, su.external_id, su.name,
	m.text, m.image, m.file, m.read, m.created_at, c.external_id`

const messageFrom = ` FROM messages m
	JOIN users su ON su.id = m.sender_id
	JOIN conversations c ON c.id = m.conversation_id`

func scanMessage(row scannable) (conversation.Message, error) {
	var m conversation.Message
	err := row.Scan(&m.ID, &m.ExternalID, &m.ConversationID, &m.SenderID, &m.SenderExternalID, &m.SenderName,
		&m.Text, &m.Image, &m.File, &m.Read, &m.CreatedAt, &m.ConversationExternalID)
	return m, err
}

func (s *Store) AppendMessage(ctx context.Context, m *conversation.Message) error {
	assignIDs(&m.ID, &m.ExternalID)
	m.CreatedAt = time.Now().UTC()
	cid := clientFromCtx(ctx)
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE conversations SET updated_at = $3 WHERE id = $1 AND client_id = $2`,
			m.ConversationID, cid, m.CreatedAt)
		if err := execExpectOne(tag, err, "touch conversation %s", m.ConversationID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO messages (id, external_id, client_id, conversation_id, sender_id, text, image, file, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			m.ID, m.ExternalID, cid, m.ConversationID, m.SenderID, m.Text, m.Image, m.File, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
}

func (s *Store) ListMessages(ctx context.Context, conversationID string, page domain.PageRequest) ([]conversation.Message, int, error) {
	cid := clientFromCtx(ctx)
	total, err := s.count(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND client_id = $2`, conversationID, cid)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+messageFrom+`
		 WHERE m.conversation_id = $1 AND m.client_id = $2
		 ORDER BY m.created_at DESC LIMIT $3 OFFSET $4`,
		conversationID, cid, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	msgs, err := collect(rows, scanMessage)
	if err != nil {
		return nil, 0, fmt.Errorf("scan message: %w", err)
	}
	return msgs, total, nil
}

func (s *Store) RecentMessages(ctx context.Context, viewer user.Identity, limit int) ([]conversation.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+messageFrom+`
		 WHERE`+visibleTo+` AND NOT ($2::text = ANY(c.archived_by)) AND m.sender_id::text <> $2::text
		 ORDER BY m.created_at DESC LIMIT $5`,
		nullIfEmpty(viewer.ClientID), viewer.UserID, string(viewer.Role), pgTextArray(viewer.PropertyIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	msgs, err := collect(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	return orEmpty(msgs), nil
}

func (s *Store) SetArchived(ctx context.Context, conversationID, userID string, archived bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations
		SET archived_by = CASE
			WHEN $4::boolean AND NOT ($3::text = ANY(archived_by)) THEN array_append(archived_by, $3::text)
			WHEN NOT $4::boolean THEN array_remove(archived_by, $3::text)
			ELSE archived_by END
		WHERE id = $1 AND client_id = $2`,
		conversationID, clientFromCtx(ctx), userID, archived)
	return execExpectOne(tag, err, "archive conversation %s", conversationID)
}
