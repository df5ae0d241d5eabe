package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// ClientService is the operator's view of subscribing companies.
type ClientService struct {
	store  database.UserStore
	tokens *TokenService
	log    *zap.Logger
}

// NewClientService creates a client service.
func NewClientService(store database.UserStore, tokens *TokenService, log *zap.Logger) *ClientService {
	return &ClientService{store: store, tokens: tokens, log: log.Named("clients")}
}

// List returns a page of clients with their owners.
func (s *ClientService) List(ctx context.Context, _ user.Identity, page domain.PageRequest) (domain.Page[user.Client], error) {
	items, total, err := s.store.ListClients(ctx, page)
	if err != nil {
		return domain.Page[user.Client]{}, fmt.Errorf("list clients: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// Get loads a client by its external id.
func (s *ClientService) Get(ctx context.Context, externalID string) (*user.Client, error) {
	return s.store.GetClientByExternalID(ctx, externalID)
}

// ToggleArchive flips the archived flag of a client. Archiving signs out
// every user of the client; login stays refused until the client is restored.
func (s *ClientService) ToggleArchive(ctx context.Context, externalID string) (*user.Client, error) {
	c, err := s.store.GetClientByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	archived := !c.Archived
	if err := s.store.SetClientArchived(ctx, c.ID, archived); err != nil {
		return nil, fmt.Errorf("set archived: %w", err)
	}
	c.Archived = archived
	s.log.Info("client archive toggled", zap.String("client_id", c.ID), zap.Bool("archived", archived))
	if !archived {
		return c, nil
	}

	ids, err := s.store.ClientUserIDs(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("client users: %w", err)
	}
	var errs []error
	for _, id := range ids {
		if err := s.tokens.RevokeAll(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("revoke %s: %w", id, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}
