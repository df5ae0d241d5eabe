package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/feedback"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
	"github.com/Strob0t/PropertyHub/internal/port/database"
)

// FeedbackService collects product feedback for the platform operator.
type FeedbackService struct {
	store  database.Store
	notify *NotificationService
	log    *zap.Logger
}

// NewFeedbackService creates a feedback service.
func NewFeedbackService(store database.Store, notify *NotificationService, log *zap.Logger) *FeedbackService {
	return &FeedbackService{store: store, notify: notify, log: log.Named("feedback")}
}

// Create stores the caller's feedback and alerts every superadmin.
func (s *FeedbackService) Create(ctx context.Context, actor user.Identity, req *feedback.Request) (*feedback.Feedback, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f := &feedback.Feedback{
		AuthorID: actor.UserID,
		Message:  strings.TrimSpace(req.Message),
		Star:     req.Star,
	}
	if err := s.store.CreateFeedback(ctx, f); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	drafts := adminDrafts(ctx, s.store, s.log, "Received a new feedback", "/feedbacks/"+f.ExternalID)
	if _, err := s.notify.Notify(ctx, drafts); err != nil {
		s.log.Warn("feedback notification failed", zap.Error(err))
	}
	return f, nil
}

// List returns a page of feedback, newest first.
func (s *FeedbackService) List(ctx context.Context, _ user.Identity, page domain.PageRequest) (domain.Page[feedback.Feedback], error) {
	items, total, err := s.store.ListFeedback(ctx, page)
	if err != nil {
		return domain.Page[feedback.Feedback]{}, fmt.Errorf("list feedback: %w", err)
	}
	return domain.NewPage(items, page, total), nil
}

// Get loads one entry. Reading marks it read.
func (s *FeedbackService) Get(ctx context.Context, externalID string) (*feedback.Feedback, error) {
	return s.store.GetFeedback(ctx, externalID)
}

// Update edits the message and rating of an entry.
func (s *FeedbackService) Update(ctx context.Context, externalID string, req *feedback.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.store.UpdateFeedback(ctx, externalID, req)
}

// Delete removes an entry.
func (s *FeedbackService) Delete(ctx context.Context, externalID string) error {
	return s.store.DeleteFeedback(ctx, externalID)
}
