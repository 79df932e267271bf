// Package board holds the card, column and label operations of the board.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/chxlky/project-board/internal/markdown"
	"github.com/chxlky/project-board/internal/models"
	"github.com/chxlky/project-board/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CalendarSyncer mirrors card due dates into an external calendar.
type CalendarSyncer interface {
	SyncDueDate(ctx context.Context, card models.Card) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

type Service struct {
	db        *gorm.DB
	validator *validation.Validator
	markdown  *markdown.Renderer
	calendar  CalendarSyncer
	now       func() time.Time
}

type Option func(*Service)

// WithClock sets the clock used for due date checks and timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.now = clock }
}

// WithCalendar enables due date sync. Sync failures are logged and never
// fail the request.
func WithCalendar(c CalendarSyncer) Option {
	return func(s *Service) { s.calendar = c }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:       db,
		markdown: markdown.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = validation.New(s.now)
	return s
}

func (s *Service) Validator() *validation.Validator {
	return s.validator
}

func withCardRelations(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Labels").Preload("Column")
}

// loadCard fetches a card with its labels and column. A missing card is
// returned as gorm.ErrRecordNotFound.
func loadCard(tx *gorm.DB, id string) (*models.Card, error) {
	var card models.Card
	if err := withCardRelations(tx).First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	card.Normalize()
	return &card, nil
}

// findCard is loadCard for request paths, where a missing card is a 404.
func findCard(tx *gorm.DB, id string) (*models.Card, error) {
	card, err := loadCard(tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Card not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading card %s: %w", id, err)
	}
	return card, nil
}

func (s *Service) recordActivity(tx *gorm.DB, cardID string, kind models.ActivityType, description string) error {
	activity := models.Activity{
		CardID:      cardID,
		Type:        kind,
		Description: description,
		Timestamp:   s.now().UTC(),
	}
	if err := tx.Create(&activity).Error; err != nil {
		return fmt.Errorf("recording %s activity: %w", kind, err)
	}
	return nil
}

// syncCalendar pushes the card's due date to the calendar, or removes its
// event once the due date is gone. It runs after commit.
func (s *Service) syncCalendar(ctx context.Context, card *models.Card) {
	if s.calendar == nil {
		return
	}

	if card.DueDate == nil {
		if card.EventID == "" {
			return
		}
		if err := s.calendar.DeleteEvent(ctx, card.EventID); err != nil {
			zap.L().Error("Error deleting calendar event", zap.String("cardID", card.ID), zap.Error(err))
			return
		}
		s.storeEventID(ctx, card, "")
		return
	}

	eventID, err := s.calendar.SyncDueDate(ctx, *card)
	if err != nil {
		zap.L().Error("Error syncing card due date to calendar", zap.String("cardID", card.ID), zap.Error(err))
		return
	}
	if eventID != card.EventID {
		s.storeEventID(ctx, card, eventID)
	}
}

func (s *Service) storeEventID(ctx context.Context, card *models.Card, eventID string) {
	err := s.db.WithContext(ctx).Model(&models.Card{}).Where("id = ?", card.ID).
		UpdateColumn("event_id", eventID).Error
	if err != nil {
		zap.L().Error("Error storing calendar event ID", zap.String("cardID", card.ID), zap.Error(err))
		return
	}
	card.EventID = eventID
}
