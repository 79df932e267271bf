package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/chxlky/project-board/internal/models"
	"gorm.io/gorm"
)

// ensureCard checks that a card exists without loading its relations.
func ensureCard(tx *gorm.DB, id string) (*models.Card, error) {
	var card models.Card
	if err := tx.First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Card not found")
		}
		return nil, fmt.Errorf("loading card %s: %w", id, err)
	}
	return &card, nil
}

func (s *Service) AddChecklistItem(ctx context.Context, cardID string, req *models.ChecklistItemRequest) (*models.ChecklistItem, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperrors.Validation("Checklist item text is required")
	}

	var item models.ChecklistItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := ensureCard(tx, cardID)
		if err != nil {
			return err
		}

		var last models.ChecklistItem
		res := tx.Where("card_id = ?", cardID).Order("position desc").Limit(1).Find(&last)
		if res.Error != nil {
			return fmt.Errorf("reading checklist of card %s: %w", cardID, res.Error)
		}
		position := 0
		if res.RowsAffected > 0 {
			position = last.Position + 1
		}

		item = models.ChecklistItem{CardID: cardID, Text: text, Position: position}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("adding checklist item: %w", err)
		}
		return s.recordActivity(tx, cardID, models.ActivityUpdate, fmt.Sprintf("Added checklist item to %q", card.Title))
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) UpdateChecklistItem(ctx context.Context, cardID, itemID string, req *models.UpdateChecklistItemRequest) (*models.ChecklistItem, error) {
	if req.Text != nil && strings.TrimSpace(*req.Text) == "" {
		return nil, apperrors.Validation("Checklist item text is required")
	}

	var item models.ChecklistItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findChecklistItem(tx, cardID, itemID, &item); err != nil {
			return err
		}
		updates := map[string]any{}
		if req.Text != nil {
			updates["text"] = strings.TrimSpace(*req.Text)
		}
		if req.IsComplete != nil {
			updates["is_complete"] = *req.IsComplete
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&item).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating checklist item %s: %w", itemID, err)
		}
		return tx.First(&item, "id = ?", itemID).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Service) DeleteChecklistItem(ctx context.Context, cardID, itemID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.ChecklistItem
		if err := findChecklistItem(tx, cardID, itemID, &item); err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return fmt.Errorf("deleting checklist item %s: %w", itemID, err)
		}
		return nil
	})
}

func findChecklistItem(tx *gorm.DB, cardID, itemID string, item *models.ChecklistItem) error {
	err := tx.First(item, "id = ? AND card_id = ?", itemID, cardID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("Checklist item not found")
	}
	if err != nil {
		return fmt.Errorf("loading checklist item %s: %w", itemID, err)
	}
	return nil
}

func (s *Service) AddComment(ctx context.Context, cardID string, req *models.CommentRequest) (*models.Comment, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := ensureCard(tx, cardID)
		if err != nil {
			return err
		}
		comment = models.Comment{
			CardID:    cardID,
			Text:      req.Text,
			UserID:    req.UserID,
			UserName:  req.UserName,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("adding comment: %w", err)
		}
		return s.recordActivity(tx, cardID, models.ActivityUpdate, fmt.Sprintf("%s commented on %q", req.UserName, card.Title))
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *Service) AddAttachment(ctx context.Context, cardID string, req *models.AttachmentRequest) (*models.Attachment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var attachment models.Attachment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := ensureCard(tx, cardID)
		if err != nil {
			return err
		}
		attachment = models.Attachment{
			CardID:    cardID,
			Type:      models.AttachmentType(req.Type),
			URL:       req.URL,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.Create(&attachment).Error; err != nil {
			return fmt.Errorf("adding attachment: %w", err)
		}
		return s.recordActivity(tx, cardID, models.ActivityUpdate, fmt.Sprintf("Attached %s to %q", req.Type, card.Title))
	})
	if err != nil {
		return nil, err
	}
	return &attachment, nil
}
