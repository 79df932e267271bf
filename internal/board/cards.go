package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/chxlky/project-board/internal/models"
	"github.com/chxlky/project-board/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetCard returns a card with all of its children and the rendered
// description.
func (s *Service) GetCard(ctx context.Context, id string) (*models.Card, error) {
	tx := s.db.WithContext(ctx).
		Preload("Checklist", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") })

	card, err := findCard(tx, id)
	if err != nil {
		return nil, err
	}
	s.renderDescription(card)
	return card, nil
}

func (s *Service) renderDescription(card *models.Card) {
	if card.Description == nil {
		return
	}
	html, err := s.markdown.Render(*card.Description)
	if err != nil {
		zap.L().Warn("Error rendering card description", zap.String("cardID", card.ID), zap.Error(err))
		return
	}
	card.DescriptionHTML = html
}

func (s *Service) UpdateCard(ctx context.Context, id string, req *models.UpdateCardRequest) (*models.Card, error) {
	if err := s.validator.UpdateCard(req); err != nil {
		return nil, err
	}
	labels, err := s.validator.Labels(req.Labels)
	if err != nil {
		return nil, err
	}

	var card *models.Card
	var dueDateChanged bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findCard(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if req.Title != nil {
			updates["title"] = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			updates["description"] = trimmedOrNil(req.Description)
		}
		if req.Priority != nil {
			updates["priority"] = priorityOrNil(*req.Priority)
		}
		if len(updates) > 0 {
			if err := tx.Model(current).Updates(updates).Error; err != nil {
				return fmt.Errorf("updating card %s: %w", id, err)
			}
		}

		if len(req.DueDate) > 0 {
			due, err := validation.DueDateText(req.DueDate)
			if err != nil {
				return err
			}
			dueDateChanged = true
			if due == "" {
				if err := tx.Model(current).Update("due_date", nil).Error; err != nil {
					return fmt.Errorf("clearing due date of card %s: %w", id, err)
				}
			} else if err := s.setDueDate(tx, current, due); err != nil {
				return err
			}
		}

		if hasValue(req.Labels) {
			if err := attachLabels(tx, current, labels, true); err != nil {
				return apperrors.Persistence("Failed to update card labels", err)
			}
		}

		card, err = loadCard(tx, id)
		if err != nil {
			return fmt.Errorf("reloading card %s: %w", id, err)
		}
		return s.recordActivity(tx, id, models.ActivityUpdate, fmt.Sprintf("Updated %q", card.Title))
	})
	if err != nil {
		return nil, err
	}

	if dueDateChanged {
		s.syncCalendar(ctx, card)
	}
	return card, nil
}

// hasValue reports whether a raw JSON field was sent with a non-null value.
func hasValue(raw []byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

// MoveCard places a card at index within the target column and renumbers the
// affected columns so orders stay dense and unique. The index is clamped to
// the column's bounds.
func (s *Service) MoveCard(ctx context.Context, id string, req *models.MoveCardRequest) (*models.Card, error) {
	if req.ColumnID == "" {
		return nil, apperrors.Validation("Column ID is required")
	}

	var card *models.Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findCard(tx, id)
		if err != nil {
			return err
		}
		target, err := s.lockColumn(tx, req.ColumnID)
		if err != nil {
			return err
		}

		var siblings []models.Card
		if err := tx.Where("column_id = ? AND id <> ?", target.ID, id).Order("position").Find(&siblings).Error; err != nil {
			return fmt.Errorf("listing cards of column %s: %w", target.ID, err)
		}

		index := min(max(req.Index, 0), len(siblings))
		ordered := make([]string, 0, len(siblings)+1)
		for _, c := range siblings[:index] {
			ordered = append(ordered, c.ID)
		}
		ordered = append(ordered, id)
		for _, c := range siblings[index:] {
			ordered = append(ordered, c.ID)
		}

		if err := tx.Model(&models.Card{}).Where("id = ?", id).Update("column_id", target.ID).Error; err != nil {
			return fmt.Errorf("moving card %s: %w", id, err)
		}
		if err := renumber(tx, ordered); err != nil {
			return err
		}

		if current.ColumnID != target.ID {
			if err := s.compactColumn(tx, current.ColumnID); err != nil {
				return err
			}
		}

		card, err = loadCard(tx, id)
		if err != nil {
			return fmt.Errorf("reloading card %s: %w", id, err)
		}
		return s.recordActivity(tx, id, models.ActivityMove, fmt.Sprintf("Moved %q to %s", card.Title, target.Title))
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s *Service) compactColumn(tx *gorm.DB, columnID string) error {
	var ids []string
	if err := tx.Model(&models.Card{}).Where("column_id = ?", columnID).Order("position").Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("listing cards of column %s: %w", columnID, err)
	}
	return renumber(tx, ids)
}

func renumber(tx *gorm.DB, ids []string) error {
	for i, cardID := range ids {
		if err := tx.Model(&models.Card{}).Where("id = ?", cardID).UpdateColumn("position", i).Error; err != nil {
			return fmt.Errorf("setting order of card %s: %w", cardID, err)
		}
	}
	return nil
}

func (s *Service) ArchiveCard(ctx context.Context, id string) (*models.Card, error) {
	return s.setArchived(ctx, id, true)
}

func (s *Service) RestoreCard(ctx context.Context, id string) (*models.Card, error) {
	return s.setArchived(ctx, id, false)
}

func (s *Service) setArchived(ctx context.Context, id string, archived bool) (*models.Card, error) {
	var card *models.Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findCard(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(current).Update("is_archived", archived).Error; err != nil {
			return fmt.Errorf("archiving card %s: %w", id, err)
		}
		current.IsArchived = archived
		card = current

		if archived {
			return s.recordActivity(tx, id, models.ActivityArchive, fmt.Sprintf("Archived %q", card.Title))
		}
		return s.recordActivity(tx, id, models.ActivityUpdate, fmt.Sprintf("Restored %q from archive", card.Title))
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (s *Service) ListArchived(ctx context.Context) ([]models.Card, error) {
	cards := []models.Card{}
	err := withCardRelations(s.db.WithContext(ctx)).
		Where("is_archived = ?", true).
		Order("updated_at desc").
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("listing archived cards: %w", err)
	}
	for i := range cards {
		cards[i].Normalize()
	}
	return cards, nil
}

// DeleteCard removes a card with its checklist, comments, attachments and
// label links.
func (s *Service) DeleteCard(ctx context.Context, id string) error {
	var deleted *models.Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		card, err := findCard(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Select(clause.Associations).Delete(card).Error; err != nil {
			return fmt.Errorf("deleting card %s: %w", id, err)
		}
		if err := s.compactColumn(tx, card.ColumnID); err != nil {
			return err
		}
		deleted = card
		return s.recordActivity(tx, id, models.ActivityDelete, fmt.Sprintf("Deleted %q", card.Title))
	})
	if err != nil {
		return err
	}

	if s.calendar != nil && deleted.EventID != "" {
		if err := s.calendar.DeleteEvent(ctx, deleted.EventID); err != nil {
			zap.L().Error("Error deleting calendar event", zap.String("cardID", id), zap.Error(err))
		}
	}
	return nil
}
