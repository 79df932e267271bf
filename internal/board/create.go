package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/chxlky/project-board/internal/models"
	"github.com/chxlky/project-board/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateCard validates req and stores a new card at the end of its column.
// The insert and the due date and label updates share one transaction, so a
// failure in any step leaves nothing behind.
func (s *Service) CreateCard(ctx context.Context, req *models.CreateCardRequest) (*models.Card, error) {
	if err := s.validator.CreateCard(req); err != nil {
		return nil, err
	}

	var card *models.Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		column, err := s.lockColumn(tx, req.ColumnID)
		if err != nil {
			return err
		}

		order, err := nextOrder(tx, column.ID)
		if err != nil {
			return err
		}

		created, err := insertCard(tx, req, order, column.ID)
		if err != nil {
			return err
		}

		card, err = s.applyOptionalFields(tx, created.ID, req)
		if err != nil {
			return err
		}

		return s.recordActivity(tx, card.ID, models.ActivityCreate, fmt.Sprintf("Created %q", card.Title))
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Card created",
		zap.String("cardID", card.ID),
		zap.String("columnID", card.ColumnID),
		zap.Int("order", card.Order))

	s.syncCalendar(ctx, card)
	return card, nil
}

// lockColumn confirms the column exists. A no-op write to the row makes the
// transaction a writer before the order is read, so concurrent creators in
// the same column queue up behind each other. UpdateColumn leaves updated_at
// alone.
func (s *Service) lockColumn(tx *gorm.DB, columnID string) (*models.Column, error) {
	res := tx.Model(&models.Column{}).Where("id = ?", columnID).UpdateColumn("position", gorm.Expr("position"))
	if res.Error != nil {
		return nil, fmt.Errorf("locking column %s: %w", columnID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.Validation("Column not found")
	}

	var column models.Column
	if err := tx.First(&column, "id = ?", columnID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Validation("Column not found")
		}
		return nil, fmt.Errorf("loading column %s: %w", columnID, err)
	}
	return &column, nil
}

// nextOrder returns one past the highest order in the column, or 0 when the
// column has no cards.
func nextOrder(tx *gorm.DB, columnID string) (int, error) {
	var last models.Card
	res := tx.Select("position").Where("column_id = ?", columnID).Order("position desc").Limit(1).Find(&last)
	if res.Error != nil {
		return 0, fmt.Errorf("reading last order in column %s: %w", columnID, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}
	return last.Order + 1, nil
}

func insertCard(tx *gorm.DB, req *models.CreateCardRequest, order int, columnID string) (*models.Card, error) {
	card := models.Card{
		Title:       strings.TrimSpace(req.Title),
		Description: trimmedOrNil(req.Description),
		Priority:    priorityOrNil(req.Priority),
		IsArchived:  false,
		Order:       order,
		ColumnID:    columnID,
	}
	if err := tx.Create(&card).Error; err != nil {
		zap.L().Error("Failed to create initial card", zap.String("columnID", columnID), zap.Error(err))
		return nil, apperrors.Persistence("Failed to create card", err)
	}
	return &card, nil
}

// applyOptionalFields re-reads the new card and sets its due date and labels
// when the request has them.
func (s *Service) applyOptionalFields(tx *gorm.DB, cardID string, req *models.CreateCardRequest) (*models.Card, error) {
	card, err := loadCard(tx, cardID)
	if err != nil {
		return nil, missingAfterCreate(cardID, err)
	}

	due, err := validation.DueDateText(req.DueDate)
	if err != nil {
		return nil, err
	}
	if due != "" {
		if err := s.setDueDate(tx, card, due); err != nil {
			return nil, err
		}
	}

	labels, err := s.validator.Labels(req.Labels)
	if err != nil {
		return nil, err
	}
	if len(labels) > 0 {
		if err := attachLabels(tx, card, labels, false); err != nil {
			zap.L().Error("Error updating labels", zap.String("cardID", cardID), zap.Error(err))
			return nil, apperrors.Persistence("Failed to update card labels", err)
		}
	}

	return loadCard(tx, cardID)
}

// missingAfterCreate logs the lookup failure and keeps it out of the chain,
// so a record-not-found cause is not reported as an unknown card.
func missingAfterCreate(cardID string, err error) error {
	zap.L().Error("Card missing after creation", zap.String("cardID", cardID), zap.Error(err))
	return apperrors.Persistence("Card not found after creation", nil)
}

// setDueDate validates raw again at write time, since the clock may have
// crossed midnight since the request was checked.
func (s *Service) setDueDate(tx *gorm.DB, card *models.Card, raw string) error {
	due, err := s.validator.ParseDueDate(raw)
	if err != nil {
		if apperrors.IsValidation(err) {
			return err
		}
		return apperrors.Persistence("Failed to update due date", err)
	}
	if err := tx.Model(card).Update("due_date", due).Error; err != nil {
		zap.L().Error("Error updating due date", zap.String("cardID", card.ID), zap.Error(err))
		return apperrors.Persistence("Failed to update due date", err)
	}
	card.DueDate = &due
	return nil
}

// attachLabels links inputs to card. An input whose id names an existing
// label connects that label; otherwise the label with the same name and
// color is reused or created. With replace the card's labels become exactly
// inputs.
func attachLabels(tx *gorm.DB, card *models.Card, inputs []models.LabelInput, replace bool) error {
	labels := make([]models.Label, 0, len(inputs))
	for _, in := range inputs {
		label, err := resolveLabel(tx, in)
		if err != nil {
			return err
		}
		labels = append(labels, *label)
	}

	assoc := tx.Model(card).Association("Labels")
	switch {
	case replace && len(labels) == 0:
		return assoc.Clear()
	case replace:
		return assoc.Replace(labels)
	}
	return assoc.Append(labels)
}

func resolveLabel(tx *gorm.DB, in models.LabelInput) (*models.Label, error) {
	var label models.Label
	if in.ID != "" {
		res := tx.Where("id = ?", in.ID).Limit(1).Find(&label)
		if res.Error != nil {
			return nil, fmt.Errorf("looking up label %s: %w", in.ID, res.Error)
		}
		if res.RowsAffected > 0 {
			return &label, nil
		}
	}

	name := strings.TrimSpace(in.Name)
	res := tx.Where("name = ? AND color = ?", name, in.Color).Limit(1).Find(&label)
	if res.Error != nil {
		return nil, fmt.Errorf("looking up label %q: %w", name, res.Error)
	}
	if res.RowsAffected > 0 {
		return &label, nil
	}

	label = models.Label{Name: name, Color: in.Color}
	if err := tx.Create(&label).Error; err != nil {
		return nil, fmt.Errorf("creating label %q: %w", name, err)
	}
	return &label, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func priorityOrNil(p string) *models.Priority {
	if p == "" {
		return nil
	}
	priority := models.Priority(p)
	return &priority
}
