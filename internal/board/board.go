package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/chxlky/project-board/internal/models"
	"gorm.io/gorm"
)

// ColumnView is a column with the cards visible on the board.
type ColumnView struct {
	models.Column
	Cards []models.Card `json:"cards"`
}

// Board returns every column in position order with its filtered and
// optionally sorted cards.
func (s *Service) Board(ctx context.Context, filter Filter, sort *Sort) ([]ColumnView, error) {
	db := s.db.WithContext(ctx)

	var columns []models.Column
	if err := db.Order("position").Find(&columns).Error; err != nil {
		return nil, fmt.Errorf("listing columns: %w", err)
	}

	var cards []models.Card
	if err := db.Preload("Labels").Where("is_archived = ?", false).Order("position").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("listing cards: %w", err)
	}

	byColumn := make(map[string][]models.Card, len(columns))
	for _, card := range cards {
		card.Normalize()
		byColumn[card.ColumnID] = append(byColumn[card.ColumnID], card)
	}

	views := make([]ColumnView, 0, len(columns))
	for _, column := range columns {
		visible := FilterCards(byColumn[column.ID], filter)
		if sort != nil {
			SortCards(visible, *sort)
		}
		views = append(views, ColumnView{Column: column, Cards: visible})
	}
	return views, nil
}

// CreateColumn appends a column after the last one.
func (s *Service) CreateColumn(ctx context.Context, req *models.CreateColumnRequest) (*models.Column, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Validation("Column title is required")
	}

	var column models.Column
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last models.Column
		res := tx.Order("position desc").Limit(1).Find(&last)
		if res.Error != nil {
			return fmt.Errorf("reading last column: %w", res.Error)
		}
		position := 0
		if res.RowsAffected > 0 {
			position = last.Position + 1
		}

		column = models.Column{Title: title, Position: position}
		if err := tx.Create(&column).Error; err != nil {
			return fmt.Errorf("creating column: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &column, nil
}

func (s *Service) ListLabels(ctx context.Context) ([]models.Label, error) {
	labels := []models.Label{}
	if err := s.db.WithContext(ctx).Order("name").Find(&labels).Error; err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}
	return labels, nil
}

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

// ListActivities returns the newest activities first.
func (s *Service) ListActivities(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	activities := []models.Activity{}
	err := s.db.WithContext(ctx).Order("timestamp desc").Order("id").Limit(limit).Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return activities, nil
}

var templates = []models.CardTemplate{
	{
		Title:       "Bug Report",
		Description: "## Description\n\n## Steps to Reproduce\n\n## Expected Behavior\n\n## Actual Behavior",
		Labels:      []models.LabelInput{{ID: "bug", Name: "Bug", Color: "bg-red-500"}},
		Checklist: []models.ChecklistItem{
			{ID: "1", Text: "Reproduce issue"},
			{ID: "2", Text: "Document environment"},
			{ID: "3", Text: "Add screenshots"},
		},
	},
	{
		Title:       "Feature Request",
		Description: "## Overview\n\n## User Story\nAs a [type of user], I want [goal] so that [benefit]\n\n## Acceptance Criteria",
		Labels:      []models.LabelInput{{ID: "feature", Name: "Feature", Color: "bg-green-500"}},
		Checklist: []models.ChecklistItem{
			{ID: "1", Text: "Design review"},
			{ID: "2", Text: "Technical spec"},
			{ID: "3", Text: "Implementation"},
			{ID: "4", Text: "Testing"},
		},
	},
}

func Templates() []models.CardTemplate {
	return templates
}
