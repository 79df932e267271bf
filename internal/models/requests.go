package models

import "encoding/json"

type LabelInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"required"`
}

// CreateCardRequest is the body of POST /api/cards. DueDate and Labels stay
// raw so a value of the wrong JSON type is reported against its field
// instead of failing the whole body.
type CreateCardRequest struct {
	Title       string          `json:"title"`
	ColumnID    string          `json:"columnId"`
	Description *string         `json:"description,omitempty"`
	Priority    string          `json:"priority,omitempty"`
	DueDate     json.RawMessage `json:"dueDate,omitempty"`
	Labels      json.RawMessage `json:"labels,omitempty"`
}

// UpdateCardRequest is the body of PATCH /api/cards/:id. Nil fields are left
// untouched; an empty priority clears it, as does an empty or null due date.
type UpdateCardRequest struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Priority    *string         `json:"priority,omitempty"`
	DueDate     json.RawMessage `json:"dueDate,omitempty"`
	Labels      json.RawMessage `json:"labels,omitempty"`
}

type MoveCardRequest struct {
	ColumnID string `json:"columnId"`
	Index    int    `json:"index"`
}

type CreateColumnRequest struct {
	Title string `json:"title"`
}

type ChecklistItemRequest struct {
	Text string `json:"text"`
}

type UpdateChecklistItemRequest struct {
	Text       *string `json:"text,omitempty"`
	IsComplete *bool   `json:"isComplete,omitempty"`
}

type CommentRequest struct {
	Text     string `json:"text" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
}

type AttachmentRequest struct {
	Type string `json:"type" validate:"required,oneof=image chart"`
	URL  string `json:"url" validate:"required,url"`
}

// CardTemplate is a preset used to prefill a new card.
type CardTemplate struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Labels      []LabelInput    `json:"labels"`
	Checklist   []ChecklistItem `json:"checklist"`
}
