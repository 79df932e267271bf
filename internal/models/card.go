package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high first; cards without a priority sort last.
func (p *Priority) Rank() int {
	if p == nil {
		return 3
	}
	switch *p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

type Column struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	Cards     []Card    `gorm:"foreignKey:ColumnID" json:"cards,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *Column) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type Label struct {
	ID    string `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"not null;uniqueIndex:idx_labels_name_color" json:"name"`
	Color string `gorm:"not null;uniqueIndex:idx_labels_name_color" json:"color"`
}

func (l *Label) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

type Card struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	Priority    *Priority  `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	IsArchived  bool       `gorm:"not null;default:false" json:"isArchived"`
	Order       int        `gorm:"column:position;not null;index:idx_cards_column_position" json:"order"`
	ColumnID    string     `gorm:"not null;index:idx_cards_column_position" json:"columnId"`
	EventID     string     `json:"-"` // Google Calendar event for the due date
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Column      *Column         `gorm:"foreignKey:ColumnID" json:"column,omitempty"`
	Labels      []Label         `gorm:"many2many:card_labels;constraint:OnDelete:CASCADE" json:"labels"`
	Checklist   []ChecklistItem `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"checklist"`
	Comments    []Comment       `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"comments"`
	Attachments []Attachment    `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"attachments"`

	DescriptionHTML string `gorm:"-" json:"descriptionHtml,omitempty"`
}

func (c *Card) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Normalize replaces nil collections so they encode as empty JSON arrays.
func (c *Card) Normalize() {
	if c.Labels == nil {
		c.Labels = []Label{}
	}
	if c.Checklist == nil {
		c.Checklist = []ChecklistItem{}
	}
	if c.Comments == nil {
		c.Comments = []Comment{}
	}
	if c.Attachments == nil {
		c.Attachments = []Attachment{}
	}
}

type ChecklistItem struct {
	ID         string `gorm:"primaryKey" json:"id"`
	CardID     string `gorm:"not null;index" json:"-"`
	Text       string `gorm:"not null" json:"text"`
	IsComplete bool   `gorm:"not null;default:false" json:"isComplete"`
	Position   int    `gorm:"not null;default:0" json:"-"`
}

func (i *ChecklistItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

type Comment struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CardID    string    `gorm:"not null;index" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	UserID    string    `gorm:"not null" json:"userId"`
	UserName  string    `gorm:"not null" json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentChart AttachmentType = "chart"
)

type Attachment struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	CardID    string         `gorm:"not null;index" json:"-"`
	Type      AttachmentType `gorm:"not null" json:"type"`
	URL       string         `gorm:"not null" json:"url"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

type ActivityType string

const (
	ActivityCreate  ActivityType = "create"
	ActivityUpdate  ActivityType = "update"
	ActivityDelete  ActivityType = "delete"
	ActivityMove    ActivityType = "move"
	ActivityArchive ActivityType = "archive"
)

// Activity is an append-only record of a card change. CardID is kept after
// the card is deleted, so it carries no foreign key.
type Activity struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	CardID      string       `gorm:"not null;index" json:"cardId"`
	Type        ActivityType `gorm:"not null" json:"type"`
	Description string       `gorm:"not null" json:"description"`
	Timestamp   time.Time    `gorm:"not null;index" json:"timestamp"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
