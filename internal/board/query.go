package board

import (
	"cmp"
	"slices"
	"strings"

	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/chxlky/project-board/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Filter selects the cards shown on the board. Empty fields match everything.
type Filter struct {
	Search     string
	LabelIDs   []string
	Priorities []models.Priority
}

type SortField string

const (
	SortPriority SortField = "priority"
	SortDueDate  SortField = "dueDate"
	SortTitle    SortField = "title"
	SortCreated  SortField = "created"
)

type Sort struct {
	Field SortField
	Desc  bool
}

// ParseSort reads the sort and direction query values. An empty field means
// no sorting.
func ParseSort(field, direction string) (*Sort, error) {
	if field == "" {
		return nil, nil
	}
	switch SortField(field) {
	case SortPriority, SortDueDate, SortTitle, SortCreated:
	default:
		return nil, apperrors.Validation("Sort must be one of priority, dueDate, title, created")
	}
	switch direction {
	case "", "asc":
		return &Sort{Field: SortField(field)}, nil
	case "desc":
		return &Sort{Field: SortField(field), Desc: true}, nil
	default:
		return nil, apperrors.Validation("Direction must be asc or desc")
	}
}

// FilterCards drops archived cards and cards that do not match f.
func FilterCards(cards []models.Card, f Filter) []models.Card {
	search := strings.ToLower(f.Search)
	out := make([]models.Card, 0, len(cards))
	for _, card := range cards {
		if card.IsArchived {
			continue
		}
		if !matchesSearch(card, search) || !matchesLabels(card, f.LabelIDs) || !matchesPriorities(card, f.Priorities) {
			continue
		}
		out = append(out, card)
	}
	return out
}

func matchesSearch(card models.Card, search string) bool {
	if strings.Contains(strings.ToLower(card.Title), search) {
		return true
	}
	return card.Description != nil && strings.Contains(strings.ToLower(*card.Description), search)
}

func matchesLabels(card models.Card, ids []string) bool {
	if len(ids) == 0 {
		return true
	}
	return slices.ContainsFunc(card.Labels, func(l models.Label) bool {
		return slices.Contains(ids, l.ID)
	})
}

func matchesPriorities(card models.Card, priorities []models.Priority) bool {
	if len(priorities) == 0 {
		return true
	}
	return card.Priority != nil && slices.Contains(priorities, *card.Priority)
}

// SortCards sorts cards in place, ascending by the field and then reversed
// for a descending sort. Cards without a priority or due date come last in
// ascending order.
func SortCards(cards []models.Card, sort Sort) {
	var compare func(a, b models.Card) int
	switch sort.Field {
	case SortPriority:
		compare = func(a, b models.Card) int {
			return cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
		}
	case SortDueDate:
		compare = func(a, b models.Card) int {
			switch {
			case a.DueDate == nil && b.DueDate == nil:
				return 0
			case a.DueDate == nil:
				return 1
			case b.DueDate == nil:
				return -1
			default:
				return a.DueDate.Compare(*b.DueDate)
			}
		}
	case SortTitle:
		collator := collate.New(language.English, collate.IgnoreCase)
		compare = func(a, b models.Card) int {
			return collator.CompareString(a.Title, b.Title)
		}
	case SortCreated:
		compare = func(a, b models.Card) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	default:
		return
	}

	slices.SortStableFunc(cards, compare)
	if sort.Desc {
		slices.Reverse(cards)
	}
}
