package board

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chxlky/project-board/database"
	"github.com/chxlky/project-board/internal/apperrors"
	"github.com/chxlky/project-board/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, time.October, 15, 10, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.Init(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, db.Create(&models.Column{ID: "col-1", Title: "To Do", Position: 0}).Error)
	require.NoError(t, db.Create(&models.Column{ID: "col-2", Title: "Doing", Position: 1}).Error)

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(db, opts...), db
}

func createCard(t *testing.T, svc *Service, req models.CreateCardRequest) *models.Card {
	t.Helper()
	card, err := svc.CreateCard(context.Background(), &req)
	require.NoError(t, err)
	return card
}

func strPtr(s string) *string { return &s }

func TestCreateCard_Basic(t *testing.T) {
	svc, _ := newTestService(t)

	card := createCard(t, svc, models.CreateCardRequest{Title: "  Fix bug ", ColumnID: "col-1"})

	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "Fix bug", card.Title)
	assert.Equal(t, 0, card.Order)
	assert.False(t, card.IsArchived)
	assert.Nil(t, card.Description)
	assert.Nil(t, card.Priority)
	assert.Nil(t, card.DueDate)
	assert.NotNil(t, card.Labels)
	assert.Empty(t, card.Labels)
	require.NotNil(t, card.Column)
	assert.Equal(t, "col-1", card.Column.ID)
}

func TestCreateCard_SequentialOrder(t *testing.T) {
	svc, _ := newTestService(t)

	for want := 0; want < 3; want++ {
		card := createCard(t, svc, models.CreateCardRequest{Title: "card", ColumnID: "col-1"})
		assert.Equal(t, want, card.Order)
	}

	other := createCard(t, svc, models.CreateCardRequest{Title: "elsewhere", ColumnID: "col-2"})
	assert.Equal(t, 0, other.Order, "order is per column")
}

func TestCreateCard_LeavesColumnTimestamp(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	var before models.Column
	require.NoError(t, db.First(&before, "id = ?", "col-2").Error)

	card := createCard(t, svc, models.CreateCardRequest{Title: "card", ColumnID: "col-1"})
	_, err := svc.MoveCard(ctx, card.ID, &models.MoveCardRequest{ColumnID: "col-2"})
	require.NoError(t, err)
	createCard(t, svc, models.CreateCardRequest{Title: "another", ColumnID: "col-2"})

	var after models.Column
	require.NoError(t, db.First(&after, "id = ?", "col-2").Error)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt), "before %s after %s", before.UpdatedAt, after.UpdatedAt)
}

func TestCreateCard_RefetchMatchesCreated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := createCard(t, svc, models.CreateCardRequest{Title: "Stable", ColumnID: "col-1", Priority: "low"})
	fetched, err := svc.GetCard(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.Title, fetched.Title)
	assert.Equal(t, created.Order, fetched.Order)
	assert.Equal(t, created.ColumnID, fetched.ColumnID)
	assert.Equal(t, created.Priority, fetched.Priority)
}

func TestCreateCard_OptionalFields(t *testing.T) {
	svc, db := newTestService(t)
	existing := models.Label{Name: "Frontend", Color: "bg-purple-500"}
	require.NoError(t, db.Create(&existing).Error)

	card := createCard(t, svc, models.CreateCardRequest{
		Title:       "Ship it",
		ColumnID:    "col-1",
		Description: strPtr("  **bold** move  "),
		Priority:    "high",
		DueDate:     json.RawMessage(`"2027-01-10"`),
		Labels: json.RawMessage(`[
			{"id": "` + existing.ID + `", "name": "ignored", "color": "ignored"},
			{"id": "does-not-exist", "name": " Bug ", "color": "bg-red-500"}
		]`),
	})

	require.NotNil(t, card.Description)
	assert.Equal(t, "**bold** move", *card.Description)
	require.NotNil(t, card.Priority)
	assert.Equal(t, models.PriorityHigh, *card.Priority)
	require.NotNil(t, card.DueDate)
	assert.True(t, time.Date(2027, time.January, 10, 0, 0, 0, 0, time.UTC).Equal(*card.DueDate))

	require.Len(t, card.Labels, 2)
	names := []string{card.Labels[0].Name, card.Labels[1].Name}
	assert.ElementsMatch(t, []string{"Frontend", "Bug"}, names)

	var labelCount int64
	require.NoError(t, db.Model(&models.Label{}).Count(&labelCount).Error)
	assert.EqualValues(t, 2, labelCount)
}

func TestCreateCard_ReusesLabelByNameAndColor(t *testing.T) {
	svc, db := newTestService(t)
	labels := json.RawMessage(`[{"name":"Bug","color":"bg-red-500"}]`)

	first := createCard(t, svc, models.CreateCardRequest{Title: "one", ColumnID: "col-1", Labels: labels})
	second := createCard(t, svc, models.CreateCardRequest{Title: "two", ColumnID: "col-1", Labels: labels})

	require.Len(t, first.Labels, 1)
	require.Len(t, second.Labels, 1)
	assert.Equal(t, first.Labels[0].ID, second.Labels[0].ID)

	var labelCount int64
	require.NoError(t, db.Model(&models.Label{}).Count(&labelCount).Error)
	assert.EqualValues(t, 1, labelCount)
}

func TestCreateCard_Errors(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.CreateCardRequest
		want string
	}{
		{"missing title", models.CreateCardRequest{ColumnID: "col-1"}, "Card title is required"},
		{"unknown column", models.CreateCardRequest{Title: "X", ColumnID: "missing"}, "Column not found"},
		{"past due date", models.CreateCardRequest{Title: "X", ColumnID: "col-1", DueDate: json.RawMessage(`"2000-01-01"`)}, "Due date cannot be in the past"},
		{"label without color", models.CreateCardRequest{Title: "X", ColumnID: "col-1", Labels: json.RawMessage(`[{"name":"Bug"}]`)}, "All labels must have name and color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCard(ctx, &tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.want, err.Error())
		})
	}

	var cardCount int64
	require.NoError(t, db.Model(&models.Card{}).Count(&cardCount).Error)
	assert.Zero(t, cardCount)
}

func TestCreateCard_ConcurrentOrdersAreUnique(t *testing.T) {
	svc, _ := newTestService(t)
	const n = 8

	var wg sync.WaitGroup
	orders := make(chan int, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			card, err := svc.CreateCard(context.Background(), &models.CreateCardRequest{Title: "race", ColumnID: "col-1"})
			if err != nil {
				errs <- err
				return
			}
			orders <- card.Order
		}()
	}
	wg.Wait()
	close(orders)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := map[int]bool{}
	for order := range orders {
		assert.False(t, seen[order], "duplicate order %d", order)
		seen[order] = true
	}
	assert.Len(t, seen, n)
}

func TestCreateCard_RecordsActivity(t *testing.T) {
	svc, _ := newTestService(t)

	card := createCard(t, svc, models.CreateCardRequest{Title: "Logged", ColumnID: "col-1"})

	activities, err := svc.ListActivities(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, card.ID, activities[0].CardID)
	assert.Equal(t, models.ActivityCreate, activities[0].Type)
	assert.Equal(t, `Created "Logged"`, activities[0].Description)
}

func TestMissingAfterCreate_DropsCause(t *testing.T) {
	err := missingAfterCreate("card-1", gorm.ErrRecordNotFound)

	assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
	assert.Equal(t, "Card not found after creation", err.Error())
}

func TestUpdateCard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	card := createCard(t, svc, models.CreateCardRequest{
		Title:    "Draft",
		ColumnID: "col-1",
		DueDate:  json.RawMessage(`"2027-01-10"`),
		Labels:   json.RawMessage(`[{"name":"Bug","color":"bg-red-500"}]`),
	})

	updated, err := svc.UpdateCard(ctx, card.ID, &models.UpdateCardRequest{
		Title:    strPtr(" Final "),
		Priority: strPtr("medium"),
		DueDate:  json.RawMessage(`""`),
		Labels:   json.RawMessage(`[{"name":"Docs","color":"bg-orange-500"}]`),
	})
	require.NoError(t, err)

	assert.Equal(t, "Final", updated.Title)
	require.NotNil(t, updated.Priority)
	assert.Equal(t, models.PriorityMedium, *updated.Priority)
	assert.Nil(t, updated.DueDate)
	require.Len(t, updated.Labels, 1)
	assert.Equal(t, "Docs", updated.Labels[0].Name)

	cleared, err := svc.UpdateCard(ctx, card.ID, &models.UpdateCardRequest{Labels: json.RawMessage(`[]`), Priority: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, cleared.Labels)
	assert.Nil(t, cleared.Priority)
	assert.Equal(t, "Final", cleared.Title)
}

func TestUpdateCard_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateCard(ctx, "missing", &models.UpdateCardRequest{Title: strPtr("x")})
	assert.True(t, apperrors.IsNotFound(err))

	card := createCard(t, svc, models.CreateCardRequest{Title: "Draft", ColumnID: "col-1"})
	_, err = svc.UpdateCard(ctx, card.ID, &models.UpdateCardRequest{DueDate: json.RawMessage(`"2040-01-01"`)})
	require.Error(t, err)
	assert.Equal(t, "Due date cannot be more than 5 years in the future", err.Error())
}

func TestMoveCard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := createCard(t, svc, models.CreateCardRequest{Title: "a", ColumnID: "col-1"})
	b := createCard(t, svc, models.CreateCardRequest{Title: "b", ColumnID: "col-1"})
	c := createCard(t, svc, models.CreateCardRequest{Title: "c", ColumnID: "col-1"})
	x := createCard(t, svc, models.CreateCardRequest{Title: "x", ColumnID: "col-2"})

	moved, err := svc.MoveCard(ctx, b.ID, &models.MoveCardRequest{ColumnID: "col-2", Index: 0})
	require.NoError(t, err)
	assert.Equal(t, "col-2", moved.ColumnID)
	assert.Equal(t, 0, moved.Order)

	columns, err := svc.Board(ctx, Filter{}, nil)
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.Equal(t, []string{a.ID, c.ID}, cardIDs(columns[0].Cards))
	assert.Equal(t, []int{0, 1}, cardOrders(columns[0].Cards))
	assert.Equal(t, []string{b.ID, x.ID}, cardIDs(columns[1].Cards))
	assert.Equal(t, []int{0, 1}, cardOrders(columns[1].Cards))

	_, err = svc.MoveCard(ctx, a.ID, &models.MoveCardRequest{ColumnID: "col-1", Index: 99})
	require.NoError(t, err)
	columns, err = svc.Board(ctx, Filter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, a.ID}, cardIDs(columns[0].Cards))

	_, err = svc.MoveCard(ctx, a.ID, &models.MoveCardRequest{ColumnID: "nowhere"})
	require.Error(t, err)
	assert.Equal(t, "Column not found", err.Error())
}

func TestArchiveAndRestore(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	card := createCard(t, svc, models.CreateCardRequest{Title: "Old", ColumnID: "col-1"})

	archived, err := svc.ArchiveCard(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)

	columns, err := svc.Board(ctx, Filter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, columns[0].Cards)

	list, err := svc.ListArchived(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, card.ID, list[0].ID)

	restored, err := svc.RestoreCard(ctx, card.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)

	activities, err := svc.ListActivities(ctx, 0)
	require.NoError(t, err)
	require.Len(t, activities, 3)
	types := []models.ActivityType{activities[0].Type, activities[1].Type, activities[2].Type}
	assert.ElementsMatch(t, []models.ActivityType{models.ActivityCreate, models.ActivityArchive, models.ActivityUpdate}, types)
}

func TestDeleteCard(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	first := createCard(t, svc, models.CreateCardRequest{Title: "first", ColumnID: "col-1"})
	card := createCard(t, svc, models.CreateCardRequest{
		Title:    "Doomed",
		ColumnID: "col-1",
		Labels:   json.RawMessage(`[{"name":"Bug","color":"bg-red-500"}]`),
	})
	last := createCard(t, svc, models.CreateCardRequest{Title: "last", ColumnID: "col-1"})
	_, err := svc.AddChecklistItem(ctx, card.ID, &models.ChecklistItemRequest{Text: "step"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCard(ctx, card.ID))

	_, err = svc.GetCard(ctx, card.ID)
	assert.True(t, apperrors.IsNotFound(err))

	var items, links int64
	require.NoError(t, db.Model(&models.ChecklistItem{}).Count(&items).Error)
	require.NoError(t, db.Table("card_labels").Count(&links).Error)
	assert.Zero(t, items)
	assert.Zero(t, links)

	columns, err := svc.Board(ctx, Filter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, last.ID}, cardIDs(columns[0].Cards))
	assert.Equal(t, []int{0, 1}, cardOrders(columns[0].Cards))

	assert.True(t, apperrors.IsNotFound(svc.DeleteCard(ctx, card.ID)))
}

func TestGetCard_Children(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	card := createCard(t, svc, models.CreateCardRequest{Title: "Rich", ColumnID: "col-1", Description: strPtr("# Heading")})

	first, err := svc.AddChecklistItem(ctx, card.ID, &models.ChecklistItemRequest{Text: "one"})
	require.NoError(t, err)
	_, err = svc.AddChecklistItem(ctx, card.ID, &models.ChecklistItemRequest{Text: "two"})
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, card.ID, &models.CommentRequest{Text: "looks good", UserID: "u1", UserName: "Sam"})
	require.NoError(t, err)
	_, err = svc.AddAttachment(ctx, card.ID, &models.AttachmentRequest{Type: "chart", URL: "https://example.com/chart.json"})
	require.NoError(t, err)

	done := true
	item, err := svc.UpdateChecklistItem(ctx, card.ID, first.ID, &models.UpdateChecklistItemRequest{IsComplete: &done})
	require.NoError(t, err)
	assert.True(t, item.IsComplete)
	assert.Equal(t, "one", item.Text)

	got, err := svc.GetCard(ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, got.Checklist, 2)
	assert.Equal(t, "one", got.Checklist[0].Text)
	assert.True(t, got.Checklist[0].IsComplete)
	assert.Equal(t, "two", got.Checklist[1].Text)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Sam", got.Comments[0].UserName)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, models.AttachmentChart, got.Attachments[0].Type)
	assert.Contains(t, got.DescriptionHTML, "<h1")

	require.NoError(t, svc.DeleteChecklistItem(ctx, card.ID, first.ID))
	err = svc.DeleteChecklistItem(ctx, card.ID, first.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestItems_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	card := createCard(t, svc, models.CreateCardRequest{Title: "Card", ColumnID: "col-1"})

	_, err := svc.AddChecklistItem(ctx, card.ID, &models.ChecklistItemRequest{Text: " "})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.AddComment(ctx, card.ID, &models.CommentRequest{Text: "hi", UserID: "u1"})
	require.Error(t, err)
	assert.Equal(t, "userName is required", err.Error())

	_, err = svc.AddAttachment(ctx, card.ID, &models.AttachmentRequest{Type: "video", URL: "https://example.com/v.mp4"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.AddComment(ctx, "missing", &models.CommentRequest{Text: "hi", UserID: "u1", UserName: "Sam"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateColumnAndLabels(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	column, err := svc.CreateColumn(ctx, &models.CreateColumnRequest{Title: " Review "})
	require.NoError(t, err)
	assert.Equal(t, "Review", column.Title)
	assert.Equal(t, 2, column.Position)

	_, err = svc.CreateColumn(ctx, &models.CreateColumnRequest{})
	assert.True(t, apperrors.IsValidation(err))

	createCard(t, svc, models.CreateCardRequest{Title: "x", ColumnID: column.ID, Labels: json.RawMessage(`[{"name":"Zed","color":"c"},{"name":"Alpha","color":"c"}]`)})
	labels, err := svc.ListLabels(ctx)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "Alpha", labels[0].Name)
}

type fakeCalendar struct {
	mu      sync.Mutex
	synced  []string
	deleted []string
}

func (f *fakeCalendar) SyncDueDate(ctx context.Context, card models.Card) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, card.ID)
	return "event-" + card.ID, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, eventID)
	return nil
}

func TestCalendarSync(t *testing.T) {
	cal := &fakeCalendar{}
	svc, db := newTestService(t, WithCalendar(cal))
	ctx := context.Background()

	createCard(t, svc, models.CreateCardRequest{Title: "no date", ColumnID: "col-1"})
	assert.Empty(t, cal.synced)

	card := createCard(t, svc, models.CreateCardRequest{Title: "dated", ColumnID: "col-1", DueDate: json.RawMessage(`"2027-01-10"`)})
	assert.Equal(t, []string{card.ID}, cal.synced)

	var stored models.Card
	require.NoError(t, db.First(&stored, "id = ?", card.ID).Error)
	assert.Equal(t, "event-"+card.ID, stored.EventID)

	_, err := svc.UpdateCard(ctx, card.ID, &models.UpdateCardRequest{DueDate: json.RawMessage(`""`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"event-" + card.ID}, cal.deleted)

	require.NoError(t, db.First(&stored, "id = ?", card.ID).Error)
	assert.Empty(t, stored.EventID)
}

func cardIDs(cards []models.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func cardOrders(cards []models.Card) []int {
	orders := make([]int, len(cards))
	for i, c := range cards {
		orders[i] = c.Order
	}
	return orders
}
