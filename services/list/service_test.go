package list_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"watchdeck/internal/database"
	"watchdeck/models"
	"watchdeck/services/list"
	"watchdeck/services/store"
	"watchdeck/services/users"
)

type fixture struct {
	list    *list.Service
	userID  string
	content []string // local ids, indexable by seed order
}

func newFixture(t *testing.T, titles int) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user, err := users.NewService(db).Create(ctx, "alice", "Alice", "secret-password")
	require.NoError(t, err)

	storeSvc := store.NewService(db)
	f := &fixture{list: list.NewService(db), userID: user.ID}
	for i := 0; i < titles; i++ {
		rec, err := storeSvc.UpsertContent(ctx, models.ContentRecord{
			ProviderName: "TMDB",
			ProviderID:   fmt.Sprintf("%d", i+1),
			Title:        fmt.Sprintf("Movie %d", i+1),
			Kind:         models.KindMovie,
			Year:         2000 + i,
		})
		require.NoError(t, err)
		f.content = append(f.content, rec.LocalID)
	}
	return f
}

func (f *fixture) add(t *testing.T, contentIdx int) models.ListItem {
	t.Helper()
	item, err := f.list.Add(context.Background(), f.userID, models.ListItemUpsert{
		ContentID:     f.content[contentIdx],
		RequestedByID: f.userID,
	})
	require.NoError(t, err)
	return item
}

func positions(t *testing.T, svc *list.Service) map[string]int {
	t.Helper()
	items, err := svc.List(context.Background())
	require.NoError(t, err)
	got := make(map[string]int, len(items))
	for i, item := range items {
		require.Equal(t, i+1, item.Position, "positions must be contiguous and 1-based")
		got[item.ContentID] = item.Position
	}
	return got
}

func TestAddAppendsAndDefaultsStatus(t *testing.T) {
	f := newFixture(t, 2)

	first := f.add(t, 0)
	require.Equal(t, 1, first.Position)
	require.Equal(t, models.StatusWantToWatch, first.Status)
	require.NotNil(t, first.Content)
	require.Equal(t, "Movie 1", first.Content.Title)
	require.NotNil(t, first.AddedBy)
	require.Equal(t, "alice", first.AddedBy.Username)

	second := f.add(t, 1)
	require.Equal(t, 2, second.Position)
}

func TestAddAtPositionShiftsFollowers(t *testing.T) {
	f := newFixture(t, 3)
	f.add(t, 0)
	f.add(t, 1)

	item, err := f.list.Add(context.Background(), f.userID, models.ListItemUpsert{
		ContentID:     f.content[2],
		RequestedByID: f.userID,
		Position:      1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, item.Position)

	got := positions(t, f.list)
	require.Equal(t, 1, got[f.content[2]])
	require.Equal(t, 2, got[f.content[0]])
	require.Equal(t, 3, got[f.content[1]])
}

func TestAddRejectsDuplicateContent(t *testing.T) {
	f := newFixture(t, 1)
	f.add(t, 0)

	_, err := f.list.Add(context.Background(), f.userID, models.ListItemUpsert{
		ContentID:     f.content[0],
		RequestedByID: f.userID,
	})
	require.ErrorIs(t, err, list.ErrAlreadyListed)
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	_, err := f.list.Add(ctx, f.userID, models.ListItemUpsert{RequestedByID: f.userID})
	require.ErrorIs(t, err, list.ErrContentIDRequired)

	_, err = f.list.Add(ctx, f.userID, models.ListItemUpsert{ContentID: f.content[0]})
	require.ErrorIs(t, err, list.ErrRequesterRequired)

	_, err = f.list.Add(ctx, f.userID, models.ListItemUpsert{
		ContentID: "missing", RequestedByID: f.userID,
	})
	require.ErrorIs(t, err, list.ErrContentNotFound)

	bad := 10.5
	_, err = f.list.Add(ctx, f.userID, models.ListItemUpsert{
		ContentID: f.content[0], RequestedByID: f.userID, Rating: &bad,
	})
	require.ErrorIs(t, err, list.ErrInvalidRating)

	_, err = f.list.Add(ctx, f.userID, models.ListItemUpsert{
		ContentID: f.content[0], RequestedByID: f.userID, Status: "BINGED",
	})
	require.ErrorIs(t, err, list.ErrInvalidStatus)
}

func TestUpdateStatusRecordsHistory(t *testing.T) {
	f := newFixture(t, 1)
	item := f.add(t, 0)
	ctx := context.Background()

	watching := models.StatusWatching
	updated, err := f.list.Update(ctx, item.ID, models.ListItemPatch{Status: &watching})
	require.NoError(t, err)
	require.Equal(t, models.StatusWatching, updated.Status)

	history, err := f.list.History(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Empty(t, string(history[0].FromStatus))
	require.Equal(t, models.StatusWantToWatch, history[0].ToStatus)

	seen := map[models.WatchStatus]bool{}
	for _, change := range history {
		seen[change.ToStatus] = true
	}
	require.True(t, seen[models.StatusWatching], "transition to WATCHING must be recorded")
}

func TestUpdateSameStatusAddsNoHistory(t *testing.T) {
	f := newFixture(t, 1)
	item := f.add(t, 0)
	ctx := context.Background()

	same := models.StatusWantToWatch
	_, err := f.list.Update(ctx, item.ID, models.ListItemPatch{Status: &same})
	require.NoError(t, err)

	history, err := f.list.History(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestUpdatePositionMoves(t *testing.T) {
	f := newFixture(t, 3)
	a := f.add(t, 0)
	f.add(t, 1)
	c := f.add(t, 2)
	ctx := context.Background()

	// Move the last item to the front.
	front := 1
	moved, err := f.list.Update(ctx, c.ID, models.ListItemPatch{Position: &front})
	require.NoError(t, err)
	require.Equal(t, 1, moved.Position)

	got := positions(t, f.list)
	require.Equal(t, 1, got[f.content[2]])
	require.Equal(t, 2, got[f.content[0]])
	require.Equal(t, 3, got[f.content[1]])

	// And the first item to the back.
	back := 3
	moved, err = f.list.Update(ctx, a.ID, models.ListItemPatch{Position: &back})
	require.NoError(t, err)
	require.Equal(t, 3, moved.Position)

	got = positions(t, f.list)
	require.Equal(t, 1, got[f.content[2]])
	require.Equal(t, 2, got[f.content[1]])
	require.Equal(t, 3, got[f.content[0]])
}

func TestUpdatePositionOutOfRange(t *testing.T) {
	f := newFixture(t, 1)
	item := f.add(t, 0)

	for _, bad := range []int{0, -1, 5} {
		pos := bad
		_, err := f.list.Update(context.Background(), item.ID, models.ListItemPatch{Position: &pos})
		require.ErrorIs(t, err, list.ErrPositionRange, "position %d", bad)
	}
}

func TestUpdateRating(t *testing.T) {
	f := newFixture(t, 1)
	item := f.add(t, 0)

	rating := 8.5
	updated, err := f.list.Update(context.Background(), item.ID, models.ListItemPatch{Rating: &rating})
	require.NoError(t, err)
	require.NotNil(t, updated.Rating)
	require.Equal(t, 8.5, *updated.Rating)
}

func TestUpdateMissingItem(t *testing.T) {
	f := newFixture(t, 0)
	rating := 5.0
	_, err := f.list.Update(context.Background(), "missing", models.ListItemPatch{Rating: &rating})
	require.ErrorIs(t, err, list.ErrItemNotFound)
}

func TestRemoveClosesGap(t *testing.T) {
	f := newFixture(t, 3)
	f.add(t, 0)
	b := f.add(t, 1)
	f.add(t, 2)
	ctx := context.Background()

	require.NoError(t, f.list.Remove(ctx, b.ID))

	got := positions(t, f.list)
	require.Len(t, got, 2)
	require.Equal(t, 1, got[f.content[0]])
	require.Equal(t, 2, got[f.content[2]])

	require.ErrorIs(t, f.list.Remove(ctx, b.ID), list.ErrItemNotFound)
}
