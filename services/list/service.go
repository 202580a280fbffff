package list

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"watchdeck/models"
)

var (
	ErrContentIDRequired = errors.New("content id is required")
	ErrRequesterRequired = errors.New("requested-by user id is required")
	ErrContentNotFound   = errors.New("content not found")
	ErrAlreadyListed     = errors.New("this content is already in the list")
	ErrItemNotFound      = errors.New("list item not found")
	ErrPositionRange     = errors.New("position out of range")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidRating     = errors.New("rating must be between 0 and 10")
)

// Service manages the shared watch list: ordered items referencing
// cached content, with per-item status, rating, and a status history.
type Service struct {
	db *sql.DB
}

// NewService wraps an open database handle.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Add inserts a content record into the list. A zero position appends
// at the end; otherwise items at and after the position shift down by
// one inside the same transaction.
func (s *Service) Add(ctx context.Context, addedByID string, input models.ListItemUpsert) (models.ListItem, error) {
	if strings.TrimSpace(input.ContentID) == "" {
		return models.ListItem{}, ErrContentIDRequired
	}
	if strings.TrimSpace(input.RequestedByID) == "" {
		return models.ListItem{}, ErrRequesterRequired
	}

	status := input.Status
	if status == "" {
		status = models.StatusWantToWatch
	}
	if !status.Valid() {
		return models.ListItem{}, ErrInvalidStatus
	}
	if input.Rating != nil && (*input.Rating < 0 || *input.Rating > 10) {
		return models.ListItem{}, ErrInvalidRating
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ListItem{}, fmt.Errorf("begin list insert: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM content WHERE local_id = ?", input.ContentID).Scan(&exists); err != nil {
		return models.ListItem{}, fmt.Errorf("check content: %w", err)
	}
	if exists == 0 {
		return models.ListItem{}, ErrContentNotFound
	}

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM list_items").Scan(&count); err != nil {
		return models.ListItem{}, fmt.Errorf("count list items: %w", err)
	}

	position := count + 1
	if input.Position > 0 && input.Position <= count {
		position = input.Position
		_, err = tx.ExecContext(ctx,
			"UPDATE list_items SET position = position + 1 WHERE position >= ?", position)
		if err != nil {
			return models.ListItem{}, fmt.Errorf("shift positions: %w", err)
		}
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO list_items (id, content_id, status, position, rating, added_by_id, requested_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, input.ContentID, string(status), position, input.Rating, addedByID, input.RequestedByID,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.ListItem{}, ErrAlreadyListed
		}
		return models.ListItem{}, fmt.Errorf("insert list item: %w", err)
	}

	if err := insertStatusChange(ctx, tx, id, "", status); err != nil {
		return models.ListItem{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.ListItem{}, fmt.Errorf("commit list insert: %w", err)
	}

	return s.Get(ctx, id)
}

// Update applies a partial change to a list item. Position moves shift
// the items in between; status changes append to the history.
func (s *Service) Update(ctx context.Context, id string, patch models.ListItemPatch) (models.ListItem, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return models.ListItem{}, ErrInvalidStatus
	}
	if patch.Rating != nil && (*patch.Rating < 0 || *patch.Rating > 10) {
		return models.ListItem{}, ErrInvalidRating
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ListItem{}, fmt.Errorf("begin list update: %w", err)
	}
	defer tx.Rollback()

	var (
		currentStatus   string
		currentPosition int
	)
	err = tx.QueryRowContext(ctx,
		"SELECT status, position FROM list_items WHERE id = ?", id,
	).Scan(&currentStatus, &currentPosition)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ListItem{}, ErrItemNotFound
	}
	if err != nil {
		return models.ListItem{}, fmt.Errorf("get list item: %w", err)
	}

	if patch.Position != nil && *patch.Position != currentPosition {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM list_items").Scan(&count); err != nil {
			return models.ListItem{}, fmt.Errorf("count list items: %w", err)
		}
		newPosition := *patch.Position
		if newPosition < 1 || newPosition > count {
			return models.ListItem{}, ErrPositionRange
		}

		if newPosition > currentPosition {
			// Moving down: pull the items in between up by one.
			_, err = tx.ExecContext(ctx, `
				UPDATE list_items SET position = position - 1
				WHERE position > ? AND position <= ?`, currentPosition, newPosition)
		} else {
			// Moving up: push the items in between down by one.
			_, err = tx.ExecContext(ctx, `
				UPDATE list_items SET position = position + 1
				WHERE position >= ? AND position < ?`, newPosition, currentPosition)
		}
		if err != nil {
			return models.ListItem{}, fmt.Errorf("shift positions: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE list_items SET position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			newPosition, id)
		if err != nil {
			return models.ListItem{}, fmt.Errorf("move list item: %w", err)
		}
	}

	if patch.Status != nil && string(*patch.Status) != currentStatus {
		_, err = tx.ExecContext(ctx,
			"UPDATE list_items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			string(*patch.Status), id)
		if err != nil {
			return models.ListItem{}, fmt.Errorf("update status: %w", err)
		}
		if err := insertStatusChange(ctx, tx, id, models.WatchStatus(currentStatus), *patch.Status); err != nil {
			return models.ListItem{}, err
		}
	}

	if patch.Rating != nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE list_items SET rating = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
			*patch.Rating, id)
		if err != nil {
			return models.ListItem{}, fmt.Errorf("update rating: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.ListItem{}, fmt.Errorf("commit list update: %w", err)
	}

	return s.Get(ctx, id)
}

// Remove deletes a list item and closes the position gap it leaves.
func (s *Service) Remove(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin list delete: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx, "SELECT position FROM list_items WHERE id = ?", id).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("get list item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM list_items WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete list item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE list_items SET position = position - 1 WHERE position > ?", position); err != nil {
		return fmt.Errorf("close position gap: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit list delete: %w", err)
	}
	return nil
}

const itemColumns = `
	li.id, li.content_id, li.status, li.position, li.rating,
	li.added_by_id, li.requested_by_id, li.added_at, li.updated_at,
	c.title, c.kind, c.year,
	ab.username, COALESCE(ab.display_name, ''),
	rb.username, COALESCE(rb.display_name, '')`

const itemJoins = `
	FROM list_items li
	JOIN content c ON c.local_id = li.content_id
	JOIN users ab ON ab.id = li.added_by_id
	JOIN users rb ON rb.id = li.requested_by_id`

// List returns all items in position order with content and user
// summaries attached.
func (s *Service) List(ctx context.Context) ([]models.ListItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+itemJoins+" ORDER BY li.position ASC")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := make([]models.ListItem, 0, 16)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get returns one list item by id.
func (s *Service) Get(ctx context.Context, id string) (models.ListItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+itemJoins+" WHERE li.id = ?", id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ListItem{}, ErrItemNotFound
	}
	return item, err
}

// History returns the status transitions of a list item, oldest first.
func (s *Service) History(ctx context.Context, itemID string) ([]models.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, list_item_id, COALESCE(from_status, ''), to_status, changed_at
		FROM status_history WHERE list_item_id = ? ORDER BY changed_at ASC, rowid ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	changes := make([]models.StatusChange, 0, 4)
	for rows.Next() {
		var (
			change models.StatusChange
			from   string
			to     string
		)
		if err := rows.Scan(&change.ID, &change.ListItemID, &from, &to, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		change.FromStatus = models.WatchStatus(from)
		change.ToStatus = models.WatchStatus(to)
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

func insertStatusChange(ctx context.Context, tx *sql.Tx, itemID string, from, to models.WatchStatus) error {
	var fromVal any
	if from != "" {
		fromVal = string(from)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO status_history (id, list_item_id, from_status, to_status)
		VALUES (?, ?, ?, ?)`,
		uuid.NewString(), itemID, fromVal, string(to),
	)
	if err != nil {
		return fmt.Errorf("record status change: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.ListItem, error) {
	var (
		item     models.ListItem
		status   string
		rating   sql.NullFloat64
		content  models.ContentRecord
		kind     string
		addedBy  models.User
		reqBy    models.User
	)
	err := row.Scan(
		&item.ID, &item.ContentID, &status, &item.Position, &rating,
		&item.AddedByID, &item.RequestedByID, &item.AddedAt, &item.UpdatedAt,
		&content.Title, &kind, &content.Year,
		&addedBy.Username, &addedBy.DisplayName,
		&reqBy.Username, &reqBy.DisplayName,
	)
	if err != nil {
		return models.ListItem{}, err
	}

	item.Status = models.WatchStatus(status)
	if rating.Valid {
		item.Rating = &rating.Float64
	}
	content.LocalID = item.ContentID
	content.Kind = models.ContentKind(kind)
	item.Content = &content
	addedBy.ID = item.AddedByID
	reqBy.ID = item.RequestedByID
	item.AddedBy = &addedBy
	item.RequestedBy = &reqBy

	return item, nil
}
