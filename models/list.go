package models

import "time"

// WatchStatus tracks where an item sits in the shared list lifecycle.
type WatchStatus string

const (
	StatusWantToWatch WatchStatus = "WANT_TO_WATCH"
	StatusWatching    WatchStatus = "WATCHING"
	StatusWatched     WatchStatus = "WATCHED"
)

// Valid reports whether the status is one of the supported values.
func (s WatchStatus) Valid() bool {
	return s == StatusWantToWatch || s == StatusWatching || s == StatusWatched
}

// ListItem is one entry of the shared watch list. Positions are
// 1-based and contiguous; inserting at a position shifts the items at
// and after it.
type ListItem struct {
	ID            string      `json:"id"`
	ContentID     string      `json:"contentId"`
	Status        WatchStatus `json:"status"`
	Position      int         `json:"position"`
	Rating        *float64    `json:"rating,omitempty"` // 0..10
	AddedByID     string      `json:"addedById"`
	RequestedByID string      `json:"requestedById"`
	AddedAt       time.Time   `json:"addedAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`

	Content     *ContentRecord `json:"content,omitempty"`
	AddedBy     *User          `json:"addedBy,omitempty"`
	RequestedBy *User          `json:"requestedBy,omitempty"`
}

// ListItemUpsert captures data required to add an item to the list.
type ListItemUpsert struct {
	ContentID     string      `json:"contentId"`
	Status        WatchStatus `json:"status,omitempty"`
	RequestedByID string      `json:"requestedById"`
	Position      int         `json:"position,omitempty"` // 0 = append at end
	Rating        *float64    `json:"rating,omitempty"`
}

// ListItemPatch carries the mutable fields of a list item. Nil fields
// are left unchanged.
type ListItemPatch struct {
	Status   *WatchStatus `json:"status,omitempty"`
	Position *int         `json:"position,omitempty"`
	Rating   *float64     `json:"rating,omitempty"`
}

// StatusChange records one transition in a list item's status history.
type StatusChange struct {
	ID         string      `json:"id"`
	ListItemID string      `json:"listItemId"`
	FromStatus WatchStatus `json:"fromStatus,omitempty"` // empty on first insert
	ToStatus   WatchStatus `json:"toStatus"`
	ChangedAt  time.Time   `json:"changedAt"`
}
