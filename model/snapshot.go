package model

import "time"

// ItemKey is the stable identity of a cell: its section and timestamp.
// Build it with NewItemKey so map lookups ignore monotonic clock readings
// and zone differences.
type ItemKey struct {
	SectionID string    `json:"section"`
	Timestamp time.Time `json:"ts"`
}

// NewItemKey returns a normalized key.
func NewItemKey(sectionID string, ts time.Time) ItemKey {
	return ItemKey{SectionID: sectionID, Timestamp: ts.Round(0).UTC()}
}

// DisplayItem is a self-describing cell payload built from one Reading.
type DisplayItem struct {
	SectionID string       `json:"section"`
	Value     int          `json:"value"`
	MaxValue  int          `json:"max_value"`
	Timestamp time.Time    `json:"ts"`
	Layout    string       `json:"layout"` // time.Format layout for the cell label
	State     BalanceState `json:"state"`
}

// Key returns the identity of the item.
func (d DisplayItem) Key() ItemKey {
	return NewItemKey(d.SectionID, d.Timestamp)
}

// Label formats the timestamp with the item's layout.
func (d DisplayItem) Label() string {
	return d.Timestamp.Format(d.Layout)
}

// Equal reports whether two items are interchangeable.
func (d DisplayItem) Equal(o DisplayItem) bool {
	return d.SectionID == o.SectionID &&
		d.Value == o.Value &&
		d.MaxValue == o.MaxValue &&
		d.Timestamp.Equal(o.Timestamp) &&
		d.Layout == o.Layout &&
		d.State == o.State
}

// Section is a contiguous group of items sharing a bucket id.
type Section struct {
	ID    string        `json:"id"`
	Items []DisplayItem `json:"items"`
}

// SectionDecl declares a section and its ordered item keys to a render surface.
type SectionDecl struct {
	ID   string    `json:"id"`
	Keys []ItemKey `json:"keys"`
}

// Refresh pushes fresh content for a visible cell.
type Refresh struct {
	Key  ItemKey     `json:"key"`
	Item DisplayItem `json:"item"`
}

// Update is an immutable snapshot produced for one batch.
type Update struct {
	Scale      TimeScale     `json:"scale"`
	Generation uint64        `json:"generation"`
	Sections   []Section     `json:"sections"`
	Decls      []SectionDecl `json:"decls"`
	Refreshes  []Refresh     `json:"refreshes,omitempty"`
	Scroll     *ItemKey      `json:"scroll,omitempty"` // nil when everything fits on one screen
	ItemCount  int           `json:"item_count"`
	AppliedAt  time.Time     `json:"applied_at"`
}

// Empty reports whether the update has no content to show.
func (u *Update) Empty() bool {
	return u == nil || u.ItemCount == 0
}

// Item looks up the payload for key, scanning sections in order.
func (u *Update) Item(key ItemKey) (DisplayItem, bool) {
	if u == nil {
		return DisplayItem{}, false
	}
	for _, s := range u.Sections {
		if s.ID != key.SectionID {
			continue
		}
		for _, it := range s.Items {
			if it.Key() == key {
				return it, true
			}
		}
	}
	return DisplayItem{}, false
}

// Keys returns all item keys in display order.
func (u *Update) Keys() []ItemKey {
	if u == nil {
		return nil
	}
	keys := make([]ItemKey, 0, u.ItemCount)
	for _, d := range u.Decls {
		keys = append(keys, d.Keys...)
	}
	return keys
}
