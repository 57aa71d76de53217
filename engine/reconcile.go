package engine

import (
	"sync"

	"github.com/ftahirops/airtop/model"
)

// Reconciler tracks the payload each visible cell currently shows and works
// out which cells need a content refresh after a structural update.
//
// Structural diffing (inserts/removes between two ordered key lists) belongs
// to the render surface; the reconciler only declares sections and keys.
type Reconciler struct {
	mu    sync.Mutex
	shown map[model.ItemKey]model.DisplayItem
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{shown: make(map[model.ItemKey]model.DisplayItem)}
}

// Declare returns the section declarations for sections, in order.
func Declare(sections []model.Section) []model.SectionDecl {
	decls := make([]model.SectionDecl, len(sections))
	for i, s := range sections {
		keys := make([]model.ItemKey, len(s.Items))
		for j, it := range s.Items {
			keys[j] = it.Key()
		}
		decls[i] = model.SectionDecl{ID: s.ID, Keys: keys}
	}
	return decls
}

// Reconcile declares sections and returns refreshes for the visible keys
// whose payload differs from what the surface last received. Keys that are
// not visible are never refreshed and stop being tracked.
func (r *Reconciler) Reconcile(sections []model.Section, visible []model.ItemKey) ([]model.SectionDecl, []model.Refresh) {
	decls := Declare(sections)

	fresh := make(map[model.ItemKey]model.DisplayItem, countItems(sections))
	for _, s := range sections {
		for _, it := range s.Items {
			fresh[it.Key()] = it
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[model.ItemKey]bool, len(visible))
	var refreshes []model.Refresh
	for _, k := range visible {
		if seen[k] {
			continue
		}
		seen[k] = true
		item, ok := fresh[k]
		if !ok {
			continue
		}
		if prev, shown := r.shown[k]; shown && prev.Equal(item) {
			continue
		}
		r.shown[k] = item
		refreshes = append(refreshes, model.Refresh{Key: k, Item: item})
	}
	for k := range r.shown {
		if !seen[k] {
			delete(r.shown, k)
			continue
		}
		if _, ok := fresh[k]; !ok {
			delete(r.shown, k)
		}
	}
	return decls, refreshes
}

// Bind records that the surface configured a cell with item on its own,
// e.g. when the cell scrolled into view.
func (r *Reconciler) Bind(item model.DisplayItem) {
	r.mu.Lock()
	r.shown[item.Key()] = item
	r.mu.Unlock()
}

// Reset forgets all tracked cells.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.shown = make(map[model.ItemKey]model.DisplayItem)
	r.mu.Unlock()
}

// Tracked returns how many cells are currently tracked.
func (r *Reconciler) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shown)
}
