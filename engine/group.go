package engine

import "github.com/ftahirops/airtop/model"

// Group partitions items into sections ordered by first appearance of their
// section id. Items keep their relative input order. O(n): one pass with an
// order-preserving id list and an id->index map.
func Group(items []model.DisplayItem) []model.Section {
	if len(items) == 0 {
		return nil
	}
	idx := make(map[string]int)
	var sections []model.Section
	for _, it := range items {
		i, ok := idx[it.SectionID]
		if !ok {
			i = len(sections)
			idx[it.SectionID] = i
			sections = append(sections, model.Section{ID: it.SectionID})
		}
		sections[i].Items = append(sections[i].Items, it)
	}
	return sections
}

// countItems returns the total number of items across sections.
func countItems(sections []model.Section) int {
	n := 0
	for _, s := range sections {
		n += len(s.Items)
	}
	return n
}
