package engine

import "github.com/ftahirops/airtop/model"

// CellsPerScreen is the number of cells one screen shows at once.
const CellsPerScreen = 6

// ScrollTarget returns the key of the last item of the last section when the
// content no longer fits on one screen.
func ScrollTarget(sections []model.Section) (model.ItemKey, bool) {
	if countItems(sections) < CellsPerScreen {
		return model.ItemKey{}, false
	}
	for i := len(sections) - 1; i >= 0; i-- {
		if items := sections[i].Items; len(items) > 0 {
			return items[len(items)-1].Key(), true
		}
	}
	return model.ItemKey{}, false
}
