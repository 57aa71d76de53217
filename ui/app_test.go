package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/airtop/engine"
	"github.com/ftahirops/airtop/model"
)

// ---------------------------------------------------------------------------
// strip layout
// ---------------------------------------------------------------------------

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func testLayout(n int) stripLayout {
	var keys []model.ItemKey
	for i := 1; i <= n; i++ {
		keys = append(keys, model.NewItemKey("Mar", day(i)))
	}
	return newStripLayout([]model.SectionDecl{{ID: "Mar", Keys: keys}})
}

func TestStripWindow(t *testing.T) {
	l := testLayout(10)
	// One separator plus n cells: sepWidth + n*cellWidth.
	width := sepWidth + 4*cellWidth
	first, end := l.window(0, width)
	if first != 0 || end != 4 {
		t.Errorf("window(0) = [%d,%d), want [0,4)", first, end)
	}
	// A window starting mid-section still gets a separator column.
	if _, end = l.window(3, width); end != 7 {
		t.Errorf("window(3) end = %d, want 7", end)
	}
	// Too narrow still shows one cell.
	if first, end = l.window(2, 1); end-first != 1 {
		t.Errorf("narrow window = [%d,%d), want one cell", first, end)
	}
}

func TestStripTailOffset(t *testing.T) {
	l := testLayout(10)
	width := sepWidth + 4*cellWidth
	if got := l.tailOffset(width); got != 6 {
		t.Errorf("tailOffset = %d, want 6", got)
	}
	if got := l.clampOffset(100, width); got != 6 {
		t.Errorf("clampOffset(100) = %d, want 6", got)
	}
	if got := l.clampOffset(-3, width); got != 0 {
		t.Errorf("clampOffset(-3) = %d, want 0", got)
	}
	if got := (stripLayout{}).tailOffset(width); got != 0 {
		t.Errorf("empty tailOffset = %d", got)
	}
}

func TestStripSeparatorPerSection(t *testing.T) {
	l := newStripLayout([]model.SectionDecl{
		{ID: "Feb", Keys: []model.ItemKey{model.NewItemKey("Feb", day(1))}},
		{ID: "Mar", Keys: []model.ItemKey{model.NewItemKey("Mar", day(2)), model.NewItemKey("Mar", day(3))}},
	})
	if !l.hasSep(0, 0) || !l.hasSep(1, 0) || l.hasSep(2, 0) {
		t.Error("separators should precede each section's first cell")
	}
	if !l.hasSep(2, 2) {
		t.Error("first visible cell should get a separator")
	}
}

func TestRenderCell(t *testing.T) {
	it := model.DisplayItem{SectionID: "Mar", Value: 7, MaxValue: 10, Timestamp: day(4), Layout: "02 Jan", State: model.StateBalanced}
	lines := renderCell(it)
	if len(lines) != barHeight+2 {
		t.Fatalf("lines = %d, want %d", len(lines), barHeight+2)
	}
	for i, l := range lines {
		if w := lipgloss.Width(l); w != cellWidth {
			t.Errorf("line %d width = %d, want %d", i, w, cellWidth)
		}
	}
	if !strings.Contains(lines[barHeight], "7") {
		t.Errorf("value line = %q", lines[barHeight])
	}
	if !strings.Contains(lines[barHeight+1], "04 Mar") {
		t.Errorf("label line = %q", lines[barHeight+1])
	}

	off := it
	off.Value, off.State = 0, model.StateOff
	if !strings.Contains(renderCell(off)[barHeight], "⊘") {
		t.Error("off cell should show the no-data mark")
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("abc", 6); got != "abc   " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("abcdef", 3); got != "abc" {
		t.Errorf("padRight truncate = %q", got)
	}
}

func TestRenderBanner(t *testing.T) {
	b := engine.MakeBanner(8, model.ScaleMonths)
	out := renderBanner(&b, 10, 80)
	for _, want := range []string{"8", "/10", "Your air for a year", "fresh"} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(renderBanner(nil, 10, 80), "Reading average") {
		t.Error("nil banner placeholder missing")
	}
}

func TestRenderScaleToggle(t *testing.T) {
	out := renderScaleToggle(model.ScaleDays)
	m, d, h := strings.Index(out, "M"), strings.Index(out, "D"), strings.Index(out, "H")
	if m < 0 || d < 0 || h < 0 || !(m < d && d < h) {
		t.Errorf("toggle order wrong: %q", out)
	}
}

// ---------------------------------------------------------------------------
// model
// ---------------------------------------------------------------------------

// chanSource hands out a test-controlled subscription channel.
type chanSource struct {
	scale model.TimeScale
	ch    chan model.Batch
}

func (s *chanSource) Scale() model.TimeScale { return s.scale }
func (s *chanSource) ReadAverage(ctx context.Context, cursor time.Time) (int, error) {
	return 5, nil
}
func (s *chanSource) Subscribe(ctx context.Context) <-chan model.Batch { return s.ch }

func newTestModel(t *testing.T) (Model, map[model.TimeScale]*chanSource) {
	t.Helper()
	sources := make(map[model.TimeScale]*chanSource)
	open := func(scale model.TimeScale) (engine.Source, error) {
		s := &chanSource{scale: scale, ch: make(chan model.Batch)}
		sources[scale] = s
		return s, nil
	}
	pipe := engine.NewPipeline(model.ScaleDays, time.UTC)
	m := NewModel(open, pipe, 10)
	next, _ := m.Update(tea.WindowSizeMsg{Width: sepWidth + 4*cellWidth, Height: 30})
	next, _ = next.(Model).Update(switchMsg{scale: model.ScaleDays})
	return next.(Model), sources
}

func daysBatch(n, value int) model.Batch {
	var rs []model.Reading
	for i := 1; i <= n; i++ {
		rs = append(rs, model.Reading{Timestamp: day(i), Value: model.IntPtr(value), MaxValue: 10})
	}
	return model.Batch{Scale: model.ScaleDays, Readings: rs}
}

func TestModelAppliesBatchAndScrollsToEnd(t *testing.T) {
	m, _ := newTestModel(t)
	if !m.loading {
		t.Fatal("expected loading before the first batch")
	}

	next, cmd := m.Update(batchMsg{gen: m.gen, batch: daysBatch(10, 3), ok: true})
	m = next.(Model)
	if cmd == nil {
		t.Error("expected a command waiting for the next batch")
	}
	if m.upd == nil || m.upd.ItemCount != 10 || m.upd.Scroll == nil {
		t.Fatalf("update = %+v", m.upd)
	}
	if m.offset != m.layout.tailOffset(m.stripWidth()) {
		t.Errorf("offset = %d, want tail %d", m.offset, m.layout.tailOffset(m.stripWidth()))
	}
	if len(m.cells) != 4 {
		t.Errorf("bound cells = %d, want 4 on screen", len(m.cells))
	}
	last := model.NewItemKey("Mar", day(10))
	if _, ok := m.cells[last]; !ok {
		t.Error("last cell not on screen")
	}
	if !strings.Contains(m.View(), "10 Mar") {
		t.Error("view missing the last label")
	}
}

func TestModelRefreshesVisibleCells(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(batchMsg{gen: m.gen, batch: daysBatch(10, 3), ok: true})
	m = next.(Model)

	next, _ = m.Update(batchMsg{gen: m.gen, batch: daysBatch(10, 9), ok: true})
	m = next.(Model)
	if got := len(m.upd.Refreshes); got != 4 {
		t.Errorf("refreshes = %d, want 4 (visible cells only)", got)
	}
	for k, it := range m.cells {
		if it.Value != 9 || it.State != model.StateHigh {
			t.Errorf("cell %v not refreshed: %+v", k.Timestamp, it)
		}
	}

	// Same content again: nothing to push.
	next, _ = m.Update(batchMsg{gen: m.gen, batch: daysBatch(10, 9), ok: true})
	if got := len(next.(Model).upd.Refreshes); got != 0 {
		t.Errorf("repeat refreshes = %d, want 0", got)
	}
}

func TestModelScrollBindsNewCells(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(batchMsg{gen: m.gen, batch: daysBatch(10, 3), ok: true})
	m = next.(Model)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyHome})
	m = next.(Model)
	if m.offset != 0 {
		t.Fatalf("offset = %d, want 0", m.offset)
	}
	first := model.NewItemKey("Mar", day(1))
	if it, ok := m.cells[first]; !ok || it.Value != 3 {
		t.Errorf("first cell not bound after scroll: %+v %v", it, ok)
	}
	if len(m.cells) != 4 {
		t.Errorf("bound cells = %d, want 4", len(m.cells))
	}
}

func TestModelDropsStaleBatchAfterSwitch(t *testing.T) {
	m, _ := newTestModel(t)
	oldGen := m.gen

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'H'}})
	m = next.(Model)
	if m.scale != model.ScaleHours || m.gen == oldGen {
		t.Fatalf("scale = %s gen = %d", m.scale, m.gen)
	}

	next, _ = m.Update(batchMsg{gen: oldGen, batch: daysBatch(3, 3), ok: true})
	m = next.(Model)
	if m.upd != nil {
		t.Fatalf("stale days batch rendered: %+v", m.upd)
	}

	hours := model.Batch{Scale: model.ScaleHours, Readings: []model.Reading{
		{Timestamp: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), Value: model.IntPtr(2), MaxValue: 10},
	}}
	next, _ = m.Update(batchMsg{gen: m.gen, batch: hours, ok: true})
	m = next.(Model)
	if m.upd == nil || m.upd.Scale != model.ScaleHours {
		t.Fatalf("hours batch not rendered: %+v", m.upd)
	}
}

func TestModelAverageAndErrors(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(averageMsg{gen: m.gen, value: 5})
	m = next.(Model)
	if m.banner == nil || m.banner.State != model.BannerBalanced {
		t.Fatalf("banner = %+v", m.banner)
	}

	next, _ = m.Update(batchMsg{gen: m.gen, batch: model.Batch{Scale: model.ScaleDays, Err: context.DeadlineExceeded}, ok: true})
	m = next.(Model)
	if m.err == nil || !strings.Contains(m.View(), "Source error") {
		t.Error("subscription failure not surfaced")
	}
}

func TestModelEmptyBatch(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(batchMsg{gen: m.gen, batch: model.Batch{Scale: model.ScaleDays}, ok: true})
	if !strings.Contains(next.(Model).View(), "No readings") {
		t.Error("empty batch should render the no-content message")
	}
}

func TestModelPauseHoldsUpdates(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(batchMsg{gen: m.gen, batch: daysBatch(3, 3), ok: true})
	next, _ = next.(Model).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = next.(Model)
	if !m.paused {
		t.Fatal("expected paused")
	}
	before := m.upd
	next, _ = m.Update(batchMsg{gen: m.gen, batch: daysBatch(3, 9), ok: true})
	if next.(Model).upd != before {
		t.Error("paused model applied a batch")
	}
}

func TestModelPausedIgnoresSupersededBatch(t *testing.T) {
	m, _ := newTestModel(t)
	next, _ := m.Update(batchMsg{gen: m.gen, batch: daysBatch(3, 3), ok: true})
	next, _ = next.(Model).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = next.(Model)
	oldGen := m.gen

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'H'}})
	m = next.(Model)
	hour := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	hours := func(v int) model.Batch {
		return model.Batch{Scale: model.ScaleHours, Readings: []model.Reading{
			{Timestamp: hour, Value: model.IntPtr(v), MaxValue: 10},
		}}
	}
	next, _ = m.Update(batchMsg{gen: m.gen, batch: hours(2), ok: true})
	m = next.(Model)

	// A late days batch must not start a second reader on the hours channel.
	next, cmd := m.Update(batchMsg{gen: oldGen, batch: daysBatch(3, 3), ok: true})
	m = next.(Model)
	if cmd != nil {
		t.Fatal("superseded batch re-armed a reader")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	next, _ = next.(Model).Update(batchMsg{gen: next.(Model).gen, batch: hours(9), ok: true})
	m = next.(Model)
	it, ok := m.upd.Item(model.NewItemKey("04 Mon", hour))
	if !ok || it.Value != 9 {
		t.Errorf("live hours batch lost: %+v %v", it, ok)
	}
}
