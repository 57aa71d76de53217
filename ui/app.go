package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/ftahirops/airtop/engine"
	"github.com/ftahirops/airtop/model"
)

const defaultWidth = 80

type tickMsg time.Time

// batchMsg carries one element of the subscription opened under gen.
// ok is false once the subscription channel is closed.
type batchMsg struct {
	gen   uint64
	batch model.Batch
	ok    bool
}

type averageMsg struct {
	gen   uint64
	value int
	err   error
}

// saveConfirmMsg is sent after a save completes.
type saveConfirmMsg struct {
	path string
	err  error
}

// Model is the bubbletea model rendering the history strip.
type Model struct {
	open     engine.SourceFactory
	pipe     *engine.Pipeline
	maxValue int

	// Active subscription
	scale  model.TimeScale
	gen    uint64
	sub    <-chan model.Batch
	cancel context.CancelFunc

	// Render state
	width   int
	height  int
	upd     *model.Update
	layout  stripLayout
	offset  int                                 // index of the first visible cell
	cells   map[model.ItemKey]model.DisplayItem // payload bound to on-screen cells
	banner  *model.Banner
	loading bool
	spinner spinner.Model

	// Status feedback
	err        error
	ended      bool
	paused     bool // auto refresh off: batches are drained, not applied
	statusMsg  string
	statusTime time.Time
	showHelp   bool
}

// NewModel creates a TUI model that opens sources through open.
func NewModel(open engine.SourceFactory, pipe *engine.Pipeline, maxValue int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	scale, _ := pipe.Current()
	return Model{
		open:     open,
		pipe:     pipe,
		maxValue: maxValue,
		scale:    scale,
		cells:    make(map[model.ItemKey]model.DisplayItem),
		spinner:  s,
	}
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return switchMsg{scale: m.scale} }
}

// switchMsg asks the model to (re)open the subscription for a scale.
type switchMsg struct {
	scale model.TimeScale
}

func tick() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForBatch(gen uint64, ch <-chan model.Batch) tea.Cmd {
	return func() tea.Msg {
		b, ok := <-ch
		return batchMsg{gen: gen, batch: b, ok: ok}
	}
}

func readAverage(ctx context.Context, src engine.Source, gen uint64) tea.Cmd {
	return func() tea.Msg {
		v, err := src.ReadAverage(ctx, time.Now())
		return averageMsg{gen: gen, value: v, err: err}
	}
}

// switchScale tears down the current subscription and opens a new one.
// Nothing rendered for the old scale is carried over.
func (m Model) switchScale(scale model.TimeScale) (Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.scale = scale
	m.gen = m.pipe.SwitchScale(scale)
	m.upd = nil
	m.layout = stripLayout{}
	m.offset = 0
	m.cells = make(map[model.ItemKey]model.DisplayItem)
	m.banner = nil
	m.err = nil
	m.ended = false

	src, err := m.open(scale)
	if err != nil {
		m.err = err
		m.loading = false
		return m, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.sub = src.Subscribe(ctx)
	m.loading = true
	log.Printf("airtop: subscribed %s (session %s)", scale, m.pipe.Session())
	return m, tea.Batch(waitForBatch(m.gen, m.sub), readAverage(ctx, src, m.gen), m.spinner.Tick)
}

// saveSnapshot writes the current banner and update to a JSON file.
func saveSnapshot(banner *model.Banner, upd *model.Update) tea.Cmd {
	return func() tea.Msg {
		ts := time.Now().Format("20060102-150405")
		path := fmt.Sprintf("airtop-%s-%s.json", upd.Scale, ts)

		data := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"banner":    banner,
			"update":    upd,
		}

		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return saveConfirmMsg{err: err}
		}
		defer f.Close()

		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return saveConfirmMsg{err: err}
		}
		return saveConfirmMsg{path: path}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "?":
			m.showHelp = true
		case "H":
			return m.switchScale(model.ScaleHours)
		case "D":
			return m.switchScale(model.ScaleDays)
		case "M":
			return m.switchScale(model.ScaleMonths)
		case "tab":
			return m.switchScale(m.scale.Next())
		case "r":
			return m.switchScale(m.scale)
		case "a":
			m.paused = !m.paused
			if m.paused {
				m.setStatus("Auto refresh off")
			} else {
				m.setStatus("Auto refresh on")
			}
		case "h", "left":
			m.scrollTo(m.offset - 1)
		case "l", "right":
			m.scrollTo(m.offset + 1)
		case "pgup":
			m.scrollTo(m.offset - engine.CellsPerScreen)
		case "pgdown":
			m.scrollTo(m.offset + engine.CellsPerScreen)
		case "g", "home":
			m.scrollTo(0)
		case "G", "end":
			m.scrollTo(m.layout.tailOffset(m.stripWidth()))
		case "S":
			if m.upd != nil {
				return m, saveSnapshot(m.banner, m.upd)
			}
		case "ctrl+d":
			if err := saveDefaultScale(m.scale); err != nil {
				m.setStatus(fmt.Sprintf("Error: %v", err))
			} else {
				m.setStatus(fmt.Sprintf("Default scale: %s", m.scale))
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scrollTo(m.offset)
	case switchMsg:
		next, cmd := m.switchScale(msg.scale)
		return next, tea.Batch(cmd, tick())
	case tickMsg:
		return m, tick()
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case averageMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			log.Printf("airtop: read average (%s): %v", m.scale, msg.err)
			m.setStatus(fmt.Sprintf("Average unavailable: %v", msg.err))
			return m, nil
		}
		if b, err := m.pipe.ApplyAverage(msg.gen, msg.value); err == nil {
			m.banner = &b
		}
	case batchMsg:
		return m.handleBatch(msg)
	case saveConfirmMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Save failed: %v", msg.err))
		} else {
			m.setStatus(fmt.Sprintf("Saved: %s", msg.path))
		}
	}
	return m, nil
}

func (m Model) handleBatch(msg batchMsg) (tea.Model, tea.Cmd) {
	if !msg.ok {
		if msg.gen == m.gen {
			m.ended = true
			m.loading = false
		}
		return m, nil
	}
	// A batch from a superseded subscription must not re-arm a reader on
	// the current channel.
	if msg.gen != m.gen {
		return m, nil
	}
	if m.paused && m.upd != nil {
		return m, waitForBatch(m.gen, m.sub)
	}
	upd, err := m.pipe.Apply(msg.gen, msg.batch, m.visibleKeys())
	if errors.Is(err, engine.ErrStale) {
		return m, nil
	}
	if err != nil {
		// Subscription failures are shown as-is; retry is the user's call (r).
		log.Printf("airtop: subscription %s: %v", m.scale, err)
		m.err = err
		m.loading = false
		return m, nil
	}
	m.applyUpdate(upd)
	return m, waitForBatch(m.gen, m.sub)
}

// applyUpdate installs a new snapshot: structure from its declarations,
// content for on-screen cells from its refreshes.
func (m *Model) applyUpdate(upd *model.Update) {
	m.upd = upd
	m.loading = false
	m.err = nil
	m.layout = newStripLayout(upd.Decls)

	for _, r := range upd.Refreshes {
		m.cells[r.Key] = r.Item
	}
	for k := range m.cells {
		if _, ok := m.layout.index[k]; !ok {
			delete(m.cells, k)
		}
	}

	if upd.Scroll != nil {
		m.scrollToKey(*upd.Scroll)
	} else {
		m.scrollTo(m.offset)
	}
}

// scrollToKey positions the strip so key is the right-most visible cell.
func (m *Model) scrollToKey(key model.ItemKey) {
	idx, ok := m.layout.index[key]
	if !ok {
		m.scrollTo(m.offset)
		return
	}
	off := idx
	for off > 0 {
		if _, end := m.layout.window(off-1, m.stripWidth()); end <= idx {
			break
		}
		off--
	}
	m.scrollTo(off)
}

// scrollTo moves the window and binds payloads of cells that came into view.
func (m *Model) scrollTo(offset int) {
	m.offset = m.layout.clampOffset(offset, m.stripWidth())
	first, end := m.layout.window(m.offset, m.stripWidth())

	onScreen := make(map[model.ItemKey]bool, end-first)
	for i := first; i < end; i++ {
		key := m.layout.keys[i]
		onScreen[key] = true
		if _, bound := m.cells[key]; bound {
			continue
		}
		if item, ok := m.upd.Item(key); ok {
			m.cells[key] = item
			m.pipe.Bind(item)
		}
	}
	for k := range m.cells {
		if !onScreen[k] {
			delete(m.cells, k)
		}
	}
}

// visibleKeys lists the keys of cells currently on screen.
func (m Model) visibleKeys() []model.ItemKey {
	first, end := m.layout.window(m.offset, m.stripWidth())
	keys := make([]model.ItemKey, 0, end-first)
	for i := first; i < end; i++ {
		keys = append(keys, m.layout.keys[i])
	}
	return keys
}

func (m Model) stripWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusTime = time.Now()
}

func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}
	width := m.stripWidth()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("STATISTIC"))
	sb.WriteString("  ")
	sb.WriteString(renderScaleToggle(m.scale))
	sb.WriteString("\n\n")
	sb.WriteString(renderBanner(m.banner, m.maxValue, width))
	sb.WriteString("\n\n")

	switch {
	case m.err != nil:
		sb.WriteString(critStyle.Render("  Source error: " + m.err.Error()))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render("  press r to resubscribe"))
	case m.loading && m.upd == nil:
		sb.WriteString("  " + m.spinner.View() + dimStyle.Render(" Loading "+m.scale.String()+"..."))
	case m.upd.Empty():
		sb.WriteString(dimStyle.Render("  No readings for this period"))
	default:
		first, end := m.layout.window(m.offset, width)
		sb.WriteString(renderStrip(m.layout, m.cells, first, end))
		sb.WriteString("\n")
		sb.WriteString(m.renderScrollHint(first, end))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.renderStatusBar())
	return sb.String()
}

func (m Model) renderScrollHint(first, end int) string {
	n := m.layout.Len()
	left, right := "  ", "  "
	if first > 0 {
		left = orangeStyle.Render("◀ ")
	}
	if end < n {
		right = orangeStyle.Render(" ▶")
	}
	return left + dimStyle.Render(fmt.Sprintf("%d-%d of %d", first+1, end, n)) + right
}

func (m Model) renderStatusBar() string {
	var left string
	if m.upd != nil {
		left = dimStyle.Render(fmt.Sprintf("%d sections, %d readings, updated %s",
			len(m.upd.Sections), m.upd.ItemCount, humanize.Time(m.upd.AppliedAt)))
	}
	if m.ended {
		left += "  " + warnStyle.Render("[ended]")
	}
	if m.paused {
		left += "  " + warnStyle.Render("[paused]")
	}
	if m.statusMsg != "" && time.Since(m.statusTime) < 5*time.Second {
		left += "  " + okStyle.Render(m.statusMsg)
	}
	help := helpStyle.Render("H/D/M:scale  ←/→:scroll  r:reload  a:auto  S:save  ?:help  q:quit")

	gap := m.stripWidth() - lipgloss.Width(left) - lipgloss.Width(help)
	if gap < 1 {
		return left + "\n" + help
	}
	return left + strings.Repeat(" ", gap) + help
}

func (m Model) renderHelp() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("airtop — keys"))
	sb.WriteString("\n\n")
	rows := [][2]string{
		{"H / D / M", "show hours of a day / days of a month / months of a year"},
		{"tab", "cycle time scale"},
		{"← → / h l", "scroll one cell"},
		{"pgup pgdown", "scroll one screen"},
		{"g / G", "jump to oldest / latest"},
		{"r", "reload the current scale"},
		{"a", "toggle auto refresh"},
		{"S", "save the current snapshot as JSON"},
		{"ctrl+d", "make the current scale the default"},
		{"q", "quit"},
	}
	for _, r := range rows {
		sb.WriteString("  " + headerStyle.Render(padRight(r[0], 14)) + valueStyle.Render(r[1]) + "\n")
	}
	sb.WriteString("\n" + dimStyle.Render("  press any key to close"))
	return sb.String()
}
