// Package tui is the interactive terminal browser: a catalog tree on the
// left, the selected table's data on the right, and a prompt line for
// filters, cell edits and ad-hoc SQL.
//
// All model work runs synchronously inside Update. The underlying tree and
// grid are single-threaded by design, and browsing-scale queries are fast
// enough that a spinner would outlive its welcome.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mallardlabs/mallard/internal/session"
	"github.com/mallardlabs/mallard/pkg/catalog"
	"github.com/mallardlabs/mallard/pkg/grid"
)

// Options configures the browser.
type Options struct {
	// InitialTable selects this table on startup when present; otherwise
	// the first table of the first schema is shown.
	InitialTable string

	// OnStatement is called after every ad-hoc SQL statement run from the
	// prompt, successful or not. Optional.
	OnStatement func(sql string, startedAt time.Time, rowCount int64, err error)
}

type focusArea int

const (
	focusTree focusArea = iota
	focusGrid
)

type inputMode int

const (
	inputNone inputMode = iota
	inputTreeFilter
	inputColumnFilter
	inputCellEdit
	inputSQL
)

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	session *session.Session
	logger  *slog.Logger
	opts    Options

	tree *catalog.Tree
	grid *grid.Grid

	tv *treeView
	gv gridView

	loadedSchema string
	loadedTable  string

	focused  focusArea
	mode     inputMode
	input    textinput.Model
	inputCol int

	width    int
	height   int
	status   string
	statusOK bool
	showHelp bool
	quitting bool
}

// New builds the browser model: the catalog tree is built eagerly and the
// initial table, when one can be found, is loaded into the data pane.
func New(ctx context.Context, sess *session.Session, logger *slog.Logger, opts Options) (*Model, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tree := sess.NewTree()
	if err := tree.Build(ctx); err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	input := textinput.New()
	input.CharLimit = 512

	m := &Model{
		ctx:     ctx,
		session: sess,
		logger:  logger,
		opts:    opts,
		tree:    tree,
		tv:      newTreeView(),
		input:   input,
		focused: focusTree,
	}
	m.tv.expandDefaults(tree)
	m.selectInitialTable(opts.InitialTable)
	return m, nil
}

// Run drives the model in the alternate screen until the user quits.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "?":
		m.showHelp = true
		return m, nil

	case "tab":
		if m.focused == focusTree {
			m.focused = focusGrid
		} else {
			m.focused = focusTree
		}
		return m, nil

	case "ctrl+r":
		m.refresh()
		return m, nil
	}

	if m.focused == focusTree {
		return m.updateTree(msg)
	}
	return m.updateGrid(msg)
}

func (m *Model) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.tv.moveUp()
	case "down", "j":
		m.tv.moveDown(m.tree)
	case "g":
		m.tv.moveTop()
	case "G":
		m.tv.moveBottom(m.tree)
	case "right", "l", " ":
		m.tv.toggle(m.tree)
	case "left", "h":
		m.tv.collapse(m.tree)
	case "enter":
		m.openSelection()
		if m.mode != inputNone {
			return m, textinput.Blink
		}
	case "/":
		m.startInput(inputTreeFilter, "filter objects: ", m.tree.Filter())
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := m.grid

	switch msg.String() {
	case "up", "k":
		m.gv.moveRow(g, -1)
	case "down", "j":
		m.gv.moveRow(g, 1)
	case "left", "h":
		m.gv.moveCol(g, -1)
	case "right", "l":
		m.gv.moveCol(g, 1)
	case "pgup":
		m.gv.moveRow(g, -m.gv.pageSize())
	case "pgdown":
		m.gv.moveRow(g, m.gv.pageSize())
	case "g":
		m.gv.row = 0
		m.gv.clamp(g)
	case "G":
		if g != nil {
			m.gv.row = g.RowCount() - 1
			m.gv.clamp(g)
		}
	case "home":
		m.gv.col = 0
		m.gv.colOff = 0
	case "end":
		if g != nil {
			m.gv.col = g.ColumnCount() - 1
		}

	case "s":
		m.toggleSort()

	case "f":
		if g != nil && g.ColumnCount() > 0 {
			name := g.Headers()[m.gv.col].Name
			m.inputCol = m.gv.col
			m.startInput(inputColumnFilter, "filter "+name+": ", g.Filter(m.gv.col))
			return m, textinput.Blink
		}

	case "F":
		if g != nil {
			g.ClearAllFilters()
			m.gv.clamp(g)
			m.setStatus("filters cleared", true)
		}

	case "e":
		switch {
		case g == nil || g.ColumnCount() == 0 || g.RowCount() == 0:
		case !g.Editable():
			m.setStatus("result is read-only", false)
		case m.session.ReadOnly():
			m.setStatus("database opened read-only", false)
		default:
			name := g.Headers()[m.gv.col].Name
			m.inputCol = m.gv.col
			m.startInput(inputCellEdit, "edit "+name+": ", g.Data(m.gv.row, m.gv.col))
			return m, textinput.Blink
		}

	case ":":
		m.startInput(inputSQL, "sql: ", "")
		return m, textinput.Blink
	}
	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stopInput()
		return m, nil
	case "enter":
		value := m.input.Value()
		mode := m.mode
		m.stopInput()
		m.commitInput(mode, value)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startInput(mode inputMode, prompt, value string) {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) stopInput() {
	m.mode = inputNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) commitInput(mode inputMode, value string) {
	switch mode {
	case inputTreeFilter:
		if err := m.tree.UpdateFilter(m.ctx, value); err != nil {
			m.setStatus("filter failed: "+err.Error(), false)
			return
		}
		m.tv.moveTop()
		if value == "" {
			m.setStatus("filter cleared", true)
		} else {
			m.setStatus(fmt.Sprintf("filtering objects by %q", value), true)
		}

	case inputColumnFilter:
		if m.grid != nil {
			m.grid.SetFilter(m.inputCol, value)
			m.gv.clamp(m.grid)
		}

	case inputCellEdit:
		m.commitEdit(value)

	case inputSQL:
		if strings.TrimSpace(value) != "" {
			m.runSQL(value)
		}
	}
}

func (m *Model) commitEdit(value string) {
	g := m.grid
	if g == nil {
		return
	}
	declType := g.Headers()[m.inputCol].Type
	err := g.SetData(m.ctx, m.gv.row, m.inputCol, parseCell(value, declType))
	if err != nil {
		m.setStatus("edit failed: "+err.Error(), false)
		return
	}
	m.setStatus("updated "+g.Headers()[m.inputCol].Name, true)
}

func (m *Model) runSQL(sql string) {
	start := time.Now()
	g, err := m.session.Query(m.ctx, sql)
	if m.opts.OnStatement != nil {
		var rows int64
		if err == nil {
			rows = int64(g.TotalRowCount())
		}
		m.opts.OnStatement(sql, start, rows, err)
	}
	if err != nil {
		m.setStatus("query failed: "+err.Error(), false)
		return
	}

	m.bindGrid(g)
	m.loadedSchema, m.loadedTable = "", ""
	m.focused = focusGrid
	m.setStatus(fmt.Sprintf("%d rows in %s", g.TotalRowCount(),
		time.Since(start).Round(time.Millisecond)), true)
}

// openSelection loads the table or view under the tree cursor into the
// data pane. Selecting a column opens its table, moves the data cursor
// onto that column and drops straight into its filter prompt.
func (m *Model) openSelection() {
	h := m.tv.current(m.tree)
	if h == catalog.InvalidHandle {
		return
	}
	info := m.tree.ItemInfo(h)
	switch info.Kind {
	case catalog.KindTable, catalog.KindView:
		m.loadTable(info.Schema, info.Table)
	case catalog.KindColumn:
		if m.loadTable(info.Schema, info.Table) {
			m.focusColumn(info.Column)
		}
	default:
		m.tv.toggle(m.tree)
	}
}

// focusColumn puts the data cursor on the named column of the loaded grid
// and opens its filter prompt.
func (m *Model) focusColumn(name string) {
	g := m.grid
	if g == nil {
		return
	}
	for i, h := range g.Headers() {
		if h.Name == name {
			m.gv.col = i
			m.gv.clamp(g)
			m.inputCol = i
			m.startInput(inputColumnFilter, "filter "+name+": ", g.Filter(i))
			return
		}
	}
}

func (m *Model) loadTable(schemaName, tableName string) bool {
	g := m.session.NewGrid()
	if err := g.Load(m.ctx, schemaName, tableName); err != nil {
		m.setStatus("load failed: "+err.Error(), false)
		return false
	}
	m.bindGrid(g)
	m.loadedSchema, m.loadedTable = schemaName, tableName
	m.focused = focusGrid
	m.setStatus(fmt.Sprintf("%s.%s: %d rows", schemaName, tableName, g.TotalRowCount()), true)
	return true
}

// bindGrid swaps in a new grid and resets the data cursor. The layout
// callback keeps the cursor in range whenever a filter or sort reshapes
// the view.
func (m *Model) bindGrid(g *grid.Grid) {
	m.grid = g
	m.gv = gridView{width: m.gv.width, height: m.gv.height}
	g.OnLayoutChanged = func() { m.gv.clamp(g) }
}

func (m *Model) refresh() {
	if err := m.tree.Refresh(m.ctx); err != nil {
		m.setStatus("refresh failed: "+err.Error(), false)
		return
	}
	if m.loadedTable != "" {
		m.loadTable(m.loadedSchema, m.loadedTable)
	}
	m.setStatus("catalog refreshed", true)
}

func (m *Model) setStatus(text string, ok bool) {
	m.status = text
	m.statusOK = ok
}

// selectInitialTable puts the cursor on the named table, or on the first
// table the catalog has, and opens it.
func (m *Model) selectInitialTable(name string) {
	root := m.tree.Root()
	notFound := ""
	if name != "" {
		for si := 0; si < m.tree.ChildCount(root); si++ {
			schemaName := m.tree.Data(m.tree.Index(si, root))
			for _, category := range []string{"Tables", "Views"} {
				if m.tv.selectPath(m.tree, schemaName, category, name) {
					m.openSelection()
					return
				}
			}
		}
		notFound = name
	}
	for si := 0; si < m.tree.ChildCount(root); si++ {
		sh := m.tree.Index(si, root)
		for ci := 0; ci < m.tree.ChildCount(sh); ci++ {
			ch := m.tree.Index(ci, sh)
			if m.tree.ChildCount(ch) > 0 {
				first := m.tree.Index(0, ch)
				if m.tv.selectPath(m.tree, m.tree.Path(first)...) {
					m.openSelection()
					break
				}
			}
		}
		if m.loadedTable != "" {
			break
		}
	}
	if notFound != "" {
		m.setStatus("table not found: "+notFound, false)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}
	if m.showHelp {
		return m.helpView()
	}

	title := m.titleView()
	status := m.statusView()
	contentHeight := m.height - lipgloss.Height(title) - lipgloss.Height(status) - 2

	treeWidth := m.width / 4
	if treeWidth < 24 {
		treeWidth = 24
	}
	if treeWidth > 40 {
		treeWidth = 40
	}
	gridWidth := m.width - treeWidth - 4

	m.tv.width, m.tv.height = treeWidth, contentHeight
	m.gv.width, m.gv.height = gridWidth, contentHeight

	treeStyle, gridStyle := blurredBorderStyle, blurredBorderStyle
	if m.focused == focusTree {
		treeStyle = focusedBorderStyle
	} else {
		gridStyle = focusedBorderStyle
	}

	treePane := treeStyle.Width(treeWidth).Height(contentHeight).
		Render(m.tv.render(m.tree, m.focused == focusTree))
	gridPane := gridStyle.Width(gridWidth).Height(contentHeight).
		Render(m.gv.render(m.grid, m.focused == focusGrid))

	panes := lipgloss.JoinHorizontal(lipgloss.Top, treePane, gridPane)
	return lipgloss.JoinVertical(lipgloss.Left, title, panes, status)
}

func (m *Model) titleView() string {
	title := "mallard │ " + m.session.DisplayPath()
	if m.session.ReadOnly() {
		title += " │ read-only"
	}
	return titleBarStyle.Width(m.width).Render(title)
}

func (m *Model) statusView() string {
	if m.mode != inputNone {
		return inputBarStyle.Width(m.width).Render(m.input.View())
	}
	if m.status != "" {
		if m.statusOK {
			return statusBarStyle.Width(m.width).Render(m.status)
		}
		return statusErrorStyle.Width(m.width).Render(m.status)
	}

	left := "(no table)"
	if m.grid != nil && m.grid.ColumnCount() > 0 {
		shown, total := m.grid.RowCount(), m.grid.TotalRowCount()
		if shown == total {
			left = fmt.Sprintf("%d rows", total)
		} else {
			left = fmt.Sprintf("%d of %d rows", shown, total)
		}
		if name := m.grid.Table(); name != "" {
			left = name + "  " + left
		}
	}
	right := "? help · q quit"

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) helpView() string {
	help := `mallard browser

Global
  tab          switch pane
  ctrl+r       refresh catalog and table
  q / ctrl+c   quit

Catalog tree
  ↑/↓ j/k      move
  →/l/space    expand or collapse
  ←/h          collapse, then jump to parent
  enter        open table, view or column
  /            filter objects by name

Data pane
  arrows hjkl  move cell cursor
  pgup/pgdn    page through rows
  g / G        first / last row
  s            sort by column (again to reverse)
  f            filter current column
  F            clear all column filters
  e            edit current cell (NULL clears)
  :            run SQL on this connection

press any key to close`
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, help)
}

func (m *Model) toggleSort() {
	g := m.grid
	if g == nil || g.ColumnCount() == 0 {
		return
	}
	col, desc, applied := g.SortKey()
	if applied && col == m.gv.col && !desc {
		g.Sort(m.gv.col, true)
	} else {
		g.Sort(m.gv.col, false)
	}
	m.gv.clamp(g)
}
