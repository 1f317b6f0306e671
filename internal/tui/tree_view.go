package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mallardlabs/mallard/pkg/catalog"
)

// pathSep joins name paths into expansion keys. Unit separator rather than
// "/" so object names containing slashes cannot alias each other.
const pathSep = "\x1f"

// treeView is the cursor, scroll and expansion state of the catalog pane.
// Expansion is keyed by name path, not handle, so it survives the tree
// rebuilds that filtering and refreshing trigger.
type treeView struct {
	cursor int
	scroll int
	width  int
	height int

	expanded map[string]bool
}

func newTreeView() *treeView {
	return &treeView{expanded: make(map[string]bool)}
}

func pathKey(parts []string) string {
	return strings.Join(parts, pathSep)
}

// expandDefaults opens every schema and category node so tables and views
// are visible on first paint, with columns still tucked away.
func (tv *treeView) expandDefaults(t *catalog.Tree) {
	root := t.Root()
	for si := 0; si < t.ChildCount(root); si++ {
		sh := t.Index(si, root)
		tv.expanded[pathKey(t.Path(sh))] = true
		for ci := 0; ci < t.ChildCount(sh); ci++ {
			tv.expanded[pathKey(t.Path(t.Index(ci, sh)))] = true
		}
	}
}

// visible flattens the tree into the handles currently on screen, in
// display order: a node's children appear only while it is expanded.
func (tv *treeView) visible(t *catalog.Tree) []catalog.Handle {
	if t.Root() == catalog.InvalidHandle {
		return nil
	}
	var out []catalog.Handle
	var walk func(h catalog.Handle)
	walk = func(h catalog.Handle) {
		for i := 0; i < t.ChildCount(h); i++ {
			child := t.Index(i, h)
			out = append(out, child)
			if tv.expanded[pathKey(t.Path(child))] {
				walk(child)
			}
		}
	}
	walk(t.Root())
	return out
}

// current returns the handle under the cursor, clamping the cursor into
// the visible range first.
func (tv *treeView) current(t *catalog.Tree) catalog.Handle {
	nodes := tv.visible(t)
	if len(nodes) == 0 {
		return catalog.InvalidHandle
	}
	tv.clampCursor(len(nodes))
	return nodes[tv.cursor]
}

func (tv *treeView) clampCursor(n int) {
	if tv.cursor >= n {
		tv.cursor = n - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
}

func (tv *treeView) moveUp() {
	if tv.cursor > 0 {
		tv.cursor--
	}
}

func (tv *treeView) moveDown(t *catalog.Tree) {
	if tv.cursor < len(tv.visible(t))-1 {
		tv.cursor++
	}
}

func (tv *treeView) moveTop() {
	tv.cursor = 0
	tv.scroll = 0
}

func (tv *treeView) moveBottom(t *catalog.Tree) {
	tv.cursor = len(tv.visible(t)) - 1
	tv.clampCursor(len(tv.visible(t)))
}

// toggle flips expansion of the node under the cursor. Leaf nodes are left
// alone.
func (tv *treeView) toggle(t *catalog.Tree) {
	h := tv.current(t)
	if h == catalog.InvalidHandle || t.ChildCount(h) == 0 {
		return
	}
	key := pathKey(t.Path(h))
	if tv.expanded[key] {
		delete(tv.expanded, key)
	} else {
		tv.expanded[key] = true
	}
}

// collapse closes the node under the cursor, or jumps to its parent when
// it is already closed.
func (tv *treeView) collapse(t *catalog.Tree) {
	h := tv.current(t)
	if h == catalog.InvalidHandle {
		return
	}
	key := pathKey(t.Path(h))
	if tv.expanded[key] {
		delete(tv.expanded, key)
		return
	}
	parent := t.Parent(h)
	if parent == catalog.InvalidHandle || parent == t.Root() {
		return
	}
	for i, node := range tv.visible(t) {
		if node == parent {
			tv.cursor = i
			return
		}
	}
}

// selectPath expands every ancestor of the named node and puts the cursor
// on it. Reports whether the path resolved.
func (tv *treeView) selectPath(t *catalog.Tree, parts ...string) bool {
	h, ok := t.FindPath(parts...)
	if !ok {
		return false
	}
	for i := 1; i < len(parts); i++ {
		tv.expanded[pathKey(parts[:i])] = true
	}
	for i, node := range tv.visible(t) {
		if node == h {
			tv.cursor = i
			return true
		}
	}
	return false
}

func (tv *treeView) render(t *catalog.Tree, focused bool) string {
	nodes := tv.visible(t)
	if len(nodes) == 0 {
		return mutedStyle.Render("(empty catalog)")
	}
	tv.clampCursor(len(nodes))

	viewHeight := tv.height
	if viewHeight < 1 {
		viewHeight = 1
	}
	tv.adjustScroll(len(nodes), viewHeight)

	end := tv.scroll + viewHeight
	if end > len(nodes) {
		end = len(nodes)
	}

	lines := make([]string, 0, viewHeight)
	for i := tv.scroll; i < end; i++ {
		lines = append(lines, tv.renderNode(t, nodes[i], focused && i == tv.cursor))
	}
	for len(lines) < viewHeight {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (tv *treeView) renderNode(t *catalog.Tree, h catalog.Handle, selected bool) string {
	depth := len(t.Path(h)) - 1
	if depth < 0 {
		depth = 0
	}
	indent := strings.Repeat("  ", depth)

	icon, style := tv.nodeIcon(t, h)
	content := indent + icon + " " + t.Data(h)

	maxWidth := tv.width
	if maxWidth > 0 && lipgloss.Width(content) > maxWidth {
		content = truncate(content, maxWidth)
	}

	if selected {
		return cursorLineStyle.Width(maxWidth).Render(content)
	}
	// The icon keeps its color only off-cursor; the cursor bar paints the
	// whole line.
	return indent + style.Render(icon) + " " + t.Data(h)
}

func (tv *treeView) nodeIcon(t *catalog.Tree, h catalog.Handle) (string, lipgloss.Style) {
	open := tv.expanded[pathKey(t.Path(h))]
	switch t.Kind(h) {
	case catalog.KindSchema:
		if open {
			return "▾", schemaIconStyle
		}
		return "▸", schemaIconStyle
	case catalog.KindCategory:
		if open {
			return "▾", mutedStyle
		}
		return "▸", mutedStyle
	case catalog.KindTable:
		return "▦", tableIconStyle
	case catalog.KindView:
		return "◎", viewIconStyle
	case catalog.KindColumn:
		return "•", columnIconStyle
	default:
		return " ", mutedStyle
	}
}

// adjustScroll keeps the cursor inside the viewport.
func (tv *treeView) adjustScroll(total, viewHeight int) {
	if tv.cursor < tv.scroll {
		tv.scroll = tv.cursor
	}
	if tv.cursor >= tv.scroll+viewHeight {
		tv.scroll = tv.cursor - viewHeight + 1
	}
	if tv.scroll < 0 {
		tv.scroll = 0
	}
	if max := total - viewHeight; max >= 0 && tv.scroll > max {
		tv.scroll = max
	}
}

// truncate cuts a string to width cells with an ellipsis.
func truncate(s string, width int) string {
	if width <= 1 {
		return "…"
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
