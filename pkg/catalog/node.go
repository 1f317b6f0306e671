// Package catalog projects a database's schemas, tables, views and columns
// into a navigable tree.
//
// The tree is rebuilt wholesale whenever the catalog is refreshed or the
// name filter changes. Nodes live in an arena owned by the tree and are
// addressed by handles; handles from a previous build are stale and must
// not be used against the new tree. Callers that need to survive a rebuild
// key their state by name path (see Tree.FindPath).
package catalog

// NodeKind identifies what a tree node represents.
type NodeKind int

const (
	KindRoot NodeKind = iota
	KindSchema
	KindCategory
	KindTable
	KindView
	KindColumn
)

// String returns the lower-case kind name.
func (k NodeKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindSchema:
		return "schema"
	case KindCategory:
		return "category"
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindColumn:
		return "column"
	default:
		return "unknown"
	}
}

// Handle addresses a node within the tree that issued it.
type Handle int

// InvalidHandle marks the absence of a node, e.g. the parent of the root.
const InvalidHandle Handle = -1

// Node is one entry in the catalog tree. The arena owns every node; the
// parent handle is a lookup-only back-reference, never an ownership edge.
type Node struct {
	Name string
	Kind NodeKind

	// Bare column name and type for column nodes, whose display Name is
	// "name (type)".
	colName string
	colType string

	parent   Handle
	children []Handle
}

// ColumnName returns the bare column name for column nodes, "" otherwise.
func (n *Node) ColumnName() string { return n.colName }

// ColumnType returns the column type label for column nodes, "" otherwise.
func (n *Node) ColumnType() string { return n.colType }

// arena stores every node of one tree generation.
type arena []Node

// add appends a node under parent and returns its handle. The root is
// added with parent == InvalidHandle.
func (a *arena) add(parent Handle, n Node) Handle {
	h := Handle(len(*a))
	n.parent = parent
	*a = append(*a, n)
	if parent != InvalidHandle {
		(*a)[parent].children = append((*a)[parent].children, h)
	}
	return h
}

func (a arena) node(h Handle) *Node { return &a[h] }

func (a arena) valid(h Handle) bool { return h >= 0 && int(h) < len(a) }

// row returns the node's index within its parent's children, 0 for the root.
func (a arena) row(h Handle) int {
	n := a.node(h)
	if n.parent == InvalidHandle {
		return 0
	}
	for i, child := range a.node(n.parent).children {
		if child == h {
			return i
		}
	}
	return 0
}

func (a arena) childCount(h Handle) int { return len(a.node(h).children) }
