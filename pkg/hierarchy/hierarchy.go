// Package hierarchy assembles the objects produced by a trim run into
// a typed parent/child tree. The tree is rooted at exactly one trimmed
// face node, is at most three levels deep, and carries the per-level
// default visibility the document model persists.
package hierarchy

import (
	"fmt"
)

// Role identifies what a node represents in the trim output.
type Role int

const (
	// TrimmedFace is the root: the face produced by the trim primitive.
	TrimmedFace Role = iota
	// Extended is an engine-generated extension of a user curve.
	Extended
	// Original is a user-supplied curve, preserved for reference.
	Original
)

func (r Role) String() string {
	switch r {
	case TrimmedFace:
		return "trimmed-face"
	case Extended:
		return "extended"
	case Original:
		return "original"
	default:
		return "unknown"
	}
}

// Style is the fixed visual style persisted for Extended nodes so they
// are distinguishable when a user expands the tree.
type Style struct {
	Color     [3]float64
	LineWidth float64
}

// ExtendedStyle is the style applied to every Extended node.
var ExtendedStyle = Style{Color: [3]float64{0.8, 0.2, 0.8}, LineWidth: 2.0}

// Node is one object in the trim output tree.
type Node struct {
	Name    string
	Role    Role
	Visible bool
	Style   *Style // non-nil only for Extended nodes

	parent   *Node
	children []*Node
}

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in insertion order. The
// returned slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Depth returns the node count on the path from the root to n,
// inclusive. The root has depth 1.
func (n *Node) Depth() int {
	d := 1
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// attach links child under parent. A node may have at most one parent;
// attaching an already-parented node panics, since that would turn the
// tree into a DAG.
func attach(parent, child *Node) {
	if child.parent != nil {
		panic(fmt.Sprintf("hierarchy: node %q already has a parent", child.Name))
	}
	child.parent = parent
	parent.children = append(parent.children, child)
}

// Delete removes n from the tree. Removal cascades downward: deleting
// a non-leaf removes its entire subtree. Deleting a leaf never removes
// its ancestors. Returns the nodes removed, n first.
func Delete(n *Node) []*Node {
	if n.parent != nil {
		siblings := n.parent.children
		for i, c := range siblings {
			if c == n {
				n.parent.children = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		n.parent = nil
	}
	var removed []*Node
	var collect func(*Node)
	collect = func(m *Node) {
		removed = append(removed, m)
		for _, c := range m.children {
			collect(c)
		}
		m.children = nil
	}
	collect(n)
	return removed
}

// Walk visits n and its descendants depth-first in insertion order.
func Walk(n *Node, visit func(*Node)) {
	visit(n)
	for _, c := range n.children {
		Walk(c, visit)
	}
}

// Count returns the number of nodes in the subtree rooted at n.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node) { total++ })
	return total
}

// Entry describes one input curve's contribution to the hierarchy.
type Entry struct {
	// Name is the original curve's identity, used for deterministic
	// node naming.
	Name string
	// WasExtended selects the three-level branch
	// (face -> extended -> original) over the direct original child.
	WasExtended bool
}

// extendedSuffix is appended to an original name to derive the name of
// its generated extension, keeping runs reproducible.
const extendedSuffix = "_Extended"

// Build assembles the output tree for one trim run. faceName names the
// root; entries appear as children in input order. The root is visible
// by default, every other node hidden; Extended nodes carry
// ExtendedStyle.
func Build(faceName string, entries []Entry) *Node {
	root := &Node{
		Name:    faceName,
		Role:    TrimmedFace,
		Visible: true,
	}
	for _, e := range entries {
		orig := &Node{Name: e.Name, Role: Original, Visible: false}
		if e.WasExtended {
			style := ExtendedStyle
			ext := &Node{
				Name:    e.Name + extendedSuffix,
				Role:    Extended,
				Visible: false,
				Style:   &style,
			}
			attach(root, ext)
			attach(ext, orig)
		} else {
			attach(root, orig)
		}
	}
	return root
}
