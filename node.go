package typegrid

import (
	"encoding/json"
	"fmt"
)

// TypeKind discriminates the NodeType variant.
type TypeKind int

const (
	// Structural nodes only establish hierarchy; no concrete type is assigned.
	Structural TypeKind = iota
	// Leaf nodes carry a basic type name.
	Leaf
	// Reference nodes were resolved to another grid; Name is that grid (template).
	Reference
)

func (k TypeKind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Leaf:
		return "leaf"
	case Reference:
		return "reference"
	default:
		return fmt.Sprintf("TypeKind(%d)", int(k))
	}
}

// NodeType is a tagged variant: Structural, Leaf(basic type) or
// Reference(template name).
type NodeType struct {
	Kind TypeKind
	Name string
}

// LeafType returns a Leaf variant for the given basic type name.
func LeafType(basic string) NodeType { return NodeType{Kind: Leaf, Name: basic} }

// ReferenceType returns a Reference variant pointing at the given grid.
func ReferenceType(template string) NodeType { return NodeType{Kind: Reference, Name: template} }

// StructuralType returns the Structural variant.
func StructuralType() NodeType { return NodeType{Kind: Structural} }

// String returns the basic type or template name; empty for Structural.
func (t NodeType) String() string {
	if t.Kind == Structural {
		return ""
	}
	return t.Name
}

func (t NodeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		Name string `json:"name,omitempty"`
	}{Kind: t.Kind.String(), Name: t.Name})
}

// ParseTypeKind is the inverse of TypeKind.String.
func ParseTypeKind(s string) (TypeKind, error) {
	switch s {
	case "structural":
		return Structural, nil
	case "leaf":
		return Leaf, nil
	case "reference":
		return Reference, nil
	}
	return Structural, fmt.Errorf("unknown type kind %q", s)
}

// Node is a vertex of the compiled configuration tree. Each node has exactly
// one parent; the tree is never shared between documents.
type Node struct {
	Name        string   `json:"name"`
	Type        NodeType `json:"type"`
	Template    string   `json:"template"`
	Description string   `json:"description,omitempty"`
	Children    []*Node  `json:"children,omitempty"`

	// AncestorLabels is appended to by Flatten only.
	AncestorLabels []Label `json:"ancestor_labels,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

func (n *Node) addChild(c *Node) { n.Children = append(n.Children, c) }

// Walk visits n and its descendants depth-first in child order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node, int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// LabelStrings flattens labels into name, description, name, description...
// which is how pages present the object level of a column.
func LabelStrings(labels []Label) []string {
	out := make([]string, 0, len(labels)*2)
	for _, l := range labels {
		out = append(out, l.Name, l.Description)
	}
	return out
}

// Document is the build result for one root grid.
type Document struct {
	Sheet       string  `json:"sheet"`
	Description string  `json:"description"`
	Version     string  `json:"version"`
	Nodes       []*Node `json:"nodes"`
}

// CountNodes returns the number of nodes in the document's tree.
func (d *Document) CountNodes() int {
	count := 0
	for _, root := range d.Nodes {
		root.Walk(func(*Node, int) bool {
			count++
			return true
		})
	}
	return count
}
