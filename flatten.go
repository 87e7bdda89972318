package typegrid

import (
	"fmt"
	"slices"
)

// Class is how the flattener treats a node.
type Class int

const (
	// ClassSimple nodes have no children and emit one column.
	ClassSimple Class = iota
	// ClassObjectLevel nodes group instances of their own template. They
	// emit nothing and label their children instead.
	ClassObjectLevel
	// ClassComplex nodes emit one reference column per distinct child template.
	ClassComplex
)

func (c Class) String() string {
	switch c {
	case ClassSimple:
		return "simple"
	case ClassObjectLevel:
		return "object-level"
	case ClassComplex:
		return "complex"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Classify places n in exactly one Class.
func Classify(n *Node) Class {
	if len(n.Children) == 0 {
		return ClassSimple
	}
	for _, c := range n.Children {
		if c.Template == n.Template {
			return ClassObjectLevel
		}
	}
	return ClassComplex
}

// ChildTemplates returns the distinct templates of n's direct children in
// order of first appearance.
func ChildTemplates(n *Node) []string {
	var out []string
	for _, c := range n.Children {
		if !slices.Contains(out, c.Template) {
			out = append(out, c.Template)
		}
	}
	return out
}

// Column is one row of a Page: a field, or a typed reference to another page.
type Column struct {
	TagName        string  `json:"tag_name"`
	DataType       string  `json:"data_type"`
	Description    string  `json:"description"`
	AncestorLabels []Label `json:"ancestor_labels,omitempty"`
}

// Page is the output table for one template.
type Page struct {
	Name    string    `json:"name"`
	Columns []*Column `json:"columns"`
}

func (p *Page) add(c *Column) { p.Columns = append(p.Columns, c) }

// PageSet holds at most one Page per name, in creation order.
type PageSet struct {
	order  []*Page
	byName map[string]*Page
}

// NewPageSet returns a PageSet seeded with empty pages for the given names.
func NewPageSet(names ...string) *PageSet {
	ps := &PageSet{byName: make(map[string]*Page)}
	for _, name := range names {
		ps.Ensure(name)
	}
	return ps
}

// Ensure returns the page called name, creating it when absent. created
// reports whether a new page was made; an existing page is never modified.
func (ps *PageSet) Ensure(name string) (page *Page, created bool) {
	if p, ok := ps.byName[name]; ok {
		return p, false
	}
	p := &Page{Name: name}
	ps.byName[name] = p
	ps.order = append(ps.order, p)
	return p, true
}

// Get returns the page called name, or nil.
func (ps *PageSet) Get(name string) *Page {
	return ps.byName[name]
}

// Pages returns all pages in creation order.
func (ps *PageSet) Pages() []*Page {
	return slices.Clone(ps.order)
}

// Len returns the number of pages.
func (ps *PageSet) Len() int { return len(ps.order) }

// Flatten walks each root into pages. The page for every root's template
// must already exist.
//
// A complex node whose child templates all had pages before it was visited
// is not descended into: the first subtree seen for a template set is taken
// as that type's definition. Later subtrees with different content under the
// same templates are not reflected in the pages.
//
// Flatten appends to the nodes' AncestorLabels; flattening the same tree
// twice duplicates labels.
func Flatten(roots []*Node, pages *PageSet) error {
	for _, root := range roots {
		if err := flattenNode(root, pages); err != nil {
			return err
		}
	}
	return nil
}

func flattenNode(n *Node, pages *PageSet) error {
	switch Classify(n) {
	case ClassSimple:
		page := pages.Get(n.Template)
		if page == nil {
			return fmt.Errorf("%w: %q for field %q", ErrMissingPage, n.Template, n.Name)
		}
		page.add(&Column{
			TagName:        n.Name,
			DataType:       n.Type.String(),
			Description:    n.Description,
			AncestorLabels: slices.Clone(n.AncestorLabels),
		})

	case ClassObjectLevel:
		for _, c := range n.Children {
			c.AncestorLabels = append(c.AncestorLabels, n.AncestorLabels...)
			c.AncestorLabels = append(c.AncestorLabels, Label{Name: n.Name, Description: n.Description})
			if err := flattenNode(c, pages); err != nil {
				return err
			}
		}

	case ClassComplex:
		page := pages.Get(n.Template)
		if page == nil {
			return fmt.Errorf("%w: %q for node %q", ErrMissingPage, n.Template, n.Name)
		}
		expanded := false
		for _, tmpl := range ChildTemplates(n) {
			page.add(&Column{
				TagName:        n.Name,
				DataType:       tmpl,
				Description:    n.Description,
				AncestorLabels: slices.Clone(n.AncestorLabels),
			})
			if _, created := pages.Ensure(tmpl); created {
				expanded = true
			}
		}
		if !expanded {
			return nil
		}
		for _, c := range n.Children {
			if err := flattenNode(c, pages); err != nil {
				return err
			}
		}
	}
	return nil
}
