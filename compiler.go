package typegrid

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jward/typegrid/internal/ctxlog"
	"github.com/jward/typegrid/internal/runtime"
	"github.com/jward/typegrid/internal/store"
)

// schemaVersion is recorded in the metadata table of every database the
// Compiler opens. A database written by another version is refused.
const schemaVersion = "1"

// Compiler runs the build and flatten passes over a workbook and,
// when configured, persists the result and runs hook scripts over it.
type Compiler struct {
	subProcesses []string
	basicTypes   []string
	layout       Layout
	logger       *slog.Logger

	dbPath  string
	hooks   []hook
	hooksFS fs.FS

	store   *store.Store
	runtime *runtime.Runtime
}

type hook struct {
	name   string
	script string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithSubProcesses sets the sub-process vocabulary. Hierarchy and name
// cells matching one of these switch the sub-process used for placeholder
// substitution.
func WithSubProcesses(names ...string) Option {
	return func(c *Compiler) {
		c.subProcesses = names
	}
}

// WithBasicTypes replaces the default basic type names.
func WithBasicTypes(names ...string) Option {
	return func(c *Compiler) {
		c.basicTypes = names
	}
}

// WithLayout overrides where grids are read.
func WithLayout(l Layout) Option {
	return func(c *Compiler) {
		c.layout = l
	}
}

// WithLogger sets the logger Compile attaches to its context.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithDatabase persists every compilation to the SQLite database at path.
func WithDatabase(path string) Option {
	return func(c *Compiler) {
		c.dbPath = path
	}
}

// WithHook adds a Risor script run after each compilation. Hooks run in
// the order added. Without WithDatabase, hooks see a private in-memory
// database.
func WithHook(name, script string) Option {
	return func(c *Compiler) {
		c.hooks = append(c.hooks, hook{name: name, script: script})
	}
}

// WithHooksFS loads hook scripts and their imports from fsys instead of
// from disk.
func WithHooksFS(fsys fs.FS) Option {
	return func(c *Compiler) {
		c.hooksFS = fsys
	}
}

// New creates a Compiler. A store is opened only when a database or hooks
// are configured.
func New(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		basicTypes: DefaultBasicTypes(),
		layout:     DefaultLayout(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.layout.Validate(); err != nil {
		return nil, fmt.Errorf("typegrid: %w", err)
	}

	dbPath := c.dbPath
	if dbPath == "" && len(c.hooks) > 0 {
		dbPath = store.MemoryPath
	}
	if dbPath == "" {
		return c, nil
	}

	s, err := OpenStore(dbPath)
	if err != nil {
		return nil, err
	}
	c.store = s

	var rtOpts []runtime.RuntimeOption
	if c.hooksFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(c.hooksFS))
	}
	c.runtime = runtime.NewRuntime(s, "", rtOpts...)
	return c, nil
}

// OpenStore opens and migrates the database at path, refusing one written
// with a different schema version.
func OpenStore(path string) (*Store, error) {
	s, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("typegrid: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("typegrid: migrate: %w", err)
	}
	v, err := s.GetMetadata("schema_version")
	if err == nil && v == "" {
		err = s.SetMetadata("schema_version", schemaVersion)
	} else if err == nil && v != schemaVersion {
		err = fmt.Errorf("database schema version %s, want %s", v, schemaVersion)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("typegrid: %s: %w", path, err)
	}
	return s, nil
}

// Close releases the Compiler's database resources.
func (c *Compiler) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Store returns the underlying Store, or nil when nothing is persisted.
func (c *Compiler) Store() *Store {
	return c.store
}

// Result is the output of one compilation.
type Result struct {
	Document *Document
	Pages    *PageSet
	// CompilationID is 0 when the Compiler has no store.
	CompilationID int64
	Diagnostics   []*Diagnostic
}

// Compile builds the tree rooted at rootSheet, flattens it into pages and,
// when a store is configured, saves both and runs the hooks.
func (c *Compiler) Compile(ctx context.Context, wb Workbook, rootSheet string) (*Result, error) {
	if c.logger != nil {
		ctx = ctxlog.WithLogger(ctx, c.logger)
	}
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	doc, err := NewBuilder(wb, c.subProcesses, c.basicTypes, c.layout).Build(ctx, rootSheet)
	if err != nil {
		return nil, fmt.Errorf("typegrid: compile %q: %w", rootSheet, err)
	}

	pages := NewPageSet(rootSheet)
	if err := Flatten(doc.Nodes, pages); err != nil {
		return nil, fmt.Errorf("typegrid: compile %q: %w", rootSheet, err)
	}
	res := &Result{Document: doc, Pages: pages}
	logger.Info("compiled", "sheet", rootSheet, "nodes", doc.CountNodes(), "pages", pages.Len(),
		"elapsed", time.Since(start))

	if c.store == nil {
		return res, nil
	}

	source := ""
	if p, ok := wb.(interface{ Path() string }); ok {
		source = p.Path()
	}
	comp := &Compilation{
		RootSheet:   rootSheet,
		Source:      source,
		Description: doc.Description,
		Version:     doc.Version,
		CompiledAt:  time.Now().UTC(),
	}
	res.CompilationID, err = c.store.SaveCompilation(comp, toTreeNodes(doc.Nodes), toPageRecords(pages.Pages()))
	if err != nil {
		return nil, fmt.Errorf("typegrid: compile %q: %w", rootSheet, err)
	}
	logger.Debug("saved compilation", "id", res.CompilationID)

	for _, h := range c.hooks {
		if err := c.runtime.RunHook(ctx, h.name, h.script, res.CompilationID); err != nil {
			return nil, fmt.Errorf("typegrid: compile %q: hook %s: %w", rootSheet, h.name, err)
		}
	}
	if len(c.hooks) > 0 {
		if res.Diagnostics, err = c.store.DiagnosticsByCompilation(res.CompilationID); err != nil {
			return nil, fmt.Errorf("typegrid: compile %q: %w", rootSheet, err)
		}
		for _, d := range res.Diagnostics {
			logger.Warn(d.Message, "hook", d.Hook)
		}
	}
	return res, nil
}

func toTreeNodes(nodes []*Node) []*TreeNode {
	out := make([]*TreeNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &TreeNode{
			Name:           n.Name,
			Kind:           n.Type.Kind.String(),
			TypeName:       n.Type.Name,
			Template:       n.Template,
			Description:    n.Description,
			AncestorLabels: n.AncestorLabels,
			Children:       toTreeNodes(n.Children),
		})
	}
	return out
}

func toPageRecords(pages []*Page) []*PageRecord {
	out := make([]*PageRecord, 0, len(pages))
	for _, p := range pages {
		rec := &PageRecord{Name: p.Name}
		for _, col := range p.Columns {
			rec.Columns = append(rec.Columns, &ColumnRecord{
				TagName:        col.TagName,
				DataType:       col.DataType,
				Description:    col.Description,
				AncestorLabels: col.AncestorLabels,
			})
		}
		out = append(out, rec)
	}
	return out
}

// LoadDocument rebuilds the document of a stored compilation.
func LoadDocument(s *Store, compilationID int64) (*Document, error) {
	comp, err := s.CompilationByID(compilationID)
	if err != nil {
		return nil, fmt.Errorf("typegrid: load document: %w", err)
	}
	if comp == nil {
		return nil, fmt.Errorf("typegrid: load document: compilation %d not found", compilationID)
	}
	roots, err := s.LoadTree(compilationID)
	if err != nil {
		return nil, fmt.Errorf("typegrid: load document: %w", err)
	}
	nodes, err := fromTreeNodes(roots)
	if err != nil {
		return nil, fmt.Errorf("typegrid: load document: %w", err)
	}
	return &Document{
		Sheet:       comp.RootSheet,
		Description: comp.Description,
		Version:     comp.Version,
		Nodes:       nodes,
	}, nil
}

func fromTreeNodes(stored []*TreeNode) ([]*Node, error) {
	out := make([]*Node, 0, len(stored))
	for _, t := range stored {
		kind, err := ParseTypeKind(t.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", t.ID, err)
		}
		children, err := fromTreeNodes(t.Children)
		if err != nil {
			return nil, err
		}
		n := &Node{
			Name:           t.Name,
			Type:           NodeType{Kind: kind},
			Template:       t.Template,
			Description:    t.Description,
			AncestorLabels: t.AncestorLabels,
		}
		if kind != Structural {
			n.Type.Name = t.TypeName
		}
		if len(children) > 0 {
			n.Children = children
		}
		out = append(out, n)
	}
	return out, nil
}
