// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the content engine for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/collection"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/registry"
)

// EngineFactory builds a collection engine for one registry entry.
type EngineFactory func(cfg *registry.CollectionConfig) (*collection.Engine, error)

// Server wraps the MCP server with content tools.
type Server struct {
	mcp     *server.MCPServer
	reg     *registry.Registry
	factory EngineFactory
	db      index.ItemIndex
}

// New creates a new MCP server with all content tools registered.
func New(reg *registry.Registry, factory EngineFactory, db index.ItemIndex) *Server {
	s := &Server{reg: reg, factory: factory, db: db}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the configured content collections with their labels and storage directories."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("list_items",
		mcp.WithDescription("List items of a collection, newest file first."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name (e.g. sentences)")),
	), s.listItems)

	s.mcp.AddTool(mcp.NewTool("read_item",
		mcp.WithDescription("Read the raw Markdown content of an item, front matter included."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Item slug (date-prefixed filenames match by suffix)")),
	), s.readItem)

	s.mcp.AddTool(mcp.NewTool("create_item",
		mcp.WithDescription("Create a new item in a collection. The body MUST be plain "+
			"Markdown without front matter; front matter is generated from the other "+
			"arguments. Read the contract first via the get_item_contract tool or "+
			"the ansuz://item-format resource."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Item title")),
		mcp.WithString("slug", mcp.Description("Optional slug override; derived from the title when empty")),
		mcp.WithString("body", mcp.Description("Optional Markdown body")),
		mcp.WithString("fields", mcp.Description(`Optional extra front-matter fields as a JSON object, e.g. {"url_link":"https://..."}`)),
	), s.createItem)

	s.mcp.AddTool(mcp.NewTool("search_items",
		mcp.WithDescription("Full-text search through item titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("collection", mcp.Description("Optional collection name to scope the search")),
	), s.searchItems)

	s.mcp.AddTool(mcp.NewTool("get_item_contract",
		mcp.WithDescription("Returns the canonical item format contract. "+
			"Call this before creating items to ensure correct structure."),
	), s.getItemContract)

	// Resource: item format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://item-format", "Item Format Contract",
			mcp.WithResourceDescription("Canonical front-matter item format that all collection items follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readItemFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) engine(name string) (*collection.Engine, error) {
	cfg := s.reg.Get(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown collection: %s", name)
	}
	return s.factory(cfg)
}

func (s *Server) listCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	type entry struct {
		Name    string `json:"name"`
		Label   string `json:"label"`
		Tagline string `json:"tagline,omitempty"`
		Dir     string `json:"dir"`
	}
	var out []entry
	for _, name := range s.reg.Names() {
		cfg := s.reg.Get(name)
		out = append(out, entry{Name: name, Label: cfg.Label, Tagline: cfg.Tagline, Dir: cfg.DirName})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	eng, err := s.engine(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := eng.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type entry struct {
		Slug  string `json:"slug"`
		Title string `json:"title"`
		Date  string `json:"date,omitempty"`
	}
	out := make([]entry, 0, len(items))
	for _, it := range items {
		out = append(out, entry{Slug: it.Slug, Title: it.Title, Date: it.Date})
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	eng, err := s.engine(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rel, err := eng.Resolve(slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s", name, slug)), nil
	}
	data, err := eng.Store().Read(rel)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slugOverride := req.GetString("slug", "")
	body := req.GetString("body", "")

	extra := map[string]string{}
	if raw := req.GetString("fields", ""); raw != "" {
		if jsonErr := json.Unmarshal([]byte(raw), &extra); jsonErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fields must be a JSON object of strings: %v", jsonErr)), nil
		}
	}

	eng, err := s.engine(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := eng.Create(title, slugOverride, extra, body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", item.Path)), nil
}

func (s *Server) searchItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope := req.GetString("collection", "")
	if scope != "" && s.reg.Get(scope) == nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown collection: %s", scope)), nil
	}
	results, err := s.db.Search(query, scope, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getItemContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString(ItemFormatContract)
	b.WriteString("\n## Configured collections\n\n")
	for _, name := range s.reg.Names() {
		cfg := s.reg.Get(name)
		fmt.Fprintf(&b, "- `%s` (dir `%s`)", name, cfg.DirName)
		if extras := cfg.ExtraFieldNames(); len(extras) > 0 {
			fmt.Fprintf(&b, " extra fields: %s", strings.Join(extras, ", "))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readItemFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://item-format",
			MIMEType: "text/markdown",
			Text:     ItemFormatContract,
		},
	}, nil
}
