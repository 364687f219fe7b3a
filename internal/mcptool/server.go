// Package mcptool exposes the memory engine over the Model Context
// Protocol so editor agents can save, search, and organize memories.
package mcptool

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/mnemo/internal/engine"
)

// Server wraps an MCP stdio server around the engine.
type Server struct {
	eng *engine.Engine
	log *slog.Logger
	srv *server.MCPServer
}

// NewServer builds the MCP server and registers every tool.
func NewServer(eng *engine.Engine, log *slog.Logger, version string) *Server {
	s := &Server{
		eng: eng,
		log: log.With("component", "mcp"),
		srv: server.NewMCPServer("mnemo", version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.srv.AddTool(mcp.NewTool("save_memory",
		mcp.WithDescription("Store a new memory. Returns the memory's id."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Body of the memory")),
		mcp.WithString("title", mcp.Description("Short title")),
		mcp.WithString("type", mcp.Description("One of: note, project, preference, pattern, knowledge")),
		mcp.WithArray("tags", mcp.Description("Tags to attach"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithNumber("relevance", mcp.Description("Initial relevance score in [0,1]")),
	), s.handleSaveMemory)

	s.srv.AddTool(mcp.NewTool("search_memories",
		mcp.WithDescription("Search stored memories by text, with optional filters."),
		mcp.WithString("query", mcp.Description("Search text; empty matches everything")),
		mcp.WithNumber("limit", mcp.Description("Maximum results")),
		mcp.WithString("type", mcp.Description("Filter by memory type")),
		mcp.WithArray("tags", mcp.Description("Filter by tags (any match)"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("sort_by", mcp.Description("relevance (default), date, or access")),
		mcp.WithBoolean("semantic", mcp.Description("Use TF-IDF scoring instead of lexical")),
	), s.handleSearchMemories)

	s.srv.AddTool(mcp.NewTool("record_action",
		mcp.WithDescription("Record a user action for behavior pattern detection."),
		mcp.WithString("type", mcp.Required(), mcp.Description("One of: screenshot, advice_request, app_switch, file_access, query")),
		mcp.WithString("application", mcp.Description("Application in focus")),
		mcp.WithString("window_title", mcp.Description("Window title")),
		mcp.WithString("context", mcp.Description("Free-form context")),
	), s.handleRecordAction)

	s.srv.AddTool(mcp.NewTool("get_suggestions",
		mcp.WithDescription("Generate ranked proactive suggestions for the current context."),
		mcp.WithString("current_app", mcp.Description("Application currently in focus")),
		mcp.WithString("cognitive_state", mcp.Description("focused, distracted, creative, analytical, or tired")),
		mcp.WithString("workload", mcp.Description("light, medium, or heavy")),
		mcp.WithNumber("limit", mcp.Description("Maximum suggestions")),
	), s.handleGetSuggestions)

	s.srv.AddTool(mcp.NewTool("find_duplicates",
		mcp.WithDescription("List pairs of likely-duplicate memories with a suggested action."),
	), s.handleFindDuplicates)

	s.srv.AddTool(mcp.NewTool("organize_memories",
		mcp.WithDescription("Run one bounded auto-organization pass (merge, archive, cluster)."),
	), s.handleOrganizeMemories)

	s.srv.AddTool(mcp.NewTool("list_patterns",
		mcp.WithDescription("List detected behavior patterns, highest confidence first."),
	), s.handleListPatterns)

	s.srv.AddTool(mcp.NewTool("memory_stats",
		mcp.WithDescription("Summarize the memory store: counts, top tags, quality score."),
	), s.handleMemoryStats)
}

// Serve runs the server over stdio until the client disconnects.
func (s *Server) Serve() error {
	s.log.Info("mcp server listening on stdio")
	return server.ServeStdio(s.srv)
}
