package mcptool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/mnemo/internal/index"
	"github.com/flemzord/mnemo/internal/record"
	"github.com/flemzord/mnemo/internal/suggest"
)

func (s *Server) handleSaveMemory(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: content"), nil
	}

	typeStr := req.GetString("type", "")
	mt := record.MemoryType(typeStr)
	if typeStr != "" && !record.ValidMemoryType(mt) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid type %q (valid: note, project, preference, pattern, knowledge)", typeStr)), nil
	}

	id := s.eng.SaveMemory(record.Memory{
		Type:           mt,
		Title:          req.GetString("title", ""),
		Content:        content,
		Tags:           req.GetStringSlice("tags", nil),
		RelevanceScore: req.GetFloat("relevance", 0),
	})
	if id == "" {
		return mcp.NewToolResultError("memory rejected: title and content are both empty"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Memory saved (id: %s)", id)), nil
}

func (s *Server) handleSearchMemories(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := index.Query{
		Text:     req.GetString("query", ""),
		Limit:    req.GetInt("limit", 0),
		SortBy:   index.Sort(req.GetString("sort_by", "")),
		Semantic: req.GetBool("semantic", false),
	}
	q.Filters.Type = record.MemoryType(req.GetString("type", ""))
	q.Filters.Tags = req.GetStringSlice("tags", nil)

	results := s.eng.SearchMemories(q)
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching memories."), nil
	}

	var sb strings.Builder
	for _, m := range results {
		created := time.UnixMilli(m.CreatedAt).UTC().Format("2006-01-02 15:04")
		fmt.Fprintf(&sb, "[%s] %s (id: %s, created: %s)\n", m.Type, m.Title, m.ID, created)
		if m.Content != "" {
			fmt.Fprintf(&sb, "  %s\n", m.Content)
		}
		if len(m.Tags) > 0 {
			fmt.Fprintf(&sb, "  tags: %s\n", strings.Join(m.Tags, ", "))
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleRecordAction(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeStr, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: type"), nil
	}
	at := record.ActionType(typeStr)
	if !record.ValidActionType(at) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid type %q (valid: screenshot, advice_request, app_switch, file_access, query)", typeStr)), nil
	}

	s.eng.RecordAction(record.ActionEntry{
		Type:            at,
		ApplicationName: req.GetString("application", ""),
		WindowTitle:     req.GetString("window_title", ""),
		Context:         req.GetString("context", ""),
	})
	return mcp.NewToolResultText("Action recorded."), nil
}

func (s *Server) handleGetSuggestions(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := time.Now()
	env := suggest.Environment{
		Hour:           now.Hour(),
		Weekday:        now.Weekday(),
		CurrentApp:     req.GetString("current_app", ""),
		CognitiveState: suggest.CognitiveState(req.GetString("cognitive_state", "")),
		Workload:       suggest.Workload(req.GetString("workload", "")),
	}

	suggestions := s.eng.GetSuggestions(env, req.GetInt("limit", 5))
	if len(suggestions) == 0 {
		return mcp.NewToolResultText("No suggestions right now."), nil
	}

	var sb strings.Builder
	for _, sg := range suggestions {
		fmt.Fprintf(&sb, "[%s/%s] %s\n  %s\n", sg.Priority, sg.Type, sg.Title, sg.Description)
		for _, item := range sg.ActionItems {
			fmt.Fprintf(&sb, "  - %s\n", item)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleFindDuplicates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pairs := s.eng.FindDuplicateMemories()
	if len(pairs) == 0 {
		return mcp.NewToolResultText("No duplicate memories found."), nil
	}

	var sb strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&sb, "%s <-> %s (similarity %.2f, suggested: %s)\n", p.AID, p.BID, p.Similarity, p.SuggestedAction)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleOrganizeMemories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := s.eng.OrganizeMemories()
	return mcp.NewToolResultText(fmt.Sprintf(
		"Organization complete: %d merged, %d archived, %d clustered.",
		report.Merged, report.Archived, report.Clustered)), nil
}

func (s *Server) handleListPatterns(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patterns := s.eng.Patterns()
	if len(patterns) == 0 {
		return mcp.NewToolResultText("No behavior patterns detected yet."), nil
	}

	var sb strings.Builder
	for _, p := range patterns {
		fmt.Fprintf(&sb, "%s (confidence %.2f, seen %dx)\n", p.Pattern, p.Confidence, p.Frequency)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleMemoryStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.eng.GetMemoryStats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Memories: %d (%d archived)\n", stats.TotalMemories, stats.ArchivedMemories)
	if len(stats.ByType) > 0 {
		parts := make([]string, 0, len(stats.ByType))
		for _, t := range []record.MemoryType{record.TypeNote, record.TypeProject, record.TypePreference, record.TypePattern, record.TypeKnowledge} {
			if n := stats.ByType[t]; n > 0 {
				parts = append(parts, fmt.Sprintf("%d %s", n, t))
			}
		}
		fmt.Fprintf(&sb, "By type:  %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintf(&sb, "Actions:  %d\n", stats.TotalActions)
	fmt.Fprintf(&sb, "Patterns: %d\n", stats.TotalPatterns)
	fmt.Fprintf(&sb, "Index:    %d words, %d tags\n", stats.IndexedWords, stats.IndexedTags)
	fmt.Fprintf(&sb, "Quality:  %.2f\n", stats.QualityScore)
	if len(stats.TopTags) > 0 {
		tags := make([]string, 0, len(stats.TopTags))
		for _, tc := range stats.TopTags {
			tags = append(tags, fmt.Sprintf("%s (%d)", tc.Tag, tc.Count))
		}
		fmt.Fprintf(&sb, "Top tags: %s\n", strings.Join(tags, ", "))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
