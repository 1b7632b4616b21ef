package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/chefmate/internal/memory"
	"github.com/kalambet/chefmate/internal/profile"
)

const (
	defaultRecallLimit = 5
	maxRecallLimit     = 100
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Ledger   memory.Ledger
	Profiles *profile.Manager
}

// NewMCPServer creates an MCP server exposing the memory ledger and profile
// engine as tools.
func NewMCPServer(deps MCPDeps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"chefmate",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("chefmate remembers cooking preferences per user: recall memories, store new ones, and check onboarding progress."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("recall_memories",
			mcp.WithDescription("Return a user's memories. With a query, returns the most similar memories; without one, returns all of them in the order they were stored."),
			mcp.WithString("user_id", mcp.Description("User identifier"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Optional similarity query")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results for a query (default 5)")),
		),
		mcpRecallMemories(deps),
	)

	s.AddTool(
		mcp.NewTool("add_memory",
			mcp.WithDescription("Store a free-text memory for a user. Use 'PROFILE.<field>: <value>' to record a profile field."),
			mcp.WithString("user_id", mcp.Description("User identifier"), mcp.Required()),
			mcp.WithString("text", mcp.Description("The memory text"), mcp.Required()),
		),
		mcpAddMemory(deps),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Return the structured, inferred and merged cooking profile of a user as JSON."),
			mcp.WithString("user_id", mcp.Description("User identifier"), mcp.Required()),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("next_question",
			mcp.WithDescription("Return the next onboarding question for a user, or a summary when the profile is complete."),
			mcp.WithString("user_id", mcp.Description("User identifier"), mcp.Required()),
		),
		mcpNextQuestion(deps),
	)

	return s
}

type memoryResult struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Memory    string `json:"memory"`
	CreatedAt string `json:"created_at"`
}

func mcpRecallMemories(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil || userID == "" {
			return mcpError("user_id is required"), nil
		}
		query := req.GetString("query", "")

		var entries []memory.Entry
		if query == "" {
			entries, err = deps.Ledger.ListAll(ctx, userID)
		} else {
			limit := req.GetInt("limit", defaultRecallLimit)
			if limit <= 0 {
				limit = defaultRecallLimit
			}
			if limit > maxRecallLimit {
				limit = maxRecallLimit
			}
			entries, err = deps.Ledger.SearchSimilar(ctx, userID, query, limit)
		}
		if err != nil {
			return mcpError(fmt.Sprintf("recall failed: %v", err)), nil
		}
		if len(entries) == 0 {
			return mcpText("[]"), nil
		}

		results := make([]memoryResult, len(entries))
		for i, e := range entries {
			results[i] = memoryResult{
				ID:        e.ID,
				Kind:      e.Kind,
				Memory:    e.Text,
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			}
		}
		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddMemory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil || userID == "" {
			return mcpError("user_id is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		id, err := deps.Ledger.Append(ctx, userID, text)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to store memory: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored memory %s", id)), nil
	}
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil || userID == "" {
			return mcpError("user_id is required"), nil
		}

		s, err := deps.Profiles.Snapshot(ctx, userID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get profile: %v", err)), nil
		}
		b, err := json.Marshal(NewProfileView(userID, s, deps.Profiles.Planner()))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpNextQuestion(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil || userID == "" {
			return mcpError("user_id is required"), nil
		}

		s, err := deps.Profiles.Snapshot(ctx, userID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get profile: %v", err)), nil
		}
		planner := deps.Profiles.Planner()
		if q := planner.Question(s.Merged); q != "" {
			return mcpText(q), nil
		}
		return mcpText("Profile complete: " + planner.Summary(s.Merged)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
