package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jaakkos/orchestrator/internal/appwire"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/inbox"
)

func registerTools(s *server.MCPServer, app *appwire.App) {
	registerSendMessage(s, app)
	registerReadInbox(s, app)
	registerCreateTask(s, app)
	registerClaimTask(s, app)
	registerSubmitPR(s, app)
	registerReviewPR(s, app)
}

func registerSendMessage(s *server.MCPServer, app *appwire.App) {
	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Send a message to one or more agents, or to \"all\" for a broadcast."),
			mcp.WithString("from", mcp.Required(), mcp.Description("Sender agent id")),
			mcp.WithString("to", mcp.Required(), mcp.Description("Recipient agent id, or \"all\" to broadcast")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Message body")),
			mcp.WithString("priority", mcp.Description("low|normal|high|urgent|critical (default normal)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			from, _ := args["from"].(string)
			to, _ := args["to"].(string)
			content, _ := args["content"].(string)
			priority, _ := args["priority"].(string)
			if from == "" || to == "" || content == "" {
				return nil, fmt.Errorf("from, to, and content are required")
			}

			msg := domain.Message{
				Sender:     from,
				Recipients: []string{to},
				Priority:   domain.ParsePriority(priority),
				Kind:       domain.KindDirect,
				Body:       content,
				CreatedAt:  time.Now(),
			}
			if to == "all" {
				msg.Kind = domain.KindBroadcast
			}
			sent, err := app.Dispatch.Enqueue(msg)
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(fmt.Sprintf("queued message %s to %s", sent.ID, to)), nil
		},
	)
}

func registerReadInbox(s *server.MCPServer, app *appwire.App) {
	s.AddTool(
		mcp.NewTool("read_inbox",
			mcp.WithDescription("Read an agent's inbox entries."),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Agent id whose inbox to read")),
			mcp.WithBoolean("unread_only", mcp.Description("Only return unread entries (default false)")),
			mcp.WithNumber("limit", mcp.Description("Limit to the most recent N entries (default 10)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			agent, _ := args["agent"].(string)
			if agent == "" {
				return nil, fmt.Errorf("agent is required")
			}
			unreadOnly, _ := args["unread_only"].(bool)
			limit := 10
			if v, ok := args["limit"].(float64); ok && v > 0 {
				limit = int(v)
			}
			entries, err := app.Inbox.List(agent, inbox.Filter{UnreadOnly: unreadOnly, Limit: limit})
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				return mcp.NewToolResultText("no entries"), nil
			}
			out, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(string(out)), nil
		},
	)
}

func registerCreateTask(s *server.MCPServer, app *appwire.App) {
	s.AddTool(
		mcp.NewTool("create_task",
			mcp.WithDescription("Create a task or, if claimable_by is set, a claimable Contract."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Task description")),
			mcp.WithString("priority", mcp.Description("low|normal|high|critical (default normal)")),
			mcp.WithString("depends_on", mcp.Description("Comma-separated dependency task ids")),
			mcp.WithString("claimable_by", mcp.Description("Comma-separated agent ids allowed to claim this as a Contract; omit for a plain task")),
			mcp.WithString("required_capabilities", mcp.Description("Comma-separated capabilities a claiming agent should have, for skill-match scoring")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			title, _ := args["title"].(string)
			description, _ := args["description"].(string)
			if title == "" {
				return nil, fmt.Errorf("title is required")
			}
			priority := domain.TaskPriority(stringArg(args, "priority"))
			if priority == "" {
				priority = domain.TaskPriorityNormal
			}
			deps := stringSliceArg(args, "depends_on")
			claimableBy := stringSliceArg(args, "claimable_by")
			requiredCaps := stringSliceArg(args, "required_capabilities")

			var (
				t   *domain.Task
				err error
			)
			if len(claimableBy) > 0 {
				t, err = app.Engine.NewContract(title, description, priority, deps, claimableBy, requiredCaps, time.Time{})
			} else {
				t, err = app.Engine.CreateTask(title, description, priority, deps)
			}
			if err != nil {
				return nil, err
			}
			out, err := json.MarshalIndent(t, "", "  ")
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(string(out)), nil
		},
	)
}

func registerClaimTask(s *server.MCPServer, app *appwire.App) {
	s.AddTool(
		mcp.NewTool("claim_task",
			mcp.WithDescription("Claim a task for an agent."),
			mcp.WithString("task_id", mcp.Required(), mcp.Description("Task id to claim")),
			mcp.WithString("agent", mcp.Required(), mcp.Description("Claiming agent id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			taskID, _ := args["task_id"].(string)
			agent, _ := args["agent"].(string)
			if taskID == "" || agent == "" {
				return nil, fmt.Errorf("task_id and agent are required")
			}
			t, err := app.Engine.Claim(taskID, agent)
			if err != nil {
				return nil, err
			}
			out, err := json.MarshalIndent(t, "", "  ")
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(string(out)), nil
		},
	)
}

func registerSubmitPR(s *server.MCPServer, app *appwire.App) {
	s.AddTool(
		mcp.NewTool("submit_pr",
			mcp.WithDescription("Submit a pull request for review, with an optional explicit reviewer."),
			mcp.WithString("author", mcp.Required(), mcp.Description("PR author agent id")),
			mcp.WithString("title", mcp.Required(), mcp.Description("PR title")),
			mcp.WithString("description", mcp.Description("PR description")),
			mcp.WithString("priority", mcp.Description("low|normal|high|critical (default normal)")),
			mcp.WithString("reviewer", mcp.Description("Explicit reviewer agent id (default: auto-assigned by load)")),
			mcp.WithString("changes", mcp.Required(), mcp.Description("JSON array of CodeChange objects: {file_path, change_type, new_content}")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			author, _ := args["author"].(string)
			title, _ := args["title"].(string)
			description, _ := args["description"].(string)
			reviewer, _ := args["reviewer"].(string)
			if author == "" || title == "" {
				return nil, fmt.Errorf("author and title are required")
			}
			priority := domain.TaskPriority(stringArg(args, "priority"))
			if priority == "" {
				priority = domain.TaskPriorityNormal
			}
			changes, err := changesArg(args["changes"])
			if err != nil {
				return nil, err
			}
			pr, err := app.PR.Create(author, title, description, changes, priority, reviewer)
			if err != nil {
				return nil, err
			}
			out, err := json.MarshalIndent(pr, "", "  ")
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(string(out)), nil
		},
	)
}

func registerReviewPR(s *server.MCPServer, app *appwire.App) {
	s.AddTool(
		mcp.NewTool("review_pr",
			mcp.WithDescription("Run the full review pass on a pull request: duplication, vibe check, design compliance, error handling, documentation."),
			mcp.WithString("pr_id", mcp.Required(), mcp.Description("PR id")),
			mcp.WithString("reviewer", mcp.Required(), mcp.Description("Reviewing agent id; must match the assigned reviewer")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := req.GetArguments()
			prID, _ := args["pr_id"].(string)
			reviewer, _ := args["reviewer"].(string)
			if prID == "" || reviewer == "" {
				return nil, fmt.Errorf("pr_id and reviewer are required")
			}
			result, err := app.PR.Review(prID, reviewer)
			if err != nil {
				return nil, err
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultText(string(out)), nil
		},
	)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, _ := args[key].(string)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func changesArg(raw any) ([]domain.CodeChange, error) {
	s, _ := raw.(string)
	if s == "" {
		return nil, nil
	}
	var changes []domain.CodeChange
	if err := json.Unmarshal([]byte(s), &changes); err != nil {
		return nil, fmt.Errorf("changes: %w", err)
	}
	return changes, nil
}
