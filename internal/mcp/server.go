package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ldi/ganttform/internal/form"
	"github.com/ldi/ganttform/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName    = "Ganttform"
	ServerVersion = "0.1.0"

	defaultHistoryLimit = 20
)

// History is the read side of the submission store.
type History interface {
	ListSubmissions(ctx context.Context, limit int) ([]*models.Submission, error)
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
}

// NewServer creates a new MCP server over a form session. History tools are
// only registered when history is not nil.
func NewServer(session *form.Session, history History) *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion)

	// Task list
	s.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Append a task to the list. All fields are required and the numeric ones must be integers."),
		mcp.WithString("name", mcp.Description("Task name"), mcp.Required()),
		mcp.WithNumber("duration", mcp.Description("Duration in days"), mcp.Required()),
		mcp.WithNumber("start_event", mcp.Description("Start event number"), mcp.Required()),
		mcp.WithNumber("end_event", mcp.Description("End event number"), mcp.Required()),
	), addTaskHandler(session))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List the tasks added so far, in insertion order."),
	), listTasksHandler(session))

	// Scheduling
	s.AddTool(mcp.NewTool("submit_tasks",
		mcp.WithDescription("Send the whole task list to the scheduling service and read back the critical path."),
	), submitTasksHandler(session))

	s.AddTool(mcp.NewTool("get_critical_path",
		mcp.WithDescription("Get the most recent critical path and Gantt chart URL."),
	), getCriticalPathHandler(session))

	if history != nil {
		s.AddTool(mcp.NewTool("list_submissions",
			mcp.WithDescription("List recorded submissions, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of submissions (default 20)")),
		), listSubmissionsHandler(history))

		s.AddTool(mcp.NewTool("get_submission",
			mcp.WithDescription("Get a recorded submission by id."),
			mcp.WithString("submission_id", mcp.Description("Submission ID"), mcp.Required()),
		), getSubmissionHandler(history))
	}

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func addTaskHandler(session *form.Session) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]any)

		d := models.TaskDraft{
			Name:       draftField(args, "name"),
			Duration:   draftField(args, "duration"),
			StartEvent: draftField(args, "start_event"),
			EndEvent:   draftField(args, "end_event"),
		}

		task, err := session.AppendDraft(d)
		if err != nil {
			// There is nobody to acknowledge the notice here.
			session.DismissNotice()
			return mcp.NewToolResultError(fmt.Sprintf("%s (%v)", form.InvalidFieldsNotice, err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Task added: %s", form.FormatTask(task))), nil
	}
}

func listTasksHandler(session *form.Session) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]any{"tasks": session.Tasks()})
	}
}

func submitTasksHandler(session *form.Session) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := session.SubmitAll(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(resultPayload(session))
	}
}

func getCriticalPathHandler(session *form.Session) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(resultPayload(session))
	}
}

func listSubmissionsHandler(history History) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := mcp.ParseInt(request, "limit", defaultHistoryLimit)

		subs, err := history.ListSubmissions(ctx, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(map[string]any{"submissions": subs})
	}
}

func getSubmissionHandler(history History) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "submission_id", "")

		sub, err := history.GetSubmission(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if sub == nil {
			return mcp.NewToolResultError(fmt.Sprintf("Submission '%s' not found", id)), nil
		}

		return jsonResult(sub)
	}
}

func resultPayload(session *form.Session) map[string]any {
	v := session.Render()
	payload := map[string]any{
		"phase":              v.Phase.String(),
		"critical_path":      []string{},
		"gantt_chart_url":    "",
		"result_unavailable": v.ResultUnavailable,
	}
	if res := session.Result(); res != nil {
		if res.CriticalPath != nil {
			payload["critical_path"] = res.CriticalPath
		}
		payload["gantt_chart_url"] = res.GanttChartURL
	}
	return payload
}

// draftField turns a tool argument into the text a form field would hold.
// Non-integral numbers are kept as written so that validation rejects them.
func draftField(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
