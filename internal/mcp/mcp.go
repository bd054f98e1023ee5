// Package mcp exposes the lead automation API as MCP tools, so agents
// can drive the pipeline, review leads, and send invites over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/coldreach/leadctl/internal/api"
	"github.com/coldreach/leadctl/internal/leads"
	"github.com/coldreach/leadctl/internal/pipeline"
	"github.com/coldreach/leadctl/internal/schedule"
	"github.com/coldreach/leadctl/internal/storage"
)

// Backend abstracts the API client for the MCP layer.
type Backend interface {
	PipelineStatus(ctx context.Context) (pipeline.Status, error)
	StartPipeline(ctx context.Context) error
	Leads(ctx context.Context, view leads.View) ([]leads.Lead, error)
	SendInvite(ctx context.Context, leadID, message string) error
	Schedules(ctx context.Context) ([]schedule.Schedule, error)
	DashboardStats(ctx context.Context) (api.Stats, error)
}

// Deps holds dependencies for the MCP server. Store is optional; when
// present, invite attempts are recorded in the local audit log.
type Deps struct {
	Backend Backend
	Store   *storage.Store
}

// NewServer creates an MCP server with all leadctl tools registered.
func NewServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"leadctl",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("leadctl — lead automation pipeline: scraping, AI evaluation, message generation, and connection invites."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("pipeline_status",
			mcp.WithDescription("Get the pipeline's current job type, status, and derived step breakdown."),
		),
		toolPipelineStatus(deps),
	)

	s.AddTool(
		mcp.NewTool("start_pipeline",
			mcp.WithDescription("Kick off a full pipeline run: lead acquisition, evaluation, and message generation."),
		),
		toolStartPipeline(deps),
	)

	s.AddTool(
		mcp.NewTool("list_leads",
			mcp.WithDescription("List leads from one of the dashboard views."),
			mcp.WithString("view", mcp.Description("One of: all, approved, ready (default all)")),
		),
		toolListLeads(deps),
	)

	s.AddTool(
		mcp.NewTool("send_invite",
			mcp.WithDescription("Send a connection invitation to a lead, optionally with an edited message."),
			mcp.WithString("lead_id", mcp.Description("ID of the lead"), mcp.Required()),
			mcp.WithString("message", mcp.Description("Edited message text; empty keeps the generated one")),
		),
		toolSendInvite(deps),
	)

	s.AddTool(
		mcp.NewTool("list_schedules",
			mcp.WithDescription("List pipeline schedules with human-readable summaries."),
		),
		toolListSchedules(deps),
	)

	s.AddTool(
		mcp.NewTool("dashboard_stats",
			mcp.WithDescription("Get dashboard totals: leads scraped, approved, and invites sent."),
		),
		toolDashboardStats(deps),
	)

	return s
}

func toolPipelineStatus(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := deps.Backend.PipelineStatus(ctx)
		if err != nil {
			return toolError(fmt.Sprintf("status fetch failed: %v", err)), nil
		}

		out := struct {
			JobType string          `json:"jobType"`
			Status  string          `json:"status"`
			Steps   []pipeline.Step `json:"steps"`
		}{
			JobType: string(st.JobType),
			Status:  string(st.Status),
			Steps:   pipeline.DeriveSteps(st),
		}
		b, err := json.Marshal(out)
		if err != nil {
			return toolError(fmt.Sprintf("failed to marshal status: %v", err)), nil
		}
		return toolText(string(b)), nil
	}
}

func toolStartPipeline(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := deps.Backend.StartPipeline(ctx); err != nil {
			return toolError(fmt.Sprintf("start failed: %v", err)), nil
		}
		return toolText("Pipeline started"), nil
	}
}

func toolListLeads(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		view := leads.View(req.GetString("view", string(leads.ViewAll)))
		switch view {
		case leads.ViewAll, leads.ViewApproved, leads.ViewReady:
		default:
			return toolError(fmt.Sprintf("unknown view %q: expected all, approved, or ready", view)), nil
		}

		list, err := deps.Backend.Leads(ctx, view)
		if err != nil {
			return toolError(fmt.Sprintf("leads fetch failed: %v", err)), nil
		}

		type leadResult struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Company string `json:"company,omitempty"`
			Title   string `json:"title,omitempty"`
			Score   string `json:"score,omitempty"`
			Status  string `json:"status,omitempty"`
			Message string `json:"message,omitempty"`
		}
		results := make([]leadResult, len(list))
		for i, l := range list {
			results[i] = leadResult{
				ID:      l.ID,
				Name:    l.Name(),
				Company: l.Company,
				Title:   l.Title,
				Score:   l.ScoreString(),
				Status:  string(l.ConnectionStatus),
				Message: l.PersonalizedMessage,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return toolError(fmt.Sprintf("failed to marshal leads: %v", err)), nil
		}
		return toolText(string(b)), nil
	}
}

func toolSendInvite(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		leadID, err := req.RequireString("lead_id")
		if err != nil {
			return toolError("lead_id is required"), nil
		}
		message := req.GetString("message", "")

		sendErr := deps.Backend.SendInvite(ctx, leadID, message)

		if deps.Store != nil {
			status := storage.InviteSent
			if sendErr != nil {
				status = storage.InviteFailed
			}
			inv := storage.Invite{
				LeadID:    leadID,
				Message:   message,
				Status:    status,
				CreatedAt: time.Now().UTC(),
			}
			if _, err := deps.Store.RecordInvite(inv); err != nil {
				return toolError(fmt.Sprintf("invite %s but audit log write failed: %v", status, err)), nil
			}
		}

		if sendErr != nil {
			return toolError(fmt.Sprintf("invite failed: %v", sendErr)), nil
		}
		return toolText(fmt.Sprintf("Invitation sent to lead %s", leadID)), nil
	}
}

func toolListSchedules(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := deps.Backend.Schedules(ctx)
		if err != nil {
			return toolError(fmt.Sprintf("schedules fetch failed: %v", err)), nil
		}

		type scheduleResult struct {
			ID      string `json:"id"`
			Type    string `json:"type"`
			Summary string `json:"summary"`
			NextRun string `json:"next_run,omitempty"`
			Active  bool   `json:"active"`
		}
		results := make([]scheduleResult, len(list))
		for i, rec := range list {
			results[i] = scheduleResult{
				ID:      rec.ID,
				Type:    string(rec.Type),
				Summary: rec.Summary(),
				NextRun: rec.NextRun,
				Active:  rec.Active,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return toolError(fmt.Sprintf("failed to marshal schedules: %v", err)), nil
		}
		return toolText(string(b)), nil
	}
}

func toolDashboardStats(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := deps.Backend.DashboardStats(ctx)
		if err != nil {
			return toolError(fmt.Sprintf("stats fetch failed: %v", err)), nil
		}
		b, err := json.Marshal(stats)
		if err != nil {
			return toolError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
		}
		return toolText(string(b)), nil
	}
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
