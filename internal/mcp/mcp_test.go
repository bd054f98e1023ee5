package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/coldreach/leadctl/internal/api"
	"github.com/coldreach/leadctl/internal/leads"
	"github.com/coldreach/leadctl/internal/pipeline"
	"github.com/coldreach/leadctl/internal/schedule"
	"github.com/coldreach/leadctl/internal/storage"
)

// --- mocks ---

type mockBackend struct {
	status    pipeline.Status
	leads     []leads.Lead
	schedules []schedule.Schedule
	stats     api.Stats
	err       error

	sentLeadID  string
	sentMessage string
}

func (m *mockBackend) PipelineStatus(_ context.Context) (pipeline.Status, error) {
	return m.status, m.err
}

func (m *mockBackend) StartPipeline(_ context.Context) error { return m.err }

func (m *mockBackend) Leads(_ context.Context, _ leads.View) ([]leads.Lead, error) {
	return m.leads, m.err
}

func (m *mockBackend) SendInvite(_ context.Context, leadID, message string) error {
	m.sentLeadID, m.sentMessage = leadID, message
	return m.err
}

func (m *mockBackend) Schedules(_ context.Context) ([]schedule.Schedule, error) {
	return m.schedules, m.err
}

func (m *mockBackend) DashboardStats(_ context.Context) (api.Stats, error) {
	return m.stats, m.err
}

// --- helpers ---

func newTestDeps(t *testing.T, backend Backend) (Deps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return Deps{Backend: backend, Store: store}, store
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestTool_PipelineStatus(t *testing.T) {
	backend := &mockBackend{
		status: pipeline.Status{JobType: pipeline.JobEvaluation, Status: pipeline.StatusRunning},
	}
	deps, _ := newTestDeps(t, backend)
	handler := toolPipelineStatus(deps)

	result, err := handler(context.Background(), makeCallToolRequest("pipeline_status", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var out struct {
		JobType string          `json:"jobType"`
		Status  string          `json:"status"`
		Steps   []pipeline.Step `json:"steps"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if out.JobType != "evaluation" || out.Status != "running" {
		t.Errorf("got jobType=%q status=%q", out.JobType, out.Status)
	}
	if len(out.Steps) != 4 {
		t.Fatalf("got %d steps, want 4", len(out.Steps))
	}
	if out.Steps[1].Status != pipeline.StepRunning {
		t.Errorf("evaluation step status = %q, want running", out.Steps[1].Status)
	}
}

func TestTool_ListLeadsRejectsUnknownView(t *testing.T) {
	deps, _ := newTestDeps(t, &mockBackend{})
	handler := toolListLeads(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_leads", map[string]interface{}{
		"view": "frobnicated",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for unknown view")
	}
}

func TestTool_ListLeads(t *testing.T) {
	backend := &mockBackend{
		leads: []leads.Lead{
			{ID: "1", FirstName: "Ada", LastName: "Lovelace", Company: "AE", Score: 9.2,
				ConnectionStatus: leads.StatusWaitingForReview, PersonalizedMessage: "Hi Ada"},
		},
	}
	deps, _ := newTestDeps(t, backend)
	handler := toolListLeads(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_leads", map[string]interface{}{
		"view": "ready",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d leads, want 1", len(out))
	}
	if out[0]["name"] != "Ada Lovelace" {
		t.Errorf("name = %v", out[0]["name"])
	}
	if out[0]["status"] != "waiting_for_review" {
		t.Errorf("status = %v", out[0]["status"])
	}
}

func TestTool_SendInviteRecordsAudit(t *testing.T) {
	backend := &mockBackend{}
	deps, store := newTestDeps(t, backend)
	handler := toolSendInvite(deps)

	result, err := handler(context.Background(), makeCallToolRequest("send_invite", map[string]interface{}{
		"lead_id": "42",
		"message": "Hello there",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if backend.sentLeadID != "42" || backend.sentMessage != "Hello there" {
		t.Errorf("backend call = (%q, %q)", backend.sentLeadID, backend.sentMessage)
	}

	rows, err := store.RecentInvites(5)
	if err != nil {
		t.Fatalf("RecentInvites: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != storage.InviteSent {
		t.Errorf("audit rows = %+v", rows)
	}
}

func TestTool_SendInviteFailureStillAudited(t *testing.T) {
	backend := &mockBackend{err: errors.New("Another invitation is being sent. Please try after some time.")}
	deps, store := newTestDeps(t, backend)
	handler := toolSendInvite(deps)

	result, err := handler(context.Background(), makeCallToolRequest("send_invite", map[string]interface{}{
		"lead_id": "42",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error")
	}

	rows, err := store.RecentInvites(5)
	if err != nil {
		t.Fatalf("RecentInvites: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != storage.InviteFailed {
		t.Errorf("audit rows = %+v", rows)
	}
}

func TestTool_SendInviteRequiresLeadID(t *testing.T) {
	deps, _ := newTestDeps(t, &mockBackend{})
	handler := toolSendInvite(deps)

	result, err := handler(context.Background(), makeCallToolRequest("send_invite", map[string]interface{}{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing lead_id")
	}
}

func TestTool_ListSchedules(t *testing.T) {
	backend := &mockBackend{
		schedules: []schedule.Schedule{
			{ID: "s1", Type: schedule.TypeRecurring, CronExpression: "0 9 * * *", Active: true},
		},
	}
	deps, _ := newTestDeps(t, backend)
	handler := toolListSchedules(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_schedules", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var out []map[string]any
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d schedules, want 1", len(out))
	}
	if out[0]["summary"] != "Every day at 9:00 AM" {
		t.Errorf("summary = %v", out[0]["summary"])
	}
}

func TestTool_DashboardStats(t *testing.T) {
	backend := &mockBackend{stats: api.Stats{TotalLeads: 10, ApprovedLeads: 4, InvitesSent: 2}}
	deps, _ := newTestDeps(t, backend)
	handler := toolDashboardStats(deps)

	result, err := handler(context.Background(), makeCallToolRequest("dashboard_stats", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	var stats api.Stats
	if err := json.Unmarshal([]byte(resultText(t, result)), &stats); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if stats != backend.stats {
		t.Errorf("stats = %+v, want %+v", stats, backend.stats)
	}
}
