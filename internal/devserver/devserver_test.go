package devserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coldreach/leadctl/internal/api"
	"github.com/coldreach/leadctl/internal/leads"
	"github.com/coldreach/leadctl/internal/pipeline"
	"github.com/coldreach/leadctl/internal/schedule"
)

// newClient logs into a fresh emulator with the seeded account and
// returns an authenticated API client.
func newClient(t *testing.T) (*Server, *api.Client) {
	t.Helper()
	srv := New()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	var token string
	client := api.New(ts.URL, api.TokenFunc(func() string { return token }), 5*time.Second)

	tok, err := client.Login(context.Background(), "dev@example.com", "devpass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	token = tok
	return srv, client
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := New()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := api.New(ts.URL, nil, 5*time.Second)
	_, err := client.Login(context.Background(), "dev@example.com", "wrong")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *api.Error", err)
	}
	if apiErr.Status != 400 || apiErr.Message != "Invalid credentials" {
		t.Errorf("got %+v", apiErr)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	srv := New()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := api.New(ts.URL, nil, 5*time.Second)
	if err := client.Signup(context.Background(), "new@example.com", "secret-pass"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	err := client.Signup(context.Background(), "new@example.com", "secret-pass")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		t.Fatalf("duplicate signup err = %v, want 400", err)
	}
	if apiErr.Message != "An account with this email already exists. Please log in instead." {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv := New()
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := api.New(ts.URL, nil, 5*time.Second)
	_, err := client.PipelineStatus(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Fatalf("err = %v, want 401", err)
	}
}

func TestPipelineLifecycle(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	st, err := client.PipelineStatus(ctx)
	if err != nil {
		t.Fatalf("status before start: %v", err)
	}
	if st.Status != "idle" {
		t.Errorf("initial status = %q, want idle", st.Status)
	}

	if err := client.StartPipeline(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Each poll yields the next lifecycle step.
	want := []pipeline.Status{
		{JobType: pipeline.JobAcquisition, Status: pipeline.StatusRunning},
		{JobType: pipeline.JobAcquisition, Status: pipeline.StatusCompleted},
		{JobType: pipeline.JobEvaluation, Status: pipeline.StatusRunning},
		{JobType: pipeline.JobEvaluation, Status: pipeline.StatusCompleted},
		{JobType: pipeline.JobMessageGeneration, Status: pipeline.StatusRunning},
		{JobType: pipeline.JobMessageGeneration, Status: pipeline.StatusCompleted},
	}
	for i, w := range want {
		st, err := client.PipelineStatus(ctx)
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if st != w {
			t.Errorf("poll %d = %+v, want %+v", i, st, w)
		}
	}

	st, err = client.PipelineStatus(ctx)
	if err != nil {
		t.Fatalf("status after completion: %v", err)
	}
	if st.Status != "idle" {
		t.Errorf("post-run status = %q, want idle", st.Status)
	}
}

func TestLeadsViews(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	all, err := client.Leads(ctx, leads.ViewAll)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	approved, err := client.Leads(ctx, leads.ViewApproved)
	if err != nil {
		t.Fatalf("approved: %v", err)
	}
	ready, err := client.Leads(ctx, leads.ViewReady)
	if err != nil {
		t.Fatalf("ready: %v", err)
	}

	if len(all) != 4 {
		t.Errorf("all = %d leads, want 4", len(all))
	}
	if len(approved) != 2 {
		t.Errorf("approved = %d leads, want 2", len(approved))
	}
	if len(ready) != 2 {
		t.Errorf("ready = %d leads, want 2", len(ready))
	}
	for _, l := range approved {
		if l.Score < 7.0 {
			t.Errorf("approved lead %s has score %.1f", l.ID, l.Score)
		}
	}
}

func TestSendInviteMarksLeadSent(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	if err := client.SendInvite(ctx, "1", "Hello Ada"); err != nil {
		t.Fatalf("send: %v", err)
	}

	ready, err := client.Leads(ctx, leads.ViewReady)
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	for _, l := range ready {
		if l.ID == "1" {
			t.Error("sent lead still present in ready view")
		}
	}

	all, err := client.Leads(ctx, leads.ViewAll)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	for _, l := range all {
		if l.ID == "1" {
			if l.ConnectionStatus != leads.StatusSent {
				t.Errorf("status = %q, want sent", l.ConnectionStatus)
			}
			if l.PersonalizedMessage != "Hello Ada" {
				t.Errorf("message = %q, want edited message", l.PersonalizedMessage)
			}
		}
	}
}

func TestSendInviteBusyLock(t *testing.T) {
	srv, client := newClient(t)
	srv.SetInviteBusy(true)

	err := client.SendInvite(context.Background(), "1", "")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 400 {
		t.Fatalf("err = %v, want 400", err)
	}
	if apiErr.Message != inviteBusyDetail {
		t.Errorf("message = %q, want busy detail", apiErr.Message)
	}

	srv.SetInviteBusy(false)
	if err := client.SendInvite(context.Background(), "1", ""); err != nil {
		t.Errorf("send after unlock: %v", err)
	}
}

func TestScheduleCRUD(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	id, err := client.CreateSchedule(ctx, schedule.NewRecurring("0 9 * * 1-5"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected schedule id")
	}

	list, err := client.Schedules(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d schedules, want 1", len(list))
	}
	if list[0].ID != id || list[0].CronExpression != "0 9 * * 1-5" || !list[0].Active {
		t.Errorf("schedule = %+v", list[0])
	}
	if list[0].NextRun == "" {
		t.Error("next_run should be computed for recurring schedules")
	}

	if err := client.DeleteSchedule(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err = client.DeleteSchedule(ctx, id)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Errorf("second delete err = %v, want 404", err)
	}
}

func TestCreateScheduleRejectsBadCron(t *testing.T) {
	_, client := newClient(t)

	_, err := client.CreateSchedule(context.Background(), schedule.NewRecurring("not a cron"))
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 422 {
		t.Errorf("err = %v, want 422", err)
	}
}

func TestStatsReflectInvites(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	stats, err := client.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalLeads != 4 || stats.ApprovedLeads != 2 || stats.InvitesSent != 0 {
		t.Errorf("stats = %+v", stats)
	}

	if err := client.SendInvite(ctx, "2", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	stats, err = client.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.InvitesSent != 1 {
		t.Errorf("invitesSent = %d, want 1", stats.InvitesSent)
	}
}

func TestUpdateProfileRoundTrip(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	if err := client.UpdateProfile(ctx, "Dev User", "Coldreach"); err != nil {
		t.Fatalf("update: %v", err)
	}
	profile, err := client.Me(ctx)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if profile.Email != "dev@example.com" || profile.FullName != "Dev User" || profile.Company != "Coldreach" {
		t.Errorf("profile = %+v", profile)
	}
}
