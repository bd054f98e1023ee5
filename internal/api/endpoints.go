package api

import (
	"context"
	"net/url"

	"github.com/coldreach/leadctl/internal/leads"
	"github.com/coldreach/leadctl/internal/pipeline"
	"github.com/coldreach/leadctl/internal/schedule"
)

// --- auth ---

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, "POST", "/auth/login", loginRequest{Email: email, Password: password}, &resp, false)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, email, password string) error {
	return c.do(ctx, "POST", "/auth/signup", loginRequest{Email: email, Password: password}, nil, false)
}

// RequestPasswordReset asks the backend to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, "POST", "/auth/request-password-reset", resetRequest{Email: email}, nil, false)
}

// ConfirmPasswordReset redeems a reset token for a new password.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return c.do(ctx, "POST", "/auth/confirm-password-reset",
		confirmResetRequest{Token: token, NewPassword: newPassword}, nil, false)
}

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (Profile, error) {
	var p Profile
	if err := c.get(ctx, "/auth/me", &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// UpdateProfile updates the mutable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, fullName, company string) error {
	return c.put(ctx, "/auth/update-profile", updateProfileRequest{FullName: fullName, Company: company}, nil)
}

// --- pipeline ---

// StartPipeline triggers a backend pipeline run.
func (c *Client) StartPipeline(ctx context.Context) error {
	return c.post(ctx, "/pipeline/start", nil, nil)
}

// PipelineStatus fetches the current job state.
func (c *Client) PipelineStatus(ctx context.Context) (pipeline.Status, error) {
	var st pipeline.Status
	if err := c.get(ctx, "/pipeline/status", &st); err != nil {
		return pipeline.Status{}, err
	}
	return st, nil
}

// --- leads ---

// Leads fetches one of the three lead views.
func (c *Client) Leads(ctx context.Context, view leads.View) ([]leads.Lead, error) {
	var out []leads.Lead
	if err := c.get(ctx, "/leads/"+url.PathEscape(string(view)), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendInvite submits a connection invite for a lead.
func (c *Client) SendInvite(ctx context.Context, leadID, message string) error {
	return c.post(ctx, "/invite/send", sendInviteRequest{LeadID: leadID, EditedMessage: message}, nil)
}

// --- schedules ---

// Schedules lists the active pipeline schedules.
func (c *Client) Schedules(ctx context.Context) ([]schedule.Schedule, error) {
	var out []schedule.Schedule
	if err := c.get(ctx, "/pipeline/schedules", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSchedule creates a schedule and returns its id.
func (c *Client) CreateSchedule(ctx context.Context, req schedule.CreateRequest) (string, error) {
	var resp createScheduleResponse
	if err := c.post(ctx, "/pipeline/schedule", req, &resp); err != nil {
		return "", err
	}
	return resp.ScheduleID, nil
}

// DeleteSchedule removes a schedule by id.
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	return c.delete(ctx, "/pipeline/schedule/"+url.PathEscape(id), nil)
}

// --- dashboard ---

// DashboardStats fetches the headline metrics.
func (c *Client) DashboardStats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := c.get(ctx, "/dashboard/stats", &s); err != nil {
		return Stats{}, err
	}
	return s, nil
}
