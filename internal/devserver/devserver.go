// Package devserver implements a local stand-in for the lead automation
// backend. It speaks the same routes and error shapes as the hosted API
// so the CLI and the controllers can be exercised end to end without an
// account.
package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/coldreach/leadctl/internal/leads"
	"github.com/coldreach/leadctl/internal/pipeline"
	"github.com/coldreach/leadctl/internal/schedule"
)

const maxRequestBodySize = 1 << 20 // 1MB

// approvedThreshold mirrors the backend's evaluation cutoff.
const approvedThreshold = 7.0

const inviteBusyDetail = "Another invitation is being sent. Please try after some time."

type account struct {
	password string
	fullName string
	company  string
}

// Server holds the emulator's in-memory state. All handlers share one
// mutex; the emulator optimizes for predictability, not throughput.
type Server struct {
	mu        sync.Mutex
	accounts  map[string]*account
	tokens    map[string]string // token -> email
	leads     []leads.Lead
	schedules []schedule.Schedule

	// pipelineSeq walks the job lifecycle one step per status poll, so a
	// polling client observes every transition.
	pipelineSeq []pipeline.Status
	pipelinePos int
	running     bool

	inviteBusy  bool
	invitesSent int

	cronParser cron.Parser
}

// New returns an emulator pre-seeded with one account
// (dev@example.com / devpass) and a handful of leads.
func New() *Server {
	s := &Server{
		accounts: map[string]*account{
			"dev@example.com": {password: "devpass", fullName: "Dev User", company: "Example Inc"},
		},
		tokens:     make(map[string]string),
		leads:      seedLeads(),
		cronParser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
	}
	return s
}

func seedLeads() []leads.Lead {
	f := false
	return []leads.Lead{
		{ID: "1", FirstName: "Ada", LastName: "Lovelace", Company: "Analytical Engines", Title: "CTO",
			Score: 9.2, ConnectionStatus: leads.StatusWaitingForReview, ConnectionSent: &f,
			PersonalizedMessage: "Hi Ada, your work on compute pipelines caught my eye."},
		{ID: "2", FirstName: "Alan", LastName: "Turing", Company: "Bletchley Ltd", Title: "Head of Research",
			Score: 8.7, ConnectionStatus: leads.StatusNotSent, ConnectionSent: &f,
			PersonalizedMessage: "Hi Alan, I'd love to compare notes on automation."},
		{ID: "3", FirstName: "Grace", LastName: "Hopper", Company: "Flowmatic", Title: "VP Engineering",
			Score: 6.1, ConnectionStatus: "", ConnectionSent: &f},
		{ID: "4", FirstName: "Edsger", LastName: "Dijkstra", Company: "Structured Systems", Title: "Principal Engineer",
			Score: 4.5, ConnectionStatus: "", ConnectionSent: &f},
	}
}

// Handler returns the emulator's router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/request-password-reset", s.handleRequestReset)
	r.Post("/auth/confirm-password-reset", s.handleConfirmReset)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/auth/me", s.handleMe)
		r.Put("/auth/update-profile", s.handleUpdateProfile)
		r.Post("/pipeline/start", s.handlePipelineStart)
		r.Get("/pipeline/status", s.handlePipelineStatus)
		r.Get("/leads/{view}", s.handleLeads)
		r.Post("/invite/send", s.handleSendInvite)
		r.Get("/pipeline/schedules", s.handleListSchedules)
		r.Post("/pipeline/schedule", s.handleCreateSchedule)
		r.Delete("/pipeline/schedule/{id}", s.handleDeleteSchedule)
		r.Get("/dashboard/stats", s.handleStats)
	})

	return r
}

// --- auth ---

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || len(req.Password) < 6 {
		httpError(w, http.StatusUnprocessableEntity, "Invalid email or password too short")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[req.Email]; ok {
		httpError(w, http.StatusBadRequest, "An account with this email already exists. Please log in instead.")
		return
	}
	s.accounts[req.Email] = &account{password: req.Password}
	writeJSON(w, map[string]string{"message": "User created successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[req.Email]
	if !ok || acct.password != req.Password {
		httpError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token := uuid.NewString()
	s.tokens[token] = req.Email
	writeJSON(w, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	// Whether or not the account exists, answer the same way.
	writeJSON(w, map[string]string{"message": "If the email exists, a reset link has been sent"})
}

func (s *Server) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" || len(req.NewPassword) < 6 {
		httpError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	writeJSON(w, map[string]string{"message": "Password updated successfully"})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			httpError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		s.mu.Lock()
		_, ok := s.tokens[auth[len(prefix):]]
		s.mu.Unlock()
		if !ok {
			httpError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) emailForRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[auth[len(prefix):]]
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	email := s.emailForRequest(r)
	s.mu.Lock()
	acct := s.accounts[email]
	s.mu.Unlock()
	if acct == nil {
		httpError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	writeJSON(w, map[string]string{
		"email":    email,
		"fullName": acct.fullName,
		"company":  acct.company,
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"fullName"`
		Company  string `json:"company"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	email := s.emailForRequest(r)

	s.mu.Lock()
	if acct := s.accounts[email]; acct != nil {
		acct.fullName = req.FullName
		acct.company = req.Company
	}
	s.mu.Unlock()
	writeJSON(w, map[string]string{"message": "Profile updated"})
}

// --- pipeline ---

func (s *Server) handlePipelineStart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		httpError(w, http.StatusBadRequest, "Pipeline already running")
		return
	}
	s.running = true
	s.pipelinePos = 0
	s.pipelineSeq = []pipeline.Status{
		{JobType: pipeline.JobAcquisition, Status: pipeline.StatusRunning},
		{JobType: pipeline.JobAcquisition, Status: pipeline.StatusCompleted},
		{JobType: pipeline.JobEvaluation, Status: pipeline.StatusRunning},
		{JobType: pipeline.JobEvaluation, Status: pipeline.StatusCompleted},
		{JobType: pipeline.JobMessageGeneration, Status: pipeline.StatusRunning},
		{JobType: pipeline.JobMessageGeneration, Status: pipeline.StatusCompleted},
	}
	writeJSON(w, map[string]string{"message": "Pipeline started"})
}

// handlePipelineStatus returns the current lifecycle step and then
// advances, so each poll observes the next transition.
func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || len(s.pipelineSeq) == 0 {
		writeJSON(w, map[string]any{"jobType": nil, "status": "idle"})
		return
	}

	cur := s.pipelineSeq[s.pipelinePos]
	if s.pipelinePos < len(s.pipelineSeq)-1 {
		s.pipelinePos++
	} else {
		s.running = false
	}
	writeJSON(w, cur)
}

// --- leads ---

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	switch view {
	case "all", "approved", "ready":
	default:
		httpError(w, http.StatusNotFound, fmt.Sprintf("Unknown view %q", view))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []leads.Lead
	for _, l := range s.leads {
		switch view {
		case "all":
			out = append(out, l)
		case "approved":
			if l.Score >= approvedThreshold {
				out = append(out, l)
			}
		case "ready":
			if l.Score >= approvedThreshold && l.PersonalizedMessage != "" && l.ConnectionStatus != leads.StatusSent {
				out = append(out, l)
			}
		}
	}
	if out == nil {
		out = []leads.Lead{}
	}
	writeJSON(w, out)
}

func (s *Server) handleSendInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID        string `json:"leadId"`
		EditedMessage string `json:"editedMessage"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inviteBusy {
		httpError(w, http.StatusBadRequest, inviteBusyDetail)
		return
	}

	for i := range s.leads {
		if s.leads[i].ID != req.LeadID {
			continue
		}
		sent := true
		s.leads[i].ConnectionStatus = leads.StatusSent
		s.leads[i].ConnectionSent = &sent
		if req.EditedMessage != "" {
			s.leads[i].PersonalizedMessage = req.EditedMessage
		}
		s.invitesSent++
		writeJSON(w, map[string]string{"message": "Invitation sent"})
		return
	}
	httpError(w, http.StatusBadRequest, "Lead not in sendable state")
}

// SetInviteBusy toggles the global invite lock, simulating another
// client mid-send. Used by tests and demos.
func (s *Server) SetInviteBusy(busy bool) {
	s.mu.Lock()
	s.inviteBusy = busy
	s.mu.Unlock()
}

// --- schedules ---

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.schedules
	if out == nil {
		out = []schedule.Schedule{}
	}
	writeJSON(w, out)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req schedule.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		httpError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	rec := schedule.Schedule{
		ID:     uuid.NewString(),
		Type:   req.Type,
		Active: true,
	}
	switch req.Type {
	case schedule.TypeOneTime:
		rec.RunAt = req.RunAt
		rec.NextRun = req.RunAt
	case schedule.TypeRecurring:
		sched, err := s.cronParser.Parse(req.Cron)
		if err != nil {
			httpError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid cron expression: %v", err))
			return
		}
		rec.CronExpression = req.Cron
		rec.NextRun = sched.Next(time.Now().UTC()).Format(time.RFC3339)
	}

	s.mu.Lock()
	s.schedules = append(s.schedules, rec)
	s.mu.Unlock()

	writeJSON(w, map[string]string{"message": "Schedule created", "schedule_id": rec.ID})
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.schedules {
		if rec.ID == id {
			s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
			writeJSON(w, map[string]string{"message": "Schedule deleted"})
			return
		}
	}
	httpError(w, http.StatusNotFound, "Schedule not found")
}

// --- stats ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	approved := 0
	for _, l := range s.leads {
		if l.Score >= approvedThreshold {
			approved++
		}
	}
	writeJSON(w, map[string]int{
		"totalLeads":    len(s.leads),
		"approvedLeads": approved,
		"invitesSent":   s.invitesSent,
	})
}

// --- helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		httpError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// httpError writes the backend's error shape: {"detail": "..."}.
func httpError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
