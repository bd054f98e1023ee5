package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coldreach/leadctl/internal/leads"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestLeadSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)

	sent := true
	in := []leads.Lead{
		{ID: "1", FirstName: "Ada", LastName: "Lovelace", Score: 8.5, ConnectionStatus: leads.StatusSent, ConnectionSent: &sent},
		{ID: "2", FirstName: "Alan", LastName: "Turing", Score: 9.1, ConnectionStatus: leads.StatusWaitingForReview},
	}

	if err := s.SaveLeadSnapshot("ready", in); err != nil {
		t.Fatalf("SaveLeadSnapshot: %v", err)
	}

	out, fetchedAt, err := s.LeadSnapshot("ready")
	if err != nil {
		t.Fatalf("LeadSnapshot: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d leads, want 2", len(out))
	}
	if out[0].Name() != "Ada Lovelace" || out[0].ConnectionStatus != leads.StatusSent {
		t.Errorf("first lead = %+v", out[0])
	}
	if fetchedAt.IsZero() {
		t.Error("fetched_at should be set")
	}
}

func TestLeadSnapshotReplacesPrevious(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveLeadSnapshot("all", []leads.Lead{{ID: "1"}, {ID: "2"}}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.SaveLeadSnapshot("all", []leads.Lead{{ID: "3"}}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	out, _, err := s.LeadSnapshot("all")
	if err != nil {
		t.Fatalf("LeadSnapshot: %v", err)
	}
	if len(out) != 1 || out[0].ID != "3" {
		t.Errorf("snapshot = %+v, want single lead 3", out)
	}
}

func TestLeadSnapshotMissingView(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.LeadSnapshot("approved")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordInviteAssignsID(t *testing.T) {
	s := openTestStore(t)

	id, err := s.RecordInvite(Invite{LeadID: "42", LeadName: "Ada Lovelace", Message: "Hi Ada", Status: InviteSent})
	if err != nil {
		t.Fatalf("RecordInvite: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	rows, err := s.RecentInvites(10)
	if err != nil {
		t.Fatalf("RecentInvites: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].ID != id || rows[0].Status != InviteSent || rows[0].LeadID != "42" {
		t.Errorf("row = %+v", rows[0])
	}
	if rows[0].CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestRecentInvitesOrderAndLimit(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.RecordInvite(Invite{
			LeadID:    fmt.Sprintf("%d", i),
			Status:    InviteFailed,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordInvite %d: %v", i, err)
		}
	}

	rows, err := s.RecentInvites(3)
	if err != nil {
		t.Fatalf("RecentInvites: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].LeadID != "4" {
		t.Errorf("newest row lead = %s, want 4", rows[0].LeadID)
	}
}

func TestStatsCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, _, err := s.LastStats(); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty cache err = %v, want ErrNotFound", err)
	}

	if err := s.SaveStats(json.RawMessage(`{"total_leads": 10}`)); err != nil {
		t.Fatalf("SaveStats: %v", err)
	}
	if err := s.SaveStats(json.RawMessage(`{"total_leads": 12}`)); err != nil {
		t.Fatalf("SaveStats (update): %v", err)
	}

	payload, fetchedAt, err := s.LastStats()
	if err != nil {
		t.Fatalf("LastStats: %v", err)
	}
	var decoded struct {
		TotalLeads int `json:"total_leads"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if decoded.TotalLeads != 12 {
		t.Errorf("total_leads = %d, want 12", decoded.TotalLeads)
	}
	if fetchedAt.IsZero() {
		t.Error("fetched_at should be set")
	}
}
