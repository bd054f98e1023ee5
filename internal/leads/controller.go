package leads

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// View names one of the three independently fetched lead lists.
type View string

const (
	ViewAll      View = "all"
	ViewApproved View = "approved"
	ViewReady    View = "ready"
)

// API is the slice of the backend the controller needs.
// Implemented by api.Client.
type API interface {
	Leads(ctx context.Context, view View) ([]Lead, error)
	SendInvite(ctx context.Context, leadID, message string) error
}

// Snapshotter receives fetched views for offline caching. Optional.
type Snapshotter interface {
	SaveLeadSnapshot(view string, leads []Lead) error
}

// Controller owns the three lead views, tracks in-flight invite sends,
// and reconciles optimistic status transitions against backend truth.
//
// Each view is single-writer: it is replaced wholesale by its own fetch
// and never merged with the others. Concurrent fetches of different
// views may apply in completion order, not issuance order.
type Controller struct {
	api      API
	log      *slog.Logger
	snapshot Snapshotter

	mu       sync.Mutex
	all      []Lead
	approved []Lead
	ready    []Lead
	drafts   map[string]string
	loading  int // outstanding RefreshAll calls
	sending  int // outstanding SendInvite calls
	active   bool
	interval time.Duration
	stopCh   chan struct{}
}

// NewController creates a Controller. interval is the background
// refresh cadence used while the pipeline is active; <= 0 defaults to
// 120s.
func NewController(api API, interval time.Duration, log *slog.Logger) *Controller {
	if interval <= 0 {
		interval = 120 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		api:      api,
		log:      log,
		interval: interval,
		drafts:   make(map[string]string),
	}
}

// SetSnapshotter attaches an offline cache sink for fetched views.
func (c *Controller) SetSnapshotter(s Snapshotter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = s
}

// FetchAll refreshes the "all leads" view. On error it logs and returns
// an empty slice, leaving the stored view unchanged.
func (c *Controller) FetchAll(ctx context.Context) []Lead {
	return c.fetchView(ctx, ViewAll, &c.all)
}

// FetchApproved refreshes the approved view.
func (c *Controller) FetchApproved(ctx context.Context) []Lead {
	return c.fetchView(ctx, ViewApproved, &c.approved)
}

// FetchReady refreshes the ready-to-invite view.
func (c *Controller) FetchReady(ctx context.Context) []Lead {
	return c.fetchView(ctx, ViewReady, &c.ready)
}

// fetchView replaces *dst in full with the backend's copy of the view.
// dst points at a field of c, so the write happens under c.mu.
func (c *Controller) fetchView(ctx context.Context, view View, dst *[]Lead) []Lead {
	fetched, err := c.api.Leads(ctx, view)
	if err != nil {
		c.log.Warn("fetching leads failed", "view", string(view), "error", err)
		return []Lead{}
	}
	if fetched == nil {
		fetched = []Lead{}
	}

	c.mu.Lock()
	*dst = fetched
	snap := c.snapshot
	c.mu.Unlock()

	if snap != nil {
		if err := snap.SaveLeadSnapshot(string(view), fetched); err != nil {
			c.log.Warn("caching lead snapshot failed", "view", string(view), "error", err)
		}
	}
	return copyLeads(fetched)
}

// RefreshAll runs the three view fetches concurrently. IsLoading
// reports true until every fetch has settled.
func (c *Controller) RefreshAll(ctx context.Context) {
	c.mu.Lock()
	c.loading++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading--
		c.mu.Unlock()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { c.FetchAll(ctx); return nil })
	g.Go(func() error { c.FetchApproved(ctx); return nil })
	g.Go(func() error { c.FetchReady(ctx); return nil })
	_ = g.Wait() // fetch errors are absorbed per view
}

// IsLoading reports whether any RefreshAll is outstanding.
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

// IsSendingInvite reports whether any SendInvite is outstanding.
func (c *Controller) IsSendingInvite() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending > 0
}

// HasRowSending reports whether any lead in the ready view is mid-send.
// The UI disables every send action while this is true: a whole-table
// lock that keeps duplicate submissions out of the optimistic-update
// window.
func (c *Controller) HasRowSending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range c.ready {
		if l.ConnectionStatus == StatusSending {
			return true
		}
	}
	return false
}

// AllLeads returns a copy of the "all leads" view.
func (c *Controller) AllLeads() []Lead {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyLeads(c.all)
}

// ApprovedLeads returns a copy of the approved view.
func (c *Controller) ApprovedLeads() []Lead {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyLeads(c.approved)
}

// ReadyLeads returns a copy of the ready-to-invite view.
func (c *Controller) ReadyLeads() []Lead {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyLeads(c.ready)
}

// SetDraft stores an edited outreach message for a lead without
// touching the authoritative lead record.
func (c *Controller) SetDraft(leadID, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drafts[leadID] = message
}

// ClearDraft discards a pending draft.
func (c *Controller) ClearDraft(leadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.drafts, leadID)
}

// DisplayMessage resolves draft-or-original for a lead.
func (c *Controller) DisplayMessage(leadID, original string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.drafts[leadID]; ok {
		return d
	}
	return original
}

// SendInvite sends a connection invite for the given lead.
//
// The target's status in the ready view is optimistically flipped to
// "sending" (other views untouched). On backend error the status
// reverts to "not_sent" and SendInvite returns false. On success any
// pending draft is consumed, the ready view is re-fetched so the lead
// ends in whatever state the backend reports, and SendInvite returns
// true. The in-flight flag is cleared on every path.
//
// A lead whose current status cannot legally move to "sending" (for
// example one already sent) is rejected up front; the backend remains
// the authority either way.
func (c *Controller) SendInvite(ctx context.Context, leadID, message string) bool {
	c.mu.Lock()
	if i := indexOf(c.ready, leadID); i >= 0 {
		if !c.ready[i].ConnectionStatus.CanTransition(StatusSending) {
			c.mu.Unlock()
			c.log.Warn("invite rejected: lead not in a sendable state",
				"lead_id", leadID, "status", string(c.ready[i].ConnectionStatus))
			return false
		}
		c.ready[i].ConnectionStatus = StatusSending
		if message == "" {
			message = c.ready[i].PersonalizedMessage
		}
	}
	if d, ok := c.drafts[leadID]; ok {
		message = d
	}
	c.sending++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.sending--
		c.mu.Unlock()
	}()

	if err := c.api.SendInvite(ctx, leadID, message); err != nil {
		c.log.Warn("sending invite failed", "lead_id", leadID, "error", err)
		c.mu.Lock()
		if i := indexOf(c.ready, leadID); i >= 0 {
			c.ready[i].ConnectionStatus = StatusNotSent
		}
		c.mu.Unlock()
		return false
	}

	c.ClearDraft(leadID)
	// Authoritative status comes from the re-fetch, not a hardcoded
	// "sent".
	c.FetchReady(ctx)
	return true
}

// SetPipelineActive gates the background refresh loop on the pipeline
// poller's activity signal. The loop runs only while active.
func (c *Controller) SetPipelineActive(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = active
	if active {
		c.startLocked()
	} else {
		c.stopLocked()
	}
}

// StopPolling tears down the background refresh loop. An in-flight
// refresh still completes and applies its state.
func (c *Controller) StopPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// IsPolling reports whether the background refresh loop is running.
func (c *Controller) IsPolling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCh != nil
}

func (c *Controller) startLocked() {
	if c.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	go c.loop(stopCh)
}

func (c *Controller) stopLocked() {
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

func (c *Controller) loop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			c.RefreshAll(context.Background())
		}
	}
}

func indexOf(list []Lead, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func copyLeads(src []Lead) []Lead {
	out := make([]Lead, len(src))
	copy(out, src)
	return out
}
