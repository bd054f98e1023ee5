package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldreach/leadctl/internal/config"
	"github.com/coldreach/leadctl/internal/leads"
	"github.com/coldreach/leadctl/internal/storage"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Browse and refresh lead lists",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads from one of the dashboard views",
	RunE: func(cmd *cobra.Command, args []string) error {
		viewStr, _ := cmd.Flags().GetString("view")
		cached, _ := cmd.Flags().GetBool("cached")

		view := leads.View(viewStr)
		switch view {
		case leads.ViewAll, leads.ViewApproved, leads.ViewReady:
		default:
			return fmt.Errorf("unknown view %q: expected all, approved, or ready", viewStr)
		}

		a, err := newApp()
		if err != nil {
			return err
		}

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if cached {
			list, fetchedAt, err := store.LeadSnapshot(string(view))
			if err != nil {
				return fmt.Errorf("no cached snapshot for view %q — run without --cached first", view)
			}
			printWarning("showing snapshot from %s", fetchedAt.Local().Format("Jan 2 15:04"))
			printLeads(list)
			return nil
		}

		if err := a.requireAuth(); err != nil {
			return err
		}

		ctl := newLeadsController(a, store)
		var list []leads.Lead
		switch view {
		case leads.ViewAll:
			list = ctl.FetchAll(cmd.Context())
		case leads.ViewApproved:
			list = ctl.FetchApproved(cmd.Context())
		case leads.ViewReady:
			list = ctl.FetchReady(cmd.Context())
		}

		printLeads(list)
		return nil
	},
}

var leadsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh all three lead views and update the local cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctl := newLeadsController(a, store)
		ctl.RefreshAll(cmd.Context())

		printSuccess("Refreshed: %d total, %d approved, %d ready to send",
			len(ctl.AllLeads()), len(ctl.ApprovedLeads()), len(ctl.ReadyLeads()))
		return nil
	},
}

var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Send connection invitations",
}

var inviteSendCmd = &cobra.Command{
	Use:   "send <lead-id>",
	Short: "Send a connection invitation to a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		leadID := args[0]
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctl := newLeadsController(a, store)
		ready := ctl.FetchReady(cmd.Context())

		var leadName string
		for _, l := range ready {
			if l.ID == leadID {
				leadName = l.Name()
				if message == "" {
					message = ctl.DisplayMessage(l.ID, l.PersonalizedMessage)
				}
				break
			}
		}

		ok := ctl.SendInvite(cmd.Context(), leadID, message)

		status := storage.InviteSent
		if !ok {
			status = storage.InviteFailed
		}
		if _, err := store.RecordInvite(storage.Invite{
			LeadID:   leadID,
			LeadName: leadName,
			Message:  message,
			Status:   status,
		}); err != nil {
			printWarning("audit log write failed: %v", err)
		}

		if !ok {
			return fmt.Errorf("invitation to lead %s failed", leadID)
		}
		printSuccess("Invitation sent to %s", displayName(leadName, leadID))
		return nil
	},
}

var inviteLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recently attempted invitations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp()
		if err != nil {
			return err
		}

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		rows, err := store.RecentInvites(limit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No invitations recorded.")
			return nil
		}

		for _, inv := range rows {
			marker := colorize(colorGreen, "sent  ")
			if inv.Status == storage.InviteFailed {
				marker = colorize(colorRed, "failed")
			}
			fmt.Printf("%s  %s  %s\n",
				inv.CreatedAt.Local().Format("Jan 2 15:04"),
				marker,
				displayName(inv.LeadName, inv.LeadID),
			)
		}
		return nil
	},
}

func newLeadsController(a *app, store *storage.Store) *leads.Controller {
	ctl := leads.NewController(a.client, config.Duration(a.cfg.Poll.LeadsInterval, 2*time.Minute), slog.Default())
	ctl.SetSnapshotter(store)
	return ctl
}

func printLeads(list []leads.Lead) {
	if len(list) == 0 {
		fmt.Println("No leads found.")
		return
	}
	for _, l := range list {
		line := fmt.Sprintf("%s  %s", colorize(colorCyan, l.ID), colorize(colorBold, l.Name()))
		if l.Title != "" || l.Company != "" {
			line += fmt.Sprintf("  %s @ %s", l.Title, l.Company)
		}
		if s := l.ScoreString(); s != "" {
			line += fmt.Sprintf("  [%s]", s)
		}
		if l.ConnectionStatus != "" {
			line += fmt.Sprintf("  (%s)", l.ConnectionStatus)
		}
		fmt.Println(line)
	}
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return "lead " + id
}

func init() {
	leadsListCmd.Flags().String("view", "all", "view to list: all, approved, or ready")
	leadsListCmd.Flags().Bool("cached", false, "show the last cached snapshot without contacting the backend")
	inviteSendCmd.Flags().String("message", "", "edited message text (default: the generated message)")
	inviteLogCmd.Flags().Int("limit", 20, "maximum number of log rows")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsRefreshCmd)
	inviteCmd.AddCommand(inviteSendCmd)
	inviteCmd.AddCommand(inviteLogCmd)
}
