package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coldreach/leadctl/internal/api"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cached, _ := cmd.Flags().GetBool("cached")

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
			payload, fetchedAt, err := store.LastStats()
			if err != nil {
				return fmt.Errorf("no cached stats — run without --cached first")
			}
			var stats api.Stats
			if err := json.Unmarshal(payload, &stats); err != nil {
				return fmt.Errorf("decoding cached stats: %w", err)
			}
			printWarning("showing stats from %s", fetchedAt.Local().Format("Jan 2 15:04"))
			printStats(stats)
			return nil
		}

		if err := a.requireAuth(); err != nil {
			return err
		}

		stats, err := a.client.DashboardStats(cmd.Context())
		if err != nil {
			return err
		}

		if payload, err := json.Marshal(stats); err == nil {
			if err := store.SaveStats(payload); err != nil {
				printWarning("could not cache stats: %v", err)
			}
		}

		printStats(stats)
		return nil
	},
}

func printStats(stats api.Stats) {
	printStatus("Total leads", "%d", stats.TotalLeads)
	printStatus("Approved", "%d", stats.ApprovedLeads)
	printStatus("Invites sent", "%d", stats.InvitesSent)
}

func init() {
	statsCmd.Flags().Bool("cached", false, "show the last cached stats without contacting the backend")
}
