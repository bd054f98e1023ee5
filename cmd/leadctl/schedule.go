package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldreach/leadctl/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage pipeline schedules",
}

var scheduleCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a one-time or recurring schedule",
	Long: `Create a one-time or recurring schedule.

Examples:
  leadctl schedule create --at 2026-09-03T14:30:00Z
  leadctl schedule create --pattern daily --time 09:00
  leadctl schedule create --pattern weekdays --time 08:30
  leadctl schedule create --pattern custom_days --every 3 --time 14:30
  leadctl schedule create --cron "0 9 * * 1-5"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetString("at")
		pattern, _ := cmd.Flags().GetString("pattern")
		timeOfDay, _ := cmd.Flags().GetString("time")
		every, _ := cmd.Flags().GetString("every")
		cronExpr, _ := cmd.Flags().GetString("cron")

		var req schedule.CreateRequest
		switch {
		case at != "":
			t, err := parseRunAt(at)
			if err != nil {
				return err
			}
			req = schedule.NewOneTime(t)
		case cronExpr != "":
			req = schedule.NewRecurring(cronExpr)
		case pattern != "":
			expr, err := schedule.BuildCron(schedule.Pattern(pattern), timeOfDay, every)
			if err != nil {
				return err
			}
			req = schedule.NewRecurring(expr)
		default:
			return fmt.Errorf("one of --at, --pattern, or --cron is required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		mgr := schedule.NewManager(a.client, slog.Default())
		if !mgr.Create(cmd.Context(), req) {
			return fmt.Errorf("creating schedule failed")
		}

		if req.Type == schedule.TypeRecurring {
			printSuccess("Schedule created: %s", schedule.Humanize(req.Cron))
			if next, err := schedule.NextRun(req.Cron, time.Now()); err == nil {
				printStatus("Next run", "%s", schedule.FormatRunAt(next))
			}
		} else {
			if t, err := time.Parse(time.RFC3339, req.RunAt); err == nil {
				printSuccess("Schedule created: %s", schedule.FormatRunAt(t))
			} else {
				printSuccess("Schedule created")
			}
		}
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		mgr := schedule.NewManager(a.client, slog.Default())
		list := mgr.Fetch(cmd.Context())
		if len(list) == 0 {
			fmt.Println("No schedules found.")
			return nil
		}

		for _, rec := range list {
			state := colorize(colorGreen, "active")
			if !rec.Active {
				state = colorize(colorYellow, "paused")
			}
			line := fmt.Sprintf("%s  %-9s  %s  %s",
				colorize(colorCyan, rec.ID), rec.Type, state, rec.Summary())
			if rec.NextRun != "" {
				if t, err := time.Parse(time.RFC3339, rec.NextRun); err == nil {
					line += fmt.Sprintf("  (next: %s)", schedule.FormatRunAt(t.Local()))
				}
			}
			fmt.Println(line)
		}
		return nil
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		mgr := schedule.NewManager(a.client, slog.Default())
		if !mgr.Delete(cmd.Context(), args[0]) {
			return fmt.Errorf("deleting schedule %s failed", args[0])
		}
		printSuccess("Schedule %s deleted", args[0])
		return nil
	},
}

// parseRunAt accepts RFC 3339 or a local "2006-01-02 15:04" timestamp.
func parseRunAt(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", v, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or \"2006-01-02 15:04\"", v)
}

func init() {
	scheduleCreateCmd.Flags().String("at", "", "run once at this time")
	scheduleCreateCmd.Flags().String("pattern", "", "recurring pattern: daily, weekdays, weekly_monday, or custom_days")
	scheduleCreateCmd.Flags().String("time", "09:00", "time of day for recurring patterns (HH:MM, 24-hour)")
	scheduleCreateCmd.Flags().String("every", "", "day interval for the custom_days pattern")
	scheduleCreateCmd.Flags().String("cron", "", "raw 5-field cron expression")

	scheduleCmd.AddCommand(scheduleCreateCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleDeleteCmd)
}
