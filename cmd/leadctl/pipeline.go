package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coldreach/leadctl/internal/config"
	"github.com/coldreach/leadctl/internal/pipeline"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Start and monitor the lead pipeline",
}

var pipelineStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Kick off a pipeline run",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		if err := a.client.StartPipeline(cmd.Context()); err != nil {
			return err
		}
		printSuccess("Pipeline started")
		printStep("Run 'leadctl pipeline watch' to follow progress")
		return nil
	},
}

var pipelineStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current pipeline status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		st, err := a.client.PipelineStatus(cmd.Context())
		if err != nil {
			return err
		}

		printPipeline(st)
		return nil
	},
}

var pipelineWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the pipeline until it finishes",
	Long: `Poll the pipeline until it finishes.

The watch loop keeps polling while the pipeline is active and stops on
its own once message generation completes or a stage fails. Ctrl-C
stops it early.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		intervalStr, _ := cmd.Flags().GetString("interval")

		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireAuth(); err != nil {
			return err
		}

		if intervalStr == "" {
			intervalStr = a.cfg.Poll.PipelineInterval
		}
		interval := config.Duration(intervalStr, 60*time.Second)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		poller := pipeline.NewPoller(a.client, interval, slog.Default())

		// Lead views refresh in the background while the pipeline is
		// active, so the cache is warm when the run finishes.
		leadsCtl := newLeadsController(a, store)
		defer leadsCtl.StopPolling()

		st := poller.FetchStatus(ctx)
		if st == nil {
			return fmt.Errorf("could not reach backend")
		}
		printPipeline(*st)
		leadsCtl.SetPipelineActive(poller.IsActive())

		if !poller.IsPolling() {
			// Already idle, finished, or failed; nothing to follow.
			return nil
		}

		// Sample the poller's state and re-print on every change. The
		// poller stops its own loop when a stop condition is reached.
		last := *st
		sample := time.NewTicker(time.Second)
		defer sample.Stop()
		for {
			select {
			case <-ctx.Done():
				poller.StopPolling()
				return nil
			case <-sample.C:
				cur := poller.Status()
				if cur != last {
					last = cur
					printPipeline(cur)
				}
				leadsCtl.SetPipelineActive(poller.IsActive())
				if !poller.IsPolling() {
					if cur.Status == pipeline.StatusFailed {
						return fmt.Errorf("pipeline failed during %s", cur.JobType)
					}
					ready := leadsCtl.FetchReady(ctx)
					printSuccess("Pipeline finished — %d leads ready for review", len(ready))
					return nil
				}
			}
		}
	},
}

func printPipeline(st pipeline.Status) {
	if st.JobType == "" && !st.IsActive() {
		printStatus("Pipeline", "idle")
		return
	}
	printStatus("Pipeline", "%s (%s)", st.JobType, st.Status)
	for _, step := range pipeline.DeriveSteps(st) {
		marker := "  "
		switch step.Status {
		case pipeline.StepRunning:
			marker = colorize(colorCyan, "→ ")
		case pipeline.StepCompleted:
			marker = colorize(colorGreen, "✓ ")
		}
		fmt.Printf("  %s%s\n", marker, step.Name)
	}
}

func init() {
	pipelineWatchCmd.Flags().String("interval", "", "poll interval (default from config)")
	pipelineCmd.AddCommand(pipelineStartCmd)
	pipelineCmd.AddCommand(pipelineStatusCmd)
	pipelineCmd.AddCommand(pipelineWatchCmd)
}
