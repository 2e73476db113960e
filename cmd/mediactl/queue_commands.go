package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tarikstafford/reve-app-sub000/internal/app"
	"github.com/tarikstafford/reve-app-sub000/internal/domain"
	"github.com/tarikstafford/reve-app-sub000/internal/store"
	"github.com/tarikstafford/reve-app-sub000/internal/task"
)

// maxErrorColumn bounds the error column in task listings.
const maxErrorColumn = 60

func newCycleCommand(ctx *commandContext) *cobra.Command {
	var drain bool

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one processing cycle, or cycles until the queue is idle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				out := cmd.OutOrStdout()
				for {
					result, err := a.Orchestrator.RunCycle(cmd.Context())
					fmt.Fprintln(out, describeCycle(result))
					if err != nil {
						return fmt.Errorf("cycle failed: %w", err)
					}
					if !drain || !result.Processed() {
						return nil
					}
				}
			})
		},
	}
	cmd.Flags().BoolVar(&drain, "drain", false, "Keep running cycles until no task is processed")
	return cmd
}

func describeCycle(r task.CycleResult) string {
	if !r.Processed() {
		return fmt.Sprintf("%s: %s", r.Outcome, r.Message)
	}
	line := fmt.Sprintf("%s: task %s (attempts %d)", r.Outcome, r.TaskID, r.Attempts)
	if r.Outcome == task.OutcomeCompleted {
		return line + "\n  image: " + r.ImageURL + "\n  video: " + r.VideoURL
	}
	return line + "\n  error: " + r.Message
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reclaim tasks stuck in processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				timeout := olderThan
				if timeout <= 0 {
					timeout = a.Config.Queue.StuckTaskTimeout
				}
				reset, err := a.Orchestrator.SweepStuck(cmd.Context(), timeout)
				if err != nil {
					return fmt.Errorf("reset stuck tasks: %w", err)
				}
				n := len(reset)
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d stuck %s (idle longer than %s)\n", n, plural(n, "task"), timeout)
				for _, t := range reset {
					if t.Status == domain.TaskStatusFailed {
						fmt.Fprintf(cmd.OutOrStdout(), "  %s failed after %d attempts\n", t.ID, t.Attempts)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Idle time before a processing task counts as stuck (default from config)")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				stats, err := a.QueueService.Stats(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Pending", strconv.Itoa(stats.Pending)},
					{"Processing", strconv.Itoa(stats.Processing)},
					{"Completed", strconv.Itoa(stats.Completed)},
					{"Failed", strconv.Itoa(stats.Failed)},
					{"Total", strconv.Itoa(stats.Total())},
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		status     string
		entityType string
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.TaskFilter{Status: domain.TaskStatus(status), Limit: limit, Offset: offset}
			if entityType != "" {
				t, err := domain.ParseEntityType(entityType)
				if err != nil {
					return err
				}
				filter.EntityType = t
			}

			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				tasks, err := a.QueueService.ListTasks(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Type", "Status", "Attempts", "Video", "Updated", "Error"},
					buildTaskRows(tasks, time.Now()),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, processing, completed, failed)")
	cmd.Flags().StringVar(&entityType, "type", "", "Filter by entity type (dream, manifestation)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of tasks")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of tasks to skip")
	return cmd
}

func buildTaskRows(tasks []*domain.QueueTask, now time.Time) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			t.ID.String(),
			string(t.EntityType),
			string(t.Status),
			strconv.Itoa(t.Attempts),
			string(t.VideoMode),
			humanize.RelTime(t.UpdatedAt, now, "ago", "from now"),
			truncate(t.ErrorMessage, maxErrorColumn),
		})
	}
	return rows
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <task-id>",
		Short: "Return a failed task to pending with attempts reset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			return ctx.withApp(cmd.Context(), func(a *app.Application) error {
				qt, err := a.QueueService.RetryFailed(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("retry task %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %s is %s again (%s %s)\n", qt.ID, qt.Status, qt.EntityType, qt.EntityID)
				return nil
			})
		},
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
