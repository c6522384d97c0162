package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/state"
	"github.com/kestrelhq/kestrel/pkg/models"
)

var tasksLimit int
var tasksArchived bool

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List recent tasks",
	Long: `List tasks tracked by the in-memory store, newest first.

With --archived the list comes from the local journal instead, which
holds terminal tasks across process restarts.`,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().IntVar(&tasksLimit, "limit", 20, "Maximum number of tasks to show")
	tasksCmd.Flags().BoolVar(&tasksArchived, "archived", false, "List archived tasks from the journal")
}

func runTasks(cmd *cobra.Command, args []string) error {
	if tasksArchived {
		return listArchived()
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	tasks := rt.dispatcher.ListRecentTasks(tasksLimit)
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	for _, t := range tasks {
		printTaskLine(*t)
	}
	return nil
}

func listArchived() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.Journal.Path
	if path == "" {
		path = state.DefaultJournalPath()
	}
	journal, err := state.Open(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	tasks, err := journal.Recent(tasksLimit)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("no archived tasks")
		return nil
	}
	for _, t := range tasks {
		printTaskLine(t)
	}
	return nil
}

func printTaskLine(t models.Task) {
	symbol, attr := statusGlyph(t.Status)
	c := color.New(attr)
	fmt.Printf("%s %s  %-9s  %-10s  %6d tok  $%.4f  %s\n",
		c.Sprint(symbol), t.ID, t.Status, t.ExecutorID,
		t.Cost.Tokens, t.Cost.USD,
		t.Metadata.CreatedAt.Local().Format("2006-01-02 15:04"))
}

func statusGlyph(s models.TaskStatus) (string, color.Attribute) {
	switch s {
	case models.TaskStatusCompleted:
		return "✓", color.FgGreen
	case models.TaskStatusFailed:
		return "✗", color.FgRed
	case models.TaskStatusCanceled:
		return "−", color.FgYellow
	case models.TaskStatusWorking:
		return "•", color.FgCyan
	default:
		return "○", color.FgWhite
	}
}
