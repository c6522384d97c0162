package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/dispatch"
	"github.com/kestrelhq/kestrel/internal/tui"
	"github.com/kestrelhq/kestrel/pkg/models"
)

var watchRequestedBy string

var watchCmd = &cobra.Command{
	Use:   "watch <message>",
	Short: "Dispatch a request and watch it in a live terminal view",
	Long: `Build an execution packet for the message, dispatch it, and follow
the task's lifecycle events in an interactive view. Press q to quit;
quitting does not cancel the task.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchRequestedBy, "requested-by", "cli", "Requester recorded on the task")
}

func runWatch(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	message := strings.Join(args, " ")
	pkt := rt.builder.BuildExecutionPacket(message, watchRequestedBy)
	task, err := rt.dispatcher.CreateTaskFromPacket(pkt, watchRequestedBy)
	if err != nil {
		return err
	}

	program := tea.NewProgram(tui.NewWatchModel(task.ID))

	unsubscribe, err := rt.dispatcher.Subscribe(task.ID, func(ev dispatch.TaskEvent) {
		program.Send(tui.EventMsg{Event: ev})
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch view: %w", err)
	}

	final, err := rt.dispatcher.GetTask(task.ID)
	if err != nil {
		return nil
	}
	if final.Status == models.TaskStatusCompleted {
		printStatus("✓", fmt.Sprintf("task %s completed · %d tokens ($%.4f)", final.ID, final.Cost.Tokens, final.Cost.USD), color.FgGreen)
	} else if final.Status.Terminal() {
		printStatus("✗", fmt.Sprintf("task %s %s", final.ID, final.Status), color.FgRed)
	} else {
		printStatus("•", fmt.Sprintf("task %s still %s", final.ID, final.Status), color.FgYellow)
	}
	return nil
}
