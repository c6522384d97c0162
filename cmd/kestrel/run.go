package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/dispatch"
	"github.com/kestrelhq/kestrel/pkg/models"
)

var runExecutorID string
var runCapability string
var runRequestedBy string
var runTimeout time.Duration

var runCmd = &cobra.Command{
	Use:   "run <message>",
	Short: "Govern, dispatch, and stream a request to completion",
	Long: `Build an execution packet for the message, dispatch it as a tracked
task, and stream its lifecycle events until the task reaches a terminal
state. A blocked packet is refused before any work runs.

With --executor or --capability the governance pipeline is bypassed and
the message is dispatched directly to the named owner.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runExecutorID, "executor", "", "Dispatch directly to this executor ID")
	runCmd.Flags().StringVar(&runCapability, "capability", "", "Dispatch directly to the first owner of this capability")
	runCmd.Flags().StringVar(&runRequestedBy, "requested-by", "cli", "Requester recorded on the task")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "Give up waiting after this long")
}

func runRun(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	message := strings.Join(args, " ")

	var task *models.Task
	if runExecutorID != "" || runCapability != "" {
		task, err = rt.dispatcher.CreateTask(dispatch.CreateRequest{
			ExecutorID:  runExecutorID,
			Capability:  runCapability,
			Message:     message,
			RequestedBy: runRequestedBy,
		})
	} else {
		pkt := rt.builder.BuildExecutionPacket(message, runRequestedBy)
		printStatus("•", fmt.Sprintf("packet %s · %s via %s", pkt.PacketID, pkt.Routing.ExecutionOwner, pkt.Routing.Engine), color.FgCyan)
		task, err = rt.dispatcher.CreateTaskFromPacket(pkt, runRequestedBy)
	}
	if err != nil {
		return err
	}

	printStatus("•", fmt.Sprintf("task %s → %s", task.ID, task.ExecutorID), color.FgCyan)

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	unsubscribe, err := rt.dispatcher.Subscribe(task.ID, func(ev dispatch.TaskEvent) {
		printEvent(ev)
		if ev.Type == dispatch.EventDone {
			finish()
		}
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	// The task may have finished between creation and subscription.
	if t, err := rt.dispatcher.GetTask(task.ID); err == nil && t.Status.Terminal() {
		finish()
	}

	select {
	case <-done:
	case <-time.After(runTimeout):
		return fmt.Errorf("task %s did not finish within %s", task.ID, runTimeout)
	}

	final, err := rt.dispatcher.GetTask(task.ID)
	if err != nil {
		return err
	}
	if final.Status == models.TaskStatusCompleted {
		printStatus("✓", fmt.Sprintf("completed · %d tokens ($%.4f)", final.Cost.Tokens, final.Cost.USD), color.FgGreen)
		return nil
	}
	printStatus("✗", fmt.Sprintf("%s · %d tokens ($%.4f)", final.Status, final.Cost.Tokens, final.Cost.USD), color.FgRed)
	return fmt.Errorf("task %s %s", final.ID, final.Status)
}

// printEvent renders one lifecycle event as a single line.
func printEvent(ev dispatch.TaskEvent) {
	switch ev.Type {
	case dispatch.EventStatus:
		fmt.Printf("  status: %s\n", ev.Status)
	case dispatch.EventProgress:
		fmt.Printf("  %s\n", ev.Text)
	case dispatch.EventArtifact:
		if ev.Artifact != nil {
			fmt.Printf("  artifact %s: %s\n", ev.Artifact.Name, firstLine(ev.Artifact.Content))
		}
	case dispatch.EventCost:
		if ev.Cost != nil {
			fmt.Printf("  cost: %d tokens ($%.4f)\n", ev.Cost.Tokens, ev.Cost.USD)
		}
	case dispatch.EventMessage:
		fmt.Printf("  %s\n", ev.Text)
	case dispatch.EventError:
		printStatus("✗", ev.Text, color.FgRed)
	}
}

// firstLine truncates multi-line content to its first line for display.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
