package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/packet"
	"github.com/kestrelhq/kestrel/pkg/models"
)

var planJSON bool
var planRequestedBy string

var planCmd = &cobra.Command{
	Use:   "plan <message>",
	Short: "Build and print an execution packet without running it",
	Long: `Run a request through the governance pipeline and print the resulting
execution packet: detected signals, the decomposed task graph with its
critical path, the policy verdict, and the cost estimate.

A blocked packet is printed like any other; the blockers explain why it
would be refused at dispatch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the raw packet as JSON")
	planCmd.Flags().StringVar(&planRequestedBy, "requested-by", "cli", "Requester recorded on the packet")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	message := strings.Join(args, " ")
	builder := packet.NewBuilderWith(nil, cfg.Cost.USDPerToken)
	pkt := builder.BuildExecutionPacket(message, planRequestedBy)

	if planJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pkt)
	}

	printPacket(pkt)
	return nil
}

func printPacket(pkt models.ExecutionPacket) {
	bold := color.New(color.Bold)

	bold.Printf("packet %s\n\n", pkt.PacketID)

	fmt.Printf("intent: %q\n", pkt.Intent.Normalized)
	if len(pkt.Intent.Signals) > 0 {
		signals := make([]string, len(pkt.Intent.Signals))
		for i, s := range pkt.Intent.Signals {
			signals[i] = string(s)
		}
		fmt.Printf("signals: %s\n", strings.Join(signals, ", "))
	} else {
		printStatus("⚠", "no intent signals detected", color.FgYellow)
	}
	for _, a := range pkt.Intent.Ambiguities {
		printStatus("⚠", a, color.FgYellow)
	}

	fmt.Println()
	bold.Printf("graph: %d node(s), critical path %d\n", pkt.Graph.TotalNodes, len(pkt.Graph.CriticalPath))
	for _, n := range pkt.Graph.Nodes {
		deps := ""
		if len(n.Dependencies) > 0 {
			deps = " ← " + strings.Join(n.Dependencies, ", ")
		}
		fmt.Printf("  %s: %s%s\n", n.ID, n.Objective, deps)
	}

	fmt.Println()
	if pkt.Policy.Cleared {
		printStatus("✓", fmt.Sprintf("cleared · risk %s · sandbox %v", pkt.Policy.RiskLevel, pkt.Policy.SandboxRequired), color.FgGreen)
	} else {
		printStatus("✗", fmt.Sprintf("blocked · risk %s", pkt.Policy.RiskLevel), color.FgRed)
		for _, b := range pkt.Policy.Blockers {
			fmt.Printf("    %s\n", b)
		}
	}
	if len(pkt.Policy.Permissions) > 0 {
		fmt.Printf("permissions: %s\n", strings.Join(pkt.Policy.Permissions, ", "))
	}

	fmt.Println()
	fmt.Printf("cost: %s · %d tokens ($%.4f) · depth %d\n",
		pkt.Cost.TokenClass, pkt.Cost.EstimatedTokens, pkt.Cost.EstimatedUSD, pkt.Cost.ExecutionDepth)
	for _, flag := range pkt.Cost.HighCostFlags {
		printStatus("⚠", flag, color.FgYellow)
	}

	fmt.Printf("routing: %s via %s", pkt.Routing.ExecutionOwner, pkt.Routing.Engine)
	if pkt.Routing.Fallback != "" {
		fmt.Printf(" (fallback %s)", pkt.Routing.Fallback)
	}
	fmt.Println()
}
