package packet

import (
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

func testBuilder() *Builder {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewBuilderWith(func() time.Time { return fixed }, 0)
}

func TestBuildExecutionPacketForBuildRequest(t *testing.T) {
	b := testBuilder()

	pkt := b.BuildExecutionPacket("please implement a login page for the admin portal", "alice")

	if pkt.PacketID == "" {
		t.Error("packet must carry an id")
	}
	if !pkt.Intent.HasSignal(models.SignalBuild) {
		t.Errorf("expected BUILD signal, got %v", pkt.Intent.Signals)
	}
	if pkt.Graph.TotalNodes != 4 {
		t.Errorf("build chain should yield 4 nodes, got %d", pkt.Graph.TotalNodes)
	}
	if !pkt.Policy.Cleared {
		t.Errorf("clean build request should clear, blockers=%v", pkt.Policy.Blockers)
	}
	if pkt.Cost.EstimatedTokens <= 0 {
		t.Error("cost estimate must be positive")
	}
	if pkt.Timestamp.IsZero() {
		t.Error("packet timestamp must be set")
	}
}

func TestBuildExecutionPacketNoSignalIsBlocked(t *testing.T) {
	b := testBuilder()

	pkt := b.BuildExecutionPacket("hello there my good friend today", "alice")

	if len(pkt.Intent.Signals) != 0 {
		t.Fatalf("expected no signals, got %v", pkt.Intent.Signals)
	}
	if pkt.Policy.Cleared {
		t.Error("no-signal request must not clear")
	}
	if len(pkt.Policy.Blockers) == 0 {
		t.Error("blockers must explain the denial")
	}
	// A blocked packet is still fully formed.
	if pkt.Graph.TotalNodes == 0 {
		t.Error("fallback node should still be present")
	}
}

func TestBuildExecutionPacketNeverPanics(t *testing.T) {
	b := testBuilder()
	inputs := []string{"", "    ", "???", "for", "build build build research research research automate"}
	for _, in := range inputs {
		pkt := b.BuildExecutionPacket(in, "alice")
		if pkt.PacketID == "" {
			t.Errorf("input %q: packet must still be assembled", in)
		}
	}
}

func TestRouteEngineSelection(t *testing.T) {
	tests := []struct {
		name    string
		signals []models.Signal
		nodes   int
		class   models.TokenClass
		want    models.Engine
	}{
		{"default direct", []models.Signal{models.SignalChat}, 1, models.TokenClassLight, models.EngineDirect},
		{"workflow signal", []models.Signal{models.SignalWorkflow}, 3, models.TokenClassStandard, models.EngineWorkflow},
		{"large build", []models.Signal{models.SignalBuild}, 4, models.TokenClassStandard, models.EngineHybrid},
		{"small build stays direct", []models.Signal{models.SignalBuild}, 3, models.TokenClassStandard, models.EngineDirect},
		{"enterprise spend", []models.Signal{models.SignalChat}, 12, models.TokenClassEnterprise, models.EngineHybrid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := models.NormalizedIntent{Signals: tt.signals}
			g := models.TaskGraph{TotalNodes: tt.nodes}
			cost := models.CostEstimate{TokenClass: tt.class}
			got := Route(in, g, cost)
			if got.Engine != tt.want {
				t.Errorf("engine = %s, want %s", got.Engine, tt.want)
			}
		})
	}
}

func TestRouteOwnerSelection(t *testing.T) {
	research := Route(models.NormalizedIntent{Signals: []models.Signal{models.SignalResearch}}, models.TaskGraph{}, models.CostEstimate{})
	if research.ExecutionOwner != "researcher" {
		t.Errorf("research routes to researcher, got %q", research.ExecutionOwner)
	}

	chat := Route(models.NormalizedIntent{Signals: []models.Signal{models.SignalChat}}, models.TaskGraph{}, models.CostEstimate{})
	if chat.ExecutionOwner != "marketer" {
		t.Errorf("pure chat routes to marketer, got %q", chat.ExecutionOwner)
	}

	mixed := Route(models.NormalizedIntent{Signals: []models.Signal{models.SignalChat, models.SignalBuild}}, models.TaskGraph{}, models.CostEstimate{})
	if mixed.ExecutionOwner != "pipeline" || mixed.Fallback != "builder" {
		t.Errorf("mixed intent runs through the pipeline, got %+v", mixed)
	}
}
