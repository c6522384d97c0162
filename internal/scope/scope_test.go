package scope

import (
	"strings"
	"testing"

	"github.com/kestrelhq/kestrel/internal/intent"
	"github.com/kestrelhq/kestrel/internal/taskgraph"
	"github.com/kestrelhq/kestrel/pkg/models"
)

func TestShapeDetectsDomains(t *testing.T) {
	in := intent.Normalize("build the backend api for billing")
	g := taskgraph.Build(in)
	b := Shape(in, g)

	if !b.HasDomain("engineering") {
		t.Errorf("expected engineering domain, got %v", b.Domains)
	}
	if len(b.Sources) != len(b.Domains) {
		t.Errorf("sources %v and domains %v out of step", b.Sources, b.Domains)
	}
}

func TestShapeDefaultsToGeneral(t *testing.T) {
	in := intent.Normalize("explain the refund policy wording")
	g := taskgraph.Build(in)
	b := Shape(in, g)

	if len(b.Domains) != 1 || b.Domains[0] != "general" {
		t.Errorf("domains = %v, want [general]", b.Domains)
	}
	if b.Sources[0] != "core" {
		t.Errorf("sources = %v, want [core]", b.Sources)
	}
}

func TestShapeScopedContextIsMinimized(t *testing.T) {
	raw := "build the frontend dashboard with charts and a settings page"
	in := intent.Normalize(raw)
	g := taskgraph.Build(in)
	b := Shape(in, g)

	for k, v := range b.ScopedContext {
		if strings.Contains(v, raw) {
			t.Errorf("scoped context %q carries the full raw text", k)
		}
	}
	if b.ScopedContext["task_count"] != "4" {
		t.Errorf("task_count = %q, want 4", b.ScopedContext["task_count"])
	}
	if !strings.Contains(b.ScopedContext["signals"], "BUILD") {
		t.Errorf("signals = %q, want BUILD present", b.ScopedContext["signals"])
	}
}

func TestShapePayloadGrowsWithGraph(t *testing.T) {
	in := intent.Normalize("research the dataset")
	small := Shape(in, models.TaskGraph{TotalNodes: 1})
	large := Shape(in, models.TaskGraph{TotalNodes: 8})
	if large.PayloadSizeTokens <= small.PayloadSizeTokens {
		t.Errorf("payload did not grow: %d vs %d", small.PayloadSizeTokens, large.PayloadSizeTokens)
	}
}

func TestMultiSource(t *testing.T) {
	in := intent.Normalize("analyze the analytics dataset for churn")
	b := Shape(in, models.TaskGraph{TotalNodes: 4})
	if !MultiSource(b) {
		t.Errorf("expected multi-source bundle, domains %v", b.Domains)
	}

	plain := Shape(intent.Normalize("build the backend api"), models.TaskGraph{TotalNodes: 4})
	if MultiSource(plain) {
		t.Errorf("engineering-only bundle should not be multi-source: %v", plain.Domains)
	}
}
