package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveOwner(t *testing.T) {
	routes := DefaultRoutes()

	tests := []struct {
		step      string
		wantOwner string
		wantOK    bool
	}{
		{"Deploy the service to staging", "builder", true},
		{"Implement API endpoints", "builder", true},
		{"Write campaign copy for launch", "marketer", true},
		{"Research competitor pricing", "researcher", true},
		{"Run security review", "reviewer", true},
		{"SCAFFOLD PROJECT STRUCTURE", "builder", true},
		{"Think about things", "", false},
	}

	for _, tt := range tests {
		owner, ok := ResolveOwner(routes, tt.step)
		if ok != tt.wantOK || owner != tt.wantOwner {
			t.Errorf("ResolveOwner(%q) = (%q, %v), want (%q, %v)",
				tt.step, owner, ok, tt.wantOwner, tt.wantOK)
		}
	}
}

func TestResolveOwnerFirstMatchWins(t *testing.T) {
	routes := DefaultRoutes()

	// "generate" (builder) precedes "report"-adjacent research keywords in
	// the table, so mixed steps route to the earlier entry.
	owner, ok := ResolveOwner(routes, "Generate research report")
	if !ok || owner != "builder" {
		t.Errorf("expected first keyword in table order to win, got %q", owner)
	}
}

func TestEnsureRoutable(t *testing.T) {
	routes := DefaultRoutes()
	steps := []string{
		"Deploy the new version",
		"Think about the roadmap",
	}

	got := EnsureRoutable(routes, steps)
	if got[0] != "Deploy the new version" {
		t.Errorf("routable step must pass through unchanged, got %q", got[0])
	}
	if got[1] != "Research and analyze: Think about the roadmap" {
		t.Errorf("unroutable step must be rewritten, got %q", got[1])
	}
	if _, ok := ResolveOwner(routes, got[1]); !ok {
		t.Error("rewritten step must be routable")
	}
}

func TestDeriveSteps(t *testing.T) {
	tests := []struct {
		capability string
		wantLen    int
	}{
		{"build", 7},
		{"research", 5},
		{"estimate", 5},
		{"workflow", 5},
		{"chat", 3},
		{"unknown", 2},
	}

	for _, tt := range tests {
		got := DeriveSteps(tt.capability, "some query")
		if len(got) != tt.wantLen {
			t.Errorf("DeriveSteps(%q) returned %d steps, want %d",
				tt.capability, len(got), tt.wantLen)
		}
	}
}

func TestDeriveStepsDefaultTruncatesQuery(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}

	steps := DeriveSteps("unknown", string(long))
	if len(steps[0]) > len("Analyze: ")+100 {
		t.Errorf("default first step should cap the query excerpt, got %d chars", len(steps[0]))
	}
}

func TestLoadRoutesOverlayTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	overlay := "routes:\n  - keyword: deploy\n    owner: release-owner\n"
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	routes, err := LoadRoutes(path)
	if err != nil {
		t.Fatalf("LoadRoutes: %v", err)
	}

	owner, ok := ResolveOwner(routes, "Deploy to production")
	if !ok || owner != "release-owner" {
		t.Errorf("overlay route should win over default, got %q", owner)
	}

	// Defaults still apply for keywords the overlay does not cover.
	owner, ok = ResolveOwner(routes, "Run security review")
	if !ok || owner != "reviewer" {
		t.Errorf("default routes should remain, got %q", owner)
	}
}

func TestLoadRoutesRejectsIncompleteEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yaml")
	if err := os.WriteFile(path, []byte("routes:\n  - keyword: deploy\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRoutes(path); err == nil {
		t.Error("expected error for route missing owner")
	}
}
