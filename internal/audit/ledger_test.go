package audit

import (
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/pkg/models"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestRecordExtendsAllViews(t *testing.T) {
	l := NewLedgerWithClock(fixedClock())

	r1 := l.Record("alice", ActionTaskCreated, map[string]any{"taskId": "t1"}, models.Cost{})
	r2 := l.Record("alice", ActionTaskCompleted, nil, models.Cost{Tokens: 500, USD: 0.015})
	l.Record("bob", ActionTaskCreated, nil, models.Cost{})

	if r1.EntryID == "" || r1.ChainHash == "" {
		t.Error("receipt should carry entry id and chain hash")
	}
	if r1.ChainHash == r2.ChainHash {
		t.Error("distinct entries must produce distinct chain hashes")
	}

	stats := l.Stats()
	if stats.PlatformCount != 3 || stats.ReceiptCount != 3 || stats.ChainLength != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if got := len(l.Receipts("alice")); got != 2 {
		t.Errorf("expected 2 receipts for alice, got %d", got)
	}
	if got := len(l.Receipts("carol")); got != 0 {
		t.Errorf("expected no receipts for unknown actor, got %d", got)
	}
}

func TestChainAnchorsToGenesis(t *testing.T) {
	l := NewLedgerWithClock(fixedClock())
	l.Record("alice", ActionPacketBuilt, nil, models.Cost{})
	l.Record("alice", ActionTaskCreated, nil, models.Cost{})

	chain := l.Chain()
	if chain[0].PrevHash != GenesisHash {
		t.Errorf("first entry must anchor to genesis, got %q", chain[0].PrevHash)
	}
	if chain[1].PrevHash != chain[0].Hash {
		t.Error("second entry must chain off the first entry's hash")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	l := NewLedgerWithClock(fixedClock())
	for i := 0; i < 5; i++ {
		l.Record("alice", ActionStepExecuted, map[string]any{"step": i}, models.Cost{Tokens: 10})
	}

	if err := l.Verify(); err != nil {
		t.Fatalf("untouched chain should verify: %v", err)
	}

	l.chain[2].Detail["step"] = 99
	if err := l.Verify(); err == nil {
		t.Error("expected verification failure after tampering with an entry")
	}
}

func TestVerifyEmptyChain(t *testing.T) {
	l := NewLedger()
	if err := l.Verify(); err != nil {
		t.Errorf("empty chain should verify: %v", err)
	}
}
