// Package audit provides a hash-chained in-memory audit ledger for the
// dispatch pipeline. Every governance and lifecycle action is recorded in
// three views: a platform log, a per-requester receipt log, and a SHA-256
// hash chain whose integrity can be verified after the fact.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/pkg/models"
)

// Action identifies what kind of event an audit entry records.
type Action string

const (
	ActionPacketBuilt   Action = "packet_built"
	ActionTaskCreated   Action = "task_created"
	ActionStepExecuted  Action = "step_executed"
	ActionTaskCompleted Action = "task_completed"
	ActionTaskFailed    Action = "task_failed"
	ActionTaskCanceled  Action = "task_canceled"
	ActionSweepRun      Action = "sweep_run"
)

// GenesisHash anchors the chain before the first entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one recorded event.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Action    Action         `json:"action"`
	Detail    map[string]any `json:"detail,omitempty"`
	Cost      models.Cost    `json:"cost"`
}

// ChainEntry is an Entry extended with its position in the hash chain.
type ChainEntry struct {
	Entry
	PrevHash string `json:"prevHash"`
	Hash     string `json:"hash"`
}

// Receipt is returned from Record so callers can reference the entry later.
type Receipt struct {
	EntryID   string
	ChainHash string
}

// Stats summarizes ledger contents.
type Stats struct {
	PlatformCount int
	ReceiptCount  int
	ChainLength   int
}

// Ledger is a thread-safe triple-view audit log.
type Ledger struct {
	mu       sync.Mutex
	platform []Entry
	receipts map[string][]Entry
	chain    []ChainEntry
	clock    func() time.Time
}

// NewLedger creates an empty ledger using the system clock.
func NewLedger() *Ledger {
	return &Ledger{receipts: make(map[string][]Entry), clock: time.Now}
}

// NewLedgerWithClock creates a ledger with an injected clock for tests.
func NewLedgerWithClock(clock func() time.Time) *Ledger {
	return &Ledger{receipts: make(map[string][]Entry), clock: clock}
}

// Record writes one event to all three views and extends the hash chain.
func (l *Ledger) Record(actor string, action Action, detail map[string]any, cost models.Cost) Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: l.clock().UTC(),
		Actor:     actor,
		Action:    action,
		Detail:    detail,
		Cost:      cost,
	}

	l.platform = append(l.platform, e)
	l.receipts[actor] = append(l.receipts[actor], e)

	prev := GenesisHash
	if n := len(l.chain); n > 0 {
		prev = l.chain[n-1].Hash
	}
	ce := ChainEntry{Entry: e, PrevHash: prev}
	ce.Hash = hashEntry(ce)
	l.chain = append(l.chain, ce)

	return Receipt{EntryID: e.ID, ChainHash: ce.Hash}
}

// Receipts returns the entries recorded for one actor, oldest first.
func (l *Ledger) Receipts(actor string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.receipts[actor]...)
}

// Chain returns a copy of the full hash chain.
func (l *Ledger) Chain() []ChainEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ChainEntry(nil), l.chain...)
}

// Verify walks the chain and reports the first broken link, if any.
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := GenesisHash
	for i, ce := range l.chain {
		if ce.PrevHash != prev {
			return fmt.Errorf("chain entry %d: prev hash mismatch", i)
		}
		want := hashEntry(ce)
		if ce.Hash != want {
			return fmt.Errorf("chain entry %d: hash mismatch", i)
		}
		prev = ce.Hash
	}
	return nil
}

// Stats reports how many entries each view holds.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	receiptCount := 0
	for _, rs := range l.receipts {
		receiptCount += len(rs)
	}
	return Stats{
		PlatformCount: len(l.platform),
		ReceiptCount:  receiptCount,
		ChainLength:   len(l.chain),
	}
}

// hashEntry computes the SHA-256 of the entry payload plus its PrevHash.
// The Hash field itself is excluded from the digest input.
func hashEntry(ce ChainEntry) string {
	payload, err := json.Marshal(struct {
		Entry
		PrevHash string `json:"prevHash"`
	}{Entry: ce.Entry, PrevHash: ce.PrevHash})
	if err != nil {
		// Entries only carry JSON-safe values; fall back to a stable string.
		payload = []byte(strings.Join([]string{ce.ID, string(ce.Action), ce.PrevHash}, "|"))
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
