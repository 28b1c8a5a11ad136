// package jobs orchestrates playlist processing: dedup admission, the job
// state machine, and the background storage watcher.
package jobs

import "sync"

// Ledger is the process-lifetime dedup gate for playlist files.
//
// Admit returns true exactly once per id; every later call for the same id
// returns false. There is no eviction: a file processed once is never
// reprocessed by this process.
type Ledger struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]bool)}
}

// Admit records id and reports whether this call was the first to do so.
func (l *Ledger) Admit(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen[id] {
		return false
	}
	l.seen[id] = true
	return true
}

// Size returns how many ids have been admitted.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
