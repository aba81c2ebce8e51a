package memory

import (
	"context"
	"fmt"
	"sync"

	export "chantierpro/internal/export"
)

// Store keeps journal entries in memory. It backs tests and the dev setup
// where no spreadsheet is configured.
type Store struct {
	mu    sync.Mutex
	items []export.JournalEntry
}

func New() *Store {
	return &Store{}
}

var _ export.JournalWriter = (*Store)(nil)

// AppendEntry stores the entry and returns a synthetic row reference.
func (s *Store) AppendEntry(_ context.Context, e export.JournalEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []export.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.JournalEntry(nil), s.items...)
}
