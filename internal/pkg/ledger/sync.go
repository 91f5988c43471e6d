package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/inktoons/inktoons/app/repository"
	"github.com/inktoons/inktoons/internal/pkg/ledgerstore"
)

// DefaultDebounce coalesces bursts of ledger mutations into a single remote
// write per user.
const DefaultDebounce = 2 * time.Second

// Syncer mirrors ledger rows to the remote store after a debounce window.
// A failed push is logged and retried on the next mutation; the local row
// remains authoritative in the meantime.
type Syncer struct {
	repo     repository.LedgerRepository
	remote   ledgerstore.RemoteStore
	debounce time.Duration

	mu     sync.Mutex
	timers map[uint]*time.Timer
	wg     sync.WaitGroup
	closed bool
}

// NewSyncer creates a syncer with the default debounce window. remote may be
// nil, in which case scheduling is a no-op.
func NewSyncer(repo repository.LedgerRepository, remote ledgerstore.RemoteStore) *Syncer {
	return &Syncer{
		repo:     repo,
		remote:   remote,
		debounce: DefaultDebounce,
		timers:   make(map[uint]*time.Timer),
	}
}

// SetDebounce adjusts the debounce window. Call before the first Schedule.
func (s *Syncer) SetDebounce(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// Remote returns the configured remote store, nil when syncing is disabled.
func (s *Syncer) Remote() ledgerstore.RemoteStore {
	return s.remote
}

// Schedule arms (or re-arms) the debounced push for a user. Repeated calls
// within the window collapse into one remote write carrying the latest row.
func (s *Syncer) Schedule(userID uint) {
	if s.remote == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if t, ok := s.timers[userID]; ok {
		t.Reset(s.debounce)
		return
	}

	s.wg.Add(1)
	s.timers[userID] = time.AfterFunc(s.debounce, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, userID)
		s.mu.Unlock()
		s.push(userID)
	})
}

// Flush fires every pending push immediately and waits for completion. Used
// on shutdown and in tests.
func (s *Syncer) Flush() {
	s.mu.Lock()
	for _, t := range s.timers {
		t.Reset(0)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Close flushes pending pushes and rejects further scheduling.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Flush()
}

func (s *Syncer) push(userID uint) {
	state, err := s.repo.GetByUserID(userID)
	if err != nil {
		log.Warnf("ledger sync: load user %d failed: %v", userID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.remote.Put(ctx, state); err != nil {
		log.Warnf("ledger sync: push user %d failed: %v", userID, err)
	}
}
