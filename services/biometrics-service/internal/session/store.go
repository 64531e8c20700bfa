package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/visadesk/services/biometrics-service/internal/page"
)

type entry struct {
	page    *page.Page
	touched time.Time
}

// Store keeps the current page of every applicant in memory. Pages idle for longer
// than the TTL are evicted by Run.
type Store struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu    sync.Mutex
	pages map[string]*entry
}

func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{ttl: ttl, now: time.Now, logger: logger, pages: map[string]*entry{}}
}

// Put replaces the applicant's page.
func (s *Store) Put(userID string, p *page.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[userID] = &entry{page: p, touched: s.now()}
}

// Get returns the applicant's live page and marks it used.
func (s *Store) Get(userID string) (*page.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pages[userID]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(e.touched) > s.ttl {
		delete(s.pages, userID)
		return nil, false
	}
	e.touched = now
	return e.page, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Sweep evicts idle pages and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.pages {
		if now.Sub(e.touched) > s.ttl {
			delete(s.pages, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("evicted idle pages", "count", n)
			}
		}
	}
}
