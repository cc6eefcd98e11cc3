package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"aureon/internal/audit/models"
)

var errBatchFailed = errors.New("bulk audit write failed")

// InMemoryStore holds audit entries for tests/dev. A failure hook lets
// pipeline tests exercise the requeue path.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []*models.Entry
	reports []*models.Report

	// failNextBatches makes the next N InsertBatch calls fail.
	failNextBatches int
	batchInserts    int
}

// NewMemory constructs an empty in-memory audit store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{}
}

// FailNextBatches makes the next n bulk writes fail. Test helper.
func (s *InMemoryStore) FailNextBatches(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNextBatches = n
}

// BatchInserts reports how many successful bulk writes occurred.
func (s *InMemoryStore) BatchInserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batchInserts
}

// Entries returns a snapshot of everything written, in write order.
func (s *InMemoryStore) Entries() []*models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Reports returns a snapshot of persisted reports.
func (s *InMemoryStore) Reports() []*models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

func (s *InMemoryStore) InsertBatch(_ context.Context, entries []*models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNextBatches > 0 {
		s.failNextBatches--
		return errBatchFailed
	}
	s.entries = append(s.entries, entries...)
	s.batchInserts++
	return nil
}

func (s *InMemoryStore) Insert(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, filter Filter) ([]*models.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Entry
	for _, e := range s.entries {
		if matches(e, filter) {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= total {
			return nil, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *InMemoryStore) InsertReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func matches(e *models.Entry, f Filter) bool {
	if !f.TenantID.IsNil() && e.TenantID != f.TenantID {
		return false
	}
	if !f.UserID.IsNil() && e.UserID != f.UserID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.PHIOnly && !e.IsPHIAccess {
		return false
	}
	if f.SecurityOnly && !e.IsSecurityEvent {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.CreatedAt.After(f.To) {
		return false
	}
	return true
}

var _ Store = (*InMemoryStore)(nil)
