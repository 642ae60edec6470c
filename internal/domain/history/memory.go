// Package history persists validation records. The log is append-only:
// records are never updated in place, and a rerun appends a fresh record
// rather than touching the original.
package history

import (
	"context"
	"sort"
	"sync"

	"stayonboard-server-go/internal/domain/validation/aggregate"
	"stayonboard-server-go/internal/domain/validation/repository"
	"stayonboard-server-go/internal/platform/errors"
)

type memoryStore struct {
	mutex   sync.RWMutex
	records map[string]aggregate.Record
	// byPrincipal keeps record ids per principal. Ids are time-ordered
	// (UUIDv7), so sorting descending yields newest first.
	byPrincipal map[string][]string
}

// NewMemory builds an in-memory history store.
func NewMemory() repository.HistoryStore {
	return &memoryStore{
		records:     make(map[string]aggregate.Record),
		byPrincipal: make(map[string][]string),
	}
}

func (s *memoryStore) Append(_ context.Context, record aggregate.Record) error {
	const op = "history.append"
	if record.ID == "" {
		return errors.New(errors.KindStorage, op, "record id required")
	}
	if record.Principal == "" {
		return errors.New(errors.KindStorage, op, "record principal required")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return errors.New(errors.KindStorage, op, "duplicate record id: "+record.ID)
	}
	s.records[record.ID] = record
	s.byPrincipal[record.Principal] = append(s.byPrincipal[record.Principal], record.ID)
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (aggregate.Record, error) {
	s.mutex.RLock()
	record, ok := s.records[id]
	s.mutex.RUnlock()
	if !ok {
		return aggregate.Record{}, errors.New(errors.KindNotFound, "history.get",
			"record not found: "+id)
	}
	return record, nil
}

func (s *memoryStore) ListByPrincipal(
	_ context.Context,
	principal string,
	pageSize int,
	token string,
) (repository.Page, error) {
	if pageSize <= 0 {
		return repository.Page{}, errors.New(errors.KindInvalidParameters, "history.list",
			"page size must be positive")
	}

	s.mutex.RLock()
	ids := make([]string, len(s.byPrincipal[principal]))
	copy(ids, s.byPrincipal[principal])
	s.mutex.RUnlock()

	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	start := 0
	if token != "" {
		start = len(ids)
		for i, id := range ids {
			if id == token {
				start = i + 1
				break
			}
		}
	}

	page := repository.Page{}
	for i := start; i < len(ids) && len(page.Records) < pageSize; i++ {
		s.mutex.RLock()
		record, ok := s.records[ids[i]]
		s.mutex.RUnlock()
		if !ok {
			continue
		}
		page.Records = append(page.Records, record)
	}

	if last := start + len(page.Records); last < len(ids) && len(page.Records) > 0 {
		page.NextToken = page.Records[len(page.Records)-1].ID
	}
	return page, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	return nil
}
