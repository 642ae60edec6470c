package imagestore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"stayonboard-server-go/internal/platform/errors"
)

type memoryEntry struct {
	handle    Handle
	raw       []byte
	expiresAt time.Time
}

type memoryStore struct {
	items    map[string]memoryEntry
	mutex    sync.RWMutex
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory builds an in-memory image store with TTL-based expiry.
func NewMemory(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &memoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) evictExpired() {
	now := time.Now()
	s.mutex.Lock()
	for id, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, id)
		}
	}
	s.mutex.Unlock()
}

func (s *memoryStore) Save(_ context.Context, raw []byte, handle Handle) (Handle, error) {
	if len(raw) == 0 {
		return Handle{}, errors.New(errors.KindInvalidParameters, "imagestore.save", "empty payload")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Handle{}, errors.Wrap(errors.KindStorage, "imagestore.save", "generate storage id", err)
	}
	handle.StorageID = id.String()
	handle.StoredAt = time.Now()

	data := make([]byte, len(raw))
	copy(data, raw)

	s.mutex.Lock()
	s.items[handle.StorageID] = memoryEntry{
		handle:    handle,
		raw:       data,
		expiresAt: handle.StoredAt.Add(s.ttl),
	}
	s.mutex.Unlock()
	return handle, nil
}

func (s *memoryStore) Resolve(_ context.Context, storageID string) (Handle, error) {
	s.mutex.RLock()
	entry, ok := s.items[storageID]
	s.mutex.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return Handle{}, errors.New(errors.KindImageUnavailable, "imagestore.resolve",
			"image no longer available: "+storageID)
	}
	return entry.handle, nil
}

func (s *memoryStore) Load(_ context.Context, storageID string) ([]byte, error) {
	s.mutex.RLock()
	entry, ok := s.items[storageID]
	s.mutex.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, errors.New(errors.KindImageUnavailable, "imagestore.load",
			"image no longer available: "+storageID)
	}
	return entry.raw, nil
}

func (s *memoryStore) Remove(_ context.Context, storageID string) error {
	s.mutex.Lock()
	delete(s.items, storageID)
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
