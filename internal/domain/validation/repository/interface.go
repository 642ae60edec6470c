// Package repository declares the persistence contracts the validation
// domain depends on. Implementations live in the history and cache packages.
package repository

import (
	"context"

	"stayonboard-server-go/internal/domain/validation/aggregate"
)

// Page is one slice of a principal's history, newest first. NextToken is
// empty on the last page.
type Page struct {
	Records   []aggregate.Record `json:"records"`
	NextToken string             `json:"next_token,omitempty"`
}

// HistoryStore is the append-only record log. Records are never updated or
// deleted; a rerun appends a fresh record.
type HistoryStore interface {
	Append(ctx context.Context, record aggregate.Record) error
	Get(ctx context.Context, id string) (aggregate.Record, error)
	ListByPrincipal(ctx context.Context, principal string, pageSize int, token string) (Page, error)
	Close(ctx context.Context) error
}

// Cache memoizes encoded verdicts under deterministic request keys. Values
// are opaque bytes so the cache stays ignorant of the verdict schema.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// ComputeOnce returns the cached value or runs compute, ensuring at
	// most one concurrent compute per key. The boolean reports a cache hit.
	ComputeOnce(ctx context.Context, key string, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error)
	Invalidate(ctx context.Context, key string) error
	Close(ctx context.Context) error
}
