package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation of Repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryRepository creates a new in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append writes a new entry.
func (r *MemoryRepository) Append(ctx context.Context, e *Entry) error {
	if e == nil {
		return fmt.Errorf("ledger: entry is nil")
	}
	if !validStatus(e.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now()
	}

	r.entries = append(r.entries, *e)
	return nil
}

// GetEntry retrieves one entry by ID.
func (r *MemoryRepository) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.entries {
		if r.entries[i].ID == id {
			copy := r.entries[i]
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// ListEntries returns entries matching the filter, newest first.
func (r *MemoryRepository) ListEntries(ctx context.Context, f Filter) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entry
	for _, e := range r.entries {
		if f.RecipientID != 0 && e.RecipientID != f.RecipientID {
			continue
		}
		if f.MailTypeID != 0 && e.MailTypeID != f.MailTypeID {
			continue
		}
		if f.TaskID != "" && e.TaskID != f.TaskID {
			continue
		}
		if f.Campaign != "" && e.Campaign != f.Campaign {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
