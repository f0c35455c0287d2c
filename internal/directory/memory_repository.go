package directory

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository is an in-memory implementation of Repository.
type MemoryRepository struct {
	mu         sync.RWMutex
	recipients map[int64]*Recipient
	senders    map[int64]*SenderIdentity

	nextRecipientID int64
	nextSenderID    int64
}

// NewMemoryRepository creates a new in-memory directory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		recipients: make(map[int64]*Recipient),
		senders:    make(map[int64]*SenderIdentity),
	}
}

// ListActiveRecipients resolves the given IDs to active recipients.
func (r *MemoryRepository) ListActiveRecipients(ctx context.Context, ids []int64) ([]Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Recipient
	for _, id := range ids {
		rec, ok := r.recipients[id]
		if !ok || !rec.Active {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

// GetRecipient retrieves a recipient by ID.
func (r *MemoryRepository) GetRecipient(ctx context.Context, id int64) (*Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recipients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrRecipientNotFound, id)
	}

	copy := *rec
	return &copy, nil
}

// CreateRecipient stores a new recipient.
func (r *MemoryRepository) CreateRecipient(ctx context.Context, rec *Recipient) error {
	if rec == nil {
		return fmt.Errorf("directory: recipient is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == 0 {
		r.nextRecipientID++
		rec.ID = r.nextRecipientID
	}

	copy := *rec
	r.recipients[rec.ID] = &copy
	return nil
}

// GetSender retrieves a sender identity by ID.
func (r *MemoryRepository) GetSender(ctx context.Context, id int64) (*SenderIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.senders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrSenderNotFound, id)
	}

	copy := *s
	return &copy, nil
}

// CreateSender stores a new sender identity.
func (r *MemoryRepository) CreateSender(ctx context.Context, s *SenderIdentity) error {
	if s == nil {
		return fmt.Errorf("directory: sender is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == 0 {
		r.nextSenderID++
		s.ID = r.nextSenderID
	}

	copy := *s
	r.senders[s.ID] = &copy
	return nil
}
