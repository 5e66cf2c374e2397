package recipientrepo

import (
	"context"
	"sync"

	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/ports/out/recipientrepo"
)

// Repo is an in-memory implementation of recipientrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu      sync.RWMutex
	byID    map[domain.RecipientID]recipientrepo.Recipient
	byEmail map[string]domain.RecipientID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.RecipientID]recipientrepo.Recipient),
		byEmail: make(map[string]domain.RecipientID),
	}
}

func (r *Repo) Create(ctx context.Context, rec recipientrepo.Recipient) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[rec.Email]; ok {
		return recipientrepo.ErrEmailTaken
	}
	r.byID[rec.ID] = cloneRecipient(rec)
	r.byEmail[rec.Email] = rec.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.RecipientID) (recipientrepo.Recipient, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[id]
	if !ok {
		return recipientrepo.Recipient{}, recipientrepo.ErrNotFound
	}
	return cloneRecipient(rec), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (recipientrepo.Recipient, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return recipientrepo.Recipient{}, recipientrepo.ErrNotFound
	}
	return cloneRecipient(r.byID[id]), nil
}

func cloneRecipient(rec recipientrepo.Recipient) recipientrepo.Recipient {
	cp := rec
	cp.Phone = cloneStringPtr(rec.Phone)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
