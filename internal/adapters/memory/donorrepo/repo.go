package donorrepo

import (
	"context"
	"sync"

	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/ports/out/donorrepo"
)

// Repo is an in-memory implementation of donorrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu           sync.RWMutex
	byID         map[domain.DonorID]donorrepo.Donor
	byEmail      map[string]domain.DonorID
	byNationalID map[string]domain.DonorID
}

func NewRepo() *Repo {
	return &Repo{
		byID:         make(map[domain.DonorID]donorrepo.Donor),
		byEmail:      make(map[string]domain.DonorID),
		byNationalID: make(map[string]domain.DonorID),
	}
}

func (r *Repo) Create(ctx context.Context, d donorrepo.Donor) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[d.Email]; ok {
		return donorrepo.ErrEmailTaken
	}
	if d.NationalID != nil {
		if _, ok := r.byNationalID[*d.NationalID]; ok {
			return donorrepo.ErrNationalIDTaken
		}
	}
	r.byID[d.ID] = cloneDonor(d)
	r.byEmail[d.Email] = d.ID
	if d.NationalID != nil {
		r.byNationalID[*d.NationalID] = d.ID
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.DonorID) (donorrepo.Donor, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return donorrepo.Donor{}, donorrepo.ErrNotFound
	}
	return cloneDonor(d), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (donorrepo.Donor, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return donorrepo.Donor{}, donorrepo.ErrNotFound
	}
	return cloneDonor(r.byID[id]), nil
}

func cloneDonor(d donorrepo.Donor) donorrepo.Donor {
	cp := d
	cp.Phone = cloneStringPtr(d.Phone)
	cp.NationalID = cloneStringPtr(d.NationalID)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
