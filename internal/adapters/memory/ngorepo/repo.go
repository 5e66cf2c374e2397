package ngorepo

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/plateshare/foodbank-api/internal/domain"
	"github.com/plateshare/foodbank-api/internal/ports/out/ngorepo"
)

// Repo is an in-memory implementation of ngorepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu      sync.RWMutex
	byID    map[domain.NGOID]ngorepo.NGO
	byEmail map[string]domain.NGOID
}

func NewRepo() *Repo {
	return &Repo{
		byID:    make(map[domain.NGOID]ngorepo.NGO),
		byEmail: make(map[string]domain.NGOID),
	}
}

func (r *Repo) Create(ctx context.Context, n ngorepo.NGO) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[n.Email]; ok {
		return ngorepo.ErrEmailTaken
	}
	r.byID[n.ID] = cloneNGO(n)
	r.byEmail[n.Email] = n.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.NGOID) (ngorepo.NGO, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byID[id]
	if !ok {
		return ngorepo.NGO{}, ngorepo.ErrNotFound
	}
	return cloneNGO(n), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (ngorepo.NGO, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return ngorepo.NGO{}, ngorepo.ErrNotFound
	}
	return cloneNGO(r.byID[id]), nil
}

func (r *Repo) ListNearby(ctx context.Context, origin domain.Coordinate, radiusMeters float64) ([]ngorepo.NearbyNGO, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ngorepo.NearbyNGO, 0)
	for _, n := range r.byID {
		d := haversineMeters(origin, n.Location)
		if d <= radiusMeters {
			out = append(out, ngorepo.NearbyNGO{NGO: cloneNGO(n), DistanceMeters: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PlatesAvailable reads the current counter without cloning the record.
// It exists for the memory ledger store, which owns all counter mutations;
// no one else should write plates through this package.
func (r *Repo) PlatesAvailable(id domain.NGOID) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.byID[id]
	return n.PlatesAvailable, ok
}

// SetPlatesAvailable writes the counter. See PlatesAvailable.
func (r *Repo) SetPlatesAvailable(id domain.NGOID, plates int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return false
	}
	n.PlatesAvailable = plates
	r.byID[id] = n
	return true
}

const earthRadiusMeters = 6371000

func haversineMeters(a, b domain.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

func cloneNGO(n ngorepo.NGO) ngorepo.NGO {
	cp := n
	cp.Address = cloneStringPtr(n.Address)
	cp.Phone = cloneStringPtr(n.Phone)
	return cp
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
