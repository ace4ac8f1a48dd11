package store

import (
	"context"
	"sort"
	"sync"

	"agrowatch/models"

	"github.com/jonboulle/clockwork"
)

// Memory is an in-process Store for development and tests.
type Memory struct {
	mu         sync.RWMutex
	clock      clockwork.Clock
	farms      map[int64]models.Farm
	users      map[int64]models.User
	emails     map[string]int64
	lastFarmID int64
	lastUserID int64
}

func NewMemory(clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		clock:  clock,
		farms:  make(map[int64]models.Farm),
		users:  make(map[int64]models.User),
		emails: make(map[string]int64),
	}
}

func (m *Memory) CreateFarm(_ context.Context, f models.Farm) (models.Farm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFarmID++
	f.ID = m.lastFarmID
	f.Area = clonePolygon(f.Area)
	f.CreatedAt = now(m.clock)
	f.UpdatedAt = f.CreatedAt
	m.farms[f.ID] = f
	return cloneFarm(f), nil
}

func (m *Memory) GetFarm(_ context.Context, ownerID, id int64) (models.Farm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.farms[id]
	if !ok || f.OwnerID != ownerID {
		return models.Farm{}, ErrNotFound
	}
	return cloneFarm(f), nil
}

func (m *Memory) UpdateFarm(_ context.Context, f models.Farm) (models.Farm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.farms[f.ID]
	if !ok || cur.OwnerID != f.OwnerID {
		return models.Farm{}, ErrNotFound
	}
	cur.Name = f.Name
	cur.Crop = f.Crop
	cur.Area = clonePolygon(f.Area)
	cur.UpdatedAt = now(m.clock)
	m.farms[f.ID] = cur
	return cloneFarm(cur), nil
}

func (m *Memory) DeleteFarm(_ context.Context, ownerID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.farms[id]
	if !ok || f.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.farms, id)
	return nil
}

func (m *Memory) ListFarms(_ context.Context, ownerID int64) ([]models.Farm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Farm{}
	for _, f := range m.farms {
		if f.OwnerID == ownerID {
			out = append(out, cloneFarm(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) CreateUser(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.emails[u.Email]; taken {
		return models.User{}, ErrDuplicate
	}
	m.lastUserID++
	u.ID = m.lastUserID
	u.CreatedAt = now(m.clock)
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	return u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) UserByID(_ context.Context, id int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func cloneFarm(f models.Farm) models.Farm {
	f.Area = clonePolygon(f.Area)
	return f
}

// clonePolygon copies coordinates so callers cannot mutate stored farms.
func clonePolygon(p models.Polygon) models.Polygon {
	rings := make([][][]float64, len(p.Coordinates))
	for i, ring := range p.Coordinates {
		rings[i] = make([][]float64, len(ring))
		for j, pos := range ring {
			rings[i][j] = append([]float64(nil), pos...)
		}
	}
	return models.Polygon{Type: p.Type, Coordinates: rings}
}
