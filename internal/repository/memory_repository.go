package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"series-platform/internal/models"
)

// MemoryRepository is a SeriesRepository held entirely in memory.
// seriesctl loads local files into it; it is safe for concurrent use.
type MemoryRepository struct {
	mu           sync.RWMutex
	catalog      map[string]*models.CatalogEntry
	order        []string
	observations map[string]map[time.Time]*models.ObservationRow
	medians      map[string][]*models.MonthlyMedian
	nextID       int64
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		catalog:      make(map[string]*models.CatalogEntry),
		observations: make(map[string]map[time.Time]*models.ObservationRow),
		medians:      make(map[string][]*models.MonthlyMedian),
	}
}

var _ SeriesRepository = (*MemoryRepository)(nil)

func (m *MemoryRepository) UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	if existing, ok := m.catalog[entry.SeriesKey]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else {
		m.order = append(m.order, entry.SeriesKey)
	}
	m.catalog[entry.SeriesKey] = &cp
	return nil
}

func (m *MemoryRepository) GetCatalogEntry(ctx context.Context, seriesKey string) (*models.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.catalog[seriesKey]
	if !ok {
		return nil, &NotFoundError{Resource: "series", ID: seriesKey}
	}
	cp := *entry
	return &cp, nil
}

func (m *MemoryRepository) ListCatalog(ctx context.Context, filter CatalogFilter) ([]*models.CatalogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.CatalogEntry
	for _, key := range m.order {
		entry := m.catalog[key]
		if filter.PeerGroup != nil && entry.PeerGroup != *filter.PeerGroup {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) ListPeerGroups(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var groups []string
	for _, entry := range m.catalog {
		if entry.PeerGroup != "" && !seen[entry.PeerGroup] {
			seen[entry.PeerGroup] = true
			groups = append(groups, entry.PeerGroup)
		}
	}
	sort.Strings(groups)
	return groups, nil
}

func (m *MemoryRepository) CreateObservationsBatch(ctx context.Context, observations []*models.ObservationRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, obs := range observations {
		byDate, ok := m.observations[obs.SeriesKey]
		if !ok {
			byDate = make(map[time.Time]*models.ObservationRow)
			m.observations[obs.SeriesKey] = byDate
		}
		date := obs.ObservationDate.UTC()
		cp := *obs
		cp.ObservationDate = date
		if existing, ok := byDate[date]; ok {
			cp.ID = existing.ID
		} else {
			m.nextID++
			cp.ID = m.nextID
		}
		byDate[date] = &cp
	}
	return nil
}

func (m *MemoryRepository) GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.ObservationRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []*models.ObservationRow
	for date, obs := range m.observations[filter.SeriesKey] {
		if filter.StartDate != nil && date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && date.After(*filter.EndDate) {
			continue
		}
		cp := *obs
		rows = append(rows, &cp)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ObservationDate.Before(rows[j].ObservationDate)
	})
	return rows, nil
}

func (m *MemoryRepository) ReplaceMonthlyMedians(ctx context.Context, peerGroup string, medians []*models.MonthlyMedian) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]*models.MonthlyMedian, len(medians))
	for i, md := range medians {
		cp := *md
		m.nextID++
		cp.ID = m.nextID
		stored[i] = &cp
	}
	m.medians[peerGroup] = stored
	return nil
}

func (m *MemoryRepository) GetMonthlyMedians(ctx context.Context, peerGroup string) ([]*models.MonthlyMedian, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.MonthlyMedian, len(m.medians[peerGroup]))
	for i, md := range m.medians[peerGroup] {
		cp := *md
		out[i] = &cp
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entity != out[j].Entity {
			return out[i].Entity < out[j].Entity
		}
		return out[i].MonthLabel < out[j].MonthLabel
	})
	return out, nil
}

func (m *MemoryRepository) HealthCheck(ctx context.Context) error {
	return nil
}
