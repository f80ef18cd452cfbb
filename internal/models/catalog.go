package models

import (
	"time"
)

// CatalogEntry represents one named series in the persisted catalog.
// ValueColumn is empty when the source series had no value field.
type CatalogEntry struct {
	SeriesKey      string    `json:"series_key" db:"series_key"`
	Title          string    `json:"title" db:"title"`
	CompleteTitle  string    `json:"complete_title,omitempty" db:"complete_title"`
	Unit           string    `json:"unit,omitempty" db:"unit"`
	Status         string    `json:"status,omitempty" db:"status"`
	SeasonalAdjust string    `json:"seasonal_adjust,omitempty" db:"seasonal_adjust"`
	PeerGroup      string    `json:"peer_group,omitempty" db:"peer_group"`
	Entity         string    `json:"entity,omitempty" db:"entity"`
	ValueColumn    string    `json:"-" db:"value_column"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Attributes returns the series attributes described by the entry
func (c *CatalogEntry) Attributes() Attributes {
	return Attributes{
		Title:          c.Title,
		CompleteTitle:  c.CompleteTitle,
		Unit:           c.Unit,
		Status:         c.Status,
		SeasonalAdjust: c.SeasonalAdjust,
		PeerGroup:      c.PeerGroup,
		Entity:         c.Entity,
	}
}

// CatalogEntryFromSeries describes a series for persistence
func CatalogEntryFromSeries(s Series) *CatalogEntry {
	now := time.Now().UTC()
	return &CatalogEntry{
		SeriesKey:      s.Key,
		Title:          s.Attributes.Title,
		CompleteTitle:  s.Attributes.CompleteTitle,
		Unit:           s.Attributes.Unit,
		Status:         s.Attributes.Status,
		SeasonalAdjust: s.Attributes.SeasonalAdjust,
		PeerGroup:      s.Attributes.PeerGroup,
		Entity:         s.Attributes.Entity,
		ValueColumn:    s.ValueColumn,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ObservationRow is a persisted observation; NULL value is the missing marker
type ObservationRow struct {
	ID              int64     `json:"id" db:"id"`
	SeriesKey       string    `json:"series_key" db:"series_key"`
	ObservationDate time.Time `json:"observation_date" db:"observation_date"`
	ObsValue        *float64  `json:"obs_value,omitempty" db:"obs_value"`
	ObsStatus       string    `json:"obs_status,omitempty" db:"obs_status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// MonthlyMedian is one persisted cell of a MedianTable
type MonthlyMedian struct {
	ID               int64     `json:"id" db:"id"`
	PeerGroup        string    `json:"peer_group" db:"peer_group"`
	Entity           string    `json:"entity" db:"entity"`
	MonthLabel       string    `json:"month_label" db:"month_label"`
	Median           float64   `json:"median" db:"median"`
	ObservationCount int       `json:"observation_count" db:"observation_count"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// ObservationRows converts the points of s into rows for persistence
func ObservationRows(s Series) []*ObservationRow {
	now := time.Now().UTC()
	rows := make([]*ObservationRow, len(s.Points))
	for i, p := range s.Points {
		rows[i] = &ObservationRow{
			SeriesKey:       s.Key,
			ObservationDate: p.Date,
			ObsValue:        p.Value,
			ObsStatus:       s.Attributes.Status,
			CreatedAt:       now,
		}
	}
	return rows
}

// SeriesFromRows rebuilds a series from its catalog entry and stored rows
func SeriesFromRows(entry *CatalogEntry, rows []*ObservationRow) Series {
	points := make([]Point, len(rows))
	for i, r := range rows {
		points[i] = Point{Date: r.ObservationDate.UTC(), Value: r.ObsValue}
	}
	return Series{
		Key:         entry.SeriesKey,
		ValueColumn: entry.ValueColumn,
		Attributes:  entry.Attributes(),
		Points:      CleanPoints(points),
	}
}
