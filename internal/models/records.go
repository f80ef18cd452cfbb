package models

import (
	"math"
	"strconv"
	"strings"
)

// Record is one row of a collaborator-supplied table, keyed by column name
type Record map[string]string

// Recognized attribute keys, tried in order; the first key present wins.
var (
	KeyColumns           = []string{"KEY", "Key", "SERIES_KEY"}
	DateColumns          = []string{"TIME_PERIOD", "DATE", "Date", "date", "ds"}
	ValueColumns         = []string{"OBS_VALUE", "VALUE", "Value", "value", "y"}
	TitleColumns         = []string{"TITLE", "Name", "NAME", "Title"}
	CompleteTitleColumns = []string{"TITLE_COMPL", "COMPLETE_TITLE", "Description"}
	UnitColumns          = []string{"UNIT", "UNIT_MEASURE", "Unit", "unit"}
	StatusColumns        = []string{"OBS_STATUS", "Status"}
	SeasonalColumns      = []string{"SEASONAL_ADJUST", "SeasonalAdjust"}
	PeerGroupColumns     = []string{"PEER_GROUP", "coicop", "GROUP"}
	EntityColumns        = []string{"ENTITY", "geo", "GEO", "REF_AREA"}
)

// Lookup returns the value of the first recognized key present in the record
// and the key that matched.
func (r Record) Lookup(keys []string) (value, key string, ok bool) {
	for _, k := range keys {
		if v, present := r[k]; present {
			return strings.TrimSpace(v), k, true
		}
	}
	return "", "", false
}

// Get returns the first recognized value or an empty string
func (r Record) Get(keys []string) string {
	v, _, _ := r.Lookup(keys)
	return v
}

// missingValueTokens are cell contents treated as the missing marker
var missingValueTokens = map[string]bool{
	"": true, "NA": true, "NaN": true, "nan": true, "null": true, "NULL": true, "-": true,
}

// ParseValue converts a cell into a value pointer; unparsable or
// missing-token cells become nil.
func ParseValue(s string) *float64 {
	s = strings.TrimSpace(s)
	if missingValueTokens[s] {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// SeriesFromRecords builds a series from rows that all belong to key.
// Attributes are taken from the first row carrying them. When no row exposes
// any recognized value column the series is returned with an empty
// ValueColumn, which the engine reports as MissingColumn.
func SeriesFromRecords(key string, records []Record) (Series, error) {
	s := Series{Key: key}
	points := make([]Point, 0, len(records))

	for _, rec := range records {
		dateStr, _, ok := rec.Lookup(DateColumns)
		if !ok {
			return Series{}, &AnalysisError{
				Kind:    KindMissingColumn,
				Key:     key,
				Message: "no recognized date column",
			}
		}
		date, err := ParseDate(dateStr)
		if err != nil {
			return Series{}, err
		}

		var value *float64
		if raw, col, ok := rec.Lookup(ValueColumns); ok {
			if s.ValueColumn == "" {
				s.ValueColumn = col
			}
			value = ParseValue(raw)
		}
		points = append(points, Point{Date: date, Value: value})

		fillAttributes(&s.Attributes, rec)
	}

	s.Points = CleanPoints(points)
	return s, nil
}

func fillAttributes(a *Attributes, rec Record) {
	set := func(dst *string, keys []string) {
		if *dst == "" {
			*dst = rec.Get(keys)
		}
	}
	set(&a.Title, TitleColumns)
	set(&a.CompleteTitle, CompleteTitleColumns)
	set(&a.Unit, UnitColumns)
	set(&a.Status, StatusColumns)
	set(&a.SeasonalAdjust, SeasonalColumns)
	set(&a.PeerGroup, PeerGroupColumns)
	set(&a.Entity, EntityColumns)
}
