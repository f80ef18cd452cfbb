package dataset

import (
	"fmt"

	"series-platform/internal/models"
)

// GroupSeries splits records by their recognized key column and builds one
// series per key, in first-seen order. Rows without a key go to defaultKey.
func GroupSeries(records []models.Record, defaultKey string) ([]models.Series, error) {
	var order []string
	groups := make(map[string][]models.Record)

	for _, rec := range records {
		key := rec.Get(models.KeyColumns)
		if key == "" {
			key = defaultKey
		}
		if key == "" {
			return nil, &models.ValidationError{
				Field:   "key",
				Message: "row has no recognized key column and no default key is set",
			}
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	series := make([]models.Series, 0, len(order))
	for _, key := range order {
		s, err := models.SeriesFromRecords(key, groups[key])
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", key, err)
		}
		series = append(series, s)
	}
	return series, nil
}

// LoadSeriesFile reads a file and groups its rows into series. Rows without
// a key column use opts.DefaultKey, or the file name when that is empty.
func LoadSeriesFile(path string, opts Options) ([]models.Series, error) {
	records, err := LoadFile(path, opts)
	if err != nil {
		return nil, err
	}
	defaultKey := opts.DefaultKey
	if defaultKey == "" {
		defaultKey = FileKey(path)
	}
	series, err := GroupSeries(records, defaultKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}
