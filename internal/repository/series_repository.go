package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"series-platform/internal/models"
	"series-platform/pkg/database"
	"series-platform/pkg/logging"
	"series-platform/pkg/metrics"
)

// SeriesRepository provides data access for the series catalog,
// observations and computed peer medians
type SeriesRepository interface {
	// Catalog operations
	UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) error
	GetCatalogEntry(ctx context.Context, seriesKey string) (*models.CatalogEntry, error)
	ListCatalog(ctx context.Context, filter CatalogFilter) ([]*models.CatalogEntry, error)
	ListPeerGroups(ctx context.Context) ([]string, error)

	// Observation operations
	CreateObservationsBatch(ctx context.Context, observations []*models.ObservationRow) error
	GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.ObservationRow, error)

	// Median operations
	ReplaceMonthlyMedians(ctx context.Context, peerGroup string, medians []*models.MonthlyMedian) error
	GetMonthlyMedians(ctx context.Context, peerGroup string) ([]*models.MonthlyMedian, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// CatalogFilter defines filters for listing catalog entries
type CatalogFilter struct {
	PeerGroup *string
	Limit     int
	Offset    int
}

// ObservationFilter defines filters for querying observations of one series
type ObservationFilter struct {
	SeriesKey string
	StartDate *time.Time
	EndDate   *time.Time
}

// seriesRepository implements SeriesRepository on PostgreSQL
type seriesRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewSeriesRepository creates a new series repository
func NewSeriesRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) SeriesRepository {
	return &seriesRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const catalogColumns = `series_key, title, complete_title, unit, status, seasonal_adjust,
		       peer_group, entity, value_column, created_at, updated_at`

// UpsertCatalogEntry creates or refreshes a catalog entry
func (r *seriesRepository) UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) error {
	query := `
		INSERT INTO series_catalog (
			series_key, title, complete_title, unit, status, seasonal_adjust,
			peer_group, entity, value_column, created_at, updated_at
		)
		VALUES (:series_key, :title, :complete_title, :unit, :status, :seasonal_adjust,
		        :peer_group, :entity, :value_column, :created_at, :updated_at)
		ON CONFLICT (series_key) DO UPDATE SET
			title = EXCLUDED.title,
			complete_title = EXCLUDED.complete_title,
			unit = EXCLUDED.unit,
			status = EXCLUDED.status,
			seasonal_adjust = EXCLUDED.seasonal_adjust,
			peer_group = EXCLUDED.peer_group,
			entity = EXCLUDED.entity,
			value_column = EXCLUDED.value_column,
			updated_at = EXCLUDED.updated_at
	`

	named, args, err := sqlx.Named(query, entry)
	if err != nil {
		return fmt.Errorf("failed to bind catalog entry: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, "upsert_catalog_entry", r.db.DB().Rebind(named), args...); err != nil {
		return fmt.Errorf("failed to upsert catalog entry: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_UPSERT_CATALOG] Catalog entry stored", logging.Fields{
		"series_key": entry.SeriesKey,
		"peer_group": entry.PeerGroup,
	})
	return nil
}

// GetCatalogEntry retrieves a catalog entry by series key
func (r *seriesRepository) GetCatalogEntry(ctx context.Context, seriesKey string) (*models.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM series_catalog WHERE series_key = $1`

	var entry models.CatalogEntry
	err := r.db.GetContext(ctx, "get_catalog_entry", &entry, query, seriesKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "series",
			ID:       seriesKey,
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}

	return &entry, nil
}

// ListCatalog retrieves catalog entries in insertion order.
// A zero Limit returns every entry.
func (r *seriesRepository) ListCatalog(ctx context.Context, filter CatalogFilter) ([]*models.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM series_catalog WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.PeerGroup != nil {
		query += fmt.Sprintf(" AND peer_group = $%d", argNum)
		args = append(args, *filter.PeerGroup)
		argNum++
	}

	query += " ORDER BY created_at, series_key"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	var entries []*models.CatalogEntry
	if err := r.db.SelectContext(ctx, "list_catalog", &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}

	return entries, nil
}

// ListPeerGroups returns the distinct non-empty peer groups
func (r *seriesRepository) ListPeerGroups(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT peer_group
		FROM series_catalog
		WHERE peer_group <> ''
		ORDER BY peer_group
	`

	var groups []string
	if err := r.db.SelectContext(ctx, "list_peer_groups", &groups, query); err != nil {
		return nil, fmt.Errorf("failed to list peer groups: %w", err)
	}
	return groups, nil
}

// CreateObservationsBatch upserts observations in a single transaction
func (r *seriesRepository) CreateObservationsBatch(ctx context.Context, observations []*models.ObservationRow) error {
	if len(observations) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.IngestionBatchSize.Observe(float64(len(observations)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(observations),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	err := r.db.WithTx(ctx, "insert_observations_batch", func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO series_observations (series_key, observation_date, obs_value, obs_status, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (series_key, observation_date) DO UPDATE SET
				obs_value = EXCLUDED.obs_value,
				obs_status = EXCLUDED.obs_status
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, obs := range observations {
			if _, err := stmt.ExecContext(ctx,
				obs.SeriesKey,
				obs.ObservationDate,
				obs.ObsValue,
				obs.ObsStatus,
				obs.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert observation %s/%s: %w",
					obs.SeriesKey, obs.ObservationDate.Format(models.DateLayout), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(observations)))
	return nil
}

// GetObservations retrieves the observations of a series in date order
func (r *seriesRepository) GetObservations(ctx context.Context, filter ObservationFilter) ([]*models.ObservationRow, error) {
	query := `
		SELECT id, series_key, observation_date, obs_value, obs_status, created_at
		FROM series_observations
		WHERE series_key = $1
	`
	args := []interface{}{filter.SeriesKey}
	argNum := 2

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND observation_date >= $%d", argNum)
		args = append(args, *filter.StartDate)
		argNum++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND observation_date <= $%d", argNum)
		args = append(args, *filter.EndDate)
	}
	query += " ORDER BY observation_date"

	var rows []*models.ObservationRow
	if err := r.db.SelectContext(ctx, "get_observations", &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get observations: %w", err)
	}
	return rows, nil
}

// ReplaceMonthlyMedians swaps the stored medians of a peer group for a new set
func (r *seriesRepository) ReplaceMonthlyMedians(ctx context.Context, peerGroup string, medians []*models.MonthlyMedian) error {
	return r.db.WithTx(ctx, "replace_monthly_medians", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM monthly_medians WHERE peer_group = $1`, peerGroup); err != nil {
			return fmt.Errorf("failed to clear medians: %w", err)
		}
		if len(medians) == 0 {
			return nil
		}

		rows := make([]models.MonthlyMedian, len(medians))
		for i, m := range medians {
			rows[i] = *m
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO monthly_medians (peer_group, entity, month_label, median, observation_count, updated_at)
			VALUES (:peer_group, :entity, :month_label, :median, :observation_count, :updated_at)
		`, rows)
		if err != nil {
			return fmt.Errorf("failed to insert medians: %w", err)
		}
		return nil
	})
}

// GetMonthlyMedians returns the stored medians of a peer group
func (r *seriesRepository) GetMonthlyMedians(ctx context.Context, peerGroup string) ([]*models.MonthlyMedian, error) {
	query := `
		SELECT id, peer_group, entity, month_label, median, observation_count, updated_at
		FROM monthly_medians
		WHERE peer_group = $1
		ORDER BY entity, month_label
	`

	var medians []*models.MonthlyMedian
	if err := r.db.SelectContext(ctx, "get_monthly_medians", &medians, query, peerGroup); err != nil {
		return nil, fmt.Errorf("failed to get monthly medians: %w", err)
	}
	return medians, nil
}

// HealthCheck performs a repository health check
func (r *seriesRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
