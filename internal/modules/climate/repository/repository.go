package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"climate-server/internal/metrics"
	"climate-server/internal/modules/climate/types"
)

// RecordLimit caps the precipitation and temperature listings. It is a row
// count, not a calendar window: rows from several stations on the same date
// each count against it.
const RecordLimit = 365

//go:embed sql/recent-precipitation.sql
var recentPrecipitationSQL string

//go:embed sql/all-station-ids.sql
var allStationIDsSQL string

//go:embed sql/most-active-station.sql
var mostActiveStationSQL string

//go:embed sql/station-temps.sql
var stationTempsSQL string

//go:embed sql/temp-stats-from.sql
var tempStatsFromSQL string

//go:embed sql/temp-stats-range.sql
var tempStatsRangeSQL string

type ClimateRepository interface {
	RecentPrecipitation(ctx context.Context) ([]types.Measurement, error)
	AllStationIDs(ctx context.Context) ([]*string, error)
	MostActiveStation(ctx context.Context) (station string, ok bool, err error)
	MostActiveStationTemps(ctx context.Context) ([]types.Measurement, error)
	TempStats(ctx context.Context, start string, end *string) (types.TempStats, error)
}

type repositoryImpl struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

// NewRepository returns the read-only data access layer. m may be nil.
func NewRepository(db *sqlx.DB, m *metrics.Metrics) ClimateRepository {
	return &repositoryImpl{db: db, metrics: m}
}

// RecentPrecipitation returns measurements with only Date and Prcp bound.
func (r *repositoryImpl) RecentPrecipitation(ctx context.Context) ([]types.Measurement, error) {
	start := time.Now()
	out := []types.Measurement{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(recentPrecipitationSQL), RecordLimit)
	r.metrics.ObserveQuery("recent_precipitation", start, len(out), err)
	if err != nil {
		return nil, fmt.Errorf("recent precipitation: %w", err)
	}
	return out, nil
}

// AllStationIDs returns the station column of every station row in the
// order the engine yields them. Duplicates are kept and a NULL id is nil.
func (r *repositoryImpl) AllStationIDs(ctx context.Context) ([]*string, error) {
	start := time.Now()
	var stations []types.Station
	err := r.db.SelectContext(ctx, &stations, r.db.Rebind(allStationIDsSQL))
	r.metrics.ObserveQuery("all_station_ids", start, len(stations), err)
	if err != nil {
		return nil, fmt.Errorf("all station ids: %w", err)
	}
	out := make([]*string, 0, len(stations))
	for _, s := range stations {
		out = append(out, s.Station)
	}
	return out, nil
}

// MostActiveStation returns the station with the most measurement rows. Among
// stations tied on count the engine picks one; callers must not rely on which.
// ok is false when the measurement table is empty.
func (r *repositoryImpl) MostActiveStation(ctx context.Context) (string, bool, error) {
	start := time.Now()
	var station string
	err := r.db.GetContext(ctx, &station, r.db.Rebind(mostActiveStationSQL))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		r.metrics.ObserveQuery("most_active_station", start, 0, nil)
		return "", false, nil
	case err != nil:
		r.metrics.ObserveQuery("most_active_station", start, 0, err)
		return "", false, fmt.Errorf("most active station: %w", err)
	}
	r.metrics.ObserveQuery("most_active_station", start, 1, nil)
	return station, true, nil
}

// MostActiveStationTemps returns measurements with Station, Date and Tobs bound.
func (r *repositoryImpl) MostActiveStationTemps(ctx context.Context) ([]types.Measurement, error) {
	station, ok, err := r.MostActiveStation(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []types.Measurement{}, nil
	}
	return r.stationTemps(ctx, station)
}

func (r *repositoryImpl) stationTemps(ctx context.Context, station string) ([]types.Measurement, error) {
	start := time.Now()
	out := []types.Measurement{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(stationTempsSQL), station, RecordLimit)
	r.metrics.ObserveQuery("station_temps", start, len(out), err)
	if err != nil {
		return nil, fmt.Errorf("temperatures for station %q: %w", station, err)
	}
	return out, nil
}

// TempStats aggregates tobs over date >= start and, when end is non-nil,
// date <= end. Dates compare as strings. An empty range yields all-null stats.
func (r *repositoryImpl) TempStats(ctx context.Context, start string, end *string) (types.TempStats, error) {
	began := time.Now()
	query, args := tempStatsFromSQL, []any{start}
	if end != nil {
		query, args = tempStatsRangeSQL, []any{start, *end}
	}

	var stats types.TempStats
	err := r.db.GetContext(ctx, &stats, r.db.Rebind(query), args...)
	if err != nil {
		r.metrics.ObserveQuery("temp_stats", began, 0, err)
		return types.TempStats{}, fmt.Errorf("temperature stats: %w", err)
	}
	r.metrics.ObserveQuery("temp_stats", began, 1, nil)
	return stats, nil
}
