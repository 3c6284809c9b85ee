package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"climate-server/internal/metrics"
	"climate-server/internal/migrate"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Fatalf("close db: %v", closeErr)
		}
	})
	if err := migrate.Run(context.Background(), db.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustExec(t *testing.T, db *sqlx.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// insertDays adds n consecutive January/February 2017 rows for station with a constant tobs.
func insertDays(t *testing.T, db *sqlx.DB, station string, n int, tobs int) {
	t.Helper()
	for i := 0; i < n; i++ {
		date := fmt.Sprintf("2017-%02d-%02d", 1+i/28, 1+i%28)
		mustExec(t, db, `INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
			station, date, float64(i)/100, tobs)
	}
}

func TestNewRepository(t *testing.T) {
	repo := NewRepository(setupTestDB(t), nil)
	if repo == nil {
		t.Fatal("NewRepository returned nil")
	}
}

func TestRecentPrecipitation_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t), nil)

	rows, err := repo.RecentPrecipitation(context.Background())
	if err != nil {
		t.Fatalf("RecentPrecipitation: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("RecentPrecipitation: got %#v, want empty non-nil slice", rows)
	}
}

func TestRecentPrecipitation_OrderedDescendingWithNulls(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `
		INSERT INTO measurement (station, date, prcp, tobs) VALUES
		('USC1', '2017-01-01', 0.5, 65),
		('USC1', '2017-01-03', NULL, 64),
		('USC1', '2017-01-02', 0.0, 66)
	`)
	repo := NewRepository(db, nil)

	rows, err := repo.RecentPrecipitation(context.Background())
	if err != nil {
		t.Fatalf("RecentPrecipitation: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("RecentPrecipitation: got %d rows, want 3", len(rows))
	}
	wantDates := []string{"2017-01-03", "2017-01-02", "2017-01-01"}
	for i, want := range wantDates {
		if rows[i].Date != want {
			t.Errorf("rows[%d].Date = %q, want %q", i, rows[i].Date, want)
		}
	}
	if rows[0].Prcp.Valid() {
		t.Errorf("rows[0].Prcp = %v, want null", rows[0].Prcp)
	}
	if v, ok := rows[1].Prcp.Float64(); !ok || v != 0 {
		t.Errorf("rows[1].Prcp = %v, want 0.0", rows[1].Prcp)
	}
}

func TestRecentPrecipitation_CapsRowsAcrossStations(t *testing.T) {
	db := setupTestDB(t)
	// 400 distinct dates for one station, 400 overlapping ones for another.
	for i := 0; i < 400; i++ {
		date := fmt.Sprintf("2016-%03d", i)
		mustExec(t, db, `INSERT INTO measurement (station, date, prcp, tobs) VALUES ('A', ?, 0.1, 70), ('B', ?, 0.2, 71)`, date, date)
	}
	repo := NewRepository(db, nil)

	rows, err := repo.RecentPrecipitation(context.Background())
	if err != nil {
		t.Fatalf("RecentPrecipitation: %v", err)
	}
	if len(rows) != RecordLimit {
		t.Fatalf("RecentPrecipitation: got %d rows, want %d", len(rows), RecordLimit)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Date > rows[i-1].Date {
			t.Fatalf("rows not non-increasing at %d: %q > %q", i, rows[i].Date, rows[i-1].Date)
		}
	}
	distinct := map[string]bool{}
	for _, r := range rows {
		distinct[r.Date] = true
	}
	// Two stations per date: the cap covers about half as many calendar days.
	if len(distinct) >= RecordLimit {
		t.Errorf("distinct dates = %d, want fewer than %d", len(distinct), RecordLimit)
	}
}

func TestAllStationIDs_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t), nil)

	ids, err := repo.AllStationIDs(context.Background())
	if err != nil {
		t.Fatalf("AllStationIDs: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("AllStationIDs: got %#v, want empty non-nil slice", ids)
	}
}

func TestAllStationIDs_MatchesRowCount(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `
		INSERT INTO station (station, name, latitude, longitude, elevation) VALUES
		('USC00519397', 'WAIKIKI 717.2, HI US', 21.2716, -157.8168, 3.0),
		('USC00513117', 'KANEOHE 838.1, HI US', 21.4234, -157.8015, 14.6),
		('USC00514830', 'KUALOA RANCH HEADQUARTERS 886.9, HI US', 21.5213, -157.8374, 7.0)
	`)
	repo := NewRepository(db, nil)

	ids, err := repo.AllStationIDs(context.Background())
	if err != nil {
		t.Fatalf("AllStationIDs: %v", err)
	}
	var count int
	if err := db.Get(&count, `SELECT COUNT(*) FROM station`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if len(ids) != count {
		t.Fatalf("AllStationIDs: got %d ids, want %d", len(ids), count)
	}
	want := map[string]bool{"USC00519397": true, "USC00513117": true, "USC00514830": true}
	for _, id := range ids {
		if id == nil || !want[*id] {
			t.Errorf("unexpected station id %v", id)
		}
	}
}

func TestAllStationIDs_KeepsNullAndDuplicateRows(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `INSERT INTO station (station) VALUES ('A'), (NULL), ('A')`)
	repo := NewRepository(db, nil)

	ids, err := repo.AllStationIDs(context.Background())
	if err != nil {
		t.Fatalf("AllStationIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("AllStationIDs: got %d ids, want 3", len(ids))
	}
	var nulls, as int
	for _, id := range ids {
		switch {
		case id == nil:
			nulls++
		case *id == "A":
			as++
		}
	}
	if nulls != 1 || as != 2 {
		t.Errorf("AllStationIDs: got %d nil and %d \"A\", want 1 and 2", nulls, as)
	}
}

func TestMostActiveStation(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		repo := NewRepository(setupTestDB(t), nil)
		station, ok, err := repo.MostActiveStation(context.Background())
		if err != nil {
			t.Fatalf("MostActiveStation: %v", err)
		}
		if ok || station != "" {
			t.Errorf("MostActiveStation = (%q, %v), want (\"\", false)", station, ok)
		}
	})

	t.Run("highest row count wins", func(t *testing.T) {
		db := setupTestDB(t)
		insertDays(t, db, "B", 5, 60)
		insertDays(t, db, "A", 10, 70)
		insertDays(t, db, "C", 7, 65)
		repo := NewRepository(db, nil)

		station, ok, err := repo.MostActiveStation(context.Background())
		if err != nil {
			t.Fatalf("MostActiveStation: %v", err)
		}
		if !ok || station != "A" {
			t.Errorf("MostActiveStation = (%q, %v), want (A, true)", station, ok)
		}
	})

	t.Run("tie returns one of the tied stations", func(t *testing.T) {
		db := setupTestDB(t)
		insertDays(t, db, "A", 4, 70)
		insertDays(t, db, "B", 4, 60)
		insertDays(t, db, "C", 1, 50)
		repo := NewRepository(db, nil)

		station, ok, err := repo.MostActiveStation(context.Background())
		if err != nil {
			t.Fatalf("MostActiveStation: %v", err)
		}
		if !ok || (station != "A" && station != "B") {
			t.Errorf("MostActiveStation = (%q, %v), want A or B", station, ok)
		}
	})
}

func TestMostActiveStationTemps_OnlyMostActiveStation(t *testing.T) {
	db := setupTestDB(t)
	insertDays(t, db, "A", 10, 70)
	insertDays(t, db, "B", 5, 60)
	repo := NewRepository(db, nil)

	rows, err := repo.MostActiveStationTemps(context.Background())
	if err != nil {
		t.Fatalf("MostActiveStationTemps: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("MostActiveStationTemps: got %d rows, want 10", len(rows))
	}
	for i, r := range rows {
		if r.Station != "A" {
			t.Errorf("rows[%d].Station = %q, want A", i, r.Station)
		}
		// Station A is the only one recorded at 70.
		if v, ok := r.Tobs.Float64(); !ok || v != 70 {
			t.Errorf("rows[%d].Tobs = %v, want 70 (station A)", i, r.Tobs)
		}
		if i > 0 && r.Date > rows[i-1].Date {
			t.Errorf("rows not descending at %d: %q > %q", i, r.Date, rows[i-1].Date)
		}
	}
	if !rows[0].Tobs.IsInteger() {
		t.Errorf("integer tobs scanned as real: %v", rows[0].Tobs)
	}
}

func TestMostActiveStationTemps_Capped(t *testing.T) {
	db := setupTestDB(t)
	for i := 0; i < RecordLimit+20; i++ {
		mustExec(t, db, `INSERT INTO measurement (station, date, tobs) VALUES ('A', ?, 72)`, fmt.Sprintf("2015-%03d", i))
	}
	repo := NewRepository(db, nil)

	rows, err := repo.MostActiveStationTemps(context.Background())
	if err != nil {
		t.Fatalf("MostActiveStationTemps: %v", err)
	}
	if len(rows) != RecordLimit {
		t.Fatalf("MostActiveStationTemps: got %d rows, want %d", len(rows), RecordLimit)
	}
	if rows[0].Date != fmt.Sprintf("2015-%03d", RecordLimit+19) {
		t.Errorf("first row date = %q, want the latest", rows[0].Date)
	}
}

func TestMostActiveStationTemps_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t), nil)

	rows, err := repo.MostActiveStationTemps(context.Background())
	if err != nil {
		t.Fatalf("MostActiveStationTemps: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Fatalf("MostActiveStationTemps: got %#v, want empty non-nil slice", rows)
	}
}

func TestTempStats_Fixture(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `
		INSERT INTO measurement (station, date, prcp, tobs) VALUES
		('USC1', '2017-01-01', 0.5, 65),
		('USC1', '2017-01-02', 0.0, 66)
	`)
	repo := NewRepository(db, nil)

	stats, err := repo.TempStats(context.Background(), "2017-01-02", nil)
	if err != nil {
		t.Fatalf("TempStats: %v", err)
	}
	if got := stats.Min.String() + " " + stats.Avg.String() + " " + stats.Max.String(); got != "66 66.0 66" {
		t.Errorf("TempStats(2017-01-02) = %s, want 66 66.0 66", got)
	}

	stats, err = repo.TempStats(context.Background(), "2017-01-01", nil)
	if err != nil {
		t.Fatalf("TempStats: %v", err)
	}
	if got := stats.Min.String() + " " + stats.Avg.String() + " " + stats.Max.String(); got != "65 65.5 66" {
		t.Errorf("TempStats(2017-01-01) = %s, want 65 65.5 66", got)
	}
}

func TestTempStats_NoMatchingRowsIsAllNull(t *testing.T) {
	db := setupTestDB(t)
	insertDays(t, db, "A", 3, 70)
	repo := NewRepository(db, nil)

	end := "2099-12-31"
	for name, endArg := range map[string]*string{"start only": nil, "start and end": &end} {
		t.Run(name, func(t *testing.T) {
			stats, err := repo.TempStats(context.Background(), "2099-01-01", endArg)
			if err != nil {
				t.Fatalf("TempStats: %v", err)
			}
			if stats.Min.Valid() || stats.Avg.Valid() || stats.Max.Valid() {
				t.Errorf("TempStats = %+v, want all null", stats)
			}
		})
	}
}

func TestTempStats_RangeIsInclusiveAndOrdered(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `
		INSERT INTO measurement (station, date, tobs) VALUES
		('A', '2017-01-01', 60),
		('A', '2017-01-02', 62),
		('B', '2017-01-02', 75),
		('A', '2017-01-03', 64),
		('A', '2017-01-04', 90)
	`)
	repo := NewRepository(db, nil)

	end := "2017-01-03"
	stats, err := repo.TempStats(context.Background(), "2017-01-02", &end)
	if err != nil {
		t.Fatalf("TempStats: %v", err)
	}
	tmin, _ := stats.Min.Float64()
	tavg, _ := stats.Avg.Float64()
	tmax, _ := stats.Max.Float64()
	if tmin != 62 || tmax != 75 {
		t.Errorf("min/max = %v/%v, want 62/75", tmin, tmax)
	}
	if tavg != (62.0+75.0+64.0)/3 {
		t.Errorf("avg = %v, want %v", tavg, (62.0+75.0+64.0)/3)
	}
	if !(tmin <= tavg && tavg <= tmax) {
		t.Errorf("TMIN <= TAVG <= TMAX violated: %v %v %v", tmin, tavg, tmax)
	}
}

func TestTempStats_OpenEndEqualsMaximalEnd(t *testing.T) {
	db := setupTestDB(t)
	mustExec(t, db, `
		INSERT INTO measurement (station, date, tobs) VALUES
		('A', '2016-08-23', 81),
		('A', '2017-02-14', 66.5),
		('B', '2017-08-23', 79)
	`)
	repo := NewRepository(db, nil)

	maxDate := "9999-12-31"
	for _, start := range []string{"2016-01-01", "2017-01-01", "2017-08-23", "2018-01-01", "not-a-date"} {
		open, err := repo.TempStats(context.Background(), start, nil)
		if err != nil {
			t.Fatalf("TempStats(%q, nil): %v", start, err)
		}
		closed, err := repo.TempStats(context.Background(), start, &maxDate)
		if err != nil {
			t.Fatalf("TempStats(%q, max): %v", start, err)
		}
		if open != closed {
			t.Errorf("start %q: open-ended %+v != bounded %+v", start, open, closed)
		}
	}
}

func TestTempStats_StartAfterEndIsEmpty(t *testing.T) {
	db := setupTestDB(t)
	insertDays(t, db, "A", 5, 70)
	repo := NewRepository(db, nil)

	end := "2017-01-01"
	stats, err := repo.TempStats(context.Background(), "2017-01-05", &end)
	if err != nil {
		t.Fatalf("TempStats: %v", err)
	}
	if stats.Min.Valid() || stats.Avg.Valid() || stats.Max.Valid() {
		t.Errorf("TempStats = %+v, want all null", stats)
	}
}

func TestQueries_FailWhenSchemaMissing(t *testing.T) {
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	defer func() { _ = db.Close() }()
	m := metrics.NewMetricsForTesting()
	repo := NewRepository(db, m)
	ctx := context.Background()

	if _, err := repo.RecentPrecipitation(ctx); err == nil {
		t.Error("RecentPrecipitation: want error without measurement table")
	}
	if _, err := repo.AllStationIDs(ctx); err == nil {
		t.Error("AllStationIDs: want error without station table")
	}
	if _, err := repo.MostActiveStationTemps(ctx); err == nil {
		t.Error("MostActiveStationTemps: want error without measurement table")
	}
	if _, err := repo.TempStats(ctx, "2017-01-01", nil); err == nil {
		t.Error("TempStats: want error without measurement table")
	}

	if got := testutil.ToFloat64(m.QueryErrors.WithLabelValues("temp_stats")); got != 1 {
		t.Errorf("temp_stats errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.QueryErrors.WithLabelValues("most_active_station")); got != 1 {
		t.Errorf("most_active_station errors = %v, want 1", got)
	}
}

func TestQueries_RespectCancelledContext(t *testing.T) {
	db := setupTestDB(t)
	insertDays(t, db, "A", 3, 70)
	repo := NewRepository(db, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := repo.RecentPrecipitation(ctx); err == nil {
		t.Error("RecentPrecipitation with cancelled context: want error")
	}
}

// Ensure repo implements the interface.
var _ ClimateRepository = (*repositoryImpl)(nil)
