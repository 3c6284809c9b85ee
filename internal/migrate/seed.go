package migrate

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SeedStations loads station rows from a CSV export with the header
// station,name,latitude,longitude,elevation and returns the number inserted.
func SeedStations(ctx context.Context, db *sql.DB, r io.Reader) (int, error) {
	return seed(ctx, db, r,
		[]string{"station", "name", "latitude", "longitude", "elevation"},
		`INSERT INTO station (station, name, latitude, longitude, elevation) VALUES (?, ?, ?, ?, ?)`,
		func(rec []string) ([]any, error) {
			lat, err := nullableFloat(rec[2])
			if err != nil {
				return nil, fmt.Errorf("latitude: %w", err)
			}
			lng, err := nullableFloat(rec[3])
			if err != nil {
				return nil, fmt.Errorf("longitude: %w", err)
			}
			elev, err := nullableFloat(rec[4])
			if err != nil {
				return nil, fmt.Errorf("elevation: %w", err)
			}
			return []any{rec[0], rec[1], lat, lng, elev}, nil
		},
	)
}

// SeedMeasurements loads measurement rows from a CSV export with the header
// station,date,prcp,tobs. Empty prcp/tobs cells become NULL.
func SeedMeasurements(ctx context.Context, db *sql.DB, r io.Reader) (int, error) {
	return seed(ctx, db, r,
		[]string{"station", "date", "prcp", "tobs"},
		`INSERT INTO measurement (station, date, prcp, tobs) VALUES (?, ?, ?, ?)`,
		func(rec []string) ([]any, error) {
			prcp, err := nullableFloat(rec[2])
			if err != nil {
				return nil, fmt.Errorf("prcp: %w", err)
			}
			tobs, err := nullableNumber(rec[3])
			if err != nil {
				return nil, fmt.Errorf("tobs: %w", err)
			}
			return []any{rec[0], rec[1], prcp, tobs}, nil
		},
	)
}

func seed(ctx context.Context, db *sql.DB, r io.Reader, header []string, insertSQL string, bind func([]string) ([]any, error)) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	got, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(got[i]), col) {
			return 0, fmt.Errorf("unexpected header %v (want %v)", got, header)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	n := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("read row %d: %w", n+1, err)
		}
		args, err := bind(rec)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("row %d: %w", n+1, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert row %d: %w", n+1, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func nullableFloat(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return strconv.ParseFloat(s, 64)
}

// nullableNumber keeps whole numbers as integers so the column's numeric
// affinity stores them as INTEGER, as the source exports do.
func nullableNumber(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	return strconv.ParseFloat(s, 64)
}
