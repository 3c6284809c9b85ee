package types

// Measurement is one row of the measurement table: a station's observation for a date.
type Measurement struct {
	ID      int64  `db:"id" json:"id"`
	Station string `db:"station" json:"station"`
	Date    string `db:"date" json:"date"`
	Prcp    Number `db:"prcp" json:"prcp"`
	Tobs    Number `db:"tobs" json:"tobs"`
}

// Station is one row of the station table. Only Station is served by the API.
// The table is filled elsewhere, so every column may be NULL.
type Station struct {
	ID        int64    `db:"id" json:"id"`
	Station   *string  `db:"station" json:"station"`
	Name      *string  `db:"name" json:"name"`
	Latitude  *float64 `db:"latitude" json:"latitude"`
	Longitude *float64 `db:"longitude" json:"longitude"`
	Elevation *float64 `db:"elevation" json:"elevation"`
}

// TobsRow is the JSON shape of one /tobs element.
type TobsRow struct {
	Date string `json:"date"`
	Tobs Number `json:"tobs"`
}

// TempStats is the min/avg/max aggregate of tobs over a date range. All three
// are null when no measurement falls in the range.
type TempStats struct {
	Min Number `db:"tmin" json:"TMIN"`
	Avg Number `db:"tavg" json:"TAVG"`
	Max Number `db:"tmax" json:"TMAX"`
}
