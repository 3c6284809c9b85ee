package controller

import "climate-server/internal/modules/climate/types"

// shapePrecipitation maps date to prcp. Rows sharing a date overwrite each
// other in row order, so the last one wins.
func shapePrecipitation(rows []types.Measurement) map[string]types.Number {
	out := make(map[string]types.Number, len(rows))
	for _, row := range rows {
		out[row.Date] = row.Prcp
	}
	return out
}

func shapeTobs(rows []types.Measurement) []types.TobsRow {
	out := make([]types.TobsRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.TobsRow{Date: row.Date, Tobs: row.Tobs})
	}
	return out
}

// shapeStations keeps a NULL id as a JSON null.
func shapeStations(ids []*string) []*string {
	if ids == nil {
		return []*string{}
	}
	return ids
}

// shapeTempStats wraps the aggregate in a one-element list.
func shapeTempStats(stats types.TempStats) []types.TempStats {
	return []types.TempStats{stats}
}
