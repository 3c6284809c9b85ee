package controller

import (
	"context"
	"log/slog"
	"net/http"

	"climate-server/internal/utils"
)

const indexHTML = "Welcome to the Climate App API!<br/>" +
	"Available Routes:<br/>" +
	"/api/v1.0/precipitation<br/>" +
	"/api/v1.0/stations<br/>" +
	"/api/v1.0/tobs<br/>" +
	"/api/v1.0/&lt;start&gt;<br/>" +
	"/api/v1.0/&lt;start&gt;/&lt;end&gt;<br/>"

func (c *climateControllerImpl) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if c.queryTimeout > 0 {
		return context.WithTimeout(r.Context(), c.queryTimeout)
	}
	return context.WithCancel(r.Context())
}

func (c *climateControllerImpl) handleIndex(w http.ResponseWriter, r *http.Request) {
	utils.WriteHTML(w, http.StatusOK, indexHTML)
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := c.queryContext(r)
	defer cancel()

	rows, err := c.repository.RecentPrecipitation(ctx)
	if err != nil {
		slog.Error("precipitation: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load precipitation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, shapePrecipitation(rows))
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := c.queryContext(r)
	defer cancel()

	ids, err := c.repository.AllStationIDs(ctx)
	if err != nil {
		slog.Error("stations: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, shapeStations(ids))
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := c.queryContext(r)
	defer cancel()

	rows, err := c.repository.MostActiveStationTemps(ctx)
	if err != nil {
		slog.Error("tobs: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature observations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, shapeTobs(rows))
}

func (c *climateControllerImpl) handleStartStats(w http.ResponseWriter, r *http.Request) {
	start := r.PathValue("start")

	ctx, cancel := c.queryContext(r)
	defer cancel()

	stats, err := c.repository.TempStats(ctx, start, nil)
	if err != nil {
		slog.Error("temp stats: query failed", "start", start, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature stats")
		return
	}
	utils.WriteJSON(w, http.StatusOK, shapeTempStats(stats))
}

func (c *climateControllerImpl) handleRangeStats(w http.ResponseWriter, r *http.Request) {
	start := r.PathValue("start")
	end := r.PathValue("end")

	ctx, cancel := c.queryContext(r)
	defer cancel()

	stats, err := c.repository.TempStats(ctx, start, &end)
	if err != nil {
		slog.Error("temp stats: query failed", "start", start, "end", end, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature stats")
		return
	}
	utils.WriteJSON(w, http.StatusOK, shapeTempStats(stats))
}
