package controller

import (
	"net/http"
	"time"

	"climate-server/internal/modules/climate/repository"
)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type climateControllerImpl struct {
	repository   repository.ClimateRepository
	queryTimeout time.Duration
}

// NewClimateController wires the handlers to repository. Each request's
// queries are bounded by queryTimeout; zero leaves only the request context.
func NewClimateController(repository repository.ClimateRepository, queryTimeout time.Duration) ClimateController {
	return &climateControllerImpl{repository: repository, queryTimeout: queryTimeout}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleIndex)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleStartStats)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleRangeStats)
}
