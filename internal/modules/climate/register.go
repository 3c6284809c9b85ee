package climate

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"climate-server/internal/metrics"
	"climate-server/internal/modules/climate/controller"
	"climate-server/internal/modules/climate/repository"
)

func RegisterFeature(mux *http.ServeMux, db *sqlx.DB, m *metrics.Metrics, queryTimeout time.Duration) {
	climateRepository := repository.NewRepository(db, m)
	climateController := controller.NewClimateController(climateRepository, queryTimeout)
	climateController.RegisterRoutes(mux)
}
