package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the API HTTP router.
//
// This is intentionally a thin adapter: handlers decode and validate the
// JSON boundary, then delegate to the app services.
func NewRouter(s *Server, auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	// Baseline production-safe middleware (minimal but useful).
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(auth)

	// Health endpoint is deliberately out-of-spec (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/missions", func(r chi.Router) {
		r.Post("/departure", s.CreateDeparture)
		r.Get("/{missionId}", s.GetMission)
		r.Post("/{missionId}/return", s.CreateReturn)
		r.Post("/{missionId}/force-complete", s.ForceComplete)
	})

	r.Route("/vehicles", func(r chi.Router) {
		r.Get("/", s.ListVehicles)
		r.Get("/{vehicleId}", s.GetVehicle)
		r.Get("/{vehicleId}/active-mission", s.GetActiveMission)
		r.Get("/{vehicleId}/missions", s.ListVehicleMissions)
		r.Get("/{vehicleId}/checklist", s.GetChecklist)
	})

	r.Get("/drivers/search", s.SearchDrivers)

	return r
}
