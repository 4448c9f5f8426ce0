package http

import (
	"errors"
	"net/http"

	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.renderer.Render(w, "dashboard.html", sess.Page())
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).Map.Snapshot())
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	points, err := sessionFrom(r.Context()).Heatmap(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, domain.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]string{"error": domain.DisplayMessage(err, "Failed to load heatmap data")})
		return
	}
	if points == nil {
		points = []domain.HeatmapPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	loc := domain.NewUserLocation(
		domain.ParseCoordinate(r.PostFormValue("latitude")),
		domain.ParseCoordinate(r.PostFormValue("longitude")),
	)
	mag := domain.MagnitudeFilter{
		Min: domain.ParseCoordinate(r.PostFormValue("minmagnitude")),
		Max: domain.ParseCoordinate(r.PostFormValue("maxmagnitude")),
	}
	sessionFrom(r.Context()).ApplyFilters(r.Context(), loc, mag)
	redirectHome(w, r)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	sessionFrom(r.Context()).Nearby.Submit(r.Context(), r.PostFormValue("latitude"), r.PostFormValue("longitude"))
	redirectHome(w, r)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	err := sessionFrom(r.Context()).Nearby.Predict(r.Context())
	if errors.Is(err, dashboard.ErrPredictionDisabled) {
		s.logger.Debug("prediction rejected", "reason", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleAdvisory(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	sessionFrom(r.Context()).Advisory.Request(r.Context(), r.PostFormValue("latitude"), r.PostFormValue("longitude"))
	redirectHome(w, r)
}

func parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return false
	}
	return true
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
