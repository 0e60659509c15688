package api

import (
	"net/http"
	"strconv"
	"strings"

	"storefront-service/internal/domain"
)

// GeocodeSearch returns address suggestions for the map picker.
func (h *HTTPHandler) GeocodeSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondWithError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	results, err := h.Geocoder.Search(r.Context(), q)
	if err != nil {
		requestLogger(r).WithError(err).Error("Geocode search failed")
		respondWithJSON(w, http.StatusOK, []domain.Location{})
		return
	}
	respondWithJSON(w, http.StatusOK, results)
}

// GeocodeReverse resolves a dropped pin to a display address.
func (h *HTTPHandler) GeocodeReverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		respondWithError(w, http.StatusBadRequest, "Invalid lat/lng")
		return
	}
	loc, err := h.Geocoder.Reverse(r.Context(), lat, lng)
	if err != nil {
		requestLogger(r).WithError(err).Error("Reverse geocode failed")
		respondWithError(w, http.StatusBadGateway, "Failed to resolve location")
		return
	}
	respondWithJSON(w, http.StatusOK, loc)
}
