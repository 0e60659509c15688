package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
	"storefront-service/internal/upstream/cms"
)

// ReviewInput is the body of POST /api/reviews.
type ReviewInput struct {
	Product string `json:"product" validate:"required"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title" validate:"max=120"`
	Review  string `json:"review" validate:"required,max=2000"`
}

// AddressInput is the body of POST /api/addresses. A location must have been
// picked on the map.
type AddressInput struct {
	Label        string   `json:"label" validate:"required,oneof=home work other"`
	Name         string   `json:"name" validate:"required,max=100"`
	Phone        string   `json:"phone" validate:"omitempty,min=10,max=15"`
	FlatHouse    string   `json:"flatHouse" validate:"required,max=200"`
	Floor        string   `json:"floor" validate:"max=50"`
	AreaLocality string   `json:"areaLocality" validate:"required,max=200"`
	Landmark     string   `json:"landmark" validate:"max=200"`
	Lat          *float64 `json:"lat" validate:"required,latitude"`
	Lng          *float64 `json:"lng" validate:"required,longitude"`
}

type ProfileInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Address string `json:"address" validate:"required,max=500"`
}

// currentUser reads the signed-in user's cached profile from the session.
func (h *HTTPHandler) currentUser(r *http.Request) (domain.UserProfile, error) {
	raw, err := h.Values.GetValue(r.Context(), sessionID(r), store.KeyUser)
	if err != nil {
		return domain.UserProfile{}, err
	}
	var u domain.UserProfile
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return domain.UserProfile{}, err
	}
	return u, nil
}

func (h *HTTPHandler) saveUser(r *http.Request, u domain.UserProfile) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return h.Values.PutValue(r.Context(), sessionID(r), store.KeyUser, string(raw))
}

// userOrRedirect resolves the signed-in user. Without a cached profile the
// session is treated as signed out.
func (h *HTTPHandler) userOrRedirect(w http.ResponseWriter, r *http.Request) (domain.UserProfile, bool) {
	u, err := h.currentUser(r)
	if err != nil || u.UID == "" {
		if err != nil && !errors.Is(err, store.ErrValueNotFound) {
			requestLogger(r).WithError(err).Warn("Failed to read cached user")
		}
		http.Redirect(w, r, h.LoginPath, http.StatusSeeOther)
		return domain.UserProfile{}, false
	}
	return u, true
}

// ListReviews returns approved reviews for a product.
func (h *HTTPHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = cms.DefaultReviewLimit
	}
	if limit > 100 {
		limit = 100
	}

	reviews, err := h.Content.ListApprovedReviews(r.Context(), productID, limit)
	if err != nil {
		requestLogger(r).WithError(err).Error("ListReviews upstream call failed")
		respondWithJSON(w, http.StatusOK, []domain.Review{})
		return
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

// SubmitReview creates or replaces the caller's review of a product.
func (h *HTTPHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var input ReviewInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	u, ok := h.userOrRedirect(w, r)
	if !ok {
		return
	}

	saved, err := h.Content.UpsertReview(r.Context(), domain.Review{
		Product: input.Product,
		User:    u.UID,
		Title:   input.Title,
		Rating:  input.Rating,
		Review:  input.Review,
	})
	if err != nil {
		h.respondWithUpstreamError(w, r, err, "Failed to save review")
		return
	}
	respondWithJSON(w, http.StatusOK, saved)
}

func (h *HTTPHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	u, ok := h.userOrRedirect(w, r)
	if !ok {
		return
	}
	addrs, err := h.Content.ListAddresses(r.Context(), u.UID)
	if err != nil {
		requestLogger(r).WithError(err).Error("ListAddresses upstream call failed")
		respondWithJSON(w, http.StatusOK, []domain.Address{})
		return
	}
	respondWithJSON(w, http.StatusOK, addrs)
}

func (h *HTTPHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var input AddressInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	u, ok := h.userOrRedirect(w, r)
	if !ok {
		return
	}

	saved, err := h.Content.CreateAddress(r.Context(), domain.Address{
		User:         u.UID,
		Label:        input.Label,
		Name:         input.Name,
		Phone:        input.Phone,
		FlatHouse:    input.FlatHouse,
		Floor:        input.Floor,
		AreaLocality: input.AreaLocality,
		Landmark:     input.Landmark,
		Lat:          *input.Lat,
		Lng:          *input.Lng,
	})
	if err != nil {
		h.respondWithUpstreamError(w, r, err, "Failed to save address")
		return
	}
	respondWithJSON(w, http.StatusCreated, saved)
}

// SaveProfile stores the name and address entered after the first sign-in and
// refreshes the cached profile.
func (h *HTTPHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var input ProfileInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	u, ok := h.userOrRedirect(w, r)
	if !ok {
		return
	}

	saved, err := h.Content.SaveUserDetails(r.Context(), u.Phone, input.Name, input.Address)
	if err != nil {
		h.respondWithUpstreamError(w, r, err, "Failed to save user details")
		return
	}
	if saved.UID == "" {
		saved.UID = u.UID
	}
	if saved.Phone == "" {
		saved.Phone = u.Phone
	}
	if err := h.saveUser(r, saved); err != nil {
		requestLogger(r).WithError(err).Warn("Failed to cache user profile")
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"user": saved})
}
