package api

import (
	"net/http"

	"storefront-service/internal/store"
)

// OTPInput is the body of POST /api/auth/otp.
type OTPInput struct {
	Phone          string `json:"phone" validate:"required,e164"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// VerifyInput is the body of POST /api/auth/verify.
type VerifyInput struct {
	SessionInfo string `json:"sessionInfo" validate:"required"`
	Code        string `json:"code" validate:"required,numeric,len=6"`
}

// SendOTP asks the identity provider to text a verification code.
func (h *HTTPHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var input OTPInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	sessionInfo, err := h.Auth.SendVerificationCode(r.Context(), input.Phone, input.RecaptchaToken)
	if err != nil {
		h.respondWithUpstreamError(w, r, err, "Failed to send verification code")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"sessionInfo": sessionInfo})
}

// VerifyOTP completes phone sign-in and stores the tokens and profile in the session.
func (h *HTTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var input VerifyInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	auth, err := h.Auth.SignInWithPhoneNumber(r.Context(), input.SessionInfo, input.Code)
	if err != nil {
		h.respondWithUpstreamError(w, r, err, "Failed to verify code")
		return
	}

	sid := sessionID(r)
	log := requestLogger(r)
	if err := h.Values.PutValue(r.Context(), sid, store.KeyAuthToken, auth.IDToken); err != nil {
		log.WithError(err).Error("Failed to store auth token")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := h.Values.PutValue(r.Context(), sid, store.KeyRefreshToken, auth.RefreshToken); err != nil {
		log.WithError(err).Error("Failed to store refresh token")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := h.saveUser(r, auth.Profile); err != nil {
		log.WithError(err).Warn("Failed to cache user profile")
	}
	h.Tracker.Track(sid)
	log.WithField("uid", auth.Profile.UID).Info("User signed in")

	respondWithJSON(w, http.StatusOK, map[string]any{"user": auth.Profile})
}

// Logout forgets the session's tokens and profile. The cart and wishlist stay.
func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	h.Tracker.Untrack(sid)
	if err := h.Values.DeleteValues(r.Context(), sid, store.KeyAuthToken, store.KeyRefreshToken, store.KeyUser); err != nil {
		requestLogger(r).WithError(err).Error("Failed to clear auth state")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the cached profile of the signed-in user.
func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.userOrRedirect(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"user": u})
}
