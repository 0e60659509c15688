package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/store"
)

const (
	defaultSessionCookie = "storefront_session"
	// HeaderSessionID lets non-browser clients pick their session explicitly.
	HeaderSessionID = "X-Session-ID"
)

type ctxKeySessionID struct{}

type ctxKeyLog struct{}

// SessionCookie configures the session cookie issued to visitors.
type SessionCookie struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// ensureSessionID attaches a session id to the request context, issuing a new
// cookie when the visitor has none.
func (h *HTTPHandler) ensureSessionID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderSessionID)
		if id == "" {
			if c, err := r.Cookie(h.Session.Name); err == nil && c.Value != "" {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     h.Session.Name,
				Value:    id,
				Path:     "/",
				MaxAge:   int(h.Session.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   h.Session.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, id)
		if log, ok := ctx.Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
			ctx = context.WithValue(ctx, ctxKeyLog{}, log.WithField("session", id))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(r *http.Request) string {
	v := r.Context().Value(ctxKeySessionID{})
	if v != nil {
		return v.(string)
	}
	return ""
}

// requireAuth redirects visitors without a stored id token to the login page.
func (h *HTTPHandler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := h.Values.GetValue(r.Context(), sessionID(r), store.KeyAuthToken)
		if err != nil || token == "" {
			if err != nil && !errors.Is(err, store.ErrValueNotFound) {
				requestLogger(r).WithError(err).Warn("Auth token lookup failed")
			}
			http.Redirect(w, r, h.LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs every request once it completes and makes a request-scoped
// logger available to handlers.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			reqLog := log.WithFields(logrus.Fields{
				"http.req.path":   r.URL.Path,
				"http.req.method": r.Method,
				"http.req.id":     middleware.GetReqID(r.Context()),
			})
			ctx := context.WithValue(r.Context(), ctxKeyLog{}, reqLog)

			defer func() {
				reqLog.WithFields(logrus.Fields{
					"http.resp.took_ms": time.Since(start).Milliseconds(),
					"http.resp.status":  ww.Status(),
					"http.resp.bytes":   ww.BytesWritten(),
				}).Debug("request complete")
			}()
			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

// requestLogger returns the request-scoped logger, or the standard logger outside a request.
func requestLogger(r *http.Request) logrus.FieldLogger {
	if log, ok := r.Context().Value(ctxKeyLog{}).(logrus.FieldLogger); ok {
		return log
	}
	return logrus.StandardLogger()
}
