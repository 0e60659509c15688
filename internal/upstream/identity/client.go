// Package identity implements phone-number sign-in against an
// Identity-Toolkit-compatible REST provider.
package identity

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"storefront-service/internal/domain"
	"storefront-service/internal/upstream"
)

const serviceName = "identity"

// Config locates the identity provider. TokenURL is the secure-token service
// used for refreshes.
type Config struct {
	BaseURL  string
	TokenURL string
	APIKey   string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config, httpClient *http.Client) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.TokenURL = strings.TrimRight(cfg.TokenURL, "/")
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) accountsURL(method string) string {
	return c.cfg.BaseURL + "/v1/accounts:" + method + "?key=" + url.QueryEscape(c.cfg.APIKey)
}

// SendVerificationCode texts a one-time code to phone and returns the
// sessionInfo needed to verify it.
func (c *Client) SendVerificationCode(ctx context.Context, phone, recaptchaToken string) (string, error) {
	body := map[string]string{"phoneNumber": phone}
	if recaptchaToken != "" {
		body["recaptchaToken"] = recaptchaToken
	}
	req, err := upstream.NewJSONRequest(ctx, http.MethodPost, c.accountsURL("sendVerificationCode"), body)
	if err != nil {
		return "", err
	}
	var resp struct {
		SessionInfo string `json:"sessionInfo"`
	}
	if err := upstream.Do(c.http, serviceName, req, &resp); err != nil {
		return "", errors.Wrap(err, "send verification code")
	}
	if resp.SessionInfo == "" {
		return "", errors.New("identity: empty sessionInfo in response")
	}
	return resp.SessionInfo, nil
}

// SignInWithPhoneNumber exchanges a verification code for tokens.
func (c *Client) SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (domain.AuthSession, error) {
	body := map[string]string{"sessionInfo": sessionInfo, "code": code}
	req, err := upstream.NewJSONRequest(ctx, http.MethodPost, c.accountsURL("signInWithPhoneNumber"), body)
	if err != nil {
		return domain.AuthSession{}, err
	}
	var resp struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
		LocalID      string `json:"localId"`
		PhoneNumber  string `json:"phoneNumber"`
	}
	if err := upstream.Do(c.http, serviceName, req, &resp); err != nil {
		return domain.AuthSession{}, errors.Wrap(err, "sign in with phone number")
	}
	return domain.AuthSession{
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    parseSeconds(resp.ExpiresIn),
		Profile:      domain.UserProfile{UID: resp.LocalID, Phone: resp.PhoneNumber},
	}, nil
}

// RefreshToken trades a refresh token for a fresh id token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (domain.AuthSession, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	u := c.cfg.TokenURL + "/v1/token?key=" + url.QueryEscape(c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.AuthSession{}, errors.Wrap(err, "build refresh request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var resp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	if err := upstream.Do(c.http, serviceName, req, &resp); err != nil {
		return domain.AuthSession{}, errors.Wrap(err, "refresh token")
	}
	return domain.AuthSession{
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    parseSeconds(resp.ExpiresIn),
		Profile:      domain.UserProfile{UID: resp.UserID},
	}, nil
}

func parseSeconds(s string) time.Duration {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return time.Duration(n) * time.Second
}
