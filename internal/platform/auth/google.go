package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const googleIssuer = "https://accounts.google.com"

// GoogleConfig holds the OAuth client credentials for Google sign-in.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleSignIn implements the browser sign-in flow against Google's OIDC
// endpoints: a login redirect with a CSRF state cookie, and a callback that
// exchanges the authorization code and validates the returned ID token.
type GoogleSignIn struct {
	cfg      GoogleConfig
	provider *OIDCProvider
	client   *http.Client
	keyFunc  jwt.Keyfunc
}

// NewGoogleSignIn discovers Google's OIDC configuration and returns the
// sign-in handler set.
func NewGoogleSignIn(cfg GoogleConfig) (*GoogleSignIn, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google sign-in requires client id and secret")
	}
	provider, err := NewOIDCProvider(googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover google oidc configuration: %w", err)
	}
	return &GoogleSignIn{
		cfg:      cfg,
		provider: provider,
		client:   &http.Client{Timeout: 10 * time.Second},
		keyFunc:  provider.JWKSKeyFunc(),
	}, nil
}

// RegisterRoutes mounts the login and callback endpoints.
func (g *GoogleSignIn) RegisterRoutes(e *echo.Echo) {
	e.GET("/auth/google/login", g.Login)
	e.GET("/auth/google/callback", g.Callback)
}

const stateCookieName = "oauth_state"

// Login redirects the browser to Google's authorization endpoint with a
// random state value pinned in a short-lived cookie.
func (g *GoogleSignIn) Login(c echo.Context) error {
	state, err := randomState()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate state")
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   c.Scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})

	q := url.Values{}
	q.Set("client_id", g.cfg.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)

	return c.Redirect(http.StatusFound, g.provider.AuthorizationEndpoint+"?"+q.Encode())
}

// tokenResponse is the relevant subset of Google's token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// GoogleIdentity is the verified identity returned by the callback.
type GoogleIdentity struct {
	Subject       string `json:"subject"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	IDToken       string `json:"id_token"`
}

// Callback completes the sign-in: it checks the state cookie, exchanges the
// code for tokens, validates the ID token signature and issuer, and refuses
// accounts whose email Google has not verified.
func (g *GoogleSignIn) Callback(c echo.Context) error {
	if errParam := c.QueryParam("error"); errParam != "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "google sign-in refused: "+errParam)
	}

	stateCookie, err := c.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != c.QueryParam("state") {
		return echo.NewHTTPError(http.StatusUnauthorized, "state mismatch")
	}

	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing authorization code")
	}

	tok, err := g.exchangeCode(code)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "code exchange failed")
	}

	identity, err := g.verifyIDToken(tok.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid id token")
	}
	if !identity.EmailVerified {
		return echo.NewHTTPError(http.StatusForbidden, "account email not confirmed")
	}

	return c.JSON(http.StatusOK, identity)
}

func (g *GoogleSignIn) exchangeCode(code string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret)
	form.Set("redirect_uri", g.cfg.RedirectURL)
	form.Set("grant_type", "authorization_code")

	resp, err := g.client.Post(g.provider.TokenEndpoint,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("POST token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	if tok.IDToken == "" {
		return nil, fmt.Errorf("token response missing id_token")
	}
	return &tok, nil
}

type googleIDClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (g *GoogleSignIn) verifyIDToken(raw string) (*GoogleIdentity, error) {
	claims := &googleIDClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, g.keyFunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(googleIssuer),
		jwt.WithAudience(g.cfg.ClientID),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("id token validation: %w", err)
	}

	return &GoogleIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		IDToken:       raw,
	}, nil
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
