package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/auth"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/service"
)

const stateCookie = "oauth_state"

// GoogleAuthenticator is the part of auth.GoogleProvider the handler uses.
type GoogleAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

// AuthHandler serves registration, password login and the Google sign-in
// flow.
type AuthHandler struct {
	auth        *service.AuthService
	google      GoogleAuthenticator // nil when Google sign-in is not configured
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google may be nil.
func NewAuthHandler(authService *service.AuthService, google GoogleAuthenticator, frontendURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:        authService,
		google:      google,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
	Address  string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
}

// HandleRegister creates an account and returns a token for it.
//
// HTTP: POST /api/auth/register
// Body: {"name","email","password","phone","gender","address"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Gender:   req.Gender,
		Address:  req.Address,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   result.Token,
		User:    result.User,
	})
}

// HandleLogin checks an email and password and returns a token.
//
// HTTP: POST /api/auth/login
// Body: {"email","password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Token:   result.Token,
		User:    result.User,
	})
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /api/auth/google
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and sent to
// Google, which echoes it on the callback. HandleGoogleCallback rejects a
// callback whose state does not match the cookie.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, newStateCookie(r, state, 600))

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback finishes the Google sign-in and hands the token to
// the frontend.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the Google profile
//  3. Find, link or create the account
//  4. Redirect to FRONTEND_URL/auth-success?token=...&user=...
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeError(w, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, newStateCookie(r, "", -1))

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		h.redirectLoginFailed(w, r, "access_denied")
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, h.logger, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	gu, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		h.redirectLoginFailed(w, r, "google_auth_failed")
		return
	}

	result, err := h.auth.LoginOrRegisterGoogle(r.Context(), gu)
	if err != nil {
		h.logger.Error("google callback: login failed", slog.String("error", err.Error()))
		h.redirectLoginFailed(w, r, "google_auth_failed")
		return
	}

	userJSON, err := json.Marshal(result.User)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	target := h.frontendURL + "/auth-success?" + url.Values{
		"token": {result.Token},
		"user":  {string(userJSON)},
	}.Encode()
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// newStateCookie builds the OAuth state cookie. Setting and clearing use
// the same attributes so browsers treat them as one cookie. Secure is set
// when the request arrived over TLS, directly or via a proxy.
func newStateCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     stateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https"),
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHandler) redirectLoginFailed(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(reason), http.StatusSeeOther)
}
