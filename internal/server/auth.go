package server

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohammad-safakhou/documind/internal/runtime"
	"github.com/mohammad-safakhou/documind/internal/store"
)

const minPasswordLen = 8

type AuthHandler struct {
	Store        *store.Store // nil when Postgres is not configured
	Secret       []byte
	TTL          time.Duration
	GuestSubject string
	SecureCookie bool
}

func (a *AuthHandler) Register(g *echo.Group) {
	g.POST("/register", a.register)
	g.POST("/token", a.token)
	g.POST("/guest", a.guest)
	g.POST("/logout", a.logout)
}

func (a *AuthHandler) requireStore() error {
	if a.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "user accounts are not available; use /api/auth/guest")
	}
	return nil
}

// Register
//
//	@Summary		User registration
//	@Description	Create an account and return a bearer token
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AuthRegisterRequest	true	"Registration payload"
//	@Success		201		{object}	TokenResponse
//	@Failure		400		{object}	HTTPError
//	@Failure		409		{object}	HTTPError
//	@Failure		503		{object}	HTTPError
//	@Router			/api/auth/register [post]
func (a *AuthHandler) register(c echo.Context) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	var req AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	email, err := normaliseEmail(req.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < minPasswordLen {
		return echo.NewHTTPError(http.StatusBadRequest, "password too short")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if _, err := a.Store.CreateUser(c.Request().Context(), email, string(hash)); err != nil {
		if store.IsUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusConflict, "user already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return a.issue(c, http.StatusCreated, email)
}

// Token
//
//	@Summary		Login
//	@Description	OAuth2 password flow; returns JWT in cookie and body
//	@Tags			auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string	true	"Email"
//	@Param			password	formData	string	true	"Password"
//	@Success		200			{object}	TokenResponse
//	@Failure		401			{object}	HTTPError
//	@Failure		503			{object}	HTTPError
//	@Router			/api/auth/token [post]
func (a *AuthHandler) token(c echo.Context) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	var req AuthTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	email := strings.ToLower(strings.TrimSpace(req.Username))
	_, hash, err := a.Store.GetUserByEmail(c.Request().Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.Logger().Errorf("user lookup: %v", err)
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}
	return a.issue(c, http.StatusOK, email)
}

// Guest
//
//	@Summary	Guest token for demos; needs no database
//	@Tags		auth
//	@Produce	json
//	@Success	200	{object}	TokenResponse
//	@Router		/api/auth/guest [post]
func (a *AuthHandler) guest(c echo.Context) error {
	return a.issue(c, http.StatusOK, a.GuestSubject)
}

// Logout
//
//	@Summary	Logout
//	@Tags		auth
//	@Produce	json
//	@Success	200	{string}	string	"OK"
//	@Router		/api/auth/logout [post]
func (a *AuthHandler) logout(c echo.Context) error {
	cookie := new(http.Cookie)
	cookie.Name = runtime.AuthCookie
	cookie.Value = ""
	cookie.Path = "/"
	cookie.MaxAge = -1
	c.SetCookie(cookie)
	return c.NoContent(http.StatusOK)
}

func (a *AuthHandler) issue(c echo.Context, status int, subject string) error {
	signed, err := runtime.SignJWT(subject, a.Secret, a.TTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	cookie := new(http.Cookie)
	cookie.Name = runtime.AuthCookie
	cookie.Value = signed
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode
	cookie.Secure = a.SecureCookie
	cookie.MaxAge = int(a.TTL / time.Second)
	c.SetCookie(cookie)
	// also return token for Bearer flows
	c.Response().Header().Set("Authorization", "Bearer "+signed)
	return c.JSON(status, TokenResponse{AccessToken: signed, TokenType: "bearer"})
}

func normaliseEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	// reject "Name <a@b>" forms; the address must be given bare
	if addr.Name != "" || !strings.EqualFold(addr.Address, strings.TrimSpace(raw)) {
		return "", errors.New("email must be a bare address")
	}
	return strings.ToLower(addr.Address), nil
}
