package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fullfuel-tv/internal/httpx"
	"github.com/iliyamo/fullfuel-tv/internal/model"
	"github.com/iliyamo/fullfuel-tv/internal/service"
)

// Auth is the part of *service.AuthService the auth endpoints use.
type Auth interface {
	Register(ctx context.Context, in service.RegisterInput) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	ExternalLogin(ctx context.Context, assertion string) (service.AuthResult, error)
	ExternalRegister(ctx context.Context, assertion string) (service.AuthResult, error)
	CurrentUser(ctx context.Context, authorization string) (model.PublicUser, error)
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Auth Auth
}

func NewAuthHandler(a Auth) *AuthHandler {
	return &AuthHandler{Auth: a}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// googleReq accepts the assertion under any of the names Google's client
// libraries use.
type googleReq struct {
	Token      string `json:"token"`
	Credential string `json:"credential"`
	IDToken    string `json:"idToken"`
}

func (r googleReq) assertion() string {
	switch {
	case r.Token != "":
		return r.Token
	case r.Credential != "":
		return r.Credential
	}
	return r.IDToken
}

type userResp struct {
	User model.PublicUser `json:"user"`
}

const msgInvalidBody = "Invalid request body"

// Register: create a password account and return a session token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidBody)
	}
	res, err := h.Auth.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Login: check email/password and return a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidBody)
	}
	res, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Me: return the user named by the bearer token.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.Auth.CurrentUser(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, userResp{User: u})
}

// GoogleLogin: sign in with a Google ID token, creating the account on
// first use.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req googleReq
	if err := c.Bind(&req); err != nil {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidBody)
	}
	res, err := h.Auth.ExternalLogin(c.Request().Context(), req.assertion())
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GoogleRegister: create an account from a Google ID token.  Fails when the
// email is already registered.
func (h *AuthHandler) GoogleRegister(c echo.Context) error {
	var req googleReq
	if err := c.Bind(&req); err != nil {
		return httpx.Message(c, http.StatusBadRequest, msgInvalidBody)
	}
	res, err := h.Auth.ExternalRegister(c.Request().Context(), req.assertion())
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
