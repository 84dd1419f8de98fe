package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/utsavfest/symposium-backend/internal/config"
	"github.com/utsavfest/symposium-backend/internal/queue"
	"github.com/utsavfest/symposium-backend/internal/repository"
	"github.com/utsavfest/symposium-backend/internal/utils"
)

const otpTTL = 10 * time.Minute

// AuthHandler serves registration, login, token refresh and the
// OTP-based password reset flow.
type AuthHandler struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	OTPs   *repository.OTPRepo
	Cfg    config.Config
	Mailer queue.Sender // reset-code delivery; nil disables forgot/reset
}

// NewAuthHandler wires the auth handler.
func NewAuthHandler(users *repository.UserRepo, tokens *repository.TokenRepo,
	otps *repository.OTPRepo, cfg config.Config, mailer queue.Sender) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, OTPs: otps, Cfg: cfg, Mailer: mailer}
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Mobile   string `json:"mobile"`
}

// Register creates a PARTICIPANT account. Admin accounts are seeded
// out-of-band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") || len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password (min 8 chars) required"})
	}
	ctx := c.Request().Context()
	id, err := h.Users.Create(ctx, req.Email, req.Password, req.FullName, req.Mobile, "PARTICIPANT", h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "email": strings.ToLower(req.Email)})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues an access/refresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx := c.Request().Context()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		// Same response for unknown email and wrong password.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
	}
	return h.issueTokens(c, u.ID, u.Role)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates a refresh token: the presented token is revoked and
// a fresh pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	ctx := c.Request().Context()
	hash := utils.HashRefreshRaw(req.RefreshToken)
	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return h.issueTokens(c, u.ID, u.Role)
}

// Logout revokes every active refresh token of the caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Tokens.RevokeAllForUser(c.Request().Context(), userID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

type forgotReq struct {
	Email string `json:"email"`
}

// Forgot starts a password reset: a short-lived numeric code is
// stored in Redis and mailed to the account address. The response is
// identical whether or not the email exists.
func (h *AuthHandler) Forgot(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}
	ctx := c.Request().Context()
	accepted := echo.Map{"message": "if the account exists, a reset code has been sent"}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return c.JSON(http.StatusOK, accepted)
	}
	code, err := utils.GenerateOTP(6)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.OTPs.Store(ctx, u.Email, code, otpTTL); err != nil {
		if errors.Is(err, repository.ErrOTPUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "password reset unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if h.Mailer != nil {
		body := "<html><body><p>Hi " + u.FullName + ",</p><p>Your password reset code is <b>" +
			code + "</b>. It expires in 10 minutes.</p></body></html>"
		if err := h.Mailer.Send(u.Email, "Password reset code", body); err != nil {
			log.Printf("auth: reset mail to %s failed: %v", u.Email, err)
		}
	}
	return c.JSON(http.StatusOK, accepted)
}

type resetReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// Reset completes a password reset. The code is single-use; on
// success every refresh token for the account is revoked.
func (h *AuthHandler) Reset(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Code == "" || len(req.NewPassword) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, code and new_password (min 8 chars) required"})
	}
	ctx := c.Request().Context()
	ok, err := h.OTPs.Consume(ctx, req.Email, req.Code)
	if err != nil {
		if errors.Is(err, repository.ErrOTPUnavailable) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "password reset unavailable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired code"})
	}
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired code"})
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		log.Printf("auth: revoking sessions for user %d failed: %v", u.ID, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *AuthHandler) issueTokens(c echo.Context, userID uint64, role string) error {
	ctx := c.Request().Context()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access.Token,
		"expires_at":    access.Exp,
		"refresh_token": refresh.Raw,
	})
}
