package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/middleware"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/service"
)

// AuthController handles login sessions and account administration
type AuthController struct {
	authService service.AuthService
	logger      *slog.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(authService service.AuthService, logger *slog.Logger) *AuthController {
	return &AuthController{authService: authService, logger: logger}
}

type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Confirm  string `json:"confirm_password" form:"confirm_password"`
	Role     string `json:"role" form:"role"`
}

// Login handles POST /api/auth/login
func (c *AuthController) Login(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBind(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := c.authService.Login(ctx.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrMissingFields):
		respondError(ctx, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		c.logger.Warn("login failed", "username", req.Username, "remote_addr", ctx.ClientIP())
		respondError(ctx, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		c.logger.Error("login error", "username", req.Username, "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookie, session.Token, maxAge, "/", "", false, true)

	c.logger.Info("user logged in", "username", session.User.Username, "role", session.User.Role)
	respondData(ctx, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
	})
}

// Register handles POST /api/auth/register
func (c *AuthController) Register(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBind(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := c.authService.Register(ctx.Request.Context(), req.Username, req.Password, req.Confirm)
	if err != nil {
		c.accountError(ctx, "register", err)
		return
	}

	c.logger.Info("user registered", "username", user.Username)
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "data": user})
}

// Logout handles POST /api/auth/logout
func (c *AuthController) Logout(ctx *gin.Context) {
	if err := c.authService.Logout(ctx.Request.Context(), middleware.SessionToken(ctx)); err != nil {
		c.logger.Error("logout error", "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	ctx.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	respondMessage(ctx, "logged out")
}

// Me handles GET /api/auth/me
func (c *AuthController) Me(ctx *gin.Context) {
	respondData(ctx, middleware.CurrentUser(ctx))
}

// ListUsers handles GET /api/admin/users
func (c *AuthController) ListUsers(ctx *gin.Context) {
	users, err := c.authService.ListUsers(ctx.Request.Context())
	if err != nil {
		c.logger.Error("failed to list users", "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}
	respondData(ctx, users)
}

// CreateUser handles POST /api/admin/users
func (c *AuthController) CreateUser(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBind(&req); err != nil {
		respondError(ctx, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := c.authService.CreateUser(ctx.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		c.accountError(ctx, "create user", err)
		return
	}

	c.logger.Info("user created",
		"username", user.Username,
		"role", user.Role,
		"by", actorName(ctx),
	)
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "data": user})
}

// DeleteUser handles DELETE /api/admin/users/:id
func (c *AuthController) DeleteUser(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		respondError(ctx, http.StatusBadRequest, "id must be a valid unsigned integer")
		return
	}

	actor := middleware.CurrentUser(ctx)
	err = c.authService.DeleteUser(ctx.Request.Context(), actor, uint(id))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(ctx, http.StatusNotFound, "user not found")
		return
	case errors.Is(err, service.ErrProtectedUser):
		respondError(ctx, http.StatusForbidden, err.Error())
		return
	case err != nil:
		c.logger.Error("failed to delete user", "id", id, "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
		return
	}

	c.logger.Info("user deleted", "id", id, "by", actorName(ctx))
	respondMessage(ctx, "user deleted")
}

func (c *AuthController) accountError(ctx *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidRole):
		respondError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUsernameTaken):
		respondError(ctx, http.StatusConflict, err.Error())
	default:
		c.logger.Error("account operation failed", "op", op, "error", err.Error())
		respondError(ctx, http.StatusInternalServerError, msgInternal)
	}
}

func actorName(ctx *gin.Context) string {
	if u := middleware.CurrentUser(ctx); u != nil {
		return u.Username
	}
	return ""
}
