package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"userhub/internal/auth"
	"userhub/internal/domain"
	"userhub/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	codec    *auth.TokenCodec
	resolver *auth.Resolver
	logger   *logrus.Logger

	appName     string
	appVersion  string
	environment string
	apiPrefix   string
	corsEnabled bool
	corsOrigins []string
}

// HandlerConfig carries the presentation-level settings the handler needs.
type HandlerConfig struct {
	AppName     string
	AppVersion  string
	Environment string
	APIPrefix   string
	CORSEnabled bool
	CORSOrigins []string
}

func NewHandler(users service.UserService, codec *auth.TokenCodec, resolver *auth.Resolver, logger *logrus.Logger, cfg HandlerConfig) *Handler {
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &Handler{
		users:       users,
		codec:       codec,
		resolver:    resolver,
		logger:      logger,
		appName:     cfg.AppName,
		appVersion:  cfg.AppVersion,
		environment: cfg.Environment,
		apiPrefix:   cfg.APIPrefix,
		corsEnabled: cfg.CORSEnabled,
		corsOrigins: cfg.CORSOrigins,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestIDMiddleware())
	if h.corsEnabled {
		router.Use(corsMiddleware(h.corsOrigins))
	}

	router.GET("/", h.root)

	api := router.Group(h.apiPrefix)
	{
		health := api.Group("/health")
		{
			health.GET("", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "healthy"})
			})
			health.GET("/ready", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ready"})
			})
			health.GET("/live", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "alive"})
			})
		}

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", h.login)
			authGroup.POST("/logout", h.logout)
		}

		// gin's router cannot hold /users/me next to /users/:id, so "me"
		// is handled as a special :id value inside the handlers
		users := api.Group("/users")
		{
			users.POST("", h.createUser)
			users.GET("/:id", h.requireAuth(), h.getUser)
			users.PATCH("/:id", h.requireAuth(), h.updateUser)
			users.DELETE("/:id", h.requireAuth(), h.requireSuperuser(), h.deleteUser)
		}
	}
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        h.appName,
		"version":     h.appVersion,
		"environment": h.environment,
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.WrapError(domain.KindValidation, err, "request validation failed"))
		return
	}

	pair, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if domain.IsKind(err, domain.KindUnauthorized) {
			h.logger.WithField("request_id", requestID(c)).
				Warnf("failed login attempt for username %q", req.Username)
			c.Header("WWW-Authenticate", "Bearer")
		}
		h.writeError(c, err)
		return
	}

	h.logger.WithField("request_id", requestID(c)).
		Infof("user %s logged in", req.Username)
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

func (h *Handler) logout(c *gin.Context) {
	// Tokens are stateless; nothing to invalidate server-side.
	c.JSON(http.StatusOK, gin.H{"message": "successfully logged out"})
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username" binding:"required"`
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"required"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	IsActive *bool   `json:"is_active"`
}

// UserResponse is the wire shape of a user. It never carries the password
// hash.
type UserResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	FullName    string `json:"full_name,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		FullName:    user.FullName,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.WrapError(domain.KindValidation, err, "request validation failed"))
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.NewUser{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.WithField("request_id", requestID(c)).
		Infof("new user created: %s", user.Username)
	c.JSON(http.StatusCreated, userToResponse(user))
}

func (h *Handler) getUser(c *gin.Context) {
	if c.Param("id") == "me" {
		c.JSON(http.StatusOK, userToResponse(currentUser(c)))
		return
	}

	id, ok := h.userIDParam(c)
	if !ok {
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

// updateUser handles both self-updates (/users/me, any authenticated user)
// and updates by id (superuser only).
func (h *Handler) updateUser(c *gin.Context) {
	if c.Param("id") == "me" {
		h.applyUpdate(c, currentUser(c).ID)
		return
	}

	if err := auth.Authorize(currentUser(c), domain.TierSuperuser); err != nil {
		h.writeError(c, err)
		return
	}
	id, ok := h.userIDParam(c)
	if !ok {
		return
	}
	h.applyUpdate(c, id)
}

func (h *Handler) applyUpdate(c *gin.Context, id int64) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, domain.WrapError(domain.KindValidation, err, "request validation failed"))
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, domain.UserUpdate{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.WithField("request_id", requestID(c)).
		Infof("user %s updated", user.Username)
	c.JSON(http.StatusOK, userToResponse(user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	id, ok := h.userIDParam(c)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	h.logger.WithField("request_id", requestID(c)).
		Infof("superuser %s deleted user %d", currentUser(c).Username, id)
	c.Status(http.StatusNoContent)
}

func (h *Handler) userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(c, domain.NewError(domain.KindValidation, "invalid user id"))
		return 0, false
	}
	return id, true
}

var kindStatus = map[domain.Kind]int{
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindConflict:     http.StatusConflict,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindForbidden:    http.StatusForbidden,
	domain.KindValidation:   http.StatusUnprocessableEntity,
	domain.KindInternal:     http.StatusInternalServerError,
}

// writeError renders the uniform error envelope. The client sees only the
// classified message; the full error chain stays in the logs. Unclassified
// errors are logged with full context and surface as a generic internal
// error.
func (h *Handler) writeError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	var appErr *domain.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if kind == domain.KindInternal {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID(c),
			"path":       c.Request.URL.Path,
		}).Errorf("unexpected error: %v", err)
		message = "an unexpected error occurred"
	}
	c.JSON(kindStatus[kind], gin.H{
		"error":   string(kind),
		"message": message,
	})
}

func (h *Handler) abortWithError(c *gin.Context, err error) {
	h.writeError(c, err)
	c.Abort()
}
