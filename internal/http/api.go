package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"newsdesk/internal/auth"
	"newsdesk/internal/domain"
	"newsdesk/internal/policy"
	"newsdesk/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	news   service.NewsService
	tokens *auth.TokenManager
	logger logrus.FieldLogger
}

func NewHandler(users service.UserService, news service.NewsService, tokens *auth.TokenManager, logger logrus.FieldLogger) *Handler {
	return &Handler{
		users:  users,
		news:   news,
		tokens: tokens,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	authed := auth.RequireAuth(h.tokens, h.users)

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", h.login)
			authGroup.POST("/register", h.register)
			authGroup.POST("/logout", authed, h.logout)
			authGroup.GET("/me", authed, h.me)
		}

		api.GET("/news", authed, h.listNews)
		api.GET("/news/:id", authed, h.getNews)

		admin := api.Group("/admin", authed, auth.RequireAdmin())
		{
			admin.POST("/news", h.createNewsAdmin)
			admin.PUT("/news/:id", h.updateNews)
			admin.DELETE("/news/:id", h.deleteNews)
		}

		area := api.Group("/admin-area", authed)
		{
			area.POST("/news", h.createNewsSelf)
			area.GET("/news", h.listMyNews)
			area.PUT("/news/:id", h.updateNews)
			area.DELETE("/news/:id", h.deleteNews)
			area.GET("/users", h.listUsers)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	RegisterSecret string `json:"register_secret"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username and password are required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid username or password"})
			return
		}
		h.internalError(c, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"token":   token,
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password, req.RegisterSecret)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRegistrationSecret):
			c.JSON(http.StatusForbidden, gin.H{"message": "invalid registration secret"})
		case errors.Is(err, service.ErrUserAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"message": "user already exists"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, userToResponse(*user))
}

func (h *Handler) logout(c *gin.Context) {
	// Tokens are stateless; the client simply discards its copy.
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), p.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok || !policy.CanListUsers(p) {
		c.JSON(http.StatusForbidden, gin.H{"message": "admin required"})
		return
	}

	users, err := h.users.List(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.WithError(err).Errorf("%s %s", c.Request.Method, c.FullPath())
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}

func userToResponse(user domain.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}
