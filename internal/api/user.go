package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserHandler struct {
	users     service.IUserService
	relations service.IRelationService
	pages     Paginator
}

func NewUserHandler(users service.IUserService, relations service.IRelationService, pages Paginator) *UserHandler {
	return &UserHandler{users: users, relations: relations, pages: pages}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup, auth middleware.TokenValidator) {
	required := middleware.AuthMiddleware(auth)
	optional := middleware.OptionalAuthMiddleware(auth)

	users := router.Group("/users")
	{
		users.POST("/", h.Register)
		users.GET("/", optional, h.ListUsers)
		users.GET("/me/", required, h.Me)
		users.POST("/set_password/", required, h.SetPassword)
		users.GET("/me/avatar/", required, h.GetAvatar)
		users.PUT("/me/avatar/", required, h.SetAvatar)
		users.DELETE("/me/avatar/", required, h.DeleteAvatar)
		users.GET("/subscriptions/", required, h.Subscriptions)
		users.GET("/:id/", optional, h.GetUser)
		users.POST("/:id/subscribe/", required, h.Subscribe)
		users.DELETE("/:id/subscribe/", required, h.Unsubscribe)
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, types.NewCreatedUserView(user))
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	req, err := h.pages.parse(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	users, total, err := h.users.List(c.Request.Context(), middleware.Viewer(c), req.Limit, req.Offset())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.pages.page(c, req, total, users))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	user, err := h.users.Get(c.Request.Context(), middleware.Viewer(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	user, err := h.users.Get(c.Request.Context(), &userID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(middleware.BadRequest("new_password and current_password are required"))
		return
	}
	userID, _ := middleware.UserID(c)
	if err := h.users.SetPassword(c.Request.Context(), userID, &req); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) GetAvatar(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	user, err := h.users.Get(c.Request.Context(), &userID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": user.Avatar})
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req types.AvatarRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	userID, _ := middleware.UserID(c)
	url, err := h.users.SetAvatar(c.Request.Context(), userID, req.Avatar)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.AvatarResponse{Avatar: url})
}

func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	if err := h.users.DeleteAvatar(c.Request.Context(), userID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	req, err := h.pages.parse(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	recipesLimit, err := queryInt(c, "recipes_limit")
	if err != nil {
		_ = c.Error(err)
		return
	}
	userID, _ := middleware.UserID(c)
	subs, total, err := h.relations.Subscriptions(c.Request.Context(), userID, req.Limit, req.Offset(), recipesLimit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.pages.page(c, req, total, subs))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	recipesLimit, err := queryInt(c, "recipes_limit")
	if err != nil {
		_ = c.Error(err)
		return
	}
	userID, _ := middleware.UserID(c)
	sub, err := h.relations.Subscribe(c.Request.Context(), userID, authorID, recipesLimit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	userID, _ := middleware.UserID(c)
	if err := h.relations.Unsubscribe(c.Request.Context(), userID, authorID); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
