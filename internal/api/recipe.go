package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type RecipeHandler struct {
	recipes   service.IRecipeService
	relations service.IRelationService
	links     service.IShortLinkService
	pages     Paginator
}

func NewRecipeHandler(recipes service.IRecipeService, relations service.IRelationService, links service.IShortLinkService, pages Paginator) *RecipeHandler {
	return &RecipeHandler{
		recipes:   recipes,
		relations: relations,
		links:     links,
		pages:     pages,
	}
}

// RegisterRoutes mounts the recipe endpoints. createLimit may be nil.
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup, auth middleware.TokenValidator, createLimit gin.HandlerFunc) {
	required := middleware.AuthMiddleware(auth)
	optional := middleware.OptionalAuthMiddleware(auth)

	create := []gin.HandlerFunc{required}
	if createLimit != nil {
		create = append(create, createLimit)
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("/", optional, h.ListRecipes)
		recipes.POST("/", create...)
		recipes.GET("/download_shopping_cart/", required, h.DownloadShoppingCart)
		recipes.GET("/:id/", optional, h.GetRecipe)
		recipes.PATCH("/:id/", required, h.UpdateRecipe)
		recipes.DELETE("/:id/", required, h.DeleteRecipe)
		recipes.GET("/:id/get-link/", required, h.GetLink)
		recipes.POST("/:id/favorite/", required, h.AddFavorite)
		recipes.DELETE("/:id/favorite/", required, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart/", required, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart/", required, h.RemoveFromCart)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	req, err := h.pages.parse(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	filter := service.RecipeFilter{
		TagSlugs:         c.QueryArray("tags"),
		IsFavorited:      queryBool(c, "is_favorited"),
		IsInShoppingCart: queryBool(c, "is_in_shopping_cart"),
		Limit:            req.Limit,
		Offset:           req.Offset(),
	}
	if c.Query("author") != "" {
		author, err := queryInt(c, "author")
		if err != nil {
			_ = c.Error(err)
			return
		}
		id := uint(author)
		filter.AuthorID = &id
	}

	recipes, total, err := h.recipes.List(c.Request.Context(), middleware.Viewer(c), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.pages.page(c, req, total, recipes))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	recipe, err := h.recipes.Get(c.Request.Context(), middleware.Viewer(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeWriteRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	recipe, err := h.recipes.Create(c.Request.Context(), currentActor(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	var req types.RecipeWriteRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	recipe, err := h.recipes.Update(c.Request.Context(), currentActor(c), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.recipes.Delete(c.Request.Context(), currentActor(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) GetLink(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	link, err := h.links.Link(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.ShortLinkResponse{ShortLink: link})
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addRelation(c, h.relations.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeRelation(c, h.relations.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addRelation(c, h.relations.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, h.relations.RemoveFromCart)
}

// DownloadShoppingCart sends the aggregated cart as a text attachment.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	items, err := h.relations.ShoppingList(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	username := fmt.Sprintf("user%d", userID)
	if claims, ok := middleware.Claims(c); ok && claims.Username != "" {
		username = claims.Username
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_shopping_list.txt"`, username))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.RenderShoppingList(items)))
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(ctx context.Context, userID, recipeID uint) (*types.RecipeShortView, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	userID, _ := middleware.UserID(c)
	recipe, err := add(c.Request.Context(), userID, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(ctx context.Context, userID, recipeID uint) error) {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.Error(err)
		return
	}
	userID, _ := middleware.UserID(c)
	if err := remove(c.Request.Context(), userID, id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
